package fingerprint

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"gonum.org/v1/gonum/floats"
)

// ErrEmptyFingerprint is returned when a fingerprint holds no chord entries
var ErrEmptyFingerprint = errors.New("fingerprint has no chord entries")

type similarityMethod string

const (
	methodCosine   similarityMethod = "cosine"
	methodPearson  similarityMethod = "pearson"
	methodAdaptive similarityMethod = "adaptive"
)

// ComparisonConfig holds configuration for fingerprint comparison
type ComparisonConfig struct {
	// Method is one of "fast" (cosine), "precise" (pearson) or "auto"
	Method              string  `json:"method"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	MaxCandidates       int     `json:"max_candidates"`
	Separator           string  `json:"separator"`
}

// DefaultComparisonConfig returns a default comparison config
func DefaultComparisonConfig() *ComparisonConfig {
	return &ComparisonConfig{
		Method:              "auto",
		SimilarityThreshold: 0.5,
		MaxCandidates:       10,
		Separator:           "|",
	}
}

// Entry is one decoded fingerprint element: a chord vector or a section marker
type Entry struct {
	Vector []int
	Marker string
}

// IsMarker reports whether the entry is a section marker
func (e Entry) IsMarker() bool {
	return e.Marker != ""
}

// SimilarityResult holds the result of fingerprint comparison
type SimilarityResult struct {
	OverallSimilarity  float64 `json:"overall_similarity"` // 0.0-1.0
	ProfileSimilarity  float64 `json:"profile_similarity"`
	SequenceSimilarity float64 `json:"sequence_similarity"`
	StructureMatch     bool    `json:"structure_match"`
	ChordsA            int     `json:"chords_a"`
	ChordsB            int     `json:"chords_b"`
	MatchType          string  `json:"match_type"` // 'exact', 'similar', 'weak'
}

// Candidate is a named fingerprint to match against
type Candidate struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
}

// Match represents a fingerprint match with score and rank
type Match struct {
	Candidate  Candidate         `json:"candidate"`
	Similarity *SimilarityResult `json:"similarity"`
	Rank       int               `json:"rank"`
}

// FingerprintComparator compares harmonic fingerprints. The extension profile
// (how often each extension flag occurs) captures harmonic colour, the chord
// sequence captures progression shape.
type FingerprintComparator struct {
	config         *ComparisonConfig
	internalMethod similarityMethod
	profileWeight  float64
	sequenceWeight float64
	logger         logging.Logger
}

// NewFingerprintComparator creates a new fingerprint comparator
func NewFingerprintComparator(cfg *ComparisonConfig) *FingerprintComparator {
	if cfg == nil {
		cfg = DefaultComparisonConfig()
	}
	if cfg.Separator == "" {
		cfg.Separator = "|"
	}

	var internalMethod similarityMethod
	var profileWeight, sequenceWeight float64

	switch cfg.Method {
	case "fast":
		internalMethod = methodCosine
		profileWeight = 0.5
		sequenceWeight = 0.5

	case "precise":
		internalMethod = methodPearson
		profileWeight = 0.4
		sequenceWeight = 0.6

	default:
		internalMethod = methodAdaptive
		profileWeight = 0.4
		sequenceWeight = 0.6
	}

	return &FingerprintComparator{
		config:         cfg,
		internalMethod: internalMethod,
		profileWeight:  profileWeight,
		sequenceWeight: sequenceWeight,
		logger: logging.WithFields(logging.Fields{
			"component": "fingerprint_comparator",
		}),
	}
}

// Decode splits a fingerprint string back into entries
func Decode(fingerprint, separator string) ([]Entry, error) {
	if strings.TrimSpace(fingerprint) == "" {
		return nil, nil
	}
	if separator == "" {
		separator = "|"
	}

	parts := strings.Split(fingerprint, separator)
	entries := make([]Entry, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			continue
		}
		if tonal.IsSectionMarker(part) {
			entries = append(entries, Entry{Marker: part})
			continue
		}

		values := strings.Split(part, ",")
		vector := make([]int, len(values))
		for j, v := range values {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("entry %d: invalid value %q: %w", i, v, err)
			}
			vector[j] = n
		}
		entries = append(entries, Entry{Vector: vector})
	}
	return entries, nil
}

// Compare compares two fingerprint strings
func (fc *FingerprintComparator) Compare(fp1, fp2 string) (*SimilarityResult, error) {
	a, err := Decode(fp1, fc.config.Separator)
	if err != nil {
		return nil, fmt.Errorf("failed to decode first fingerprint: %w", err)
	}
	b, err := Decode(fp2, fc.config.Separator)
	if err != nil {
		return nil, fmt.Errorf("failed to decode second fingerprint: %w", err)
	}

	chordsA, markersA := splitEntries(a)
	chordsB, markersB := splitEntries(b)
	if len(chordsA) == 0 || len(chordsB) == 0 {
		return nil, ErrEmptyFingerprint
	}

	result := &SimilarityResult{
		ChordsA:        len(chordsA),
		ChordsB:        len(chordsB),
		StructureMatch: slices.Equal(markersA, markersB),
	}

	result.ProfileSimilarity = fc.compareProfiles(extensionProfile(chordsA), extensionProfile(chordsB))
	result.SequenceSimilarity = compareSequences(chordsA, chordsB)
	result.OverallSimilarity = fc.profileWeight*result.ProfileSimilarity +
		fc.sequenceWeight*result.SequenceSimilarity
	result.MatchType = fc.classifyMatch(result)

	fc.logger.Debug("Fingerprint comparison completed", logging.Fields{
		"method":     string(fc.internalMethod),
		"similarity": result.OverallSimilarity,
		"chords_a":   result.ChordsA,
		"chords_b":   result.ChordsB,
	})

	return result, nil
}

// FindBestMatches ranks candidates against a query fingerprint, keeping those
// at or above the similarity threshold
func (fc *FingerprintComparator) FindBestMatches(query string, candidates []Candidate) ([]*Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyFingerprint
	}

	var matches []*Match
	for _, candidate := range candidates {
		similarity, err := fc.Compare(query, candidate.Fingerprint)
		if err != nil {
			fc.logger.Warn("Failed to compare with candidate", logging.Fields{
				"candidate_id": candidate.ID,
				"error":        err.Error(),
			})
			continue
		}

		if similarity.OverallSimilarity >= fc.config.SimilarityThreshold {
			matches = append(matches, &Match{
				Candidate:  candidate,
				Similarity: similarity,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity.OverallSimilarity > matches[j].Similarity.OverallSimilarity
	})

	if fc.config.MaxCandidates > 0 && len(matches) > fc.config.MaxCandidates {
		matches = matches[:fc.config.MaxCandidates]
	}
	for i, match := range matches {
		match.Rank = i + 1
	}

	return matches, nil
}

func (fc *FingerprintComparator) compareProfiles(p1, p2 []float64) float64 {
	switch fc.internalMethod {
	case methodCosine:
		return stats.CosineSimilarity(p1, p2)
	case methodPearson:
		return stats.PearsonSimilarity(p1, p2)
	default:
		// Plain triads give flat profiles where Pearson is undefined
		if floats.Max(p1) == floats.Min(p1) || floats.Max(p2) == floats.Min(p2) {
			return stats.CosineSimilarity(p1, p2)
		}
		return 0.5*stats.CosineSimilarity(p1, p2) + 0.5*stats.PearsonSimilarity(p1, p2)
	}
}

func (fc *FingerprintComparator) classifyMatch(result *SimilarityResult) string {
	switch {
	case result.OverallSimilarity >= 0.95:
		return "exact"
	case result.OverallSimilarity >= 0.75:
		return "similar"
	default:
		return "weak"
	}
}

func splitEntries(entries []Entry) (chords [][]int, markers []string) {
	for _, e := range entries {
		if e.IsMarker() {
			markers = append(markers, tonal.SectionName(e.Marker))
			continue
		}
		chords = append(chords, e.Vector)
	}
	return chords, markers
}

// extensionProfile is the per-slot frequency of each extension flag
func extensionProfile(chords [][]int) []float64 {
	profile := make([]float64, len(Extensions))
	for _, vector := range chords {
		for i := StructuralSlots; i < len(vector) && i < VectorLength; i++ {
			profile[i-StructuralSlots] += float64(vector[i])
		}
	}
	floats.Scale(1/float64(len(chords)), profile)
	return profile
}

// compareSequences scores the longest common chord subsequence against the
// longer sequence
func compareSequences(a, b [][]int) float64 {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if slices.Equal(a[i-1], b[j-1]) {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return float64(prev[len(b)]) / float64(max(len(a), len(b)))
}
