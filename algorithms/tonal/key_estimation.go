package tonal

import (
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/logging"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultKeyCacheSize bounds the memoised key detection results
const DefaultKeyCacheSize = 10000

// KeyCandidate represents a potential key with its correlation score
type KeyCandidate struct {
	Key     chroma.PitchClass `json:"key"`      // Tonic pitch class
	IsMajor bool              `json:"is_major"` // Major or minor mode
	KeyName string            `json:"key_name"` // Human-readable name, e.g. "C Major"
	Score   float64           `json:"score"`    // Pearson correlation with the rotated profile
}

// KeyResult contains the detected key together with the evidence behind it
type KeyResult struct {
	// Primary key information
	Key        chroma.PitchClass `json:"key"`
	IsMajor    bool              `json:"is_major"`
	KeyName    string            `json:"key_name"`
	Confidence float64           `json:"confidence"` // Winning correlation, not clamped

	// All 24 candidates, best first
	Candidates []KeyCandidate `json:"candidates,omitempty"`
	RunnerUp   KeyCandidate   `json:"runner_up"`

	// Quality metrics
	Clarity   float64 `json:"clarity"`   // (best - second) / best over all candidates
	Ambiguity float64 `json:"ambiguity"` // |best major - best minor|

	// Analysis details
	Profile       *chroma.PitchClassProfile `json:"profile,omitempty"` // Blended weighted histogram
	ValidChords   int                       `json:"valid_chords"`
	AvgComplexity float64                   `json:"avg_complexity"`
	AvgStability  float64                   `json:"avg_stability"`
	Method        string                    `json:"method"`
}

// String returns the key name
func (r KeyResult) String() string {
	return FormatKey(r.Key, r.IsMajor)
}

// KeyDetectorParams contains parameters for key detection
type KeyDetectorParams struct {
	Method          stats.CorrelationMethod `json:"method"`           // Time or frequency domain correlation
	FunctionalBlend float64                 `json:"functional_blend"` // Share of the functional histogram in the blend
	CacheSize       int                     `json:"cache_size"`       // Memoised sequences, 0 disables
	SectionWeights  []SectionWeight         `json:"section_weights"`  // Multipliers applied after markers

	// Histogram weighting
	RootWeight           float64 `json:"root_weight"`            // Pitch histogram weight of a chord root
	FunctionalRootWeight float64 `json:"functional_root_weight"` // Functional histogram weight of a chord root
	FirstChordBoost      float64 `json:"first_chord_boost"`      // Added to the position weight of the opening token
	LastChordBoost       float64 `json:"last_chord_boost"`       // Added to the position weight of the closing token
	DominantWeight       float64 `json:"dominant_weight"`        // Functional multiplier for dominant chords
}

// KeyProfileTemplate contains template for key profile
type KeyProfileTemplate struct {
	MajorProfile []float64 `json:"major_profile"`
	MinorProfile []float64 `json:"minor_profile"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
}

// KrumhanslProfiles returns the Krumhansl-Schmuckler probe-tone profiles
// anchored on a C tonic
func KrumhanslProfiles() *KeyProfileTemplate {
	return &KeyProfileTemplate{
		MajorProfile: []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88},
		MinorProfile: []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17},
		Name:         "Krumhansl-Schmuckler",
		Description:  "Probe-tone ratings from Krumhansl & Kessler (1982)",
	}
}

// DefaultKeyDetectorParams returns the standard weighting scheme
func DefaultKeyDetectorParams() KeyDetectorParams {
	return KeyDetectorParams{
		Method:               stats.TimeDomain,
		FunctionalBlend:      0.3,
		CacheSize:            DefaultKeyCacheSize,
		SectionWeights:       DefaultSectionWeights(),
		RootWeight:           3.0,
		FunctionalRootWeight: 2.0,
		FirstChordBoost:      0.5,
		LastChordBoost:       0.3,
		DominantWeight:       1.5,
	}
}

// KeyDetector estimates the key of a chord sequence by correlating a weighted
// pitch-class histogram against the 24 rotated Krumhansl-Schmuckler profiles.
//
// References:
// - Krumhansl, C.L. (1990). "Cognitive Foundations of Musical Pitch"
// - Temperley, D. (1999). "What's Key for Key? The Krumhansl-Schmuckler
//   Key-Finding Algorithm Reconsidered"
//
// A KeyDetector is safe for concurrent use.
type KeyDetector struct {
	params      KeyDetectorParams
	parser      *ChordParser
	profiles    *KeyProfileTemplate
	correlation *stats.CircularCorrelation
	cache       *lru.Cache[string, KeyResult]
	logger      logging.Logger
}

// NewKeyDetector creates a key detector with default parameters
func NewKeyDetector(parser *ChordParser) *KeyDetector {
	return NewKeyDetectorWithParams(parser, DefaultKeyDetectorParams())
}

// NewKeyDetectorWithParams creates a key detector with custom parameters
func NewKeyDetectorWithParams(parser *ChordParser, params KeyDetectorParams) *KeyDetector {
	if parser == nil {
		parser = NewChordParser()
	}
	if params.SectionWeights == nil {
		params.SectionWeights = DefaultSectionWeights()
	}

	kd := &KeyDetector{
		params:      params,
		parser:      parser,
		profiles:    KrumhanslProfiles(),
		correlation: stats.NewCircularCorrelation(params.Method),
		logger: logging.WithFields(logging.Fields{
			"component": "key_detector",
			"method":    params.Method.String(),
		}),
	}

	if params.CacheSize > 0 {
		cache, err := lru.New[string, KeyResult](params.CacheSize)
		if err != nil {
			kd.logger.Error(err, "Failed to create key cache, caching disabled")
		} else {
			kd.cache = cache
		}
	}

	return kd
}

// DefaultKeyResult is returned when a sequence holds no parseable chord
func DefaultKeyResult() KeyResult {
	return KeyResult{
		Key:        chroma.C,
		IsMajor:    true,
		KeyName:    FormatKey(chroma.C, true),
		Confidence: 0,
		Method:     "default",
	}
}

// Detect estimates the key of a token sequence. Section markers adjust the
// weight of the chords that follow them; unparseable tokens are skipped.
func (kd *KeyDetector) Detect(tokens []string) KeyResult {
	var cacheKey string
	if kd.cache != nil {
		cacheKey = sequenceKey(tokens)
		if cached, ok := kd.cache.Get(cacheKey); ok {
			return cloneKeyResult(cached)
		}
	}

	result := kd.detect(tokens)

	if kd.cache != nil {
		kd.cache.Add(cacheKey, result)
	}

	return cloneKeyResult(result)
}

func (kd *KeyDetector) detect(tokens []string) KeyResult {
	pitch := make([]float64, chroma.NumPitchClasses)
	functional := make([]float64, chroma.NumPitchClasses)

	sectionWeight := 1.0
	validChords := 0
	totalComplexity := 0.0
	totalStability := 0.0
	last := len(tokens) - 1

	for i, token := range tokens {
		if IsSectionMarker(token) {
			if w, ok := LookupSectionWeight(kd.params.SectionWeights, token); ok {
				sectionWeight = w
			}
			continue
		}

		chord, ok := kd.parser.Parse(token)
		if !ok {
			continue
		}

		validChords++
		totalComplexity += chord.Complexity
		totalStability += chord.Stability

		weight := sectionWeight * kd.positionWeight(i, last) * kd.functionalWeight(chord) * (0.5 + chord.Stability)
		kd.accumulate(pitch, functional, chord, weight)
	}

	if validChords == 0 {
		return DefaultKeyResult()
	}

	chroma.NormalizeProfile(pitch)
	chroma.NormalizeProfile(functional)

	blend := kd.params.FunctionalBlend
	combined := make([]float64, chroma.NumPitchClasses)
	for i := range combined {
		combined[i] = (1-blend)*pitch[i] + blend*functional[i]
	}

	result, err := kd.matchProfiles(combined)
	if err != nil {
		kd.logger.Error(err, "Profile correlation failed, using default key")
		return DefaultKeyResult()
	}

	result.Profile = chroma.NewPitchClassProfile(combined)
	result.ValidChords = validChords
	result.AvgComplexity = totalComplexity / float64(validChords)
	result.AvgStability = totalStability / float64(validChords)

	kd.logger.Debug("Key detected", logging.Fields{
		"key":          result.KeyName,
		"confidence":   result.Confidence,
		"valid_chords": validChords,
	})

	return result
}

// matchProfiles correlates the histogram with all 24 keys. Major wins ties.
func (kd *KeyDetector) matchProfiles(histogram []float64) (KeyResult, error) {
	majorScores, err := kd.correlation.Compute(histogram, kd.profiles.MajorProfile)
	if err != nil {
		return KeyResult{}, err
	}
	minorScores, err := kd.correlation.Compute(histogram, kd.profiles.MinorProfile)
	if err != nil {
		return KeyResult{}, err
	}

	bestMajor := majorScores.PeakLag
	bestMinor := minorScores.PeakLag
	majorScore := majorScores.PeakCorrelation
	minorScore := minorScores.PeakCorrelation

	result := KeyResult{
		Ambiguity: math.Abs(majorScore - minorScore),
		Method:    "krumhansl_" + kd.correlation.Method().String(),
	}

	if majorScore >= minorScore {
		result.Key = chroma.PitchClass(bestMajor)
		result.IsMajor = true
		result.Confidence = majorScore
	} else {
		result.Key = chroma.PitchClass(bestMinor)
		result.IsMajor = false
		result.Confidence = minorScore
	}
	result.KeyName = FormatKey(result.Key, result.IsMajor)

	candidates := make([]KeyCandidate, 0, 2*chroma.NumPitchClasses)
	for k := 0; k < chroma.NumPitchClasses; k++ {
		tonic := chroma.PitchClass(k)
		candidates = append(candidates,
			KeyCandidate{Key: tonic, IsMajor: true, KeyName: FormatKey(tonic, true), Score: majorScores.Correlations[k]},
			KeyCandidate{Key: tonic, IsMajor: false, KeyName: FormatKey(tonic, false), Score: minorScores.Correlations[k]},
		)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	result.Candidates = candidates

	for _, c := range candidates {
		if c.Key != result.Key || c.IsMajor != result.IsMajor {
			result.RunnerUp = c
			break
		}
	}
	result.Clarity = calculateClarity(result.Confidence, result.RunnerUp.Score)

	return result, nil
}

// accumulate adds one weighted chord to both histograms. The root carries
// the most weight; chord tones decay with their position in the voicing.
func (kd *KeyDetector) accumulate(pitch, functional []float64, chord ParsedChord, weight float64) {
	root := chord.Root.Normalize()
	pitch[root] += kd.params.RootWeight * weight
	functional[root] += kd.params.FunctionalRootWeight * weight

	for j, interval := range chord.Intervals {
		if j == 0 {
			continue
		}
		pc := root.Transpose(interval)
		iw := intervalWeight(j)
		pitch[pc] += iw * weight
		functional[pc] += iw * 0.5 * weight
	}
}

func (kd *KeyDetector) positionWeight(index, last int) float64 {
	w := 1.0
	if index == 0 {
		w += kd.params.FirstChordBoost
	}
	if index == last {
		w += kd.params.LastChordBoost
	}
	return w
}

func (kd *KeyDetector) functionalWeight(chord ParsedChord) float64 {
	if chord.QualityFamily == FamilyDominant {
		return kd.params.DominantWeight
	}
	return 1.0
}

// Helper functions

// intervalWeight decays with the position of a chord tone. The third and
// fifth (positions 1 and 2) are emphasised.
func intervalWeight(position int) float64 {
	w := math.Max(0.2, 1.0-0.1*float64(position))
	switch position {
	case 1:
		w *= 1.5
	case 2:
		w *= 1.2
	}
	return w
}

func calculateClarity(best, second float64) float64 {
	if best <= 0 {
		return 0.0
	}
	return (best - second) / best
}

// sequenceKey builds an unambiguous cache key for a token sequence
func sequenceKey(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(strconv.Itoa(len(t)))
		b.WriteByte(':')
		b.WriteString(t)
	}
	return b.String()
}

func cloneKeyResult(r KeyResult) KeyResult {
	r.Candidates = slices.Clone(r.Candidates)
	if r.Profile != nil {
		p := *r.Profile
		p.Profile = slices.Clone(p.Profile)
		r.Profile = &p
	}
	return r
}

// Public utility functions

// RelativeKey returns the relative major/minor key
func RelativeKey(tonic chroma.PitchClass, isMajor bool) (chroma.PitchClass, bool) {
	if isMajor {
		// Relative minor is 3 semitones down
		return tonic.Transpose(-3), false
	}
	// Relative major is 3 semitones up
	return tonic.Transpose(3), true
}
