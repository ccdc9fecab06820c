package fingerprint

import (
	"slices"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/logging"
)

// Extensions names the flag slots that follow the structural prefix, in order
var Extensions = []string{
	"b7", "7", "sus4", "sus2", "9", "b9", "#9", "11", "#11", "13",
	"b13", "alt", "no3", "no5", "6", "b2", "bb3", "#4", "b6", "bb7",
}

// StructuralSlots is the length of the prefix every chord vector starts with
const StructuralSlots = 5

// structuralPrefix marks root and chord presence; the remaining slots are reserved
var structuralPrefix = [StructuralSlots]int{1, 1, 0, 0, 0}

// VectorLength is the full, untrimmed length of a chord vector
var VectorLength = StructuralSlots + len(Extensions)

var extensionIndex = func() map[string]int {
	m := make(map[string]int, len(Extensions))
	for i, ext := range Extensions {
		m[ext] = StructuralSlots + i
	}
	return m
}()

// FingerprintConfig holds configuration for fingerprint generation
type FingerprintConfig struct {
	// KeepStructuralPrefix stops trailing-zero trimming at the prefix, so a
	// plain triad encodes as "1,1,0,0,0". Disabling it trims every trailing
	// zero ("1,1").
	KeepStructuralPrefix bool `json:"keep_structural_prefix"`

	// Separator joins chord entries; commas join values inside an entry
	Separator string `json:"separator"`
}

// DefaultFingerprintConfig returns default fingerprint configuration
func DefaultFingerprintConfig() *FingerprintConfig {
	return &FingerprintConfig{
		KeepStructuralPrefix: true,
		Separator:            "|",
	}
}

// HUVEncoder builds the harmonic unit vector fingerprint of a chord sequence.
// Each chord becomes a structural prefix followed by extension flags detected
// from its symbol text; section markers pass through unchanged.
type HUVEncoder struct {
	config *FingerprintConfig
	logger logging.Logger
}

// NewHUVEncoder creates a new encoder with configuration
func NewHUVEncoder(config *FingerprintConfig) *HUVEncoder {
	if config == nil {
		config = DefaultFingerprintConfig()
	}
	if config.Separator == "" {
		config.Separator = "|"
	}

	return &HUVEncoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "huv_encoder",
		}),
	}
}

// Encode renders the fingerprint of a token sequence. Empty input yields "".
func (e *HUVEncoder) Encode(tokens []string) string {
	parts := e.EncodeParts(tokens)
	return strings.Join(parts, e.config.Separator)
}

// EncodeParts returns one fingerprint entry per token, aligned with tokens
func (e *HUVEncoder) EncodeParts(tokens []string) []string {
	parts := make([]string, len(tokens))
	for i, token := range tokens {
		if token == "" || tonal.IsSectionMarker(token) {
			parts[i] = token
			continue
		}
		parts[i] = FormatVector(e.EncodeChord(token))
	}
	return parts
}

// EncodeChord returns the trimmed vector for one chord symbol
func (e *HUVEncoder) EncodeChord(symbol string) []int {
	vector := make([]int, VectorLength)
	copy(vector, structuralPrefix[:])

	for _, ext := range DetectExtensions(symbol) {
		vector[extensionIndex[ext]] = 1
	}

	minLen := 0
	if e.config.KeepStructuralPrefix {
		minLen = StructuralSlots
	}
	return trimTrailingZeros(vector, minLen)
}

// DetectExtensions lists the extension flags a chord symbol sets, in slot
// order. Detection works on the lowercased symbol text: "maj7" sets 7, any
// other 7 sets b7.
func DetectExtensions(symbol string) []string {
	s := strings.ToLower(symbol)
	var found []string

	if strings.Contains(s, "maj7") {
		found = append(found, "7")
	} else if strings.Contains(s, "7") {
		found = append(found, "b7")
	}

	checks := []struct {
		substr string
		ext    string
	}{
		{"9", "9"},
		{"13", "13"},
		{"sus4", "sus4"},
		{"sus2", "sus2"},
		{"alt", "alt"},
		{"no3", "no3"},
		{"no5", "no5"},
		{"6", "6"},
	}
	for _, c := range checks {
		if strings.Contains(s, c.substr) {
			found = append(found, c.ext)
		}
	}

	slices.SortFunc(found, func(a, b string) int {
		return extensionIndex[a] - extensionIndex[b]
	})
	return found
}

// FormatVector joins vector values with commas
func FormatVector(vector []int) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Helper functions

func trimTrailingZeros(vector []int, minLen int) []int {
	end := len(vector)
	for end > minLen && vector[end-1] == 0 {
		end--
	}
	return vector[:end]
}
