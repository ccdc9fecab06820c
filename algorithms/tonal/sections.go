package tonal

import (
	"strings"
	"unicode"
)

// SectionMarkerPrefix opens every structural marker token ("<verse_1>")
const SectionMarkerPrefix = "<"

// SectionWeight scales the key-detection weight of chords following a
// section marker whose name contains Name
type SectionWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// DefaultSectionWeights favours choruses and refrains over intros and outros.
// Entries are matched in order, so "prechorus" is listed before "chorus".
func DefaultSectionWeights() []SectionWeight {
	return []SectionWeight{
		{Name: "verse", Weight: 1.0},
		{Name: "prechorus", Weight: 1.3},
		{Name: "chorus", Weight: 1.5},
		{Name: "bridge", Weight: 1.2},
		{Name: "intro", Weight: 0.8},
		{Name: "outro", Weight: 1.1},
		{Name: "solo", Weight: 1.0},
		{Name: "refrain", Weight: 1.4},
	}
}

// IsSectionMarker reports whether token is a structural marker
func IsSectionMarker(token string) bool {
	return strings.HasPrefix(token, SectionMarkerPrefix)
}

// SectionName reduces a marker to its lowercase letters:
// "<Pre-Chorus_2>" becomes "prechorus"
func SectionName(marker string) string {
	var b strings.Builder
	for _, r := range marker {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// LookupSectionWeight returns the weight of the first entry whose name is
// contained in the marker. Unknown sections report false.
func LookupSectionWeight(weights []SectionWeight, marker string) (float64, bool) {
	name := SectionName(marker)
	if name == "" {
		return 0, false
	}
	for _, sw := range weights {
		if strings.Contains(name, sw.Name) {
			return sw.Weight, true
		}
	}
	return 0, false
}
