package chroma

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// NumPitchClasses is the number of pitch classes in twelve-tone equal temperament
const NumPitchClasses = 12

// PitchClass is a pitch class number (0=C, 1=C#, ..., 11=B)
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

// Canonical sharp spellings, indexed by pitch class
var pitchClassNames = [NumPitchClasses]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// enharmonicSpellings folds every flat, Unicode and edge-case spelling onto
// the canonical sharp names above
var enharmonicSpellings = map[string]string{
	"Db": "C#", "Eb": "D#", "Gb": "F#", "Ab": "G#", "Bb": "A#",
	"C♯": "C#", "D♯": "D#", "F♯": "F#", "G♯": "G#", "A♯": "A#",
	"D♭": "C#", "E♭": "D#", "G♭": "F#", "A♭": "G#", "B♭": "A#",
	"E#": "F", "B#": "C", "Fb": "E", "Cb": "B",
	"E♯": "F", "B♯": "C", "F♭": "E", "C♭": "B",
}

var namesToPitchClass = func() map[string]PitchClass {
	m := make(map[string]PitchClass, NumPitchClasses)
	for i, name := range pitchClassNames {
		m[name] = PitchClass(i)
	}
	return m
}()

// Normalize folds any integer into the 0-11 range
func (pc PitchClass) Normalize() PitchClass {
	return PitchClass(((int(pc) % NumPitchClasses) + NumPitchClasses) % NumPitchClasses)
}

// String returns the canonical sharp spelling of the pitch class
func (pc PitchClass) String() string {
	return pitchClassNames[pc.Normalize()]
}

// Transpose moves the pitch class by the given number of semitones
func (pc PitchClass) Transpose(semitones int) PitchClass {
	return PitchClass(int(pc) + semitones).Normalize()
}

// Interval returns the ascending distance in semitones (0-11) from pc to other.
// Relative to a tonic this is the scale degree of other.
func (pc PitchClass) Interval(other PitchClass) int {
	return int(PitchClass(int(other) - int(pc)).Normalize())
}

// NormalizeNoteName maps a note spelling onto its canonical sharp name.
// Unknown spellings are returned unchanged.
func NormalizeNoteName(note string) string {
	note = strings.TrimSpace(note)
	if canonical, ok := enharmonicSpellings[note]; ok {
		return canonical
	}
	return note
}

// ParsePitchClass resolves a note spelling ("C", "Db", "F♯", "Cb", ...)
// into a pitch class
func ParsePitchClass(note string) (PitchClass, bool) {
	pc, ok := namesToPitchClass[NormalizeNoteName(note)]
	return pc, ok
}

// PitchClassProfile represents a normalised pitch class distribution
type PitchClassProfile struct {
	Profile    []float64 `json:"profile"`    // 12-element distribution summing to 1
	Entropy    float64   `json:"entropy"`    // Shannon entropy in bits
	Centroid   float64   `json:"centroid"`   // Circular centroid in pitch class units
	Uniformity float64   `json:"uniformity"` // 1 for a flat distribution, 0 for a single spike
}

// NewPitchClassProfile normalises a copy of histogram and derives its
// distribution measures. An all-zero histogram yields a zero profile.
func NewPitchClassProfile(histogram []float64) *PitchClassProfile {
	profile := make([]float64, NumPitchClasses)
	copy(profile, histogram)

	if !NormalizeProfile(profile) {
		return &PitchClassProfile{Profile: profile}
	}

	return &PitchClassProfile{
		Profile:    profile,
		Entropy:    calculateEntropy(profile),
		Centroid:   calculateCentroid(profile),
		Uniformity: calculateUniformity(profile),
	}
}

// Helper functions

// NormalizeProfile scales profile in place so it sums to one. It reports
// false and leaves the profile untouched when the sum is zero.
func NormalizeProfile(profile []float64) bool {
	sum := floats.Sum(profile)
	if sum <= 1e-12 {
		return false
	}
	floats.Scale(1/sum, profile)
	return true
}

// RotateProfile returns a copy of profile rotated so that index 0 of the
// input lands on index shift. Rotating a tonic-anchored key profile by k
// gives the profile of the key whose tonic is pitch class k.
func RotateProfile(profile []float64, shift int) []float64 {
	n := len(profile)
	rotated := make([]float64, n)
	if n == 0 {
		return rotated
	}
	for i := range profile {
		rotated[((i+shift)%n+n)%n] = profile[i]
	}
	return rotated
}

// calculateEntropy calculates Shannon entropy of pitch class distribution
func calculateEntropy(profile []float64) float64 {
	entropy := 0.0
	for _, prob := range profile {
		if prob > 1e-10 {
			entropy -= prob * math.Log2(prob)
		}
	}
	return entropy
}

// calculateCentroid calculates weighted centroid of pitch class distribution
func calculateCentroid(profile []float64) float64 {
	// Use circular mean for pitch classes
	sumSin := 0.0
	sumCos := 0.0

	for pc, weight := range profile {
		angle := 2.0 * math.Pi * float64(pc) / NumPitchClasses
		sumSin += weight * math.Sin(angle)
		sumCos += weight * math.Cos(angle)
	}

	centroidAngle := math.Atan2(sumSin, sumCos)
	if centroidAngle < 0 {
		centroidAngle += 2.0 * math.Pi
	}

	return centroidAngle * NumPitchClasses / (2.0 * math.Pi)
}

// calculateUniformity compares the spread of the profile to a flat distribution
func calculateUniformity(profile []float64) float64 {
	mean := 1.0 / NumPitchClasses
	variance := 0.0

	for _, val := range profile {
		diff := val - mean
		variance += diff * diff
	}
	variance /= NumPitchClasses

	// A single spike has variance mean*(1-mean)
	maxVariance := mean * (1 - mean)
	return 1.0 - math.Sqrt(variance/maxVariance)
}
