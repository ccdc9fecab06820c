package tonal

import (
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
)

// UnknownNumeral stands in for tokens that are not chords
const UnknownNumeral = "?"

// Diatonic numerals keyed by scale degree in semitones above the tonic
var (
	majorScaleDegrees = map[int]string{
		0: "I", 2: "ii", 4: "iii", 5: "IV", 7: "V", 9: "vi", 11: "vii°",
	}
	minorScaleDegrees = map[int]string{
		0: "i", 2: "ii°", 3: "bIII", 5: "iv", 7: "v", 8: "bVI", 10: "bVII",
	}
)

// Borrowed and chromatic numerals for the remaining degrees
var (
	majorChromaticDegrees = map[int]string{
		1: "bII", 3: "bIII", 6: "bV", 8: "bVI", 10: "bVII",
	}
	minorChromaticDegrees = map[int]string{
		1: "bII", 4: "III", 6: "#iv", 9: "VI", 11: "VII",
	}
)

// romanSuffixes holds the figure appended to a numeral for each chord type.
// Triads take no figure; the numeral case and °/+ carry their quality.
var romanSuffixes = map[ChordType]string{
	"maj": "", "min": "", "dim": "", "aug": "",

	"maj7": "maj7", "min7": "7", "dom7": "7", "dim7": "7",
	"hdim7": "ø7", "m7b5": "ø7", "aug7": "7", "minmaj7": "maj7", "mM7": "maj7",

	"maj9": "maj9", "min9": "9", "dom9": "9", "9": "9",
	"maj11": "maj11", "min11": "11", "dom11": "11", "11": "11",
	"maj13": "maj13", "min13": "13", "dom13": "13", "13": "13",

	"dom7b9": "7b9", "7b9": "7b9", "dom7#9": "7#9", "7#9": "7#9",
	"dom7b5": "7b5", "7b5": "7b5", "dom7#5": "7#5", "7#5": "7#5",
	"dom7alt": "7alt", "7alt": "7alt", "dom7#11": "7#11", "7#11": "7#11",
	"dom13b9": "13b9", "13b9": "13b9",

	"sus2": "sus2", "sus4": "sus4", "7sus4": "7sus4", "7sus2": "7sus2",
	"maj7sus4": "maj7sus4", "maj7sus2": "maj7sus2",

	"add9": "add9", "madd9": "add9", "add2": "add2", "add4": "add4",
	"add6": "6", "6": "6", "min6": "6", "m6": "6",
	"6add9": "6/9", "6/9": "6/9", "min6add9": "6/9", "m6add9": "6/9",

	"no3": "5", "no3d": "5", "5": "5", "power": "5",

	"add#11": "add#11", "maj7#11": "maj7#11", "min7#11": "7#11",
}

// RomanNumeralGenerator renders chords as Roman numerals relative to a key
type RomanNumeralGenerator struct {
	parser *ChordParser
}

// NewRomanNumeralGenerator creates a generator sharing the given parser
func NewRomanNumeralGenerator(parser *ChordParser) *RomanNumeralGenerator {
	if parser == nil {
		parser = NewChordParser()
	}
	return &RomanNumeralGenerator{parser: parser}
}

// Generate maps each token to a numeral, keeping the sequence aligned:
// section markers pass through verbatim, unparseable tokens become "?".
func (g *RomanNumeralGenerator) Generate(tokens []string, tonic chroma.PitchClass, isMajor bool) []string {
	numerals := make([]string, len(tokens))
	for i, token := range tokens {
		if IsSectionMarker(token) {
			numerals[i] = token
			continue
		}
		chord, ok := g.parser.Parse(token)
		if !ok {
			numerals[i] = UnknownNumeral
			continue
		}
		numerals[i] = RomanNumeral(chord, tonic, isMajor)
	}
	return numerals
}

// RomanNumeral renders one parsed chord relative to a key. A dominant chord
// off the scale, or on a degree whose diatonic triad is not major, is written
// as the secondary dominant of the degree it resolves to ("V7/V"). Slash
// chords append their bass.
func RomanNumeral(chord ParsedChord, tonic chroma.PitchClass, isMajor bool) string {
	degree := tonic.Interval(chord.Root)
	scale := scaleDegrees(isMajor)
	suffix := romanSuffixes[chord.ChordType]

	var numeral string
	if secondary, ok := secondaryDominant(chord, degree, scale); ok {
		numeral = secondary
	} else {
		base, diatonic := scale[degree]
		if !diatonic {
			base = chromaticNumeral(degree, isMajor)
		}
		numeral = applyQualityCase(base, chord.QualityFamily) + suffix
	}

	if chord.IsSlash() {
		bassDegree := tonic.Interval(chord.Bass)
		if bassNumeral, ok := scale[bassDegree]; ok {
			numeral += "/" + stripQualityMarks(bassNumeral)
		} else {
			numeral += "/" + chord.Bass.String()
		}
	}

	return numeral
}

// Helper functions

func scaleDegrees(isMajor bool) map[int]string {
	if isMajor {
		return majorScaleDegrees
	}
	return minorScaleDegrees
}

// secondaryDominant names a dominant-family chord by the degree it resolves to
func secondaryDominant(chord ParsedChord, degree int, scale map[int]string) (string, bool) {
	if chord.QualityFamily != FamilyDominant || degree == 7 {
		return "", false
	}

	// A dominant on a diatonic major-quality degree stays put: bVII7 in minor
	if diatonic, ok := scale[degree]; ok && isUpperNumeral(diatonic) {
		return "", false
	}

	target, ok := scale[(degree+5)%12]
	if !ok {
		return "", false
	}
	return "V7/" + target, true
}

func chromaticNumeral(degree int, isMajor bool) string {
	table := minorChromaticDegrees
	if isMajor {
		table = majorChromaticDegrees
	}
	if numeral, ok := table[degree]; ok {
		return numeral
	}
	if degree <= 6 {
		return "b" + strconv.Itoa(degree+1)
	}
	return "#" + strconv.Itoa(degree-6)
}

// applyQualityCase sets the numeral case from the chord's family: upper for
// major-sounding chords, lower for minor ones, ° for diminished and + for
// augmented. Suspended and power chords keep the diatonic case.
func applyQualityCase(numeral string, family QualityFamily) string {
	if family == FamilySuspended || family == FamilyPower {
		return stripQualityMarks(numeral)
	}

	accidental, body := splitAccidental(stripQualityMarks(numeral))
	if !isRomanBody(body) {
		return numeral
	}

	switch family {
	case FamilyMajor, FamilyDominant:
		body = strings.ToUpper(body)
	case FamilyAugmented:
		body = strings.ToUpper(body) + "+"
	case FamilyMinor, FamilyMinorMajor, FamilyHalfDiminished:
		body = strings.ToLower(body)
	case FamilyDiminished:
		body = strings.ToLower(body) + "°"
	}

	return accidental + body
}

var qualityMarks = strings.NewReplacer("°", "", "+", "")

func stripQualityMarks(numeral string) string {
	return qualityMarks.Replace(numeral)
}

func splitAccidental(numeral string) (accidental, body string) {
	i := 0
	for i < len(numeral) && (numeral[i] == 'b' || numeral[i] == '#') {
		i++
	}
	return numeral[:i], numeral[i:]
}

func isRomanBody(body string) bool {
	if body == "" {
		return false
	}
	for _, r := range strings.ToUpper(body) {
		if r != 'I' && r != 'V' {
			return false
		}
	}
	return true
}

func isUpperNumeral(numeral string) bool {
	_, body := splitAccidental(stripQualityMarks(numeral))
	return isRomanBody(body) && body == strings.ToUpper(body)
}
