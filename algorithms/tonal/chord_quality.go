package tonal

import (
	"slices"
	"sort"
)

// QualityFamily groups chord types by harmonic function
type QualityFamily string

const (
	FamilyMajor          QualityFamily = "major"
	FamilyMinor          QualityFamily = "minor"
	FamilyDominant       QualityFamily = "dominant"
	FamilyDiminished     QualityFamily = "diminished"
	FamilyHalfDiminished QualityFamily = "half-diminished"
	FamilyAugmented      QualityFamily = "augmented"
	FamilyMinorMajor     QualityFamily = "minor-major"
	FamilySuspended      QualityFamily = "suspended"
	FamilyPower          QualityFamily = "power"
)

// ChordType is a key into the chord quality table ("maj", "min7", "7b9", ...)
type ChordType string

// Chord types the parser produces by name. The table below holds many more.
const (
	ChordMajor      ChordType = "maj"
	ChordMinor      ChordType = "min"
	ChordDiminished ChordType = "dim"
	ChordAugmented  ChordType = "aug"
	ChordMajor7     ChordType = "maj7"
	ChordDominant7  ChordType = "dom7"
	ChordMinorMajor ChordType = "minmaj7"
	ChordHalfDim    ChordType = "hdim7"
	ChordSus2       ChordType = "sus2"
	ChordSus4       ChordType = "sus4"
	Chord7Sus2      ChordType = "7sus2"
	Chord7Sus4      ChordType = "7sus4"
	ChordAdd2       ChordType = "add2"
	ChordAdd4       ChordType = "add4"
	ChordAdd6       ChordType = "add6"
	ChordAdd9       ChordType = "add9"
	ChordMinorAdd9  ChordType = "madd9"
	ChordMinor6     ChordType = "min6"
	ChordAddSharp11 ChordType = "add#11"
	Chord7Alt       ChordType = "7alt"
	ChordPower      ChordType = "5"
)

// ChordQuality describes one chord type
type ChordQuality struct {
	Intervals  []int         `json:"intervals"`  // Semitones above the root, first is 0
	Family     QualityFamily `json:"family"`     // Harmonic family
	Complexity float64       `json:"complexity"` // Rough harmonic complexity, 0.8 (power) to 4.5 (altered)
	Stability  float64       `json:"stability"`  // Tonal stability, 0.05 (altered) to 1.0 (major triad)
}

// qualityTable is the chord vocabulary. Several spellings share an entry
// ("hdim7" / "m7b5", "dom9" / "9").
var qualityTable = map[ChordType]ChordQuality{
	// Triads
	"maj": {[]int{0, 4, 7}, FamilyMajor, 1.0, 1.0},
	"min": {[]int{0, 3, 7}, FamilyMinor, 1.0, 0.9},
	"dim": {[]int{0, 3, 6}, FamilyDiminished, 1.5, 0.3},
	"aug": {[]int{0, 4, 8}, FamilyAugmented, 1.5, 0.4},

	// Sevenths
	"maj7":    {[]int{0, 4, 7, 11}, FamilyMajor, 2.0, 0.8},
	"min7":    {[]int{0, 3, 7, 10}, FamilyMinor, 2.0, 0.7},
	"dom7":    {[]int{0, 4, 7, 10}, FamilyDominant, 2.0, 0.5},
	"dim7":    {[]int{0, 3, 6, 9}, FamilyDiminished, 2.5, 0.2},
	"hdim7":   {[]int{0, 3, 6, 10}, FamilyHalfDiminished, 2.5, 0.3},
	"m7b5":    {[]int{0, 3, 6, 10}, FamilyHalfDiminished, 2.5, 0.3},
	"aug7":    {[]int{0, 4, 8, 10}, FamilyAugmented, 2.5, 0.2},
	"minmaj7": {[]int{0, 3, 7, 11}, FamilyMinorMajor, 2.5, 0.4},
	"mM7":     {[]int{0, 3, 7, 11}, FamilyMinorMajor, 2.5, 0.4},

	// Extended
	"maj9":  {[]int{0, 4, 7, 11, 14}, FamilyMajor, 3.0, 0.7},
	"min9":  {[]int{0, 3, 7, 10, 14}, FamilyMinor, 3.0, 0.6},
	"dom9":  {[]int{0, 4, 7, 10, 14}, FamilyDominant, 3.0, 0.4},
	"9":     {[]int{0, 4, 7, 10, 14}, FamilyDominant, 3.0, 0.4},
	"maj11": {[]int{0, 4, 7, 11, 14, 17}, FamilyMajor, 3.5, 0.6},
	"min11": {[]int{0, 3, 7, 10, 14, 17}, FamilyMinor, 3.5, 0.5},
	"dom11": {[]int{0, 4, 7, 10, 14, 17}, FamilyDominant, 3.5, 0.3},
	"11":    {[]int{0, 4, 7, 10, 14, 17}, FamilyDominant, 3.5, 0.3},
	"maj13": {[]int{0, 4, 7, 11, 14, 17, 21}, FamilyMajor, 4.0, 0.5},
	"min13": {[]int{0, 3, 7, 10, 14, 17, 21}, FamilyMinor, 4.0, 0.4},
	"dom13": {[]int{0, 4, 7, 10, 14, 17, 21}, FamilyDominant, 4.0, 0.2},
	"13":    {[]int{0, 4, 7, 10, 14, 17, 21}, FamilyDominant, 4.0, 0.2},

	// Altered dominants
	"dom7b9":  {[]int{0, 4, 7, 10, 13}, FamilyDominant, 3.5, 0.1},
	"7b9":     {[]int{0, 4, 7, 10, 13}, FamilyDominant, 3.5, 0.1},
	"dom7#9":  {[]int{0, 4, 7, 10, 15}, FamilyDominant, 3.5, 0.1},
	"7#9":     {[]int{0, 4, 7, 10, 15}, FamilyDominant, 3.5, 0.1},
	"dom7b5":  {[]int{0, 4, 6, 10}, FamilyDominant, 3.0, 0.2},
	"7b5":     {[]int{0, 4, 6, 10}, FamilyDominant, 3.0, 0.2},
	"dom7#5":  {[]int{0, 4, 8, 10}, FamilyDominant, 3.0, 0.2},
	"7#5":     {[]int{0, 4, 8, 10}, FamilyDominant, 3.0, 0.2},
	"dom7alt": {[]int{0, 4, 6, 10, 13, 15}, FamilyDominant, 4.5, 0.05},
	"7alt":    {[]int{0, 4, 6, 10, 13, 15}, FamilyDominant, 4.5, 0.05},
	"dom7#11": {[]int{0, 4, 7, 10, 18}, FamilyDominant, 3.5, 0.3},
	"7#11":    {[]int{0, 4, 7, 10, 18}, FamilyDominant, 3.5, 0.3},
	"dom13b9": {[]int{0, 4, 7, 10, 13, 21}, FamilyDominant, 4.0, 0.1},
	"13b9":    {[]int{0, 4, 7, 10, 13, 21}, FamilyDominant, 4.0, 0.1},

	// Suspended
	"sus2":     {[]int{0, 2, 7}, FamilySuspended, 1.2, 0.6},
	"sus4":     {[]int{0, 5, 7}, FamilySuspended, 1.2, 0.5},
	"7sus4":    {[]int{0, 5, 7, 10}, FamilyDominant, 2.2, 0.4},
	"7sus2":    {[]int{0, 2, 7, 10}, FamilyDominant, 2.2, 0.4},
	"maj7sus4": {[]int{0, 5, 7, 11}, FamilyMajor, 2.2, 0.6},
	"maj7sus2": {[]int{0, 2, 7, 11}, FamilyMajor, 2.2, 0.6},

	// Added tones
	"add9":     {[]int{0, 4, 7, 14}, FamilyMajor, 2.2, 0.8},
	"madd9":    {[]int{0, 3, 7, 14}, FamilyMinor, 2.2, 0.7},
	"add2":     {[]int{0, 2, 4, 7}, FamilyMajor, 2.2, 0.7},
	"add4":     {[]int{0, 4, 5, 7}, FamilyMajor, 2.2, 0.6},
	"add6":     {[]int{0, 4, 7, 9}, FamilyMajor, 2.2, 0.8},
	"6":        {[]int{0, 4, 7, 9}, FamilyMajor, 2.2, 0.8},
	"min6":     {[]int{0, 3, 7, 9}, FamilyMinor, 2.2, 0.7},
	"m6":       {[]int{0, 3, 7, 9}, FamilyMinor, 2.2, 0.7},
	"6add9":    {[]int{0, 4, 7, 9, 14}, FamilyMajor, 3.2, 0.7},
	"6/9":      {[]int{0, 4, 7, 9, 14}, FamilyMajor, 3.2, 0.7},
	"min6add9": {[]int{0, 3, 7, 9, 14}, FamilyMinor, 3.2, 0.6},
	"m6add9":   {[]int{0, 3, 7, 9, 14}, FamilyMinor, 3.2, 0.6},

	// Power chords
	"no3":   {[]int{0, 7}, FamilyPower, 0.8, 0.9},
	"no3d":  {[]int{0, 7}, FamilyPower, 0.8, 0.9},
	"5":     {[]int{0, 7}, FamilyPower, 0.8, 0.9},
	"power": {[]int{0, 7}, FamilyPower, 0.8, 0.9},

	// Contemporary
	"add#11":  {[]int{0, 4, 7, 18}, FamilyMajor, 2.5, 0.6},
	"maj7#11": {[]int{0, 4, 7, 11, 18}, FamilyMajor, 3.5, 0.5},
	"min7#11": {[]int{0, 3, 7, 10, 18}, FamilyMinor, 3.5, 0.4},
}

// chordTypeAliases resolves working types the table does not hold directly
var chordTypeAliases = map[ChordType]ChordType{
	"dom":    "dom7",
	"7b9b5":  "7alt",
	"7#9b5":  "7alt",
	"mmaj7":  "minmaj7",
	"hdim":   "hdim7",
	"min7b5": "m7b5",
	"minmaj": "minmaj7",
	"sus47":  "7sus4",
	"sus27":  "7sus2",
}

// LookupQuality returns the quality table entry for a chord type
func LookupQuality(chordType ChordType) (ChordQuality, bool) {
	q, ok := qualityTable[chordType]
	if !ok {
		return ChordQuality{}, false
	}
	q.Intervals = slices.Clone(q.Intervals)
	return q, true
}

// ChordTypes lists every chord type in the quality table, sorted
func ChordTypes() []ChordType {
	types := make([]ChordType, 0, len(qualityTable))
	for t := range qualityTable {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// resolveAlias walks the alias table until it reaches a table entry
func resolveAlias(chordType ChordType) (ChordType, bool) {
	if _, ok := qualityTable[chordType]; ok {
		return chordType, true
	}
	if alias, ok := chordTypeAliases[chordType]; ok {
		if _, ok := qualityTable[alias]; ok {
			return alias, true
		}
	}
	return chordType, false
}
