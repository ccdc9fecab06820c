package tonal

import (
	"testing"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChordTypes(t *testing.T) {
	tests := []struct {
		token  string
		root   chroma.PitchClass
		want   ChordType
		family QualityFamily
	}{
		{"C", chroma.C, "maj", FamilyMajor},
		{"Am", chroma.A, "min", FamilyMinor},
		{"Amin", chroma.A, "min", FamilyMinor},
		{"A-", chroma.A, "min", FamilyMinor},
		{"Bdim", chroma.B, "dim", FamilyDiminished},
		{"B°", chroma.B, "dim", FamilyDiminished},
		{"Caug", chroma.C, "aug", FamilyAugmented},
		{"C+", chroma.C, "aug", FamilyAugmented},
		{"C7", chroma.C, "dom7", FamilyDominant},
		{"Cmaj7", chroma.C, "maj7", FamilyMajor},
		{"CM7", chroma.C, "maj7", FamilyMajor},
		{"C△7", chroma.C, "maj7", FamilyMajor},
		{"Cm7", chroma.C, "min7", FamilyMinor},
		{"Cdim7", chroma.C, "dim7", FamilyDiminished},
		{"Co7", chroma.C, "dim7", FamilyDiminished},
		{"Cø7", chroma.C, "hdim7", FamilyHalfDiminished},
		{"Cm7b5", chroma.C, "m7b5", FamilyHalfDiminished},
		{"CmM7", chroma.C, "minmaj7", FamilyMinorMajor},
		{"Cmmaj7", chroma.C, "minmaj7", FamilyMinorMajor},
		{"C9", chroma.C, "dom9", FamilyDominant},
		{"Cmaj9", chroma.C, "maj9", FamilyMajor},
		{"Cm11", chroma.C, "min11", FamilyMinor},
		{"C13", chroma.C, "dom13", FamilyDominant},
		{"C7b9", chroma.C, "7b9", FamilyDominant},
		{"C7(b9)", chroma.C, "7b9", FamilyDominant},
		{"G7(b9,#11)", chroma.G, "7b9", FamilyDominant},
		{"C7#9", chroma.C, "7#9", FamilyDominant},
		{"C7#11", chroma.C, "7#11", FamilyDominant},
		{"C7b9b5", chroma.C, "7alt", FamilyDominant},
		{"C7alt", chroma.C, "7alt", FamilyDominant},
		{"C13b9", chroma.C, "13b9", FamilyDominant},
		{"C7+", chroma.C, "7#5", FamilyDominant},
		{"Csus2", chroma.C, "sus2", FamilySuspended},
		{"Csus4", chroma.C, "sus4", FamilySuspended},
		{"Csus", chroma.C, "sus4", FamilySuspended},
		{"C7sus4", chroma.C, "7sus4", FamilyDominant},
		{"Cmaj7sus4", chroma.C, "maj7sus4", FamilyMajor},
		{"Cadd9", chroma.C, "add9", FamilyMajor},
		{"Cmadd9", chroma.C, "madd9", FamilyMinor},
		{"Cadd#11", chroma.C, "add#11", FamilyMajor},
		{"Cmaj7#11", chroma.C, "maj7#11", FamilyMajor},
		{"C6", chroma.C, "add6", FamilyMajor},
		{"Cm6", chroma.C, "min6", FamilyMinor},
		{"C6/9", chroma.C, "6/9", FamilyMajor},
		{"C2", chroma.C, "add2", FamilyMajor},
		{"C5", chroma.C, "5", FamilyPower},
		{"Cno3", chroma.C, "5", FamilyPower},
		{"F#m", chroma.FSharp, "min", FamilyMinor},
		{"Bbmaj7", chroma.ASharp, "maj7", FamilyMajor},
		{"E♭m7", chroma.DSharp, "min7", FamilyMinor},
		{"C♯7", chroma.CSharp, "dom7", FamilyDominant},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			chord, ok := ParseChord(tt.token)
			require.True(t, ok)
			assert.Equal(t, tt.root, chord.Root)
			assert.Equal(t, tt.want, chord.ChordType)
			assert.Equal(t, tt.family, chord.QualityFamily)
			assert.Equal(t, tt.token, chord.Original)
		})
	}
}

func TestParseChordIntervalsFromTable(t *testing.T) {
	chord, ok := ParseChord("C7")
	require.True(t, ok)
	assert.Equal(t, []int{0, 4, 7, 10}, chord.Intervals)
	assert.Equal(t, 2.0, chord.Complexity)
	assert.Equal(t, 0.5, chord.Stability)

	for _, token := range []string{"C", "Dm7", "G13b9", "Cmaj7#11", "Esus4", "F#ø7", "Bb6/9"} {
		chord, ok := ParseChord(token)
		require.True(t, ok, token)
		q, ok := LookupQuality(chord.ChordType)
		require.True(t, ok, "chord type %q must exist in the quality table", chord.ChordType)
		assert.Equal(t, q.Intervals, chord.Intervals)
		assert.Equal(t, 0, chord.Intervals[0])
	}
}

func TestParseChordEnharmonicRoots(t *testing.T) {
	pairs := [][2]string{
		{"Db", "C#"}, {"Eb", "D#"}, {"Gb", "F#"}, {"Ab", "G#"}, {"Bb", "A#"},
		{"D♭m", "C#m"}, {"G♯7", "Ab7"}, {"Cb", "B"}, {"E#", "F"},
	}
	for _, p := range pairs {
		a, ok := ParseChord(p[0])
		require.True(t, ok, p[0])
		b, ok := ParseChord(p[1])
		require.True(t, ok, p[1])
		assert.Equal(t, a.Root, b.Root, "%s vs %s", p[0], p[1])
		assert.Equal(t, a.ChordType, b.ChordType)
	}
}

func TestParseChordSlashBass(t *testing.T) {
	chord, ok := ParseChord("C/E")
	require.True(t, ok)
	assert.Equal(t, chroma.C, chord.Root)
	assert.Equal(t, chroma.E, chord.Bass)
	assert.True(t, chord.HasBass)
	assert.True(t, chord.IsSlash())
	assert.Equal(t, ChordType("maj"), chord.ChordType)

	chord, ok = ParseChord("Dm7/G")
	require.True(t, ok)
	assert.Equal(t, chroma.G, chord.Bass)
	assert.Equal(t, ChordType("min7"), chord.ChordType)

	chord, ok = ParseChord("G")
	require.True(t, ok)
	assert.Equal(t, chord.Root, chord.Bass)
	assert.False(t, chord.IsSlash())
}

func TestParseChordFallbacks(t *testing.T) {
	tests := []struct {
		token string
		want  ChordType
	}{
		{"Cxyz", "maj"},
		{"C7xyz", "dom7"},
		{"Cmaj7?", "maj7"},
		{"Cm*", "min"},
		{"C7(b9)", "7b9"},
		{"C°?", "dim"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			chord, ok := ParseChord(tt.token)
			require.True(t, ok)
			assert.Equal(t, tt.want, chord.ChordType)
		})
	}
}

func TestParseChordRejects(t *testing.T) {
	for _, token := range []string{"", "   ", "<verse_1>", "N.C.", "x", "H7", "cmaj"} {
		_, ok := ParseChord(token)
		assert.False(t, ok, "%q", token)
	}
}

func TestChordParserCache(t *testing.T) {
	parser := NewChordParserWithCache(8)

	first, ok := parser.Parse("Am7")
	require.True(t, ok)
	first.Intervals[0] = 99

	second, ok := parser.Parse("Am7")
	require.True(t, ok)
	assert.Equal(t, 0, second.Intervals[0], "cached chords must not share interval slices")

	_, ok = parser.Parse("<chorus>")
	assert.False(t, ok)

	uncached := NewChordParserWithCache(0)
	third, ok := uncached.Parse("Am7")
	require.True(t, ok)
	assert.Equal(t, second.ChordType, third.ChordType)
}

func TestPitchClasses(t *testing.T) {
	chord, ok := ParseChord("G7")
	require.True(t, ok)
	assert.Equal(t, []chroma.PitchClass{chroma.G, chroma.B, chroma.D, chroma.F}, chord.PitchClasses())
}

func TestQualityTable(t *testing.T) {
	types := ChordTypes()
	assert.GreaterOrEqual(t, len(types), 35)

	for _, ct := range types {
		q, ok := LookupQuality(ct)
		require.True(t, ok)
		require.NotEmpty(t, q.Intervals, ct)
		assert.Equal(t, 0, q.Intervals[0], ct)
		assert.True(t, q.Stability > 0 && q.Stability <= 1, ct)
		assert.True(t, q.Complexity > 0, ct)

		_, hasSuffix := romanSuffixes[ct]
		assert.True(t, hasSuffix, "chord type %q has no Roman numeral figure", ct)
	}
}
