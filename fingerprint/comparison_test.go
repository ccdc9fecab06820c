package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(tokens ...string) string {
	return NewHUVEncoder(nil).Encode(tokens)
}

func TestDecode(t *testing.T) {
	entries, err := Decode("<verse_1>|1,1,0,0,0|1,1,0,0,0,1", "|")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].IsMarker())
	assert.Equal(t, []int{1, 1, 0, 0, 0}, entries[1].Vector)
	assert.Equal(t, []int{1, 1, 0, 0, 0, 1}, entries[2].Vector)

	entries, err = Decode("", "|")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = Decode("1,1,x", "|")
	assert.Error(t, err)
}

func TestCompareIdentical(t *testing.T) {
	fp := encode("<verse>", "C", "G7", "C")
	comparator := NewFingerprintComparator(nil)

	result, err := comparator.Compare(fp, fp)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.OverallSimilarity, 1e-9)
	assert.True(t, result.StructureMatch)
	assert.Equal(t, "exact", result.MatchType)
	assert.Equal(t, 3, result.ChordsA)
}

func TestCompareTriadSequencesOfDifferentLength(t *testing.T) {
	comparator := NewFingerprintComparator(nil)

	result, err := comparator.Compare(encode("C", "F", "G", "C"), encode("C", "G"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.ProfileSimilarity, 1e-9)
	assert.InDelta(t, 0.5, result.SequenceSimilarity, 1e-9)
	assert.InDelta(t, 0.7, result.OverallSimilarity, 1e-9)
	assert.Equal(t, "weak", result.MatchType)
}

func TestCompareSectionNames(t *testing.T) {
	comparator := NewFingerprintComparator(nil)

	result, err := comparator.Compare(encode("<verse_1>", "C"), encode("<verse_2>", "C"))
	require.NoError(t, err)
	assert.True(t, result.StructureMatch)

	result, err = comparator.Compare(encode("<verse_1>", "C"), encode("<chorus_1>", "C"))
	require.NoError(t, err)
	assert.False(t, result.StructureMatch)
}

func TestCompareErrors(t *testing.T) {
	comparator := NewFingerprintComparator(nil)

	_, err := comparator.Compare("", encode("C"))
	assert.ErrorIs(t, err, ErrEmptyFingerprint)

	_, err = comparator.Compare("<intro>", encode("C"))
	assert.ErrorIs(t, err, ErrEmptyFingerprint)

	_, err = comparator.Compare("1,a", encode("C"))
	assert.Error(t, err)
}

func TestCompareMethods(t *testing.T) {
	a := encode("C", "G7", "C")
	b := encode("C", "F", "G7", "C")

	for _, method := range []string{"fast", "precise", "auto"} {
		t.Run(method, func(t *testing.T) {
			comparator := NewFingerprintComparator(&ComparisonConfig{Method: method})
			result, err := comparator.Compare(a, b)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, result.ProfileSimilarity, 1e-9)
			assert.InDelta(t, 0.75, result.SequenceSimilarity, 1e-9)
		})
	}
}

func TestFindBestMatches(t *testing.T) {
	comparator := NewFingerprintComparator(nil)
	query := encode("C", "F", "G7", "C")

	matches, err := comparator.FindBestMatches(query, []Candidate{
		{ID: "triads", Fingerprint: encode("C", "F", "G", "C")},
		{ID: "shorter", Fingerprint: encode("C", "G7", "C")},
		{ID: "same", Fingerprint: query},
		{ID: "broken", Fingerprint: "x,y"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "same", matches[0].Candidate.ID)
	assert.Equal(t, 1, matches[0].Rank)
	assert.Equal(t, "shorter", matches[1].Candidate.ID)
	assert.Equal(t, 2, matches[1].Rank)
	assert.InDelta(t, 0.85, matches[1].Similarity.OverallSimilarity, 1e-9)
	assert.Equal(t, "similar", matches[1].Similarity.MatchType)

	_, err = comparator.FindBestMatches("", nil)
	assert.ErrorIs(t, err, ErrEmptyFingerprint)
}
