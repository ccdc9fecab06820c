package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeChord(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"C", "1,1,0,0,0"},
		{"Cm", "1,1,0,0,0"},
		{"C7", "1,1,0,0,0,1"},
		{"Cmaj7", "1,1,0,0,0,0,1"},
		{"CMaj7", "1,1,0,0,0,0,1"},
		{"C7sus4", "1,1,0,0,0,1,0,1"},
		{"Csus2", "1,1,0,0,0,0,0,0,1"},
		{"G9", "1,1,0,0,0,0,0,0,0,1"},
		{"C13", "1,1,0,0,0,0,0,0,0,0,0,0,0,0,1"},
		{"C7alt", "1,1,0,0,0,1,0,0,0,0,0,0,0,0,0,0,1"},
		{"Cno3", "1,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,1"},
		{"C6/9", "1,1,0,0,0,0,0,0,0,1,0,0,0,0,0,0,0,0,0,1"},
		{"not-a-chord", "1,1,0,0,0"},
	}

	encoder := NewHUVEncoder(nil)

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			vector := encoder.EncodeChord(tt.symbol)
			assert.Equal(t, tt.want, FormatVector(vector))
			assert.LessOrEqual(t, len(vector), VectorLength)
		})
	}
}

func TestEncodeChordDominantVersusMajorSeventh(t *testing.T) {
	encoder := NewHUVEncoder(nil)

	dom := encoder.EncodeChord("G7")
	maj := encoder.EncodeChord("Gmaj7")

	assert.Equal(t, []string{"b7"}, DetectExtensions("G7"))
	assert.Equal(t, []string{"7"}, DetectExtensions("Gmaj7"))
	assert.NotEqual(t, dom, maj)
}

func TestDetectExtensionsSlotOrder(t *testing.T) {
	assert.Equal(t, []string{"9", "6"}, DetectExtensions("C6/9"))
	assert.Equal(t, []string{"b7", "sus4"}, DetectExtensions("C7sus4"))
	assert.Empty(t, DetectExtensions("Am"))
}

func TestEncodeSequence(t *testing.T) {
	encoder := NewHUVEncoder(nil)

	got := encoder.Encode([]string{"<verse_1>", "C", "G7", "<chorus_1>", "F"})
	assert.Equal(t, "<verse_1>|1,1,0,0,0|1,1,0,0,0,1|<chorus_1>|1,1,0,0,0", got)

	assert.Equal(t, "", encoder.Encode(nil))
	assert.Equal(t, "<intro>", encoder.Encode([]string{"<intro>"}))

	parts := encoder.EncodeParts([]string{"C", "<outro>"})
	require.Len(t, parts, 2)
	assert.Equal(t, "<outro>", parts[1])
}

func TestEncodeWithoutStructuralPrefix(t *testing.T) {
	encoder := NewHUVEncoder(&FingerprintConfig{Separator: ";"})

	assert.Equal(t, "1,1", FormatVector(encoder.EncodeChord("C")))
	assert.Equal(t, "1,1;1,1,0,0,0,1", encoder.Encode([]string{"C", "C7"}))
}

func TestEncodeIsDeterministic(t *testing.T) {
	tokens := []string{"Dm7", "G7", "Cmaj7", "A7alt", "<bridge>", "Fsus2", "E7#9"}
	first := NewHUVEncoder(nil).Encode(tokens)
	for n := 0; n < 5; n++ {
		assert.Equal(t, first, NewHUVEncoder(nil).Encode(tokens))
	}
}
