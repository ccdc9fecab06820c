package analysis

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchProcessPreservesOrder(t *testing.T) {
	songs := []Song{
		{ID: "a", Chords: "C F G C"},
		{ID: "b", Chords: ""},
		{ID: "c", Chords: "Am Dm E7 Am"},
		{ID: "d", Chords: "nothing here"},
		{ID: "e", Chords: "C F G C", Key: "F major"},
	}

	var calls atomic.Int64
	processor := NewBatchProcessor(NewAnalyzer(nil), 3)
	results, summary, err := processor.Process(context.Background(), songs, func(done, total int) {
		calls.Add(1)
		assert.Equal(t, len(songs), total)
		assert.LessOrEqual(t, done, total)
	})
	require.NoError(t, err)
	require.Len(t, results, len(songs))

	for i, song := range songs {
		assert.Equal(t, song.ID, results[i].ID)
	}
	assert.Equal(t, "C Major", results[0].Key)
	assert.Equal(t, NoHarmonyKey, results[1].Key)
	assert.Equal(t, "A Minor", results[2].Key)
	assert.Equal(t, ParseErrorKey, results[3].Key)
	assert.Equal(t, "F Major", results[4].Key)
	assert.Equal(t, "V I II V", results[4].RomanNumerals)

	assert.Equal(t, int64(len(songs)), calls.Load())
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.NoHarmony)
	assert.Equal(t, 1, summary.ParseErrors)
	assert.Equal(t, 0, summary.AnalysisErrors)
	assert.Equal(t, 3, summary.Workers)
	assert.InDelta(t, 0.6, summary.SuccessRate, 1e-9)
	require.NotNil(t, summary.Confidence)
	assert.Equal(t, 3, summary.Confidence.Count)
	assert.InDelta(t, 1.0, summary.Confidence.Max, 1e-9, "the known key reports full confidence")
	assert.LessOrEqual(t, summary.Confidence.Min, summary.Confidence.Median)

	_, err = ulid.Parse(summary.RunID)
	assert.NoError(t, err)
}

func TestBatchProcessMatchesSequentialAnalysis(t *testing.T) {
	progressions := []string{
		"C F G C", "G C D G", "Am Dm E7 Am", "<verse> Bb Eb F7 Bb",
		"Dm7 G7 Cmaj7", "E A B7 E", "C Am F G7 C", "D G A7 D",
	}

	var songs []Song
	for i := 0; i < 64; i++ {
		songs = append(songs, Song{ID: fmt.Sprint(i), Chords: progressions[i%len(progressions)]})
	}

	analyzer := NewAnalyzer(nil)
	results, _, err := NewBatchProcessor(analyzer, 8).Process(context.Background(), songs, nil)
	require.NoError(t, err)

	sequential := NewAnalyzer(nil)
	for i, song := range songs {
		want := sequential.Analyze(song.Chords)
		assert.Equal(t, want.Key, results[i].Key, "song %s", song.ID)
		assert.Equal(t, want.RomanNumerals, results[i].RomanNumerals)
		assert.Equal(t, want.HarmonicFingerprint, results[i].HarmonicFingerprint)
	}
}

func TestBatchProcessEmpty(t *testing.T) {
	_, summary, err := NewBatchProcessor(nil, 0).Process(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Equal(t, 0, summary.Total)
}

func TestBatchProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	songs := []Song{{ID: "1", Chords: "C G"}, {ID: "2", Chords: "Am F"}}
	results, summary, err := NewBatchProcessor(nil, 2).Process(ctx, songs, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, len(songs))
	assert.Equal(t, 0, summary.Processed)
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(), 2)
	assert.Equal(t, DefaultWorkers(), NewBatchProcessor(nil, -1).Workers())
}
