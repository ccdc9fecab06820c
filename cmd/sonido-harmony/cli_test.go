package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/fingerprint"
)

func runApp(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newCLIApp(strings.NewReader(stdin), &stdout, &stderr)
	argv := append([]string{"sonido-harmony", "--env-file", filepath.Join(t.TempDir(), "absent.env")}, args...)
	err := app.RunContext(context.Background(), argv)
	return stdout.String(), stderr.String(), err
}

func TestAnalyzeCommandArgs(t *testing.T) {
	out, _, err := runApp(t, "", "analyze", "C", "F", "G", "C")
	require.NoError(t, err)

	var result analysis.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "C Major", result.Key)
	assert.Equal(t, "A Minor", result.RelativeKey)
	assert.Equal(t, "I IV V I", result.RomanNumerals)
	assert.Equal(t, analysis.StatusOK, result.Status)
	assert.Nil(t, result.Detail)
}

func TestAnalyzeCommandStdin(t *testing.T) {
	out, _, err := runApp(t, "Am Dm E7 Am\n", "analyze", "--detail")
	require.NoError(t, err)

	var result analysis.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "A Minor", result.Key)
	assert.Equal(t, "i iv V7 i", result.RomanNumerals)
	assert.NotNil(t, result.Detail)
}

func TestAnalyzeCommandKnownKey(t *testing.T) {
	out, _, err := runApp(t, "", "analyze", "--key", "G major", "C F G C")
	require.NoError(t, err)

	var result analysis.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "G Major", result.Key)
	assert.Equal(t, "IV bVII I IV", result.RomanNumerals)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "songs.csv")
	out := filepath.Join(dir, "analysed.csv")

	input := "id,title,chords\n" +
		"a,First,C F G C\n" +
		"b,Empty,\n" +
		"c,Third,<verse_1> Am Dm E7 Am\n"
	require.NoError(t, os.WriteFile(in, []byte(input), 0o644))

	stdout, _, err := runApp(t, "", "batch", "--in", in, "--out", out, "--workers", "2", "--no-progress")
	require.NoError(t, err)

	var summary analysis.BatchSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.NoHarmony)
	assert.NotEmpty(t, summary.RunID)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"id", "title", "chords", "key", "roman_numerals", "harmonic_fingerprint"}, rows[0])

	assert.Equal(t, []string{"a", "First", "C F G C"}, rows[1][:3])
	assert.Equal(t, "C Major", rows[1][3])
	assert.Equal(t, "I IV V I", rows[1][4])
	assert.Equal(t, "1,1,0,0,0|1,1,0,0,0|1,1,0,0,0|1,1,0,0,0", rows[1][5])

	assert.Equal(t, analysis.NoHarmonyKey, rows[2][3])
	assert.Equal(t, analysis.NoHarmonyNumerals, rows[2][4])

	assert.Equal(t, "A Minor", rows[3][3])
	assert.Equal(t, "<verse_1> i iv V7 i", rows[3][4])
	assert.True(t, strings.HasPrefix(rows[3][5], "<verse_1>|"))
}

func TestBatchCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := runApp(t, "", "batch", "--out", filepath.Join(dir, "out.csv"))
	assert.Error(t, err)

	_, _, err = runApp(t, "", "batch", "--in", filepath.Join(dir, "missing.csv"), "--out", filepath.Join(dir, "out.csv"))
	assert.Error(t, err)

	noChords := filepath.Join(dir, "no_chords.csv")
	require.NoError(t, os.WriteFile(noChords, []byte("id,title\n1,Song\n"), 0o644))
	_, _, err = runApp(t, "", "batch", "--in", noChords, "--out", filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chords")
}

func TestCompareCommand(t *testing.T) {
	out, _, err := runApp(t, "", "compare", "--a", "C G7 C", "--b", "C G7 C")
	require.NoError(t, err)

	var resp struct {
		A          analysis.Result              `json:"a"`
		B          analysis.Result              `json:"b"`
		Similarity fingerprint.SimilarityResult `json:"similarity"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, resp.A.HarmonicFingerprint, resp.B.HarmonicFingerprint)
	assert.InDelta(t, 1.0, resp.Similarity.OverallSimilarity, 1e-9)
	assert.Equal(t, "exact", resp.Similarity.MatchType)

	_, _, err = runApp(t, "", "compare", "--a", "", "--b", "C G")
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := runApp(t, "", "--log-level", "loud", "analyze", "C G")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"correlation_method": "frequency"}`), 0o644))

	out, _, err := runApp(t, "", "--config", path, "analyze", "C F G C")
	require.NoError(t, err)

	var result analysis.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, analysis.StatusOK, result.Status)
	assert.NotEmpty(t, result.RomanNumerals)
}
