package analysis

import (
	"context"
	"crypto/rand"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/oklog/ulid/v2"
)

// ErrNoRecords is returned when a batch holds no songs
var ErrNoRecords = errors.New("no records to process")

// Song is one input record of a batch
type Song struct {
	ID     string `json:"id"`
	Chords string `json:"chords"`
	Key    string `json:"key,omitempty"` // Optional known key
}

// SongResult pairs a song ID with its analysis
type SongResult struct {
	ID string `json:"id"`
	Result
}

// BatchSummary holds the counters of one batch run
type BatchSummary struct {
	RunID            string        `json:"run_id"`
	Total            int           `json:"total"`
	Processed        int           `json:"processed"`
	Succeeded        int           `json:"succeeded"`
	NoHarmony        int           `json:"no_harmony"`
	ParseErrors      int           `json:"parse_errors"`
	AnalysisErrors   int           `json:"analysis_errors"`
	Workers          int           `json:"workers"`
	Duration         time.Duration `json:"duration"`
	RecordsPerSecond float64       `json:"records_per_second"`
	SuccessRate      float64       `json:"success_rate"`

	// Key confidence distribution over the successful songs
	Confidence *stats.Summary `json:"confidence,omitempty"`
}

// ProgressFunc is called after each song completes
type ProgressFunc func(done, total int)

// BatchProcessor analyses songs in parallel
type BatchProcessor struct {
	analyzer *Analyzer
	workers  int
	logger   logging.Logger
}

// DefaultWorkers leaves one CPU free, with a floor of two workers
func DefaultWorkers() int {
	return max(runtime.NumCPU()-1, 2)
}

// NewBatchProcessor creates a batch processor. workers <= 0 selects
// DefaultWorkers.
func NewBatchProcessor(analyzer *Analyzer, workers int) *BatchProcessor {
	if analyzer == nil {
		analyzer = NewAnalyzer(nil)
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	return &BatchProcessor{
		analyzer: analyzer,
		workers:  workers,
		logger: logging.WithFields(logging.Fields{
			"component": "batch_processor",
		}),
	}
}

// Workers returns the configured worker count
func (bp *BatchProcessor) Workers() int {
	return bp.workers
}

// Process analyses songs and returns results in input order. A failing song
// never aborts the batch. When ctx is cancelled the remaining songs are left
// unprocessed, their results stay zero-valued and ctx.Err() is returned with
// the partial results.
func (bp *BatchProcessor) Process(ctx context.Context, songs []Song, onProgress ProgressFunc) ([]SongResult, BatchSummary, error) {
	summary := BatchSummary{
		RunID:   newRunID(),
		Total:   len(songs),
		Workers: min(bp.workers, max(len(songs), 1)),
	}
	if len(songs) == 0 {
		return nil, summary, ErrNoRecords
	}

	logger := bp.logger.WithContext(ctx).WithFields(logging.Fields{
		"run_id":  summary.RunID,
		"songs":   summary.Total,
		"workers": summary.Workers,
	})
	logger.Info("Starting batch analysis")

	startTime := time.Now()
	results := make([]SongResult, len(songs))

	type songJob struct {
		index int
		song  Song
	}

	jobs := make(chan songJob)
	done := make(chan int, len(songs))

	var wg sync.WaitGroup
	for w := 0; w < summary.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results[job.index] = SongResult{
					ID:     job.song.ID,
					Result: bp.analyzer.AnalyzeWithKey(job.song.Chords, job.song.Key),
				}
				done <- job.index
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, song := range songs {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- songJob{index: i, song: song}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := make([]bool, len(songs))
	for index := range done {
		completed[index] = true
		summary.Processed++
		if onProgress != nil {
			onProgress(summary.Processed, summary.Total)
		}
	}

	var confidences []float64
	for i, result := range results {
		if !completed[i] {
			continue
		}
		switch result.Status {
		case StatusOK:
			summary.Succeeded++
			confidences = append(confidences, result.Confidence)
		case StatusNoHarmony:
			summary.NoHarmony++
		case StatusParseError:
			summary.ParseErrors++
		default:
			summary.AnalysisErrors++
		}
	}

	summary.Duration = time.Since(startTime)
	if seconds := summary.Duration.Seconds(); seconds > 0 {
		summary.RecordsPerSecond = float64(summary.Processed) / seconds
	}
	if summary.Processed > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Processed)
	}
	if len(confidences) > 0 {
		summary.Confidence, _ = stats.Summarize(confidences)
	}

	fields := logging.Fields{
		"processed":       summary.Processed,
		"succeeded":       summary.Succeeded,
		"no_harmony":      summary.NoHarmony,
		"parse_errors":    summary.ParseErrors,
		"analysis_errors": summary.AnalysisErrors,
		"duration":        summary.Duration.String(),
	}

	if err := ctx.Err(); err != nil && summary.Processed < summary.Total {
		logger.Warn("Batch analysis cancelled", fields)
		return results, summary, err
	}

	logger.Info("Batch analysis completed", fields)
	return results, summary, nil
}

func newRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
