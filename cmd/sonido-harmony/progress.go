package main

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressReporter renders batch progress; a nil reporter is a no-op
type progressReporter struct {
	progress *mpb.Progress
	bar      *mpb.Bar
}

func newProgressReporter(w io.Writer, total int) *progressReporter {
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(w))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Analysing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name(" "),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)

	return &progressReporter{progress: p, bar: bar}
}

// Update matches analysis.ProgressFunc
func (pr *progressReporter) Update(done, _ int) {
	pr.bar.SetCurrent(int64(done))
}

// Finish stops the bar, aborting it when the batch ended early
func (pr *progressReporter) Finish() {
	if pr == nil {
		return
	}
	if !pr.bar.Completed() {
		pr.bar.Abort(false)
	}
	pr.progress.Wait()
}
