package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Progress counts finished tasks. Workers update it; a separate loop reads it.
type Progress struct {
	total     atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	start     time.Time
}

func NewProgress(total int) *Progress {
	p := &Progress{start: time.Now()}
	p.total.Store(int64(total))
	return p
}

func (p *Progress) Done(failed bool) {
	p.completed.Add(1)
	if failed {
		p.failed.Add(1)
	}
}

// Snapshot returns finished (successful or not), failed and total counts.
func (p *Progress) Snapshot() (finished, failed, total int64) {
	return p.completed.Load(), p.failed.Load(), p.total.Load()
}

// Percent is the share of finished tasks, 100 for an empty run.
func (p *Progress) Percent() float64 {
	finished, _, total := p.Snapshot()
	if total == 0 {
		return 100
	}
	return float64(finished) / float64(total) * 100.0
}

func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.start)
}

// Line renders the progress message printed at every interval.
func (p *Progress) Line() string {
	return fmt.Sprintf("%.2f percentage completed in %s", p.Percent(), FormatElapsed(p.Elapsed()))
}

// Report writes a progress line to w every interval until ctx is done.
func (p *Progress) Report(ctx context.Context, w io.Writer, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintln(w, p.Line())
		}
	}
}

// FormatElapsed rounds d for humans: milliseconds under a second, seconds
// otherwise.
func FormatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
