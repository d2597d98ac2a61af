// Package pipeline runs the submission processor over a batch of files with
// a bounded worker pool, reports progress while it waits, and summarises the
// run. Files are independent: a failing file is recorded and never cancels
// its siblings, and nothing is retried.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/tracing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Config controls one run.
type Config struct {
	Concurrency      int
	Timeout          time.Duration
	ProgressInterval time.Duration
}

// Notifier is told about every finished file and about the finished run.
// Errors are logged and otherwise ignored.
type Notifier interface {
	FileFinished(ctx context.Context, runID string, result FileResult) error
	RunFinished(ctx context.Context, summary Summary) error
}

// FileResult is the outcome of one task.
type FileResult struct {
	Job    processor.Job
	Report processor.Report
	Err    error
	Kind   errors.Kind
}

// Summary is the result of a whole run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	Elapsed    time.Duration
	Discovered int
	Completed  []FileResult
	Failed     []FileResult
}

// Cancelled counts files that did not finish because the run was cancelled
// or hit its deadline.
func (s Summary) Cancelled() int {
	n := 0
	for _, r := range s.Failed {
		if r.Kind == errors.KindCancelled || r.Kind == errors.KindTimeout {
			n++
		}
	}
	return n
}

// OK reports whether every discovered file completed.
func (s Summary) OK() bool {
	return len(s.Failed) == 0 && len(s.Completed) == s.Discovered
}

// Scheduler runs processor.Process over many files.
type Scheduler struct {
	cfg       Config
	opts      processor.Options
	notifiers []Notifier
	progress  io.Writer
	logger    *slog.Logger
}

func NewScheduler(cfg Config, opts processor.Options, notifiers ...Notifier) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Scheduler{
		cfg:       cfg,
		opts:      opts,
		notifiers: notifiers,
		progress:  os.Stdout,
		logger:    logger.WithComponent("scheduler"),
	}
}

// SetProgressOutput redirects progress lines (stdout by default).
func (s *Scheduler) SetProgressOutput(w io.Writer) {
	s.progress = w
}

// Run processes every job and blocks until all tasks have finished or the
// run is cancelled. Tasks that had not started when ctx ended are reported
// as failed with the context's error.
func (s *Scheduler) Run(ctx context.Context, jobs []processor.Job) Summary {
	summary := Summary{
		RunID:      logger.RunID(ctx),
		StartedAt:  time.Now(),
		Discovered: len(jobs),
	}
	if summary.RunID == "" {
		summary.RunID = uuid.NewString()
		ctx = logger.WithRunID(ctx, summary.RunID)
	}
	log := logger.FromContext(ctx).With("component", "scheduler")

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	ctx, root := tracing.StartSpan(ctx, "run", summary.RunID)

	progress := NewProgress(len(jobs))
	reportCtx, stopReport := context.WithCancel(context.Background())
	var reportWG sync.WaitGroup
	reportWG.Add(1)
	go func() {
		defer reportWG.Done()
		progress.Report(reportCtx, s.progress, s.cfg.ProgressInterval)
	}()

	log.Info("run started", "files", len(jobs), "concurrency", s.cfg.Concurrency, "timeout", s.cfg.Timeout)

	results := make([]FileResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = s.runTask(ctx, summary.RunID, job)
			progress.Done(results[i].Err != nil)
			return nil
		})
	}
	g.Wait()

	stopReport()
	reportWG.Wait()

	for _, r := range results {
		if r.Err != nil {
			summary.Failed = append(summary.Failed, r)
			continue
		}
		summary.Completed = append(summary.Completed, r)
	}
	summary.Elapsed = time.Since(summary.StartedAt)
	root.End(ctx.Err())

	log.Info("run finished",
		"discovered", summary.Discovered,
		"completed", len(summary.Completed),
		"failed", len(summary.Failed),
		"cancelled", summary.Cancelled(),
		"elapsed", FormatElapsed(summary.Elapsed),
	)
	s.notifyRun(summary)
	return summary
}

func (s *Scheduler) runTask(ctx context.Context, runID string, job processor.Job) FileResult {
	res := FileResult{Job: job}
	if err := ctx.Err(); err != nil {
		res.Err = err
		res.Kind = errors.KindOf(err)
		res.Report.Path = job.Path
		return res
	}

	s.opts.Metrics.TaskStarted()
	res.Report, res.Err = processor.Process(ctx, job, s.opts)
	res.Kind = errors.KindOf(res.Err)
	status := "completed"
	if res.Err != nil {
		status = string(res.Kind)
		logger.FromContext(ctx).Error("submission failed",
			"component", "scheduler",
			"file", job.RelPath,
			"kind", res.Kind,
			"error", res.Err,
		)
	}
	s.opts.Metrics.TaskFinished(status, res.Report.Elapsed)

	for _, n := range s.notifiers {
		// The run context may already be done; the event still describes a
		// finished task.
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := n.FileFinished(nctx, runID, res); err != nil {
			s.logger.Warn("file notification failed", "file", job.RelPath, "error", err)
		}
		cancel()
	}
	return res
}

func (s *Scheduler) notifyRun(summary Summary) {
	for _, n := range s.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := n.RunFinished(ctx, summary); err != nil {
			s.logger.Warn("run notification failed", "run_id", summary.RunID, "error", err)
		}
		cancel()
	}
}
