// Package processor filters one submission file into one output file per
// spam threshold. Everything for a file happens on the calling goroutine, so
// the per-threshold writers need no locking.
package processor

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/submission"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/tracing"
)

// Job names one input file and its path relative to the input root; the
// relative path is recreated under every threshold's output root.
type Job struct {
	Path    string
	RelPath string
}

// Options are shared by every file of a run.
type Options struct {
	// OutputRoot returns the directory that mirrors the input root for a
	// threshold.
	OutputRoot    func(threshold int) string
	Lookup        scoring.Lookup
	NoResultDocID string
	Metrics       *metrics.Metrics
}

// Report describes one processed file.
type Report struct {
	Path      string
	RunTag    string
	Queries   int
	Entries   int
	Lookups   int
	Failures  map[errors.Kind]int
	Fallbacks int
	Accepted  [filter.NumThresholds]int
	Outputs   []string
	Elapsed   time.Duration
}

// FailedLookups returns the number of documents dropped because their
// lookup failed.
func (r Report) FailedLookups() int {
	n := 0
	for _, c := range r.Failures {
		n += c
	}
	return n
}

// Process parses job.Path, filters every query and writes the threshold
// outputs. A parse error produces no output at all. Document lookup
// failures only drop that document. IO failures and context cancellation
// remove every output of the file.
func Process(ctx context.Context, job Job, opts Options) (Report, error) {
	start := time.Now()
	report := Report{Path: job.Path, Failures: make(map[errors.Kind]int)}
	log := logger.FromContext(ctx).With("component", "processor", "file", job.RelPath)

	ctx, span := tracing.StartChildSpan(ctx, "process_file")
	span.SetAttr("file", job.RelPath)

	err := process(ctx, job, opts, &report, log)
	report.Elapsed = time.Since(start)
	span.SetAttr("queries", report.Queries)
	span.SetAttr("lookups", report.Lookups)
	span.End(err)
	span.Log(ctx, log)
	return report, err
}

func process(ctx context.Context, job Job, opts Options, report *Report, log *slog.Logger) error {
	file, err := submission.Parse(job.Path)
	if err != nil {
		return err
	}
	report.RunTag = file.RunTag
	report.Queries = len(file.Queries)
	report.Entries = file.NumEntries()

	outs, err := openOutputs(func(t int) string {
		return filepath.Join(opts.OutputRoot(t), job.RelPath)
	})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			outs.discard()
		}
	}()

	for _, q := range file.Queries {
		qctx, qspan := tracing.StartChildSpan(ctx, "filter_query")
		qspan.SetAttr("query_id", q.ID)
		outcome := filter.Apply(qctx, q.ID, q.Entries, opts.Lookup, opts.NoResultDocID)
		report.Lookups += outcome.Lookups
		qspan.SetAttr("lookups", outcome.Lookups)
		qspan.End(outcome.Err)
		if outcome.Err != nil {
			return outcome.Err
		}

		for _, f := range outcome.Failures {
			report.Failures[errors.KindOf(f.Err)]++
			log.Warn("document skipped", "query_id", q.ID, "doc_id", f.DocID, "error", f.Err)
		}

		for i, o := range outs {
			for _, r := range outcome.Lists[i] {
				if err := o.writeLine(q.ID, r, file.RunTag); err != nil {
					return err
				}
			}
			if n := outcome.Accepted(i); n > 0 {
				report.Accepted[i] += n
				opts.Metrics.AddAccepted(o.threshold, n)
			} else {
				report.Fallbacks++
				opts.Metrics.AddFallback(o.threshold)
			}
		}
	}

	if err := outs.commit(); err != nil {
		return err
	}
	committed = true
	report.Outputs = outs.paths()

	log.Info("submission filtered",
		"run_tag", file.RunTag,
		"queries", report.Queries,
		"entries", report.Entries,
		"failed_lookups", report.FailedLookups(),
		"fallbacks", report.Fallbacks,
	)
	return nil
}
