// Package ledger keeps a history of filter runs in PostgreSQL so repeated
// batch jobs can be compared and audited.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS spamfilter_runs (
    run_id      TEXT PRIMARY KEY,
    discovered  INTEGER NOT NULL,
    completed   INTEGER NOT NULL,
    failed      INTEGER NOT NULL,
    data        JSONB NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
)`

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store persists run summaries.
type Store struct {
	db     Execer
	logger *slog.Logger
}

func NewStore(db Execer) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("run-ledger"),
	}
}

// EnsureSchema creates the runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating spamfilter_runs: %w", err)
	}
	return nil
}

type fileRecord struct {
	Path      string `json:"path"`
	RunTag    string `json:"run_tag,omitempty"`
	Queries   int    `json:"queries,omitempty"`
	Lookups   int    `json:"lookups,omitempty"`
	Failed    int    `json:"failed_lookups,omitempty"`
	Fallbacks int    `json:"fallbacks,omitempty"`
	Kind      string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

type runRecord struct {
	ElapsedMs int64        `json:"elapsed_ms"`
	Completed []fileRecord `json:"completed"`
	Failed    []fileRecord `json:"failed"`
}

// SaveRun stores one summary; saving the same run twice overwrites it.
func (s *Store) SaveRun(ctx context.Context, sum pipeline.Summary) error {
	rec := runRecord{ElapsedMs: sum.Elapsed.Milliseconds()}
	for _, r := range sum.Completed {
		rec.Completed = append(rec.Completed, toRecord(r))
	}
	for _, r := range sum.Failed {
		rec.Failed = append(rec.Failed, toRecord(r))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO spamfilter_runs (run_id, discovered, completed, failed, data, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id) DO UPDATE SET
		     discovered = EXCLUDED.discovered,
		     completed = EXCLUDED.completed,
		     failed = EXCLUDED.failed,
		     data = EXCLUDED.data,
		     finished_at = EXCLUDED.finished_at`,
		sum.RunID, sum.Discovered, len(sum.Completed), len(sum.Failed), data,
		sum.StartedAt.UTC(), sum.StartedAt.Add(sum.Elapsed).UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", sum.RunID, err)
	}
	s.logger.Info("run saved", "run_id", sum.RunID, "completed", len(sum.Completed), "failed", len(sum.Failed))
	return nil
}

// FileFinished is a no-op; runs are stored whole.
func (s *Store) FileFinished(context.Context, string, pipeline.FileResult) error {
	return nil
}

// RunFinished implements pipeline.Notifier.
func (s *Store) RunFinished(ctx context.Context, sum pipeline.Summary) error {
	return s.SaveRun(ctx, sum)
}

func toRecord(r pipeline.FileResult) fileRecord {
	rec := fileRecord{
		Path:      r.Job.RelPath,
		RunTag:    r.Report.RunTag,
		Queries:   r.Report.Queries,
		Lookups:   r.Report.Lookups,
		Failed:    r.Report.FailedLookups(),
		Fallbacks: r.Report.Fallbacks,
	}
	if r.Err != nil {
		rec.Kind = string(r.Kind)
		rec.Error = r.Err.Error()
	}
	return rec
}

var _ pipeline.Notifier = (*Store)(nil)
