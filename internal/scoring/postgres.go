package scoring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/postgres"
	"github.com/lib/pq"
)

// Postgres reads percentiles from a table with one row per document:
//
//	CREATE TABLE spam_percentiles (
//	    doc_id     TEXT NOT NULL,
//	    percentile SMALLINT NOT NULL
//	);
//	CREATE INDEX ON spam_percentiles (doc_id);
type Postgres struct {
	db     *postgres.Client
	query  string
	logger *slog.Logger
}

func NewPostgres(db *postgres.Client) *Postgres {
	return &Postgres{
		db:     db,
		query:  fmt.Sprintf(`SELECT percentile FROM %s WHERE doc_id = $1 LIMIT 2`, pq.QuoteIdentifier(db.Table())),
		logger: logger.WithComponent("postgres-scoring").With("table", db.Table()),
	}
}

func (p *Postgres) Percentile(ctx context.Context, docID string) (int, error) {
	rows, err := p.db.DB.QueryContext(ctx, p.query, docID)
	if err != nil {
		return 0, &ServiceError{Backend: "postgres", DocID: docID, Err: err}
	}
	defer rows.Close()

	var (
		first int
		n     int
	)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return 0, &ServiceError{Backend: "postgres", DocID: docID, Err: fmt.Errorf("scanning percentile: %w", err)}
		}
		if n == 0 {
			first = v
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, &ServiceError{Backend: "postgres", DocID: docID, Err: err}
	}
	if n == 0 {
		p.logger.Warn("cannot find docID", "doc_id", docID)
		return 0, notFound("postgres/"+p.db.Table(), docID)
	}
	if n > 1 {
		p.logger.Warn("docID returned many rows", "doc_id", docID)
	}
	return Validate(docID, first)
}
