// Package filter partitions one query's ranked list across the fixed spam
// thresholds. Each document is looked up once; its percentile then decides
// membership in every threshold's list.
package filter

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/submission"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
)

const (
	// MaxResults caps every (query, threshold) list.
	MaxResults = 1000

	minThreshold  = 5
	maxThreshold  = 95
	thresholdStep = 5
)

// Thresholds are the percentile cutoffs 5, 10, ..., 95.
var Thresholds = buildThresholds()

// NumThresholds is len(Thresholds).
const NumThresholds = (maxThreshold-minThreshold)/thresholdStep + 1

func buildThresholds() []int {
	ts := make([]int, 0, NumThresholds)
	for t := minThreshold; t <= maxThreshold; t += thresholdStep {
		ts = append(ts, t)
	}
	return ts
}

// Ranked is one line of a filtered list.
type Ranked struct {
	DocID    string
	Rank     int
	Score    float64
	Fallback bool
}

// Failure is a document left out of every list because its lookup failed.
type Failure struct {
	DocID string
	Err   error
}

// Outcome is the filtered ranking of one query. Lists[i] belongs to
// Thresholds[i]. Err is non-nil only when cancellation or a deadline ended
// the scan early, in which case Lists is incomplete and must not be written.
type Outcome struct {
	QueryID  int
	Lists    [NumThresholds][]Ranked
	Lookups  int
	Failures []Failure
	Err      error
}

// Accepted returns how many real (non-fallback) documents threshold index i kept.
func (o *Outcome) Accepted(i int) int {
	n := len(o.Lists[i])
	if n == 1 && o.Lists[i][0].Fallback {
		return 0
	}
	return n
}

// Apply filters entries for one query. Entries are visited in submission
// order and the order is kept in every list. A threshold that keeps nothing
// gets a single fallback entry so the query still appears in its output.
func Apply(ctx context.Context, queryID int, entries []submission.Entry, lookup scoring.Lookup, noResultDocID string) *Outcome {
	out := &Outcome{QueryID: queryID}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			out.Err = err
			return out
		}
		// Once the strictest list is full every list is full.
		if len(out.Lists[NumThresholds-1]) == MaxResults {
			break
		}
		out.Lookups++
		p, err := lookup.Percentile(ctx, e.DocID)
		if err == nil {
			p, err = scoring.Validate(e.DocID, p)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.Err = ctxErr
				return out
			}
			// A lookup can give up before ctx's deadline when it knows it
			// cannot finish in time; that ends the scan too.
			if k := errors.KindOf(err); k == errors.KindTimeout || k == errors.KindCancelled {
				out.Err = err
				return out
			}
			out.Failures = append(out.Failures, Failure{DocID: e.DocID, Err: err})
			continue
		}
		for i, t := range Thresholds {
			if p < t {
				break
			}
			if len(out.Lists[i]) == MaxResults {
				continue
			}
			out.Lists[i] = append(out.Lists[i], Ranked{
				DocID: e.DocID,
				Rank:  len(out.Lists[i]) + 1,
				Score: e.Score,
			})
		}
	}

	for i := range out.Lists {
		if len(out.Lists[i]) == 0 {
			out.Lists[i] = []Ranked{{DocID: noResultDocID, Rank: 1, Score: 0, Fallback: true}}
		}
	}
	return out
}
