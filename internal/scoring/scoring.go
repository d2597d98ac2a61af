// Package scoring looks up the spam percentile of a document in an external
// ranking service. Backends (Elasticsearch, PostgreSQL, Redis) implement
// Lookup; Guard wraps any of them with rate limiting, a circuit breaker,
// per-call timeouts and in-flight de-duplication.
package scoring

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
)

// MaxPercentile is the exclusive upper bound of a valid percentile.
const MaxPercentile = 100

// ErrNotFound is returned when the service has no percentile for a document.
var ErrNotFound = errors.ErrNotFound

// Lookup returns the spam percentile of one document. Implementations must
// be safe for concurrent use and block until the service answers.
type Lookup interface {
	Percentile(ctx context.Context, docID string) (int, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, docID string) (int, error)

func (f LookupFunc) Percentile(ctx context.Context, docID string) (int, error) {
	return f(ctx, docID)
}

// ServiceError reports a transport or server failure.
type ServiceError struct {
	Backend string
	DocID   string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s lookup of %s: %v", e.Backend, e.DocID, e.Err)
}

func (e *ServiceError) Unwrap() []error {
	return []error{errors.ErrUnavailable, e.Err}
}

// ValidationError reports a percentile outside [0, MaxPercentile) or one
// that is not a whole number. Raw holds the value as the service sent it
// when it could not be represented as an int.
type ValidationError struct {
	DocID      string
	Percentile int
	Raw        string
}

func (e *ValidationError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("percentile invalid %s for %s", e.Raw, e.DocID)
	}
	return fmt.Sprintf("percentile invalid %d for %s", e.Percentile, e.DocID)
}

func (e *ValidationError) Unwrap() error {
	return errors.ErrInvalidValue
}

// Validate returns p unchanged if it is a valid percentile.
func Validate(docID string, p int) (int, error) {
	if p < 0 || p >= MaxPercentile {
		return 0, &ValidationError{DocID: docID, Percentile: p}
	}
	return p, nil
}

func notFound(backend, docID string) error {
	return errors.Newf(ErrNotFound, "%s in %s", docID, backend)
}
