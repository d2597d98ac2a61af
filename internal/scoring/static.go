package scoring

import (
	"context"
	"sync"
)

// Static serves percentiles from memory. It backs tests and dry runs and
// counts how often each document was asked for.
type Static struct {
	Percentiles map[string]int
	Errors      map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func NewStatic(percentiles map[string]int) *Static {
	return &Static{
		Percentiles: percentiles,
		Errors:      make(map[string]error),
		calls:       make(map[string]int),
	}
}

func (s *Static) Percentile(ctx context.Context, docID string) (int, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[docID]++
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err, ok := s.Errors[docID]; ok {
		return 0, err
	}
	p, ok := s.Percentiles[docID]
	if !ok {
		return 0, notFound("static", docID)
	}
	return Validate(docID, p)
}

// Calls returns how many lookups were made for docID.
func (s *Static) Calls(docID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[docID]
}

// TotalCalls returns the number of lookups across all documents.
func (s *Static) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}
