package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/resilience"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// GuardConfig bounds how the pipeline's workers use a shared backend.
type GuardConfig struct {
	Name string
	// Timeout caps a single lookup; zero disables it.
	Timeout time.Duration
	// RateLimit is lookups per second across all workers; zero disables it.
	RateLimit float64
	Burst     int
	Breaker   resilience.CircuitBreakerConfig
}

// Guard wraps a backend for concurrent use by many workers. Concurrent
// lookups of the same document share one backend call. Nothing is
// remembered once a call returns.
type Guard struct {
	next    Lookup
	cfg     GuardConfig
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewGuard(next Lookup, cfg GuardConfig, m *metrics.Metrics) *Guard {
	if cfg.Name == "" {
		cfg.Name = "scoring"
	}
	g := &Guard{
		next:    next,
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("scoring-guard").With("backend", cfg.Name),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	bc := cfg.Breaker
	bc.IsFailure = isServiceFailure
	bc.OnStateChange = func(s resilience.State) { m.SetBreakerState(cfg.Name, int(s)) }
	g.breaker = resilience.NewCircuitBreaker(cfg.Name, bc)
	m.SetBreakerState(cfg.Name, int(resilience.StateClosed))
	return g
}

func (g *Guard) Percentile(ctx context.Context, docID string) (int, error) {
	start := time.Now()
	v, err, shared := g.group.Do(docID, func() (any, error) {
		return g.lookup(ctx, docID)
	})
	if shared {
		g.logger.Debug("lookup shared with concurrent caller", "doc_id", docID)
	}
	g.metrics.ObserveLookup(resultLabel(err), time.Since(start))
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (g *Guard) lookup(ctx context.Context, docID string) (int, error) {
	if err := g.waitSlot(ctx); err != nil {
		return 0, err
	}

	var (
		p         int
		lookupErr error
	)
	err := g.breaker.Execute(func() error {
		p, lookupErr = resilience.CallWithTimeout(ctx, g.cfg.Timeout, g.cfg.Name+" lookup", func(ctx context.Context) (int, error) {
			return g.next.Percentile(ctx, docID)
		})
		return lookupErr
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return 0, &ServiceError{Backend: g.cfg.Name, DocID: docID, Err: err}
		}
		// The per-lookup timeout fired, not the caller's deadline: the
		// backend is slow, which only costs this document.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, &ServiceError{Backend: g.cfg.Name, DocID: docID, Err: fmt.Errorf("no answer within %s", g.cfg.Timeout)}
		}
		return 0, err
	}
	return Validate(docID, p)
}

// waitSlot blocks until the limiter grants a lookup. When the slot would
// only come after ctx's deadline, Wait fails before the deadline passes;
// that is reported as context.DeadlineExceeded so callers stop the scan
// exactly as they would once the deadline fires.
func (g *Guard) waitSlot(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("waiting for lookup slot: %w", ctxErr)
		}
		return fmt.Errorf("waiting for lookup slot: %w: %v", context.DeadlineExceeded, err)
	}
	return nil
}
