// Package resilience provides fault-tolerance primitives for calls to the
// scoring service: a circuit breaker and a context-based timeout wrapper.
// Nothing here retries; a failed call is reported once.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/logger"
)

// ErrCircuitOpen is returned for calls refused without reaching the backend.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's admission mode.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls when the breaker trips and how it recovers.
//
// HalfOpenMaxRequests bounds the trial calls in flight at once after the
// cool-down. IsFailure decides which errors count against the breaker; nil
// means every non-nil error does. OnStateChange runs under the breaker's
// lock and must not call back into it.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	IsFailure           func(error) bool
	OnStateChange       func(State)
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = 1
	}
	return c
}

// CircuitBreaker refuses calls to a backend after FailureThreshold
// consecutive failures. Once ResetTimeout has passed it admits a bounded
// number of trial calls; one success closes it, one failure re-trips it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trials   int
}

// NewCircuitBreaker returns a closed breaker; zero config fields take defaults.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		logger: logger.WithComponent("circuit-breaker").With("name", name),
	}
}

// Execute runs fn unless the breaker refuses it, then records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	trial, err := cb.admit(time.Now())
	if err != nil {
		return err
	}
	err = fn()
	cb.settle(trial, cb.counts(err))
	return err
}

// Current reports the breaker's state, moving an expired open breaker to
// half-open first.
func (cb *CircuitBreaker) Current() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.coolDown(time.Now())
	return cb.state
}

func (cb *CircuitBreaker) counts(err error) bool {
	if err == nil {
		return false
	}
	return cb.cfg.IsFailure == nil || cb.cfg.IsFailure(err)
}

// admit decides whether a call may proceed and whether it is a trial call.
func (cb *CircuitBreaker) admit(now time.Time) (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.coolDown(now)
	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - now.Sub(cb.openedAt)
		return false, fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
	case StateHalfOpen:
		if cb.trials >= cb.cfg.HalfOpenMaxRequests {
			return false, fmt.Errorf("%w: %s (%d trial calls in flight)", ErrCircuitOpen, cb.name, cb.trials)
		}
		cb.trials++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) settle(trial, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if trial && cb.trials > 0 {
		cb.trials--
	}
	if !failed {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.trials = 0
			cb.moveTo(StateClosed)
			cb.logger.Info("backend recovered, circuit closed")
		}
		return
	}
	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.trip()
		cb.logger.Warn("trial call failed, circuit re-opened")
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.trip()
		cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures)
	}
}

func (cb *CircuitBreaker) coolDown(now time.Time) {
	if cb.state == StateOpen && now.Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.trials = 0
		cb.moveTo(StateHalfOpen)
		cb.logger.Info("cool-down elapsed, admitting trial calls", "max_trials", cb.cfg.HalfOpenMaxRequests)
	}
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt = time.Now()
	cb.trials = 0
	cb.moveTo(StateOpen)
}

func (cb *CircuitBreaker) moveTo(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(s)
	}
}
