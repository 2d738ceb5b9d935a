package services

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// breakerGauge encodes a state for the circuit_breaker_state gauge
func breakerGauge(state string) float64 {
	switch state {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}

type CircuitBreakerConfig struct {
	Name              string
	MaxFailures       int
	ResetTimeout      time.Duration
	HalfOpenSuccesses int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:       5,
		ResetTimeout:      30 * time.Second,
		HalfOpenSuccesses: 3,
	}
}

// CircuitBreaker guards one delivery channel. After MaxFailures consecutive
// failures it rejects calls for ResetTimeout, then admits trial calls until
// HalfOpenSuccesses of them succeed in a row.
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      CircuitBreakerConfig
	state    string
	failures int
	trials   int
	openedAt time.Time
	now      func() time.Time
	logger   *slog.Logger
}

func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *slog.Logger) CircuitBreakerInterface {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultCircuitBreakerConfig().MaxFailures
	}
	if cfg.HalfOpenSuccesses <= 0 {
		cfg.HalfOpenSuccesses = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed, now: time.Now, logger: logger}
}

// Allow reports whether a call may proceed, moving an expired open breaker
// to half-open.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.moveTo(StateHalfOpen)
	}
	return cb.state != StateOpen
}

func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.trials++
		if cb.trials >= cb.cfg.HalfOpenSuccesses {
			cb.moveTo(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			cb.moveTo(StateOpen)
		}
	case StateHalfOpen:
		cb.moveTo(StateOpen)
	}
}

func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveTo(StateClosed)
}

// moveTo requires cb.mu
func (cb *CircuitBreaker) moveTo(next string) {
	if cb.state != next {
		cb.logger.Info("circuit breaker state changed", "service", cb.cfg.Name, "from", cb.state, "to", next)
	}
	cb.state = next
	cb.trials = 0
	switch next {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures = 0
	}
}
