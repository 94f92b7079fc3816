package infra

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker guarding the costing sidecar. Cost figures always have a
// fallback (the box's stored unit cost, or the cached rollup), so when the
// sidecar goes down the useful behavior is to fail fast and serve
// fallbacks instead of stacking up doomed HTTP calls. One instance is
// shared by the request path, the cost-refresh workers and the DLQ
// re-drive cron, so all three observe the same sidecar health.
//
// Closed passes calls through, Open fast-fails them, Half-Open lets probes
// through to test recovery.

// CBState is the breaker's current position.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

// String names the state for the health endpoint and logs.
func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds the trip and recovery thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures that trip the breaker
	SuccessThreshold int           // consecutive half-open successes that close it
	OpenTimeout      time.Duration // how long to fast-fail before probing
}

// DefaultCBConfig tunes the breaker for the costing sidecar: it sits on
// the same network segment, so three straight failures mean it is down,
// and the 30s open window matches the DLQ re-drive tick.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// CircuitBreaker tracks sidecar health with thread-safe state transitions.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       CBState
	failures    int
	successes   int
	lastFailure time.Time
	cfg         CircuitBreakerConfig
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{state: CBClosed, cfg: cfg}
}

// State returns the current state, promoting Open to Half-Open once the
// open window has elapsed. Safe for concurrent use.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CBOpen && time.Since(cb.lastFailure) >= cb.cfg.OpenTimeout {
		cb.state = CBHalfOpen
		cb.successes = 0
	}
	return cb.state
}

// Execute runs fn through the breaker, returning ErrCircuitOpen without
// calling fn while the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// onFailure must be called under cb.mu.
func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailure = time.Now()

	switch cb.state {
	case CBClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = CBOpen
			cb.successes = 0
		}
	case CBHalfOpen:
		// Failed probe: back to fast-failing for another window.
		cb.state = CBOpen
		cb.failures = 0
	}
}

// onSuccess must be called under cb.mu.
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case CBClosed:
		cb.failures = 0
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = CBClosed
			cb.failures = 0
			cb.successes = 0
		}
	}
}
