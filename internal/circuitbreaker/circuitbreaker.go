// Package circuitbreaker guards calls to persistence backends.
//
// A breaker starts CLOSED. After FailureThreshold consecutive failures it
// opens and rejects calls with ErrOpen until RecoveryTimeout has passed.
// It then lets probes through in HALF_OPEN and closes again after
// SuccessThreshold successes; any probe failure reopens it.
package circuitbreaker

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/gocommon"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0
	StateOpen     State = 1
	StateHalfOpen State = 2
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Settings are shared by every breaker in a Registry.
type Settings struct {
	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration
}

// CircuitBreaker tracks the health of one backend.
type CircuitBreaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	stateGauge *prometheus.GaugeVec
}

// New creates a closed breaker. stateGauge may be nil.
func New(name string, s Settings, stateGauge *prometheus.GaugeVec) *CircuitBreaker {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 1
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 1
	}
	cb := &CircuitBreaker{
		name:       name,
		settings:   s,
		now:        time.Now,
		state:      StateClosed,
		stateGauge: stateGauge,
	}
	if stateGauge != nil {
		stateGauge.WithLabelValues(name).Set(float64(StateClosed))
	}
	return cb
}

// Name returns the backend name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn unless the breaker is open, and records its outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.AllowRequest() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// AllowRequest checks if a request should be allowed.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.checkRecovery()
	return cb.state != StateOpen
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.settings.SuccessThreshold {
			cb.transitionTo(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateHalfOpen:
		cb.transitionTo(StateOpen)
	case StateClosed:
		if cb.failureCount >= cb.settings.FailureThreshold {
			cb.transitionTo(StateOpen)
		}
	}
}

// checkRecovery moves an expired OPEN breaker to HALF_OPEN. Must be called
// with lock held.
func (cb *CircuitBreaker) checkRecovery() {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailureTime) >= cb.settings.RecoveryTimeout {
		cb.transitionTo(StateHalfOpen)
	}
}

// transitionTo transitions to a new state. Must be called with lock held.
func (cb *CircuitBreaker) transitionTo(newState State) {
	cb.state = newState

	if cb.stateGauge != nil {
		cb.stateGauge.WithLabelValues(cb.name).Set(float64(newState))
	}

	switch newState {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount = 0
	}
}

// ForceClose forces the circuit to close.
func (cb *CircuitBreaker) ForceClose() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(StateClosed)
}

// ForceOpen forces the circuit to open.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFailureTime = cb.now()
	cb.transitionTo(StateOpen)
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.checkRecovery()
	return cb.state
}

// Status reports the breaker for /ready.
func (cb *CircuitBreaker) Status() gocommon.CircuitBreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.checkRecovery()

	var last float64
	if !cb.lastFailureTime.IsZero() {
		last = float64(cb.lastFailureTime.Unix())
	}
	return gocommon.CircuitBreakerStatus{
		Name:            cb.name,
		State:           cb.state.String(),
		FailureCount:    cb.failureCount,
		SuccessCount:    cb.successCount,
		LastFailureTime: last,
	}
}

// Registry holds all circuit breakers.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	settings   Settings
	stateGauge *prometheus.GaugeVec
}

// NewRegistry creates a new circuit breaker registry.
func NewRegistry(s Settings, stateGauge *prometheus.GaugeVec) *Registry {
	return &Registry{
		breakers:   make(map[string]*CircuitBreaker),
		settings:   s,
		stateGauge: stateGauge,
	}
}

// Get returns the breaker for a backend, creating it if necessary.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.RLock()
	cb, exists := r.breakers[name]
	r.mu.RUnlock()
	if exists {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if cb, exists = r.breakers[name]; exists {
		return cb
	}
	cb = New(name, r.settings, r.stateGauge)
	r.breakers[name] = cb
	return cb
}

// Statuses returns every breaker's status ordered by name.
func (r *Registry) Statuses() []gocommon.CircuitBreakerStatus {
	r.mu.RLock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	out := make([]gocommon.CircuitBreakerStatus, 0, len(names))
	for _, name := range names {
		out = append(out, r.Get(name).Status())
	}
	return out
}
