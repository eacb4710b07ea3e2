package transport

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before trying
	// half-open probes.
	RecoveryTimeout time.Duration
	// HalfOpenMaxRequests caps how many probe requests are allowed while
	// half-open.
	HalfOpenMaxRequests int
	// IsTransientError classifies whether an error should count as a
	// circuit-breaker failure at all.
	IsTransientError func(error) bool
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:    5,
		RecoveryTimeout:     60 * time.Second,
		HalfOpenMaxRequests: 1,
		IsTransientError:    IsTransientHTTPError,
	}
}

type domainCircuit struct {
	state            CircuitState
	consecutiveFails int
	lastFailure      time.Time
	halfOpenInFlight int
}

// CircuitBreaker implements the classic closed/open/half-open pattern on a
// per-domain basis, guarding calls against the platform API.
type CircuitBreaker struct {
	mu      sync.Mutex
	circuit map[string]*domainCircuit
	config  CircuitBreakerConfig
}

// NewCircuitBreaker creates a circuit breaker with the given configuration.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg = DefaultCircuitBreakerConfig()
	}
	if cfg.IsTransientError == nil {
		cfg.IsTransientError = IsTransientHTTPError
	}
	return &CircuitBreaker{
		circuit: make(map[string]*domainCircuit),
		config:  cfg,
	}
}

func (cb *CircuitBreaker) get(domain string) *domainCircuit {
	dc, ok := cb.circuit[domain]
	if !ok {
		dc = &domainCircuit{state: CircuitClosed}
		cb.circuit[domain] = dc
	}
	return dc
}

// Allow reports whether a call to the given domain may proceed, returning
// ErrCircuitOpen if the circuit is tripped.
func (cb *CircuitBreaker) Allow(domain string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	dc := cb.get(domain)

	switch dc.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(dc.lastFailure) >= cb.config.RecoveryTimeout {
			dc.state = CircuitHalfOpen
			dc.halfOpenInFlight = 1
			return nil
		}
		return fmt.Errorf("%w: domain %s, retry after %s", ErrCircuitOpen, domain, cb.config.RecoveryTimeout-time.Since(dc.lastFailure))
	case CircuitHalfOpen:
		if dc.halfOpenInFlight >= cb.config.HalfOpenMaxRequests {
			return fmt.Errorf("%w: domain %s probing", ErrCircuitOpen, domain)
		}
		dc.halfOpenInFlight++
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the circuit and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess(domain string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	dc := cb.get(domain)
	dc.state = CircuitClosed
	dc.consecutiveFails = 0
	dc.halfOpenInFlight = 0
}

// RecordFailure counts a failure toward tripping the circuit. Errors the
// configured IsTransientError classifier rejects are ignored.
func (cb *CircuitBreaker) RecordFailure(domain string, err error) {
	if err != nil && cb.config.IsTransientError != nil && !cb.config.IsTransientError(err) {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	dc := cb.get(domain)
	dc.consecutiveFails++
	dc.lastFailure = time.Now()

	if dc.state == CircuitHalfOpen {
		dc.state = CircuitOpen
		return
	}

	if dc.consecutiveFails >= cb.config.FailureThreshold {
		dc.state = CircuitOpen
	}
}

// GetState returns the current circuit state for a domain.
func (cb *CircuitBreaker) GetState(domain string) CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.get(domain).state
}

// Reset clears the circuit state for a single domain.
func (cb *CircuitBreaker) Reset(domain string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	delete(cb.circuit, domain)
}

// ResetAll clears circuit state for every domain.
func (cb *CircuitBreaker) ResetAll() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.circuit = make(map[string]*domainCircuit)
}

// IsTransientHTTPError classifies rate-limit and 5xx errors as transient
// (circuit-breaker-worthy) failures; 4xx client errors other than rate
// limiting are not.
func IsTransientHTTPError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(*RateLimitError); ok {
		return true
	}
	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr.StatusCode >= 500
	}
	return true
}
