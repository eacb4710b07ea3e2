// Package transport provides shared HTTP-adjacent plumbing (rate limiting,
// circuit breaking) used to throttle calls to the video-platform API.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter manages per-domain request rate limiting using a token bucket.
// It supports a configured rate per domain and dynamic rate reduction when a
// domain starts returning rate-limit or quota errors.
type RateLimiter struct {
	limiters     map[string]*rate.Limiter
	backoffState map[string]*BackoffState
	mu           sync.RWMutex
	config       RateLimiterConfig
}

// BackoffState tracks rate limit backoff for a domain.
type BackoffState struct {
	CurrentBackoff    time.Duration
	LastError         time.Time
	ConsecutiveErrors int
	OriginalRPS       float64
	ReducedRPS        float64
}

// Default backoff values for platform API rate limiting.
const (
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
	BackoffCooldownPeriod    = 5 * time.Minute
	MinRPSMultiplier         = 0.25
)

// RateLimiterConfig defines rate limiting behavior.
type RateLimiterConfig struct {
	// UnitsPerSecond is the steady-state call rate for the platform API domain.
	UnitsPerSecond float64
	// CustomRates maps domain patterns to units/sec.
	CustomRates map[string]float64
	// EnableDynamicBackoff enables automatic rate reduction on errors.
	EnableDynamicBackoff bool
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		UnitsPerSecond:       2.0,
		CustomRates:          make(map[string]float64),
		EnableDynamicBackoff: true,
	}
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.UnitsPerSecond == 0 {
		cfg.UnitsPerSecond = DefaultRateLimiterConfig().UnitsPerSecond
	}
	if cfg.CustomRates == nil {
		cfg.CustomRates = make(map[string]float64)
	}
	return &RateLimiter{
		limiters:     make(map[string]*rate.Limiter),
		backoffState: make(map[string]*BackoffState),
		config:       cfg,
	}
}

// Wait blocks until the rate limit allows a request for the given domain.
func (rl *RateLimiter) Wait(ctx context.Context, domain string) error {
	if rl == nil {
		return nil
	}

	limiter := rl.getLimiter(domain)
	if limiter == nil {
		return nil
	}

	if !limiter.Allow() {
		reservation := limiter.Reserve()
		if !reservation.OK() {
			return fmt.Errorf("rate limit: cannot reserve token")
		}

		select {
		case <-time.After(reservation.Delay()):
			return nil
		case <-ctx.Done():
			reservation.Cancel()
			return ctx.Err()
		}
	}

	return nil
}

func (rl *RateLimiter) getLimiter(domain string) *rate.Limiter {
	rps := rl.getRPS(domain)
	if rps == 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[domain]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[domain] = limiter
	return limiter
}

func (rl *RateLimiter) getRPS(domain string) float64 {
	if rps, ok := rl.config.CustomRates[domain]; ok {
		return rps
	}
	return rl.config.UnitsPerSecond
}

// RecordRateLimitError records a rate limit / quota error for a domain and
// returns the recommended backoff duration before retrying.
func (rl *RateLimiter) RecordRateLimitError(domain string, retryAfter time.Duration) time.Duration {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		if retryAfter > 0 {
			return retryAfter
		}
		return DefaultInitialBackoff
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, exists := rl.backoffState[domain]
	if !exists {
		state = &BackoffState{
			CurrentBackoff: DefaultInitialBackoff,
			LastError:      time.Now(),
			OriginalRPS:    rl.getRPS(domain),
		}
		rl.backoffState[domain] = state
	}

	state.LastError = time.Now()
	state.ConsecutiveErrors++

	if state.ConsecutiveErrors > 1 {
		state.CurrentBackoff = time.Duration(float64(state.CurrentBackoff) * DefaultBackoffMultiplier)
		if state.CurrentBackoff > DefaultMaxBackoff {
			state.CurrentBackoff = DefaultMaxBackoff
		}
	}

	effectiveBackoff := state.CurrentBackoff
	if retryAfter > effectiveBackoff {
		effectiveBackoff = retryAfter
		state.CurrentBackoff = retryAfter
	}

	rl.reduceRate(domain, state)

	return effectiveBackoff
}

func (rl *RateLimiter) reduceRate(domain string, state *BackoffState) {
	reductionFactor := 1.0
	switch {
	case state.ConsecutiveErrors >= 3:
		reductionFactor = MinRPSMultiplier
	case state.ConsecutiveErrors == 2:
		reductionFactor = 0.5
	case state.ConsecutiveErrors == 1:
		reductionFactor = 0.75
	}

	newRPS := state.OriginalRPS * reductionFactor
	if newRPS < state.OriginalRPS*MinRPSMultiplier {
		newRPS = state.OriginalRPS * MinRPSMultiplier
	}
	state.ReducedRPS = newRPS

	if limiter, ok := rl.limiters[domain]; ok {
		limiter.SetLimit(rate.Limit(newRPS))
	}
}

// RecordSuccess records a successful call, gradually recovering from backoff.
func (rl *RateLimiter) RecordSuccess(domain string) {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, exists := rl.backoffState[domain]
	if !exists {
		return
	}

	if time.Since(state.LastError) > BackoffCooldownPeriod {
		if limiter, ok := rl.limiters[domain]; ok && state.ReducedRPS > 0 {
			limiter.SetLimit(rate.Limit(state.OriginalRPS))
		}
		delete(rl.backoffState, domain)
		return
	}

	if state.ConsecutiveErrors > 0 {
		state.ConsecutiveErrors--
		if state.ReducedRPS > 0 && state.ConsecutiveErrors == 0 {
			newRPS := state.OriginalRPS * 0.5
			if newRPS > state.ReducedRPS {
				state.ReducedRPS = newRPS
				if limiter, ok := rl.limiters[domain]; ok {
					limiter.SetLimit(rate.Limit(newRPS))
				}
			}
		}
	}
}

// IsBackedOff returns true if the domain is currently in a backoff window.
func (rl *RateLimiter) IsBackedOff(domain string) bool {
	if rl == nil {
		return false
	}
	rl.mu.RLock()
	state, ok := rl.backoffState[domain]
	rl.mu.RUnlock()
	if !ok {
		return false
	}
	return time.Since(state.LastError) < state.CurrentBackoff
}

// WaitForBackoff waits out any active backoff window for the domain.
func (rl *RateLimiter) WaitForBackoff(ctx context.Context, domain string) error {
	if rl == nil {
		return nil
	}
	rl.mu.RLock()
	state, ok := rl.backoffState[domain]
	rl.mu.RUnlock()
	if !ok {
		return nil
	}

	remaining := state.CurrentBackoff - time.Since(state.LastError)
	if remaining <= 0 {
		return nil
	}

	select {
	case <-time.After(remaining):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
