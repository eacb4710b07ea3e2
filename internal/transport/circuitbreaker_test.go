package transport

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerInitialState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	if state := cb.GetState("www.googleapis.com"); state != CircuitClosed {
		t.Errorf("initial state = %v, want CircuitClosed", state)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold:    3,
		RecoveryTimeout:     30 * time.Second,
		HalfOpenMaxRequests: 1,
	})
	testErr := errors.New("boom")

	cb.RecordFailure("www.googleapis.com", testErr)
	cb.RecordFailure("www.googleapis.com", testErr)
	if cb.GetState("www.googleapis.com") != CircuitClosed {
		t.Fatal("circuit should still be closed after 2 failures")
	}

	cb.RecordFailure("www.googleapis.com", testErr)
	if cb.GetState("www.googleapis.com") != CircuitOpen {
		t.Fatal("circuit should be open after 3 failures")
	}
}

func TestCircuitBreakerRejectsWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold:    2,
		RecoveryTimeout:     30 * time.Second,
		HalfOpenMaxRequests: 1,
	})
	testErr := errors.New("boom")

	cb.RecordFailure("www.googleapis.com", testErr)
	cb.RecordFailure("www.googleapis.com", testErr)

	if err := cb.Allow("www.googleapis.com"); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerTransitionsToHalfOpenThenCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold:    2,
		RecoveryTimeout:     20 * time.Millisecond,
		HalfOpenMaxRequests: 1,
	})
	testErr := errors.New("boom")

	cb.RecordFailure("www.googleapis.com", testErr)
	cb.RecordFailure("www.googleapis.com", testErr)
	if cb.GetState("www.googleapis.com") != CircuitOpen {
		t.Fatal("want circuit open")
	}

	time.Sleep(30 * time.Millisecond)

	if err := cb.Allow("www.googleapis.com"); err != nil {
		t.Fatalf("Allow() after recovery timeout = %v, want nil (half-open probe)", err)
	}
	if cb.GetState("www.googleapis.com") != CircuitHalfOpen {
		t.Fatal("want circuit half-open after probe allowed")
	}

	cb.RecordSuccess("www.googleapis.com")
	if cb.GetState("www.googleapis.com") != CircuitClosed {
		t.Fatal("want circuit closed after successful probe")
	}
}

func TestCircuitBreakerIgnoresNonTransientErrors(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = 1
	cfg.IsTransientError = func(err error) bool { return false }
	cb := NewCircuitBreaker(cfg)

	cb.RecordFailure("www.googleapis.com", errors.New("permanent"))

	if cb.GetState("www.googleapis.com") != CircuitClosed {
		t.Error("non-transient failure should not trip the circuit")
	}
}

func TestIsTransientHTTPError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &RateLimitError{StatusCode: 429}, true},
		{"server error", &HTTPError{StatusCode: 503}, true},
		{"client error", &HTTPError{StatusCode: 404}, false},
		{"generic", errors.New("x"), true},
	}
	for _, tc := range cases {
		if got := IsTransientHTTPError(tc.err); got != tc.want {
			t.Errorf("%s: IsTransientHTTPError = %v, want %v", tc.name, got, tc.want)
		}
	}
}
