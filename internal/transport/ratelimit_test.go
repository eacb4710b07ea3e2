package transport

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterWaitRespectsContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{UnitsPerSecond: 0.1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// First call consumes the burst token immediately.
	if err := rl.Wait(context.Background(), "www.googleapis.com"); err != nil {
		t.Fatalf("first Wait() = %v, want nil", err)
	}

	// Second call has to wait ~10s at 0.1 rps; the short context should expire first.
	if err := rl.Wait(ctx, "www.googleapis.com"); err == nil {
		t.Error("second Wait() = nil, want context deadline error")
	}
}

func TestRateLimiterRecordRateLimitErrorBacksOff(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{UnitsPerSecond: 5, EnableDynamicBackoff: true})

	backoff := rl.RecordRateLimitError("www.googleapis.com", 0)
	if backoff < DefaultInitialBackoff {
		t.Errorf("backoff = %v, want >= %v", backoff, DefaultInitialBackoff)
	}

	backoff2 := rl.RecordRateLimitError("www.googleapis.com", 0)
	if backoff2 <= backoff {
		t.Errorf("second backoff = %v, want greater than first %v", backoff2, backoff)
	}
}

func TestRateLimiterRecordRateLimitErrorHonorsRetryAfter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{UnitsPerSecond: 5, EnableDynamicBackoff: true})

	backoff := rl.RecordRateLimitError("www.googleapis.com", 10*time.Second)
	if backoff != 10*time.Second {
		t.Errorf("backoff = %v, want 10s (server-specified Retry-After)", backoff)
	}
}

func TestRateLimiterIsBackedOff(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{UnitsPerSecond: 5, EnableDynamicBackoff: true})

	if rl.IsBackedOff("www.googleapis.com") {
		t.Error("domain should not be backed off before any error")
	}

	rl.RecordRateLimitError("www.googleapis.com", 1*time.Second)
	if !rl.IsBackedOff("www.googleapis.com") {
		t.Error("domain should be backed off immediately after a rate limit error")
	}
}

func TestRateLimiterCustomRateOverride(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		UnitsPerSecond: 5,
		CustomRates:    map[string]float64{"special.googleapis.com": 50},
	})

	if got := rl.getRPS("special.googleapis.com"); got != 50 {
		t.Errorf("getRPS(custom) = %v, want 50", got)
	}
	if got := rl.getRPS("www.googleapis.com"); got != 5 {
		t.Errorf("getRPS(default) = %v, want 5", got)
	}
}
