package platform

import (
	"context"
	"net/url"
	"testing"

	"songcatalog/internal/transport"
)

func TestNewRejectsEmptyAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{DailyQuotaUnits: 10000})
	if err == nil {
		t.Fatal("New() with empty API key should fail")
	}
}

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"PT3M", 180},
		{"PT2H", 7200},
		{"P0D", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseISO8601Duration(tt.in); got != tt.want {
			t.Errorf("parseISO8601Duration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestChannelIDPattern(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"UCuAXFkgsw1L7xaCfnd5JJOw", true},
		{"UCshort", false},
		{"notachannel", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := channelIDPattern.MatchString(tt.id); got != tt.ok {
			t.Errorf("channelIDPattern.MatchString(%q) = %v, want %v", tt.id, got, tt.ok)
		}
	}
}

func TestClassifyMapsHTTPStatusToTaxonomy(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{&transport.HTTPError{StatusCode: 403}, ErrQuotaExceeded},
		{&transport.HTTPError{StatusCode: 404}, ErrNotFound},
		{&transport.HTTPError{StatusCode: 503}, ErrTransient},
		{&transport.RateLimitError{}, ErrQuotaExceeded},
		// The SDK wraps transport errors (e.g. inside a *url.Error) rather
		// than returning them bare; classify must still recover the
		// taxonomy through the wrapping.
		{&url.Error{Op: "Do", URL: "https://example.invalid", Err: &transport.HTTPError{StatusCode: 403}}, ErrQuotaExceeded},
		{&url.Error{Op: "Do", URL: "https://example.invalid", Err: &transport.RateLimitError{}}, ErrQuotaExceeded},
		{&url.Error{Op: "Do", URL: "https://example.invalid", Err: &transport.HTTPError{StatusCode: 404}}, ErrNotFound},
	}
	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if isRetryable(ErrQuotaExceeded) {
		t.Error("ErrQuotaExceeded must not be retryable")
	}
	if isRetryable(ErrNotFound) {
		t.Error("ErrNotFound must not be retryable")
	}
	if !isRetryable(ErrTransient) {
		t.Error("ErrTransient must be retryable")
	}
}
