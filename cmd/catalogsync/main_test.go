package main

import (
	"fmt"
	"testing"

	"songcatalog/internal/appconfig"
	"songcatalog/internal/platform"
)

func TestExitCodeMapsErrorKindsToDocumentedCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"quota", fmt.Errorf("run: %w", platform.ErrQuotaExceeded), 2},
		{"config", &appconfig.ConfigError{Op: "load_run_config", Err: fmt.Errorf("missing api key")}, 3},
		{"other", fmt.Errorf("save catalog: %w", fmt.Errorf("disk full")), 4},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode() = %d, want %d", tt.name, got, tt.want)
		}
	}
}
