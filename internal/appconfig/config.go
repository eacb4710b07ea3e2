// Package appconfig loads and validates the run configuration, channel
// list, and genre keyword file, with a file-then-env-override pipeline.
package appconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"songcatalog/internal/genre"
	"songcatalog/internal/model"
)

// RunConfig is the operator-tunable run configuration.
type RunConfig struct {
	APIKeyEnv           string  `json:"api_key_env"`
	DailyQuotaUnits     int     `json:"daily_quota_units"`
	MaxParallelChannels int     `json:"max_parallel_channels"`
	CommentsPerVideo    int     `json:"comments_per_video"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// DefaultRunConfig returns the baseline run configuration.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		APIKeyEnv:           "CATALOGSYNC_API_KEY",
		DailyQuotaUnits:     10000,
		MaxParallelChannels: 3,
		CommentsPerVideo:    100,
		ConfidenceThreshold: 0.7,
	}
}

// LoadRunConfig reads the run config file, applies environment overrides,
// validates, and returns the result. A missing file is not an error; the
// defaults apply.
func LoadRunConfig(path string) (*RunConfig, error) {
	cfg := DefaultRunConfig()

	if err := loadJSONFile(path, cfg); err != nil {
		return nil, &ConfigError{Op: "load_run_config", Err: err}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Op: "validate_run_config", Err: err}
	}
	return cfg, nil
}

func (c *RunConfig) applyEnvOverrides() {
	if v := os.Getenv("CATALOGSYNC_DAILY_QUOTA_UNITS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DailyQuotaUnits = n
		}
	}
	if v := os.Getenv("CATALOGSYNC_MAX_PARALLEL_CHANNELS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxParallelChannels = n
		}
	}
	if v := os.Getenv("CATALOGSYNC_COMMENTS_PER_VIDEO"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CommentsPerVideo = n
		}
	}
	if v := os.Getenv("CATALOGSYNC_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceThreshold = f
		}
	}
}

// Validate checks that the run configuration is internally consistent.
func (c *RunConfig) Validate() error {
	if c.APIKeyEnv == "" {
		return fmt.Errorf("api_key_env must not be empty")
	}
	if os.Getenv(c.APIKeyEnv) == "" {
		return fmt.Errorf("environment variable %s is not set", c.APIKeyEnv)
	}
	if c.DailyQuotaUnits <= 0 {
		return fmt.Errorf("daily_quota_units must be positive")
	}
	if c.MaxParallelChannels <= 0 {
		return fmt.Errorf("max_parallel_channels must be positive")
	}
	if c.CommentsPerVideo < 0 {
		return fmt.Errorf("comments_per_video must be non-negative")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1]")
	}
	return nil
}

// LoadChannels reads the channel list file: a JSON array of
// {name, channel_id, enabled}.
func LoadChannels(path string) ([]model.Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Op: "load_channels", Err: err}
	}

	var channels []model.Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, &ConfigError{Op: "load_channels", Err: err}
	}

	for _, ch := range channels {
		if !channelIDPattern.MatchString(ch.ID) {
			return nil, &ConfigError{Op: "load_channels", Err: fmt.Errorf("invalid channel_id %q for %q", ch.ID, ch.Name)}
		}
	}
	return channels, nil
}

// LoadGenreConfig reads the genre keyword file into a genre.Config.
func LoadGenreConfig(path string) (genre.Config, error) {
	var cfg genre.Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, &ConfigError{Op: "load_genre_config", Err: err}
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Op: "load_genre_config", Err: err}
	}
	return cfg, nil
}

func loadJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
