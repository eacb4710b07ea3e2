package appconfig

import (
	"fmt"
	"regexp"
)

// channelIDPattern mirrors the platform client's channel ID validation so
// a malformed channel list is rejected at startup rather than surfacing as
// a confusing API error later.
var channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

// ConfigError signals malformed configuration; callers treat it as fatal
// at startup.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("appconfig: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
