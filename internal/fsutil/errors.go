package fsutil

import "errors"

// ErrLockTimeout is returned when an advisory lock cannot be acquired
// within the requested timeout.
var ErrLockTimeout = errors.New("fsutil: lock timeout")
