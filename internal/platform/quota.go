package platform

import (
	"sync"
	"time"
)

// Unit costs per call: one unit per uploads-list page, per video-list
// batch, and per comments-list page.
const (
	UnitsListUploadsPage  = 1
	UnitsGetVideosBatch   = 1
	UnitsListCommentsPage = 1
)

// QuotaTracker is the advisory daily quota budget: it estimates unit cost
// per call and refuses further calls once the operator-set ceiling is
// reached, raising ErrQuotaExceeded synthetically even before the real API
// would.
type QuotaTracker struct {
	mu         sync.Mutex
	ceiling    int
	used       int
	lastReset  time.Time
}

// NewQuotaTracker creates a tracker with the given daily ceiling.
func NewQuotaTracker(ceiling int) *QuotaTracker {
	return &QuotaTracker{ceiling: ceiling, lastReset: time.Now()}
}

func (q *QuotaTracker) resetIfNewDay() {
	if time.Since(q.lastReset) > 24*time.Hour {
		q.used = 0
		q.lastReset = time.Now()
	}
}

// Reserve accounts for units about to be spent, returning ErrQuotaExceeded
// if doing so would exceed the ceiling. On success the units are counted
// as spent immediately (advisory, optimistic accounting).
func (q *QuotaTracker) Reserve(units int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.resetIfNewDay()

	if q.used+units > q.ceiling {
		return ErrQuotaExceeded
	}
	q.used += units
	return nil
}

// Remaining returns the estimated remaining units for the current day.
func (q *QuotaTracker) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfNewDay()
	return q.ceiling - q.used
}

// Exhausted reports whether the tracker believes no further calls can be made.
func (q *QuotaTracker) Exhausted() bool {
	return q.Remaining() <= 0
}
