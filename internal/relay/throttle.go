package relay

import (
	"sync"
	"time"
)

// failureThrottle lets one failure through per interval and counts the
// ones it held back.
type failureThrottle struct {
	mu         sync.Mutex
	interval   time.Duration
	now        func() time.Time
	last       time.Time
	suppressed int
}

func newFailureThrottle(interval time.Duration, now func() time.Time) *failureThrottle {
	return &failureThrottle{interval: interval, now: now}
}

// allow reports whether this failure should be logged, and how many were
// suppressed since the last one that was.
func (t *failureThrottle) allow() (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		t.suppressed++
		return false, 0
	}

	suppressed := t.suppressed
	t.last = now
	t.suppressed = 0
	return true, suppressed
}
