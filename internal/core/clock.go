package core

import (
	"sync"
	"time"
)

// monotonicClock assigns message timestamps. Wall clock adjustments must not
// reorder messages, so Now never goes backwards within a process.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Before(c.last) {
		now = c.last
	}
	c.last = now
	return now
}
