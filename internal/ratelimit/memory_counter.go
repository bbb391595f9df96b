package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/member-directory/internal/clock"
)

const sweepInterval = time.Minute

type memoryEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryCounter keeps counters in process. It serves single instance
// deployments and tests.
type MemoryCounter struct {
	mu        sync.Mutex
	clock     clock.Clock
	entries   map[string]*memoryEntry
	nextSweep time.Time
}

// NewMemoryCounter builds an empty counter. A nil clock uses the system clock.
func NewMemoryCounter(clk clock.Clock) *MemoryCounter {
	if clk == nil {
		clk = clock.System()
	}
	return &MemoryCounter{clock: clk, entries: make(map[string]*memoryEntry)}
}

// CheckAndConsume increments under the counter's lock.
func (c *MemoryCounter) CheckAndConsume(_ context.Context, client, endpoint string, quota Quota) (bool, error) {
	if quota.Unlimited() {
		return true, nil
	}
	now := c.clock.Now()
	start := windowStart(now, quota.Window)
	key := windowKey(client, endpoint, quota.Window, start)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep(now)
	entry, ok := c.entries[key]
	if !ok {
		entry = &memoryEntry{expiresAt: start.Add(quota.Window)}
		c.entries[key] = entry
	}
	entry.count++
	return entry.count <= quota.Limit, nil
}

// Reset drops every counter.
func (c *MemoryCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoryEntry)
	c.nextSweep = time.Time{}
}

// Len returns the number of live windows.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCounter) sweep(now time.Time) {
	if now.Before(c.nextSweep) {
		return
	}
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.nextSweep = now.Add(sweepInterval)
}
