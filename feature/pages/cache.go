package pages

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const activityKey = "activity"

// activitySnapshot is one computed activity table.
type activitySnapshot struct {
	Activity []Activity
	Built    time.Time
}

// activityCache serves activity from memory for ttl and collapses concurrent rebuilds.
type activityCache struct {
	mu    sync.RWMutex
	entry *activitySnapshot
	ttl   time.Duration
	now   func() time.Time
	sf    singleflight.Group
}

func newActivityCache(ttl time.Duration, now func() time.Time) *activityCache {
	return &activityCache{ttl: ttl, now: now}
}

func (c *activityCache) fresh(entry *activitySnapshot) bool {
	if entry == nil || c.ttl <= 0 {
		return false
	}
	return c.now().Sub(entry.Built) <= c.ttl
}

// get returns the cached snapshot or builds a new one.
func (c *activityCache) get(ctx context.Context, build func(ctx context.Context) ([]Activity, error)) (*activitySnapshot, error) {
	c.mu.RLock()
	entry := c.entry
	c.mu.RUnlock()
	if c.fresh(entry) {
		return entry, nil
	}

	result, err, _ := c.sf.Do(activityKey, func() (any, error) {
		c.mu.RLock()
		entry := c.entry
		c.mu.RUnlock()
		if c.fresh(entry) {
			return entry, nil
		}

		activity, err := build(ctx)
		if err != nil {
			return nil, err
		}

		snapshot := &activitySnapshot{Activity: activity, Built: c.now()}
		c.mu.Lock()
		c.entry = snapshot
		c.mu.Unlock()
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*activitySnapshot), nil
}

// invalidate drops the cached snapshot.
func (c *activityCache) invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}
