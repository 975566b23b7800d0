package service

import (
	"sync"
	"time"
)

type windowState struct {
	count     int
	resetTime time.Time
}

// FixedWindowLimiter allows at most max actions per window, tracked per
// key. Windows are fixed, not sliding: the first action in a window sets
// the reset instant.
type FixedWindowLimiter struct {
	mu     sync.Mutex
	limits map[string]*windowState
	max    int
	window time.Duration
	now    func() time.Time
}

// NewFixedWindowLimiter builds a limiter. A nil now falls back to time.Now.
func NewFixedWindowLimiter(max int, window time.Duration, now func() time.Time) *FixedWindowLimiter {
	if now == nil {
		now = time.Now
	}
	return &FixedWindowLimiter{
		limits: make(map[string]*windowState),
		max:    max,
		window: window,
		now:    now,
	}
}

// Allow records an action for key and reports whether it is within limit.
func (l *FixedWindowLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.limits[key]
	if !ok || now.After(info.resetTime) {
		l.limits[key] = &windowState{count: 1, resetTime: now.Add(l.window)}
		return true
	}
	if info.count >= l.max {
		return false
	}
	info.count++
	return true
}

// Forget drops tracking state for key, e.g. on disconnect.
func (l *FixedWindowLimiter) Forget(key string) {
	l.mu.Lock()
	delete(l.limits, key)
	l.mu.Unlock()
}

// Reset clears all tracked windows.
func (l *FixedWindowLimiter) Reset() {
	l.mu.Lock()
	l.limits = make(map[string]*windowState)
	l.mu.Unlock()
}
