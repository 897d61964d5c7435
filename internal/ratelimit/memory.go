package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a per-process fixed-window limiter. Windows are one
// second wide; a key's state is replaced whenever its window advances.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]windowState
}

type windowState struct {
	sec   int64
	count int
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]windowState)}
}

// Allow counts the request against the key's current one-second window.
// A non-positive limit means unlimited.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if key == "" || limit <= 0 {
		return Result{Allowed: true}, nil
	}
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	state := l.windows[key]
	if state.sec != sec {
		state = windowState{sec: sec}
	}
	if state.count >= limit {
		l.windows[key] = state
		return Result{Allowed: false, Reset: reset}, nil
	}
	state.count++
	l.windows[key] = state
	return Result{Allowed: true, Remaining: limit - state.count, Reset: reset}, nil
}
