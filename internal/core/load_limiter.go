package core

// load_limiter.go bounds how many dataset loads run at once.
//
// Each load parses the whole file into memory before it is published, so
// concurrent uploads multiply peak memory. The limiter admits at most
// MaxConcurrent loads; later callers wait up to maxWait for a slot and
// then fail with ErrTooManyUploads. With the default of one slot, loads
// are applied strictly one after another.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyUploads is returned when no load slot frees up within the wait
// window. Clients should retry after a short delay.
var ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")

// DefaultMaxConcurrentLoads admits one load at a time.
const DefaultMaxConcurrentLoads = 1

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// LoadLimiter is a counting semaphore guarding dataset loads.
type LoadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewLoadLimiter admits at most maxConcurrent simultaneous loads. Callers
// that cannot get a slot within maxWait receive ErrTooManyUploads.
func NewLoadLimiter(maxConcurrent int, maxWait time.Duration) *LoadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentLoads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &LoadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, maxWait elapses or ctx ends. The
// caller must Release a slot it acquired.
func (l *LoadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.inc(1)
		return nil
	case <-timer.C:
		return ErrTooManyUploads
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *LoadLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.inc(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *LoadLimiter) Release() {
	l.inc(-1)
	<-l.slots
}

func (l *LoadLimiter) inc(n int) {
	l.mu.Lock()
	l.active += n
	l.mu.Unlock()
}

// ActiveCount returns the number of loads holding a slot.
func (l *LoadLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no load holds a slot or ctx ends. Used during
// shutdown so an in-flight upload is not cut off halfway.
func (l *LoadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a point-in-time view of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports the limiter state for health checks.
func (l *LoadLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
