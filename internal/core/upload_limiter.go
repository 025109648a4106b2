package core

// upload_limiter.go bounds how many workbooks are parsed at once. A parsed
// workbook is held in memory whole, so previews queue on a semaphore and
// give up with ErrTooManyUploads after maxWait.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyUploads is returned when no parse slot frees up in time.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

const (
	DefaultMaxConcurrentUploads = 4
	DefaultMaxWaitTime          = 15 * time.Second
)

// UploadLimiter is a counting semaphore over workbook parses.
type UploadLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration
	active    atomic.Int32
}

// NewUploadLimiter allows maxConcurrent parses; non-positive arguments fall
// back to the defaults.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &UploadLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. The caller must Release it.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyUploads
	}
}

// Release frees a slot taken by Acquire.
func (l *UploadLimiter) Release() {
	l.active.Add(-1)
	<-l.semaphore
}

// ActiveCount returns the number of parses in flight.
func (l *UploadLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *UploadLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *UploadLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no parse is in flight, for graceful shutdown.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
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
