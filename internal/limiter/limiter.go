// Package limiter bounds the number of concurrently running operations.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const DefaultCapacity = 10

// Limiter is a counting admission gate with a fixed capacity.
type Limiter struct {
	capacity int
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	peak     atomic.Int64
	acquired atomic.Int64
}

func New(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Limiter{
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.acquired.Add(1)
	cur := l.inFlight.Add(1)
	for {
		peak := l.peak.Load()
		if cur <= peak || l.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	return nil
}

// Release frees one slot. It must be called once for every successful Acquire.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Do runs fn holding a slot, the slot is released on every exit path of fn,
// including a panic. fn is not called when the slot can't be acquired.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context)) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	fn(ctx)
	return nil
}

func (l *Limiter) Capacity() int {
	return l.capacity
}

// InFlight is the number of currently held slots.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Peak is the highest number of slots held at the same time.
func (l *Limiter) Peak() int {
	return int(l.peak.Load())
}

// Acquired is the total number of successful acquisitions.
func (l *Limiter) Acquired() int {
	return int(l.acquired.Load())
}
