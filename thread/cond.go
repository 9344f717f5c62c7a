// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolkov/threadkit/internal/threading/goid"
)

// WaitStatus is the outcome of ConditionVariable.TimedWait.
type WaitStatus int

const (
	// Signaled means the waiter was woken by Signal or Broadcast.
	Signaled WaitStatus = iota
	// TimedOut means the timeout elapsed first.
	TimedOut
)

func (s WaitStatus) String() string {
	switch s {
	case Signaled:
		return "signaled"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// forever marks an unbounded wait.
const forever int64 = -1

// ConditionVariable lets goroutines wait for a predicate guarded by a Mutex.
// It is created by Manager.InitializeConditionVariable and has no fixed
// association with any Mutex; each wait names the Mutex to release while
// suspended and to reacquire before returning.
//
// Callers must recheck their predicate in a loop:
//
//	mu.Lock()
//	for !ready {
//		cv.Wait(mu)
//	}
//	mu.Unlock()
//
// Signal and Broadcast impose no ordering among waiters.
type ConditionVariable struct {
	mgr *Manager

	mu      sync.Mutex
	waiters []chan struct{} // closed to wake; guarded by mu

	finalized atomic.Bool
}

// Signal wakes at most one waiter.
func (c *ConditionVariable) Signal() {
	c.check("ConditionVariable.Signal")
	c.mu.Lock()
	if len(c.waiters) > 0 {
		close(c.waiters[0])
		c.waiters[0] = nil
		c.waiters = c.waiters[1:]
	}
	c.mu.Unlock()
}

// Broadcast wakes every current waiter.
func (c *ConditionVariable) Broadcast() {
	c.check("ConditionVariable.Broadcast")
	c.mu.Lock()
	for _, w := range c.waiters {
		close(w)
	}
	c.waiters = nil
	c.mu.Unlock()
}

// Wait releases m, suspends until woken, and reacquires m before returning.
// The caller must hold m. A recursive m is released fully and restored to
// the caller's depth.
func (c *ConditionVariable) Wait(m *Mutex) {
	c.wait("ConditionVariable.Wait", m, forever)
}

// TimedWait is Wait bounded by timeout nanoseconds. It reports whether the
// waiter was signaled or timed out; m is held on return either way. A zero
// timeout returns TimedOut at once without releasing m.
func (c *ConditionVariable) TimedWait(m *Mutex, timeout int64) (WaitStatus, error) {
	const op = "ConditionVariable.TimedWait"
	if timeout < 0 {
		return TimedOut, newError(op, ErrInvalidArgument, "negative timeout %dns", timeout)
	}
	return c.wait(op, m, timeout), nil
}

func (c *ConditionVariable) wait(op string, m *Mutex, timeout int64) WaitStatus {
	c.check(op)
	m.check(op)
	g := goid.Current()
	start := time.Now()

	if m.owner.Load() != g {
		panic(newError(op, ErrInvalidState, "wait without holding the mutex"))
	}
	if timeout == 0 {
		c.mgr.metrics.WaitCompleted(TimedOut, 0)
		return TimedOut
	}

	// Enqueue before releasing m so a signal sent right after the release
	// cannot be missed.
	w := make(chan struct{})
	c.mu.Lock()
	if c.finalized.Load() {
		c.mu.Unlock()
		panic(newError(op, ErrInvalidUse, "condition variable used after FinalizeConditionVariable"))
	}
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()

	depth := m.releaseAll(op, g)

	status := Signaled
	if timeout == forever {
		<-w
	} else {
		timer := time.NewTimer(time.Duration(timeout))
		select {
		case <-w:
			timer.Stop()
		case <-timer.C:
			// A signal that raced the timer already dequeued w; honor it.
			if c.dequeue(w) {
				status = TimedOut
			}
		}
	}

	m.reacquire(g, depth)
	c.mgr.metrics.WaitCompleted(status, time.Since(start))
	return status
}

// dequeue removes w from the waiter list, reporting whether it was there.
func (c *ConditionVariable) dequeue(w chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.waiters {
		if x == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// finalize marks c finalized unless goroutines are waiting on it. The check
// and the mark happen under one hold of c.mu, so no waiter can slip in
// between them.
func (c *ConditionVariable) finalize(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized.Load() {
		return newError(op, ErrInvalidUse, "condition variable already finalized")
	}
	if n := len(c.waiters); n > 0 {
		return newError(op, ErrInvalidState, "%d goroutines waiting", n)
	}
	c.finalized.Store(true)
	return nil
}

func (c *ConditionVariable) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *ConditionVariable) check(op string) {
	if c == nil || c.mgr == nil {
		panic(newError(op, ErrInvalidUse, "condition variable not created by Manager.InitializeConditionVariable"))
	}
	if c.finalized.Load() {
		panic(newError(op, ErrInvalidUse, "condition variable used after FinalizeConditionVariable"))
	}
}
