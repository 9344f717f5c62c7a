// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/threadkit/internal/threading/goid"
)

// Mutex is a mutual-exclusion lock created by Manager.InitializeMutex.
//
// Ownership belongs to the goroutine that acquired the lock. A recursive
// Mutex may be re-acquired by its owner; each Lock or successful TryLock must
// be matched by an Unlock, and the lock is released to other goroutines when
// the depth returns to zero. Locking a non-recursive Mutex twice from the
// same goroutine deadlocks; this is a caller contract violation and is not
// detected.
//
// Using a Mutex after FinalizeMutex, or one not obtained from a Manager,
// panics with an *Error of class ErrInvalidUse. Unlocking a Mutex the caller
// does not hold panics with ErrInvalidState.
//
// Every acquisition resolves the caller's goroutine ID, which costs about a
// microsecond. Mutex guards coarse sections, not per-element data.
type Mutex struct {
	mgr       *Manager
	recursive bool
	lockLevel int
	enforce   bool

	mu    sync.Mutex   // the native lock
	owner atomic.Int64 // goroutine ID of the holder, 0 when free
	depth int          // acquisitions by owner; touched only by the owner

	finalized atomic.Bool
}

// Recursive reports whether the owner may re-acquire the lock.
func (m *Mutex) Recursive() bool { return m.recursive }

// LockLevel returns the maximum re-entry depth configured at creation.
func (m *Mutex) LockLevel() int { return m.lockLevel }

// Lock acquires the mutex, blocking until it is available.
func (m *Mutex) Lock() {
	const op = "Mutex.Lock"
	m.check(op)
	g := goid.Current()
	if m.recursive && m.owner.Load() == g {
		if m.atCeiling() {
			panic(newError(op, ErrInvalidState, "lock level %d exceeded", m.lockLevel))
		}
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(g)
	m.depth = 1
}

// TryLock acquires the mutex if it is free, or re-enters it if recursive and
// already held by the caller. It never blocks.
func (m *Mutex) TryLock() bool {
	m.check("Mutex.TryLock")
	g := goid.Current()
	if m.recursive && m.owner.Load() == g {
		if m.atCeiling() {
			return false
		}
		m.depth++
		return true
	}
	if !m.mu.TryLock() {
		return false
	}
	m.owner.Store(g)
	m.depth = 1
	return true
}

// Unlock releases one level of ownership. The mutex becomes available to
// other goroutines when the caller's depth reaches zero.
func (m *Mutex) Unlock() {
	const op = "Mutex.Unlock"
	m.check(op)
	if m.owner.Load() != goid.Current() {
		panic(newError(op, ErrInvalidState, "mutex not held by the calling goroutine"))
	}
	m.depth--
	if m.depth > 0 {
		return
	}
	m.owner.Store(0)
	m.mu.Unlock()
}

// IsLockedByCurrentThread reports whether the calling goroutine holds the
// mutex. It fails with ErrUnsupported if the caller's identity cannot be
// resolved, rather than guess.
func (m *Mutex) IsLockedByCurrentThread() (bool, error) {
	const op = "Mutex.IsLockedByCurrentThread"
	m.check(op)
	g := goid.Current()
	if g == 0 {
		return false, newError(op, ErrUnsupported, "goroutine identity unavailable")
	}
	return m.owner.Load() == g, nil
}

func (m *Mutex) atCeiling() bool {
	return m.enforce && m.depth >= m.lockLevel
}

func (m *Mutex) check(op string) {
	if m == nil || m.mgr == nil {
		panic(newError(op, ErrInvalidUse, "mutex not created by Manager.InitializeMutex"))
	}
	if m.finalized.Load() {
		panic(newError(op, ErrInvalidUse, "mutex used after FinalizeMutex"))
	}
}

// releaseAll drops every level held by goroutine g and returns the depth so
// reacquire can restore it. Used by condition variable waits.
func (m *Mutex) releaseAll(op string, g int64) int {
	if m.owner.Load() != g {
		panic(newError(op, ErrInvalidState, "wait without holding the mutex"))
	}
	depth := m.depth
	m.depth = 0
	m.owner.Store(0)
	m.mu.Unlock()
	return depth
}

func (m *Mutex) reacquire(g int64, depth int) {
	m.mu.Lock()
	m.owner.Store(g)
	m.depth = depth
}
