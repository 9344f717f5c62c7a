// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolkov/threadkit/internal/threading/priority"
)

// Priority is a portable thread priority in [LowestPriority, HighestPriority].
// Higher values are more favored by the scheduler.
type Priority = priority.Level

// Portable priority range.
const (
	LowestPriority  = priority.Lowest
	HighestPriority = priority.Highest
	DefaultPriority = priority.Default
)

// Entry is a thread's entry function.
type Entry func(arg any)

// State is a thread's lifecycle state.
type State int32

const (
	// NotStarted is a created thread whose Start has not been called.
	NotStarted State = iota
	// Running is a started thread whose entry function has not returned.
	Running
	// Finished is a thread whose entry function has returned or panicked.
	Finished
	// Destroyed is reported for handles passed to Manager.DestroyThread.
	Destroyed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Thread is one OS-scheduled unit of execution, created by
// Manager.CreateThread and started with Start.
//
// The entry function runs on a goroutine locked to a dedicated OS thread for
// its whole life; when it returns, that OS thread exits with it. The native
// identity is therefore only known once the thread starts, and Start does
// not return until it is.
//
// Name and priority setters take an internal lock, but the pair
// SetName/SetNamePointer still follows last-writer-wins; callers changing a
// thread's name or priority from several goroutines should serialize those
// calls themselves.
type Thread struct {
	mgr      *Manager
	entry    Entry
	arg      any
	stack    []byte
	original Priority

	mu       sync.Mutex
	current  Priority
	borrowed *string // name set by SetName; read through on every access
	owned    string  // name copied by SetNamePointer

	state     atomic.Int32
	id        atomic.Uint64
	joining   atomic.Bool
	destroyed atomic.Bool
	done      chan struct{}
	panicErr  *PanicError // written before done is closed
}

// ID returns the native thread identity, or 0 before Start.
func (t *Thread) ID() uint64 { return t.id.Load() }

// State returns the current lifecycle state.
func (t *Thread) State() State {
	if t.destroyed.Load() {
		return Destroyed
	}
	return State(t.state.Load())
}

// Stack returns the stack region given at creation.
func (t *Thread) Stack() []byte { return t.stack }

// Start begins executing the entry function on a new OS thread. It returns
// once the thread's native identity is registered, so Manager.CurrentThread
// works from the first instruction of the entry function. Starting a thread
// twice fails with ErrInvalidState.
func (t *Thread) Start() error {
	const op = "Thread.Start"
	if err := t.usable(op); err != nil {
		return err
	}
	if !t.state.CompareAndSwap(int32(NotStarted), int32(Running)) {
		return newError(op, ErrInvalidState, "thread already started")
	}
	ready := make(chan struct{})
	go t.run(ready)
	<-ready
	return nil
}

func (t *Thread) run(ready chan<- struct{}) {
	// Never unlocked: when run returns the runtime terminates this OS thread
	// instead of handing it to another goroutine, so no other goroutine can
	// ever observe this thread's identity.
	runtime.LockOSThread()

	m := t.mgr
	id := m.platform.ThreadID()
	t.id.Store(id)
	m.registry.insert(id, t)

	t.mu.Lock()
	m.applyPriority(id, t.current)
	m.applyName(id, t.nameLocked())
	t.mu.Unlock()

	m.logger.Debug("thread started", F("tid", id), F("priority", t.original))
	close(ready)

	start := time.Now()
	defer func() {
		r := recover()
		// Native priority and name changes are made under t.mu while the
		// thread is Running; once Finished is stored here no tid call can
		// reach this OS thread, or whatever later reuses its id.
		t.mu.Lock()
		t.state.Store(int32(Finished))
		t.mu.Unlock()

		if r != nil {
			t.panicErr = &PanicError{Value: r, Stack: debug.Stack()}
			m.logger.Error("thread entry panicked", F("tid", id), F("panic", r))
		}
		m.registry.remove(id, t)
		elapsed := time.Since(start)
		m.metrics.ThreadFinished(elapsed, r != nil)
		m.logger.Debug("thread finished", F("tid", id), F("elapsed", elapsed))
		close(t.done)
	}()

	t.entry(t.arg)
}

// Join blocks until the thread finishes. At most one goroutine may join a
// thread at a time; a second concurrent joiner, a thread joining itself, and
// joining a thread that was never started fail with ErrInvalidState. If the
// entry function panicked Join returns a *PanicError.
func (t *Thread) Join() error {
	const op = "Thread.Join"
	if err := t.usable(op); err != nil {
		return err
	}
	switch State(t.state.Load()) {
	case NotStarted:
		return newError(op, ErrInvalidState, "thread not started")
	case Running:
		if t.mgr.platform.ThreadID() == t.id.Load() {
			return newError(op, ErrInvalidState, "thread cannot join itself")
		}
	}
	if !t.joining.CompareAndSwap(false, true) {
		return newError(op, ErrInvalidState, "thread already has a joiner")
	}
	defer t.joining.Store(false)

	<-t.done
	if t.panicErr != nil {
		return t.panicErr
	}
	return nil
}

// ChangePriority sets the thread's priority and returns the one in effect
// before the call. A running thread's native priority is updated at once;
// if the host refuses (raising priority usually needs privileges) the
// refusal is logged and the portable value is still recorded.
func (t *Thread) ChangePriority(p Priority) (Priority, error) {
	const op = "Thread.ChangePriority"
	if err := t.usable(op); err != nil {
		return 0, err
	}
	if !p.Valid() {
		return 0, newError(op, ErrInvalidArgument, "priority %d not in [%d, %d]", p, LowestPriority, HighestPriority)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.current
	t.current = p
	if id := t.id.Load(); id != 0 && State(t.state.Load()) == Running {
		t.mgr.applyPriority(id, p)
	}
	return prev, nil
}

// OriginalPriority returns the priority given at creation.
func (t *Thread) OriginalPriority() (Priority, error) {
	if err := t.usable("Thread.OriginalPriority"); err != nil {
		return 0, err
	}
	return t.original, nil
}

// CurrentPriority returns the priority set by the last ChangePriority, or
// the original priority if it was never changed.
func (t *Thread) CurrentPriority() (Priority, error) {
	if err := t.usable("Thread.CurrentPriority"); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, nil
}

// SetName names the thread by reference. The string *name is read every
// time the name is needed, so the caller must keep it valid, and any later
// change to it shows through, for as long as it is the thread's name.
func (t *Thread) SetName(name *string) error {
	const op = "Thread.SetName"
	if err := t.usable(op); err != nil {
		return err
	}
	if name == nil {
		return newError(op, ErrInvalidArgument, "nil name")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.borrowed, t.owned = name, ""
	t.applyNameLocked()
	return nil
}

// SetNamePointer names the thread with a private copy of name; the caller
// keeps no responsibility for it. Any previous name is released.
func (t *Thread) SetNamePointer(name string) error {
	if err := t.usable("Thread.SetNamePointer"); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.borrowed, t.owned = nil, strings.Clone(name)
	t.applyNameLocked()
	return nil
}

// NamePointer returns the name set last by SetName or SetNamePointer, or
// "" if none was set.
func (t *Thread) NamePointer() (string, error) {
	if err := t.usable("Thread.NamePointer"); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nameLocked(), nil
}

func (t *Thread) nameLocked() string {
	if t.borrowed != nil {
		return *t.borrowed
	}
	return t.owned
}

func (t *Thread) applyNameLocked() {
	// Before run records the identity it applies the name itself.
	if id := t.id.Load(); id != 0 && State(t.state.Load()) == Running {
		t.mgr.applyName(id, t.nameLocked())
	}
}

func (t *Thread) usable(op string) error {
	if t == nil || t.mgr == nil {
		return newError(op, ErrInvalidUse, "thread not created by Manager.CreateThread")
	}
	if t.destroyed.Load() {
		return newError(op, ErrInvalidUse, "thread used after DestroyThread")
	}
	return nil
}
