// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"errors"
	"testing"
	"time"
)

func TestNewManager_OnePerProcess(t *testing.T) {
	m, _ := newTestManager(t)

	if Open() != m {
		t.Error("Open() does not return the open Manager")
	}
	_, err := NewManager(WithLogger(NoOpLogger{}))
	wantClass(t, err, ErrInvalidUse)

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if Open() != nil {
		t.Error("Open() not nil after Close")
	}
	wantClass(t, m.Close(), ErrInvalidUse)

	again, err := NewManager(WithLogger(NoOpLogger{}))
	if err != nil {
		t.Fatalf("NewManager after Close: %v", err)
	}
	_ = again.Close()
}

func TestNewManager_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "chatty"
	_, err := NewManager(WithConfig(cfg), WithLogger(NoOpLogger{}))
	wantClass(t, err, ErrInvalidArgument)
	if Open() != nil {
		t.Error("failed NewManager left a Manager open")
	}
}

func TestClose_ReportsLivePrimitives(t *testing.T) {
	m, _ := newTestManager(t)

	mx, _ := m.InitializeMutex(false, 0)
	cv, _ := m.InitializeConditionVariable()
	th, _ := m.CreateThread(func(any) {}, nil, testStack(t), DefaultPriority)

	wantClass(t, m.Close(), ErrInvalidState)
	if Open() != nil {
		t.Error("Close with leaks kept the process slot")
	}

	// Everything is refused once closed.
	_, err := m.InitializeMutex(false, 0)
	wantClass(t, err, ErrInvalidUse)
	wantClass(t, m.FinalizeMutex(mx), ErrInvalidUse)
	wantClass(t, m.FinalizeConditionVariable(cv), ErrInvalidUse)
	wantClass(t, m.DestroyThread(th), ErrInvalidUse)
	if m.CurrentThread() != nil {
		t.Error("CurrentThread() on a closed Manager not nil")
	}
}

func TestClose_Clean(t *testing.T) {
	m, _ := newTestManager(t)

	mx, _ := m.InitializeMutex(true, 2)
	cv, _ := m.InitializeConditionVariable()
	th := startThread(t, m, DefaultPriority, func(any) {}, nil)
	_ = th.Join()

	for _, err := range []error{
		m.FinalizeMutex(mx),
		m.FinalizeConditionVariable(cv),
		m.DestroyThread(th),
		m.Close(),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestCreateThread_InvalidArguments(t *testing.T) {
	m, _ := newTestManager(t)

	aligned := testStack(t)
	big, _ := AllocateStack(2 * StackAlign)
	entry := func(any) {}

	tests := []struct {
		name  string
		entry Entry
		stack []byte
		prio  Priority
	}{
		{"nil entry", nil, aligned, DefaultPriority},
		{"nil stack", entry, nil, DefaultPriority},
		{"empty stack", entry, aligned[:0], DefaultPriority},
		{"misaligned size", entry, aligned[:StackAlign+8], DefaultPriority},
		{"misaligned address", entry, big[8 : 8+StackAlign], DefaultPriority},
		{"priority too low", entry, aligned, LowestPriority - 1},
		{"priority too high", entry, aligned, HighestPriority + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := m.CreateThread(tt.entry, nil, tt.stack, tt.prio)
			wantClass(t, err, ErrInvalidArgument)
			if th != nil {
				t.Error("CreateThread returned a thread with an error")
			}
		})
	}
	if s := m.Stats(); s.Threads != 0 {
		t.Errorf("rejected threads tracked: %d", s.Threads)
	}
}

// TestCurrentThread tests reverse lookup from inside and outside threads.
func TestCurrentThread(t *testing.T) {
	m, _ := newTestManager(t)

	if got := m.CurrentThread(); got != nil {
		t.Errorf("CurrentThread() from test goroutine = %p, want nil", got)
	}

	const n = 4
	seen := make(chan *Thread, n)
	threads := make([]*Thread, n)
	for i := range threads {
		threads[i] = startThread(t, m, DefaultPriority, func(any) {
			seen <- m.CurrentThread()
		}, nil)
	}
	got := make(map[*Thread]bool)
	for i := 0; i < n; i++ {
		got[<-seen] = true
	}
	for i, th := range threads {
		if !got[th] {
			t.Errorf("thread %d did not find itself", i)
		}
		_ = th.Join()
	}

	// A goroutine spawned by a thread is not that thread.
	inner := make(chan *Thread, 1)
	th := startThread(t, m, DefaultPriority, func(any) {
		done := make(chan struct{})
		go func() {
			inner <- m.CurrentThread()
			close(done)
		}()
		<-done
	}, nil)
	_ = th.Join()
	if got := <-inner; got != nil {
		t.Errorf("CurrentThread() from a plain goroutine = %p, want nil", got)
	}
}

// TestDestroyThread_RejectsFurtherUse tests that a destroyed handle fails
// every operation with ErrInvalidUse.
func TestDestroyThread_RejectsFurtherUse(t *testing.T) {
	m, _ := newTestManager(t)

	th := startThread(t, m, DefaultPriority, func(any) {}, nil)
	_ = th.Join()
	if err := m.DestroyThread(th); err != nil {
		t.Fatal(err)
	}

	name := "x"
	_, errPrio := th.ChangePriority(DefaultPriority)
	_, errOrig := th.OriginalPriority()
	_, errCur := th.CurrentPriority()
	_, errName := th.NamePointer()
	for _, err := range []error{
		th.Start(),
		th.Join(),
		errPrio,
		errOrig,
		errCur,
		th.SetName(&name),
		th.SetNamePointer(name),
		errName,
		m.DestroyThread(th),
	} {
		wantClass(t, err, ErrInvalidUse)
	}
}

// TestDestroyThread_Running tests that destroying a running thread detaches
// it: the entry finishes, but the thread is no longer discoverable.
func TestDestroyThread_Running(t *testing.T) {
	m, _ := newTestManager(t)

	release := make(chan struct{})
	after := make(chan *Thread, 1)
	th := startThread(t, m, DefaultPriority, func(any) {
		<-release
		after <- m.CurrentThread()
	}, nil)

	if err := m.DestroyThread(th); err != nil {
		t.Fatal(err)
	}
	close(release)
	if got := <-after; got != nil {
		t.Errorf("CurrentThread() after destroy = %p, want nil", got)
	}
	waitFor(t, "registry to drain", func() bool { return m.registry.len() == 0 })
}

func TestDestroy_ForeignHandles(t *testing.T) {
	m, _ := newTestManager(t)

	wantClass(t, m.DestroyThread(nil), ErrInvalidUse)
	wantClass(t, m.DestroyThread(&Thread{}), ErrInvalidUse)
	wantClass(t, m.FinalizeMutex(&Mutex{}), ErrInvalidUse)
	wantClass(t, m.FinalizeConditionVariable(&ConditionVariable{}), ErrInvalidUse)

	other := &Manager{}
	wantClass(t, m.FinalizeMutex(&Mutex{mgr: other}), ErrInvalidUse)
}

func TestFinalizeMutex_Held(t *testing.T) {
	m, _ := newTestManager(t)

	mx, _ := m.InitializeMutex(false, 0)
	mx.Lock()
	wantClass(t, m.FinalizeMutex(mx), ErrInvalidState)
	mx.Unlock()
	if err := m.FinalizeMutex(mx); err != nil {
		t.Fatal(err)
	}
}

func TestFinalizeConditionVariable_Waiters(t *testing.T) {
	m, _ := newTestManager(t)
	mx, cv := newMutexAndCond(t, m, false)

	done := make(chan struct{})
	go func() {
		mx.Lock()
		cv.Wait(mx)
		mx.Unlock()
		close(done)
	}()
	waitFor(t, "waiter", func() bool { return cv.waiting() == 1 })

	wantClass(t, m.FinalizeConditionVariable(cv), ErrInvalidState)
	cv.Signal()
	<-done
	if err := m.FinalizeConditionVariable(cv); err != nil {
		t.Fatal(err)
	}
}

func TestSleepThread(t *testing.T) {
	m, _ := newTestManager(t)

	wantClass(t, m.SleepThread(-1), ErrInvalidArgument)

	d := 5 * time.Millisecond
	start := time.Now()
	if err := m.SleepThread(int64(d)); err != nil {
		t.Fatal(err)
	}
	if got := time.Since(start); got < d {
		t.Errorf("SleepThread slept %v, want at least %v", got, d)
	}
	m.YieldThread()
}

func TestCurrentProcessorNumber(t *testing.T) {
	m, _ := newTestManager(t)

	if n := m.CurrentProcessorNumber(); n < -1 {
		t.Errorf("CurrentProcessorNumber() = %d", n)
	}
}

func TestStats(t *testing.T) {
	m, _ := newTestManager(t)

	release := make(chan struct{})
	th := startThread(t, m, DefaultPriority, func(any) { <-release }, nil)
	mx, _ := m.InitializeMutex(false, 0)
	_, _ = m.InitializeConditionVariable()

	s := m.Stats()
	if s.Threads != 1 || s.RegisteredThreads != 1 || s.Mutexes != 1 || s.ConditionVariables != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if s.Platform == "" || s.String() == "" {
		t.Errorf("Stats() missing platform: %+v", s)
	}

	close(release)
	_ = th.Join()
	_ = m.FinalizeMutex(mx)
	if s := m.Stats(); s.RegisteredThreads != 0 || s.Mutexes != 0 {
		t.Errorf("Stats() after teardown = %+v", s)
	}
}

// TestContention runs a most-favored and a least-favored thread through the
// same mutex-guarded counter; no increment may be lost.
func TestContention(t *testing.T) {
	m, _ := newTestManager(t)

	mx, err := m.InitializeMutex(false, 0)
	if err != nil {
		t.Fatal(err)
	}
	const perThread = 2000
	counter := 0
	work := func(any) {
		for i := 0; i < perThread; i++ {
			mx.Lock()
			counter++
			mx.Unlock()
		}
	}

	a, _ := m.CreateThread(work, nil, testStack(t), HighestPriority)
	b, _ := m.CreateThread(work, nil, testStack(t), LowestPriority)
	for _, th := range []*Thread{a, b} {
		if err := th.Start(); err != nil {
			t.Fatal(err)
		}
	}
	for _, th := range []*Thread{a, b} {
		if err := th.Join(); err != nil {
			t.Fatal(err)
		}
	}

	mx.Lock()
	got := counter
	mx.Unlock()
	if got != 2*perThread {
		t.Errorf("counter = %d, want %d", got, 2*perThread)
	}
}

func TestPriorityScale(t *testing.T) {
	m, p := newTestManager(t)

	name, lossy := m.PriorityScale()
	if name != p.Scale().Name() || lossy != p.Scale().Lossy() {
		t.Errorf("PriorityScale() = (%q, %v), want (%q, %v)", name, lossy, p.Scale().Name(), p.Scale().Lossy())
	}
	lo, err := m.NativePriority(LowestPriority)
	if err != nil {
		t.Fatal(err)
	}
	hi, err := m.NativePriority(HighestPriority)
	if err != nil {
		t.Fatal(err)
	}
	if lo == hi {
		t.Errorf("lowest and highest map to the same native level %d", lo)
	}
	if _, err := m.NativePriority(HighestPriority + 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NativePriority(out of range) = %v, want ErrInvalidArgument", err)
	}
}

func TestYieldThread(t *testing.T) {
	m, _ := newTestManager(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.YieldThread()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("YieldThread did not return")
	}
}

// TestFinalizeConditionVariable_RacingWaiter finalizes while a waiter is
// arriving. The waiter must either be woken or be refused; it must never
// be left queued on a finalized condition variable.
func TestFinalizeConditionVariable_RacingWaiter(t *testing.T) {
	m, _ := newTestManager(t)
	mx, err := m.InitializeMutex(false, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 200; i++ {
		cv, err := m.InitializeConditionVariable()
		if err != nil {
			t.Fatal(err)
		}
		done := make(chan any, 1)
		go func() {
			defer func() { done <- recover() }()
			mx.Lock()
			defer mx.Unlock()
			cv.Wait(mx)
		}()

		for {
			err := m.FinalizeConditionVariable(cv)
			if err == nil {
				break
			}
			if !errors.Is(err, ErrInvalidState) {
				t.Fatalf("FinalizeConditionVariable: %v", err)
			}
			cv.Signal()
		}

		select {
		case r := <-done:
			if r == nil {
				continue
			}
			e, ok := r.(*Error)
			if !ok || !errors.Is(e, ErrInvalidUse) {
				t.Fatalf("waiter panicked with %v, want ErrInvalidUse", r)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("iteration %d: waiter stranded on a finalized condition variable", i)
		}
	}

	if err := m.FinalizeMutex(mx); err != nil {
		t.Fatal(err)
	}
}
