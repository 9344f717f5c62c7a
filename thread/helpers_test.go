// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kolkov/threadkit/internal/threading/native"
)

// recordingPlatform uses the real thread identity but records priority and
// name changes instead of sending them to the OS, so tests need no
// privileges.
type recordingPlatform struct {
	native.Platform

	mu         sync.Mutex
	priorities map[uint64][]int
	names      map[uint64]string
}

func newRecordingPlatform() *recordingPlatform {
	return &recordingPlatform{
		Platform:   native.New(),
		priorities: make(map[uint64][]int),
		names:      make(map[uint64]string),
	}
}

func (p *recordingPlatform) SetPriority(tid uint64, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priorities[tid] = append(p.priorities[tid], n)
	return nil
}

func (p *recordingPlatform) SetName(tid uint64, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names[tid] = name
	return nil
}

func (p *recordingPlatform) lastPriority(tid uint64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ps := p.priorities[tid]
	if len(ps) == 0 {
		return 0, false
	}
	return ps[len(ps)-1], true
}

func (p *recordingPlatform) priorityCalls(tid uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.priorities[tid])
}

func (p *recordingPlatform) name(tid uint64) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.names[tid]
}

// newTestManager opens a Manager on a recordingPlatform and closes it when
// the test ends. Tests in this package must not run in parallel: only one
// Manager may be open at a time.
func newTestManager(t *testing.T, opts ...Option) (*Manager, *recordingPlatform) {
	t.Helper()
	p := newRecordingPlatform()
	opts = append([]Option{WithLogger(NoOpLogger{}), withPlatform(p)}, opts...)
	m, err := NewManager(opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() {
		if !m.closed.Load() {
			_ = m.Close()
		}
	})
	return m, p
}

func testStack(t *testing.T) []byte {
	t.Helper()
	s, err := AllocateStack(4 * StackAlign)
	if err != nil {
		t.Fatalf("AllocateStack: %v", err)
	}
	return s
}

// startThread creates and starts a thread running entry.
func startThread(t *testing.T, m *Manager, p Priority, entry Entry, arg any) *Thread {
	t.Helper()
	th, err := m.CreateThread(entry, arg, testStack(t), p)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if err := th.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return th
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func wantClass(t *testing.T, err, class error) {
	t.Helper()
	if !errors.Is(err, class) {
		t.Errorf("error = %v, want class %v", err, class)
	}
	var e *Error
	if err != nil && !errors.As(err, &e) {
		t.Errorf("error %T is not *Error", err)
	}
}

// wantPanic runs f and checks it panics with an *Error of the given class.
func wantPanic(t *testing.T, class error, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Errorf("no panic, want class %v", class)
			return
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, class) {
			t.Errorf("panic %v, want class %v", r, class)
		}
	}()
	f()
}
