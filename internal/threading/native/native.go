// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package native is the operating-system capability layer under threadkit.
//
// Everything threadkit needs from the host that the Go runtime does not
// already provide goes through Platform: naming the calling OS thread,
// pushing a priority or a name onto a thread, and asking which processor is
// running the caller. Exactly one implementation is compiled per target:
//
//   - native_linux.go:   gettid, setpriority(PRIO_PROCESS, tid), getcpu,
//     /proc/self/task/<tid>/comm
//   - native_windows.go: GetCurrentThreadId, SetThreadPriority,
//     SetThreadDescription, GetCurrentProcessorNumber
//   - native_other.go:   goroutine identity, priorities and names kept
//     by threadkit only
//
// All methods must be called from the goroutine whose OS thread they concern
// unless they take an explicit thread ID.
package native

import (
	"errors"

	"github.com/kolkov/threadkit/internal/threading/priority"
)

// ErrUnsupported is returned when the host cannot perform an operation.
var ErrUnsupported = errors.New("native: operation not supported on this platform")

// Platform is the per-OS capability set.
type Platform interface {
	// Name identifies the implementation ("linux", "windows", "portable").
	Name() string

	// ThreadID returns the identity of the calling OS thread. The value is
	// only stable while the caller is locked to its thread.
	ThreadID() uint64

	// Scale is the native priority scale used by SetPriority.
	Scale() priority.Scale

	// SetPriority applies a native priority to thread tid.
	SetPriority(tid uint64, native int) error

	// SetName applies a debugger-visible name to thread tid.
	SetName(tid uint64, name string) error

	// ProcessorNumber returns the processor running the caller, or -1 if the
	// host cannot tell.
	ProcessorNumber() int
}

// New returns the Platform compiled for this target.
func New() Platform {
	return newPlatform()
}
