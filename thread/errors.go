// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned or panicked by this package is an
// *Error whose class matches one of these with errors.Is.
var (
	// ErrInvalidUse reports a handle that did not come from this Manager,
	// a zero-value handle, or a handle used after it was destroyed.
	ErrInvalidUse = errors.New("invalid use")

	// ErrInvalidArgument reports an out-of-range priority, a nil entry
	// function, a bad stack region or a negative duration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState reports an operation that the primitive's current
	// lifecycle state does not allow, such as starting a thread twice.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnsupported reports a capability the host cannot provide.
	ErrUnsupported = errors.New("unsupported operation")
)

// Error describes a failed operation.
//
// Example:
//
//	err := &Error{Op: "Thread.Start", Err: ErrInvalidState, Detail: "thread already started"}
//	fmt.Println(err) // threadkit: Thread.Start: invalid state: thread already started
type Error struct {
	Op     string // Operation that failed, e.g. "Manager.CreateThread"
	Err    error  // Error class (one of the Err* variables)
	Detail string // Human-readable specifics (empty if none)
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("threadkit: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("threadkit: %s: %v: %s", e.Op, e.Err, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, class error, format string, args ...any) *Error {
	return &Error{Op: op, Err: class, Detail: fmt.Sprintf(format, args...)}
}

// PanicError is returned by Thread.Join when the thread's entry function
// panicked. The panic is recovered on the thread so the process survives.
type PanicError struct {
	Value any    // Value passed to panic
	Stack []byte // Stack of the panicking thread
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("threadkit: thread entry panicked: %v", e.Value)
}
