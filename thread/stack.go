// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import "unsafe"

// StackAlign is the alignment required of a thread's stack region. Both the
// address of its first byte and its length must be multiples of StackAlign.
const StackAlign = 4096

// AllocateStack returns a StackAlign-aligned region of size bytes suitable
// for Manager.CreateThread. size must be a positive multiple of StackAlign.
func AllocateStack(size int) ([]byte, error) {
	if size <= 0 || size%StackAlign != 0 {
		return nil, newError("AllocateStack", ErrInvalidArgument,
			"size %d is not a positive multiple of %d", size, StackAlign)
	}
	buf := make([]byte, size+StackAlign-1)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&buf[0])) % StackAlign); rem != 0 {
		off = StackAlign - rem
	}
	return buf[off : off+size : off+size], nil
}

// validateStack checks the region handed to CreateThread. Goroutine stacks
// are grown by the Go runtime, so the region is not executed on; it is
// retained for the thread's lifetime so callers that carve stacks out of a
// pool keep the same contract on every platform.
func validateStack(op string, stack []byte) error {
	if len(stack) == 0 {
		return newError(op, ErrInvalidArgument, "stack region is nil or empty")
	}
	if len(stack)%StackAlign != 0 {
		return newError(op, ErrInvalidArgument, "stack size %d is not a multiple of %d", len(stack), StackAlign)
	}
	if addr := uintptr(unsafe.Pointer(&stack[0])); addr%StackAlign != 0 {
		return newError(op, ErrInvalidArgument, "stack address %#x is not %d-byte aligned", addr, StackAlign)
	}
	return nil
}
