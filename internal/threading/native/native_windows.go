// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package native

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/kolkov/threadkit/internal/threading/priority"
)

// Windows exposes seven relative thread priorities, from
// THREAD_PRIORITY_IDLE to THREAD_PRIORITY_TIME_CRITICAL. The portable scale
// has 32 levels, so several portable levels share a Windows priority.
var win32Scale = priority.NewScale("win32", -15, -2, -1, 0, 1, 2, 15)

// Thread access rights for OpenThread.
const (
	threadSetInformation        = 0x0020
	threadSetLimitedInformation = 0x0400
)

var (
	kernel32                      = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadPriority         = kernel32.NewProc("SetThreadPriority")
	procSetThreadDescription      = kernel32.NewProc("SetThreadDescription")
	procGetCurrentProcessorNumber = kernel32.NewProc("GetCurrentProcessorNumber")
)

type windowsPlatform struct{}

func newPlatform() Platform { return windowsPlatform{} }

func (windowsPlatform) Name() string { return "windows" }

func (windowsPlatform) ThreadID() uint64 {
	return uint64(windows.GetCurrentThreadId())
}

func (windowsPlatform) Scale() priority.Scale { return win32Scale }

func (windowsPlatform) SetPriority(tid uint64, native int) error {
	h, err := windows.OpenThread(threadSetInformation, false, uint32(tid))
	if err != nil {
		return fmt.Errorf("open thread %d: %w", tid, err)
	}
	defer windows.CloseHandle(h)

	if r, _, e := procSetThreadPriority.Call(uintptr(h), uintptr(native)); r == 0 {
		return fmt.Errorf("SetThreadPriority thread %d priority %d: %w", tid, native, e)
	}
	return nil
}

// SetName needs Windows 10 1607 or later.
func (windowsPlatform) SetName(tid uint64, name string) error {
	if procSetThreadDescription.Find() != nil {
		return ErrUnsupported
	}
	desc, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	h, err := windows.OpenThread(threadSetLimitedInformation, false, uint32(tid))
	if err != nil {
		return fmt.Errorf("open thread %d: %w", tid, err)
	}
	defer windows.CloseHandle(h)

	// Returns an HRESULT; negative values are failures.
	if r, _, _ := procSetThreadDescription.Call(uintptr(h), uintptr(unsafe.Pointer(desc))); int32(r) < 0 {
		return fmt.Errorf("SetThreadDescription thread %d: hresult %#x", tid, uint32(r))
	}
	return nil
}

func (windowsPlatform) ProcessorNumber() int {
	r, _, _ := procGetCurrentProcessorNumber.Call()
	return int(r)
}
