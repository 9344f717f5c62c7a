// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package native

import (
	"fmt"
	"os"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kolkov/threadkit/internal/threading/priority"
)

// Linux schedules SCHED_OTHER threads by nice value: 19 is least favored,
// -20 most. All 40 values are usable, so the portable scale maps injectively.
var niceScale = priority.Range("nice", 19, -20)

// maxCommLen is TASK_COMM_LEN minus the terminating NUL.
const maxCommLen = 15

type linuxPlatform struct{}

func newPlatform() Platform { return linuxPlatform{} }

func (linuxPlatform) Name() string { return "linux" }

func (linuxPlatform) ThreadID() uint64 {
	return uint64(unix.Gettid())
}

func (linuxPlatform) Scale() priority.Scale { return niceScale }

// SetPriority uses setpriority(2) with a thread ID, which on Linux targets a
// single thread rather than the whole process. Raising priority needs
// CAP_SYS_NICE and fails with EACCES otherwise.
func (linuxPlatform) SetPriority(tid uint64, native int) error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, int(tid), native); err != nil {
		return fmt.Errorf("setpriority tid %d nice %d: %w", tid, native, err)
	}
	return nil
}

// SetName writes the thread's comm entry, which works from any thread of
// the process. Names longer than 15 bytes are truncated by us, not the kernel.
func (linuxPlatform) SetName(tid uint64, name string) error {
	if len(name) > maxCommLen {
		name = name[:maxCommLen]
	}
	path := "/proc/self/task/" + strconv.FormatUint(tid, 10) + "/comm"
	if err := os.WriteFile(path, []byte(name), 0); err != nil {
		return fmt.Errorf("name tid %d: %w", tid, err)
	}
	return nil
}

func (linuxPlatform) ProcessorNumber() int {
	var cpu uint32
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), 0, 0)
	if errno != 0 {
		return -1
	}
	return int(cpu)
}
