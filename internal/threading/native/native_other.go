// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !windows

package native

import (
	"github.com/kolkov/threadkit/internal/threading/goid"
	"github.com/kolkov/threadkit/internal/threading/priority"
)

// Without a portable per-thread priority API the native scale is the
// portable one and priorities are bookkeeping only.
var portableScale = priority.Range("portable", int(priority.Lowest), int(priority.Highest))

type portablePlatform struct{}

func newPlatform() Platform { return portablePlatform{} }

func (portablePlatform) Name() string { return "portable" }

// ThreadID uses the goroutine ID. A threadkit thread's goroutine is locked
// to its OS thread for its whole life, so the two identify the same thing.
func (portablePlatform) ThreadID() uint64 {
	return uint64(goid.Current())
}

func (portablePlatform) Scale() priority.Scale { return portableScale }

func (portablePlatform) SetPriority(uint64, int) error { return nil }

func (portablePlatform) SetName(uint64, string) error { return nil }

func (portablePlatform) ProcessorNumber() int { return -1 }
