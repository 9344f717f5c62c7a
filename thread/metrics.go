// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import "time"

// Metrics receives primitive lifecycle events. Methods are called on the
// hot path of the operation they describe and must not block.
type Metrics interface {
	// PrimitiveCreated and PrimitiveDestroyed bracket the life of each
	// thread, mutex and condition variable.
	PrimitiveCreated(kind Kind)
	PrimitiveDestroyed(kind Kind)

	// ThreadFinished records how long a thread's entry function ran and
	// whether it panicked.
	ThreadFinished(runtime time.Duration, panicked bool)

	// WaitCompleted records the outcome of a condition variable wait.
	WaitCompleted(status WaitStatus, waited time.Duration)
}

// Kind names a primitive type.
type Kind string

const (
	KindThread            Kind = "thread"
	KindMutex             Kind = "mutex"
	KindConditionVariable Kind = "condition_variable"
)

type noopMetrics struct{}

func (noopMetrics) PrimitiveCreated(Kind)                   {}
func (noopMetrics) PrimitiveDestroyed(Kind)                 {}
func (noopMetrics) ThreadFinished(time.Duration, bool)      {}
func (noopMetrics) WaitCompleted(WaitStatus, time.Duration) {}
