// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread_test

import (
	"fmt"

	"github.com/kolkov/threadkit/thread"
)

// Example shows a producer thread handing a value to the main goroutine
// through a mutex and condition variable.
func Example() {
	mgr, err := thread.NewManager(thread.WithLogger(thread.NoOpLogger{}))
	if err != nil {
		panic(err)
	}
	defer mgr.Close()

	mu, _ := mgr.InitializeMutex(false, 0)
	cv, _ := mgr.InitializeConditionVariable()
	defer mgr.FinalizeMutex(mu)
	defer mgr.FinalizeConditionVariable(cv)

	var value string
	stack, _ := thread.AllocateStack(16 * thread.StackAlign)
	producer, _ := mgr.CreateThread(func(arg any) {
		mu.Lock()
		value = arg.(string)
		cv.Signal()
		mu.Unlock()
	}, "hello", stack, thread.DefaultPriority)
	defer mgr.DestroyThread(producer)

	mu.Lock()
	if err := producer.Start(); err != nil {
		panic(err)
	}
	for value == "" {
		cv.Wait(mu)
	}
	fmt.Println(value)
	mu.Unlock()

	_ = producer.Join()
	// Output: hello
}
