// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package thread is a portable layer of threads, mutexes and condition
// variables with one process-wide Manager that owns them.
//
// Every primitive comes from a Manager factory and goes back through the
// matching destroy call:
//
//	CreateThread                -> DestroyThread
//	InitializeMutex             -> FinalizeMutex
//	InitializeConditionVariable -> FinalizeConditionVariable
//
// None of the primitive types has an exported constructor or exported
// fields; a zero value or a handle from another Manager is rejected with
// ErrInvalidUse.
//
// # Threads
//
// A Thread runs its entry function on a goroutine locked to its own OS
// thread, so the host scheduler sees one thread per Thread and native
// priorities and names apply to it alone. The Manager keeps a registry from
// native thread identity to Thread, which is how CurrentThread answers.
//
// Priorities are portable integers in [LowestPriority, HighestPriority],
// higher meaning more favored. They are translated to the host's scale:
// Linux nice values (exact, 40 levels), Windows thread priorities (7 levels,
// lossy but order-preserving), or bookkeeping only elsewhere.
//
// # Locks and waiting
//
// Mutex ownership belongs to the acquiring goroutine. Recursive mutexes
// count re-entry depth. ConditionVariable waits take the Mutex to release
// while suspended; TimedWait reports Signaled or TimedOut and always
// returns with the Mutex held. Spurious wakeups are allowed by contract, so
// predicates must be rechecked in a loop.
//
// # Errors
//
// Thread and Manager operations return an *Error whose class is one of
// ErrInvalidUse, ErrInvalidArgument, ErrInvalidState or ErrUnsupported.
// Lifecycle misuse of a Mutex or ConditionVariable (use after finalize,
// unlocking a mutex the caller does not hold, waiting without holding the
// mutex) panics with an *Error, as the sync package does for the same
// mistakes. Timeouts are results, not errors.
//
// # Example
//
//	mgr, err := thread.NewManager()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	mu, _ := mgr.InitializeMutex(false, 0)
//	defer mgr.FinalizeMutex(mu)
//
//	stack, _ := thread.AllocateStack(64 * 1024)
//	t, _ := mgr.CreateThread(func(arg any) {
//		mu.Lock()
//		defer mu.Unlock()
//		fmt.Println("hello from", arg)
//	}, "worker", stack, thread.DefaultPriority)
//	defer mgr.DestroyThread(t)
//
//	_ = t.SetNamePointer("worker")
//	_ = t.Start()
//	_ = t.Join()
package thread
