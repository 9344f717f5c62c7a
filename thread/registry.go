// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

// registry maps native thread identities to the Threads running on them,
// for Manager.CurrentThread. Entries are back-references only; they never
// keep a Thread alive past DestroyThread.
//
// The lock is a non-recursive Mutex of this package, created with the
// Manager and held only for the map operation itself, never across a join
// or wait.
type registry struct {
	lock    *Mutex
	threads map[uint64]*Thread
}

func newRegistry(m *Manager) *registry {
	return &registry{
		lock:    &Mutex{mgr: m},
		threads: make(map[uint64]*Thread),
	}
}

func (r *registry) insert(id uint64, t *Thread) {
	r.lock.Lock()
	r.threads[id] = t
	r.lock.Unlock()
}

// remove deletes id only if it still maps to t. A finished thread's OS
// identity may already belong to a newer thread.
func (r *registry) remove(id uint64, t *Thread) {
	r.lock.Lock()
	if r.threads[id] == t {
		delete(r.threads, id)
	}
	r.lock.Unlock()
}

func (r *registry) lookup(id uint64) *Thread {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.threads[id]
}

func (r *registry) len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.threads)
}
