// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/kolkov/threadkit/internal/threading/native"
	"github.com/kolkov/threadkit/internal/threading/priority"
)

// open is the process's Manager, if any.
var open atomic.Pointer[Manager]

// Manager creates, tracks and destroys threads, mutexes and condition
// variables. Exactly one Manager may be open per process: create it at
// startup before any primitive, and Close it after every primitive it
// created has been destroyed.
type Manager struct {
	cfg      Config
	logger   Logger
	metrics  Metrics
	platform native.Platform

	registry *registry

	// lock guards the live sets.
	lock    *Mutex
	threads map[*Thread]struct{}
	mutexes map[*Mutex]struct{}
	conds   map[*ConditionVariable]struct{}

	closed atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithLogger replaces the default slog logger.
func WithLogger(l Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics installs a Metrics sink.
func WithMetrics(mt Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func withPlatform(p native.Platform) Option {
	return func(m *Manager) { m.platform = p }
}

// NewManager opens the process's Manager. It fails with ErrInvalidUse if
// another Manager is already open.
func NewManager(opts ...Option) (*Manager, error) {
	const op = "NewManager"
	m := &Manager{
		cfg:      DefaultConfig(),
		metrics:  noopMetrics{},
		platform: native.New(),
		threads:  make(map[*Thread]struct{}),
		mutexes:  make(map[*Mutex]struct{}),
		conds:    make(map[*ConditionVariable]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}
	if m.logger == nil {
		level, _ := m.cfg.level()
		m.logger = NewDefaultLogger(level)
	}
	if m.metrics == nil {
		m.metrics = noopMetrics{}
	}
	m.lock = &Mutex{mgr: m}
	m.registry = newRegistry(m)

	if !open.CompareAndSwap(nil, m) {
		return nil, newError(op, ErrInvalidUse, "a Manager is already open in this process")
	}
	m.logger.Info("thread manager opened",
		F("platform", m.platform.Name()),
		F("priority_scale", m.platform.Scale().Name()),
		F("lossy", m.platform.Scale().Lossy()))
	return m, nil
}

// Open returns the process's open Manager, or nil.
func Open() *Manager {
	return open.Load()
}

// Close releases the process slot so a new Manager may be opened. It
// reports ErrInvalidState if threads, mutexes or condition variables are
// still live; the slot is released regardless.
func (m *Manager) Close() error {
	const op = "Manager.Close"
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return newError(op, ErrInvalidUse, "manager already closed")
	}
	defer open.CompareAndSwap(m, nil)

	m.lock.Lock()
	threads, mutexes, conds := len(m.threads), len(m.mutexes), len(m.conds)
	m.lock.Unlock()

	if threads+mutexes+conds == 0 {
		m.logger.Info("thread manager closed")
		return nil
	}
	m.logger.Warn("thread manager closed with live primitives",
		F("threads", threads), F("mutexes", mutexes), F("condition_variables", conds))
	return newError(op, ErrInvalidState, "%d threads, %d mutexes, %d condition variables still live",
		threads, mutexes, conds)
}

// Config returns the configuration the Manager runs with.
func (m *Manager) Config() Config { return m.cfg }

// PlatformName identifies the native layer in use.
func (m *Manager) PlatformName() string { return m.platform.Name() }

// PriorityScale names the host scheduler's priority scale and reports
// whether translating to it loses precision.
func (m *Manager) PriorityScale() (name string, lossy bool) {
	s := m.platform.Scale()
	return s.Name(), s.Lossy()
}

// NativePriority translates p to the host scheduler's scale.
func (m *Manager) NativePriority(p Priority) (int, error) {
	n, err := priority.ToNative(p, m.platform.Scale())
	if err != nil {
		return 0, newError("Manager.NativePriority", ErrInvalidArgument, "%v", err)
	}
	return n, nil
}

// CreateThread creates a thread that will run entry(arg) once started.
// stack must be a StackAlign-aligned region whose length is a multiple of
// StackAlign (see AllocateStack); p must lie in [LowestPriority,
// HighestPriority].
func (m *Manager) CreateThread(entry Entry, arg any, stack []byte, p Priority) (*Thread, error) {
	const op = "Manager.CreateThread"
	if err := m.usable(op); err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, newError(op, ErrInvalidArgument, "nil entry function")
	}
	if err := validateStack(op, stack); err != nil {
		return nil, err
	}
	if !p.Valid() {
		return nil, newError(op, ErrInvalidArgument, "priority %d not in [%d, %d]", p, LowestPriority, HighestPriority)
	}

	t := &Thread{
		mgr:      m,
		entry:    entry,
		arg:      arg,
		stack:    stack,
		original: p,
		current:  p,
		done:     make(chan struct{}),
	}
	m.lock.Lock()
	m.threads[t] = struct{}{}
	m.lock.Unlock()

	m.metrics.PrimitiveCreated(KindThread)
	m.logger.Debug("thread created", F("priority", p), F("stack_size", len(stack)))
	return t, nil
}

// DestroyThread invalidates a thread handle and drops its registry entry.
// A thread that is still running is detached: its entry function runs to
// completion, but the handle can no longer be used and CurrentThread no
// longer finds it.
func (m *Manager) DestroyThread(t *Thread) error {
	const op = "Manager.DestroyThread"
	if err := m.usable(op); err != nil {
		return err
	}
	if t == nil || t.mgr != m {
		return newError(op, ErrInvalidUse, "thread not created by this Manager")
	}
	if !t.destroyed.CompareAndSwap(false, true) {
		return newError(op, ErrInvalidUse, "thread already destroyed")
	}
	if id := t.id.Load(); id != 0 {
		m.registry.remove(id, t)
	}

	m.lock.Lock()
	delete(m.threads, t)
	m.lock.Unlock()

	m.metrics.PrimitiveDestroyed(KindThread)
	if State(t.state.Load()) == Running {
		m.logger.Debug("running thread detached", F("tid", t.id.Load()))
	}
	return nil
}

// YieldThread offers the rest of the caller's time slice to other runnable
// work.
func (m *Manager) YieldThread() {
	runtime.Gosched()
}

// SleepThread pauses the caller for at least nanos nanoseconds.
func (m *Manager) SleepThread(nanos int64) error {
	if nanos < 0 {
		return newError("Manager.SleepThread", ErrInvalidArgument, "negative duration %dns", nanos)
	}
	time.Sleep(time.Duration(nanos))
	return nil
}

// CurrentThread returns the Thread the caller is running on, or nil if the
// caller is not the entry function of a started, undestroyed thread created
// by this Manager (for example the process's main goroutine).
func (m *Manager) CurrentThread() *Thread {
	if m.closed.Load() {
		return nil
	}
	return m.registry.lookup(m.platform.ThreadID())
}

// CurrentProcessorNumber returns the processor running the caller, or -1 if
// the host cannot tell. The answer may be stale by the time it is used.
func (m *Manager) CurrentProcessorNumber() int {
	return m.platform.ProcessorNumber()
}

// InitializeMutex creates a mutex. A recursive mutex needs lockLevel >= 1,
// the maximum re-entry depth; see Config.EnforceLockLevel.
func (m *Manager) InitializeMutex(recursive bool, lockLevel int) (*Mutex, error) {
	const op = "Manager.InitializeMutex"
	if err := m.usable(op); err != nil {
		return nil, err
	}
	if lockLevel < 0 || (recursive && lockLevel < 1) {
		return nil, newError(op, ErrInvalidArgument, "lock level %d (recursive=%t)", lockLevel, recursive)
	}
	mx := &Mutex{
		mgr:       m,
		recursive: recursive,
		lockLevel: lockLevel,
		enforce:   m.cfg.EnforceLockLevel,
	}
	m.lock.Lock()
	m.mutexes[mx] = struct{}{}
	m.lock.Unlock()

	m.metrics.PrimitiveCreated(KindMutex)
	return mx, nil
}

// FinalizeMutex destroys a mutex. A held mutex fails with ErrInvalidState.
func (m *Manager) FinalizeMutex(mx *Mutex) error {
	const op = "Manager.FinalizeMutex"
	if err := m.usable(op); err != nil {
		return err
	}
	if mx == nil || mx.mgr != m {
		return newError(op, ErrInvalidUse, "mutex not created by this Manager")
	}
	if mx.finalized.Load() {
		return newError(op, ErrInvalidUse, "mutex already finalized")
	}
	if !mx.mu.TryLock() {
		return newError(op, ErrInvalidState, "mutex is held")
	}
	if !mx.finalized.CompareAndSwap(false, true) {
		mx.mu.Unlock()
		return newError(op, ErrInvalidUse, "mutex already finalized")
	}
	mx.mu.Unlock()

	m.lock.Lock()
	delete(m.mutexes, mx)
	m.lock.Unlock()

	m.metrics.PrimitiveDestroyed(KindMutex)
	return nil
}

// InitializeConditionVariable creates a condition variable.
func (m *Manager) InitializeConditionVariable() (*ConditionVariable, error) {
	if err := m.usable("Manager.InitializeConditionVariable"); err != nil {
		return nil, err
	}
	c := &ConditionVariable{mgr: m}
	m.lock.Lock()
	m.conds[c] = struct{}{}
	m.lock.Unlock()

	m.metrics.PrimitiveCreated(KindConditionVariable)
	return c, nil
}

// FinalizeConditionVariable destroys a condition variable. One with
// waiters fails with ErrInvalidState.
func (m *Manager) FinalizeConditionVariable(c *ConditionVariable) error {
	const op = "Manager.FinalizeConditionVariable"
	if err := m.usable(op); err != nil {
		return err
	}
	if c == nil || c.mgr != m {
		return newError(op, ErrInvalidUse, "condition variable not created by this Manager")
	}
	if err := c.finalize(op); err != nil {
		return err
	}

	m.lock.Lock()
	delete(m.conds, c)
	m.lock.Unlock()

	m.metrics.PrimitiveDestroyed(KindConditionVariable)
	return nil
}

// Stats is a point-in-time view of a Manager's live primitives.
type Stats struct {
	Platform           string
	Threads            int // created and not destroyed
	RegisteredThreads  int // running and discoverable by CurrentThread
	Mutexes            int
	ConditionVariables int
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d threads (%d registered), %d mutexes, %d condition variables",
		s.Platform, s.Threads, s.RegisteredThreads, s.Mutexes, s.ConditionVariables)
}

// Stats returns current live-primitive counts.
func (m *Manager) Stats() Stats {
	m.lock.Lock()
	s := Stats{
		Platform:           m.platform.Name(),
		Threads:            len(m.threads),
		Mutexes:            len(m.mutexes),
		ConditionVariables: len(m.conds),
	}
	m.lock.Unlock()
	s.RegisteredThreads = m.registry.len()
	return s
}

func (m *Manager) usable(op string) error {
	if m == nil {
		return newError(op, ErrInvalidUse, "nil Manager")
	}
	if m.closed.Load() {
		return newError(op, ErrInvalidUse, "manager is closed")
	}
	return nil
}

func (m *Manager) applyPriority(tid uint64, p Priority) {
	if !m.cfg.NativePriority {
		return
	}
	n, err := priority.ToNative(p, m.platform.Scale())
	if err != nil {
		return
	}
	if err := m.platform.SetPriority(tid, n); err != nil {
		m.logger.Warn("native priority not applied", F("tid", tid), F("priority", p), F("native", n), F("error", err))
	}
}

func (m *Manager) applyName(tid uint64, name string) {
	if !m.cfg.NativeNames || name == "" {
		return
	}
	if err := m.platform.SetName(tid, name); err != nil {
		m.logger.Debug("native name not applied", F("tid", tid), F("name", name), F("error", err))
	}
}
