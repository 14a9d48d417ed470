// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/mtask/fiber"
	"github.com/joeycumines/logiface"
)

// Multitasker runs tasks on a fixed set of workers. Tasks execute on
// pooled fibers; a task that waits for a counter parks its fiber and the
// worker moves on to other work on a fresh fiber from the pool.
//
// All methods are safe for concurrent use, from tasks and from outside.
type Multitasker struct {
	name    string
	opts    options
	log     *logiface.Logger[logiface.Event]
	metrics Metrics
	init    func(workerID uint32)

	workers  []*worker
	poolSize int
	pool     *fiberPool
	waiting  registry
	tasks    *taskQueue
	wake     *wakeSignal

	stop atomix.Uint32
	wg   sync.WaitGroup

	fibersMu sync.Mutex
	fibers   []*taskFiber
	joined   sync.Once
}

// New creates a Multitasker with the given number of workers and pool
// fibers and starts the workers. init, if not nil, is called once on each
// worker before it takes any task.
//
// fiberPoolSize bounds how many tasks may be parked in WaitFor at once, plus
// one per worker. A WaitFor that finds the pool empty blocks until a parked
// task resumes; see WithStallWarning.
func New(workers, fiberPoolSize int, init func(workerID uint32), opts ...Option) (*Multitasker, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, workers)
	}
	if fiberPoolSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFiberPoolSize, fiberPoolSize)
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	m := &Multitasker{
		name:     o.name,
		opts:     o,
		log:      o.logger,
		metrics:  o.metrics,
		init:     init,
		poolSize: fiberPoolSize,
		pool:     newFiberPool(fiberPoolSize + workers),
		tasks:    newTaskQueue(o.queueCapacity),
		wake:     newWakeSignal(),
	}
	for range fiberPoolSize {
		m.pool.put(m.track(fiber.New(m.loopEntry)))
	}
	m.workers = make([]*worker, workers)
	for i := range m.workers {
		m.workers[i] = newWorker(m, uint32(i))
	}

	m.wg.Add(workers)
	for _, w := range m.workers {
		go m.bootstrap(w)
	}
	m.log.Info().
		Str("scheduler", m.name).
		Int("workers", workers).
		Int("fiber_pool_size", fiberPoolSize).
		Str("panic_policy", o.panicPolicy.String()).
		Log("scheduler started")
	return m, nil
}

// MustNew is New that panics on a configuration error.
func MustNew(workers, fiberPoolSize int, init func(workerID uint32), opts ...Option) *Multitasker {
	m, err := New(workers, fiberPoolSize, init, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Enqueue schedules fn(arg) as a single task and returns its counter,
// initialised to 1. Enqueue never blocks.
func (m *Multitasker) Enqueue(fn Func, arg any) *Counter {
	if fn == nil {
		panic(ErrInvalidBundleArgument)
	}
	c := newCounter(1)
	m.tasks.push(task{fn: fn, arg: arg, counter: c, size: 1})
	m.wake.broadcast()
	return c
}

// EnqueueBundle schedules one task per element of args, sharing a counter
// initialised to len(args). Task i receives args[i], index i and size
// len(args). An empty bundle returns a counter that is already zero.
func (m *Multitasker) EnqueueBundle(fn Func, args []any) *Counter {
	if fn == nil {
		panic(ErrInvalidBundleArgument)
	}
	return m.enqueueBundle(fn, len(args), func(i int) any { return args[i] })
}

// Bundle schedules one task per element of args with typed arguments.
// Task i receives &args[i]; args must not be modified until the bundle's
// counter reaches zero.
func Bundle[T any](m *Multitasker, fn func(c *Context, arg *T, index, size uint32), args []T) *Counter {
	if fn == nil {
		panic(ErrInvalidBundleArgument)
	}
	wrapped := func(c *Context, arg any, index, size uint32) {
		fn(c, arg.(*T), index, size)
	}
	return m.enqueueBundle(wrapped, len(args), func(i int) any { return &args[i] })
}

func (m *Multitasker) enqueueBundle(fn Func, n int, arg func(i int) any) *Counter {
	c := newCounter(int64(n))
	size := uint32(n)
	for i := range n {
		m.tasks.push(task{fn: fn, arg: arg(i), counter: c, index: uint32(i), size: size})
	}
	if n > 0 {
		m.wake.broadcast()
	}
	return c
}

// WaitFor suspends the task running c until counter equals target. If pin
// is set the task resumes on the same worker; otherwise on whichever worker
// finds it ready first, and c.WorkerID reflects the new worker afterwards.
//
// WaitFor returns immediately when counter already equals target. It must
// only be called from a task; the Context ties the wait to the task's fiber.
//
// A counter only moves down, so a target above its current value is never
// reached and the task stays parked until shutdown.
func (m *Multitasker) WaitFor(c *Context, counter *Counter, target int64, pin bool) {
	if counter.Load() == target {
		return
	}
	w := c.w
	next := m.takeFiber(w)
	m.metrics.RecordIdleFibers(m.name, m.pool.len())
	affinity := anyWorker
	if pin {
		affinity = int32(w.id)
	}
	h := c.f.Switch(w.registrar, handoff{
		w:      w,
		origin: c.f,
		dest:   next,
		park: waitingTask{
			fiber:    c.f,
			counter:  counter,
			target:   target,
			affinity: affinity,
			parkedOn: w.id,
		},
	})
	c.w = h.w
	m.metrics.RecordResume(m.name, h.w != w)
}

// Stop asks every worker to finish. Workers stop after their current task
// returns or parks; queued tasks that have not started are dropped, and
// parked tasks stay parked. Stop does not wait; see Join.
func (m *Multitasker) Stop() {
	if !m.stop.CompareAndSwap(0, 1) {
		return
	}
	m.log.Info().
		Str("scheduler", m.name).
		Int("parked", m.waiting.len()).
		Log("scheduler stopping")
	m.wake.broadcast()
}

// Join waits for every worker to stop, then releases all fibers. Parked
// tasks are abandoned: their deferred calls run, but they never return
// from WaitFor. Join blocks until Stop is called.
func (m *Multitasker) Join() {
	m.wg.Wait()
	m.joined.Do(m.release)
}

// Shutdown is Stop followed by Join.
func (m *Multitasker) Shutdown() {
	m.Stop()
	m.Join()
}

func (m *Multitasker) release() {
	abandoned := len(m.waiting.drain())
	m.fibersMu.Lock()
	fibers := m.fibers
	m.fibers = nil
	m.fibersMu.Unlock()
	for _, f := range fibers {
		f.Delete()
	}
	m.log.Info().
		Str("scheduler", m.name).
		Int("fibers", len(fibers)).
		Int("abandoned", abandoned).
		Log("scheduler stopped")
}

func (m *Multitasker) track(f *taskFiber) *taskFiber {
	m.fibersMu.Lock()
	m.fibers = append(m.fibers, f)
	m.fibersMu.Unlock()
	return f
}

func (m *Multitasker) stopped() bool {
	return m.stop.LoadAcquire() != 0
}

// Stopped reports whether Stop has been called.
func (m *Multitasker) Stopped() bool {
	return m.stopped()
}

// Name returns the scheduler name used in logs and metrics.
func (m *Multitasker) Name() string {
	return m.name
}

// Workers returns the number of workers.
func (m *Multitasker) Workers() int {
	return len(m.workers)
}

// FiberPoolSize returns the configured pool size.
func (m *Multitasker) FiberPoolSize() int {
	return m.poolSize
}

// IdleFibers returns the number of fibers currently in the pool.
func (m *Multitasker) IdleFibers() int {
	return m.pool.len()
}

// Parked returns the number of tasks currently waiting in the registry.
func (m *Multitasker) Parked() int {
	return m.waiting.len()
}
