// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/mtask/fiber"
)

// taskFiber is a scheduler fiber. Every switch between scheduler fibers
// carries a handoff.
type taskFiber = fiber.Fiber[handoff]

// handoff is the value passed through a fiber switch. The yielding fiber
// fills it immediately before switching; only the resumed fiber reads it.
//
// w is always the worker the resumed fiber now runs on. origin and dest are
// used by the two trampolines; park only by the registration trampoline.
type handoff struct {
	w      *worker
	origin *taskFiber
	dest   *taskFiber
	park   waitingTask
}

// worker is the per-worker context. Whichever fiber currently runs on the
// worker owns it exclusively; it is passed from fiber to fiber through
// handoff values rather than looked up from goroutine-local state.
type worker struct {
	id uint32

	// switcher returns the fiber leaving the worker to the pool, then runs
	// the waiter being resumed.
	switcher *taskFiber
	// registrar parks the fiber leaving the worker in the registry, then
	// runs a fresh loop fiber.
	registrar *taskFiber

	timer   *time.Timer
	retired sync.Once
}

func newWorker(m *Multitasker, id uint32) *worker {
	w := &worker{
		id:    id,
		timer: time.NewTimer(time.Hour),
	}
	w.timer.Stop()
	w.switcher = m.track(fiber.New(m.switching))
	w.registrar = m.track(fiber.New(m.registration))
	return w
}

// bootstrap runs on a fresh goroutine per worker: the goroutine becomes the
// worker's first fiber, runs the init callback, then enters the loop.
func (m *Multitasker) bootstrap(w *worker) {
	self := m.track(fiber.Convert[handoff]())
	if m.init != nil {
		m.init(w.id)
	}
	m.log.Debug().
		Str("scheduler", m.name).
		Uint64("worker", uint64(w.id)).
		Log("worker started")
	m.run(self, w)
}

// loopEntry is the entry point of pool fibers.
func (m *Multitasker) loopEntry(self *taskFiber, h handoff) {
	m.run(self, h.w)
}

// run is the scheduling loop. It executes in whichever fiber currently owns
// worker w; after any switch the fiber may come back on another worker, so
// w is reloaded from the handoff that resumed it.
func (m *Multitasker) run(self *taskFiber, w *worker) {
	for !m.stopped() {
		if wt, ok := m.waiting.take(w.id); ok {
			m.metrics.RecordParked(m.name, m.waiting.len())
			if wt.cont != nil {
				m.resumeCont(w, wt)
				continue
			}
			h := self.Switch(w.switcher, handoff{w: w, origin: self, dest: wt.fiber})
			w = h.w
			continue
		}
		if t, ok := m.tasks.tryPop(); ok {
			w = m.execute(self, w, t)
			continue
		}
		m.idle(w)
	}
	m.retire(w)
}

// switching is the body of a worker's switching trampoline. The fiber that
// found a ready waiter cannot put itself back into the pool: another worker
// could pick it up while it is still running here. The trampoline does it
// on its behalf once the origin has parked.
func (m *Multitasker) switching(self *taskFiber, h handoff) {
	for {
		m.pool.put(h.origin)
		m.metrics.RecordIdleFibers(m.name, m.pool.len())
		h = self.Switch(h.dest, handoff{w: h.w})
	}
}

// registration is the body of a worker's registration trampoline. It parks
// the origin in the registry only after the origin has switched away, so a
// worker resuming it never races with the origin's own stack.
func (m *Multitasker) registration(self *taskFiber, h handoff) {
	for {
		m.waiting.add(h.park)
		m.metrics.RecordParked(m.name, m.waiting.len())
		h = self.Switch(h.dest, handoff{w: h.w})
	}
}

// idle sleeps until woken by an enqueue, a task completion or Stop, or
// until the idle wait elapses.
func (m *Multitasker) idle(w *worker) {
	ch := m.wake.arm()
	w.timer.Reset(m.opts.idleWait)
	select {
	case <-ch:
	case <-w.timer.C:
	}
	w.timer.Stop()
	m.wake.disarm()
}

// retire marks w as finished. Called exactly once per worker, by the fiber
// holding it when the stop flag is observed.
func (m *Multitasker) retire(w *worker) {
	w.retired.Do(func() {
		m.log.Debug().
			Str("scheduler", m.name).
			Uint64("worker", uint64(w.id)).
			Log("worker retired")
		m.wg.Done()
	})
}

// abandon retires w and terminates the calling fiber, dropping whatever it
// was running.
func (m *Multitasker) abandon(w *worker) {
	m.retire(w)
	runtime.Goexit()
}
