// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"time"
)

// execute runs t on the fiber self, which currently holds worker w, and
// returns the worker self holds when the task has finished. The two differ
// when the task waited and was resumed elsewhere.
func (m *Multitasker) execute(self *taskFiber, w *worker, t task) *worker {
	if t.cont {
		m.startCont(w, t)
		return w
	}
	c := &Context{m: m, f: self, w: w}
	start := time.Now()
	if v, panicked := m.protect(func() { t.fn(c, t.arg, t.index, t.size) }); panicked {
		m.recovered(c.w, v)
	}
	m.metrics.RecordTaskDuration(m.name, time.Since(start))
	m.finish(t.counter)
	return c.w
}

// protect calls fn under the panic policy and reports the recovered value.
// Under PanicCrash a panic propagates and kills the process.
//
// A fiber abandoned at shutdown unwinds through protect via runtime.Goexit;
// recover returns nil there and nothing is reported.
func (m *Multitasker) protect(fn func()) (v any, panicked bool) {
	if m.opts.panicPolicy == PanicCrash {
		fn()
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			v, panicked = r, true
		}
	}()
	fn()
	return nil, false
}

func (m *Multitasker) recovered(w *worker, v any) {
	m.log.Err().
		Str("scheduler", m.name).
		Uint64("worker", uint64(w.id)).
		Any("panic", v).
		Log("task panicked")
	m.metrics.RecordTaskPanic(m.name, w.id, v)
}

// finish counts one task of a counter group as done and wakes sleepers, so
// that waiters parked on the counter are found promptly.
func (m *Multitasker) finish(c *Counter) {
	c.decrement()
	m.wake.broadcast()
}
