// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"code.hybscloud.com/kont"
)

// Func is the body of a task. arg is the value passed to Enqueue, or the
// index-th element of a bundle; size is the bundle size (1 for a single
// task). A Func must not block its worker: waits go through c.WaitFor.
type Func func(c *Context, arg any, index, size uint32)

// task is the immutable descriptor pushed onto the task queue.
// fn is set for fiber tasks. A continuation task carries eff when reify
// is set and job otherwise.
type task struct {
	fn      Func
	arg     any
	eff     kont.Eff[struct{}]
	job     kont.Expr[struct{}]
	cont    bool
	reify   bool
	counter *Counter
	index   uint32
	size    uint32
}

// Context is handed to a running Func. It identifies the fiber executing
// the task and the worker that fiber currently runs on, which may change
// across WaitFor calls.
//
// A Context is only valid while its Func is running.
type Context struct {
	m *Multitasker
	f *taskFiber
	w *worker
}

// WorkerID returns the id of the worker currently running the task.
func (c *Context) WorkerID() uint32 {
	return c.w.id
}

// Multitasker returns the scheduler running the task, for enqueueing
// nested work.
func (c *Context) Multitasker() *Multitasker {
	return c.m
}

// WaitFor suspends the task until counter reaches target.
// See Multitasker.WaitFor.
func (c *Context) WaitFor(counter *Counter, target int64, pin bool) {
	c.m.WaitFor(c, counter, target, pin)
}

// Wait suspends the task until every task sharing counter has finished,
// resuming on any worker.
func (c *Context) Wait(counter *Counter) {
	c.m.WaitFor(c, counter, 0, false)
}
