// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"code.hybscloud.com/kont"
)

// EnqueueEff schedules a continuation task and returns its counter,
// initialised to 1. The job runs on a worker's loop fiber and suspends on
// Await effects without occupying a pool fiber.
//
// The job is reified on the worker that first steps it, so code before its
// first effect runs there.
func (m *Multitasker) EnqueueEff(job kont.Eff[struct{}]) *Counter {
	c := newCounter(1)
	m.tasks.push(task{eff: job, cont: true, reify: true, counter: c, size: 1})
	m.wake.broadcast()
	return c
}

// EnqueueExpr is EnqueueEff for an Expr-world job.
func (m *Multitasker) EnqueueExpr(job kont.Expr[struct{}]) *Counter {
	c := newCounter(1)
	m.tasks.push(task{job: job, cont: true, counter: c, size: 1})
	m.wake.broadcast()
	return c
}

// EnqueueEffBundle schedules n continuation tasks sharing one counter,
// initialised to n. build is called once per index at enqueue time; the
// jobs it returns are reified on the workers.
func (m *Multitasker) EnqueueEffBundle(n int, build func(index, size uint32) kont.Eff[struct{}]) *Counter {
	if n < 0 || build == nil {
		panic(ErrInvalidBundleArgument)
	}
	c := newCounter(int64(n))
	size := uint32(n)
	for i := range size {
		m.tasks.push(task{eff: build(i, size), cont: true, reify: true, counter: c, index: i, size: size})
	}
	if n > 0 {
		m.wake.broadcast()
	}
	return c
}
