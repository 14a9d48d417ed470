// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// fiberPool holds idle fibers ready to run the worker loop.
// Its capacity covers the configured pool plus one bootstrap fiber per
// worker, because a worker's converted fiber joins the pool the first time
// it hands its worker to a resumed waiter.
type fiberPool struct {
	ring lfq.Queue[*taskFiber]
	idle atomix.Int64
}

func newFiberPool(capacity int) *fiberPool {
	if capacity < 2 {
		capacity = 2
	}
	return &fiberPool{
		ring: lfq.BuildMPMC[*taskFiber](lfq.New(capacity).Compact()),
	}
}

// put returns f to the pool.
func (p *fiberPool) put(f *taskFiber) {
	p.idle.Add(1)
	if err := p.ring.Enqueue(&f); err != nil {
		// Only fibers created by this scheduler circulate, so the ring
		// cannot fill up.
		panic("mtask: fiber pool overflow: " + err.Error())
	}
}

// tryTake pops an idle fiber without blocking.
func (p *fiberPool) tryTake() (*taskFiber, bool) {
	f, err := p.ring.Dequeue()
	if err != nil {
		return nil, false
	}
	p.idle.Add(-1)
	return f, true
}

// len returns the number of idle fibers.
func (p *fiberPool) len() int {
	return int(p.idle.Load())
}

// takeFiber pops an idle fiber for worker w, blocking with adaptive backoff
// while the pool is empty. Exhaustion is a capacity hazard, not an error:
// takeFiber waits indefinitely, optionally logging a stall warning once.
//
// If the scheduler stops while waiting, the worker is retired and the
// calling fiber exits; its task is abandoned.
func (m *Multitasker) takeFiber(w *worker) *taskFiber {
	if f, ok := m.pool.tryTake(); ok {
		return f
	}
	var bo iox.Backoff
	var stalled bool
	start := time.Now()
	for {
		if m.stopped() {
			m.abandon(w)
		}
		bo.Wait()
		if f, ok := m.pool.tryTake(); ok {
			if stalled {
				m.log.Info().
					Str("scheduler", m.name).
					Uint64("worker", uint64(w.id)).
					Dur("waited", time.Since(start)).
					Log("fiber pool stall resolved")
			}
			return f
		}
		if !stalled && m.opts.stallWarning > 0 && time.Since(start) >= m.opts.stallWarning {
			stalled = true
			m.log.Warning().
				Str("scheduler", m.name).
				Uint64("worker", uint64(w.id)).
				Int("fiber_pool_size", m.poolSize).
				Int("parked", m.waiting.len()).
				Log("fiber pool exhausted: WaitFor is blocked until a parked task resumes")
		}
	}
}
