// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"context"
	"time"

	"code.hybscloud.com/kont"
)

// Await blocks the calling goroutine until counter equals target, ctx is
// done, or the scheduler stops. It is the way for code outside the
// scheduler to wait for tasks; tasks themselves use WaitFor, which does not
// block a worker.
//
// Await returns nil once the target is reached, ctx.Err() when ctx is done
// first, and ErrStopped when the scheduler stops first.
func (m *Multitasker) Await(ctx context.Context, counter *Counter, target int64) error {
	timer := time.NewTimer(m.opts.idleWait)
	defer timer.Stop()
	for {
		if counter.Load() == target {
			return nil
		}
		if m.stopped() {
			return ErrStopped
		}
		ch := m.wake.arm()
		if counter.Load() == target {
			m.wake.disarm()
			return nil
		}
		timer.Reset(m.opts.idleWait)
		select {
		case <-ch:
		case <-timer.C:
		case <-ctx.Done():
			m.wake.disarm()
			return ctx.Err()
		}
		m.wake.disarm()
	}
}

// Run enqueues fn as a single task and waits for it with Await.
func (m *Multitasker) Run(ctx context.Context, fn Func, arg any) error {
	return m.Await(ctx, m.Enqueue(fn, arg), 0)
}

// RunEff enqueues job as a continuation task and waits for it with Await.
func (m *Multitasker) RunEff(ctx context.Context, job kont.Eff[struct{}]) error {
	return m.Await(ctx, m.EnqueueEff(job), 0)
}
