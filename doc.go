// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mtask provides an M:N cooperative task scheduler built on fibers.
//
// Many short tasks run on a fixed set of workers. A task that has to wait
// for other tasks (a join) suspends its fiber instead of blocking its
// worker, and the worker continues with other work on a fresh fiber.
//
// # Architecture
//
//   - Fibers: goroutines parked on a channel, switched explicitly via [code.hybscloud.com/mtask/fiber]. At most one fiber runs per worker at any instant.
//   - Task queue: a lock-free bounded MPMC ring via [code.hybscloud.com/lfq], spilling to a locked overflow list when full.
//   - Fiber pool: a lock-free MPMC ring of idle fibers; [Multitasker.WaitFor] blocks with adaptive backoff ([code.hybscloud.com/iox.Backoff]) when it is empty.
//   - Registry: the only mutex-guarded structure; a linear list of parked tasks keyed by counter, target and worker affinity.
//   - Trampolines: each worker owns a switching fiber and a registration fiber that pool or park a fiber on its behalf after it has switched away.
//
// # API Topologies
//
//   - Tasks: [Multitasker.Enqueue], [Multitasker.EnqueueBundle] and the typed [Bundle] return a [Counter] initialised to the number of tasks.
//   - Joins: [Context.WaitFor] and [Context.Wait] inside tasks; [Multitasker.Await] from ordinary goroutines.
//   - Continuations: [Multitasker.EnqueueEff] runs a [code.hybscloud.com/kont] job that suspends on [Await] effects without holding a fiber. Helpers: [AwaitThen], [AwaitBind], [AwaitDone], [Defer], [Loop], [Stages], and Expr-world variants.
//   - Lifecycle: [New], [Multitasker.Stop], [Multitasker.Join], [Multitasker.Shutdown].
//
// # Capacity
//
// The fiber pool bounds how many tasks can be parked at once. A WaitFor that
// finds the pool empty blocks until a parked task resumes, which deadlocks
// when every parked task waits on work nobody can start. Size the pool for
// the deepest expected nesting; [WithStallWarning] logs when it happens.
//
// # Example
//
//	m := mtask.MustNew(4, 64, nil)
//	defer m.Shutdown()
//	var sum atomic.Int64
//	c := m.EnqueueBundle(func(c *mtask.Context, arg any, i, n uint32) {
//		sum.Add(int64(arg.(int)))
//	}, []any{1, 2, 3})
//	if err := m.Await(ctx, c, 0); err != nil {
//		return err
//	}
package mtask
