// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// defaultQueueCapacity is the ring size of the lock-free task queue.
const defaultQueueCapacity = 4096

// taskQueue is the MPMC queue every worker pulls from.
// The fast path is a bounded lock-free ring; when the ring is full, tasks
// spill into a locked overflow list so that push never fails.
// Dequeue order is not FIFO across the two.
type taskQueue struct {
	ring     lfq.Queue[task]
	mu       sync.Mutex
	overflow []task
	spilled  atomix.Int64
}

func newTaskQueue(capacity int) *taskQueue {
	return &taskQueue{
		ring: lfq.BuildMPMC[task](lfq.New(capacity).Compact()),
	}
}

// push enqueues t. Never blocks, never fails.
func (q *taskQueue) push(t task) {
	err := q.ring.Enqueue(&t)
	if err == nil {
		return
	}
	if !iox.IsWouldBlock(err) {
		panic("mtask: task queue: " + err.Error())
	}
	q.mu.Lock()
	q.overflow = append(q.overflow, t)
	q.spilled.Add(1)
	q.mu.Unlock()
}

// tryPop dequeues one task without blocking.
// It reports false when both the ring and the overflow list are empty.
func (q *taskQueue) tryPop() (task, bool) {
	t, err := q.ring.Dequeue()
	if err == nil {
		return t, true
	}
	if q.spilled.Load() == 0 {
		return task{}, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.overflow)
	if n == 0 {
		return task{}, false
	}
	t = q.overflow[n-1]
	q.overflow[n-1] = task{}
	q.overflow = q.overflow[:n-1]
	q.spilled.Add(-1)
	return t, true
}
