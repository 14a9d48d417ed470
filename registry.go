// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// anyWorker is the affinity of a waiter that may resume on any worker.
const anyWorker int32 = -1

// waitingTask is a parked logical task: either a suspended fiber or a
// suspended continuation, waiting for counter to reach target.
type waitingTask struct {
	fiber    *taskFiber
	cont     *contTask
	counter  *Counter
	target   int64
	affinity int32
	parkedOn uint32
}

// ready reports whether w may resume on the worker with the given id.
func (w *waitingTask) ready(id uint32) bool {
	if w.affinity != anyWorker && w.affinity != int32(id) {
		return false
	}
	return w.counter.Load() == w.target
}

// registry is the set of parked tasks. It is the only scheduler structure
// guarded by a mutex; the lookup is a linear scan.
type registry struct {
	mu      sync.Mutex
	entries []waitingTask
	size    atomix.Int64
}

// add parks wt.
func (r *registry) add(wt waitingTask) {
	r.mu.Lock()
	r.entries = append(r.entries, wt)
	r.size.Store(int64(len(r.entries)))
	r.mu.Unlock()
}

// take removes and returns the first entry that is ready on worker id.
// Removal swaps the last entry into the vacated slot.
func (r *registry) take(id uint32) (waitingTask, bool) {
	if r.size.Load() == 0 {
		return waitingTask{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if !r.entries[i].ready(id) {
			continue
		}
		wt := r.entries[i]
		last := len(r.entries) - 1
		r.entries[i] = r.entries[last]
		r.entries[last] = waitingTask{}
		r.entries = r.entries[:last]
		r.size.Store(int64(last))
		return wt, true
	}
	return waitingTask{}, false
}

// len returns the number of parked tasks.
func (r *registry) len() int {
	return int(r.size.Load())
}

// drain removes and returns every parked entry.
func (r *registry) drain() []waitingTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.entries
	r.entries = nil
	r.size.Store(0)
	return out
}
