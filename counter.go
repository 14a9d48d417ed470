// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import "code.hybscloud.com/atomix"

// Counter is the join barrier shared by the tasks of one bundle and by every
// fiber waiting on them. It starts at the bundle size and is decremented
// exactly once per finished task; it is never reset.
//
// Decrements release and every read acquires, so a waiter that observes the
// counter at its target also observes everything the finished tasks wrote.
type Counter struct {
	v atomix.Int64
}

func newCounter(n int64) *Counter {
	c := &Counter{}
	c.v.Store(n)
	return c
}

// Load returns the number of tasks that have not finished yet.
func (c *Counter) Load() int64 {
	return c.v.LoadAcquire()
}

// Done reports whether every task sharing c has finished.
func (c *Counter) Done() bool {
	return c.v.LoadAcquire() == 0
}

// decrement is the only mutation a counter ever sees.
func (c *Counter) decrement() int64 {
	return c.v.AddAcqRel(-1)
}
