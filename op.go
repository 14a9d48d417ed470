// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"code.hybscloud.com/kont"
)

// Await is the effect operation for waiting on a counter from a
// continuation task. Perform(Await{Counter: c, Target: n}) suspends the
// continuation until c reaches n. With Pin set it resumes only on the worker
// it suspended on.
//
// A continuation suspended on Await holds no fiber.
type Await struct {
	kont.Phantom[struct{}]
	Counter *Counter
	Target  int64
	Pin     bool
}

func (a Await) satisfied() bool {
	return a.Counter.Load() == a.Target
}

func (a Await) affinity(w *worker) int32 {
	if a.Pin {
		return int32(w.id)
	}
	return anyWorker
}
