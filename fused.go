// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"code.hybscloud.com/kont"
)

// AwaitThen waits for c to reach target and then continues with next.
// Fuses Perform(Await{...}) + Then.
func AwaitThen[B any](c *Counter, target int64, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Await{Counter: c, Target: target}), next)
}

// AwaitPinnedThen is AwaitThen resuming only on the worker it suspended on.
func AwaitPinnedThen[B any](c *Counter, target int64, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Await{Counter: c, Target: target, Pin: true}), next)
}

// AwaitBind waits for every task sharing c to finish and then builds the
// rest of the job with f. f runs after the wait, so work it enqueues is
// observed in order.
// Fuses Perform(Await{...}) + Bind.
func AwaitBind[B any](c *Counter, f func() kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Await{Counter: c}), func(struct{}) kont.Eff[B] {
		return f()
	})
}

// AwaitDone waits for every task sharing c to finish and ends the job.
// Fuses Perform(Await{...}) + Then + Pure.
func AwaitDone(c *Counter) kont.Eff[struct{}] {
	return kont.Then(kont.Perform(Await{Counter: c}), kont.Pure(struct{}{}))
}

// Defer delays building a job until it is first stepped on a worker.
// Side effects in f, such as enqueueing nested work, happen there rather
// than at enqueue time.
func Defer[B any](f func() kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Pure(struct{}{}), func(struct{}) kont.Eff[B] {
		return f()
	})
}
