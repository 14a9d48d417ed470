// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"code.hybscloud.com/kont"
)

var exprReturnFrame kont.Frame = kont.ReturnFrame{}

func identityResume(v kont.Erased) kont.Erased { return v }

// ExprAwaitThen waits for c to reach target and then continues with next.
// Fuses ExprPerform(Await{...}) + ExprThen.
func ExprAwaitThen[B any](c *Counter, target int64, pin bool, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = Await{Counter: c, Target: target, Pin: pin}
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

func awaitBindUnwind[B any](data, _, _ kont.Erased, _ kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func() kont.Expr[B])
	result := f()
	return kont.Erased(result.Value), result.Frame
}

// ExprAwaitBind waits for every task sharing c to finish and then builds
// the rest of the job with f.
// Fuses ExprPerform(Await{...}) + ExprBind.
func ExprAwaitBind[B any](c *Counter, f func() kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = awaitBindUnwind[B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = Await{Counter: c}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprAwaitDone waits for every task sharing c to finish and ends the job.
func ExprAwaitDone(c *Counter) kont.Expr[struct{}] {
	return ExprAwaitThen(c, 0, false, kont.ExprReturn(struct{}{}))
}
