// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"code.hybscloud.com/kont"
)

// Loop runs a recursive continuation job. step returns Left(nextState) to
// continue or Right(result) to finish; a step typically enqueues work and
// awaits it before returning.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if next, ok := e.GetLeft(); ok {
			return Loop(next, step)
		}
		result, _ := e.GetRight()
		return kont.Pure(result)
	})
}

// ExprLoop is Loop for Expr-world jobs. No step runs until the job is
// stepped on a worker; steps that complete without suspending are iterated
// in place rather than chained.
func ExprLoop[S, A any](initial S, step func(S) kont.Expr[kont.Either[S, A]]) kont.Expr[A] {
	bf := kont.AcquireBindFrame()
	bf.F = func(kont.Erased) kont.Expr[kont.Erased] {
		return exprLoopFrom(initial, step)
	}
	bf.Next = kont.ReturnFrame{}
	return kont.ExprSuspend[A](bf)
}

// exprLoopFrom runs steps from s until one suspends or the loop finishes.
func exprLoopFrom[S, A any](s S, step func(S) kont.Expr[kont.Either[S, A]]) kont.Expr[kont.Erased] {
	for {
		m := step(s)
		if _, ok := m.Frame.(kont.ReturnFrame); !ok {
			bf := kont.AcquireBindFrame()
			bf.F = func(v kont.Erased) kont.Expr[kont.Erased] {
				e := v.(kont.Either[S, A])
				if next, ok := e.GetLeft(); ok {
					return exprLoopFrom(next, step)
				}
				result, _ := e.GetRight()
				return kont.Expr[kont.Erased]{Value: kont.Erased(result), Frame: kont.ReturnFrame{}}
			}
			bf.Next = kont.ReturnFrame{}
			return kont.Expr[kont.Erased]{Frame: kont.ChainFrames(m.Frame, bf)}
		}
		next, ok := m.Value.GetLeft()
		if !ok {
			result, _ := m.Value.GetRight()
			return kont.Expr[kont.Erased]{Value: kont.Erased(result), Frame: kont.ReturnFrame{}}
		}
		s = next
	}
}

// Stages runs stages one after another inside a continuation task. Each
// stage enqueues work and returns its counter; the next stage starts once
// every task of that counter has finished. A nil counter skips the wait.
func Stages(stages ...func() *Counter) kont.Eff[struct{}] {
	return Loop(0, func(i int) kont.Eff[kont.Either[int, struct{}]] {
		if i == len(stages) {
			return kont.Pure(kont.Right[int, struct{}](struct{}{}))
		}
		return Defer(func() kont.Eff[kont.Either[int, struct{}]] {
			c := stages[i]()
			next := kont.Pure(kont.Left[int, struct{}](i + 1))
			if c == nil {
				return next
			}
			return AwaitThen(c, 0, next)
		})
	})
}

// ExprStages is Stages for Expr-world jobs, run with EnqueueExpr.
func ExprStages(stages ...func() *Counter) kont.Expr[struct{}] {
	return ExprLoop(0, func(i int) kont.Expr[kont.Either[int, struct{}]] {
		if i == len(stages) {
			return kont.ExprReturn(kont.Right[int, struct{}](struct{}{}))
		}
		next := kont.ExprReturn(kont.Left[int, struct{}](i + 1))
		c := stages[i]()
		if c == nil {
			return next
		}
		return ExprAwaitThen(c, 0, false, next)
	})
}
