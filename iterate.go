// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"code.hybscloud.com/kont"
)

// Iterate runs an awaiting body in a loop (Cont-world): each round may
// suspend on any await operation, and the fiber parks between rounds
// without growing the native stack. step returns Left(nextState) to run
// another round or Right(result) to finish the fiber body.
func Iterate[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if next, ok := e.GetLeft(); ok {
			return Iterate(next, step)
		}
		result, _ := e.GetRight()
		return kont.Pure(result)
	})
}

// Repeat runs an awaiting body exactly n rounds, passing the round index,
// and finishes with the last round's value. n must be at least 1.
func Repeat[A any](n int, step func(i int) kont.Eff[A]) kont.Eff[A] {
	return Iterate(0, func(i int) kont.Eff[kont.Either[int, A]] {
		return kont.Bind(step(i), func(a A) kont.Eff[kont.Either[int, A]] {
			if i+1 < n {
				return kont.Pure(kont.Left[int, A](i + 1))
			}
			return kont.Pure(kont.Right[int](a))
		})
	})
}

// ExprIterate is the Expr-world form of [Iterate].
// A round that completes without suspending recurses directly; a suspending
// round fuses the continuation inline to avoid the type-erasing wrapper
// closure.
func ExprIterate[S, A any](initial S, step func(S) kont.Expr[kont.Either[S, A]]) kont.Expr[A] {
	round := step(initial)
	if _, ok := round.Frame.(kont.ReturnFrame); ok {
		if next, ok := round.Value.GetLeft(); ok {
			return ExprIterate(next, step)
		}
		result, _ := round.Value.GetRight()
		return kont.ExprReturn(result)
	}
	bf := kont.AcquireBindFrame()
	bf.F = func(a kont.Erased) kont.Expr[kont.Erased] {
		e := a.(kont.Either[S, A])
		if next, ok := e.GetLeft(); ok {
			rest := ExprIterate(next, step)
			return kont.Expr[kont.Erased]{Value: kont.Erased(rest.Value), Frame: rest.Frame}
		}
		result, _ := e.GetRight()
		return kont.Expr[kont.Erased]{Value: kont.Erased(result), Frame: exprReturnFrame}
	}
	bf.Next = exprReturnFrame
	var zero A
	return kont.Expr[A]{
		Value: zero,
		Frame: kont.ChainFrames(round.Frame, bf),
	}
}

// ExprRepeat is the Expr-world form of [Repeat].
func ExprRepeat[A any](n int, step func(i int) kont.Expr[A]) kont.Expr[A] {
	return ExprIterate(0, func(i int) kont.Expr[kont.Either[int, A]] {
		return kont.ExprBind(step(i), func(a A) kont.Expr[kont.Either[int, A]] {
			if i+1 < n {
				return kont.ExprReturn(kont.Left[int, A](i + 1))
			}
			return kont.ExprReturn(kont.Right[int](a))
		})
	})
}
