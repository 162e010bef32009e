// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"time"

	"code.hybscloud.com/kont"
)

// Pre-allocated erased frames to eliminate heap escapes when boxing empty
// structs into kont.Frame during Expr-world execution.
var exprReturnFrame kont.Frame = kont.ReturnFrame{}

// identityResume is the identity resume function for EffectFrame
// construction. Named function produces a static function value,
// consistent with kont convention.
func identityResume(v kont.Erased) kont.Erased { return v }

// awaitBindUnwind unwraps the resumed Async and applies the continuation.
// Shared by every Expr-world await bind.
func awaitBindUnwind[T, B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(T) kont.Expr[B])
	result := f(current.(Async[T]).Await())
	return kont.Erased(result.Value), result.Frame
}

// exprAwaitBind builds the fused EffectFrame + UnwindFrame for one await
// operation resuming with Async[T].
func exprAwaitBind[T, B any](op kont.Erased, f func(T) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = awaitBindUnwind[T, B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = op
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprWaitThen waits for the baton and then continues with next.
// Fuses ExprPerform(WaitBaton) + ExprThen.
func ExprWaitThen[B any](b *Baton, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = WaitBaton{B: b}
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

// ExprWaitForBind waits for the baton for at most d and passes the outcome
// to f. Fuses ExprPerform(WaitBatonFor) + ExprBind + Async unwrap.
func ExprWaitForBind[B any](b *Baton, d time.Duration, f func(bool) kont.Expr[B]) kont.Expr[B] {
	return exprAwaitBind(WaitBatonFor{B: b, D: d}, f)
}

// ExprWaitUntilBind is the deadline form of [ExprWaitForBind].
func ExprWaitUntilBind[B any](b *Baton, t time.Time, f func(bool) kont.Expr[B]) kont.Expr[B] {
	return exprAwaitBind(WaitBatonUntil{B: b, T: t}, f)
}

// ExprPromiseBind runs cb with a one-shot setter, suspends until fulfilled,
// and passes the value to f.
// Fuses ExprPerform(WaitPromise) + ExprBind + Async unwrap.
func ExprPromiseBind[T, B any](cb func(Promise[T]), f func(T) kont.Expr[B]) kont.Expr[B] {
	return exprAwaitBind(WaitPromise[T]{F: cb}, f)
}

// ExprFutureBind suspends until the deferred computation completes and
// passes its value to f.
// Fuses ExprPerform(WaitFuture) + ExprBind + Async unwrap.
func ExprFutureBind[T, B any](d *Deferred[T], f func(T) kont.Expr[B]) kont.Expr[B] {
	return exprAwaitBind(WaitFuture[T]{D: d}, f)
}

// ExprFutureBindTry is the try form of [ExprFutureBind].
// Fuses ExprPerform(WaitFutureTry) + ExprBind + Async unwrap.
func ExprFutureBindTry[T, B any](d *Deferred[T], f func(kont.Either[error, T]) kont.Expr[B]) kont.Expr[B] {
	return exprAwaitBind(WaitFutureTry[T]{D: d}, f)
}

// ExprTaskBind drives the coroutine to completion under its scheduler and
// passes its result to f.
// Fuses ExprPerform(WaitTask) + ExprBind + Async unwrap.
func ExprTaskBind[T, B any](t Task[T], f func(T) kont.Expr[B]) kont.Expr[B] {
	return exprAwaitBind(WaitTask[T]{Task: t}, f)
}

// ExprSleepThen suspends the task for at least d, then continues with next.
// Task-world only; handled by the task scheduler.
// Fuses ExprPerform(SleepTask) + ExprThen.
func ExprSleepThen[B any](d time.Duration, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = SleepTask{D: d}
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}
