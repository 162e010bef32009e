// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"time"

	"code.hybscloud.com/kont"
)

// WaitThen waits for the baton and then continues with next.
// Fuses Perform(WaitBaton{B: b}) + Then.
func WaitThen[B any](b *Baton, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(WaitBaton{B: b}), next)
}

// WaitForBind waits for the baton for at most d and passes the outcome to
// f: true means posted, false means at least d elapsed first.
// Fuses Perform(WaitBatonFor) + Bind + Async unwrap.
func WaitForBind[B any](b *Baton, d time.Duration, f func(bool) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(WaitBatonFor{B: b, D: d}), func(a Async[bool]) kont.Eff[B] {
		return f(a.Await())
	})
}

// WaitUntilBind is the deadline form of [WaitForBind].
func WaitUntilBind[B any](b *Baton, t time.Time, f func(bool) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(WaitBatonUntil{B: b, T: t}), func(a Async[bool]) kont.Eff[B] {
		return f(a.Await())
	})
}

// PromiseBind runs cb with a one-shot setter, suspends until the setter is
// invoked, and passes the fulfilled value to f.
// Fuses Perform(WaitPromise) + Bind + Async unwrap.
func PromiseBind[T, B any](cb func(Promise[T]), f func(T) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(WaitPromise[T]{F: cb}), func(a Async[T]) kont.Eff[B] {
		return f(a.Await())
	})
}

// FutureBind suspends until the deferred computation completes and passes
// its value to f. An upstream failure skips f and fails the fiber.
// Fuses Perform(WaitFuture) + Bind + Async unwrap.
func FutureBind[T, B any](d *Deferred[T], f func(T) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(WaitFuture[T]{D: d}), func(a Async[T]) kont.Eff[B] {
		return f(a.Await())
	})
}

// FutureBindTry is the try form of [FutureBind]: f receives Right(v) on
// success or Left(err) on upstream failure, and the fiber continues either
// way. Fuses Perform(WaitFutureTry) + Bind + Async unwrap.
func FutureBindTry[T, B any](d *Deferred[T], f func(kont.Either[error, T]) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(WaitFutureTry[T]{D: d}), func(a Async[kont.Either[error, T]]) kont.Eff[B] {
		return f(a.Await())
	})
}

// TaskBind hands the coroutine to its scheduler, suspends until it runs to
// completion, and passes its result to f. Work after the await runs back
// on the fiber's own context.
// Fuses Perform(WaitTask) + Bind + Async unwrap.
func TaskBind[T, B any](t Task[T], f func(T) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(WaitTask[T]{Task: t}), func(a Async[T]) kont.Eff[B] {
		return f(a.Await())
	})
}
