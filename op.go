// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"time"

	"code.hybscloud.com/kont"
)

// awaitDispatcher is the structural interface for await operations.
// DispatchAwait is called by the manager on the owning loop's thread while
// the awaiting fiber is the active one. It returns:
//
//   - (v, nil): the primitive already completed; the fiber resumes with v
//     in the same dispatch turn, without suspending.
//   - (nil, iox.ErrWouldBlock): interest was registered; the fiber stays
//     suspended until the primitive reactivates it through the manager.
//   - (nil, err): the bridge failed at registration; the fiber completes
//     with err as its result failure.
type awaitDispatcher interface {
	DispatchAwait(m *Manager, fb *fiber) (kont.Resumed, error)
}

// WaitBaton is the await operation for an untimed baton wait.
// Perform(WaitBaton{B: b}) suspends until b is posted; a pre-posted baton
// completes without suspending.
type WaitBaton struct {
	kont.Phantom[Async[struct{}]]
	B *Baton
}

// DispatchAwait attaches the fiber as the baton's single waiter.
func (w WaitBaton) DispatchAwait(m *Manager, fb *fiber) (kont.Resumed, error) {
	return w.B.dispatchWait(m, fb)
}

// WaitBatonFor is the await operation for a timed baton wait.
// Resumes with Async[bool]: true if posted, false if at least D elapsed.
type WaitBatonFor struct {
	kont.Phantom[Async[bool]]
	B *Baton
	D time.Duration
}

// DispatchAwait attaches the waiter and arms a loop timer for the deadline.
func (w WaitBatonFor) DispatchAwait(m *Manager, fb *fiber) (kont.Resumed, error) {
	return w.B.dispatchTimedWait(m, fb, time.Now().Add(w.D))
}

// WaitBatonUntil is the deadline form of [WaitBatonFor].
type WaitBatonUntil struct {
	kont.Phantom[Async[bool]]
	B *Baton
	T time.Time
}

// DispatchAwait attaches the waiter and arms a loop timer for T.
func (w WaitBatonUntil) DispatchAwait(m *Manager, fb *fiber) (kont.Resumed, error) {
	return w.B.dispatchTimedWait(m, fb, w.T)
}

// WaitPromise is the await operation for the promise/callback bridge.
// F runs synchronously on the manager's main context at dispatch, never on
// the fiber's own context, and receives the one-shot setter.
type WaitPromise[T any] struct {
	kont.Phantom[Async[T]]
	F func(Promise[T])
}

// DispatchAwait runs the callback with a fresh promise bound to the fiber.
// A panicking callback fails the fiber with [PanicError] instead of
// suspending forever.
func (w WaitPromise[T]) DispatchAwait(m *Manager, fb *fiber) (kont.Resumed, error) {
	return dispatchPromise(m, fb, w.F)
}

// WaitFuture is the await operation for the deferred-future bridge.
// Where the deferred work runs is fixed by D's binding mode; see [Deferred].
type WaitFuture[T any] struct {
	kont.Phantom[Async[T]]
	D *Deferred[T]
}

// DispatchAwait attaches the fiber as the deferred computation's consumer.
func (w WaitFuture[T]) DispatchAwait(m *Manager, fb *fiber) (kont.Resumed, error) {
	return w.D.dispatchWait(m, fb)
}

// WaitFutureTry is the try form of [WaitFuture]: an upstream failure resumes
// the fiber with Left(err) instead of failing it, so the body can handle the
// failure in-line.
type WaitFutureTry[T any] struct {
	kont.Phantom[Async[kont.Either[error, T]]]
	D *Deferred[T]
}

// DispatchAwait attaches the fiber as the consumer in try mode.
func (w WaitFutureTry[T]) DispatchAwait(m *Manager, fb *fiber) (kont.Resumed, error) {
	return w.D.dispatchWaitTry(m, fb)
}

// WaitTask is the await operation for the coroutine-task bridge.
// The scheduler owns the task's timed suspensions; resumption steps execute
// on the awaiting fiber's own context. A nil Scheduler uses the default.
type WaitTask[T any] struct {
	kont.Phantom[Async[T]]
	Task      Task[T]
	Scheduler *TaskScheduler
}

// DispatchAwait starts driving the task; a task that completes without
// suspending resumes the fiber in the same turn.
func (w WaitTask[T]) DispatchAwait(m *Manager, fb *fiber) (kont.Resumed, error) {
	s := w.Scheduler
	if s == nil {
		s = defaultTaskScheduler
	}
	return dispatchTask(s, m, fb, w.Task)
}
