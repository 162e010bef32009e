// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"runtime"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Promise fulfillment states.
const (
	promisePending uint32 = iota
	promiseFulfilled
	promiseAbandoned
	promiseFailed
)

// promiseState is the shared one-shot channel between the setter handle and
// the suspended fiber. It carries a finalizer: collected unfulfilled, it
// fails the fiber with ErrPromiseAbandoned instead of hanging it.
type promiseState[T any] struct {
	state atomix.Uint32
	m     *Manager
	fb    *fiber
}

// Promise is the setter side of the promise/callback bridge. It is a linear
// resource: exactly one SetValue call is permitted. Fulfilling twice, or
// fulfilling the zero Promise, panics.
type Promise[T any] struct {
	st *promiseState[T]
}

// SetValue fulfills the promise and resumes the awaiting fiber with v.
// Safe to call from any goroutine.
func (p Promise[T]) SetValue(v T) {
	st := p.st
	if st == nil {
		panic("fiber: SetValue on zero Promise")
	}
	if !st.state.CompareAndSwap(promisePending, promiseFulfilled) {
		panic("fiber: promise fulfilled twice")
	}
	runtime.SetFinalizer(st, nil)
	st.m.reactivate(st.fb, Ready(v), nil)
}

// dispatchPromise runs the user callback with a fresh promise bound to the
// fiber. The callback runs on the manager's main context, never on the
// fiber's own context. A callback panic, before fulfillment, fails the
// fiber with PanicError; a panic after fulfillment is a usage error and
// propagates to the loop driver.
func dispatchPromise[T any](m *Manager, fb *fiber, f func(Promise[T])) (kont.Resumed, error) {
	st := &promiseState[T]{m: m, fb: fb}
	runtime.SetFinalizer(st, abandonPromise[T])
	recovered := m.callGuarded(func() { f(Promise[T]{st: st}) })
	if recovered != nil {
		if st.state.CompareAndSwap(promisePending, promiseFailed) {
			runtime.SetFinalizer(st, nil)
			return nil, PanicError{Value: recovered}
		}
		panic(recovered)
	}
	return nil, iox.ErrWouldBlock
}

// abandonPromise is the teardown check for the promise's linear-resource
// contract: unreachable and never fulfilled means no resumption would ever
// occur, so the fiber fails loudly instead.
func abandonPromise[T any](st *promiseState[T]) {
	if st.state.CompareAndSwap(promisePending, promiseAbandoned) {
		st.m.reactivate(st.fb, nil, ErrPromiseAbandoned)
	}
}
