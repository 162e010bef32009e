// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Deferred consumer states.
const (
	deferredPending uint32 = iota
	deferredWaiting
	deferredRaw
	deferredDone
	deferredConsumed
)

// Deferred binding modes. The mode is fixed before the computation is
// awaited and is read, not mutated, by the bridge.
const (
	deferredLazy uint32 = iota
	deferredDetached
	deferredVia
)

// Deferred is a computation producing one value (or failure) later, with
// deferred work attached via [Defer]. Where the deferred work runs is the
// binding mode:
//
//   - default (lazy): on the consumer's manager main context, at the point
//     the awaiting fiber is resumed.
//   - [Deferred.Detach]: inline on whichever goroutine completes the
//     underlying computation.
//   - [Deferred.Via]: as a plain callback on the bound loop, outside any
//     manager dispatch.
//
// A Deferred completes once and is awaited once; violating either panics.
type Deferred[T any] struct {
	state atomix.Uint32
	mode  atomix.Uint32
	fired atomix.Uint32
	via   *Loop

	// run is the pending deferred work in lazy mode, set before the state
	// word publishes deferredRaw.
	run func() (T, error)

	v   T
	err error

	// Consumer registration, written before the Pending→Waiting transition.
	// Either a fiber consumer (m, fb) or an internal chained continuation.
	// tryMode delivers failures as an Either instead of failing the fiber.
	m       *Manager
	fb      *fiber
	onChain func(T, error)
	tryMode bool
}

// NewSource creates an unfired deferred computation completed manually via
// Complete or Fail.
func NewSource[T any]() *Deferred[T] {
	return &Deferred[T]{}
}

// Complete fires the computation with a value. Callable from any goroutine,
// exactly once across Complete and Fail.
func (d *Deferred[T]) Complete(v T) {
	d.fire(func() (T, error) { return v, nil })
}

// Fail fires the computation with a failure, delivered transparently to the
// awaiting fiber as its result failure.
func (d *Deferred[T]) Fail(err error) {
	d.fire(func() (T, error) {
		var zero T
		return zero, err
	})
}

// After returns a deferred computation that fires after at least d, from a
// timer goroutine.
func After(d time.Duration) *Deferred[struct{}] {
	out := NewSource[struct{}]()
	time.AfterFunc(d, func() { out.Complete(struct{}{}) })
	return out
}

// Defer attaches deferred work to an upstream computation. The work runs
// according to the downstream computation's binding mode; an upstream
// failure skips f and propagates.
func Defer[A, B any](d *Deferred[A], f func(A) B) *Deferred[B] {
	out := NewSource[B]()
	d.chain(func(v A, err error) {
		out.fire(func() (B, error) {
			if err != nil {
				var zero B
				return zero, err
			}
			return f(v), nil
		})
	})
	return out
}

// Detach binds the computation to no executor: deferred work runs inline on
// the producer's goroutine. Returns d for chaining.
func (d *Deferred[T]) Detach() *Deferred[T] {
	d.mode.Store(deferredDetached)
	return d
}

// Via binds the computation to l's executor: deferred work runs as a plain
// loop callback on l's thread. Returns d for chaining.
func (d *Deferred[T]) Via(l *Loop) *Deferred[T] {
	d.via = l
	d.mode.Store(deferredVia)
	return d
}

// fire delivers the work closure once, honoring the binding mode.
func (d *Deferred[T]) fire(work func() (T, error)) {
	if !d.fired.CompareAndSwap(0, 1) {
		panic("fiber: deferred completed twice")
	}
	switch d.mode.Load() {
	case deferredDetached:
		d.settle(work())
	case deferredVia:
		if err := d.via.Schedule(func() { d.settle(work()) }); err != nil {
			d.settle(d.v, ErrSchedulerShutdown)
		}
	default:
		d.run = work
		d.publish(deferredRaw)
	}
}

func (d *Deferred[T]) settle(v T, err error) {
	d.v, d.err = v, err
	d.publish(deferredDone)
}

// publish moves the state to s and, when a consumer is already registered,
// hands the reactivation to its owning loop.
func (d *Deferred[T]) publish(s uint32) {
	for {
		switch old := d.state.Load(); old {
		case deferredPending:
			if d.state.CompareAndSwap(deferredPending, s) {
				return
			}
		case deferredWaiting:
			if d.state.CompareAndSwap(deferredWaiting, s) {
				if f := d.onChain; f != nil {
					// Chain links are transparent: resolve inline where
					// the computation settled; the downstream applies
					// its own binding mode.
					d.onChain = nil
					d.state.Store(deferredConsumed)
					if s == deferredRaw {
						f(d.run())
					} else {
						f(d.v, d.err)
					}
					return
				}
				m, fb := d.m, d.fb
				d.m, d.fb = nil, nil
				m.reactivateTake(fb, d.take)
				return
			}
		default:
			panic("fiber: deferred completed twice")
		}
	}
}

// chain registers an internal continuation in place of a fiber consumer,
// running inline wherever the computation settles. Used by Defer.
func (d *Deferred[T]) chain(f func(T, error)) {
	for {
		switch old := d.state.Load(); old {
		case deferredPending:
			d.onChain = f
			if d.state.CompareAndSwap(deferredPending, deferredWaiting) {
				return
			}
			d.onChain = nil
		case deferredRaw:
			if d.state.CompareAndSwap(deferredRaw, deferredConsumed) {
				f(d.run())
				return
			}
		case deferredDone:
			if d.state.CompareAndSwap(deferredDone, deferredConsumed) {
				f(d.v, d.err)
				return
			}
		default:
			panic("fiber: deferred already awaited")
		}
	}
}

// take extracts the result on the consumer side. Lazy deferred work runs
// here, on the manager's main context.
func (d *Deferred[T]) take(m *Manager) (kont.Resumed, error) {
	for {
		switch old := d.state.Load(); old {
		case deferredRaw:
			if d.state.CompareAndSwap(deferredRaw, deferredConsumed) {
				var v T
				var err error
				m.onMainContext(func() { v, err = d.run() })
				return d.deliver(v, err)
			}
		case deferredDone:
			if d.state.CompareAndSwap(deferredDone, deferredConsumed) {
				return d.deliver(d.v, d.err)
			}
		default:
			panic("fiber: deferred already awaited")
		}
	}
}

// deliver shapes the resumption value. In try mode an upstream failure
// resumes the fiber with Left(err) instead of failing it.
func (d *Deferred[T]) deliver(v T, err error) (kont.Resumed, error) {
	if d.tryMode {
		if err != nil {
			return Ready(kont.Left[error, T](err)), nil
		}
		return Ready(kont.Right[error](v)), nil
	}
	if err != nil {
		return nil, err
	}
	return Ready(v), nil
}

// dispatchWaitTry is dispatchWait in try mode. The mode is set before the
// Pending→Waiting transition publishes the registration.
func (d *Deferred[T]) dispatchWaitTry(m *Manager, fb *fiber) (kont.Resumed, error) {
	d.tryMode = true
	return d.dispatchWait(m, fb)
}

// dispatchWait attaches the fiber as the computation's consumer.
func (d *Deferred[T]) dispatchWait(m *Manager, fb *fiber) (kont.Resumed, error) {
	for {
		switch old := d.state.Load(); old {
		case deferredPending:
			d.m, d.fb = m, fb
			if d.state.CompareAndSwap(deferredPending, deferredWaiting) {
				return nil, iox.ErrWouldBlock
			}
			d.m, d.fb = nil, nil
		case deferredRaw, deferredDone:
			return d.take(m)
		default:
			panic("fiber: deferred already awaited")
		}
	}
}
