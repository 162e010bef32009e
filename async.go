// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"code.hybscloud.com/atomix"
)

// asyncCell is the shared one-shot state behind an Async value.
// state: 0 unconsumed, 1 consumed.
type asyncCell[T any] struct {
	state atomix.Uint32
	v     T
}

// Async is the strongly-typed container for the value produced when a
// suspension completes. It holds exactly one value of its instantiation
// type, which may be a value, a pointer, or a composite such as a tuple
// struct or a [kont.Either] optional.
//
// An Async is a linear resource: it is constructed once, at the point an
// asynchronous producer finishes computing, and consumed exactly once by
// [Async.Await]. Consuming it twice, or consuming the zero Async, panics.
// A pointer payload is handed through untouched; the referent's lifetime
// is the caller's responsibility.
type Async[T any] struct {
	cell *asyncCell[T]
}

// Ready wraps a computed value. The value is stored, never copied again:
// Await hands back the same payload.
func Ready[T any](v T) Async[T] {
	return Async[T]{cell: &asyncCell[T]{v: v}}
}

// Await extracts the value. Each Async may be awaited at most once.
func (a Async[T]) Await() T {
	if a.cell == nil {
		panic("fiber: await of zero Async")
	}
	if !a.cell.state.CompareAndSwap(0, 1) {
		panic("fiber: Async awaited twice")
	}
	return a.cell.v
}

// InnerType is a phantom witness for the instantiation type.
// It exists so the inner type, including pointer shape, can be checked at
// compile time via a method expression; calling it panics.
func (a Async[T]) InnerType() T {
	panic("fiber: phantom")
}

// isAsync marks all Async instantiations for the IsAsync predicate.
func (a Async[T]) isAsync() {}

// asyncMarker is the structural marker implemented only by Async values.
type asyncMarker interface {
	isAsync()
}

// IsAsync reports whether v is an instantiation of [Async].
// Plain values of any other type report false.
func IsAsync(v any) bool {
	_, ok := v.(asyncMarker)
	return ok
}

// MapAsync converts a wrapper over A into a wrapper over B in a single
// conversion step. The input is consumed; the converted value is stored
// by move, never copied twice.
func MapAsync[A, B any](a Async[A], f func(A) B) Async[B] {
	return Ready(f(a.Await()))
}
