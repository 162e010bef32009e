// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"testing"

	"code.hybscloud.com/fiber"
	"code.hybscloud.com/kont"
)

// BenchmarkSubmit measures submit-to-exit latency of a pure fiber body.
func BenchmarkSubmit(b *testing.B) {
	skipRace(b)
	b.ReportAllocs()
	l := fiber.NewLoop()
	m := fiber.ManagerOf(l)
	for b.Loop() {
		h := fiber.Submit(m, kont.Pure(42))
		if _, err := h.GetVia(l); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBatonRoundTrip measures a pre-posted baton await, the
// no-suspension fast path through dispatch.
func BenchmarkBatonRoundTrip(b *testing.B) {
	skipRace(b)
	b.ReportAllocs()
	l := fiber.NewLoop()
	m := fiber.ManagerOf(l)
	for b.Loop() {
		bt := new(fiber.Baton)
		bt.Post()
		h := fiber.Submit(m, fiber.WaitThen(bt, kont.Pure(struct{}{})))
		if _, err := h.GetVia(l); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPromiseRoundTrip measures suspend-reactivate-resume through the
// promise bridge with an inline fulfillment.
func BenchmarkPromiseRoundTrip(b *testing.B) {
	skipRace(b)
	b.ReportAllocs()
	l := fiber.NewLoop()
	m := fiber.ManagerOf(l)
	for b.Loop() {
		h := fiber.Submit(m, fiber.PromiseBind(
			func(p fiber.Promise[int]) { p.SetValue(1) },
			func(v int) kont.Eff[int] { return kont.Pure(v) },
		))
		if _, err := h.GetVia(l); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExprPromiseRoundTrip is the Expr-world form of
// BenchmarkPromiseRoundTrip, exercising the fused frames.
func BenchmarkExprPromiseRoundTrip(b *testing.B) {
	skipRace(b)
	b.ReportAllocs()
	l := fiber.NewLoop()
	m := fiber.ManagerOf(l)
	for b.Loop() {
		h := fiber.SubmitExpr(m, fiber.ExprPromiseBind(
			func(p fiber.Promise[int]) { p.SetValue(1) },
			func(v int) kont.Expr[int] { return kont.ExprReturn(v) },
		))
		if _, err := h.GetVia(l); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFutureRoundTrip measures a pre-completed deferred await.
func BenchmarkFutureRoundTrip(b *testing.B) {
	skipRace(b)
	b.ReportAllocs()
	l := fiber.NewLoop()
	m := fiber.ManagerOf(l)
	for b.Loop() {
		d := fiber.NewSource[int]()
		d.Complete(1)
		h := fiber.Submit(m, fiber.FutureBind(d, func(v int) kont.Eff[int] {
			return kont.Pure(v)
		}))
		if _, err := h.GetVia(l); err != nil {
			b.Fatal(err)
		}
	}
}
