// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"testing"
	"time"

	"code.hybscloud.com/fiber"
	"code.hybscloud.com/kont"
)

func TestTimedWaitNeverEarly(t *testing.T) {
	if testing.Short() {
		t.Skip("skip: timing sweep")
	}
	for _, d := range []time.Duration{
		5 * time.Millisecond,
		17 * time.Millisecond,
		33 * time.Millisecond,
		80 * time.Millisecond,
	} {
		l := fiber.NewLoop()
		var b fiber.Baton
		start := time.Now()
		got, err := runBody(t, l, fiber.WaitForBind(&b, d, func(posted bool) kont.Eff[bool] {
			return kont.Pure(posted)
		}))
		if err != nil {
			t.Fatalf("timeout %v: wait error: %v", d, err)
		}
		if got {
			t.Fatalf("timeout %v: reported posted on an unposted baton", d)
		}
		if elapsed := time.Since(start); elapsed < d {
			t.Fatalf("timeout %v: returned after %v", d, elapsed)
		}
	}
}

func TestPerFiberResumptionOrder(t *testing.T) {
	const nFibers, nSteps = 8, 6
	l := fiber.NewLoop()
	m := fiber.ManagerOf(l)

	// Each fiber awaits a sequence of promises fulfilled from staggered
	// goroutines. Whatever the global interleaving, each fiber must observe
	// its own values in program order. Continuations all run on the loop's
	// thread, so the seen slices need no locking.
	seen := make([][]int, nFibers)
	handles := make([]*fiber.Handle[int], nFibers)
	for i := range handles {
		i := i
		handles[i] = fiber.Submit(m, fiber.Iterate(0, func(n int) kont.Eff[kont.Either[int, int]] {
			if n >= nSteps {
				return kont.Pure(kont.Right[int, int](n))
			}
			delay := time.Duration((i*7+n*3)%5) * time.Millisecond
			return fiber.PromiseBind(
				func(p fiber.Promise[int]) {
					go func() {
						time.Sleep(delay)
						p.SetValue(n)
					}()
				},
				func(v int) kont.Eff[kont.Either[int, int]] {
					seen[i] = append(seen[i], v)
					return kont.Pure(kont.Left[int, int](n + 1))
				},
			)
		}))
	}

	l.RunUntil(func() bool {
		for _, h := range handles {
			if !h.Done() {
				return false
			}
		}
		return true
	})
	for i, h := range handles {
		if got, err := h.GetVia(l); err != nil || got != nSteps {
			t.Fatalf("fiber %d finished (%d, %v), want (%d, nil)", i, got, err, nSteps)
		}
		if len(seen[i]) != nSteps {
			t.Fatalf("fiber %d observed %d values, want %d", i, len(seen[i]), nSteps)
		}
		for k, v := range seen[i] {
			if v != k {
				t.Fatalf("fiber %d observed %v, want program order", i, seen[i])
			}
		}
	}
}
