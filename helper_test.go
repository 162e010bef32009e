// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"testing"

	"code.hybscloud.com/fiber"
	"code.hybscloud.com/kont"
)

// runBody submits a Cont-world body on a fresh fiber and drives the loop
// on the calling goroutine until the fiber exits.
func runBody[R any](tb testing.TB, l *fiber.Loop, body kont.Eff[R]) (R, error) {
	tb.Helper()
	h := fiber.Submit(fiber.ManagerOf(l), body)
	return h.GetVia(l)
}

// ctxProbe records where a continuation ran: goroutine identity, whether a
// fiber manager was dispatching there, and whether a fiber's own context
// was active.
type ctxProbe struct {
	tid     uint64
	manager bool
	onFiber bool
}

func captureProbe() ctxProbe {
	return ctxProbe{
		tid:     fiber.ThreadID(),
		manager: fiber.RunningManager() != nil,
		onFiber: fiber.OnFiber(),
	}
}
