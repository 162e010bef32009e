// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"code.hybscloud.com/kont"
)

// Fiber scheduling states. All transitions happen on the owning loop's
// thread; reactivations from other goroutines are marshaled there first.
type fiberState uint32

const (
	fiberReady fiberState = iota
	fiberRunning
	fiberSuspended
	fiberExited
)

// fiber is one cooperative execution context: a type-erased computation,
// its current suspension, and at most one pending resumption value. A fiber
// is owned exclusively by the manager of the loop it was submitted to and
// never migrates.
type fiber struct {
	state fiberState

	// comp holds the body until the first dispatch turn, then is cleared.
	comp kont.Expr[kont.Erased]

	// susp is the current suspension while the fiber is parked.
	susp *kont.Suspension[kont.Erased]

	// pending is the resumption value set by reactivation, consumed by the
	// next dispatch turn.
	pending kont.Resumed

	h completion
}

// completion is the typed handle's erased completion channel.
type completion interface {
	complete(v kont.Erased, err error)
}
