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

// Baton states. Unset→Posted is terminal; Waiting publishes a registered
// waiter; Detached marks a timed wait that gave up.
const (
	batonUnset uint32 = iota
	batonPosted
	batonWaiting
	batonDetached
)

// Baton is a single-producer single-consumer one-shot binary signal.
// One fiber may wait, suspending; one poster may complete it from any
// goroutine. Posting before any wait leaves the baton set, so a later wait
// returns immediately without suspending. Posting twice panics.
type Baton struct {
	state atomix.Uint32

	// Waiter registration. Written by the owning loop's thread before the
	// state word publishes batonWaiting; read by the poster only after it
	// wins the Waiting→Posted transition.
	m     *Manager
	fb    *fiber
	timed bool
}

// Post completes the baton. Safe to call from any goroutine; the waiter's
// reactivation is marshaled onto its owning loop.
func (b *Baton) Post() {
	for {
		switch s := b.state.Load(); s {
		case batonUnset, batonDetached:
			if b.state.CompareAndSwap(s, batonPosted) {
				return
			}
		case batonWaiting:
			if b.state.CompareAndSwap(batonWaiting, batonPosted) {
				m, fb, timed := b.m, b.fb, b.timed
				b.m, b.fb = nil, nil
				if timed {
					m.reactivate(fb, Ready(true), nil)
				} else {
					m.reactivate(fb, Ready(struct{}{}), nil)
				}
				return
			}
		case batonPosted:
			panic("fiber: baton posted twice")
		}
	}
}

// attach registers the fiber as the single waiter.
// Reports false when the baton is already posted.
func (b *Baton) attach(m *Manager, fb *fiber, timed bool) bool {
	for {
		switch s := b.state.Load(); s {
		case batonUnset, batonDetached:
			b.m, b.fb, b.timed = m, fb, timed
			if b.state.CompareAndSwap(s, batonWaiting) {
				return true
			}
			b.m, b.fb = nil, nil
		case batonPosted:
			return false
		case batonWaiting:
			panic("fiber: baton already has a waiter")
		}
	}
}

// dispatchWait handles the untimed wait on the owning loop's thread.
func (b *Baton) dispatchWait(m *Manager, fb *fiber) (kont.Resumed, error) {
	if !b.attach(m, fb, false) {
		return Ready(struct{}{}), nil
	}
	return nil, iox.ErrWouldBlock
}

// dispatchTimedWait handles the timed wait. The timeout fires only once the
// deadline has passed (never early); on timeout the waiter is detached and
// no late wakeup is delivered.
func (b *Baton) dispatchTimedWait(m *Manager, fb *fiber, deadline time.Time) (kont.Resumed, error) {
	if !b.attach(m, fb, true) {
		return Ready(true), nil
	}
	err := m.loop.ScheduleAt(deadline, func() {
		if b.state.CompareAndSwap(batonWaiting, batonDetached) {
			wm, wfb := b.m, b.fb
			b.m, b.fb = nil, nil
			wm.reactivate(wfb, Ready(false), nil)
		}
	})
	if err != nil {
		// Loop tore down between dispatch and arming.
		if b.state.CompareAndSwap(batonWaiting, batonDetached) {
			b.m, b.fb = nil, nil
		}
		return nil, ErrSchedulerShutdown
	}
	return nil, iox.ErrWouldBlock
}
