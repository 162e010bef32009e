// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Manager is the cooperative fiber scheduler of one loop. It owns the
// loop's fibers, runs Ready fibers to their next suspension point on the
// loop's thread, and re-arms them when an awaited primitive completes.
// At most one fiber is Running at any instant; ordinary function calls in
// a fiber body never yield — suspension happens only at await operations.
type Manager struct {
	loop *Loop

	// Admissions in flight between Submit and the loop-thread enqueue.
	// A fiber sits here while its enqueue callback is still queued on the
	// loop; shutdown fails whatever is left so no handle hangs.
	pendMu sync.Mutex
	pend   map[*fiber]struct{}

	// Scheduler state below is touched only by the loop's thread.
	ready         []*fiber
	turnScheduled bool
	activeFiber   *fiber
	live          map[*fiber]struct{}

	closed atomix.Uint32
}

// managers maps each loop to its manager.
var managers struct {
	mu     sync.Mutex
	byLoop map[*Loop]*Manager
}

// ManagerOf returns the manager attached to l, creating it on first use.
func ManagerOf(l *Loop) *Manager {
	managers.mu.Lock()
	defer managers.mu.Unlock()
	if managers.byLoop == nil {
		managers.byLoop = make(map[*Loop]*Manager)
	}
	m := managers.byLoop[l]
	if m == nil {
		m = &Manager{
			loop: l,
			pend: make(map[*fiber]struct{}),
			live: make(map[*fiber]struct{}),
		}
		if l.Closed() {
			m.closed.Store(1)
		}
		managers.byLoop[l] = m
	}
	return m
}

// detachManager removes and returns l's manager, if any. Called by Close.
func detachManager(l *Loop) *Manager {
	managers.mu.Lock()
	defer managers.mu.Unlock()
	m := managers.byLoop[l]
	delete(managers.byLoop, l)
	return m
}

// Loop returns the owning loop.
func (m *Manager) Loop() *Loop {
	return m.loop
}

// Submit creates a fiber on m's loop affinity running a Cont-world body,
// and enqueues it Ready. Reifies into Expr-world before scheduling.
// Safe for concurrent use.
func Submit[R any](m *Manager, body kont.Eff[R]) *Handle[R] {
	return SubmitExpr(m, kont.Reify(body))
}

// SubmitExpr creates a fiber on m's loop affinity running an Expr-world
// body, and enqueues it Ready. After loop teardown the handle completes
// immediately with ErrSchedulerShutdown. Safe for concurrent use.
func SubmitExpr[R any](m *Manager, body kont.Expr[R]) *Handle[R] {
	h := newHandle[R]()
	if m.closed.Load() != 0 {
		h.complete(nil, ErrSchedulerShutdown)
		return h
	}
	fb := &fiber{
		state: fiberReady,
		comp:  kont.ExprMap(body, func(r R) kont.Erased { return kont.Erased(r) }),
		h:     h,
	}
	m.admit(fb)
	if err := m.loop.Schedule(func() { m.enqueue(fb) }); err != nil {
		if m.withdraw(fb) {
			h.complete(nil, ErrSchedulerShutdown)
		}
	}
	return h
}

// admit registers an in-flight admission so teardown cannot drop it.
func (m *Manager) admit(fb *fiber) {
	m.pendMu.Lock()
	m.pend[fb] = struct{}{}
	m.pendMu.Unlock()
}

// withdraw claims an in-flight admission. Reports false when shutdown
// already claimed it and failed the handle.
func (m *Manager) withdraw(fb *fiber) bool {
	m.pendMu.Lock()
	_, ok := m.pend[fb]
	delete(m.pend, fb)
	m.pendMu.Unlock()
	return ok
}

// enqueue admits a fiber to the ready queue. Loop thread only.
func (m *Manager) enqueue(fb *fiber) {
	if !m.withdraw(fb) {
		return
	}
	if m.closed.Load() != 0 {
		fb.state = fiberExited
		fb.h.complete(nil, ErrSchedulerShutdown)
		return
	}
	m.live[fb] = struct{}{}
	m.ready = append(m.ready, fb)
	m.scheduleTurn()
}

func (m *Manager) scheduleTurn() {
	if m.turnScheduled {
		return
	}
	m.turnScheduled = true
	if err := m.loop.Schedule(m.turn); err != nil {
		m.turnScheduled = false
	}
}

// turn pops and runs every Ready fiber, FIFO, until the queue empties.
func (m *Manager) turn() {
	m.turnScheduled = false
	exit := m.enter()
	defer exit()
	for len(m.ready) > 0 {
		fb := m.ready[0]
		m.ready = m.ready[1:]
		m.runFiber(fb)
	}
}

// runFiber steps one fiber until it suspends or exits. Immediate awaits
// (pre-posted baton, settled deferred, non-suspending task) resume within
// the same call without parking the fiber.
func (m *Manager) runFiber(fb *fiber) {
	fb.state = fiberRunning
	m.activeFiber = fb

	var v kont.Erased
	var susp *kont.Suspension[kont.Erased]
	if fb.susp == nil {
		v, susp = kont.StepExpr(fb.comp)
		fb.comp = kont.Expr[kont.Erased]{}
	} else {
		susp = fb.susp
		fb.susp = nil
		v, susp = susp.Resume(fb.pending)
		fb.pending = nil
	}

	for {
		if susp == nil {
			m.activeFiber = nil
			m.exit(fb, v, nil)
			return
		}
		op, ok := susp.Op().(awaitDispatcher)
		if !ok {
			panic("fiber: unhandled effect in fiber body")
		}
		rv, err := op.DispatchAwait(m, fb)
		switch {
		case err == nil:
			v, susp = susp.Resume(rv)
		case iox.IsWouldBlock(err):
			fb.susp = susp
			fb.state = fiberSuspended
			m.activeFiber = nil
			return
		default:
			susp.Discard()
			m.activeFiber = nil
			m.exit(fb, nil, err)
			return
		}
	}
}

// exit retires a fiber and delivers its result (or failure) to the handle.
func (m *Manager) exit(fb *fiber, v kont.Erased, err error) {
	fb.state = fiberExited
	delete(m.live, fb)
	fb.h.complete(v, err)
}

// reactivate transitions a suspended fiber Ready with a resumption value or
// failure. Safe to call from any goroutine: the transition is marshaled
// onto the owning loop. After teardown the reactivation is dropped here
// because shutdown already failed the fiber's handle.
func (m *Manager) reactivate(fb *fiber, v kont.Resumed, err error) {
	_ = m.loop.Schedule(func() { m.finish(fb, v, err) })
}

// reactivateTake is reactivate with a consumer-side extraction step that
// must run on the manager's main context (lazily deferred work).
func (m *Manager) reactivateTake(fb *fiber, take func(*Manager) (kont.Resumed, error)) {
	_ = m.loop.Schedule(func() {
		exit := m.enter()
		v, err := take(m)
		exit()
		m.finish(fb, v, err)
	})
}

// finish completes a reactivation on the loop thread.
func (m *Manager) finish(fb *fiber, v kont.Resumed, err error) {
	if fb.state != fiberSuspended {
		return
	}
	if err != nil {
		fb.susp.Discard()
		fb.susp = nil
		m.exit(fb, nil, err)
		return
	}
	fb.pending = v
	fb.state = fiberReady
	m.ready = append(m.ready, fb)
	m.scheduleTurn()
}

// callGuarded runs f on the main context, capturing a panic payload.
func (m *Manager) callGuarded(f func()) (recovered any) {
	m.onMainContext(func() {
		defer func() { recovered = recover() }()
		f()
	})
	return
}

// shutdown fails every live fiber with ErrSchedulerShutdown. Nothing is
// dropped silently: handles of suspended, Ready, and still-unadmitted
// fibers all complete.
func (m *Manager) shutdown() {
	m.closed.Store(1)
	m.pendMu.Lock()
	pend := m.pend
	m.pend = make(map[*fiber]struct{})
	m.pendMu.Unlock()
	for fb := range pend {
		fb.state = fiberExited
		fb.h.complete(nil, ErrSchedulerShutdown)
	}
	for fb := range m.live {
		if fb.susp != nil {
			fb.susp.Discard()
			fb.susp = nil
		}
		fb.state = fiberExited
		fb.h.complete(nil, ErrSchedulerShutdown)
	}
	m.live = make(map[*fiber]struct{})
	m.ready = nil
}
