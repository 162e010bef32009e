// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"runtime"
	"sync"
)

// Execution-context probes. A bridged continuation may run in one of three
// places, and the probes let callers tell them apart:
//
//   - an arbitrary producer goroutine: RunningManager() == nil, OnFiber() == false
//   - a manager's main context (dispatch machinery, promise callbacks, lazily
//     deferred work): RunningManager() != nil, OnFiber() == false
//   - a fiber's own context (fiber bodies, awaited task steps):
//     RunningManager() != nil, OnFiber() == true

// probes maps a goroutine to the Manager currently dispatching on it.
// Multi-reader, keyed by goroutine id; outside lfq's SPSC contract,
// so a plain RWMutex-guarded map.
var probes struct {
	mu      sync.RWMutex
	running map[uint64]*Manager
}

func init() {
	probes.running = make(map[uint64]*Manager)
}

// ThreadID returns the identity of the calling goroutine.
func ThreadID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:"
	var id uint64
	for _, c := range buf[len("goroutine "):n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// RunningManager returns the [Manager] whose dispatch machinery is active on
// the calling goroutine, or nil when called outside any manager dispatch.
func RunningManager() *Manager {
	id := ThreadID()
	probes.mu.RLock()
	m := probes.running[id]
	probes.mu.RUnlock()
	return m
}

// OnFiber reports whether the calling goroutine is currently executing a
// fiber's own context, as opposed to a manager's main context or a plain
// loop callback.
func OnFiber() bool {
	m := RunningManager()
	return m != nil && m.activeFiber != nil
}

// enter marks m as the running manager for the calling goroutine.
// The returned function restores the previous registration.
func (m *Manager) enter() func() {
	id := ThreadID()
	probes.mu.Lock()
	prev := probes.running[id]
	probes.running[id] = m
	probes.mu.Unlock()
	return func() {
		probes.mu.Lock()
		if prev == nil {
			delete(probes.running, id)
		} else {
			probes.running[id] = prev
		}
		probes.mu.Unlock()
	}
}

// onMainContext runs f on the manager's main context: the running manager
// stays registered while the active fiber, if any, is masked out.
func (m *Manager) onMainContext(f func()) {
	save := m.activeFiber
	m.activeFiber = nil
	defer func() { m.activeFiber = save }()
	f()
}
