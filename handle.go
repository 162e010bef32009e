// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// handleCapacity is the bounded capacity of the completion hand-off queue.
// Completion is a single enqueue; 4 keeps the ring within a cache line.
const handleCapacity = 4

// fiberResult is the delivered outcome of one fiber.
type fiberResult[R any] struct {
	v   R
	err error
}

// Handle observes one submitted fiber. Its completion channel is a bounded
// lock-free SPSC queue: single producer (the owning loop delivering the
// result) and single consumer (one goroutine blocked in Join).
type Handle[R any] struct {
	serial Serial
	done   atomix.Uint32
	v      R
	err    error
	slot   fiberResult[R]
	q      lfq.SPSC[fiberResult[R]]
}

func newHandle[R any]() *Handle[R] {
	h := &Handle[R]{serial: nextSerial()}
	h.q.Init(handleCapacity)
	return h
}

// Serial returns the serial number assigned to this handle's fiber.
func (h *Handle[R]) Serial() Serial {
	return h.serial
}

// complete implements the manager's erased completion channel.
func (h *Handle[R]) complete(v any, err error) {
	if h.done.Load() != 0 {
		panic("fiber: handle completed twice")
	}
	if err == nil && v != nil {
		h.v = v.(R)
	}
	h.err = err
	h.slot = fiberResult[R]{v: h.v, err: err}
	_ = h.q.Enqueue(&h.slot)
	h.done.Store(1)
}

// Done reports whether the fiber exited and its result was delivered.
func (h *Handle[R]) Done() bool {
	return h.done.Load() != 0
}

// GetVia drives l on the calling goroutine until the fiber exits, then
// returns its result. The calling goroutine is the loop's thread for the
// duration.
func (h *Handle[R]) GetVia(l *Loop) (R, error) {
	l.RunUntil(h.Done)
	if !h.Done() {
		var zero R
		return zero, ErrSchedulerShutdown
	}
	return h.v, h.err
}

// Join blocks the calling goroutine until the fiber exits, waiting past
// the empty-queue boundary with adaptive backoff. Some other goroutine
// must be driving the loop. At most one goroutine may Join a handle.
func (h *Handle[R]) Join() (R, error) {
	var bo iox.Backoff
	for {
		r, err := h.q.Dequeue()
		if err == nil {
			return r.v, r.err
		}
		bo.Wait()
	}
}
