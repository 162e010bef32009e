// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// Loop is a minimal single-consumer reactor: callbacks and timers handed in
// from any goroutine, drained by exactly one goroutine at a time.
//
// The goroutine driving [Loop.Poll] or [Loop.RunUntil] is the loop's thread
// for that span. Only that goroutine ever runs scheduled callbacks, timer
// callbacks, or fiber bodies. Everything crossing in from other goroutines
// goes through Schedule's mutex-guarded hand-off.
type Loop struct {
	mu       sync.Mutex
	queue    []func()
	timers   timerHeap
	timerSeq uint64
	closed   atomix.Uint32
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Schedule enqueues fn to run on the loop's thread.
// Safe for concurrent use. Returns ErrLoopClosed after Close; the callback
// is not retained in that case.
func (l *Loop) Schedule(fn func()) error {
	if l.closed.Load() != 0 {
		return ErrLoopClosed
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	return nil
}

// ScheduleAt enqueues fn to run on the loop's thread no earlier than at.
// The callback never fires before the deadline; it may fire later under
// scheduler load.
func (l *Loop) ScheduleAt(at time.Time, fn func()) error {
	if l.closed.Load() != 0 {
		return ErrLoopClosed
	}
	l.mu.Lock()
	l.timerSeq++
	l.timers.push(timerEntry{at: at, seq: l.timerSeq, fn: fn})
	l.mu.Unlock()
	return nil
}

// ScheduleAfter enqueues fn to run on the loop's thread after at least d.
func (l *Loop) ScheduleAfter(d time.Duration, fn func()) error {
	return l.ScheduleAt(time.Now().Add(d), fn)
}

// Poll runs one batch: all due timers, then all callbacks queued so far.
// Non-blocking: returns iox.ErrWouldBlock when nothing was ready.
func (l *Loop) Poll() error {
	if l.closed.Load() != 0 {
		return ErrLoopClosed
	}
	now := time.Now()
	var due []func()
	l.mu.Lock()
	for len(l.timers) > 0 && !l.timers[0].at.After(now) {
		due = append(due, l.timers.pop().fn)
	}
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	if len(due) == 0 && len(batch) == 0 {
		return iox.ErrWouldBlock
	}
	for _, fn := range due {
		fn()
	}
	for _, fn := range batch {
		fn()
	}
	return nil
}

// RunUntil drives Poll on the calling goroutine until done reports true,
// waiting past the iox.ErrWouldBlock boundary with adaptive backoff.
// Returns early if the loop closes.
func (l *Loop) RunUntil(done func() bool) {
	var bo iox.Backoff
	for !done() {
		err := l.Poll()
		switch {
		case err == nil:
			bo.Reset()
		case iox.IsWouldBlock(err):
			bo.Wait()
		default:
			return
		}
	}
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	return l.closed.Load() != 0
}

// Close tears the loop down. The attached manager, if any, fails all live
// fibers with ErrSchedulerShutdown; later Schedule calls return
// ErrLoopClosed. Close must not run concurrently with Poll.
func (l *Loop) Close() {
	if !l.closed.CompareAndSwap(0, 1) {
		return
	}
	if m := detachManager(l); m != nil {
		m.shutdown()
	}
	l.mu.Lock()
	l.queue = nil
	l.timers = nil
	l.mu.Unlock()
}

// timerEntry is one pending deadline. seq breaks ties FIFO.
type timerEntry struct {
	at  time.Time
	seq uint64
	fn  func()
}

// timerHeap is a binary min-heap ordered by deadline, then arrival.
type timerHeap []timerEntry

func (h timerEntry) less(o timerEntry) bool {
	if h.at.Equal(o.at) {
		return h.seq < o.seq
	}
	return h.at.Before(o.at)
}

func (h *timerHeap) push(e timerEntry) {
	*h = append(*h, e)
	q := *h
	i := len(q) - 1
	for i > 0 {
		p := (i - 1) / 2
		if !q[i].less(q[p]) {
			break
		}
		q[i], q[p] = q[p], q[i]
		i = p
	}
}

func (h *timerHeap) pop() timerEntry {
	q := *h
	top := q[0]
	n := len(q) - 1
	q[0] = q[n]
	q[n] = timerEntry{}
	q = q[:n]
	i := 0
	for {
		c := 2*i + 1
		if c >= n {
			break
		}
		if c+1 < n && q[c+1].less(q[c]) {
			c++
		}
		if !q[c].less(q[i]) {
			break
		}
		q[i], q[c] = q[c], q[i]
		i = c
	}
	*h = q
	return top
}
