// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
	"code.hybscloud.com/lfq"
)

// Task is an independently schedulable coroutine: an Expr-world computation
// whose own suspension points are [SleepTask] operations, owned by a
// [TaskScheduler] while running. A fiber awaiting a task observes only its
// completion; the scheduler owns the task's timing.
type Task[R any] = kont.Expr[R]

// SleepTask is the task-world suspension operation: suspend the task for at
// least D. It is handled by the task scheduler, never by a fiber manager.
type SleepTask struct {
	kont.Phantom[struct{}]
	D time.Duration
}

// SleepThen suspends the task for at least d, then continues with next
// (Cont-world).
func SleepThen[B any](d time.Duration, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(SleepTask{D: d}), next)
}

// TaskScheduler drives coroutine tasks independently of any fiber manager.
// Detached tasks run on the scheduler's own goroutines; for a task awaited
// from a fiber the scheduler owns the timed suspensions while resumption
// steps execute on the awaiting fiber's context.
type TaskScheduler struct{}

// defaultTaskScheduler serves WaitTask operations with a nil Scheduler and
// the package-level GoTask convenience.
var defaultTaskScheduler = &TaskScheduler{}

// NewTaskScheduler creates an independent task scheduler.
func NewTaskScheduler() *TaskScheduler {
	return &TaskScheduler{}
}

// after arms one timed suspension. The scheduler owns task timing.
func (s *TaskScheduler) after(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// TaskHandle observes one detached task. Completion hand-off is a bounded
// SPSC queue: producer is the scheduler goroutine, consumer is Join.
type TaskHandle[R any] struct {
	done atomix.Uint32
	slot fiberResult[R]
	q    lfq.SPSC[fiberResult[R]]
}

// Done reports whether the task ran to completion.
func (h *TaskHandle[R]) Done() bool {
	return h.done.Load() != 0
}

// Join blocks until the task completes, with adaptive backoff.
// At most one goroutine may Join a handle.
func (h *TaskHandle[R]) Join() R {
	var bo iox.Backoff
	for {
		r, err := h.q.Dequeue()
		if err == nil {
			return r.v
		}
		bo.Wait()
	}
}

// GoTask runs a detached task on its own goroutine under s. The task's
// sleeps suspend only the task; nothing else is blocked.
func GoTask[R any](s *TaskScheduler, t Task[R]) *TaskHandle[R] {
	h := &TaskHandle[R]{}
	h.q.Init(handleCapacity)
	go func() {
		v, susp := kont.StepExpr(t)
		for susp != nil {
			op, ok := susp.Op().(SleepTask)
			if !ok {
				panic("fiber: unhandled effect in task body")
			}
			time.Sleep(op.D)
			v, susp = susp.Resume(struct{}{})
		}
		h.slot = fiberResult[R]{v: v}
		_ = h.q.Enqueue(&h.slot)
		h.done.Store(1)
	}()
	return h
}

// stepTask runs one step of an awaited task's body, converting a panic in
// the body into the awaiting fiber's result failure.
func stepTask[T any](step func() (T, *kont.Suspension[T])) (v T, next *kont.Suspension[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = PanicError{Value: r}
		}
	}()
	v, next = step()
	return
}

// dispatchTask starts driving an awaited task. The first steps run
// immediately on the awaiting fiber's context; each SleepTask hands the
// timing to the scheduler and parks the fiber. A task that never sleeps
// completes the await without suspending; a task body that panics fails
// the fiber with PanicError instead of unwinding the dispatch turn.
func dispatchTask[T any](s *TaskScheduler, m *Manager, fb *fiber, t Task[T]) (kont.Resumed, error) {
	v, susp, err := stepTask(func() (T, *kont.Suspension[T]) { return kont.StepExpr(t) })
	if err != nil {
		return nil, err
	}
	if susp == nil {
		return Ready(v), nil
	}
	parkTask(s, m, fb, susp)
	return nil, iox.ErrWouldBlock
}

// parkTask arms the scheduler timer for the task's pending sleep. When it
// fires, the resumption steps are marshaled onto the owning loop and run on
// the awaiting fiber's own context; completion resumes the fiber with the
// task's result, and a panicking step fails the fiber rather than the loop
// driver.
func parkTask[T any](s *TaskScheduler, m *Manager, fb *fiber, susp *kont.Suspension[T]) {
	op, ok := susp.Op().(SleepTask)
	if !ok {
		panic("fiber: unhandled effect in task body")
	}
	s.after(op.D, func() {
		_ = m.loop.Schedule(func() {
			exit := m.enter()
			save := m.activeFiber
			m.activeFiber = fb
			v, next, err := stepTask(func() (T, *kont.Suspension[T]) { return susp.Resume(struct{}{}) })
			m.activeFiber = save
			exit()
			if err != nil {
				m.finish(fb, nil, err)
				return
			}
			if next == nil {
				m.finish(fb, Ready(v), nil)
				return
			}
			parkTask(s, m, fb, next)
		})
	})
}
