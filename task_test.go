// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/fiber"
	"code.hybscloud.com/kont"
)

// probeAfterSleep is a task body that suspends once and then records where
// its resumption steps ran. The probe is captured lazily, inside the bind
// continuation, so it observes the resumption context.
func probeAfterSleep() kont.Eff[ctxProbe] {
	return kont.Bind(kont.Perform(fiber.SleepTask{D: time.Millisecond}), func(struct{}) kont.Eff[ctxProbe] {
		return kont.Pure(captureProbe())
	})
}

func TestTaskAwaitRunsOnFiberContext(t *testing.T) {
	l := fiber.NewLoop()
	self := fiber.ThreadID()

	p, err := runBody(t, l, fiber.TaskBind(kont.Reify(probeAfterSleep()), func(p ctxProbe) kont.Eff[ctxProbe] {
		return kont.Pure(p)
	}))
	if err != nil {
		t.Fatalf("task await error: %v", err)
	}
	if p.tid != self {
		t.Fatal("task resumption ran off the loop's thread")
	}
	if !p.manager {
		t.Fatal("task resumption ran outside manager dispatch")
	}
	if !p.onFiber {
		t.Fatal("task resumption ran off the fiber's own context")
	}
}

func TestTaskNoSleepCompletesWithoutSuspending(t *testing.T) {
	l := fiber.NewLoop()

	got, err := runBody(t, l, fiber.TaskBind(kont.Reify(kont.Pure(7)), func(v int) kont.Eff[int] {
		return kont.Pure(v)
	}))
	if err != nil {
		t.Fatalf("task await error: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestTaskMultipleSleeps(t *testing.T) {
	const nap = 10 * time.Millisecond
	l := fiber.NewLoop()

	task := fiber.SleepThen(nap, fiber.SleepThen(nap, kont.Pure("twice")))
	start := time.Now()
	got, err := runBody(t, l, fiber.TaskBind(kont.Reify(task), func(s string) kont.Eff[string] {
		return kont.Pure(s)
	}))
	if err != nil {
		t.Fatalf("task await error: %v", err)
	}
	if got != "twice" {
		t.Fatalf("got %q, want %q", got, "twice")
	}
	if elapsed := time.Since(start); elapsed < 2*nap {
		t.Fatalf("two sleeps finished in %v, want at least %v", elapsed, 2*nap)
	}
}

func TestTaskPanicAtDispatchFailsFiber(t *testing.T) {
	l := fiber.NewLoop()

	task := kont.Reify(kont.Bind(kont.Pure(0), func(int) kont.Eff[int] {
		panic("task boom")
	}))
	_, err := runBody(t, l, fiber.TaskBind(task, func(v int) kont.Eff[int] {
		return kont.Pure(v)
	}))
	var pe fiber.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("got error %v, want PanicError", err)
	}
	if pe.Value != "task boom" {
		t.Fatalf("panic payload got %v, want task boom", pe.Value)
	}
}

func TestTaskPanicAfterSleepFailsFiber(t *testing.T) {
	l := fiber.NewLoop()

	task := kont.Reify(kont.Bind(kont.Perform(fiber.SleepTask{D: time.Millisecond}), func(struct{}) kont.Eff[int] {
		panic("resumed boom")
	}))
	_, err := runBody(t, l, fiber.TaskBind(task, func(v int) kont.Eff[int] {
		return kont.Pure(v)
	}))
	var pe fiber.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("got error %v, want PanicError", err)
	}
	if pe.Value != "resumed boom" {
		t.Fatalf("panic payload got %v, want resumed boom", pe.Value)
	}
}

func TestGoTaskDetached(t *testing.T) {
	skipRace(t)
	self := fiber.ThreadID()

	h := fiber.GoTask(fiber.NewTaskScheduler(), kont.Reify(probeAfterSleep()))
	p := h.Join()
	if !h.Done() {
		t.Fatal("Done() = false after Join")
	}
	if p.tid == self {
		t.Fatal("detached task ran on the caller's thread")
	}
	if p.manager {
		t.Fatal("detached task ran under a manager dispatch")
	}
	if p.onFiber {
		t.Fatal("detached task ran on a fiber's own context")
	}
}

func TestWaitTaskExplicitScheduler(t *testing.T) {
	l := fiber.NewLoop()
	s := fiber.NewTaskScheduler()

	body := kont.Bind(kont.Perform(fiber.WaitTask[int]{
		Task:      kont.Reify(fiber.SleepThen(time.Millisecond, kont.Pure(11))),
		Scheduler: s,
	}), func(a fiber.Async[int]) kont.Eff[int] {
		return kont.Pure(a.Await())
	})
	got, err := runBody(t, l, body)
	if err != nil {
		t.Fatalf("task await error: %v", err)
	}
	if got != 11 {
		t.Fatalf("got %d, want 11", got)
	}
}
