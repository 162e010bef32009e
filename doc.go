// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fiber provides a cooperative fiber scheduler with a unified
// asynchronous-suspension bridge on [code.hybscloud.com/kont].
//
// Fiber bodies are sequential computations whose suspension points are typed
// await operations; a per-loop [Manager] multiplexes them onto one
// single-consumer reactor thread and resumes each with a strongly-typed
// [Async] result when the awaited primitive completes.
//
// # Architecture
//
//   - Scheduling: One [Manager] per [Loop]. At most one fiber runs at any
//     instant; reactivation may originate on any goroutine but is marshaled
//     onto the owning loop before the fiber runs again.
//   - Suspension: Await operations implement DispatchAwait, returning
//     [code.hybscloud.com/iox.ErrWouldBlock] at the registration boundary.
//   - Results: [Handle] completion is handed off over a bounded lock-free
//     SPSC queue via [code.hybscloud.com/lfq]; blocking waits use
//     [code.hybscloud.com/iox.Backoff].
//   - Failures: bridged failures complete the awaiting fiber's [Handle]
//     as its result failure; contract violations panic.
//
// # Bridged primitives
//
//   - [Baton]: one-shot binary signal; suspending wait ([WaitBaton]) and
//     timed waits ([WaitBatonFor], [WaitBatonUntil]) with an
//     at-least-duration timeout guarantee.
//   - [Promise]: one-shot setter handed to a user callback ([WaitPromise]);
//     linear resource checked at fulfillment and teardown.
//   - [Deferred]: deferred computation with a binding mode fixed before the
//     await ([WaitFuture]); the mode decides where deferred work runs —
//     producer goroutine (Detach), bound loop (Via), or the consumer's
//     manager main context (default).
//   - [Task]: coroutine with its own [SleepTask] suspension points, owned
//     by a [TaskScheduler] ([WaitTask]); resumption steps of an awaited
//     task execute on the awaiting fiber's context.
//
// # API Topologies
//
//   - Cont-world: [WaitThen], [WaitForBind], [WaitUntilBind], [PromiseBind],
//     [FutureBind], [FutureBindTry], [TaskBind], [SleepThen]. Submit with
//     [Submit].
//   - Expr-world: Zero-allocation variants like [ExprWaitThen],
//     [ExprFutureBind], etc. Submit with [SubmitExpr]; bridge via [Reify]
//     and [Reflect].
//   - Recursive: [Iterate] and [ExprIterate] for trampoline-based iterative
//     bodies.
//
// # Execution-context probes
//
// [ThreadID], [RunningManager] and [OnFiber] distinguish the three places a
// bridged continuation may run: an arbitrary producer goroutine, a
// manager's main context, or a fiber's own context.
//
// # Example
//
//	l := fiber.NewLoop()
//	fm := fiber.ManagerOf(l)
//	h := fiber.Submit(fm, fiber.PromiseBind(
//		func(p fiber.Promise[int]) { p.SetValue(42) },
//		func(v int) kont.Eff[int] { return kont.Pure(v) },
//	))
//	v, err := h.GetVia(l) // v == 42
package fiber
