// Package coro runs cooperative tasks on top of the discrete event engine.
//
// A task is a function that may suspend itself on triggers such as timers,
// signal edges or the completion of another task. Every task owns a
// goroutine, but the scheduler hands control to exactly one goroutine at a
// time: the engine blocks while a task runs and the task blocks while it is
// suspended. The result is the single-threaded, non-preemptive execution
// model of an HDL testbench, expressed with explicit suspension points.
//
//	engine := timing.NewSerialEngine()
//	sched := coro.NewScheduler(engine, logger)
//	sched.StartSoon("blink", func(t *coro.Task) error {
//		for {
//			led.Write(led.Read() ^ 1)
//			t.Await(coro.Timer(500))
//		}
//	})
//	engine.RunUntil(10_000)
//	sched.Shutdown()
//
// Killing a task is cooperative. A killed task unwinds at the suspension
// point it is parked on and runs its deferred functions; it is never
// interrupted between two suspension points.
package coro
