package coro

import (
	"github.com/sarchlab/tbsync/sim/timing"
)

// A Trigger is a condition a task can suspend on.
//
// Prime arms the trigger. The trigger calls fire, at most once, when the
// condition happens. The returned cancel function disarms the trigger; it may
// be called after the trigger fired.
type Trigger interface {
	Prime(s *Scheduler, fire func()) (cancel func())
}

// TriggerFunc adapts a function to the Trigger interface.
type TriggerFunc func(s *Scheduler, fire func()) (cancel func())

// Prime calls f(s, fire).
func (f TriggerFunc) Prime(s *Scheduler, fire func()) func() {
	return f(s, fire)
}

type timerArm struct {
	cancelled bool
}

type callEvent struct {
	*timing.EventBase
	arm *timerArm
	fn  func()
}

// Timer returns a trigger that fires after the given number of steps.
func Timer(d timing.VTimeInStep) Trigger {
	return timer(d, false)
}

// LateTimer returns a trigger that fires after the given number of steps, once
// every other event of that instant has been handled. Signal drivers use it so
// that tasks waking at the same instant still observe the edge they produce.
func LateTimer(d timing.VTimeInStep) Trigger {
	return timer(d, true)
}

func timer(d timing.VTimeInStep, late bool) Trigger {
	return TriggerFunc(func(s *Scheduler, fire func()) func() {
		arm := &timerArm{}

		base := timing.NewEventBase(s.Now()+d, s)
		if late {
			base = timing.NewSecondaryEventBase(s.Now()+d, s)
		}

		s.engine.Schedule(&callEvent{
			EventBase: base,
			arm:       arm,
			fn:        fire,
		})

		return func() { arm.cancelled = true }
	})
}

// Completion returns a trigger that fires when the task finishes, whether it
// returned, failed or was killed.
func (t *Task) Completion() Trigger {
	return TriggerFunc(func(s *Scheduler, fire func()) func() {
		if t.Done() {
			fire()
			return func() {}
		}

		w := &joinWaiter{fire: fire, active: true}
		t.joiners = append(t.joiners, w)

		return func() { w.active = false }
	})
}

type joinWaiter struct {
	fire   func()
	active bool
}
