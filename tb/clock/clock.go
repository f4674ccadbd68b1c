// Package clock drives periodic clock signals.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
)

// State is the lifecycle state of a clock.
type State int32

// The clock states.
const (
	NotStarted State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Errors returned when building a clock.
var (
	ErrInvalidPeriod = errors.New("clock period must be positive")
	ErrInvalidUnit   = errors.New("clock unit must be an absolute time unit")
)

// A Clock drives a signal with a 50% duty cycle square wave.
type Clock struct {
	name      string
	sched     *coro.Scheduler
	sig       signal.Signal
	period    float64
	unit      timing.Unit
	highSteps timing.VTimeInStep
	lowSteps  timing.VTimeInStep
	logger    *slog.Logger
	state     atomic.Int32
	task      *coro.Task

	nextEdgeAt timing.VTimeInStep
	nextEdge   signal.EdgeType
}

// Name returns the name of the clock.
func (c *Clock) Name() string {
	return c.name
}

// Period returns the period, in Unit.
func (c *Clock) Period() float64 {
	return c.period
}

// HalfPeriod returns half of the period, in Unit.
func (c *Clock) HalfPeriod() float64 {
	return c.period / 2
}

// Unit returns the unit of the period.
func (c *Clock) Unit() timing.Unit {
	return c.unit
}

// PeriodSteps returns the period in simulation steps.
func (c *Clock) PeriodSteps() timing.VTimeInStep {
	return c.highSteps + c.lowSteps
}

// Freq returns the frequency of the clock.
func (c *Clock) Freq() timing.Freq {
	return timing.FreqOfPeriod(c.PeriodSteps())
}

// Signal returns the driven signal.
func (c *Clock) Signal() signal.Signal {
	return c.sig
}

// Edge returns a trigger on the given edge of the driven signal.
func (c *Clock) Edge(edge signal.EdgeType) coro.Trigger {
	return c.sig.Edge(edge)
}

// State returns the lifecycle state.
func (c *Clock) State() State {
	return State(c.state.Load())
}

func (c *Clock) setState(s State) {
	c.state.Store(int32(s))
}

// Task returns the task driving the clock, or nil if the clock never started.
func (c *Clock) Task() *coro.Task {
	return c.task
}

// Start drives the signal from the calling task until the task is killed.
// A clock that is running or stopped ignores the call with a warning.
func (c *Clock) Start(t *coro.Task) {
	if !c.claimStart() {
		return
	}

	c.task = t
	c.drive(t)
}

// StartSoon starts a background task that drives the signal and returns it.
// A clock that is running or stopped logs a warning and returns the existing
// task instead of starting a second driver.
func (c *Clock) StartSoon() *coro.Task {
	if !c.claimStart() {
		return c.task
	}

	c.task = c.sched.StartSoon("clock "+c.name, func(t *coro.Task) error {
		c.drive(t)
		return nil
	})

	return c.task
}

func (c *Clock) claimStart() bool {
	switch c.State() {
	case Running:
		c.logger.Warn("clock has already been started")
		return false
	case Stopped:
		c.logger.Warn("clock has been stopped and cannot be restarted")
		return false
	}

	c.setState(Running)

	return true
}

func (c *Clock) drive(t *coro.Task) {
	defer c.setState(Stopped)

	for {
		c.sig.Write(1)
		c.expectEdge(t, c.highSteps, signal.EdgeFalling)
		t.Await(coro.LateTimer(c.highSteps))
		c.sig.Write(0)
		c.expectEdge(t, c.lowSteps, signal.EdgeRising)
		t.Await(coro.LateTimer(c.lowSteps))
	}
}

func (c *Clock) expectEdge(t *coro.Task, after timing.VTimeInStep, edge signal.EdgeType) {
	c.nextEdgeAt = t.Scheduler().Now() + after
	c.nextEdge = edge
}

// PendingEdge returns the edge the clock drives at now if it has not been
// driven yet. Clock edges run after all other events of their instant, so a
// task resumed by a timer can observe an edge that is due but not yet visible.
// It returns EdgeNone when no edge is due at now.
func (c *Clock) PendingEdge(now timing.VTimeInStep) signal.EdgeType {
	if c.State() != Running || c.nextEdgeAt != now {
		return signal.EdgeNone
	}

	return c.nextEdge
}

// Stop kills the driver task. Stopping is always safe: a clock that never
// started, was already stopped or has finished only logs a warning.
func (c *Clock) Stop() {
	switch {
	case c.task == nil:
		c.logger.Warn("clock has not been started")
	case c.task.Killed():
		c.logger.Warn("clock has already been cancelled")
	case c.task.Done():
		c.logger.Warn("clock has already finished executing")
	default:
		c.task.Kill()
	}

	if c.State() == Running {
		c.setState(Stopped)
	}
}

// Handle stops a running clock when the simulation ends. It implements
// timing.SimulationEndHandler.
func (c *Clock) Handle(_ timing.VTimeInStep) {
	if c.State() != Running {
		return
	}

	c.logger.Debug("stopping clock at simulation end")
	c.task.Kill()
	c.setState(Stopped)
}

func (c *Clock) String() string {
	return fmt.Sprintf("Clock(%s, %s %s)",
		c.name, formatQuantity(c.period), c.unit)
}

func formatQuantity(q float64) string {
	if q == math.Trunc(q) {
		return fmt.Sprintf("%.0f", q)
	}

	return fmt.Sprintf("%g", q)
}
