// Package drive holds stimulus helpers that run inside a testbench task.
package drive

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/timer"
)

// A Clock is a clock whose level can be read.
type Clock interface {
	timer.Clock

	Signal() signal.Signal
}

// Pulse describes a single pulse.
type Pulse struct {
	Value      uint64
	ResetValue uint64
	Duration   float64
	Unit       timing.Unit
	Clock      Clock

	// StartEdge delays the start of the pulse to the next edge of this type,
	// unless the clock is already past such an edge.
	StartEdge signal.EdgeType

	// DelayEdge aligns the end of the pulse to an edge of the clock.
	DelayEdge signal.EdgeType
}

// SinglePulse drives p.Value for p.Duration and then drives p.ResetValue.
func SinglePulse(t *coro.Task, sig signal.Signal, p Pulse) error {
	if timer.HasClock(p.Clock) {
		level := p.Clock.Signal().Read() & 1

		switch {
		case level == 1 && p.StartEdge == signal.EdgeFalling:
			timer.EdgeTrigger(t, p.Clock, signal.EdgeFalling)
		case level == 0 && p.StartEdge == signal.EdgeRising:
			timer.EdgeTrigger(t, p.Clock, signal.EdgeRising)
		}
	}

	sig.Write(p.Value)

	if err := timer.Delay(t, p.Duration, p.Unit, clockOrNil(p.Clock), p.DelayEdge); err != nil {
		return err
	}

	sig.Write(p.ResetValue)

	return nil
}

// clockOrNil keeps a nil Clock nil when it is converted to timer.Clock.
func clockOrNil(clk Clock) timer.Clock {
	if !timer.HasClock(clk) {
		return nil
	}

	return clk
}

// DelayAction waits for the delay and then returns the result of action.
func DelayAction[T any](
	t *coro.Task,
	action func() T,
	delay float64,
	unit timing.Unit,
	clk Clock,
	edge signal.EdgeType,
) (T, error) {
	if err := timer.Delay(t, delay, unit, clockOrNil(clk), edge); err != nil {
		var zero T
		return zero, err
	}

	return action(), nil
}

// DelayTriggeredAction waits for the trigger and then returns the result of
// action. If the trigger times out, action is not run and ok is false.
func DelayTriggeredAction[T any](
	t *coro.Task,
	action func() T,
	trigger timer.TriggerConfig,
	timeout float64,
	unit timing.Unit,
	clk Clock,
) (result T, ok bool, err error) {
	ok, err = timer.TriggerWithTimeout(t,
		[]timer.TriggerConfig{trigger}, timeout, unit, clockOrNil(clk))
	if err != nil || !ok {
		return result, false, err
	}

	return action(), true, nil
}

// Step is one interval of a driven waveform.
type Step struct {
	Value    uint64
	Duration float64
	Edge     signal.EdgeType
}

// Signal drives the steps one after another. The clock may be nil if no step
// needs one.
func Signal(
	t *coro.Task,
	sig signal.Signal,
	clk Clock,
	unit timing.Unit,
	steps []Step,
) error {
	for i, s := range steps {
		sig.Write(s.Value)

		if err := timer.Delay(t, s.Duration, unit, clockOrNil(clk), s.Edge); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	return nil
}

// Incremental drives from, from+1, ... up to but excluding to, holding each
// value for duration.
func Incremental(
	t *coro.Task,
	sig signal.Signal,
	clk Clock,
	from, to uint64,
	duration float64,
	unit timing.Unit,
	edge signal.EdgeType,
) error {
	for v := from; v < to; v++ {
		sig.Write(v)

		if err := timer.Delay(t, duration, unit, clockOrNil(clk), edge); err != nil {
			return err
		}
	}

	return nil
}

// RandomConfig describes a random stimulus.
type RandomConfig struct {
	// Values are drawn from [MinValue, MaxValue).
	MinValue, MaxValue uint64

	// Durations are drawn from [MinDuration, MaxDuration).
	MinDuration, MaxDuration int

	Unit timing.Unit

	// Edges are the sync edges to choose from. EdgeNone is used if empty.
	Edges []signal.EdgeType

	Rand *rand.Rand

	// Record, if not nil, receives every driven value.
	Record *[]uint64
}

// Random drives random values for random durations until the task is killed.
func Random(t *coro.Task, sig signal.Signal, clk Clock, cfg RandomConfig) error {
	if cfg.MaxValue <= cfg.MinValue || cfg.MaxDuration <= cfg.MinDuration {
		return fmt.Errorf("drive random %s: empty value or duration range", sig.Name())
	}

	if cfg.Rand == nil {
		return fmt.Errorf("drive random %s: a random source is required", sig.Name())
	}

	edges := cfg.Edges
	if len(edges) == 0 {
		edges = []signal.EdgeType{signal.EdgeNone}
	}

	for {
		v := cfg.MinValue + uint64(cfg.Rand.Int63n(int64(cfg.MaxValue-cfg.MinValue)))
		if cfg.Record != nil {
			*cfg.Record = append(*cfg.Record, v)
		}

		sig.Write(v)

		d := cfg.MinDuration + cfg.Rand.Intn(cfg.MaxDuration-cfg.MinDuration)
		edge := edges[cfg.Rand.Intn(len(edges))]

		if err := timer.Delay(t, float64(d), cfg.Unit, clockOrNil(clk), edge); err != nil {
			return err
		}
	}
}
