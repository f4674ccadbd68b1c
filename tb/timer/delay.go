package timer

import (
	"fmt"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
)

// ResolveDelay expands a clock-relative duration into a wall-clock wait.
//
// A Cycle duration becomes duration periods. An Edge duration becomes one
// period (half a period for EdgeAny) less than the edge count, because the
// final edge alignment supplies the last edge. Absolute units pass through
// unchanged.
func ResolveDelay(
	duration float64,
	unit timing.Unit,
	clk Clock,
	edge signal.EdgeType,
) (float64, timing.Unit, error) {
	switch {
	case unit.IsClockRelative() && !HasClock(clk):
		return 0, unit, fmt.Errorf("unit %s: %w", unit, ErrClockRequired)
	case edge != signal.EdgeNone && !HasClock(clk):
		return 0, unit, fmt.Errorf("edge type %s: %w", edge, ErrClockRequired)
	case unit == timing.Edge && edge == signal.EdgeNone:
		return 0, unit, fmt.Errorf("unit %s: %w", unit, ErrEdgeRequired)
	}

	switch unit {
	case timing.Cycle:
		return duration * clk.Period(), clk.Unit(), nil
	case timing.Edge:
		if edge == signal.EdgeAny {
			return (duration - 1) * clk.HalfPeriod(), clk.Unit(), nil
		}

		return (duration - 1) * clk.Period(), clk.Unit(), nil
	default:
		return duration, unit, nil
	}
}

// Delay suspends the task for duration in unit. When a clock is given, the task
// then waits for the next edge of the clock, which can make the total delay
// longer than requested. A non-positive duration returns immediately.
//
// An Edge duration of n waits for exactly n edges. When the caller sits on an
// edge, the shortened wait ends on an edge instant before the clock drives it,
// and that edge is counted before the final alignment.
func Delay(
	t *coro.Task,
	duration float64,
	unit timing.Unit,
	clk Clock,
	edge signal.EdgeType,
) error {
	if duration <= 0 {
		return nil
	}

	wait, waitUnit, err := ResolveDelay(duration, unit, clk, edge)
	if err != nil {
		return err
	}

	aheadAtStart := pendingEdge(t, clk).Covers(edge)

	if wait > 0 {
		steps, err := timing.ToSteps(wait, waitUnit)
		if err != nil {
			return err
		}

		t.Sleep(steps)
	}

	if unit == timing.Edge && !aheadAtStart && pendingEdge(t, clk).Covers(edge) {
		EdgeTrigger(t, clk, edge)
	}

	if HasClock(clk) {
		EdgeTrigger(t, clk, edge)
	}

	return nil
}

type edgeForecaster interface {
	PendingEdge(now timing.VTimeInStep) signal.EdgeType
}

func pendingEdge(t *coro.Task, clk Clock) signal.EdgeType {
	if !HasClock(clk) {
		return signal.EdgeNone
	}

	f, ok := clk.(edgeForecaster)
	if !ok {
		return signal.EdgeNone
	}

	return f.PendingEdge(t.Scheduler().Now())
}
