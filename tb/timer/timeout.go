package timer

import (
	"fmt"
	"strings"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
)

type timeoutOptions struct {
	postSyncEdge signal.EdgeType
	silent       bool
}

// A TimeoutOption tunes TriggerWithTimeout.
type TimeoutOption func(o *timeoutOptions)

// WithPostSyncEdge makes the task wait for an edge of the clock after the race.
func WithPostSyncEdge(edge signal.EdgeType) TimeoutOption {
	return func(o *timeoutOptions) {
		o.postSyncEdge = edge
	}
}

// Silent suppresses the error logged on timeout.
func Silent() TimeoutOption {
	return func(o *timeoutOptions) {
		o.silent = true
	}
}

// TriggerWithTimeout waits for the first of the configured edges, giving up
// after duration in unit. It returns true if an edge came first and false on
// timeout. A timeout is logged as an error unless Silent is given.
//
// If a clock is given, the task then aligns to the post-sync edge of the clock
// whatever the outcome. Asking for a post-sync edge without a clock only logs
// a warning.
func TriggerWithTimeout(
	t *coro.Task,
	configs []TriggerConfig,
	duration float64,
	unit timing.Unit,
	clk Clock,
	opts ...TimeoutOption,
) (bool, error) {
	o := timeoutOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	wait, waitUnit, err := ResolveDelay(duration, unit, clk, signal.EdgeNone)
	if err != nil {
		return false, err
	}

	steps, err := timing.ToSteps(max(wait, 0), waitUnit)
	if err != nil {
		return false, err
	}

	triggers := make([]coro.Trigger, 0, len(configs)+1)
	names := make([]string, 0, len(configs))

	for _, c := range configs {
		trigger := GetEdgeTrigger(c.Signal, c.Edge)
		if trigger == nil {
			return false, fmt.Errorf("trigger on %s: %w", c.Signal.Name(), ErrEdgeRequired)
		}

		triggers = append(triggers, trigger)
		names = append(names, c.Signal.Name())
	}

	triggers = append(triggers, coro.Timer(steps))

	valid := t.First(triggers...) < len(configs)
	if !valid && !o.silent {
		t.Logger().Error(
			fmt.Sprintf("trigger First(%s) timed out after %v %s",
				strings.Join(names, ", "), duration, unit),
			"signals", names,
			"duration", duration,
			"unit", unit.String(),
		)
	}

	switch {
	case HasClock(clk):
		EdgeTrigger(t, clk, o.postSyncEdge)
	case o.postSyncEdge != signal.EdgeNone:
		t.Logger().Warn(fmt.Sprintf(
			"post-trigger sync edge %s requested without a clock", o.postSyncEdge))
	}

	return valid, nil
}
