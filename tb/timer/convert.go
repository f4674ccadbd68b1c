// Package timer turns durations given in wall-clock units, clock cycles or
// clock edges into suspension points of a task.
package timer

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/clock"
)

// Errors returned for invalid unit, clock and edge combinations.
var (
	ErrClockRequired         = errors.New("a clock is required")
	ErrEdgeRequired          = errors.New("an edge type other than none is required")
	ErrConversionUnsupported = errors.New("conversion is not implemented")
)

// A Clock is what the timing helpers need to know about a clock.
type Clock interface {
	signal.Edger

	Period() float64
	HalfPeriod() float64
	Unit() timing.Unit
}

// HasClock tells if clk refers to a clock. A nil *clock.Clock stored in the
// interface counts as no clock.
func HasClock(clk Clock) bool {
	if clk == nil {
		return false
	}

	if c, ok := clk.(*clock.Clock); ok && c == nil {
		return false
	}

	return true
}

// cycleSnap absorbs the rounding error of float division before truncating to
// whole cycles.
const cycleSnap = 1e-9

// Convert expresses quantity, given in from, in the unit to.
//
// Absolute units convert exactly, keeping fractions. Converting to Cycle
// truncates toward zero to a whole number of cycles, so a round trip through
// Cycle loses the part of the quantity below one period. Converting from Cycle
// first expands the cycles to the clock unit. Step and Edge are not
// convertible.
func Convert(quantity float64, from, to timing.Unit, clk Clock) (float64, error) {
	if (from == timing.Cycle || to == timing.Cycle) && !HasClock(clk) {
		return 0, fmt.Errorf("convert %s to %s: %w", from, to, ErrClockRequired)
	}

	if from == timing.Cycle {
		return Convert(quantity*clk.Period(), clk.Unit(), to, clk)
	}

	fromScale, fromOK := wallClockScale(from)
	if !fromOK {
		return 0, unsupported(from, to)
	}

	if to == timing.Cycle {
		periodScale, ok := wallClockScale(clk.Unit())
		if !ok {
			return 0, unsupported(from, to)
		}

		cycles := quantity * fromScale / (clk.Period() * periodScale)

		return truncateCycles(cycles), nil
	}

	toScale, toOK := wallClockScale(to)
	if !toOK {
		return 0, unsupported(from, to)
	}

	return quantity * fromScale / toScale, nil
}

func wallClockScale(u timing.Unit) (float64, bool) {
	if u == timing.Step {
		return 0, false
	}

	return timing.StepsPerUnit(u)
}

func truncateCycles(cycles float64) float64 {
	nearest := math.Round(cycles)
	if math.Abs(cycles-nearest) < cycleSnap*math.Max(1, math.Abs(cycles)) {
		return nearest
	}

	return math.Trunc(cycles)
}

func unsupported(from, to timing.Unit) error {
	return fmt.Errorf("%w: from %s to %s", ErrConversionUnsupported, from, to)
}
