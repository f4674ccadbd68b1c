package timing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// VTimeInStep is a point in simulated time, counted in simulator steps. One
// step is one femtosecond.
type VTimeInStep uint64

// Unit names the unit of a duration. Cycle and Edge are relative to a clock;
// all other units are absolute.
type Unit int

// The supported units.
const (
	Step Unit = iota
	FS
	PS
	NS
	US
	MS
	Sec
	Cycle
	Edge
)

var unitNames = [...]string{"step", "fs", "ps", "ns", "us", "ms", "sec", "cycle", "edge"}

var stepsPerUnit = [...]float64{1, 1, 1e3, 1e6, 1e9, 1e12, 1e15}

var (
	// ErrClockRelativeUnit is returned when an absolute duration is required
	// but a clock-relative unit is given.
	ErrClockRelativeUnit = errors.New("unit is relative to a clock")

	// ErrInvalidDuration is returned for negative or NaN durations.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrUnknownUnit is returned when parsing an unknown unit name.
	ErrUnknownUnit = errors.New("unknown unit")
)

func (u Unit) String() string {
	if u < 0 || int(u) >= len(unitNames) {
		return fmt.Sprintf("Unit(%d)", int(u))
	}

	return unitNames[u]
}

// IsClockRelative returns true for Cycle and Edge.
func (u Unit) IsClockRelative() bool {
	return u == Cycle || u == Edge
}

// StepsPerUnit returns how many simulator steps one unit spans. The second
// return value is false for clock-relative or unknown units.
func StepsPerUnit(u Unit) (float64, bool) {
	if u < 0 || int(u) >= len(stepsPerUnit) {
		return 0, false
	}

	return stepsPerUnit[u], true
}

// ParseUnit converts a unit name such as "ns" or "cycle" into a Unit.
func ParseUnit(s string) (Unit, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range unitNames {
		if n == name {
			return Unit(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// ToSteps converts an absolute duration into steps, rounding to the nearest
// step.
func ToSteps(quantity float64, unit Unit) (VTimeInStep, error) {
	scale, ok := StepsPerUnit(unit)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrClockRelativeUnit, unit)
	}

	if math.IsNaN(quantity) || quantity < 0 {
		return 0, fmt.Errorf("%w: %v %s", ErrInvalidDuration, quantity, unit)
	}

	return VTimeInStep(math.Round(quantity * scale)), nil
}

// InUnit expresses t in the given absolute unit.
func (t VTimeInStep) InUnit(unit Unit) float64 {
	scale, ok := StepsPerUnit(unit)
	if !ok {
		panic("cannot express time in unit " + unit.String())
	}

	return float64(t) / scale
}

func (t VTimeInStep) String() string {
	switch {
	case t == 0:
		return "0ns"
	case t%1e12 == 0:
		return fmt.Sprintf("%dms", uint64(t/1e12))
	case t%1e9 == 0:
		return fmt.Sprintf("%dus", uint64(t/1e9))
	case t%1e6 == 0:
		return fmt.Sprintf("%dns", uint64(t/1e6))
	case t%1e3 == 0:
		return fmt.Sprintf("%dps", uint64(t/1e3))
	default:
		return fmt.Sprintf("%dfs", uint64(t))
	}
}
