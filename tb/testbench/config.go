package testbench

import (
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
)

// Severity tells how a failed validation affects the test.
type Severity int

// The severities of a failed validation.
const (
	// SeverityError counts the failure and lets the test continue until the
	// error budget is exceeded.
	SeverityError Severity = iota

	// SeverityFatal stops the test immediately.
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}

	return "error"
}

// ClockConfig describes a clock of the bench.
type ClockConfig struct {
	Name   string
	Period float64
	Unit   timing.Unit
}

// ResetConfig describes the reset signal of the device under test.
type ResetConfig struct {
	Name     string
	Duration float64
	Unit     timing.Unit

	// Edge aligns the release of the reset to an edge of the clock.
	Edge signal.EdgeType

	ActiveLow bool
}

func (c ResetConfig) activeValue() uint64 {
	if c.ActiveLow {
		return 0
	}

	return 1
}

func (c ResetConfig) inactiveValue() uint64 {
	return 1 - c.activeValue()
}

// ValidationConfig sets the error budget of a test.
type ValidationConfig struct {
	// MaxErrorCount is the number of failed validations a test may have and
	// still pass.
	MaxErrorCount int

	// BreakIfExceeded stops the test as soon as the budget is exceeded.
	BreakIfExceeded bool
}

// TeardownConfig controls what happens after the test function returns.
type TeardownConfig struct {
	// DelayCycles keeps the simulation running for some cycles of the main
	// clock.
	DelayCycles int

	// AssertValid fails the run if the error budget was exceeded.
	AssertValid bool
}
