// Package testbench bundles the engine, the scheduler, the clocks and the
// signals of a test into a Context and runs test functions on it.
package testbench

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/rs/xid"

	"github.com/sarchlab/tbsync/logging"
	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/clock"
	"github.com/sarchlab/tbsync/tb/timer"
)

var (
	// ErrValidationFailed is returned when more validations failed than the
	// error budget allows.
	ErrValidationFailed = errors.New("validation failed")

	// ErrFatalValidation is returned when a fatal validation failed.
	ErrFatalValidation = errors.New("fatal validation failed")

	// ErrDuplicateClock is returned when a clock name is used twice.
	ErrDuplicateClock = errors.New("clock already exists")

	// ErrTimeLimit is returned when the test did not finish before the time
	// limit.
	ErrTimeLimit = errors.New("time limit reached")

	// ErrStalled is returned when the simulation ran out of events before the
	// test finished.
	ErrStalled = errors.New("test stalled")
)

// A TestFunc is the body of a test. It runs as a task of the context
// scheduler.
type TestFunc func(ctx *Context, t *coro.Task) error

// A Context holds everything a test runs against.
type Context struct {
	name   string
	runID  xid.ID
	seed   int64
	rng    *rand.Rand
	engine *timing.SerialEngine
	sched  *coro.Scheduler
	logger *slog.Logger

	reset      *ResetConfig
	validation ValidationConfig
	teardown   TeardownConfig
	timeLimit  timing.VTimeInStep

	signalHooks []hooking.Hook
	signals     map[string]*signal.Wire

	mainClk    *clock.Clock
	clocks     map[string]*clock.Clock
	clockOrder []string

	errorCount int
	running    bool
}

// Name returns the name of the bench.
func (c *Context) Name() string {
	return c.name
}

// RunID identifies this context in logs and recordings.
func (c *Context) RunID() xid.ID {
	return c.runID
}

// Seed returns the seed of Rand.
func (c *Context) Seed() int64 {
	return c.seed
}

// Rand returns the random source of the bench.
func (c *Context) Rand() *rand.Rand {
	return c.rng
}

// Engine returns the simulation engine.
func (c *Context) Engine() *timing.SerialEngine {
	return c.engine
}

// Scheduler returns the task scheduler.
func (c *Context) Scheduler() *coro.Scheduler {
	return c.sched
}

// Logger returns the bench logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Signal returns the signal with the given name, creating it on first use.
// Asking for an existing signal with another width panics.
func (c *Context) Signal(name string, width int) *signal.Wire {
	if w, ok := c.signals[name]; ok {
		if w.Width() != width {
			panic(fmt.Sprintf("testbench: signal %s has width %d, not %d",
				name, w.Width(), width))
		}

		return w
	}

	w := signal.NewWire(name, width)
	for _, h := range c.signalHooks {
		w.AcceptHook(h)
	}

	c.signals[name] = w

	return w
}

// Signals returns all the signals, sorted by name.
func (c *Context) Signals() []*signal.Wire {
	names := make([]string, 0, len(c.signals))
	for n := range c.signals {
		names = append(names, n)
	}

	sort.Strings(names)

	wires := make([]*signal.Wire, len(names))
	for i, n := range names {
		wires[i] = c.signals[n]
	}

	return wires
}

// AddClk creates a clock that drives the one-bit signal named after it. If
// start is true, the clock starts in the current instant.
func (c *Context) AddClk(cfg ClockConfig, start bool) (*clock.Clock, error) {
	if _, ok := c.clocks[cfg.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateClock, cfg.Name)
	}

	clk, err := clock.MakeBuilder().
		WithScheduler(c.sched).
		WithPeriod(cfg.Period).
		WithUnit(cfg.Unit).
		Build(cfg.Name, c.Signal(cfg.Name, 1))
	if err != nil {
		return nil, err
	}

	c.clocks[cfg.Name] = clk
	c.clockOrder = append(c.clockOrder, cfg.Name)

	if start {
		clk.StartSoon()
	}

	return clk, nil
}

// Clk returns the main clock, or nil if the bench has none.
func (c *Context) Clk() *clock.Clock {
	return c.mainClk
}

// ClockByName looks a clock up.
func (c *Context) ClockByName(name string) (*clock.Clock, bool) {
	clk, ok := c.clocks[name]
	return clk, ok
}

// Clocks returns the clocks in the order they were added.
func (c *Context) Clocks() []*clock.Clock {
	clocks := make([]*clock.Clock, len(c.clockOrder))
	for i, n := range c.clockOrder {
		clocks[i] = c.clocks[n]
	}

	return clocks
}

// Reset asserts the reset signal for the configured duration and releases
// it. With a clock, the release is aligned to the configured edge of that
// clock; a nil clock means the main clock.
func (c *Context) Reset(t *coro.Task, clk *clock.Clock) error {
	if c.reset == nil {
		c.logger.Debug("reset not available")
		return nil
	}

	if clk == nil {
		clk = c.mainClk
	}

	rst := c.Signal(c.reset.Name, 1)
	rst.Write(c.reset.activeValue())

	err := timer.Delay(t, c.reset.Duration, c.reset.Unit, clk, c.reset.Edge)
	if err != nil {
		return fmt.Errorf("reset %s: %w", c.reset.Name, err)
	}

	rst.Write(c.reset.inactiveValue())
	c.logger.Debug("reset complete", "signal", c.reset.Name, "time", c.sched.Now())

	return nil
}

// Validate records a failed check when cond is false. It returns an error
// when the test has to stop: on a fatal failure, or when the error budget
// is exceeded and the bench breaks on it.
func (c *Context) Validate(cond bool, msg string, severity Severity) error {
	if cond {
		return nil
	}

	c.errorCount++

	if severity == SeverityFatal {
		logging.Fatal(c.logger, msg, "time", c.sched.Now())
		return fmt.Errorf("%w: %s", ErrFatalValidation, msg)
	}

	c.logger.Error(msg, "time", c.sched.Now(), "errors", c.errorCount)

	if c.validation.BreakIfExceeded && !c.Valid() {
		return c.budgetError()
	}

	return nil
}

// ErrorCount returns the number of failed validations.
func (c *Context) ErrorCount() int {
	return c.errorCount
}

// Valid tells whether the failed validations are within the error budget.
func (c *Context) Valid() bool {
	return c.errorCount <= c.validation.MaxErrorCount
}

func (c *Context) budgetError() error {
	return fmt.Errorf("%w: %d errors, %d allowed",
		ErrValidationFailed, c.errorCount, c.validation.MaxErrorCount)
}
