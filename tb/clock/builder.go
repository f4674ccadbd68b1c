package clock

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
)

type endNotifier interface {
	RegisterSimulationEndHandler(handler timing.SimulationEndHandler)
}

// Builder builds clocks.
type Builder struct {
	sched  *coro.Scheduler
	period float64
	unit   timing.Unit
	logger *slog.Logger
}

// MakeBuilder creates a builder with a 10 ns period.
func MakeBuilder() Builder {
	return Builder{
		period: 10,
		unit:   timing.NS,
	}
}

// WithScheduler sets the scheduler that runs the driver task.
func (b Builder) WithScheduler(s *coro.Scheduler) Builder {
	b.sched = s
	return b
}

// WithPeriod sets the clock period, in the clock unit.
func (b Builder) WithPeriod(period float64) Builder {
	b.period = period
	return b
}

// WithUnit sets the unit of the period.
func (b Builder) WithUnit(unit timing.Unit) Builder {
	b.unit = unit
	return b
}

// WithLogger sets the logger. The scheduler logger is used by default.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a clock that drives the given signal.
func (b Builder) Build(name string, sig signal.Signal) (*Clock, error) {
	if b.sched == nil {
		panic("clock: scheduler is required")
	}

	if !(b.period > 0) {
		return nil, fmt.Errorf("clock %s: %w, got %v", name, ErrInvalidPeriod, b.period)
	}

	if b.unit.IsClockRelative() {
		return nil, fmt.Errorf("clock %s: %w, got %s", name, ErrInvalidUnit, b.unit)
	}

	periodSteps, err := timing.ToSteps(b.period, b.unit)
	if err != nil {
		return nil, fmt.Errorf("clock %s: %w", name, err)
	}

	if periodSteps < 2 {
		return nil, fmt.Errorf("clock %s: %w, %v %s is below the simulation precision",
			name, ErrInvalidPeriod, b.period, b.unit)
	}

	logger := b.logger
	if logger == nil {
		logger = b.sched.Logger()
	}

	c := &Clock{
		name:      name,
		sched:     b.sched,
		sig:       sig,
		period:    b.period,
		unit:      b.unit,
		highSteps: periodSteps / 2,
		lowSteps:  periodSteps - periodSteps/2,
		logger:    logger.With("clock", name),
	}

	if n, ok := b.sched.Engine().(endNotifier); ok {
		n.RegisterSimulationEndHandler(c)
	}

	return c, nil
}
