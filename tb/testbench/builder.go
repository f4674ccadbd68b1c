package testbench

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/clock"
)

// Builder builds test contexts.
type Builder struct {
	name        string
	clock       *ClockConfig
	reset       *ResetConfig
	validation  ValidationConfig
	teardown    TeardownConfig
	logger      *slog.Logger
	seed        int64
	hasSeed     bool
	timeLimit   float64
	limitUnit   timing.Unit
	signalHooks []hooking.Hook
	logEvents   bool
}

// MakeBuilder creates a builder. By default a test fails on its first
// failed validation.
func MakeBuilder() Builder {
	return Builder{
		name:       "tb",
		validation: ValidationConfig{MaxErrorCount: 0, BreakIfExceeded: true},
		teardown:   TeardownConfig{AssertValid: true},
	}
}

// WithName sets the name of the bench, used for logging and recording.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithClock sets the main clock. The clock drives the signal of the same
// name and is started by Run.
func (b Builder) WithClock(cfg ClockConfig) Builder {
	b.clock = &cfg
	return b
}

// WithReset sets the reset signal used by Reset.
func (b Builder) WithReset(cfg ResetConfig) Builder {
	b.reset = &cfg
	return b
}

// WithValidation sets the error budget.
func (b Builder) WithValidation(cfg ValidationConfig) Builder {
	b.validation = cfg
	return b
}

// WithTeardown sets the teardown behavior.
func (b Builder) WithTeardown(cfg TeardownConfig) Builder {
	b.teardown = cfg
	return b
}

// WithLogger sets the logger. Messages are discarded by default.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithSeed seeds the random source of the context.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.hasSeed = true

	return b
}

// WithTimeLimit stops the run when the simulation reaches the limit.
func (b Builder) WithTimeLimit(limit float64, unit timing.Unit) Builder {
	b.timeLimit = limit
	b.limitUnit = unit

	return b
}

// WithSignalHook attaches a hook to every signal the context creates.
func (b Builder) WithSignalHook(hook hooking.Hook) Builder {
	b.signalHooks = append(b.signalHooks, hook)
	return b
}

// WithEventLogging writes one debug line per simulation event.
func (b Builder) WithEventLogging() Builder {
	b.logEvents = true
	return b
}

// Build creates the context together with its engine and scheduler.
func (b Builder) Build() (*Context, error) {
	if b.validation.MaxErrorCount < 0 {
		return nil, fmt.Errorf("testbench %s: negative error budget %d",
			b.name, b.validation.MaxErrorCount)
	}

	var limit timing.VTimeInStep

	if b.timeLimit > 0 {
		var err error

		limit, err = timing.ToSteps(b.timeLimit, b.limitUnit)
		if err != nil {
			return nil, fmt.Errorf("testbench %s: time limit: %w", b.name, err)
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	seed := b.seed
	if !b.hasSeed {
		seed = time.Now().UnixNano()
	}

	runID := xid.New()
	logger = logger.With("bench", b.name, "run", runID.String())

	engine := timing.NewSerialEngine()
	if b.logEvents {
		engine.AcceptHook(timing.NewEventLogger(logger))
	}

	c := &Context{
		name:        b.name,
		runID:       runID,
		seed:        seed,
		rng:         rand.New(rand.NewSource(seed)),
		engine:      engine,
		sched:       coro.NewScheduler(engine, logger),
		logger:      logger,
		reset:       b.reset,
		validation:  b.validation,
		teardown:    b.teardown,
		timeLimit:   limit,
		signalHooks: b.signalHooks,
		signals:     make(map[string]*signal.Wire),
		clocks:      make(map[string]*clock.Clock),
	}

	if b.clock != nil {
		clk, err := c.AddClk(*b.clock, false)
		if err != nil {
			return nil, err
		}

		c.mainClk = clk
	}

	return c, nil
}
