package loopback

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
	"github.com/sarchlab/tbsync/sim/queueing"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/timer"
)

// Builder builds and starts loopbacks.
type Builder struct {
	sched         *coro.Scheduler
	clk           timer.Clock
	unit          timing.Unit
	constantDelay float64
	maxJitter     float64
	delays        []float64
	individual    bool
	rng           *rand.Rand
	logger        *slog.Logger
	bufferHooks   []hooking.Hook
}

// MakeBuilder creates a builder for a constant delay loopback in ns.
func MakeBuilder() Builder {
	return Builder{
		unit: timing.NS,
	}
}

// WithScheduler sets the scheduler that runs the two tasks.
func (b Builder) WithScheduler(s *coro.Scheduler) Builder {
	b.sched = s
	return b
}

// WithClock sets the reference clock. The source is sampled on its rising
// edges.
func (b Builder) WithClock(clk timer.Clock) Builder {
	b.clk = clk
	return b
}

// WithUnit sets the unit of the constant delay, the jitter and the individual
// delays.
func (b Builder) WithUnit(unit timing.Unit) Builder {
	b.unit = unit
	return b
}

// WithConstantDelay sets the delay awaited once before the first replay.
func (b Builder) WithConstantDelay(d float64) Builder {
	b.constantDelay = d
	return b
}

// WithMaxJitter enables random jitter, bounded by bound, on the replay delay.
func (b Builder) WithMaxJitter(bound float64) Builder {
	b.maxJitter = bound
	return b
}

// WithIndividualDelays replays one value per delay and then stops.
func (b Builder) WithIndividualDelays(delays []float64) Builder {
	b.delays = append([]float64(nil), delays...)
	b.individual = true

	return b
}

// WithRand sets the random source of the jitter.
func (b Builder) WithRand(rng *rand.Rand) Builder {
	b.rng = rng
	return b
}

// WithLogger sets the logger. The scheduler logger is used by default.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithBufferHook attaches a hook to the FIFO between the two tasks.
func (b Builder) WithBufferHook(hook hooking.Hook) Builder {
	b.bufferHooks = append(b.bufferHooks, hook)
	return b
}

func (b Builder) variant() Variant {
	switch {
	case b.individual:
		return VariantIndividual
	case b.maxJitter > 0:
		return VariantJitter
	default:
		return VariantConstant
	}
}

func (b Builder) validate() error {
	switch {
	case b.sched == nil:
		return ErrNoScheduler
	case b.clk == nil:
		return timer.ErrClockRequired
	case b.unit.IsClockRelative():
		return fmt.Errorf("%w: %s", timing.ErrClockRelativeUnit, b.unit)
	case b.maxJitter < 0:
		return ErrNegativeJitter
	case b.individual && len(b.delays) == 0:
		return ErrNoDelays
	case b.maxJitter > 0 && !(b.constantDelay < b.maxJitter):
		return fmt.Errorf("%w: constant delay %v, max jitter %v",
			ErrJitterBound, b.constantDelay, b.maxJitter)
	}

	return nil
}

// Build checks the configuration and starts the sampler and the replayer.
func (b Builder) Build(source, target signal.Signal) (*Loopback, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("loopback %s to %s: %w", source.Name(), target.Name(), err)
	}

	period, err := timer.Convert(1, timing.Cycle, b.unit, b.clk)
	if err != nil {
		return nil, fmt.Errorf("loopback %s to %s: %w", source.Name(), target.Name(), err)
	}

	rng := b.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	logger := b.logger
	if logger == nil {
		logger = b.sched.Logger()
	}

	buffer := queueing.MakeBufferBuilder().Build("loopback " + source.Name())
	for _, h := range b.bufferHooks {
		buffer.AcceptHook(h)
	}

	l := &Loopback{
		variant:       b.variant(),
		source:        source,
		target:        target,
		clk:           b.clk,
		unit:          b.unit,
		period:        period,
		constantDelay: b.constantDelay,
		maxJitter:     b.maxJitter,
		delays:        b.delays,
		rng:           rng,
		logger:        logger.With("source", source.Name(), "target", target.Name()),
		buffer:        buffer,
		jitterSign:    1,
	}

	l.sampler = b.sched.StartSoon("loopback sampler "+source.Name(), l.sample)
	l.replayer = b.sched.StartSoon("loopback replayer "+target.Name(), l.replay)

	return l, nil
}

// SignalLoopback starts a loopback that replays one value per clock period
// after an initial constant delay.
func SignalLoopback(
	s *coro.Scheduler,
	source, target signal.Signal,
	clk timer.Clock,
	constantDelay float64,
	unit timing.Unit,
) (*Loopback, error) {
	return MakeBuilder().
		WithScheduler(s).
		WithClock(clk).
		WithConstantDelay(constantDelay).
		WithUnit(unit).
		Build(source, target)
}

// SignalLoopbackRandomJitter starts a loopback whose replay delay is one clock
// period plus a random jitter. The accumulated jitter never leaves
// [-maxJitter, maxJitter], so the loopback does not drift.
func SignalLoopbackRandomJitter(
	s *coro.Scheduler,
	source, target signal.Signal,
	clk timer.Clock,
	constantDelay, maxJitter float64,
	unit timing.Unit,
	rng *rand.Rand,
) (*Loopback, error) {
	return MakeBuilder().
		WithScheduler(s).
		WithClock(clk).
		WithConstantDelay(constantDelay).
		WithMaxJitter(maxJitter).
		WithUnit(unit).
		WithRand(rng).
		Build(source, target)
}

// SignalLoopbackIndividualDelays starts a loopback that replays one value per
// delay and kills the sampler once the list is exhausted.
func SignalLoopbackIndividualDelays(
	s *coro.Scheduler,
	source, target signal.Signal,
	clk timer.Clock,
	delays []float64,
	unit timing.Unit,
) (*Loopback, error) {
	return MakeBuilder().
		WithScheduler(s).
		WithClock(clk).
		WithIndividualDelays(delays).
		WithUnit(unit).
		Build(source, target)
}
