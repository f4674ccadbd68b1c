// Package loopback feeds a sampled output signal back into an input signal
// after a modeled transport delay.
//
// A loopback is a pair of tasks joined by an unbounded FIFO buffer. The
// sampler reads the source on every rising edge of the reference clock and
// pushes the value. The replayer pops values in order, writes them to the
// target and then waits for the replay delay of the item. The replay delay is
// one clock period (constant), one period plus a bounded random jitter
// (jitter), or taken from a caller supplied list (individual).
package loopback

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/queueing"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/timer"
)

// Variant selects how replay delays are computed.
type Variant int

// The loopback variants.
const (
	VariantConstant Variant = iota
	VariantJitter
	VariantIndividual
)

func (v Variant) String() string {
	switch v {
	case VariantConstant:
		return "constant"
	case VariantJitter:
		return "jitter"
	case VariantIndividual:
		return "individual"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant converts a variant name into a Variant.
func ParseVariant(s string) (Variant, error) {
	for _, v := range []Variant{VariantConstant, VariantJitter, VariantIndividual} {
		if v.String() == s {
			return v, nil
		}
	}

	return 0, fmt.Errorf("unknown loopback variant %q", s)
}

// Errors returned when building a loopback.
var (
	ErrJitterBound    = errors.New("constant delay must be less than the max jitter")
	ErrNegativeJitter = errors.New("max jitter must not be negative")
	ErrNoDelays       = errors.New("individual delay list is empty")
	ErrNoScheduler    = errors.New("a scheduler is required")
)

// A Loopback is a running sampler and replayer pair.
type Loopback struct {
	variant       Variant
	source        signal.Signal
	target        signal.Signal
	clk           timer.Clock
	unit          timing.Unit
	period        float64
	constantDelay float64
	maxJitter     float64
	delays        []float64
	rng           *rand.Rand
	logger        *slog.Logger

	buffer   queueing.Buffer
	sampler  *coro.Task
	replayer *coro.Task

	jitterSum  float64
	jitterSign float64
	replayed   int
}

// Variant returns how the replay delays are computed.
func (l *Loopback) Variant() Variant {
	return l.variant
}

// Sampler returns the task that samples the source.
func (l *Loopback) Sampler() *coro.Task {
	return l.sampler
}

// Replayer returns the task that writes the target.
func (l *Loopback) Replayer() *coro.Task {
	return l.replayer
}

// Buffer returns the FIFO between the sampler and the replayer.
func (l *Loopback) Buffer() queueing.Buffer {
	return l.buffer
}

// JitterSum returns the accumulated signed jitter, in the loopback unit.
func (l *Loopback) JitterSum() float64 {
	return l.jitterSum
}

// Replayed returns the number of values written to the target.
func (l *Loopback) Replayed() int {
	return l.replayed
}

// Kill stops both tasks.
func (l *Loopback) Kill() {
	l.sampler.Kill()
	l.replayer.Kill()
}

// Wait suspends the task until the replayer finishes. Only the individual
// variant finishes on its own.
func (l *Loopback) Wait(t *coro.Task) error {
	return t.Join(l.replayer)
}

func (l *Loopback) sample(t *coro.Task) error {
	for {
		timer.EdgeTrigger(t, l.clk, signal.EdgeRising)

		v := l.source.Read()
		l.logger.Debug("signal loopback: value received", "value", v)
		l.buffer.Push(v)
	}
}

func (l *Loopback) replay(t *coro.Task) error {
	if l.variant == VariantIndividual {
		return l.replayIndividual(t)
	}

	err := timer.Delay(t, l.constantDelay, l.unit, nil, signal.EdgeNone)
	if err != nil {
		return err
	}

	for {
		if err := l.replayOne(t, l.nextDelay()); err != nil {
			return err
		}
	}
}

func (l *Loopback) replayIndividual(t *coro.Task) error {
	defer l.sampler.Kill()

	for _, d := range l.delays {
		if err := l.replayOne(t, d); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loopback) nextDelay() float64 {
	d := l.period

	if l.variant != VariantJitter || l.maxJitter == 0 {
		return d
	}

	jitter := l.rng.Float64() * l.maxJitter
	if math.Abs(l.jitterSum+l.jitterSign*jitter) > l.maxJitter {
		l.jitterSign = -l.jitterSign
	}

	d += l.jitterSign * jitter
	l.jitterSum += l.jitterSign * jitter

	return d
}

func (l *Loopback) replayOne(t *coro.Task, delay float64) error {
	for l.buffer.Size() == 0 {
		t.Await(l.buffer.NotEmpty())
	}

	v := l.buffer.Pop().(uint64)
	l.logger.Debug("signal loopback: value returned", "value", v)
	l.target.Write(v)
	l.replayed++

	return timer.Delay(t, delay, l.unit, nil, signal.EdgeNone)
}
