package loopback

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Drift is the direction in which the data clock drifts from the sample clock.
type Drift int

// SpeedUp shortens the affected delays, SlowDown lengthens them.
const (
	SpeedUp  Drift = -1
	SlowDown Drift = 1
)

func (d Drift) String() string {
	if d == SpeedUp {
		return "speed_up"
	}

	return "slow_down"
}

// ParseDrift converts "speed_up" or "slow_down" into a Drift.
func ParseDrift(s string) (Drift, error) {
	switch s {
	case "speed_up":
		return SpeedUp, nil
	case "slow_down":
		return SlowDown, nil
	}

	return 0, fmt.Errorf("unknown drift type %q", s)
}

// ErrInvalidPlan is returned for a plan configuration that cannot produce a
// delay list.
var ErrInvalidPlan = errors.New("invalid delay plan")

// PlanConfig describes a delay list for an individual delay loopback.
type PlanConfig struct {
	// Count is the number of delays.
	Count int

	// Period is the nominal data clock period.
	Period float64

	// MaxJitter bounds the random jitter added to each delay. Zero disables
	// jitter.
	MaxJitter float64

	// DriftRatio is the fraction of items that get shifted by one sample
	// period. Zero disables drift.
	DriftRatio float64

	Drift Drift

	// SamplePeriod is the period of the clock that samples the looped back
	// signal.
	SamplePeriod float64

	Rand *rand.Rand
}

func (c PlanConfig) validate() error {
	switch {
	case c.Count < 0:
		return fmt.Errorf("%w: negative count %d", ErrInvalidPlan, c.Count)
	case !(c.Period > 0):
		return fmt.Errorf("%w: period %v", ErrInvalidPlan, c.Period)
	case c.MaxJitter < 0:
		return fmt.Errorf("%w: %w", ErrInvalidPlan, ErrNegativeJitter)
	case c.MaxJitter > 0 && c.Rand == nil:
		return fmt.Errorf("%w: jitter needs a random source", ErrInvalidPlan)
	case c.DriftRatio < 0 || c.DriftRatio > 1:
		return fmt.Errorf("%w: drift ratio %v out of [0, 1]", ErrInvalidPlan, c.DriftRatio)
	case c.DriftRatio > 0 && !(c.SamplePeriod > 0):
		return fmt.Errorf("%w: drift needs a sample period", ErrInvalidPlan)
	case c.DriftRatio > 0 && c.Drift != SpeedUp && c.Drift != SlowDown:
		return fmt.Errorf("%w: drift %d", ErrInvalidPlan, int(c.Drift))
	}

	return nil
}

// PlanDelays computes one replay delay per item: the data period, plus a
// clamped random jitter, plus one sample period in the drift direction every
// 1/DriftRatio items, starting with the first.
func PlanDelays(c PlanConfig) ([]float64, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	delays := make([]float64, c.Count)
	for i := range delays {
		delays[i] = c.Period
	}

	if c.MaxJitter > 0 {
		sum, sign := 0.0, 1.0

		for i := range delays {
			jitter := c.Rand.Float64() * c.MaxJitter
			if math.Abs(sum+sign*jitter) > c.MaxJitter {
				sign = -sign
			}

			delays[i] += sign * jitter
			sum += sign * jitter
		}
	}

	if c.DriftRatio > 0 {
		every := c.Count
		if steps := math.Floor(1 / c.DriftRatio); steps < float64(c.Count) {
			every = int(steps)
		}

		for i := 0; i < c.Count; i += every {
			delays[i] += float64(c.Drift) * c.SamplePeriod
		}
	}

	return delays, nil
}
