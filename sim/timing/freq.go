package timing

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// FreqOfPeriod returns the frequency of a clock whose period spans the given
// number of steps.
func FreqOfPeriod(period VTimeInStep) Freq {
	if period == 0 {
		log.Panic("period cannot be 0")
	}

	return Freq(stepsPerUnit[Sec] / float64(period))
}

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInStep {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInStep(math.Round(stepsPerUnit[Sec] / float64(f)))
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(time VTimeInStep) uint64 {
	return uint64(time / f.Period())
}

// ThisTick returns the current tick time
//
//	           Input
//	           (          ]
//	|----------|----------|----------|----->
//	                      |
//	                      Output
func (f Freq) ThisTick(now VTimeInStep) VTimeInStep {
	period := f.Period()
	count := (now + period - 1) / period

	return count * period
}

// NextTick returns the next tick time.
//
//	           Input
//	           [          )
//	|----------|----------|----------|----->
//	                      |
//	                      Output
func (f Freq) NextTick(now VTimeInStep) VTimeInStep {
	period := f.Period()

	return (now/period + 1) * period
}

// NCyclesLater returns the time after N cycles
//
// This function will always return a time of an integer number of cycles
func (f Freq) NCyclesLater(n int, now VTimeInStep) VTimeInStep {
	return f.ThisTick(now + VTimeInStep(n)*f.Period())
}
