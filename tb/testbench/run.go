package testbench

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/clock"
	"github.com/sarchlab/tbsync/tb/timer"
)

// Run starts the main clock, runs the test as a task and simulates until the
// test finishes. Afterwards all remaining tasks are killed and the simulation
// end handlers are called. The returned error joins the test error, a time
// limit or stall, and a validation failure.
func (c *Context) Run(test TestFunc) error {
	if c.mainClk != nil && c.mainClk.State() == clock.NotStarted {
		c.mainClk.StartSoon()
	}

	c.running = true

	task := c.sched.StartSoon(c.name, func(t *coro.Task) error {
		defer func() {
			if c.running {
				c.engine.Stop()
			}
		}()

		if err := test(c, t); err != nil {
			return err
		}

		return c.runTeardown(t)
	})

	var engineErr error
	if c.timeLimit > 0 {
		engineErr = c.engine.RunUntil(c.timeLimit)
	} else {
		engineErr = c.engine.Run()
	}

	c.running = false
	unfinished := !task.Done()

	c.sched.Shutdown()
	c.engine.Finished()

	errs := []error{engineErr}

	switch {
	case unfinished && c.timeLimit > 0:
		errs = append(errs, fmt.Errorf("%w at %s", ErrTimeLimit, c.engine.Now()))
	case unfinished:
		errs = append(errs, fmt.Errorf("%w at %s", ErrStalled, c.engine.Now()))
	}

	testErr := task.Err()
	errs = append(errs, testErr)

	if c.teardown.AssertValid && !c.Valid() && !errors.Is(testErr, ErrValidationFailed) {
		errs = append(errs, c.budgetError())
	}

	err := errors.Join(errs...)
	if err != nil {
		c.logger.Error("test failed", "err", err, "errors", c.errorCount)
	} else {
		c.logger.Info("test passed", "time", c.engine.Now())
	}

	return err
}

func (c *Context) runTeardown(t *coro.Task) error {
	if c.teardown.DelayCycles <= 0 || c.mainClk == nil {
		return nil
	}

	return timer.Delay(t, float64(c.teardown.DelayCycles), timing.Cycle,
		c.mainClk, signal.EdgeNone)
}
