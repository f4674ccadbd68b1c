package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/clock"
	"github.com/sarchlab/tbsync/tb/timer"
)

func newConvertCmd() *cobra.Command {
	var (
		period    float64
		clockUnit string
	)

	convertCmd := &cobra.Command{
		Use:   "convert QUANTITY FROM TO",
		Short: "Convert a duration between units.",
		Long: "`convert 3 cycle ns --period 20` converts through a clock of the " +
			"given period. Cycle results are truncated to whole cycles.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("quantity %q: %w", args[0], err)
			}

			from, err := timing.ParseUnit(args[1])
			if err != nil {
				return err
			}

			to, err := timing.ParseUnit(args[2])
			if err != nil {
				return err
			}

			var clk timer.Clock

			if period > 0 {
				unit, err := timing.ParseUnit(clockUnit)
				if err != nil {
					return err
				}

				c, err := referenceClock(period, unit)
				if err != nil {
					return err
				}

				clk = c
			}

			result, err := timer.Convert(quantity, from, to, clk)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				strconv.FormatFloat(result, 'g', -1, 64), to)

			return nil
		},
	}

	convertCmd.Flags().Float64Var(&period, "period", 0,
		"period of the reference clock; required for cycle conversions")
	convertCmd.Flags().StringVar(&clockUnit, "clock-unit", "ns",
		"unit of the reference clock period")

	return convertCmd
}

// referenceClock builds a clock that is never started. Only its period is
// used.
func referenceClock(period float64, unit timing.Unit) (*clock.Clock, error) {
	sched := coro.NewScheduler(timing.NewSerialEngine(), nil)

	return clock.MakeBuilder().
		WithScheduler(sched).
		WithPeriod(period).
		WithUnit(unit).
		Build("ref", signal.NewWire("ref", 1))
}
