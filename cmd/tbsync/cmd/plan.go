package cmd

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tbsync/tb/loopback"
)

type planOptions struct {
	count        int
	period       float64
	maxJitter    float64
	driftRatio   float64
	drift        string
	samplePeriod float64
	seed         int64
}

func newPlanDelaysCmd(root *rootOptions) *cobra.Command {
	opts := &planOptions{}

	planCmd := &cobra.Command{
		Use:   "plan-delays",
		Short: "Print a delay list for an individual delay loopback.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drift, err := loopback.ParseDrift(opts.drift)
			if err != nil {
				return err
			}

			seed := seedOf(root, cmd, opts.seed)
			root.logger.Debug("planning delays", "seed", seed)

			delays, err := loopback.PlanDelays(loopback.PlanConfig{
				Count:        opts.count,
				Period:       opts.period,
				MaxJitter:    opts.maxJitter,
				DriftRatio:   opts.driftRatio,
				Drift:        drift,
				SamplePeriod: opts.samplePeriod,
				Rand:         rand.New(rand.NewSource(seed)),
			})
			if err != nil {
				return err
			}

			for _, d := range delays {
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(d, 'f', -1, 64))
			}

			return nil
		},
	}

	f := planCmd.Flags()
	f.IntVar(&opts.count, "count", 16, "number of delays")
	f.Float64Var(&opts.period, "period", 20, "nominal data period")
	f.Float64Var(&opts.maxJitter, "max-jitter", 0, "bound of the random jitter")
	f.Float64Var(&opts.driftRatio, "drift-ratio", 0,
		"fraction of items shifted by one sample period")
	f.StringVar(&opts.drift, "drift", "slow_down", "speed_up or slow_down")
	f.Float64Var(&opts.samplePeriod, "sample-period", 0,
		"period of the sampling clock, needed for drift")
	f.Int64Var(&opts.seed, "seed", 0, "random seed; overrides TB_SEED")

	return planCmd
}

// seedOf prefers the --seed flag, then TB_SEED, then the wall clock.
func seedOf(root *rootOptions, cmd *cobra.Command, flagSeed int64) int64 {
	switch {
	case cmd.Flags().Changed("seed"):
		return flagSeed
	case root.cfg.HasSeed:
		return root.cfg.Seed
	default:
		return time.Now().UnixNano()
	}
}
