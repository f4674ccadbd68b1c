// Package cmd provides the command-line interface of tbsync.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tbsync/config"
	"github.com/sarchlab/tbsync/logging"
)

type rootOptions struct {
	envFiles []string
	logLevel string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "tbsync",
		Short: "tbsync converts testbench durations and runs loopback scenarios.",
		Long: `tbsync exposes the timing helpers of the testbench library on the ` +
			`command line. It converts durations between units, plans ` +
			`individual loopback delays, runs self-contained loopback ` +
			`scenarios on the simulator and summarizes their recorded traces.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file",
		[]string{".env"}, "optional .env files to read settings from")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"debug, info, warning, error or fatal; overrides TB_LOG_LEVEL")

	rootCmd.AddCommand(
		newConvertCmd(),
		newPlanDelaysCmd(opts),
		newLoopbackCmd(opts),
		newTraceCmd(),
	)

	return rootCmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return err
	}

	if o.logLevel != "" {
		level, ok := logging.ParseLevel(o.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", o.logLevel)
		}

		cfg.LogLevel = level
	}

	o.cfg = cfg
	o.logger = logging.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())

	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	return 0
}
