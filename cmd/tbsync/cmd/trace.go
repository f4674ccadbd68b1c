package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tbsync/datarecording"
	"github.com/sarchlab/tbsync/sim/timing"
)

func newTraceCmd() *cobra.Command {
	var signalName string

	traceCmd := &cobra.Command{
		Use:   "trace FILE",
		Short: "Summarize a trace recorded by loopback --record.",
		Long: "`trace FILE` lists the activity of every recorded signal and " +
			"buffer. With --signal, it prints each change of that signal instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.OpenTrace(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			if signalName != "" {
				return printSignalChanges(cmd, reader, signalName)
			}

			return printTraceSummary(cmd, reader)
		},
	}

	traceCmd.Flags().StringVar(&signalName, "signal", "",
		"print every change of this signal")

	return traceCmd
}

func printTraceSummary(cmd *cobra.Command, reader *datarecording.TraceReader) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	tables, err := reader.Tables(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "tables:     %s\n", strings.Join(tables, ", "))

	signals, err := reader.SignalActivity(ctx)
	if err != nil {
		return err
	}

	for _, s := range signals {
		fmt.Fprintf(w, "signal:     %s, %d changes, %s to %s, final %#x\n",
			s.Signal, s.Changes,
			timing.VTimeInStep(s.FirstFS), timing.VTimeInStep(s.LastFS), s.Final)
	}

	buffers, err := reader.BufferActivity(ctx)
	if err != nil {
		return err
	}

	for _, b := range buffers {
		fmt.Fprintf(w, "buffer:     %s, %d pushed, %d popped, max size %d\n",
			b.Buffer, b.Pushes, b.Pops, b.MaxSize)
	}

	return nil
}

func printSignalChanges(
	cmd *cobra.Command,
	reader *datarecording.TraceReader,
	name string,
) error {
	changes, err := reader.SignalChanges(cmd.Context(), name)
	if err != nil {
		return err
	}

	if len(changes) == 0 {
		return fmt.Errorf("no changes recorded for signal %q", name)
	}

	writeChanges(cmd.OutOrStdout(), changes)

	return nil
}

func writeChanges(w io.Writer, changes []datarecording.SignalEntry) {
	for _, c := range changes {
		fmt.Fprintf(w, "%s\t%#x\n", timing.VTimeInStep(c.TimeFS), c.Value)
	}
}
