package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tbsync/config"
	"github.com/sarchlab/tbsync/datarecording"
	"github.com/sarchlab/tbsync/monitoring"
	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
	"github.com/sarchlab/tbsync/sim/queueing"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/drive"
	"github.com/sarchlab/tbsync/tb/loopback"
	"github.com/sarchlab/tbsync/tb/testbench"
	"github.com/sarchlab/tbsync/tb/timer"
)

type loopbackOptions struct {
	variant       string
	period        float64
	unit          string
	cycles        int
	constantDelay float64
	maxJitter     float64
	seed          int64
	record        string
	monitorPort   int
	logEvents     bool
}

func newLoopbackCmd(root *rootOptions) *cobra.Command {
	opts := &loopbackOptions{}

	loopbackCmd := &cobra.Command{
		Use:   "loopback",
		Short: "Simulate a signal loopback and report its timing.",
		Long: "`loopback` drives an incrementing counter on the falling edges of " +
			"a clock, loops it back with the selected variant and reports how " +
			"many values were replayed and how the replay intervals varied.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoopback(cmd, root, opts)
		},
	}

	f := loopbackCmd.Flags()
	f.StringVar(&opts.variant, "variant", "constant",
		"constant, jitter or individual")
	f.Float64Var(&opts.period, "period", 20, "clock period")
	f.StringVar(&opts.unit, "unit", "ns", "unit of the period, delays and jitter")
	f.IntVar(&opts.cycles, "cycles", 32, "number of values to drive")
	f.Float64Var(&opts.constantDelay, "constant-delay", 0,
		"delay before the first replay")
	f.Float64Var(&opts.maxJitter, "max-jitter", 0,
		"bound of the random jitter, required by the jitter variant")
	f.Int64Var(&opts.seed, "seed", 0, "random seed; overrides TB_SEED")
	f.StringVar(&opts.record, "record", "",
		"SQLite trace file; \"auto\" generates a name; overrides TB_RECORD")
	f.BoolVar(&opts.logEvents, "log-events", false,
		"log every simulation event at debug level")
	f.IntVar(&opts.monitorPort, "monitor-port", 0,
		"serve the monitor on this port; overrides TB_MONITOR_PORT")

	return loopbackCmd
}

type loopbackReport struct {
	clock     string
	freq      timing.Freq
	cycles    uint64
	variant   loopback.Variant
	replayed  int
	jitterSum float64
	intervals []float64
	unit      timing.Unit
	end       timing.VTimeInStep
	pushed    uint64
	popped    uint64
	trace     string
}

func runLoopback(cmd *cobra.Command, root *rootOptions, opts *loopbackOptions) error {
	variant, err := loopback.ParseVariant(opts.variant)
	if err != nil {
		return err
	}

	unit, err := timing.ParseUnit(opts.unit)
	if err != nil {
		return err
	}

	if opts.cycles <= 0 {
		return fmt.Errorf("cycles must be positive, got %d", opts.cycles)
	}

	recordPath := root.cfg.Record
	if cmd.Flags().Changed("record") {
		recordPath = opts.record
	}

	var recorder datarecording.DataRecorder

	if recordPath != "" {
		if recordPath == config.AutoRecordName {
			recordPath = datarecording.GeneratedPath(".")
		}

		recorder, err = datarecording.New(recordPath)
		if err != nil {
			return err
		}

		defer recorder.Close()
	}

	builder := testbench.MakeBuilder().
		WithName("loopback").
		WithLogger(root.logger).
		WithSeed(seedOf(root, cmd, opts.seed)).
		WithClock(testbench.ClockConfig{Name: "clk", Period: opts.period, Unit: unit})
	if opts.logEvents {
		builder = builder.WithEventLogging()
	}

	bench, err := builder.Build()
	if err != nil {
		return err
	}

	clk := bench.Clk()
	in := bench.Signal("data_in", 32)
	out := bench.Signal("data_out", 32)

	var changes []timing.VTimeInStep

	out.AcceptHook(hooking.HookFunc(func(hooking.HookCtx) {
		changes = append(changes, bench.Engine().Now())
	}))

	bufferOps := hooking.NewCountTracer()
	bufferHooks := []hooking.Hook{bufferOps}

	if recorder != nil {
		tracer := datarecording.NewSignalTracer(bench.Engine(), recorder)
		for _, s := range bench.Signals() {
			s.AcceptHook(tracer)
		}

		bufferHooks = append(bufferHooks,
			datarecording.NewBufferTracer(bench.Engine(), recorder))
	}

	monitorPort := root.cfg.MonitorPort
	if cmd.Flags().Changed("monitor-port") {
		monitorPort = opts.monitorPort
	}

	var monitor *monitoring.Monitor

	if monitorPort > 0 {
		monitor = monitoring.NewMonitor().
			WithPortNumber(monitorPort).
			WithBrowser(root.cfg.OpenBrowser)
		monitor.RegisterEngine(bench.Engine())
		monitor.RegisterScheduler(bench.Scheduler())
		monitor.RegisterClock(clk)

		bar := monitor.CreateProgressBar("replay", uint64(opts.cycles))
		bufferHooks = append(bufferHooks, hooking.HookFunc(func(hc hooking.HookCtx) {
			if hc.Pos == queueing.HookPosBufPop {
				bar.Advance(1)
			}
		}))

		if _, err := monitor.StartServer(); err != nil {
			return err
		}

		defer monitor.Close()
	}

	lb, err := buildLoopback(bench, variant, unit, opts, bufferHooks, in, out)
	if err != nil {
		return err
	}

	if monitor != nil {
		monitor.RegisterBuffer(lb.Buffer())
	}

	err = bench.Run(func(_ *testbench.Context, t *coro.Task) error {
		timer.EdgeTrigger(t, clk, signal.EdgeFalling)

		err := drive.Incremental(t, in, clk, 1, uint64(opts.cycles)+1,
			1, timing.Cycle, signal.EdgeFalling)
		if err != nil {
			return err
		}

		if variant == loopback.VariantIndividual {
			return lb.Wait(t)
		}

		err = timer.Delay(t, opts.constantDelay+opts.maxJitter, unit, clk, signal.EdgeNone)
		if err != nil {
			return err
		}

		if err := timer.Delay(t, 2, timing.Cycle, clk, signal.EdgeNone); err != nil {
			return err
		}

		lb.Kill()

		return nil
	})
	if err != nil {
		return err
	}

	report := loopbackReport{
		clock:     clk.String(),
		freq:      clk.Freq(),
		cycles:    clk.Freq().Cycle(bench.Engine().Now()),
		variant:   variant,
		replayed:  lb.Replayed(),
		jitterSum: lb.JitterSum(),
		unit:      unit,
		end:       bench.Engine().Now(),
		pushed:    bufferOps.Count(queueing.HookPosBufPush.Name),
		popped:    bufferOps.Count(queueing.HookPosBufPop.Name),
	}

	for i := 1; i < len(changes); i++ {
		report.intervals = append(report.intervals, (changes[i] - changes[i-1]).InUnit(unit))
	}

	if recorder != nil {
		recorder.Flush()
		report.trace = datarecording.Path(recorder)
	}

	writeReport(cmd.OutOrStdout(), report)

	return nil
}

func buildLoopback(
	bench *testbench.Context,
	variant loopback.Variant,
	unit timing.Unit,
	opts *loopbackOptions,
	bufferHooks []hooking.Hook,
	source, target signal.Signal,
) (*loopback.Loopback, error) {
	b := loopback.MakeBuilder().
		WithScheduler(bench.Scheduler()).
		WithClock(bench.Clk()).
		WithUnit(unit).
		WithConstantDelay(opts.constantDelay).
		WithRand(bench.Rand())

	for _, h := range bufferHooks {
		b = b.WithBufferHook(h)
	}

	switch variant {
	case loopback.VariantJitter:
		if !(opts.maxJitter > 0) {
			return nil, fmt.Errorf("variant %s needs a positive --max-jitter", variant)
		}

		b = b.WithMaxJitter(opts.maxJitter)
	case loopback.VariantIndividual:
		delays, err := loopback.PlanDelays(loopback.PlanConfig{
			Count:     opts.cycles,
			Period:    opts.period,
			MaxJitter: opts.maxJitter,
			Rand:      bench.Rand(),
		})
		if err != nil {
			return nil, err
		}

		b = b.WithIndividualDelays(delays)
	}

	return b.Build(source, target)
}

func writeReport(w io.Writer, r loopbackReport) {
	fmt.Fprintf(w, "clock:      %s, %s\n", r.clock, formatFreq(r.freq))
	fmt.Fprintf(w, "variant:    %s\n", r.variant)
	fmt.Fprintf(w, "replayed:   %d\n", r.replayed)
	fmt.Fprintf(w, "buffer:     %d pushed, %d popped\n", r.pushed, r.popped)
	fmt.Fprintf(w, "end time:   %s (%d cycles)\n", r.end, r.cycles)

	if r.variant == loopback.VariantJitter {
		fmt.Fprintf(w, "jitter sum: %.4g %s\n", r.jitterSum, r.unit)
	}

	if len(r.intervals) > 0 {
		lo, mean, hi := intervalStats(r.intervals)
		fmt.Fprintf(w, "interval:   min %.4g, mean %.4g, max %.4g %s\n",
			lo, mean, hi, r.unit)
	}

	if r.trace != "" {
		fmt.Fprintf(w, "trace:      %s\n", r.trace)
	}
}

func intervalStats(intervals []float64) (lo, mean, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)

	for _, v := range intervals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		mean += v
	}

	return lo, mean / float64(len(intervals)), hi
}

func formatFreq(f timing.Freq) string {
	switch {
	case f >= timing.GHz:
		return fmt.Sprintf("%.4g GHz", float64(f/timing.GHz))
	case f >= timing.MHz:
		return fmt.Sprintf("%.4g MHz", float64(f/timing.MHz))
	case f >= timing.KHz:
		return fmt.Sprintf("%.4g kHz", float64(f/timing.KHz))
	default:
		return fmt.Sprintf("%.4g Hz", float64(f))
	}
}
