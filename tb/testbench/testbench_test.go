package testbench_test

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tbsync/logging"
	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/clock"
	"github.com/sarchlab/tbsync/tb/testbench"
	"github.com/sarchlab/tbsync/tb/timer"
)

const ns = timing.VTimeInStep(1_000_000)

var mainClock = testbench.ClockConfig{Name: "clk", Period: 20, Unit: timing.NS}

var _ = Describe("Context", func() {
	var (
		logBuf  *bytes.Buffer
		builder testbench.Builder
	)

	BeforeEach(func() {
		logBuf = new(bytes.Buffer)
		builder = testbench.MakeBuilder().
			WithName("dut").
			WithLogger(logging.NewLogger(slog.LevelDebug, logBuf)).
			WithSeed(1).
			WithClock(mainClock)
	})

	build := func(b testbench.Builder) *testbench.Context {
		ctx, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		return ctx
	}

	It("should run a test against the main clock", func() {
		ctx := build(builder)

		err := ctx.Run(func(ctx *testbench.Context, t *coro.Task) error {
			Expect(ctx.Clk().State()).To(Equal(clock.Running))
			return timer.Delay(t, 3, timing.Cycle, ctx.Clk(), signal.EdgeNone)
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.Engine().Now()).To(Equal(60 * ns))
		Expect(ctx.Clk().State()).To(Equal(clock.Stopped))
		Expect(ctx.Scheduler().Tasks()).To(BeEmpty())
		Expect(logBuf.String()).To(ContainSubstring("test passed"))
	})

	It("should run without a clock", func() {
		ctx := build(testbench.MakeBuilder())
		Expect(ctx.Clk()).To(BeNil())

		err := ctx.Run(func(_ *testbench.Context, t *coro.Task) error {
			return timer.Delay(t, 5, timing.NS, nil, signal.EdgeNone)
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.Engine().Now()).To(Equal(5 * ns))
	})

	Context("signals", func() {
		It("should return the same signal for the same name", func() {
			ctx := build(builder)

			data := ctx.Signal("data", 8)
			Expect(ctx.Signal("data", 8)).To(BeIdenticalTo(data))
			Expect(ctx.Signal("clk", 1)).To(BeIdenticalTo(ctx.Clk().Signal()))
			Expect(ctx.Signals()).To(HaveLen(2))
			Expect(ctx.Signals()[0].Name()).To(Equal("clk"))
		})

		It("should panic on a width mismatch", func() {
			ctx := build(builder)
			ctx.Signal("data", 8)

			Expect(func() { ctx.Signal("data", 4) }).To(Panic())
		})

		It("should attach signal hooks", func() {
			var changes []signal.ValueChange

			hook := hooking.HookFunc(func(hc hooking.HookCtx) {
				if hc.Domain.(*signal.Wire).Name() == "data" {
					changes = append(changes, hc.Detail.(signal.ValueChange))
				}
			})
			ctx := build(builder.WithSignalHook(hook))

			ctx.Signal("data", 8).Write(3)

			Expect(changes).To(Equal([]signal.ValueChange{{Old: 0, New: 3}}))
		})
	})

	Context("clocks", func() {
		It("should add and look up clocks", func() {
			ctx := build(builder)

			slow, err := ctx.AddClk(testbench.ClockConfig{
				Name: "clk_slow", Period: 40, Unit: timing.NS,
			}, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(slow.State()).To(Equal(clock.Running))

			found, ok := ctx.ClockByName("clk_slow")
			Expect(ok).To(BeTrue())
			Expect(found).To(BeIdenticalTo(slow))

			_, ok = ctx.ClockByName("missing")
			Expect(ok).To(BeFalse())

			Expect(ctx.Clocks()).To(Equal([]*clock.Clock{ctx.Clk(), slow}))
		})

		It("should reject duplicate clocks", func() {
			ctx := build(builder)

			_, err := ctx.AddClk(mainClock, false)

			Expect(err).To(MatchError(testbench.ErrDuplicateClock))
		})

		It("should reject an invalid main clock", func() {
			_, err := builder.
				WithClock(testbench.ClockConfig{Name: "clk", Period: 0, Unit: timing.NS}).
				Build()

			Expect(err).To(MatchError(clock.ErrInvalidPeriod))
		})
	})

	Context("reset", func() {
		It("should hold an active-low reset and release it on a falling edge", func() {
			ctx := build(builder.WithReset(testbench.ResetConfig{
				Name:      "rst_n",
				Duration:  200,
				Unit:      timing.NS,
				Edge:      signal.EdgeFalling,
				ActiveLow: true,
			}))
			rst := ctx.Signal("rst_n", 1)
			rst.Write(1)

			var during uint64

			err := ctx.Run(func(ctx *testbench.Context, t *coro.Task) error {
				ctx.Scheduler().StartSoon("observer", func(t *coro.Task) error {
					t.Sleep(100 * ns)
					during = rst.Read()

					return nil
				})

				return ctx.Reset(t, nil)
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(during).To(Equal(uint64(0)))
			Expect(rst.Read()).To(Equal(uint64(1)))
			Expect(ctx.Engine().Now()).To(Equal(210 * ns))
		})

		It("should do nothing without a reset", func() {
			ctx := build(builder)

			err := ctx.Run(func(ctx *testbench.Context, t *coro.Task) error {
				return ctx.Reset(t, nil)
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(ctx.Engine().Now()).To(Equal(timing.VTimeInStep(0)))
			Expect(logBuf.String()).To(ContainSubstring("reset not available"))
		})
	})

	Context("validation", func() {
		It("should stop on the first failure by default", func() {
			ctx := build(builder)
			reached := false

			err := ctx.Run(func(ctx *testbench.Context, _ *coro.Task) error {
				Expect(ctx.Validate(true, "fine", testbench.SeverityError)).To(Succeed())

				if err := ctx.Validate(false, "value mismatch", testbench.SeverityError); err != nil {
					return err
				}

				reached = true

				return nil
			})

			Expect(err).To(MatchError(testbench.ErrValidationFailed))
			Expect(reached).To(BeFalse())
			Expect(ctx.ErrorCount()).To(Equal(1))
			Expect(logBuf.String()).To(ContainSubstring("value mismatch"))
		})

		It("should tolerate failures within the budget", func() {
			ctx := build(builder.WithValidation(testbench.ValidationConfig{
				MaxErrorCount: 2, BreakIfExceeded: false,
			}))

			err := ctx.Run(func(ctx *testbench.Context, _ *coro.Task) error {
				Expect(ctx.Validate(false, "first", testbench.SeverityError)).To(Succeed())
				Expect(ctx.Validate(false, "second", testbench.SeverityError)).To(Succeed())

				return nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(ctx.Valid()).To(BeTrue())
		})

		It("should fail at teardown when the budget is exceeded", func() {
			ctx := build(builder.WithValidation(testbench.ValidationConfig{
				MaxErrorCount: 1, BreakIfExceeded: false,
			}))

			err := ctx.Run(func(ctx *testbench.Context, _ *coro.Task) error {
				for i := 0; i < 3; i++ {
					Expect(ctx.Validate(false, "bad", testbench.SeverityError)).To(Succeed())
				}

				return nil
			})

			Expect(err).To(MatchError(testbench.ErrValidationFailed))
			Expect(err.Error()).To(ContainSubstring("3 errors, 1 allowed"))
		})

		It("should stop on a fatal failure regardless of the budget", func() {
			ctx := build(builder.WithValidation(testbench.ValidationConfig{
				MaxErrorCount: 10, BreakIfExceeded: false,
			}))

			err := ctx.Run(func(ctx *testbench.Context, _ *coro.Task) error {
				return ctx.Validate(false, "lost sync", testbench.SeverityFatal)
			})

			Expect(err).To(MatchError(testbench.ErrFatalValidation))
			Expect(logBuf.String()).To(ContainSubstring("level=FATAL"))
		})
	})

	Context("ending the run", func() {
		It("should keep running for the teardown cycles", func() {
			ctx := build(builder.WithTeardown(testbench.TeardownConfig{DelayCycles: 2}))

			err := ctx.Run(func(_ *testbench.Context, t *coro.Task) error {
				t.Sleep(10 * ns)
				return nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(ctx.Engine().Now()).To(Equal(50 * ns))
		})

		It("should report the time limit", func() {
			ctx := build(builder.WithTimeLimit(100, timing.NS))

			err := ctx.Run(func(_ *testbench.Context, t *coro.Task) error {
				t.Sleep(1000 * ns)
				return nil
			})

			Expect(err).To(MatchError(testbench.ErrTimeLimit))
			Expect(ctx.Engine().Now()).To(Equal(100 * ns))
		})

		It("should report a stalled test", func() {
			ctx := build(testbench.MakeBuilder())
			never := ctx.Signal("never", 1)

			err := ctx.Run(func(_ *testbench.Context, t *coro.Task) error {
				t.Await(never.Edge(signal.EdgeRising))
				return nil
			})

			Expect(err).To(MatchError(testbench.ErrStalled))
		})
	})

	It("should seed its random source", func() {
		a := build(builder)
		b := build(builder)

		Expect(a.Seed()).To(Equal(int64(1)))
		Expect(a.Rand().Int63()).To(Equal(b.Rand().Int63()))
		Expect(a.RunID()).NotTo(Equal(b.RunID()))
	})
})
