package timer_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/timer"
)

var _ = Describe("TriggerWithTimeout", func() {
	var (
		b      *bench
		sig    *signal.Wire
		other  *signal.Wire
		result bool
		err    error
		at     timing.VTimeInStep
	)

	BeforeEach(func() {
		b = newBench()
		sig = signal.NewWire("ready", 1)
		other = signal.NewWire("valid", 1)
	})

	AfterEach(func() {
		b.sched.Shutdown()
	})

	race := func(
		duration float64,
		unit timing.Unit,
		clk timer.Clock,
		opts ...timer.TimeoutOption,
	) coro.TaskFunc {
		return func(t *coro.Task) error {
			result, err = timer.TriggerWithTimeout(t,
				[]timer.TriggerConfig{
					timer.NewTriggerConfig(sig, signal.EdgeRising),
					timer.NewTriggerConfig(other, signal.EdgeRising),
				},
				duration, unit, clk, opts...)
			at = t.Scheduler().Now()
			return nil
		}
	}

	It("should time out after five cycles when nothing rises", func() {
		b.run(race(5, timing.Cycle, b.clk))

		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(BeFalse())
		Expect(at).To(Equal(100 * ns))
		Expect(b.logBuf.String()).To(ContainSubstring("level=ERROR"))
		Expect(b.logBuf.String()).To(ContainSubstring("First(ready, valid) timed out after 5 cycle"))
	})

	It("should stay quiet on timeout when silent", func() {
		b.run(race(5, timing.Cycle, b.clk, timer.Silent()))

		Expect(result).To(BeFalse())
		Expect(b.logBuf.String()).NotTo(ContainSubstring("timed out"))
	})

	It("should return true when a trigger fires first", func() {
		b.sched.StartSoon("driver", func(t *coro.Task) error {
			t.Sleep(30 * ns)
			other.Write(1)
			return nil
		})

		b.run(race(5, timing.Cycle, b.clk))

		Expect(result).To(BeTrue())
		Expect(at).To(Equal(30 * ns))
		Expect(b.logBuf.String()).NotTo(ContainSubstring("timed out"))
	})

	It("should align to the post-sync edge", func() {
		b.sched.StartSoon("driver", func(t *coro.Task) error {
			t.Sleep(35 * ns)
			sig.Write(1)
			return nil
		})

		b.run(race(5, timing.Cycle, b.clk,
			timer.WithPostSyncEdge(signal.EdgeRising)))

		Expect(result).To(BeTrue())
		Expect(at).To(Equal(40 * ns))
	})

	It("should align after a timeout too", func() {
		b.run(race(95, timing.NS, b.clk,
			timer.WithPostSyncEdge(signal.EdgeFalling), timer.Silent()))

		Expect(result).To(BeFalse())
		Expect(at).To(Equal(110 * ns))
	})

	It("should warn when a sync edge has no clock", func() {
		b.run(race(50, timing.NS, nil,
			timer.WithPostSyncEdge(signal.EdgeRising), timer.Silent()))

		Expect(result).To(BeFalse())
		Expect(at).To(Equal(50 * ns))
		Expect(b.logBuf.String()).To(ContainSubstring("level=WARN"))
		Expect(b.logBuf.String()).To(ContainSubstring("without a clock"))
	})

	It("should fail fast without a clock for cycles", func() {
		b.run(race(5, timing.Cycle, nil))

		Expect(err).To(MatchError(timer.ErrClockRequired))
		Expect(at).To(BeZero())
	})

	It("should refuse a trigger without an edge", func() {
		b.run(func(t *coro.Task) error {
			_, err = timer.TriggerWithTimeout(t,
				[]timer.TriggerConfig{timer.NewTriggerConfig(sig, signal.EdgeNone)},
				1, timing.NS, nil)
			return nil
		})

		Expect(err).To(MatchError(timer.ErrEdgeRequired))
	})
})
