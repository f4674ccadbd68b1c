package signal_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
)

var _ = Describe("Wire", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *timing.SerialEngine
		sched    *coro.Scheduler
		wire     *signal.Wire
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = timing.NewSerialEngine()
		sched = coro.NewScheduler(engine, nil)
		wire = signal.NewWire("data", 4)
	})

	AfterEach(func() {
		sched.Shutdown()
		mockCtrl.Finish()
	})

	It("should mask writes to the width", func() {
		wire.Write(0x1f)

		Expect(wire.Read()).To(Equal(uint64(0xf)))
		Expect(wire.Width()).To(Equal(4))
	})

	It("should reject a bad width", func() {
		Expect(func() { signal.NewWire("bad", 0) }).To(Panic())
		Expect(func() { signal.NewWire("bad", 65) }).To(Panic())
	})

	It("should invoke hooks only on change", func() {
		hook := NewMockHook(mockCtrl)
		wire.AcceptHook(hook)

		hook.EXPECT().Func(hooking.HookCtx{
			Domain: wire,
			Pos:    signal.HookPosValueChange,
			Item:   uint64(3),
			Detail: signal.ValueChange{Old: 0, New: 3},
		})

		wire.Write(3)
		wire.Write(3)
	})

	It("should resume waiters on the matching edge", func() {
		var risingAt, fallingAt, anyAt timing.VTimeInStep

		sched.StartSoon("rising", func(t *coro.Task) error {
			t.Await(wire.Edge(signal.EdgeRising))
			risingAt = t.Scheduler().Now()
			return nil
		})
		sched.StartSoon("falling", func(t *coro.Task) error {
			t.Await(wire.Edge(signal.EdgeFalling))
			fallingAt = t.Scheduler().Now()
			return nil
		})
		sched.StartSoon("any", func(t *coro.Task) error {
			t.Await(wire.Edge(signal.EdgeAny))
			anyAt = t.Scheduler().Now()
			return nil
		})
		sched.StartSoon("driver", func(t *coro.Task) error {
			t.Sleep(10)
			wire.Write(2)
			t.Sleep(10)
			wire.Write(3)
			t.Sleep(10)
			wire.Write(2)
			return nil
		})

		Expect(engine.Run()).To(Succeed())
		Expect(anyAt).To(Equal(timing.VTimeInStep(10)))
		Expect(risingAt).To(Equal(timing.VTimeInStep(20)))
		Expect(fallingAt).To(Equal(timing.VTimeInStep(30)))
	})

	It("should not fire a cancelled edge trigger", func() {
		index := -1

		sched.StartSoon("racer", func(t *coro.Task) error {
			index = t.First(wire.Edge(signal.EdgeRising), coro.Timer(5))
			t.Sleep(100)
			return nil
		})
		sched.StartSoon("driver", func(t *coro.Task) error {
			t.Sleep(10)
			wire.Write(1)
			return nil
		})

		Expect(engine.Run()).To(Succeed())
		Expect(index).To(Equal(1))
		Expect(engine.Now()).To(Equal(timing.VTimeInStep(105)))
	})

	It("should drop timed-out edge triggers from a quiet wire", func() {
		timeouts := 0

		sched.StartSoon("racer", func(t *coro.Task) error {
			for i := 0; i < 1000; i++ {
				if t.First(wire.Edge(signal.EdgeRising), coro.Timer(10)) == 1 {
					timeouts++
				}
			}
			return nil
		})

		Expect(engine.Run()).To(Succeed())
		Expect(timeouts).To(Equal(1000))
		Expect(wire.NumListeners()).To(BeZero())
	})

	It("should keep waiting listeners after another is cancelled", func() {
		var risingAt timing.VTimeInStep
		waiting := -1

		sched.StartSoon("waiter", func(t *coro.Task) error {
			t.Await(wire.Edge(signal.EdgeRising))
			risingAt = t.Scheduler().Now()
			return nil
		})
		sched.StartSoon("racer", func(t *coro.Task) error {
			t.First(wire.Edge(signal.EdgeRising), coro.Timer(5))
			return nil
		})
		sched.StartSoon("driver", func(t *coro.Task) error {
			t.Sleep(8)
			waiting = wire.NumListeners()
			wire.Write(1)
			return nil
		})

		Expect(engine.Run()).To(Succeed())
		Expect(waiting).To(Equal(1))
		Expect(risingAt).To(Equal(timing.VTimeInStep(8)))
		Expect(wire.NumListeners()).To(BeZero())
	})

	It("should refuse to wait for no edge", func() {
		Expect(func() { wire.Edge(signal.EdgeNone) }).To(Panic())
	})
})

var _ = DescribeTable("EdgeType.Matches",
	func(edge signal.EdgeType, old, new uint64, expected bool) {
		Expect(edge.Matches(old, new)).To(Equal(expected))
	},
	Entry("rising 0->1", signal.EdgeRising, uint64(0), uint64(1), true),
	Entry("rising 1->0", signal.EdgeRising, uint64(1), uint64(0), false),
	Entry("rising on upper bits only", signal.EdgeRising, uint64(0), uint64(2), false),
	Entry("falling 1->0", signal.EdgeFalling, uint64(1), uint64(0), true),
	Entry("any 2->4", signal.EdgeAny, uint64(2), uint64(4), true),
	Entry("none", signal.EdgeNone, uint64(0), uint64(1), false),
)

var _ = DescribeTable("EdgeType.Covers",
	func(edge, want signal.EdgeType, expected bool) {
		Expect(edge.Covers(want)).To(Equal(expected))
	},
	Entry("rising covers rising", signal.EdgeRising, signal.EdgeRising, true),
	Entry("rising covers any", signal.EdgeRising, signal.EdgeAny, true),
	Entry("falling does not cover rising", signal.EdgeFalling, signal.EdgeRising, false),
	Entry("none covers nothing", signal.EdgeNone, signal.EdgeAny, false),
	Entry("nothing is covered for none", signal.EdgeRising, signal.EdgeNone, false),
)

var _ = Describe("ParseEdgeType", func() {
	It("should parse names", func() {
		for _, e := range []signal.EdgeType{
			signal.EdgeNone, signal.EdgeRising, signal.EdgeFalling, signal.EdgeAny,
		} {
			parsed, err := signal.ParseEdgeType(e.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(e))
		}
	})

	It("should reject unknown names", func() {
		_, err := signal.ParseEdgeType("sideways")
		Expect(err).To(MatchError(signal.ErrUnknownEdge))
	})
})
