package queueing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
	"github.com/sarchlab/tbsync/sim/timing"
)

var _ = Describe("BufferImpl", func() {
	var (
		mockCtrl *gomock.Controller
		buf      Buffer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		buf = MakeBufferBuilder().
			WithCapacity(2).
			Build("Buf")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should allow push and pop", func() {
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())

		buf.Push(1)
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		buf.Push(2)
		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(func() {
			buf.Push(3)
		}).To(Panic())

		Expect(buf.Peek()).To(Equal(1))
		Expect(buf.Pop()).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
		Expect(buf.Peek()).To(Equal(2))
		Expect(buf.Pop()).To(Equal(2))
		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
		Expect(buf.Pop()).To(BeNil())
	})

	It("should clear", func() {
		buf.Push(2)
		Expect(buf.Size()).To(Equal(1))

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
	})

	It("should never be full when unbounded", func() {
		unbounded := MakeBufferBuilder().Build("Unbounded")

		for i := 0; i < 1000; i++ {
			unbounded.Push(i)
		}

		Expect(unbounded.CanPush()).To(BeTrue())
		Expect(unbounded.Elements()).To(HaveLen(1000))
		Expect(unbounded.Pop()).To(Equal(0))
	})

	It("should invoke push and pop hooks", func() {
		hook := NewMockHook(mockCtrl)
		buf.AcceptHook(hook)

		gomock.InOrder(
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: buf,
				Pos:    HookPosBufPush,
				Item:   7,
				Detail: 1,
			}),
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: buf,
				Pos:    HookPosBufPop,
				Item:   7,
				Detail: 0,
			}),
		)

		buf.Push(7)
		buf.Pop()
	})

	Context("when a consumer waits", func() {
		var (
			engine *timing.SerialEngine
			sched  *coro.Scheduler
		)

		BeforeEach(func() {
			engine = timing.NewSerialEngine()
			sched = coro.NewScheduler(engine, nil)
			buf = MakeBufferBuilder().Build("Chan")
		})

		AfterEach(func() {
			sched.Shutdown()
		})

		It("should resume the consumer on push, in order", func() {
			var got []any
			var at []timing.VTimeInStep

			sched.StartSoon("consumer", func(t *coro.Task) error {
				for len(got) < 3 {
					if buf.Size() == 0 {
						t.Await(buf.NotEmpty())
					}

					got = append(got, buf.Pop())
					at = append(at, t.Scheduler().Now())
				}
				return nil
			})
			sched.StartSoon("producer", func(t *coro.Task) error {
				t.Sleep(10)
				buf.Push("a")
				buf.Push("b")
				t.Sleep(10)
				buf.Push("c")
				return nil
			})

			Expect(engine.Run()).To(Succeed())
			Expect(got).To(Equal([]any{"a", "b", "c"}))
			Expect(at).To(Equal([]timing.VTimeInStep{10, 10, 20}))
		})
	})
})
