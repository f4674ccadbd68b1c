package monitoring_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tbsync/monitoring"
	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/queueing"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
	"github.com/sarchlab/tbsync/tb/clock"
)

const ns = timing.VTimeInStep(1_000_000)

var _ = Describe("Monitor", func() {
	var (
		engine *timing.SerialEngine
		sched  *coro.Scheduler
		clk    *clock.Clock
		m      *monitoring.Monitor
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		sched = coro.NewScheduler(engine, nil)

		var err error
		clk, err = clock.MakeBuilder().
			WithScheduler(sched).
			WithPeriod(20).
			Build("clk", signal.NewWire("clk", 1))
		Expect(err).NotTo(HaveOccurred())

		m = monitoring.NewMonitor()
		m.RegisterEngine(engine)
		m.RegisterScheduler(sched)
		m.RegisterClock(clk)
	})

	AfterEach(func() {
		sched.Shutdown()
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.Router().ServeHTTP(rec, req)

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	It("should report the simulation time", func() {
		Expect(engine.RunUntil(30 * ns)).To(Succeed())

		var rsp map[string]any
		decode(get("/api/now"), &rsp)

		Expect(rsp).To(HaveKeyWithValue("now_fs", BeNumerically("==", 30_000_000)))
		Expect(rsp).To(HaveKeyWithValue("now", "30ns"))
	})

	It("should list the clocks", func() {
		clk.StartSoon()
		Expect(engine.RunUntil(5 * ns)).To(Succeed())

		var rsp []map[string]any
		decode(get("/api/clocks"), &rsp)

		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0]).To(HaveKeyWithValue("name", "clk"))
		Expect(rsp[0]).To(HaveKeyWithValue("period", BeNumerically("==", 20)))
		Expect(rsp[0]).To(HaveKeyWithValue("unit", "ns"))
		Expect(rsp[0]).To(HaveKeyWithValue("state", clock.Running.String()))
		Expect(rsp[0]).To(HaveKeyWithValue("value", BeNumerically("==", 1)))
	})

	It("should serialize a clock", func() {
		rec := get("/api/clock/clk")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should answer 404 for unknown clocks", func() {
		rec := get("/api/clock/other")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should list the tasks", func() {
		sched.StartSoon("worker", func(t *coro.Task) error {
			t.Sleep(100 * ns)
			return nil
		})
		Expect(engine.RunUntil(10 * ns)).To(Succeed())

		var rsp []map[string]any
		decode(get("/api/tasks"), &rsp)

		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0]).To(HaveKeyWithValue("name", "worker"))
		Expect(rsp[0]).To(HaveKeyWithValue("state", coro.TaskSuspended.String()))
	})

	It("should list buffers by level", func() {
		small := queueing.MakeBufferBuilder().WithCapacity(4).Build("small")
		big := queueing.MakeBufferBuilder().Build("big")
		big.Push(1)
		big.Push(2)
		m.RegisterBuffer(small)
		m.RegisterBuffer(big)

		var rsp []map[string]any
		decode(get("/api/buffers"), &rsp)

		Expect(rsp).To(HaveLen(2))
		Expect(rsp[0]).To(HaveKeyWithValue("buffer", "big"))
		Expect(rsp[0]).To(HaveKeyWithValue("level", BeNumerically("==", 2)))
		Expect(rsp[1]).To(HaveKeyWithValue("cap", BeNumerically("==", 4)))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("replay", 10)
		bar.Advance(3)

		var rsp []map[string]any
		decode(get("/api/progress"), &rsp)

		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0]).To(HaveKeyWithValue("name", "replay"))
		Expect(rsp[0]).To(HaveKeyWithValue("finished", BeNumerically("==", 3)))

		m.CompleteProgressBar(bar)
		decode(get("/api/progress"), &rsp)
		Expect(rsp).To(BeEmpty())
	})

	It("should report process resources", func() {
		var rsp map[string]any
		decode(get("/api/resource"), &rsp)

		Expect(rsp).To(HaveKey("cpu_percent"))
		Expect(rsp).To(HaveKeyWithValue("memory_size", BeNumerically(">", 0)))
	})

	It("should reject bad profiling durations", func() {
		rec := get("/api/profile?seconds=abc")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should pause and continue the engine", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Expect(engine.RunUntil(10 * ns)).To(Succeed())
	})

	It("should serve on a free port", func() {
		url, err := m.WithPortNumber(0).StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		rsp, err := http.Get(url + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
