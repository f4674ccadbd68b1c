package timing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Unit", func() {
	DescribeTable("converting to steps",
		func(q float64, u Unit, expected VTimeInStep) {
			steps, err := ToSteps(q, u)
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(Equal(expected))
		},
		Entry("fs", 3.0, FS, VTimeInStep(3)),
		Entry("step", 3.0, Step, VTimeInStep(3)),
		Entry("ps", 2.5, PS, VTimeInStep(2500)),
		Entry("ns", 20.0, NS, VTimeInStep(20_000_000)),
		Entry("fractional ns", 0.5, NS, VTimeInStep(500_000)),
		Entry("us", 1.0, US, VTimeInStep(1_000_000_000)),
		Entry("sec", 1.0, Sec, VTimeInStep(1_000_000_000_000_000)),
	)

	It("should refuse clock-relative units", func() {
		_, err := ToSteps(1, Cycle)
		Expect(err).To(MatchError(ErrClockRelativeUnit))

		_, err = ToSteps(1, Edge)
		Expect(err).To(MatchError(ErrClockRelativeUnit))
	})

	It("should refuse negative durations", func() {
		_, err := ToSteps(-1, NS)
		Expect(err).To(MatchError(ErrInvalidDuration))
	})

	It("should parse unit names", func() {
		u, err := ParseUnit("NS")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal(NS))

		u, err = ParseUnit("cycle")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.IsClockRelative()).To(BeTrue())

		_, err = ParseUnit("fortnight")
		Expect(err).To(MatchError(ErrUnknownUnit))
	})

	It("should print times in the coarsest exact unit", func() {
		Expect(VTimeInStep(70_000_000).String()).To(Equal("70ns"))
		Expect(VTimeInStep(1_501).String()).To(Equal("1501fs"))
		Expect(VTimeInStep(2_000_000_000).String()).To(Equal("2us"))
		Expect(VTimeInStep(70_000_000).InUnit(NS)).To(Equal(70.0))
	})
})

var _ = Describe("Freq", func() {
	It("should convert between frequency and period", func() {
		f := FreqOfPeriod(20_000_000)
		Expect(float64(f)).To(BeNumerically("~", 50e6, 1e-3))
		Expect(f.Period()).To(Equal(VTimeInStep(20_000_000)))
	})

	It("should find ticks", func() {
		f := 50 * MHz
		Expect(f.ThisTick(20_000_000)).To(Equal(VTimeInStep(20_000_000)))
		Expect(f.ThisTick(20_000_001)).To(Equal(VTimeInStep(40_000_000)))
		Expect(f.NextTick(20_000_000)).To(Equal(VTimeInStep(40_000_000)))
		Expect(f.NCyclesLater(3, 0)).To(Equal(VTimeInStep(60_000_000)))
		Expect(f.Cycle(65_000_000)).To(Equal(uint64(3)))
	})
})
