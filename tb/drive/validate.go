package drive

import (
	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/tb/timer"
)

// StreamResult is the outcome of a bit stream validation.
type StreamResult struct {
	Actual       []uint64
	ErrorIndexes []int
}

// Valid returns true if every sampled value matched.
func (r StreamResult) Valid() bool {
	return len(r.ErrorIndexes) == 0
}

// ValidateBitStream samples sig once per clock edge and compares the samples
// with expected as they arrive. With initSync the first sample is taken on
// the first edge instead of immediately. Mismatches are logged as errors.
func ValidateBitStream(
	t *coro.Task,
	sig signal.Signal,
	clk Clock,
	expected []uint64,
	edge signal.EdgeType,
	initSync bool,
) StreamResult {
	r := StreamResult{Actual: make([]uint64, 0, len(expected))}

	if initSync {
		timer.EdgeTrigger(t, clk, edge)
	}

	for i, exp := range expected {
		act := sig.Read()
		if act != exp {
			r.ErrorIndexes = append(r.ErrorIndexes, i)
			t.Logger().Debug("bit stream mismatch",
				"signal", sig.Name(), "index", i, "actual", act, "expected", exp)
		}

		r.Actual = append(r.Actual, act)
		timer.EdgeTrigger(t, clk, edge)
	}

	if !r.Valid() {
		t.Logger().Error("bit streams don't match",
			"signal", sig.Name(),
			"indexes", r.ErrorIndexes,
			"expected", expected,
			"actual", r.Actual)
	}

	return r
}
