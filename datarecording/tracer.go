package datarecording

import (
	"fmt"

	"github.com/sarchlab/tbsync/sim/hooking"
	"github.com/sarchlab/tbsync/sim/queueing"
	"github.com/sarchlab/tbsync/sim/signal"
	"github.com/sarchlab/tbsync/sim/timing"
)

// The names of the trace tables.
const (
	SignalTable = "signal_trace"
	BufferTable = "buffer_trace"
)

// SignalEntry is one value change of a signal.
type SignalEntry struct {
	TimeFS uint64
	Signal string
	Value  uint64
}

// BufferEntry is one push or pop of a buffer.
type BufferEntry struct {
	TimeFS  uint64
	Buffer  string
	Op      string
	Element string
	Size    int
}

// SignalTracer records signal value changes.
type SignalTracer struct {
	timeTeller timing.TimeTeller
	recorder   DataRecorder
}

// NewSignalTracer creates the signal table and returns a hook that fills it.
func NewSignalTracer(
	timeTeller timing.TimeTeller,
	recorder DataRecorder,
) *SignalTracer {
	recorder.CreateTable(SignalTable, SignalEntry{})

	return &SignalTracer{timeTeller: timeTeller, recorder: recorder}
}

// Func records a change of a signal.Wire.
func (t *SignalTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != signal.HookPosValueChange {
		return
	}

	sig, ok := ctx.Domain.(signal.Signal)
	if !ok {
		return
	}

	change := ctx.Detail.(signal.ValueChange)

	t.recorder.InsertData(SignalTable, SignalEntry{
		TimeFS: uint64(t.timeTeller.Now()),
		Signal: sig.Name(),
		Value:  change.New,
	})
}

// BufferTracer records buffer pushes and pops.
type BufferTracer struct {
	timeTeller timing.TimeTeller
	recorder   DataRecorder
}

// NewBufferTracer creates the buffer table and returns a hook that fills it.
func NewBufferTracer(
	timeTeller timing.TimeTeller,
	recorder DataRecorder,
) *BufferTracer {
	recorder.CreateTable(BufferTable, BufferEntry{})

	return &BufferTracer{timeTeller: timeTeller, recorder: recorder}
}

// Func records a buffer operation.
func (t *BufferTracer) Func(ctx hooking.HookCtx) {
	var op string

	switch ctx.Pos {
	case queueing.HookPosBufPush:
		op = "push"
	case queueing.HookPosBufPop:
		op = "pop"
	default:
		return
	}

	buf, ok := ctx.Domain.(queueing.Buffer)
	if !ok {
		return
	}

	t.recorder.InsertData(BufferTable, BufferEntry{
		TimeFS:  uint64(t.timeTeller.Now()),
		Buffer:  buf.Name(),
		Op:      op,
		Element: fmt.Sprint(ctx.Item),
		Size:    ctx.Detail.(int),
	})
}
