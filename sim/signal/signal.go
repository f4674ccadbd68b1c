package signal

import (
	"fmt"
	"slices"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
)

// An Edger can produce a suspension point that resumes on one of its edges.
type Edger interface {
	Edge(edge EdgeType) coro.Trigger
}

// A Signal is a handle to a simulated wire.
type Signal interface {
	Edger

	Name() string
	Width() int
	Read() uint64
	Write(v uint64)
}

// HookPosValueChange marks a write that changed the value of a wire. The hook
// item is the new value and the detail is a ValueChange.
var HookPosValueChange = &hooking.HookPos{Name: "Value Change"}

// ValueChange describes one transition of a wire.
type ValueChange struct {
	Old uint64
	New uint64
}

type edgeListener struct {
	edge   EdgeType
	fire   func()
	active bool
}

// Wire is a Signal that holds an unsigned value of up to 64 bits.
type Wire struct {
	hooking.HookableBase

	name      string
	width     int
	mask      uint64
	value     uint64
	listeners []*edgeListener
}

// NewWire creates a wire with the given width in bits. The wire starts at 0.
func NewWire(name string, width int) *Wire {
	if width <= 0 || width > 64 {
		panic(fmt.Sprintf("signal %s: width %d out of range [1, 64]", name, width))
	}

	mask := ^uint64(0)
	if width < 64 {
		mask = uint64(1)<<uint(width) - 1
	}

	return &Wire{
		name:  name,
		width: width,
		mask:  mask,
	}
}

// Name returns the name of the wire.
func (w *Wire) Name() string {
	return w.name
}

// Width returns the number of bits of the wire.
func (w *Wire) Width() int {
	return w.width
}

// Read returns the current value.
func (w *Wire) Read() uint64 {
	return w.value
}

// Write assigns a value, truncated to the wire width. Writing the current
// value does nothing.
func (w *Wire) Write(v uint64) {
	v &= w.mask
	old := w.value

	if v == old {
		return
	}

	w.value = v

	if w.NumHooks() > 0 {
		w.InvokeHook(hooking.HookCtx{
			Domain: w,
			Pos:    HookPosValueChange,
			Item:   v,
			Detail: ValueChange{Old: old, New: v},
		})
	}

	w.notify(old, v)
}

// Edge returns a trigger that fires on the next edge of the given type.
func (w *Wire) Edge(edge EdgeType) coro.Trigger {
	if edge == EdgeNone {
		panic(fmt.Sprintf("signal %s: cannot wait for edge none", w.name))
	}

	return coro.TriggerFunc(func(_ *coro.Scheduler, fire func()) func() {
		l := &edgeListener{edge: edge, fire: fire, active: true}
		w.listeners = append(w.listeners, l)

		return func() {
			l.active = false
			w.removeListener(l)
		}
	})
}

// NumListeners returns the number of edge triggers waiting on the wire.
func (w *Wire) NumListeners() int {
	return len(w.listeners)
}

func (w *Wire) removeListener(l *edgeListener) {
	if i := slices.Index(w.listeners, l); i >= 0 {
		w.listeners = slices.Delete(w.listeners, i, i+1)
	}
}

func (w *Wire) notify(old, new uint64) {
	listeners := w.listeners
	w.listeners = nil

	for _, l := range listeners {
		if !l.active {
			continue
		}

		if l.edge.Matches(old, new) {
			l.active = false
			l.fire()

			continue
		}

		w.listeners = append(w.listeners, l)
	}
}

func (w *Wire) String() string {
	return fmt.Sprintf("%s=%#x", w.name, w.value)
}
