// Package queueing provides the FIFO buffers that connect producer and
// consumer tasks.
package queueing

import (
	"log"

	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/hooking"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

// A Buffer is a fifo queue for anything
type Buffer interface {
	hooking.Hookable

	Name() string
	CanPush() bool
	Push(e any)
	Pop() any
	Peek() any
	Capacity() int
	Size() int
	Clear()
	Elements() []any

	// NotEmpty returns a trigger that fires as soon as the buffer holds at
	// least one element.
	NotEmpty() coro.Trigger
}

// BufferBuilder is a builder for Buffer.
type BufferBuilder struct {
	capacity int
}

// MakeBufferBuilder creates a builder for an unbounded buffer.
func MakeBufferBuilder() BufferBuilder {
	return BufferBuilder{}
}

// WithCapacity defines the capacity of the buffer. A capacity of 0 means the
// buffer is unbounded.
func (b BufferBuilder) WithCapacity(capacity int) BufferBuilder {
	b.capacity = capacity
	return b
}

// Build builds a new Buffer.
func (b BufferBuilder) Build(name string) Buffer {
	if b.capacity < 0 {
		log.Panicf("buffer %s: negative capacity %d", name, b.capacity)
	}

	return &bufferImpl{
		name:     name,
		capacity: b.capacity,
	}
}

type bufferImpl struct {
	hooking.HookableBase

	name     string
	capacity int
	elements []any
	waiters  []*bufferWaiter
}

type bufferWaiter struct {
	fire   func()
	active bool
}

// Name returns the name of the buffer.
func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	return b.capacity == 0 || len(b.elements) < b.capacity
}

func (b *bufferImpl) Push(e any) {
	if !b.CanPush() {
		log.Panic("buffer overflow")
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
			Detail: len(b.elements),
		})
	}

	b.wakeWaiters()
}

func (b *bufferImpl) Pop() any {
	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements[0] = nil
	b.elements = b.elements[1:]

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
			Detail: len(b.elements),
		})
	}

	return e
}

func (b *bufferImpl) Peek() any {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *bufferImpl) Capacity() int {
	return b.capacity
}

func (b *bufferImpl) Size() int {
	return len(b.elements)
}

func (b *bufferImpl) Clear() {
	b.elements = nil
}

// Elements returns a copy of the buffered elements, oldest first.
func (b *bufferImpl) Elements() []any {
	elements := make([]any, len(b.elements))
	copy(elements, b.elements)

	return elements
}

func (b *bufferImpl) NotEmpty() coro.Trigger {
	return coro.TriggerFunc(func(_ *coro.Scheduler, fire func()) func() {
		if len(b.elements) > 0 {
			fire()
			return func() {}
		}

		w := &bufferWaiter{fire: fire, active: true}
		b.waiters = append(b.waiters, w)

		return func() { w.active = false }
	})
}

func (b *bufferImpl) wakeWaiters() {
	waiters := b.waiters
	b.waiters = nil

	for _, w := range waiters {
		if w.active {
			w.active = false
			w.fire()
		}
	}
}
