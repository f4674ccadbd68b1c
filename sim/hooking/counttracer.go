package hooking

import "sync"

// CountTracer counts how many times each hook position is reached.
type CountTracer struct {
	lock   sync.Mutex
	names  []string
	counts map[string]uint64
}

// NewCountTracer creates a new CountTracer
func NewCountTracer() *CountTracer {
	return &CountTracer{counts: make(map[string]uint64)}
}

// Func counts the position of the hook.
func (t *CountTracer) Func(ctx HookCtx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	name := ctx.Pos.Name
	if _, ok := t.counts[name]; !ok {
		t.names = append(t.names, name)
	}

	t.counts[name]++
}

// Names returns the positions seen so far, in the order of their first
// occurrence.
func (t *CountTracer) Names() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.names...)
}

// Count returns how often the position with the given name was reached.
func (t *CountTracer) Count(name string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[name]
}
