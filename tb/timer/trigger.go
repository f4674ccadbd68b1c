package timer

import (
	"github.com/sarchlab/tbsync/sim/coro"
	"github.com/sarchlab/tbsync/sim/signal"
)

// TriggerConfig is one condition of a race: an edge of a signal.
type TriggerConfig struct {
	Signal signal.Signal
	Edge   signal.EdgeType
}

// NewTriggerConfig pairs a signal with the edge to wait for.
func NewTriggerConfig(sig signal.Signal, edge signal.EdgeType) TriggerConfig {
	return TriggerConfig{Signal: sig, Edge: edge}
}

// GetEdgeTrigger returns the trigger for an edge of a signal or of a clock's
// signal. It returns nil for EdgeNone.
func GetEdgeTrigger(src signal.Edger, edge signal.EdgeType) coro.Trigger {
	if edge == signal.EdgeNone {
		return nil
	}

	return src.Edge(edge)
}

// EdgeTrigger suspends the task until the edge happens on src. It returns
// immediately for EdgeNone.
func EdgeTrigger(t *coro.Task, src signal.Edger, edge signal.EdgeType) {
	trigger := GetEdgeTrigger(src, edge)
	if trigger == nil {
		return
	}

	t.Await(trigger)
}
