// Package signal provides the simulated wires a testbench drives and
// observes.
package signal

import (
	"errors"
	"fmt"
	"strings"
)

// EdgeType selects which transitions of a signal to wait for.
type EdgeType int

// The edge types. EdgeNone means no synchronization is wanted.
const (
	EdgeNone EdgeType = iota
	EdgeRising
	EdgeFalling
	EdgeAny
)

// ErrUnknownEdge is returned when parsing an edge name fails.
var ErrUnknownEdge = errors.New("unknown edge type")

func (e EdgeType) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeAny:
		return "any"
	default:
		return fmt.Sprintf("EdgeType(%d)", int(e))
	}
}

// ParseEdgeType converts a lowercase edge name into an EdgeType.
func ParseEdgeType(s string) (EdgeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return EdgeNone, nil
	case "rising":
		return EdgeRising, nil
	case "falling":
		return EdgeFalling, nil
	case "any":
		return EdgeAny, nil
	}

	return EdgeNone, fmt.Errorf("%w: %q", ErrUnknownEdge, s)
}

// Matches tells if a transition of bit 0 from old to new counts as an edge of
// this type. Any change of the value counts for EdgeAny.
func (e EdgeType) Matches(old, new uint64) bool {
	switch e {
	case EdgeRising:
		return old&1 == 0 && new&1 == 1
	case EdgeFalling:
		return old&1 == 1 && new&1 == 0
	case EdgeAny:
		return old != new
	default:
		return false
	}
}

// Covers tells if a transition of kind e, which is EdgeRising or EdgeFalling,
// counts as an edge of type want.
func (e EdgeType) Covers(want EdgeType) bool {
	if e == EdgeNone || want == EdgeNone {
		return false
	}

	return want == EdgeAny || want == e
}
