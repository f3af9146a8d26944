// Package telemetry provides ecosystem stats, window aggregation, CSV and
// SQLite output, Prometheus metrics, and perf timing.
package telemetry

import "github.com/pthm-cable/genesis/components"

// EventType identifies lifecycle events emitted at commit points.
type EventType uint8

const (
	EventBirth EventType = iota
	EventDeath
)

func (t EventType) String() string {
	switch t {
	case EventBirth:
		return "birth"
	case EventDeath:
		return "death"
	}
	return "unknown"
}

// Event is a committed lifecycle change. Only committed store mutations
// produce events; pending requests never do.
type Event struct {
	Type     EventType
	Frame    uint64
	EntityID components.EntityID
	Kind     components.Kind

	// Death cause or spawn reason.
	Reason string

	// Birth only.
	Generation int
	ParentA    components.EntityID
	ParentB    components.EntityID

	// Death only: ticks lived.
	Age int
}

// NewBirthEvent creates a birth event for a committed spawn.
func NewBirthEvent(frame uint64, id components.EntityID, kind components.Kind, reason string, h *components.Heritage) Event {
	ev := Event{
		Type:     EventBirth,
		Frame:    frame,
		EntityID: id,
		Kind:     kind,
		Reason:   reason,
	}
	if h != nil {
		ev.Generation = h.Generation
		ev.ParentA = h.ParentA
		ev.ParentB = h.ParentB
	}
	return ev
}

// NewDeathEvent creates a death event for a committed removal.
func NewDeathEvent(frame uint64, id components.EntityID, kind components.Kind, cause string, age int) Event {
	return Event{
		Type:     EventDeath,
		Frame:    frame,
		EntityID: id,
		Kind:     kind,
		Reason:   cause,
		Age:      age,
	}
}
