// Package entity owns the canonical entity collection and the deferred
// mutation queue through which it changes during a tick.
package entity

import (
	"fmt"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/genome"
)

// ID identifies an entity. Zero is never a valid ID.
type ID = components.EntityID

// Prototype describes an entity to insert.
// Fields that do not apply to Kind are ignored.
type Prototype struct {
	ID       ID // zero until allocated
	Kind     components.Kind
	Position components.Position
	Velocity components.Velocity
	Energy   components.Energy
	Vitals   components.Vitals

	Genome     *genome.Genome
	Generation int
	ParentA    ID
	ParentB    ID
}

// OrderingViolation is the panic value raised when the privileged mutation
// path is used while a phase is running.
type OrderingViolation struct {
	Op    string
	Phase string
	Frame uint64
}

func (e *OrderingViolation) Error() string {
	return fmt.Sprintf("entity: privileged %s during phase %q (frame %d)", e.Op, e.Phase, e.Frame)
}
