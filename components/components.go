// Package components defines ECS components for the simulation.
//
// Entities are composed from these records: decorations carry only Identity
// and Position, resources and consumables add Energy, and agents add
// Velocity, Vitals and Heritage on top.
package components

import (
	"fmt"

	"github.com/pthm-cable/genesis/genome"
)

// EntityID uniquely identifies an entity within one engine instance.
// IDs increase monotonically and are never reused.
type EntityID uint64

// Kind is the closed set of entity variants.
type Kind uint8

const (
	KindAgent      Kind = iota // mobile, evolving
	KindResource               // static, regrowing energy source
	KindConsumable             // food, eaten on contact
	KindDecoration             // inert
	kindCount
)

var kindNames = [kindCount]string{"agent", "resource", "consumable", "decoration"}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool { return k < kindCount }

// Mobile reports whether entities of this kind carry a Velocity.
func (k Kind) Mobile() bool { return k == KindAgent }

// ParseKind maps a kind name back to its value.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// Kinds returns all declared kinds in order.
func Kinds() []Kind {
	return []Kind{KindAgent, KindResource, KindConsumable, KindDecoration}
}

// KindMask is a set of kinds used to filter queries.
type KindMask uint8

// MaskAll matches every kind.
const MaskAll KindMask = 1<<kindCount - 1

// Mask builds a mask from kinds.
func Mask(kinds ...Kind) KindMask {
	var m KindMask
	for _, k := range kinds {
		m |= 1 << k
	}
	return m
}

// Has reports whether k is in the mask.
func (m KindMask) Has(k Kind) bool { return m&(1<<k) != 0 }

// Identity is carried by every entity.
type Identity struct {
	ID   EntityID
	Kind Kind
	Born uint64 // frame of insertion
}

// Energy holds stored energy. Capacity of 0 means unbounded.
type Energy struct {
	Value    float64
	Capacity float64
}

// Removal reasons recorded in the death-cause histogram.
const (
	CauseStarvation = "starvation"
	CauseOldAge     = "old_age"
	CauseContest    = "contest"
	CauseEaten      = "eaten"
	CauseDepleted   = "depleted"
	CauseExternal   = "external"
)

// Vitals holds per-agent lifecycle state.
type Vitals struct {
	Age      int     // ticks alive
	Cooldown int     // ticks until reproduction is allowed
	Heading  float64 // radians, last movement direction
	Dying    bool    // flagged for removal by the lifecycle phase
	Cause    string  // death cause once Dying is set
}

// MarkDying flags the agent for removal. The first cause wins.
func (v *Vitals) MarkDying(cause string) {
	if v.Dying {
		return
	}
	v.Dying = true
	v.Cause = cause
}

// Heritage links an agent to its genome and lineage.
type Heritage struct {
	Genome     *genome.Genome
	Generation int
	ParentA    EntityID // 0 for founders
	ParentB    EntityID // 0 for founders and asexual offspring
}
