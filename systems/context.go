package systems

import (
	"github.com/pthm-cable/genesis/behavior"
	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/rng"
	"github.com/pthm-cable/genesis/spatial"
)

// Entities is read access to the entity store plus component data access.
// Component pointers may be written; structure may not change.
type Entities interface {
	IDs(mask components.KindMask) []entity.ID
	Has(id entity.ID) bool
	Kind(id entity.ID) (components.Kind, bool)
	Count(k components.Kind) int
	Len() int

	Identity(id entity.ID) *components.Identity
	Position(id entity.ID) *components.Position
	Velocity(id entity.ID) *components.Velocity
	Energy(id entity.ID) *components.Energy
	Vitals(id entity.ID) *components.Vitals
	Heritage(id entity.ID) *components.Heritage
}

// Env holds the ecosystem-wide modifiers published by the time and
// environment phases.
type Env struct {
	TimeOfDay      float64 // [0,1), 0 = noon
	Activity       float64 // behavior speed multiplier
	DetectionScale float64 // vision multiplier
	Density        float64 // agents per unit area
}

// DefaultEnv is the neutral environment.
func DefaultEnv() Env {
	return Env{Activity: 1, DetectionScale: 1}
}

// Context is handed to a system for the duration of one Update call.
// Systems must not retain it or anything reached through it.
type Context struct {
	Frame    uint64
	Phase    string
	System   string
	RNG      *rng.RNG
	Config   *config.Config
	Entities Entities
	Grid     *spatial.Grid
	Env      *Env

	Behaviors *behavior.Registry
	Schema    *genome.Schema
	Strategy  genome.Strategy

	store *entity.Store
	queue *entity.Queue
}

// NewContext binds a context to the structures it mediates.
func NewContext(store *entity.Store, queue *entity.Queue) *Context {
	return &Context{Entities: store, store: store, queue: queue}
}

// RequestSpawn queues p for insertion at the next commit. A zero p.ID is
// allocated here, so the returned ID is final even though the entity does
// not exist yet. An explicit ID is accepted only if the allocator has never
// handed it out; IDs of live, pending, cancelled or removed entities are
// never reused.
func (c *Context) RequestSpawn(p entity.Prototype, reason string) (entity.ID, bool) {
	return c.RequestSpawnMeta(p, reason, nil)
}

// RequestSpawnMeta is RequestSpawn with request metadata.
func (c *Context) RequestSpawnMeta(p entity.Prototype, reason string, meta map[string]string) (entity.ID, bool) {
	if p.ID == 0 {
		p.ID = c.store.Allocate()
	} else if p.ID < c.store.NextID() {
		return p.ID, false
	}
	if !c.queue.RequestSpawn(p, reason, meta) {
		return p.ID, false
	}
	c.store.SetNextID(p.ID + 1)
	return p.ID, true
}

// RequestRemove queues id for removal at the next commit. Unknown ids are
// refused. Removing an id whose spawn is still pending cancels the spawn.
func (c *Context) RequestRemove(id entity.ID, reason string) bool {
	if !c.store.Has(id) && !c.queue.IsPendingSpawn(id) {
		return false
	}
	return c.queue.RequestRemove(id, reason, nil)
}

// IsPendingRemoval reports whether id will be removed at the next commit.
func (c *Context) IsPendingRemoval(id entity.ID) bool {
	return c.queue.IsPendingRemoval(id)
}

// Active reports whether id is live and free to take part in new
// interactions: not pending removal and, for agents, not flagged dying.
func (c *Context) Active(id entity.ID) bool {
	if !c.store.Has(id) || c.queue.IsPendingRemoval(id) {
		return false
	}
	if v := c.store.Vitals(id); v != nil && v.Dying {
		return false
	}
	return true
}

// TransferEnergy moves up to amount of energy from one entity to another and
// returns the amount moved. Either endpoint pending removal refuses the
// transfer. A donor left without energy is flagged: agents are marked dying
// with the current system's name as cause, other kinds are queued for
// removal as depleted.
func (c *Context) TransferEnergy(from, to entity.ID, amount float64) float64 {
	if amount <= 0 || from == to {
		return 0
	}
	if c.queue.IsPendingRemoval(from) || c.queue.IsPendingRemoval(to) {
		return 0
	}
	src := c.store.Energy(from)
	dst := c.store.Energy(to)
	if src == nil || dst == nil {
		return 0
	}
	if src.Value <= 0 {
		// An earlier removal may have been rolled back with its system's
		// failed call.
		if c.store.Vitals(from) == nil {
			c.queue.RequestRemove(from, components.CauseDepleted, nil)
		}
		return 0
	}

	moved := min(amount, src.Value)
	src.Value -= moved
	dst.Value += moved

	if src.Value <= 0 {
		src.Value = 0
		if v := c.store.Vitals(from); v != nil {
			v.MarkDying(c.System)
		} else {
			c.queue.RequestRemove(from, components.CauseDepleted, nil)
		}
	}
	return moved
}

// Bounds returns the world size.
func (c *Context) Bounds() (w, h float64) {
	return c.Grid.Width(), c.Grid.Height()
}

// MoveMargin is the farthest an agent can have moved since the spatial index
// was built. Grid queries widen their radius by it before exact checks.
func (c *Context) MoveMargin() float64 {
	top := 1.0
	if c.Schema != nil {
		if sp, ok := c.Schema.Spec(TraitSpeed); ok {
			top = sp.Max
		}
	}
	return c.Config.Behavior.MaxSpeed * top
}
