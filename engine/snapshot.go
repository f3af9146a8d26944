package engine

import (
	"fmt"
	"slices"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/telemetry"
)

// Snapshot is a read-only copy of the world between ticks. It shares no
// memory with the engine.
type Snapshot struct {
	Frame    uint64                   `json:"frame"`
	Entities []EntityView             `json:"entities"`
	Stats    telemetry.EcosystemStats `json:"stats"`
}

// EntityView is one entity as seen by a driver or renderer.
type EntityView struct {
	ID     entity.ID `json:"id"`
	Kind   string    `json:"kind"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	VX     float64   `json:"vx,omitempty"`
	VY     float64   `json:"vy,omitempty"`
	Energy float64   `json:"energy"`

	Genome     *GenomeView `json:"genome,omitempty"`
	Generation int         `json:"generation,omitempty"`
	Age        int         `json:"age,omitempty"`
	Dying      bool        `json:"dying,omitempty"`
}

// GenomeView summarizes an agent's genome.
type GenomeView struct {
	Algorithm string         `json:"algorithm"`
	Traits    []genome.Trait `json:"traits"`
}

// Snapshot copies every live entity, ordered by id, plus aggregate stats.
func (e *Engine) Snapshot() Snapshot {
	if !e.ready {
		return Snapshot{Stats: telemetry.EcosystemStats{DeathCauses: map[string]int{}}}
	}
	ids := e.store.IDs(components.MaskAll)
	snap := Snapshot{
		Frame:    e.frame,
		Entities: make([]EntityView, 0, len(ids)),
		Stats:    e.eco.Stats(),
	}
	for _, id := range ids {
		snap.Entities = append(snap.Entities, e.view(id))
	}
	return snap
}

// Stats returns the aggregate stats without copying entities.
func (e *Engine) Stats() telemetry.EcosystemStats {
	if !e.ready {
		return telemetry.EcosystemStats{DeathCauses: map[string]int{}}
	}
	return e.eco.Stats()
}

// Entity returns the view of one live entity.
func (e *Engine) Entity(id entity.ID) (EntityView, bool) {
	if !e.ready || !e.store.Has(id) {
		return EntityView{}, false
	}
	return e.view(id), true
}

func (e *Engine) view(id entity.ID) EntityView {
	kind, _ := e.store.Kind(id)
	pos := e.store.Position(id)
	v := EntityView{ID: id, Kind: kind.String(), X: pos.X, Y: pos.Y}
	if vel := e.store.Velocity(id); vel != nil {
		v.VX, v.VY = vel.X, vel.Y
	}
	if en := e.store.Energy(id); en != nil {
		v.Energy = en.Value
	}
	if vit := e.store.Vitals(id); vit != nil {
		v.Age = vit.Age
		v.Dying = vit.Dying
	}
	if h := e.store.Heritage(id); h != nil {
		v.Generation = h.Generation
		if h.Genome != nil {
			v.Genome = &GenomeView{
				Algorithm: h.Genome.Algorithm,
				Traits:    slices.Clone(h.Genome.Traits),
			}
		}
	}
	return v
}

// State is the complete resumable state of an engine between ticks.
type State struct {
	Frame    uint64
	NextID   entity.ID
	RNG      []byte
	Entities []entity.Prototype
	Stats    telemetry.EcosystemStats
}

// State captures everything Load needs to resume this run. Pending
// requests made outside a tick are not included.
func (e *Engine) State() (State, error) {
	e.guard("capture")
	if !e.ready {
		return State{}, fmt.Errorf("engine state: engine has not been reset")
	}
	rs, err := e.rng.State()
	if err != nil {
		return State{}, fmt.Errorf("engine state: %w", err)
	}
	ids := e.store.IDs(components.MaskAll)
	st := State{
		Frame:    e.frame,
		NextID:   e.store.NextID(),
		RNG:      rs,
		Entities: make([]entity.Prototype, 0, len(ids)),
		Stats:    e.eco.Stats(),
	}
	for _, id := range ids {
		if p, ok := e.store.Prototype(id); ok {
			st.Entities = append(st.Entities, p)
		}
	}
	return st, nil
}

// Load resets the engine with seed and cfg, then replaces the generated
// world with st through the privileged path. Genomes are clamped to the
// schema and unknown algorithms fall back to the default. On error the
// engine is left exactly as it was before the call.
func (e *Engine) Load(seed int64, cfg *config.Config, st State) (err error) {
	e.guard("load")
	// reset swaps in fresh structures rather than mutating the current ones,
	// so a shallow copy is enough to roll back.
	prev := *e
	defer func() {
		if err != nil {
			*e = prev
		}
	}()
	if err := e.reset(seed, cfg); err != nil {
		return err
	}
	e.frame = st.Frame
	for _, p := range st.Entities {
		if e.insert(p) == 0 {
			return fmt.Errorf("engine load: entity %d (%s) refused", p.ID, p.Kind)
		}
	}
	e.store.SetNextID(st.NextID)
	if len(st.RNG) > 0 {
		if err := e.rng.Restore(st.RNG); err != nil {
			return fmt.Errorf("engine load: %w", err)
		}
	}
	e.eco.Restore(st.Stats)
	for _, p := range st.Entities {
		if p.Kind == components.KindAgent {
			e.eco.NoteGeneration(p.Generation)
		}
	}
	e.eco.Rebuild(e.frame, e.store)
	e.collector.StartAt(e.frame)
	e.reindex()
	e.logger.Info("load",
		"seed", seed,
		"frame", e.frame,
		"entities", e.store.Len(),
		"substitutions", e.behaviors.Substitutions(),
	)
	return nil
}
