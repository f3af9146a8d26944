package systems

import (
	"github.com/pthm-cable/genesis/behavior"
	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/spatial"
	"github.com/pthm-cable/genesis/vmath"
)

// Collision resolves agent contact with food. A touched consumable is removed
// and the agent gains collision.food_gain. A touched resource is grazed
// through TransferEnergy and disappears once depleted.
//
// Food never moves, so the index positions of food are current. Entries
// removed or depleted since the last rebuild are skipped.
type Collision struct {
	Base
	candidates []spatial.Neighbor

	eaten  int
	grazed float64
}

// NewCollision creates the collision system.
func NewCollision() *Collision {
	return &Collision{Base: NewBase(NameCollision)}
}

func (s *Collision) Update(ctx *Context) error {
	cfg := ctx.Config.Collision
	radiusSq := cfg.Radius * cfg.Radius
	foodMask := behavior.FoodMask()

	for _, id := range ctx.Entities.IDs(components.Mask(components.KindAgent)) {
		if !ctx.Active(id) {
			continue
		}
		pos := *ctx.Entities.Position(id)
		en := ctx.Entities.Energy(id)

		s.candidates = ctx.Grid.NearbyInto(s.candidates[:0], pos, cfg.Radius, foodMask)
		for _, c := range s.candidates {
			if !ctx.Active(c.ID) {
				continue
			}
			fp := ctx.Entities.Position(c.ID)
			if vmath.DistSq(pos.Vec(), fp.Vec()) > radiusSq {
				continue
			}
			switch c.Kind {
			case components.KindConsumable:
				if ctx.RequestRemove(c.ID, components.CauseEaten) {
					en.Value += cfg.FoodGain
					s.eaten++
				}
			case components.KindResource:
				s.grazed += ctx.TransferEnergy(c.ID, id, cfg.GrazeAmount)
			}
		}
	}
	return nil
}

func (s *Collision) DebugInfo() map[string]any {
	return map[string]any{"eaten": s.eaten, "grazed": s.grazed}
}
