package systems

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/genesis/behavior"
	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/spatial"
	"github.com/pthm-cable/genesis/vmath"
)

// Trait names read by the built-in systems.
const (
	TraitSpeed      = "speed"
	TraitVision     = "vision"
	TraitMetabolism = "metabolism"
	TraitLifespan   = "lifespan"
	TraitAggression = "aggression"
)

// Reasons attached to spawn requests.
const (
	ReasonFood     = "food"
	ReasonOverflow = "overflow"
	ReasonBirth    = "birth"
	ReasonRespawn  = "respawn"
	ReasonFounder  = "founder"
)

// Behavior is the act phase: every live agent evaluates its steering
// algorithm against the spatial index, moves, pays metabolism, drops surplus
// energy as food and is flagged for death when starved or too old.
type Behavior struct {
	Base

	food   []spatial.Neighbor
	agents []spatial.Neighbor

	acted         int
	substitutions int
	overflow      int
}

// NewBehavior creates the behavior system.
func NewBehavior() *Behavior {
	return &Behavior{Base: NewBase(NameBehavior)}
}

func (s *Behavior) Update(ctx *Context) error {
	cfg := ctx.Config
	w, h := ctx.Bounds()
	foodMask := behavior.FoodMask()
	agentMask := components.Mask(components.KindAgent)
	s.acted = 0

	for _, id := range ctx.Entities.IDs(agentMask) {
		vit := ctx.Entities.Vitals(id)
		if vit == nil || vit.Dying || ctx.IsPendingRemoval(id) {
			continue
		}
		pos := ctx.Entities.Position(id)
		vel := ctx.Entities.Velocity(id)
		en := ctx.Entities.Energy(id)
		g := ctx.Entities.Heritage(id).Genome

		alg, ok := ctx.Behaviors.Lookup(g.Algorithm)
		if !ok {
			// Adopt logs and counts the substitution.
			_ = ctx.Behaviors.Adopt(g)
			if alg, ok = ctx.Behaviors.Lookup(g.Algorithm); !ok {
				return fmt.Errorf("agent %d: default algorithm %q not registered", id, ctx.Behaviors.Default())
			}
			s.substitutions++
		}

		speed := g.Value(TraitSpeed, 1)
		vision := g.Value(TraitVision, 80) * ctx.Env.DetectionScale
		metabolism := g.Value(TraitMetabolism, 1)

		s.food = capNearest(ctx.Grid.NearbyInto(s.food[:0], *pos, vision, foodMask), cfg.Behavior.NeighborCap)
		s.agents = ctx.Grid.NearbyInto(s.agents[:0], *pos, vision, agentMask)
		s.agents = capNearest(dropID(s.agents, id), cfg.Behavior.NeighborCap)

		self := behavior.Self{
			ID:       id,
			Frame:    ctx.Frame,
			Position: pos.Vec(),
			Velocity: vel.Vec(),
			Heading:  vit.Heading,
			Energy:   en.Value,
			Capacity: en.Capacity,
			Vision:   vision,
		}
		obs := behavior.Observation{
			Food:     s.food,
			Agents:   s.agents,
			Activity: ctx.Env.Activity,
			Width:    w,
			Height:   h,
		}
		act := alg.Act(self, obs, g.Params)

		s.move(ctx, pos, vel, vit, act.Desired, cfg.Behavior.MaxSpeed*speed*ctx.Env.Activity, cfg.Behavior.Acceleration)
		moved := math.Hypot(pos.X-self.Position[0], pos.Y-self.Position[1])

		en.Value -= (cfg.Energy.BaseCost + cfg.Energy.MoveCost*moved) * metabolism
		vit.Age++
		if vit.Cooldown > 0 {
			vit.Cooldown--
		}

		s.dropOverflow(ctx, *pos, en)

		switch {
		case en.Value <= 0:
			en.Value = 0
			vit.MarkDying(components.CauseStarvation)
		case float64(vit.Age) >= g.Value(TraitLifespan, math.Inf(1)):
			vit.MarkDying(components.CauseOldAge)
		}
		s.acted++
	}
	return nil
}

// move steers vel toward desired and integrates pos within the world bounds.
func (s *Behavior) move(ctx *Context, pos *components.Position, vel *components.Velocity, vit *components.Vitals, desired mgl64.Vec2, maxSpeed, accel float64) {
	target := vmath.Limit(desired, 1).Mul(maxSpeed)
	v := vel.Vec()
	v = v.Add(target.Sub(v).Mul(vmath.Clamp(accel, 0, 1)))
	v = vmath.Limit(v, math.Max(maxSpeed, 0))

	next := ctx.Grid.ClampToBounds(components.PositionOf(pos.Vec().Add(v)))
	// Hitting a wall cancels the velocity into it.
	if next.X != pos.X+v[0] {
		v[0] = 0
	}
	if next.Y != pos.Y+v[1] {
		v[1] = 0
	}
	*pos = next
	*vel = components.VelocityOf(v)
	if v.Len() > 1e-9 {
		vit.Heading = math.Atan2(v[1], v[0])
	}
}

// dropOverflow converts energy above capacity into a consumable.
func (s *Behavior) dropOverflow(ctx *Context, pos components.Position, en *components.Energy) {
	if en.Capacity <= 0 {
		return
	}
	surplus := en.Value - en.Capacity
	if surplus < ctx.Config.Energy.OverflowMin || surplus <= 0 {
		return
	}
	en.Value = en.Capacity
	p := entity.Prototype{
		Kind:     components.KindConsumable,
		Position: pos,
		Energy:   components.Energy{Value: surplus},
	}
	if _, ok := ctx.RequestSpawn(p, ReasonOverflow); ok {
		s.overflow++
	}
}

func (s *Behavior) DebugInfo() map[string]any {
	return map[string]any{
		"acted":         s.acted,
		"substitutions": s.substitutions,
		"overflow_food": s.overflow,
	}
}

// dropID removes id from an ID-ordered neighbor list in place.
func dropID(ns []spatial.Neighbor, id entity.ID) []spatial.Neighbor {
	for i := range ns {
		if ns[i].ID == id {
			return append(ns[:i], ns[i+1:]...)
		}
	}
	return ns
}

// capNearest keeps the limit closest neighbors, preserving ID order.
func capNearest(ns []spatial.Neighbor, limit int) []spatial.Neighbor {
	if limit <= 0 || len(ns) <= limit {
		return ns
	}
	slices.SortStableFunc(ns, func(a, b spatial.Neighbor) int {
		return cmp.Compare(a.DistSq, b.DistSq)
	})
	ns = ns[:limit]
	slices.SortFunc(ns, func(a, b spatial.Neighbor) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return ns
}
