package systems

import (
	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/spatial"
	"github.com/pthm-cable/genesis/vmath"
)

// Reproduction spawns offspring from eligible agents. An agent with an
// eligible partner within mate radius breeds sexually (crossover then
// mutation); without one it may bud asexually (clone then mutation).
// Eligibility is read after collision and interaction have been applied.
type Reproduction struct {
	Base
	candidates []spatial.Neighbor
	bred       map[entity.ID]bool

	sexual  int
	asexual int
	capped  int
}

// NewReproduction creates the reproduction system.
func NewReproduction() *Reproduction {
	return &Reproduction{Base: NewBase(NameReproduction), bred: make(map[entity.ID]bool)}
}

func (s *Reproduction) eligible(ctx *Context, id entity.ID) bool {
	if s.bred[id] || !ctx.Active(id) {
		return false
	}
	cfg := ctx.Config.Reproduction
	vit := ctx.Entities.Vitals(id)
	en := ctx.Entities.Energy(id)
	return vit.Age >= cfg.MaturityAge && vit.Cooldown <= 0 && en.Value >= cfg.Threshold
}

func (s *Reproduction) Update(ctx *Context) error {
	clear(s.bred)
	cfg := ctx.Config.Reproduction
	agentMask := components.Mask(components.KindAgent)
	population := ctx.Entities.Count(components.KindAgent)
	maxAgents := ctx.Config.Population.MaxAgents
	radiusSq := cfg.MateRadius * cfg.MateRadius
	margin := ctx.MoveMargin()

	for _, a := range ctx.Entities.IDs(agentMask) {
		if !s.eligible(ctx, a) {
			continue
		}
		if maxAgents > 0 && population >= maxAgents {
			s.capped++
			return nil
		}
		pa := *ctx.Entities.Position(a)

		var mate entity.ID
		bestSq := 0.0
		s.candidates = ctx.Grid.NearbyInto(s.candidates[:0], pa, cfg.MateRadius+margin, agentMask)
		for _, c := range s.candidates {
			if c.ID == a || !s.eligible(ctx, c.ID) {
				continue
			}
			d := vmath.DistSq(pa.Vec(), ctx.Entities.Position(c.ID).Vec())
			if d > radiusSq {
				continue
			}
			if mate == 0 || d < bestSq {
				mate, bestSq = c.ID, d
			}
		}

		var child *genome.Genome
		ha := ctx.Entities.Heritage(a)
		generation := ha.Generation + 1
		switch {
		case mate != 0:
			hb := ctx.Entities.Heritage(mate)
			child = genome.Crossover(ha.Genome, hb.Genome, ctx.Strategy, ctx.RNG)
			generation = max(ha.Generation, hb.Generation) + 1
		case ctx.RNG.Chance(cfg.AsexualChance):
			child = ha.Genome.Clone()
		default:
			continue
		}
		genome.Mutate(child, ctx.Config.Genome.MutationRate, ctx.Config.Genome.MutationStrength, ctx.RNG)
		_ = ctx.Behaviors.Adopt(child)

		offset := components.Position{
			X: pa.X + ctx.RNG.Range(-cfg.SpawnOffset, cfg.SpawnOffset),
			Y: pa.Y + ctx.RNG.Range(-cfg.SpawnOffset, cfg.SpawnOffset),
		}
		p := entity.Prototype{
			Kind:       components.KindAgent,
			Position:   ctx.Grid.ClampToBounds(offset),
			Energy:     components.Energy{Value: cfg.ChildEnergy, Capacity: ctx.Config.Energy.Capacity},
			Vitals:     components.Vitals{Heading: ctx.Entities.Vitals(a).Heading},
			Genome:     child,
			Generation: generation,
			ParentA:    a,
			ParentB:    mate,
		}
		if _, ok := ctx.RequestSpawn(p, ReasonBirth); !ok {
			continue
		}
		population++

		s.pay(ctx, a)
		if mate != 0 {
			s.pay(ctx, mate)
			s.sexual++
		} else {
			s.asexual++
		}
	}
	return nil
}

// pay charges the reproduction cost and starts the cooldown.
func (s *Reproduction) pay(ctx *Context, id entity.ID) {
	s.bred[id] = true
	en := ctx.Entities.Energy(id)
	en.Value -= ctx.Config.Reproduction.Cost
	if en.Value < 0 {
		en.Value = 0
	}
	ctx.Entities.Vitals(id).Cooldown = ctx.Config.Reproduction.Cooldown
}

func (s *Reproduction) DebugInfo() map[string]any {
	return map[string]any{
		"sexual":  s.sexual,
		"asexual": s.asexual,
		"capped":  s.capped,
	}
}
