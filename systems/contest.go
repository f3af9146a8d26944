package systems

import (
	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/spatial"
	"github.com/pthm-cable/genesis/vmath"
)

// Contest is the built-in interaction system. Two touching agents may fight
// over energy: the chance scales with their mean aggression, the winner is
// drawn weighted by energy times aggression, and the winner takes the stake
// from the loser. A loser drained to zero dies with cause "contest".
type Contest struct {
	Base
	candidates []spatial.Neighbor
	engaged    map[entity.ID]bool

	contests int
	kills    int
}

// NewContest creates the contest system.
func NewContest() *Contest {
	return &Contest{Base: NewBase(NameContest), engaged: make(map[entity.ID]bool)}
}

func (s *Contest) Update(ctx *Context) error {
	cfg := ctx.Config.Contest
	if !cfg.Enabled || cfg.Chance <= 0 {
		return nil
	}
	clear(s.engaged)
	radiusSq := cfg.Radius * cfg.Radius
	margin := ctx.MoveMargin()
	agentMask := components.Mask(components.KindAgent)

	for _, a := range ctx.Entities.IDs(agentMask) {
		if s.engaged[a] || !ctx.Active(a) {
			continue
		}
		pa := *ctx.Entities.Position(a)
		s.candidates = ctx.Grid.NearbyInto(s.candidates[:0], pa, cfg.Radius+margin, agentMask)
		for _, c := range s.candidates {
			b := c.ID
			// Each pair is considered once, from its lower id.
			if b <= a || s.engaged[b] || !ctx.Active(b) {
				continue
			}
			if vmath.DistSq(pa.Vec(), ctx.Entities.Position(b).Vec()) > radiusSq {
				continue
			}
			s.fight(ctx, a, b)
			break
		}
	}
	return nil
}

func (s *Contest) fight(ctx *Context, a, b entity.ID) {
	cfg := ctx.Config.Contest
	ga := ctx.Entities.Heritage(a).Genome
	gb := ctx.Entities.Heritage(b).Genome
	aggA := ga.Value(TraitAggression, 0)
	aggB := gb.Value(TraitAggression, 0)

	if !ctx.RNG.Chance(cfg.Chance * (aggA + aggB) / 2) {
		return
	}
	s.engaged[a] = true
	s.engaged[b] = true
	s.contests++

	wa := ctx.Entities.Energy(a).Value*aggA + 1e-9
	wb := ctx.Entities.Energy(b).Value*aggB + 1e-9
	winner, loser := a, b
	if ctx.RNG.Float64()*(wa+wb) >= wa {
		winner, loser = b, a
	}
	ctx.TransferEnergy(loser, winner, cfg.Stake)
	if v := ctx.Entities.Vitals(loser); v != nil && v.Dying {
		s.kills++
	}
}

func (s *Contest) DebugInfo() map[string]any {
	return map[string]any{"contests": s.contests, "kills": s.kills}
}
