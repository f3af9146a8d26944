package systems

import (
	"math"

	"github.com/pthm-cable/genesis/behavior"
	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/rng"
)

// Founder builds a generation-zero agent at pos with random traits within
// the schema bounds and one of the configured founder algorithms.
func Founder(cfg *config.Config, schema *genome.Schema, reg *behavior.Registry, r *rng.RNG, pos components.Position) entity.Prototype {
	g := &genome.Genome{Traits: schema.Random(r)}

	algs := cfg.Genome.FounderAlgorithms
	if len(algs) == 0 {
		g.Algorithm = reg.Default()
	} else {
		g.Algorithm = algs[r.IntN(len(algs))]
	}
	if ps, ok := reg.ParamSchema(g.Algorithm); ok {
		g.Params = ps.Random(r)
	}
	_ = reg.Adopt(g)

	return entity.Prototype{
		Kind:     components.KindAgent,
		Position: pos,
		Energy:   components.Energy{Value: cfg.Energy.Initial, Capacity: cfg.Energy.Capacity},
		Vitals:   components.Vitals{Heading: r.Range(0, 2*math.Pi)},
		Genome:   g,
	}
}

// RandomPosition returns a uniform point inside the world.
func RandomPosition(cfg *config.Config, r *rng.RNG) components.Position {
	return components.Position{
		X: r.Range(0, cfg.World.Width),
		Y: r.Range(0, cfg.World.Height),
	}
}
