package systems

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/entity"
)

// Spawn places food on a fertility field, regrows static resources and
// respawns founders when the agent population collapses.
type Spawn struct {
	Base
	fertility opensimplex.Noise

	spawned   int
	rejected  int
	respawned int
}

// NewSpawn creates the spawn system. seed drives the fertility field.
func NewSpawn(seed int64) *Spawn {
	return &Spawn{Base: NewBase(NameSpawn), fertility: opensimplex.New(seed)}
}

// Fertility returns the field value in [0,1] at (x, y).
func (s *Spawn) Fertility(x, y, scale float64) float64 {
	v := (s.fertility.Eval2(x*scale, y*scale) + 1) / 2
	return math.Max(0, math.Min(1, v))
}

func (s *Spawn) Update(ctx *Context) error {
	s.spawnFood(ctx)
	s.regrow(ctx)
	s.respawn(ctx)
	return nil
}

func (s *Spawn) spawnFood(ctx *Context) {
	cfg := ctx.Config.Spawn
	n := int(math.Floor(cfg.FoodPerTick))
	if ctx.RNG.Float64() < cfg.FoodPerTick-float64(n) {
		n++
	}

	existing := ctx.Entities.Count(components.KindConsumable)
	w, h := ctx.Bounds()
	for i := 0; i < n; i++ {
		if cfg.MaxConsumables > 0 && existing >= cfg.MaxConsumables {
			return
		}
		placed := false
		for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
			x := ctx.RNG.Range(0, w)
			y := ctx.RNG.Range(0, h)
			if s.Fertility(x, y, cfg.NoiseScale) < cfg.FertilityThreshold {
				continue
			}
			p := entity.Prototype{
				Kind:     components.KindConsumable,
				Position: components.Position{X: x, Y: y},
				Energy:   components.Energy{Value: cfg.FoodEnergy},
			}
			if _, ok := ctx.RequestSpawn(p, ReasonFood); ok {
				existing++
				s.spawned++
			}
			placed = true
			break
		}
		if !placed {
			s.rejected++
		}
	}
}

func (s *Spawn) regrow(ctx *Context) {
	rate := ctx.Config.Spawn.ResourceRegrowRate
	ceiling := ctx.Config.Energy.ResourceCapacity
	if rate <= 0 {
		return
	}
	for _, id := range ctx.Entities.IDs(components.Mask(components.KindResource)) {
		if ctx.IsPendingRemoval(id) {
			continue
		}
		en := ctx.Entities.Energy(id)
		if en == nil {
			continue
		}
		limit := ceiling
		if en.Capacity > 0 {
			limit = en.Capacity
		}
		en.Value = math.Min(limit, en.Value+rate)
	}
}

func (s *Spawn) respawn(ctx *Context) {
	pop := ctx.Config.Population
	if pop.RespawnThreshold <= 0 || ctx.Frame < uint64(pop.WarmupTicks) {
		return
	}
	agents := ctx.Entities.Count(components.KindAgent)
	if agents >= pop.RespawnThreshold {
		return
	}
	for i := 0; i < pop.RespawnCount; i++ {
		if pop.MaxAgents > 0 && agents >= pop.MaxAgents {
			return
		}
		p := Founder(ctx.Config, ctx.Schema, ctx.Behaviors, ctx.RNG, RandomPosition(ctx.Config, ctx.RNG))
		if _, ok := ctx.RequestSpawn(p, ReasonRespawn); ok {
			agents++
			s.respawned++
		}
	}
}

func (s *Spawn) DebugInfo() map[string]any {
	return map[string]any{
		"food_spawned":  s.spawned,
		"food_rejected": s.rejected,
		"respawned":     s.respawned,
	}
}
