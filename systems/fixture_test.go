package systems

import (
	"io"
	"log/slog"
	"testing"

	"github.com/pthm-cable/genesis/behavior"
	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/rng"
	"github.com/pthm-cable/genesis/spatial"
)

type fixture struct {
	cfg   *config.Config
	store *entity.Store
	queue *entity.Queue
	ctx   *Context
	env   Env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default().Clone()
	cfg.World.Width, cfg.World.Height = 200, 200

	reg := behavior.NewRegistry(cfg.Genome.DefaultAlgorithm, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := behavior.RegisterBuiltins(reg, 1, cfg.Behavior.WanderScale, cfg.Behavior.CrowdRadius); err != nil {
		t.Fatal(err)
	}

	f := &fixture{cfg: cfg, store: entity.NewStore(), queue: entity.NewQueue(), env: DefaultEnv()}
	f.ctx = NewContext(f.store, f.queue)
	f.ctx.Frame = 1
	f.ctx.RNG = rng.New(42)
	f.ctx.Config = cfg
	f.ctx.Grid = spatial.NewGrid(cfg.World.Width, cfg.World.Height, cfg.World.GridCellSize)
	f.ctx.Env = &f.env
	f.ctx.Behaviors = reg
	f.ctx.Schema = genome.SchemaFromConfig(cfg.Genome.Traits)
	f.ctx.Strategy = genome.StrategyBlend
	return f
}

// agent inserts an adult agent with default traits and the given overrides.
func (f *fixture) agent(x, y, energy float64, traits map[string]float64) entity.ID {
	g := f.ctx.Schema.New(traits)
	g.Algorithm = behavior.IDWander
	_ = f.ctx.Behaviors.Adopt(g)
	id, _ := f.store.Insert(entity.Prototype{
		Kind:     components.KindAgent,
		Position: components.Position{X: x, Y: y},
		Energy:   components.Energy{Value: energy, Capacity: f.cfg.Energy.Capacity},
		Vitals:   components.Vitals{Age: f.cfg.Reproduction.MaturityAge},
		Genome:   g,
	}, 0)
	return id
}

func (f *fixture) food(x, y float64) entity.ID {
	id, _ := f.store.Insert(entity.Prototype{
		Kind:     components.KindConsumable,
		Position: components.Position{X: x, Y: y},
		Energy:   components.Energy{Value: f.cfg.Spawn.FoodEnergy},
	}, 0)
	return id
}

func (f *fixture) resource(x, y, energy float64) entity.ID {
	id, _ := f.store.Insert(entity.Prototype{
		Kind:     components.KindResource,
		Position: components.Position{X: x, Y: y},
		Energy:   components.Energy{Value: energy, Capacity: f.cfg.Energy.ResourceCapacity},
	}, 0)
	return id
}

// reindex rebuilds the grid from the store.
func (f *fixture) reindex() {
	var entries []spatial.Entry
	for _, id := range f.store.IDs(components.MaskAll) {
		k, _ := f.store.Kind(id)
		entries = append(entries, spatial.Entry{ID: id, Kind: k, Position: *f.store.Position(id)})
	}
	f.ctx.Grid.Rebuild(entries)
}

// commit applies the queue the way the engine does: removals, then spawns.
func (f *fixture) commit() (removed, spawned []entity.Op) {
	removed = f.queue.DrainRemovals()
	for _, op := range removed {
		f.store.Delete(op.ID)
	}
	spawned = f.queue.DrainSpawns()
	for _, op := range spawned {
		f.store.Insert(op.Prototype, f.ctx.Frame)
	}
	return removed, spawned
}

func (f *fixture) run(t *testing.T, s System) {
	t.Helper()
	f.ctx.System = s.Name()
	if err := s.Update(f.ctx); err != nil {
		t.Fatalf("%s.Update: %v", s.Name(), err)
	}
}
