package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
)

func TestCollisionEatsConsumable(t *testing.T) {
	f := newFixture(t)
	a := f.agent(50, 50, 40, nil)
	food := f.food(52, 50)
	f.reindex()

	f.run(t, NewCollision())
	f.commit()

	if f.store.Has(food) {
		t.Error("consumable still present after commit")
	}
	if got, want := f.store.Energy(a).Value, 40+f.cfg.Collision.FoodGain; got != want {
		t.Errorf("agent energy = %v, want %v", got, want)
	}
}

func TestCollisionOutOfRange(t *testing.T) {
	f := newFixture(t)
	a := f.agent(50, 50, 40, nil)
	food := f.food(50+f.cfg.Collision.Radius+1, 50)
	f.reindex()

	f.run(t, NewCollision())
	f.commit()

	if !f.store.Has(food) || f.store.Energy(a).Value != 40 {
		t.Error("food beyond collision radius was eaten")
	}
}

func TestCollisionFoodEatenOnce(t *testing.T) {
	f := newFixture(t)
	a := f.agent(50, 50, 40, nil)
	b := f.agent(51, 50, 40, nil)
	f.food(50, 51)
	f.reindex()

	f.run(t, NewCollision())

	gain := f.cfg.Collision.FoodGain
	ea, eb := f.store.Energy(a).Value, f.store.Energy(b).Value
	if ea+eb != 80+gain {
		t.Errorf("total gain = %v, want one food (%v)", ea+eb-80, gain)
	}
	// Lower id acts first.
	if ea != 40+gain {
		t.Errorf("agent %d energy = %v, want %v", a, ea, 40+gain)
	}
}

func TestCollisionGrazesResource(t *testing.T) {
	f := newFixture(t)
	a := f.agent(50, 50, 40, nil)
	r := f.resource(51, 50, 10)
	f.reindex()

	f.run(t, NewCollision())

	graze := f.cfg.Collision.GrazeAmount
	if got := f.store.Energy(r).Value; got != 10-graze {
		t.Errorf("resource energy = %v, want %v", got, 10-graze)
	}
	if got := f.store.Energy(a).Value; got != 40+graze {
		t.Errorf("agent energy = %v, want %v", got, 40+graze)
	}
}

func TestLifecycleQueuesDying(t *testing.T) {
	f := newFixture(t)
	a := f.agent(10, 10, 40, nil)
	b := f.agent(20, 10, 0, nil)
	c := f.agent(30, 10, 40, nil)
	f.store.Vitals(a).MarkDying(components.CauseOldAge)

	f.run(t, NewLifecycle())
	removed, _ := f.commit()

	if len(removed) != 2 {
		t.Fatalf("removed %d, want 2", len(removed))
	}
	if removed[0].ID != a || removed[0].Reason != components.CauseOldAge {
		t.Errorf("first removal = %+v", removed[0])
	}
	if removed[1].ID != b || removed[1].Reason != components.CauseStarvation {
		t.Errorf("second removal = %+v", removed[1])
	}
	if !f.store.Has(c) {
		t.Error("healthy agent removed")
	}
}

func TestBehaviorMovesAndPays(t *testing.T) {
	f := newFixture(t)
	a := f.agent(100, 100, 40, nil)
	f.reindex()

	f.run(t, NewBehavior())

	if f.store.Energy(a).Value >= 40 {
		t.Error("no metabolism paid")
	}
	if f.store.Vitals(a).Age != f.cfg.Reproduction.MaturityAge+1 {
		t.Errorf("age = %d", f.store.Vitals(a).Age)
	}
	pos := *f.store.Position(a)
	if !f.ctx.Grid.IsWithinBounds(pos) {
		t.Errorf("agent left the world: %v", pos)
	}
}

func TestBehaviorStaysInBounds(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.agent(1, float64(i*20)+1, 1000, nil)
	}
	s := NewBehavior()
	for tick := 0; tick < 200; tick++ {
		f.ctx.Frame = uint64(tick)
		f.reindex()
		f.run(t, s)
		f.commit()
	}
	for _, id := range f.store.IDs(components.Mask(components.KindAgent)) {
		if p := *f.store.Position(id); !f.ctx.Grid.IsWithinBounds(p) {
			t.Errorf("agent %d out of bounds at %v", id, p)
		}
	}
}

func TestBehaviorFlagsDeath(t *testing.T) {
	f := newFixture(t)
	starving := f.agent(50, 50, 0.001, nil)
	old := f.agent(100, 100, 40, map[string]float64{TraitLifespan: 0})
	// Lifespan is clamped to its minimum; age the agent past it.
	f.store.Vitals(old).Age = 100000
	f.reindex()

	f.run(t, NewBehavior())

	if v := f.store.Vitals(starving); !v.Dying || v.Cause != components.CauseStarvation {
		t.Errorf("starving vitals = %+v", *v)
	}
	if v := f.store.Vitals(old); !v.Dying || v.Cause != components.CauseOldAge {
		t.Errorf("old vitals = %+v", *v)
	}
}

func TestBehaviorOverflowDropsFood(t *testing.T) {
	f := newFixture(t)
	a := f.agent(50, 50, f.cfg.Energy.Capacity+50, nil)
	f.reindex()

	f.run(t, NewBehavior())
	_, spawned := f.commit()

	if got := f.store.Energy(a).Value; got > f.cfg.Energy.Capacity {
		t.Errorf("energy = %v, want at most capacity %v", got, f.cfg.Energy.Capacity)
	}
	if len(spawned) != 1 || spawned[0].Prototype.Kind != components.KindConsumable || spawned[0].Reason != ReasonOverflow {
		t.Fatalf("spawned = %+v, want one overflow consumable", spawned)
	}
	if e := spawned[0].Prototype.Energy.Value; e <= 0 || e > 50 {
		t.Errorf("overflow energy = %v", e)
	}
}

func TestSpawnRespectsCap(t *testing.T) {
	f := newFixture(t)
	f.cfg.Spawn.FoodPerTick = 5
	f.cfg.Spawn.FertilityThreshold = 0
	f.cfg.Spawn.MaxConsumables = 3
	f.cfg.Population.RespawnThreshold = 0

	s := NewSpawn(1)
	for i := 0; i < 5; i++ {
		f.run(t, s)
		f.commit()
	}
	if got := f.store.Count(components.KindConsumable); got != 3 {
		t.Errorf("consumables = %d, want cap 3", got)
	}
}

func TestSpawnDeterministic(t *testing.T) {
	positions := func() []components.Position {
		f := newFixture(t)
		f.cfg.Spawn.FoodPerTick = 2.5
		f.cfg.Spawn.FertilityThreshold = 0
		s := NewSpawn(9)
		for i := 0; i < 20; i++ {
			f.run(t, s)
			f.commit()
		}
		var out []components.Position
		for _, id := range f.store.IDs(components.Mask(components.KindConsumable)) {
			out = append(out, *f.store.Position(id))
		}
		return out
	}
	a, b := positions(), positions()
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("runs spawned %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("food %d at %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSpawnRegrowsResources(t *testing.T) {
	f := newFixture(t)
	f.cfg.Spawn.FoodPerTick = 0
	r := f.resource(10, 10, 5)
	f.run(t, NewSpawn(1))
	if got := f.store.Energy(r).Value; got != 5+f.cfg.Spawn.ResourceRegrowRate {
		t.Errorf("resource energy = %v", got)
	}
}

func TestSpawnRespawnsFounders(t *testing.T) {
	f := newFixture(t)
	f.cfg.Spawn.FoodPerTick = 0
	f.cfg.Population.WarmupTicks = 0
	f.cfg.Population.RespawnThreshold = 2
	f.cfg.Population.RespawnCount = 4

	f.run(t, NewSpawn(1))
	_, spawned := f.commit()
	if len(spawned) != 4 {
		t.Fatalf("respawned %d, want 4", len(spawned))
	}
	for _, op := range spawned {
		if op.Reason != ReasonRespawn || op.Prototype.Genome == nil {
			t.Errorf("respawn op = %+v", op)
		}
	}
}

func TestActivityCurve(t *testing.T) {
	tests := []struct {
		phase, night, want float64
	}{
		{0, 0.4, 1},
		{0.5, 0.4, 0.4},
		{0.25, 0, 0.5},
	}
	for _, tc := range tests {
		if got := Activity(tc.phase, tc.night); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Activity(%v, %v) = %v, want %v", tc.phase, tc.night, got, tc.want)
		}
	}
}

func TestDayNightPublishes(t *testing.T) {
	f := newFixture(t)
	f.cfg.DayNight.CycleTicks = 100
	f.ctx.Frame = 50
	f.run(t, NewDayNight())
	if math.Abs(f.env.Activity-f.cfg.DayNight.NightActivity) > 1e-9 {
		t.Errorf("midnight activity = %v", f.env.Activity)
	}
}

func TestDetectionScale(t *testing.T) {
	if got := DetectionScale(0, 10, 0.5); got != 1 {
		t.Errorf("empty world scale = %v", got)
	}
	if got := DetectionScale(100, 10, 0.5); got != 0.5 {
		t.Errorf("crowded world scale = %v, want clamp 0.5", got)
	}
}

func TestReproductionSexual(t *testing.T) {
	f := newFixture(t)
	f.cfg.Genome.MutationRate = 0
	f.ctx.Strategy = genome.StrategyPick
	threshold := f.cfg.Reproduction.Threshold
	a := f.agent(50, 50, threshold+10, map[string]float64{TraitSpeed: 1.0})
	b := f.agent(55, 50, threshold+10, map[string]float64{TraitSpeed: 1.8})
	f.reindex()

	f.run(t, NewReproduction())
	_, spawned := f.commit()

	if len(spawned) != 1 {
		t.Fatalf("spawned %d offspring, want 1", len(spawned))
	}
	p := spawned[0].Prototype
	if p.ParentA != a || p.ParentB != b || p.Generation != 1 {
		t.Errorf("lineage = %d x %d gen %d", p.ParentA, p.ParentB, p.Generation)
	}
	if v, _ := p.Genome.Get(TraitSpeed); v != 1.0 && v != 1.8 {
		t.Errorf("offspring speed = %v, want a parent's value", v)
	}
	for _, id := range []entity.ID{a, b} {
		vit := f.store.Vitals(id)
		if vit.Cooldown != f.cfg.Reproduction.Cooldown {
			t.Errorf("parent %d cooldown = %d", id, vit.Cooldown)
		}
		if e := f.store.Energy(id).Value; e != threshold+10-f.cfg.Reproduction.Cost {
			t.Errorf("parent %d energy = %v", id, e)
		}
	}
}

func TestReproductionRequiresEligibility(t *testing.T) {
	f := newFixture(t)
	f.cfg.Reproduction.AsexualChance = 0
	threshold := f.cfg.Reproduction.Threshold
	a := f.agent(50, 50, threshold+10, nil)
	f.agent(55, 50, threshold-1, nil) // too poor
	young := f.agent(52, 52, threshold+10, nil)
	f.store.Vitals(young).Age = 0
	f.store.Vitals(a).Cooldown = 0
	f.reindex()

	f.run(t, NewReproduction())
	if f.queue.Len() != 0 {
		t.Errorf("queued %d ops, want none", f.queue.Len())
	}
}

func TestReproductionPopulationCap(t *testing.T) {
	f := newFixture(t)
	f.cfg.Population.MaxAgents = 2
	threshold := f.cfg.Reproduction.Threshold
	f.agent(50, 50, threshold+10, nil)
	f.agent(55, 50, threshold+10, nil)
	f.reindex()

	f.run(t, NewReproduction())
	if f.queue.Len() != 0 {
		t.Errorf("births above population cap: %d ops", f.queue.Len())
	}
}

func TestContestDrainsLoser(t *testing.T) {
	f := newFixture(t)
	f.cfg.Contest.Chance = 1
	f.cfg.Contest.Stake = 1000
	a := f.agent(50, 50, 40, map[string]float64{TraitAggression: 1})
	b := f.agent(52, 50, 40, map[string]float64{TraitAggression: 1})
	f.reindex()

	f.run(t, NewContest())

	ea, eb := f.store.Energy(a).Value, f.store.Energy(b).Value
	if ea+eb != 80 {
		t.Errorf("energy not conserved: %v + %v", ea, eb)
	}
	loser := a
	if ea > eb {
		loser = b
	}
	if v := f.store.Vitals(loser); !v.Dying || v.Cause != components.CauseContest {
		t.Errorf("loser vitals = %+v", *v)
	}
}

func TestContestDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.Contest.Enabled = false
	a := f.agent(50, 50, 40, map[string]float64{TraitAggression: 1})
	f.agent(52, 50, 40, map[string]float64{TraitAggression: 1})
	f.reindex()
	f.run(t, NewContest())
	if f.store.Energy(a).Value != 40 {
		t.Error("disabled contest moved energy")
	}
}

func TestSystemRegistry(t *testing.T) {
	reg := NewSystemRegistry()
	for _, id := range []string{NameDayNight, NameBehavior, NameCollision, NameContest, NameReproduction} {
		if _, ok := reg.Get(id); !ok {
			t.Errorf("missing %s", id)
		}
	}
	if got := reg.GetName("nope"); got != "nope" {
		t.Errorf("GetName fallback = %q", got)
	}
	n := len(reg.All())
	reg.Register(SystemInfo{ID: NameContest, Name: "Duel", Category: "interaction"})
	if len(reg.All()) != n || reg.GetName(NameContest) != "Duel" {
		t.Error("re-registering replaced position or kept stale info")
	}
	if len(reg.ByCategory("environment")) != 2 {
		t.Errorf("environment systems = %v", reg.ByCategory("environment"))
	}
}
