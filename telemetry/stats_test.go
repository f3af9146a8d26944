package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/genesis/components"
)

func TestComputeEnergyStats(t *testing.T) {
	tests := []struct {
		name          string
		values        []float64
		mean          float64
		p10, p50, p90 float64
	}{
		{"empty", nil, 0, 0, 0, 0},
		{"single", []float64{5}, 5, 5, 5, 5},
		{"ten sorted", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5.5, 1, 5, 9},
		{"ten shuffled", []float64{7, 3, 10, 1, 9, 2, 8, 4, 6, 5}, 5.5, 1, 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, p10, p50, p90 := ComputeEnergyStats(tt.values)
			if math.Abs(mean-tt.mean) > 1e-9 {
				t.Errorf("mean = %v, want %v", mean, tt.mean)
			}
			if p10 != tt.p10 || p50 != tt.p50 || p90 != tt.p90 {
				t.Errorf("percentiles = %v/%v/%v, want %v/%v/%v", p10, p50, p90, tt.p10, tt.p50, tt.p90)
			}
		})
	}
}

func TestComputeEnergyStatsDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeEnergyStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered: %v", values)
	}
}

func TestComputeTraitStats(t *testing.T) {
	samples := []TraitSample{
		{Name: "speed", Min: 0, Max: 2, Values: []float64{1, 1, 1}},
		{Name: "vision", Min: 0, Max: 10, Values: []float64{2, 4}},
		{Name: "empty", Min: 0, Max: 1},
	}
	stats, diversity := ComputeTraitStats(samples)
	if len(stats) != 3 {
		t.Fatalf("len(stats) = %d, want 3", len(stats))
	}
	if stats[0].Mean != 1 || stats[0].Std != 0 {
		t.Errorf("speed = %+v, want mean 1 std 0", stats[0])
	}
	if stats[1].Mean != 3 || math.Abs(stats[1].Std-math.Sqrt2) > 1e-9 {
		t.Errorf("vision = %+v, want mean 3 std sqrt(2)", stats[1])
	}
	// Empty traits do not count toward diversity.
	want := (0 + math.Sqrt2/10) / 2
	if math.Abs(diversity-want) > 1e-9 {
		t.Errorf("diversity = %v, want %v", diversity, want)
	}
}

func TestEcosystemObserveCountsAgentsOnly(t *testing.T) {
	eco := NewEcosystem()
	eco.Observe(NewBirthEvent(1, 1, components.KindAgent, "birth", &components.Heritage{Generation: 3}))
	eco.Observe(NewBirthEvent(1, 2, components.KindConsumable, "food", nil))
	eco.Observe(NewDeathEvent(2, 1, components.KindAgent, components.CauseStarvation, 10))
	eco.Observe(NewDeathEvent(2, 2, components.KindConsumable, components.CauseEaten, 0))

	s := eco.Stats()
	if s.Births != 1 || s.Deaths != 1 {
		t.Errorf("births/deaths = %d/%d, want 1/1", s.Births, s.Deaths)
	}
	if s.DeathCauses[components.CauseStarvation] != 1 || len(s.DeathCauses) != 1 {
		t.Errorf("causes = %v, want starvation only", s.DeathCauses)
	}
	if s.MaxGeneration != 3 {
		t.Errorf("max generation = %d, want 3", s.MaxGeneration)
	}
}

type fakeCounter map[components.Kind]int

func (f fakeCounter) Count(k components.Kind) int { return f[k] }

func TestEcosystemRebuildAndClone(t *testing.T) {
	eco := NewEcosystem()
	eco.Rebuild(7, fakeCounter{components.KindAgent: 4, components.KindConsumable: 9, components.KindResource: 2})
	s := eco.Stats()
	if s.Frame != 7 || s.Population != 4 || s.Consumables != 9 || s.Resources != 2 {
		t.Errorf("rebuild = %+v", s)
	}

	s.DeathCauses["meteor"] = 1
	if _, ok := eco.Stats().DeathCauses["meteor"]; ok {
		t.Error("Stats returned a shared death-cause map")
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(10)
	if c.ShouldFlush(9) {
		t.Error("flush due before the window elapsed")
	}
	if !c.ShouldFlush(10) {
		t.Error("flush not due at the window boundary")
	}

	c.Observe(NewBirthEvent(1, 5, components.KindAgent, "birth", nil))
	c.Observe(NewDeathEvent(2, 6, components.KindAgent, components.CauseOldAge, 100))
	c.Observe(NewDeathEvent(3, 7, components.KindAgent, components.CauseExternal, 50))
	c.Observe(NewDeathEvent(3, 8, components.KindConsumable, components.CauseEaten, 0))

	ws := c.Flush(10, EcosystemStats{Population: 3, MaxGeneration: 2}, PopulationSample{
		Energies:   []float64{10, 20, 30},
		Algorithms: map[string]int{"wander": 2, "forager": 2, "cautious": 1},
	})

	if ws.Births != 1 || ws.Deaths != 2 {
		t.Errorf("births/deaths = %d/%d, want 1/2", ws.Births, ws.Deaths)
	}
	if ws.DeathsOldAge != 1 || ws.DeathsOther != 1 {
		t.Errorf("old_age/other = %d/%d, want 1/1", ws.DeathsOldAge, ws.DeathsOther)
	}
	if ws.MeanLifespan != 75 {
		t.Errorf("mean lifespan = %v, want 75", ws.MeanLifespan)
	}
	if ws.Agents != 3 || ws.MaxGeneration != 2 {
		t.Errorf("agents/gen = %d/%d, want 3/2", ws.Agents, ws.MaxGeneration)
	}
	if ws.Algorithms != 3 || ws.DominantAlgorithm != "forager" {
		t.Errorf("algorithms = %d dominant %q, want 3 forager", ws.Algorithms, ws.DominantAlgorithm)
	}
	if ws.EnergyP50 != 20 {
		t.Errorf("energy p50 = %v, want 20", ws.EnergyP50)
	}

	next := c.Flush(20, EcosystemStats{}, PopulationSample{})
	if next.WindowStartTick != 10 || next.Births != 0 || next.Deaths != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
}
