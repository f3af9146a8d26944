package telemetry

import (
	"log/slog"
	"maps"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/genesis/components"
)

// EcosystemStats is the aggregate view carried in every snapshot. It is
// rebuilt from committed store state and updated from commit events only.
type EcosystemStats struct {
	Frame         uint64         `json:"frame"`
	Population    int            `json:"population"`
	Resources     int            `json:"resources"`
	Consumables   int            `json:"consumables"`
	Decorations   int            `json:"decorations"`
	Births        int            `json:"births"`
	Deaths        int            `json:"deaths"`
	DeathCauses   map[string]int `json:"death_causes"`
	MaxGeneration int            `json:"max_generation"`
}

// Clone returns a copy that shares no memory with s.
func (s EcosystemStats) Clone() EcosystemStats {
	out := s
	out.DeathCauses = maps.Clone(s.DeathCauses)
	if out.DeathCauses == nil {
		out.DeathCauses = map[string]int{}
	}
	return out
}

// Counter reports committed entity counts by kind.
type Counter interface {
	Count(k components.Kind) int
}

// Ecosystem maintains EcosystemStats across ticks. Births and deaths count
// agents only; food and resource churn is visible in the kind counts.
type Ecosystem struct {
	stats EcosystemStats
}

// NewEcosystem returns an empty aggregator.
func NewEcosystem() *Ecosystem {
	return &Ecosystem{stats: EcosystemStats{DeathCauses: map[string]int{}}}
}

// Observe applies one committed lifecycle event.
func (e *Ecosystem) Observe(ev Event) {
	if ev.Kind != components.KindAgent {
		return
	}
	switch ev.Type {
	case EventBirth:
		e.stats.Births++
		e.NoteGeneration(ev.Generation)
	case EventDeath:
		e.stats.Deaths++
		e.stats.DeathCauses[ev.Reason]++
	}
}

// NoteGeneration raises the generation counter. Used for entities that
// enter through the privileged insert path.
func (e *Ecosystem) NoteGeneration(g int) {
	if g > e.stats.MaxGeneration {
		e.stats.MaxGeneration = g
	}
}

// Rebuild refreshes the population counts from the store.
func (e *Ecosystem) Rebuild(frame uint64, c Counter) {
	e.stats.Frame = frame
	e.stats.Population = c.Count(components.KindAgent)
	e.stats.Resources = c.Count(components.KindResource)
	e.stats.Consumables = c.Count(components.KindConsumable)
	e.stats.Decorations = c.Count(components.KindDecoration)
}

// Restore replaces the aggregate, as when a persisted run is loaded.
func (e *Ecosystem) Restore(s EcosystemStats) {
	e.stats = s.Clone()
}

// Stats returns a copy of the current aggregate.
func (e *Ecosystem) Stats() EcosystemStats {
	return e.stats.Clone()
}

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64 `csv:"window_start"`
	WindowEndTick   uint64 `csv:"window_end"`

	Agents      int `csv:"agents"`
	Resources   int `csv:"resources"`
	Consumables int `csv:"consumables"`
	Decorations int `csv:"decorations"`

	Births           int `csv:"births"`
	Deaths           int `csv:"deaths"`
	DeathsStarvation int `csv:"deaths_starvation"`
	DeathsOldAge     int `csv:"deaths_old_age"`
	DeathsContest    int `csv:"deaths_contest"`
	DeathsOther      int `csv:"deaths_other"`

	// Mean age at death of agents that died in the window.
	MeanLifespan  float64 `csv:"mean_lifespan"`
	MaxGeneration int     `csv:"max_generation"`

	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Mean over traits of std/(max-min); 0 for a clonal population.
	Diversity         float64 `csv:"diversity"`
	Algorithms        int     `csv:"algorithms"`
	DominantAlgorithm string  `csv:"dominant_algorithm"`

	Traits []TraitStat `csv:"-"`
}

// TraitStat summarizes one trait across living agents.
type TraitStat struct {
	Name string
	Mean float64
	Std  float64
}

// TraitSample is the raw input for one trait.
type TraitSample struct {
	Name     string
	Min, Max float64
	Values   []float64
}

// PopulationSample is the per-agent data the caller gathers at flush time.
type PopulationSample struct {
	Energies   []float64
	Traits     []TraitSample
	Algorithms map[string]int
}

// ComputeEnergyStats returns mean and empirical 10/50/90th percentiles.
// Values need not be sorted.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.1, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// ComputeTraitStats returns per-trait mean/std and the normalized diversity.
func ComputeTraitStats(samples []TraitSample) ([]TraitStat, float64) {
	out := make([]TraitStat, 0, len(samples))
	var diversity float64
	var counted int
	for _, s := range samples {
		ts := TraitStat{Name: s.Name}
		switch len(s.Values) {
		case 0:
		case 1:
			ts.Mean = s.Values[0]
		default:
			ts.Mean, ts.Std = stat.MeanStdDev(s.Values, nil)
		}
		out = append(out, ts)
		if span := s.Max - s.Min; span > 0 && len(s.Values) > 0 {
			diversity += ts.Std / span
			counted++
		}
	}
	if counted > 0 {
		diversity /= float64(counted)
	}
	return out, diversity
}

// dominant returns the most common algorithm; ties go to the lower id.
func dominant(counts map[string]int) string {
	best, bestN := "", 0
	for _, id := range slices.Sorted(maps.Keys(counts)) {
		if counts[id] > bestN {
			best, bestN = id, counts[id]
		}
	}
	return best
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Int("agents", s.Agents),
		slog.Int("resources", s.Resources),
		slog.Int("consumables", s.Consumables),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("deaths_starvation", s.DeathsStarvation),
		slog.Int("deaths_old_age", s.DeathsOldAge),
		slog.Int("deaths_contest", s.DeathsContest),
		slog.Float64("mean_lifespan", s.MeanLifespan),
		slog.Int("max_generation", s.MaxGeneration),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("diversity", s.Diversity),
		slog.String("dominant_algorithm", s.DominantAlgorithm),
	}
	for _, t := range s.Traits {
		attrs = append(attrs, slog.Float64(t.Name+"_mean", t.Mean))
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stats", "window", s)
}
