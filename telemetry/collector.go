package telemetry

import "github.com/pthm-cable/genesis/components"

// Collector accumulates commit events within fixed tick windows and
// produces WindowStats.
type Collector struct {
	windowTicks     uint64
	windowStartTick uint64

	// Event counters for the current window
	births      int
	deaths      int
	causes      map[string]int
	lifespanSum int
}

// NewCollector creates a collector flushing every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks: uint64(windowTicks),
		causes:      make(map[string]int),
	}
}

// Observe records a committed event. Non-agent events are ignored.
func (c *Collector) Observe(ev Event) {
	if ev.Kind != components.KindAgent {
		return
	}
	switch ev.Type {
	case EventBirth:
		c.RecordBirth()
	case EventDeath:
		c.RecordDeath(ev.Reason, ev.Age)
	}
}

// RecordBirth records an agent birth.
func (c *Collector) RecordBirth() {
	c.births++
}

// RecordDeath records an agent death with its cause and age in ticks.
func (c *Collector) RecordDeath(cause string, age int) {
	c.deaths++
	c.causes[cause]++
	c.lifespanSum += age
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// eco supplies committed counts; sample holds per-agent values gathered by
// the caller from the store.
func (c *Collector) Flush(currentTick uint64, eco EcosystemStats, sample PopulationSample) WindowStats {
	energyMean, p10, p50, p90 := ComputeEnergyStats(sample.Energies)
	traits, diversity := ComputeTraitStats(sample.Traits)

	var meanLifespan float64
	if c.deaths > 0 {
		meanLifespan = float64(c.lifespanSum) / float64(c.deaths)
	}

	starvation := c.causes[components.CauseStarvation]
	oldAge := c.causes[components.CauseOldAge]
	contest := c.causes[components.CauseContest]

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Agents:      eco.Population,
		Resources:   eco.Resources,
		Consumables: eco.Consumables,
		Decorations: eco.Decorations,

		Births:           c.births,
		Deaths:           c.deaths,
		DeathsStarvation: starvation,
		DeathsOldAge:     oldAge,
		DeathsContest:    contest,
		DeathsOther:      c.deaths - starvation - oldAge - contest,

		MeanLifespan:  meanLifespan,
		MaxGeneration: eco.MaxGeneration,

		EnergyMean: energyMean,
		EnergyP10:  p10,
		EnergyP50:  p50,
		EnergyP90:  p90,

		Diversity:         diversity,
		Algorithms:        len(sample.Algorithms),
		DominantAlgorithm: dominant(sample.Algorithms),
		Traits:            traits,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = 0
	c.deaths = 0
	c.lifespanSum = 0
	clear(c.causes)

	return stats
}

// StartAt discards the current window and opens a new one at tick.
func (c *Collector) StartAt(tick uint64) {
	c.windowStartTick = tick
	c.births = 0
	c.deaths = 0
	c.lifespanSum = 0
	clear(c.causes)
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() uint64 {
	return c.windowTicks
}
