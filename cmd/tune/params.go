package main

import (
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/vmath"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	Int     bool    // Rounded when applied

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

func floatParam(name, path string, lo, hi float64, field func(*config.Config) *float64) ParamSpec {
	return ParamSpec{
		Name: name, Path: path, Min: lo, Max: hi,
		get: func(c *config.Config) float64 { return *field(c) },
		set: func(c *config.Config, v float64) { *field(c) = v },
	}
}

func intParam(name, path string, lo, hi float64, field func(*config.Config) *int) ParamSpec {
	return ParamSpec{
		Name: name, Path: path, Min: lo, Max: hi, Int: true,
		get: func(c *config.Config) float64 { return float64(*field(c)) },
		set: func(c *config.Config, v float64) { *field(c) = int(v + 0.5) },
	}
}

// NewParamVector creates the standard set of tunable parameters. Defaults
// are read from base.
func NewParamVector(base *config.Config) *ParamVector {
	pv := &ParamVector{
		Specs: []ParamSpec{
			// Energy
			floatParam("base_cost", "energy.base_cost", 0.01, 0.2, func(c *config.Config) *float64 { return &c.Energy.BaseCost }),
			floatParam("move_cost", "energy.move_cost", 0.005, 0.08, func(c *config.Config) *float64 { return &c.Energy.MoveCost }),
			floatParam("food_gain", "collision.food_gain", 5, 60, func(c *config.Config) *float64 { return &c.Collision.FoodGain }),
			floatParam("graze_amount", "collision.graze_amount", 0.2, 5, func(c *config.Config) *float64 { return &c.Collision.GrazeAmount }),
			// Spawning
			floatParam("food_per_tick", "spawn.food_per_tick", 0.1, 3, func(c *config.Config) *float64 { return &c.Spawn.FoodPerTick }),
			floatParam("resource_regrow", "spawn.resource_regrow_rate", 0, 0.5, func(c *config.Config) *float64 { return &c.Spawn.ResourceRegrowRate }),
			// Reproduction
			floatParam("repro_threshold", "reproduction.threshold", 40, 145, func(c *config.Config) *float64 { return &c.Reproduction.Threshold }),
			floatParam("repro_cost", "reproduction.cost", 10, 80, func(c *config.Config) *float64 { return &c.Reproduction.Cost }),
			floatParam("child_energy", "reproduction.child_energy", 10, 80, func(c *config.Config) *float64 { return &c.Reproduction.ChildEnergy }),
			intParam("repro_cooldown", "reproduction.cooldown", 30, 900, func(c *config.Config) *int { return &c.Reproduction.Cooldown }),
			intParam("maturity_age", "reproduction.maturity_age", 30, 900, func(c *config.Config) *int { return &c.Reproduction.MaturityAge }),
			floatParam("asexual_chance", "reproduction.asexual_chance", 0, 0.1, func(c *config.Config) *float64 { return &c.Reproduction.AsexualChance }),
			// Interaction
			floatParam("contest_chance", "contest.chance", 0, 0.5, func(c *config.Config) *float64 { return &c.Contest.Chance }),
			floatParam("contest_stake", "contest.stake", 1, 40, func(c *config.Config) *float64 { return &c.Contest.Stake }),
			// Genetics
			floatParam("mutation_rate", "genome.mutation_rate", 0.01, 0.5, func(c *config.Config) *float64 { return &c.Genome.MutationRate }),
			floatParam("mutation_strength", "genome.mutation_strength", 0.005, 0.2, func(c *config.Config) *float64 { return &c.Genome.MutationStrength }),
		},
	}
	for i := range pv.Specs {
		s := &pv.Specs[i]
		s.Default = vmath.Clamp(s.get(base), s.Min, s.Max)
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = vmath.Clamp(v[i], spec.Min, spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = spec.get(cfg)
	}
	return out
}
