// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Crossover strategy names accepted in genome.crossover.
const (
	CrossoverBlend = "blend"
	CrossoverPick  = "pick"
)

// Config holds all simulation configuration parameters.
type Config struct {
	World        WorldConfig        `yaml:"world"`
	Population   PopulationConfig   `yaml:"population"`
	Energy       EnergyConfig       `yaml:"energy"`
	Genome       GenomeConfig       `yaml:"genome"`
	Behavior     BehaviorConfig     `yaml:"behavior"`
	DayNight     DayNightConfig     `yaml:"day_night"`
	Environment  EnvironmentConfig  `yaml:"environment"`
	Spawn        SpawnConfig        `yaml:"spawn"`
	Collision    CollisionConfig    `yaml:"collision"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Contest      ContestConfig      `yaml:"contest"`
	Engine       EngineConfig       `yaml:"engine"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the bounded world dimensions.
type WorldConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// PopulationConfig holds initial population and population management parameters.
type PopulationConfig struct {
	InitialAgents      int `yaml:"initial_agents"`
	InitialResources   int `yaml:"initial_resources"`
	InitialConsumables int `yaml:"initial_consumables"`
	InitialDecorations int `yaml:"initial_decorations"`
	MaxAgents          int `yaml:"max_agents"`
	RespawnThreshold   int `yaml:"respawn_threshold"` // Founders are respawned below this count (0 = off)
	RespawnCount       int `yaml:"respawn_count"`
	WarmupTicks        int `yaml:"warmup_ticks"` // No respawn before this frame
}

// EnergyConfig holds agent and resource energy economics.
// Agent costs are multiplied by the agent's metabolism trait.
type EnergyConfig struct {
	Initial          float64 `yaml:"initial"`           // Founder starting energy
	Capacity         float64 `yaml:"capacity"`          // Agent energy above this overflows as food
	BaseCost         float64 `yaml:"base_cost"`         // Drain per tick for existing
	MoveCost         float64 `yaml:"move_cost"`         // Drain per unit of distance moved
	ResourceInitial  float64 `yaml:"resource_initial"`  // Starting energy of static resources
	ResourceCapacity float64 `yaml:"resource_capacity"` // Regrowth ceiling for static resources
	OverflowMin      float64 `yaml:"overflow_min"`      // Smallest surplus dropped as food
}

// TraitConfig declares one heritable trait and its bounds.
type TraitConfig struct {
	Name    string  `yaml:"name"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default"`
}

// GenomeConfig holds the trait schema and inheritance operators.
type GenomeConfig struct {
	Traits            []TraitConfig `yaml:"traits"`
	Crossover         string        `yaml:"crossover"`          // blend or pick
	MutationRate      float64       `yaml:"mutation_rate"`      // Per-trait probability
	MutationStrength  float64       `yaml:"mutation_strength"`  // Std-dev as a fraction of the trait range
	DefaultAlgorithm  string        `yaml:"default_algorithm"`  // Substituted for unknown algorithm ids
	FounderAlgorithms []string      `yaml:"founder_algorithms"` // Founders pick one of these uniformly
}

// BehaviorConfig holds movement parameters shared by all behavior algorithms.
type BehaviorConfig struct {
	MaxSpeed     float64 `yaml:"max_speed"`    // Speed at speed trait 1.0 and full activity
	Acceleration float64 `yaml:"acceleration"` // Fraction of velocity error corrected per tick
	NeighborCap  int     `yaml:"neighbor_cap"` // Observation size limit per kind
	WanderScale  float64 `yaml:"wander_scale"` // Noise frequency for the wander heading
	CrowdRadius  float64 `yaml:"crowd_radius"` // Separation radius for schooling agents
}

// DayNightConfig holds the cyclical clock parameters.
type DayNightConfig struct {
	CycleTicks    int     `yaml:"cycle_ticks"`    // Ticks per full day (0 = always day)
	NightActivity float64 `yaml:"night_activity"` // Activity modifier at midnight
}

// EnvironmentConfig holds ecosystem-wide modifier parameters.
type EnvironmentConfig struct {
	DensityFactor     float64 `yaml:"density_factor"`      // Detection scale = 1 / (1 + density * factor)
	MinDetectionScale float64 `yaml:"min_detection_scale"` // Lower clamp for the detection scale
}

// SpawnConfig holds deterministic food spawning parameters.
type SpawnConfig struct {
	FoodPerTick        float64 `yaml:"food_per_tick"`        // Expected consumables spawned per tick
	MaxConsumables     int     `yaml:"max_consumables"`      // No spawning at or above this count
	FoodEnergy         float64 `yaml:"food_energy"`          // Energy carried by spawned food
	NoiseScale         float64 `yaml:"noise_scale"`          // Fertility noise frequency
	FertilityThreshold float64 `yaml:"fertility_threshold"`  // Reject spawn points below this fertility
	MaxAttempts        int     `yaml:"max_attempts"`         // Placement attempts per spawn
	ResourceRegrowRate float64 `yaml:"resource_regrow_rate"` // Resource energy regained per tick
}

// CollisionConfig holds consumption parameters.
type CollisionConfig struct {
	Radius      float64 `yaml:"radius"`       // Contact distance between agent and food
	FoodGain    float64 `yaml:"food_gain"`    // Energy an agent gains from one consumable
	GrazeAmount float64 `yaml:"graze_amount"` // Energy drawn from a resource per tick of contact
}

// ReproductionConfig holds mating and asexual spawning parameters.
type ReproductionConfig struct {
	Threshold     float64 `yaml:"threshold"`      // Minimum energy to reproduce
	Cost          float64 `yaml:"cost"`           // Energy paid by each contributing parent
	ChildEnergy   float64 `yaml:"child_energy"`   // Offspring starting energy
	Cooldown      int     `yaml:"cooldown"`       // Ticks between reproductions
	MaturityAge   int     `yaml:"maturity_age"`   // Minimum age in ticks
	MateRadius    float64 `yaml:"mate_radius"`    // Partner search radius for sexual reproduction
	SpawnOffset   float64 `yaml:"spawn_offset"`   // Max offspring displacement from the parent
	AsexualChance float64 `yaml:"asexual_chance"` // Probability of budding when no mate is found
}

// ContestConfig holds parameters of the built-in interaction system.
type ContestConfig struct {
	Enabled bool    `yaml:"enabled"`
	Radius  float64 `yaml:"radius"` // Contact distance between contestants
	Chance  float64 `yaml:"chance"` // Base probability scaled by mean aggression
	Stake   float64 `yaml:"stake"`  // Energy the winner takes from the loser
}

// EngineConfig holds engine policy parameters.
type EngineConfig struct {
	FailureLimit int `yaml:"failure_limit"` // Consecutive failures before a system is disabled (0 = never)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // Ticks per stats window
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TraitIndex map[string]int // trait name -> index in Genome.Traits
}

// Default returns a config built from the embedded defaults only.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := Overlay(cfg, data); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Overlay unmarshals YAML data into cfg. Only fields present in data are overwritten.
func Overlay(cfg *Config, data []byte) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	cfg.computeDerived()
	return nil
}

// Validate reports the first structural problem found in the config.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world: dimensions must be positive, got %vx%v", c.World.Width, c.World.Height)
	}
	if c.World.GridCellSize <= 0 {
		return fmt.Errorf("world: grid_cell_size must be positive, got %v", c.World.GridCellSize)
	}
	if len(c.Genome.Traits) == 0 {
		return fmt.Errorf("genome: at least one trait is required")
	}
	seen := make(map[string]bool, len(c.Genome.Traits))
	for _, t := range c.Genome.Traits {
		if t.Name == "" {
			return fmt.Errorf("genome: trait with empty name")
		}
		if seen[t.Name] {
			return fmt.Errorf("genome: duplicate trait %q", t.Name)
		}
		seen[t.Name] = true
		if t.Min > t.Max {
			return fmt.Errorf("genome: trait %q has min %v > max %v", t.Name, t.Min, t.Max)
		}
	}
	switch c.Genome.Crossover {
	case CrossoverBlend, CrossoverPick:
	default:
		return fmt.Errorf("genome: unknown crossover strategy %q", c.Genome.Crossover)
	}
	if c.Genome.MutationRate < 0 || c.Genome.MutationRate > 1 {
		return fmt.Errorf("genome: mutation_rate must be in [0,1], got %v", c.Genome.MutationRate)
	}
	if c.Genome.DefaultAlgorithm == "" {
		return fmt.Errorf("genome: default_algorithm is required")
	}
	if c.Engine.FailureLimit < 0 {
		return fmt.Errorf("engine: failure_limit must be >= 0, got %d", c.Engine.FailureLimit)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Telemetry.StatsWindow < 1 {
		c.Telemetry.StatsWindow = 1
	}
	if c.Spawn.MaxAttempts < 1 {
		c.Spawn.MaxAttempts = 1
	}
	if len(c.Genome.FounderAlgorithms) == 0 && c.Genome.DefaultAlgorithm != "" {
		c.Genome.FounderAlgorithms = []string{c.Genome.DefaultAlgorithm}
	}

	c.Derived.TraitIndex = make(map[string]int, len(c.Genome.Traits))
	for i, t := range c.Genome.Traits {
		c.Derived.TraitIndex[t.Name] = i
	}
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	out := *c
	out.Genome.Traits = append([]TraitConfig(nil), c.Genome.Traits...)
	out.Genome.FounderAlgorithms = append([]string(nil), c.Genome.FounderAlgorithms...)
	out.computeDerived()
	return &out
}

// Trait returns the declared trait with the given name.
func (c *Config) Trait(name string) (TraitConfig, bool) {
	i, ok := c.Derived.TraitIndex[name]
	if !ok {
		return TraitConfig{}, false
	}
	return c.Genome.Traits[i], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
