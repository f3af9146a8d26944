package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/engine"
	"github.com/pthm-cable/genesis/telemetry"
)

// Minimum viable population: if agents stay below this for graceTicks
// consecutive ticks, the run counts as functionally extinct.
const (
	minViablePop = 3
	graceTicks   = 600
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   uint64
	seeds      []int64
	baseConfig *config.Config
	logger     *slog.Logger

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestWindows []telemetry.WindowStats
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// BestWindows returns the window stats of the best seed of the best evaluation.
func (fe *FitnessEvaluator) BestWindows() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks uint64                  // ticks before functional extinction (or maxTicks if survived)
	windowStats   []telemetry.WindowStats // collected via OnWindow
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	windows []telemetry.WindowStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Every seed runs on its own engine, so seeds run in parallel without
// affecting each other's determinism.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(cfg, s)
			quality := computeQuality(result.windowStats)
			results[idx] = seedResult{
				fitness: computeFitness(result.survivalTicks, quality),
				quality: quality,
				windows: result.windowStats,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedWindows []telemetry.WindowStats

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedWindows = r.windows
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestWindows = bestSeedWindows
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run until functional extinction
// or maxTicks, whichever comes first. cfg is only read.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	result := &runResult{}

	e := engine.New(engine.Options{
		Logger: fe.logger,
		OnWindow: func(ws telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, ws)
		},
	})
	if err := e.Reset(seed, cfg); err != nil {
		return result
	}

	warmup := uint64(cfg.Population.WarmupTicks)
	var below uint64
	for e.Frame() < fe.maxTicks {
		e.Step()
		if e.Frame() < warmup {
			continue
		}
		agents := e.Stats().Population
		if agents == 0 {
			result.survivalTicks = e.Frame()
			return result
		}
		if agents < minViablePop {
			below++
		} else {
			below = 0
		}
		if below >= graceTicks {
			result.survivalTicks = e.Frame()
			return result
		}
	}
	result.survivalTicks = fe.maxTicks
	return result
}

// computeFitness returns -(survival × (1 + 0.2×quality)).
func computeFitness(survival uint64, quality float64) float64 {
	return -float64(survival) * (1 + 0.2*quality)
}

// computeQuality scores a run in [0,2]: trait diversity plus the fraction of
// windows that saw at least one birth.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) == 0 {
		return 0
	}
	var diversity float64
	var breeding int
	for _, ws := range windows {
		diversity += ws.Diversity
		if ws.Births > 0 {
			breeding++
		}
	}
	n := float64(len(windows))
	return math.Min(diversity/n, 1) + float64(breeding)/n
}
