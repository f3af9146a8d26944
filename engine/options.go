package engine

import (
	"log/slog"

	"github.com/pthm-cable/genesis/behavior"
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/systems"
	"github.com/pthm-cable/genesis/telemetry"
)

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Logger receives failure, substitution and reset logs.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// RunID tags documents captured from this engine. Empty leaves captures
	// to mint their own.
	RunID string

	// Metrics, when set, receives tick timing, population and failures.
	Metrics *telemetry.Metrics

	// OnPhase is called after every phase with the frame it ran in.
	OnPhase func(frame uint64, phase string)

	// OnEvent is called for every committed birth and death.
	OnEvent func(ev telemetry.Event)

	// OnWindow is called each time a telemetry window is flushed.
	OnWindow func(stats telemetry.WindowStats)

	// Interactions builds the interaction-phase systems on every Reset, in
	// the order they run. Nil installs the contest system; a function
	// returning nothing leaves the phase empty.
	Interactions func(cfg *config.Config) []systems.System

	// Algorithms are registered after the built-ins on every Reset.
	Algorithms func(seed int64, cfg *config.Config) []behavior.Algorithm
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) interactions(cfg *config.Config) []systems.System {
	if o.Interactions == nil {
		return []systems.System{systems.NewContest()}
	}
	return o.Interactions(cfg)
}
