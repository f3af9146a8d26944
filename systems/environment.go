package systems

import (
	"math"

	"github.com/pthm-cable/genesis/components"
)

// DayNight advances the light cycle and publishes the activity modifier.
type DayNight struct {
	Base
	lastActivity float64
}

// NewDayNight creates the day/night system.
func NewDayNight() *DayNight {
	return &DayNight{Base: NewBase(NameDayNight), lastActivity: 1}
}

// Activity returns the modifier for a point in the cycle: 1 at noon (phase 0),
// night at midnight (phase 0.5), following a cosine in between.
func Activity(phase, night float64) float64 {
	wave := 0.5 + 0.5*math.Cos(2*math.Pi*phase)
	return night + (1-night)*wave
}

func (s *DayNight) Update(ctx *Context) error {
	cycle := ctx.Config.DayNight.CycleTicks
	if cycle <= 0 {
		ctx.Env.TimeOfDay = 0
		ctx.Env.Activity = 1
		s.lastActivity = 1
		return nil
	}
	phase := float64(ctx.Frame%uint64(cycle)) / float64(cycle)
	ctx.Env.TimeOfDay = phase
	ctx.Env.Activity = Activity(phase, ctx.Config.DayNight.NightActivity)
	s.lastActivity = ctx.Env.Activity
	return nil
}

func (s *DayNight) DebugInfo() map[string]any {
	return map[string]any{"activity": s.lastActivity}
}

// Environment recomputes ecosystem-wide modifiers once per tick.
type Environment struct {
	Base
	lastScale float64
}

// NewEnvironment creates the environment system.
func NewEnvironment() *Environment {
	return &Environment{Base: NewBase(NameEnvironment), lastScale: 1}
}

// DetectionScale shrinks detection range as agent density grows.
func DetectionScale(density, factor, minScale float64) float64 {
	scale := 1 / (1 + density*factor)
	return math.Max(minScale, math.Min(1, scale))
}

func (s *Environment) Update(ctx *Context) error {
	w, h := ctx.Bounds()
	area := w * h
	density := 0.0
	if area > 0 {
		density = float64(ctx.Entities.Count(components.KindAgent)) / area
	}
	cfg := ctx.Config.Environment
	ctx.Env.Density = density
	ctx.Env.DetectionScale = DetectionScale(density, cfg.DensityFactor, cfg.MinDetectionScale)
	s.lastScale = ctx.Env.DetectionScale
	return nil
}

func (s *Environment) DebugInfo() map[string]any {
	return map[string]any{"detection_scale": s.lastScale}
}
