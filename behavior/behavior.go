// Package behavior defines steering algorithms and the registry that maps
// genome algorithm ids to them.
package behavior

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/spatial"
)

// Self is the acting agent's own state.
type Self struct {
	ID       entity.ID
	Frame    uint64
	Position mgl64.Vec2
	Velocity mgl64.Vec2
	Heading  float64
	Energy   float64
	Capacity float64
	Vision   float64 // effective detection radius this tick
}

// Observation is what the agent perceives from the spatial index.
// Slices are ordered by ascending entity ID.
type Observation struct {
	Food     []spatial.Neighbor // consumables and resources
	Agents   []spatial.Neighbor // other agents
	Activity float64            // day/night modifier in [0,1]
	Width    float64
	Height   float64
}

// Action is the algorithm's proposal. Desired is a steering direction whose
// length is the throttle; lengths above 1 are limited by the caller.
type Action struct {
	Desired mgl64.Vec2
}

// Algorithm is a named, parametrized steering function.
// Act must be a pure function of its arguments.
type Algorithm interface {
	ID() string
	Params() []genome.Spec
	Act(self Self, obs Observation, params []genome.Trait) Action
}

// param returns the named value from params, or the spec default.
func param(params []genome.Trait, specs []genome.Spec, name string) float64 {
	for _, p := range params {
		if p.Name == name {
			return p.Value
		}
	}
	for _, s := range specs {
		if s.Name == name {
			return s.Default
		}
	}
	return 0
}

// wallAvoid returns a push away from world edges within margin.
func wallAvoid(pos mgl64.Vec2, width, height, margin float64) mgl64.Vec2 {
	var push mgl64.Vec2
	if margin <= 0 {
		return push
	}
	if pos[0] < margin {
		push[0] += (margin - pos[0]) / margin
	} else if pos[0] > width-margin {
		push[0] -= (pos[0] - (width - margin)) / margin
	}
	if pos[1] < margin {
		push[1] += (margin - pos[1]) / margin
	} else if pos[1] > height-margin {
		push[1] -= (pos[1] - (height - margin)) / margin
	}
	return push
}

func neighborVec(n spatial.Neighbor) mgl64.Vec2 {
	return mgl64.Vec2{n.DX, n.DY}
}

// nearestFood picks the closest food entry, weighting resources by bias
// (bias 1 treats them equally, 0 ignores them).
func nearestFood(food []spatial.Neighbor, resourceBias float64) (spatial.Neighbor, bool) {
	var best spatial.Neighbor
	bestScore := 0.0
	found := false
	for _, f := range food {
		score := f.DistSq
		if f.Kind == components.KindResource {
			if resourceBias <= 0 {
				continue
			}
			score /= resourceBias
		}
		if !found || score < bestScore {
			best, bestScore, found = f, score, true
		}
	}
	return best, found
}
