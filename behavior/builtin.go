package behavior

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/vmath"
)

// Built-in algorithm ids.
const (
	IDWander    = "wander"
	IDForager   = "forager"
	IDCautious  = "cautious"
	IDSchooling = "schooling"
)

// wallMargin is the distance from an edge at which agents start turning back.
const wallMargin = 24

// RegisterBuiltins registers the built-in algorithms. seed drives the wander
// noise field; scale is its temporal frequency and crowd the separation
// radius used by cautious and schooling agents.
func RegisterBuiltins(r *Registry, seed int64, scale, crowd float64) error {
	w := NewWander(seed, scale)
	for _, a := range []Algorithm{
		w,
		&Forager{wander: w},
		&Cautious{wander: w},
		&Schooling{wander: w, crowd: crowd},
		&Brain{},
	} {
		if err := r.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// Wander drifts along a heading drawn from a smooth noise field.
type Wander struct {
	noise opensimplex.Noise
	scale float64
}

// NewWander creates a wander algorithm with its own noise field.
func NewWander(seed int64, scale float64) *Wander {
	if scale <= 0 {
		scale = 0.01
	}
	return &Wander{noise: opensimplex.New(seed), scale: scale}
}

var wanderParams = []genome.Spec{
	{Name: "turn", Min: 0.25, Max: 3, Default: 1},
	{Name: "throttle", Min: 0.1, Max: 1, Default: 0.6},
}

func (w *Wander) ID() string            { return IDWander }
func (w *Wander) Params() []genome.Spec { return wanderParams }

func (w *Wander) Act(self Self, obs Observation, params []genome.Trait) Action {
	turn := param(params, wanderParams, "turn")
	throttle := param(params, wanderParams, "throttle")
	return Action{Desired: w.drift(self, obs, turn, throttle)}
}

// drift is the shared wandering heading, pushed back from walls.
func (w *Wander) drift(self Self, obs Observation, turn, throttle float64) mgl64.Vec2 {
	// The heading is a smooth function of time, distinct per agent.
	n := w.noise.Eval2(float64(self.ID)*7.31, float64(self.Frame)*w.scale)
	dir := vmath.Heading(n * 2 * math.Pi * turn).Mul(throttle)
	return dir.Add(wallAvoid(self.Position, obs.Width, obs.Height, wallMargin))
}

// Forager heads for the nearest food it can see and wanders otherwise.
type Forager struct {
	wander *Wander
}

var foragerParams = []genome.Spec{
	{Name: "greed", Min: 0.2, Max: 1, Default: 0.8},
	{Name: "resource_bias", Min: 0, Max: 1, Default: 0.5},
	{Name: "satiety", Min: 0.3, Max: 1, Default: 0.9},
}

func (f *Forager) ID() string            { return IDForager }
func (f *Forager) Params() []genome.Spec { return foragerParams }

func (f *Forager) Act(self Self, obs Observation, params []genome.Trait) Action {
	greed := param(params, foragerParams, "greed")
	bias := param(params, foragerParams, "resource_bias")
	satiety := param(params, foragerParams, "satiety")

	full := self.Capacity > 0 && self.Energy >= satiety*self.Capacity
	if !full {
		if target, ok := nearestFood(obs.Food, bias); ok {
			return Action{Desired: vmath.Normalize(neighborVec(target)).Mul(greed)}
		}
	}
	return Action{Desired: f.wander.drift(self, obs, 1, 0.5)}
}

// Cautious forages but flees from nearby agents inside its fear radius.
type Cautious struct {
	wander *Wander
}

var cautiousParams = []genome.Spec{
	{Name: "fear", Min: 0, Max: 2, Default: 1},
	{Name: "fear_radius", Min: 0.1, Max: 1, Default: 0.4},
	{Name: "greed", Min: 0.2, Max: 1, Default: 0.6},
}

func (c *Cautious) ID() string            { return IDCautious }
func (c *Cautious) Params() []genome.Spec { return cautiousParams }

func (c *Cautious) Act(self Self, obs Observation, params []genome.Trait) Action {
	fear := param(params, cautiousParams, "fear")
	radius := param(params, cautiousParams, "fear_radius") * self.Vision
	greed := param(params, cautiousParams, "greed")

	var flee mgl64.Vec2
	radiusSq := radius * radius
	for _, a := range obs.Agents {
		if a.DistSq > radiusSq || a.DistSq == 0 {
			continue
		}
		// Closer threats push harder.
		w := 1 - math.Sqrt(a.DistSq)/radius
		flee = flee.Sub(vmath.Normalize(neighborVec(a)).Mul(w))
	}

	var seek mgl64.Vec2
	if target, ok := nearestFood(obs.Food, 1); ok {
		seek = vmath.Normalize(neighborVec(target)).Mul(greed)
	} else {
		seek = c.wander.drift(self, obs, 1, 0.4)
	}
	return Action{Desired: seek.Add(flee.Mul(fear))}
}

// Schooling follows boids rules toward other agents and drifts toward food.
type Schooling struct {
	wander *Wander
	crowd  float64
}

var schoolingParams = []genome.Spec{
	{Name: "cohesion", Min: 0, Max: 2, Default: 0.6},
	{Name: "alignment", Min: 0, Max: 2, Default: 0.8},
	{Name: "separation", Min: 0, Max: 2, Default: 1.2},
	{Name: "food_bias", Min: 0, Max: 1, Default: 0.5},
}

func (s *Schooling) ID() string            { return IDSchooling }
func (s *Schooling) Params() []genome.Spec { return schoolingParams }

func (s *Schooling) Act(self Self, obs Observation, params []genome.Trait) Action {
	cohesion := param(params, schoolingParams, "cohesion")
	alignment := param(params, schoolingParams, "alignment")
	separation := param(params, schoolingParams, "separation")
	foodBias := param(params, schoolingParams, "food_bias")

	if len(obs.Agents) == 0 {
		if target, ok := nearestFood(obs.Food, 1); ok {
			return Action{Desired: vmath.Normalize(neighborVec(target)).Mul(foodBias + 0.2)}
		}
		return Action{Desired: s.wander.drift(self, obs, 1, 0.5)}
	}

	var center, push mgl64.Vec2
	crowdSq := s.crowd * s.crowd
	for _, a := range obs.Agents {
		d := neighborVec(a)
		center = center.Add(d)
		if a.DistSq > 0 && a.DistSq < crowdSq {
			push = push.Sub(vmath.Normalize(d).Mul(1 - math.Sqrt(a.DistSq)/s.crowd))
		}
	}
	center = center.Mul(1 / float64(len(obs.Agents)))

	// Neighbor velocities are not observed, so alignment holds the own heading.
	heading := vmath.Heading(self.Heading)

	desired := vmath.Normalize(center).Mul(cohesion).
		Add(heading.Mul(alignment)).
		Add(push.Mul(separation))
	if target, ok := nearestFood(obs.Food, 1); ok {
		desired = desired.Add(vmath.Normalize(neighborVec(target)).Mul(foodBias * 2))
	}
	desired = vmath.Normalize(desired).Mul(0.7)
	return Action{Desired: desired.Add(wallAvoid(self.Position, obs.Width, obs.Height, wallMargin))}
}

// kindFood is the mask of kinds an agent may eat.
var kindFood = components.Mask(components.KindConsumable, components.KindResource)

// FoodMask returns the mask of edible kinds.
func FoodMask() components.KindMask { return kindFood }
