package behavior

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/neural"
	"github.com/pthm-cable/genesis/spatial"
	"github.com/pthm-cable/genesis/vmath"
)

// IDBrain is the id of the evolved-network algorithm.
const IDBrain = "brain"

// maxTurn is the largest heading change a brain can ask for in one tick.
const maxTurn = math.Pi / 2

// Brain steers with a feedforward network whose weights are the genome's
// algorithm parameters, so the policy itself evolves.
type Brain struct{}

func (b *Brain) ID() string            { return IDBrain }
func (b *Brain) Params() []genome.Spec { return neural.Specs() }

func (b *Brain) Act(self Self, obs Observation, params []genome.Trait) Action {
	var nn neural.FFNN
	nn.Load(params)

	in := brainInputs(self, obs)
	turn, thrust := nn.Forward(&in)

	dir := vmath.Heading(self.Heading + turn*maxTurn).Mul(thrust)
	return Action{Desired: dir.Add(wallAvoid(self.Position, obs.Width, obs.Height, wallMargin))}
}

// brainInputs encodes the observation in the agent's frame. Directions are
// rotated so +x is the current heading, and scaled by closeness in [0,1].
func brainInputs(self Self, obs Observation) [neural.NumInputs]float64 {
	var in [neural.NumInputs]float64
	if f, ok := nearestFood(obs.Food, 1); ok {
		in[0], in[1] = egocentric(self, f)
	}
	if a, ok := nearest(obs.Agents); ok {
		in[2], in[3] = egocentric(self, a)
	}
	if self.Capacity > 0 {
		in[4] = vmath.Clamp(self.Energy/self.Capacity, 0, 1)
	}
	in[5] = obs.Activity
	in[6] = math.Min(self.Velocity.Len(), 1)
	return in
}

func egocentric(self Self, n spatial.Neighbor) (float64, float64) {
	d := mgl64.Vec2{n.DX, n.DY}
	dist := d.Len()
	closeness := 1.0
	if self.Vision > 0 {
		closeness = vmath.Clamp(1-dist/self.Vision, 0, 1)
	}
	u := vmath.Normalize(d)
	s, c := math.Sincos(-self.Heading)
	return (u[0]*c - u[1]*s) * closeness, (u[0]*s + u[1]*c) * closeness
}

func nearest(ns []spatial.Neighbor) (spatial.Neighbor, bool) {
	var best spatial.Neighbor
	found := false
	for _, n := range ns {
		if !found || n.DistSq < best.DistSq {
			best, found = n, true
		}
	}
	return best, found
}
