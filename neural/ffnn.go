// Package neural provides a small feedforward network whose weights are
// carried as bounded genome parameters.
package neural

import (
	"fmt"

	"github.com/pthm-cable/genesis/genome"
)

// Network dimensions.
const (
	NumInputs  = 7 // food dx, food dy, agent dx, agent dy, energy, activity, speed
	NumHidden  = 5
	NumOutputs = 2 // turn, thrust
)

// WeightBound is the absolute bound on every weight and bias.
const WeightBound = 3.0

// FFNN is a two-layer feedforward network.
type FFNN struct {
	W1 [NumHidden][NumInputs]float64  // input -> hidden weights
	B1 [NumHidden]float64             // hidden biases
	W2 [NumOutputs][NumHidden]float64 // hidden -> output weights
	B2 [NumOutputs]float64            // output biases
}

// NumParams is the number of scalars in a network.
const NumParams = NumHidden*NumInputs + NumHidden + NumOutputs*NumHidden + NumOutputs

var specs = buildSpecs()

// buildSpecs names every weight in the flattening order used by Load.
func buildSpecs() []genome.Spec {
	out := make([]genome.Spec, 0, NumParams)
	add := func(name string) {
		out = append(out, genome.Spec{Name: name, Min: -WeightBound, Max: WeightBound})
	}
	for i := 0; i < NumHidden; i++ {
		for j := 0; j < NumInputs; j++ {
			add(fmt.Sprintf("w1_%d_%d", i, j))
		}
		add(fmt.Sprintf("b1_%d", i))
	}
	for i := 0; i < NumOutputs; i++ {
		for j := 0; j < NumHidden; j++ {
			add(fmt.Sprintf("w2_%d_%d", i, j))
		}
		add(fmt.Sprintf("b2_%d", i))
	}
	return out
}

// Specs returns the parameter specs of a network, in load order.
func Specs() []genome.Spec { return specs }

// Load fills nn from params. params must be conformed to Specs, so
// position i holds spec i; a short list leaves the tail at zero.
func (nn *FFNN) Load(params []genome.Trait) {
	*nn = FFNN{}
	k := 0
	next := func() float64 {
		if k >= len(params) {
			return 0
		}
		v := params[k].Value
		k++
		return v
	}
	for i := range nn.W1 {
		for j := range nn.W1[i] {
			nn.W1[i][j] = next()
		}
		nn.B1[i] = next()
	}
	for i := range nn.W2 {
		for j := range nn.W2[i] {
			nn.W2[i][j] = next()
		}
		nn.B2[i] = next()
	}
}

// Forward computes the network output.
// Returns: turn [-1,1], thrust [0,1]
func (nn *FFNN) Forward(inputs *[NumInputs]float64) (turn, thrust float64) {
	var hidden [NumHidden]float64
	for i := 0; i < NumHidden; i++ {
		sum := nn.B1[i]
		for j := 0; j < NumInputs; j++ {
			sum += nn.W1[i][j] * inputs[j]
		}
		hidden[i] = tanh(sum)
	}

	var outputs [NumOutputs]float64
	for i := 0; i < NumOutputs; i++ {
		sum := nn.B2[i]
		for j := 0; j < NumHidden; j++ {
			sum += nn.W2[i][j] * hidden[j]
		}
		outputs[i] = sum
	}

	turn = tanh(outputs[0])
	thrust = saturate01(outputs[1]*0.5 + 0.5)
	return turn, thrust
}

// saturate01 clamps x to [0, 1].
func saturate01(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x
}

// tanh is a rational approximation that reaches ±1 at |x|=3.
func tanh(x float64) float64 {
	if x >= 3 {
		return 1
	}
	if x <= -3 {
		return -1
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}
