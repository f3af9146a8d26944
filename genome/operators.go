package genome

import (
	"fmt"

	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/rng"
	"github.com/pthm-cable/genesis/vmath"
)

// Strategy selects how two parent values combine during crossover.
type Strategy uint8

const (
	StrategyBlend Strategy = iota // uniform random weight per value
	StrategyPick                  // either parent's value per trait
)

func (s Strategy) String() string {
	switch s {
	case StrategyBlend:
		return config.CrossoverBlend
	case StrategyPick:
		return config.CrossoverPick
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy maps a config name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case config.CrossoverBlend:
		return StrategyBlend, nil
	case config.CrossoverPick:
		return StrategyPick, nil
	default:
		return 0, fmt.Errorf("unknown crossover strategy %q", name)
	}
}

// Crossover produces an offspring genome from a and b.
// Traits are matched by name and take a's bounds. The algorithm id comes from
// one randomly chosen parent. Parameters are crossed only when both parents
// run the same algorithm; otherwise they are copied from that parent.
func Crossover(a, b *Genome, strategy Strategy, r *rng.RNG) *Genome {
	child := &Genome{Traits: crossTraits(a.Traits, b.Traits, strategy, r)}

	donor := a
	if r.IntN(2) == 1 {
		donor = b
	}
	child.Algorithm = donor.Algorithm
	if a.Algorithm == b.Algorithm {
		child.Params = crossTraits(a.Params, b.Params, strategy, r)
	} else {
		child.Params = append([]Trait(nil), donor.Params...)
	}
	return child
}

func crossTraits(a, b []Trait, strategy Strategy, r *rng.RNG) []Trait {
	if len(a) == 0 {
		return nil
	}
	other := make(map[string]float64, len(b))
	for _, t := range b {
		other[t.Name] = t.Value
	}

	out := make([]Trait, len(a))
	for i, t := range a {
		bv, ok := other[t.Name]
		if !ok {
			bv = t.Value
		}
		switch strategy {
		case StrategyPick:
			if r.IntN(2) == 1 {
				t.Value = bv
			}
		default:
			t.Value = vmath.Lerp(t.Value, bv, r.Float64())
		}
		t.clamp()
		out[i] = t
	}
	return out
}

// Mutate perturbs g in place. Each trait and parameter is hit with probability
// rate by gaussian noise of std-dev strength*(max-min), then clamped.
// It returns the number of values perturbed.
func Mutate(g *Genome, rate, strength float64, r *rng.RNG) int {
	n := perturb(g.Traits, rate, strength, r)
	n += perturb(g.Params, rate, strength, r)
	return n
}

func perturb(tr []Trait, rate, strength float64, r *rng.RNG) int {
	n := 0
	for i := range tr {
		if r.Float64() >= rate {
			continue
		}
		tr[i].Value += r.NormFloat64() * strength * (tr[i].Max - tr[i].Min)
		tr[i].clamp()
		n++
	}
	return n
}

// Random draws a trait list uniformly within each spec's bounds.
func (s *Schema) Random(r *rng.RNG) []Trait {
	out := make([]Trait, len(s.specs))
	for i, sp := range s.specs {
		out[i] = Trait{Name: sp.Name, Min: sp.Min, Max: sp.Max, Value: r.Range(sp.Min, sp.Max)}
		out[i].clamp()
	}
	return out
}
