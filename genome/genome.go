// Package genome implements bounded heritable traits and the operators that
// produce offspring genomes.
//
// Every value held by a Genome lies within its declared bounds. Construction,
// crossover and mutation clamp out-of-range values; nothing is ever rejected.
package genome

import (
	"math"

	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/vmath"
)

// Spec declares one bounded scalar.
type Spec struct {
	Name    string  `json:"name"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Clamp restricts v to the spec bounds. NaN maps to the default.
func (s Spec) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		v = s.Default
	}
	return vmath.Clamp(v, s.Min, s.Max)
}

// Trait is a named bounded value.
type Trait struct {
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Value float64 `json:"value"`
}

func (t *Trait) clamp() {
	if math.IsNaN(t.Value) {
		t.Value = t.Min
	}
	t.Value = vmath.Clamp(t.Value, t.Min, t.Max)
}

// Genome is the heritable record of an agent: ordered traits plus one behavior
// algorithm id and that algorithm's parameters.
type Genome struct {
	Traits    []Trait `json:"traits"`
	Algorithm string  `json:"algorithm"`
	Params    []Trait `json:"params,omitempty"`
}

// Get returns the value of the named trait.
func (g *Genome) Get(name string) (float64, bool) {
	for i := range g.Traits {
		if g.Traits[i].Name == name {
			return g.Traits[i].Value, true
		}
	}
	return 0, false
}

// Value returns the named trait, or fallback when the genome lacks it.
func (g *Genome) Value(name string, fallback float64) float64 {
	if g == nil {
		return fallback
	}
	if v, ok := g.Get(name); ok {
		return v
	}
	return fallback
}

// Param returns the named algorithm parameter, or fallback.
func (g *Genome) Param(name string, fallback float64) float64 {
	if g == nil {
		return fallback
	}
	for i := range g.Params {
		if g.Params[i].Name == name {
			return g.Params[i].Value
		}
	}
	return fallback
}

// Set assigns the named trait, clamped. It reports whether the trait exists.
func (g *Genome) Set(name string, v float64) bool {
	for i := range g.Traits {
		if g.Traits[i].Name == name {
			g.Traits[i].Value = v
			g.Traits[i].clamp()
			return true
		}
	}
	return false
}

// Clamp brings every trait and parameter back within bounds.
func (g *Genome) Clamp() {
	for i := range g.Traits {
		g.Traits[i].clamp()
	}
	for i := range g.Params {
		g.Params[i].clamp()
	}
}

// Clone returns a deep copy.
func (g *Genome) Clone() *Genome {
	if g == nil {
		return nil
	}
	return &Genome{
		Traits:    append([]Trait(nil), g.Traits...),
		Algorithm: g.Algorithm,
		Params:    append([]Trait(nil), g.Params...),
	}
}

// Schema is an ordered set of specs used to build trait lists.
type Schema struct {
	specs []Spec
	index map[string]int
}

// NewSchema builds a schema. Later specs with a duplicate name are ignored.
// Defaults outside the bounds are clamped.
func NewSchema(specs []Spec) *Schema {
	s := &Schema{index: make(map[string]int, len(specs))}
	for _, sp := range specs {
		if _, dup := s.index[sp.Name]; dup {
			continue
		}
		if sp.Min > sp.Max {
			sp.Min, sp.Max = sp.Max, sp.Min
		}
		sp.Default = vmath.Clamp(sp.Default, sp.Min, sp.Max)
		s.index[sp.Name] = len(s.specs)
		s.specs = append(s.specs, sp)
	}
	return s
}

// SchemaFromConfig builds the agent trait schema from configuration.
func SchemaFromConfig(traits []config.TraitConfig) *Schema {
	specs := make([]Spec, len(traits))
	for i, t := range traits {
		specs[i] = Spec{Name: t.Name, Min: t.Min, Max: t.Max, Default: t.Default}
	}
	return NewSchema(specs)
}

// Specs returns the schema entries in order.
func (s *Schema) Specs() []Spec { return s.specs }

// Len returns the number of specs.
func (s *Schema) Len() int { return len(s.specs) }

// Spec returns the named spec.
func (s *Schema) Spec(name string) (Spec, bool) {
	i, ok := s.index[name]
	if !ok {
		return Spec{}, false
	}
	return s.specs[i], true
}

// Traits builds a trait list in schema order. Values are clamped, missing
// names take the default, and names outside the schema are dropped.
func (s *Schema) Traits(values map[string]float64) []Trait {
	out := make([]Trait, len(s.specs))
	for i, sp := range s.specs {
		v, ok := values[sp.Name]
		if !ok {
			v = sp.Default
		}
		out[i] = Trait{Name: sp.Name, Min: sp.Min, Max: sp.Max, Value: sp.Clamp(v)}
	}
	return out
}

// New builds a genome holding only traits; the caller assigns the algorithm.
func (s *Schema) New(values map[string]float64) *Genome {
	return &Genome{Traits: s.Traits(values)}
}

// Conform rebuilds tr against the schema: bounds come from the schema, values
// are clamped, missing entries take defaults and unknown entries are dropped.
func (s *Schema) Conform(tr []Trait) []Trait {
	values := make(map[string]float64, len(tr))
	for _, t := range tr {
		values[t.Name] = t.Value
	}
	return s.Traits(values)
}

// Values returns the trait values of tr keyed by name.
func Values(tr []Trait) map[string]float64 {
	out := make(map[string]float64, len(tr))
	for _, t := range tr {
		out[t.Name] = t.Value
	}
	return out
}
