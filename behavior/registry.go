package behavior

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/pthm-cable/genesis/genome"
)

// UnknownAlgorithmError reports a genome algorithm id missing from the
// registry. Substitute names the algorithm used instead.
type UnknownAlgorithmError struct {
	ID         string
	Substitute string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("behavior: unknown algorithm %q, using %q", e.ID, e.Substitute)
}

// Registry maps stable algorithm ids to algorithms.
type Registry struct {
	algs          map[string]Algorithm
	schemas       map[string]*genome.Schema
	defaultID     string
	substitutions int
	logger        *slog.Logger
}

// NewRegistry creates an empty registry whose fallback is defaultID.
func NewRegistry(defaultID string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		algs:      make(map[string]Algorithm),
		schemas:   make(map[string]*genome.Schema),
		defaultID: defaultID,
		logger:    logger,
	}
}

// Register adds a. Registering an id twice is an error.
func (r *Registry) Register(a Algorithm) error {
	id := a.ID()
	if _, dup := r.algs[id]; dup {
		return fmt.Errorf("behavior: algorithm %q already registered", id)
	}
	r.algs[id] = a
	r.schemas[id] = genome.NewSchema(a.Params())
	return nil
}

// Lookup returns the algorithm registered under id.
func (r *Registry) Lookup(id string) (Algorithm, bool) {
	a, ok := r.algs[id]
	return a, ok
}

// Resolve returns the algorithm for id. When id is unknown it returns the
// default algorithm together with an *UnknownAlgorithmError.
func (r *Registry) Resolve(id string) (Algorithm, error) {
	if a, ok := r.algs[id]; ok {
		return a, nil
	}
	r.substitutions++
	err := &UnknownAlgorithmError{ID: id, Substitute: r.defaultID}
	r.logger.Warn("unknown behavior algorithm",
		"algorithm", id,
		"substitute", r.defaultID,
	)
	return r.algs[r.defaultID], err
}

// Substitutions returns how many times Resolve fell back to the default.
func (r *Registry) Substitutions() int { return r.substitutions }

// Default returns the fallback algorithm id.
func (r *Registry) Default() string { return r.defaultID }

// IDs returns the registered ids sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.algs))
	for id := range r.algs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParamSchema returns the parameter schema of the algorithm id.
func (r *Registry) ParamSchema(id string) (*genome.Schema, bool) {
	s, ok := r.schemas[id]
	return s, ok
}

// Adopt makes g consistent with the registry: an unknown algorithm is
// replaced by the default and params are conformed to the algorithm's
// declared bounds. The returned error is the substitution, if any.
func (r *Registry) Adopt(g *genome.Genome) error {
	_, err := r.Resolve(g.Algorithm)
	if err != nil {
		g.Algorithm = r.defaultID
		g.Params = nil
	}
	if s, ok := r.schemas[g.Algorithm]; ok {
		g.Params = s.Conform(g.Params)
	}
	return err
}

// Sanity check that every exported algorithm satisfies the interface.
var (
	_ Algorithm = (*Wander)(nil)
	_ Algorithm = (*Forager)(nil)
	_ Algorithm = (*Cautious)(nil)
	_ Algorithm = (*Schooling)(nil)
	_ Algorithm = (*Brain)(nil)
)
