// Package persist saves and restores complete runs.
//
// A document is a zstd stream holding one JSON header line followed by the
// JSON body. The body is validated against an embedded JSON schema before it
// is decoded, and restored entities pass through the engine's privileged path,
// so genomes are clamped and unknown algorithms substituted on load.
package persist

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/engine"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
	"github.com/pthm-cable/genesis/telemetry"
)

// Version is the document format written by this package.
const Version = 1

//go:embed schema.json
var schemaJSON string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("schema.json", schemaJSON)
})

// Header is the uncompressed-JSON first line of a document.
type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Frame   uint64 `json:"frame"`
}

// Document is a complete resumable run.
type Document struct {
	Version  int                      `json:"version"`
	RunID    string                   `json:"run_id"`
	Seed     int64                    `json:"seed"`
	Config   string                   `json:"config"` // YAML
	Frame    uint64                   `json:"frame"`
	NextID   uint64                   `json:"next_id"`
	RNG      []byte                   `json:"rng,omitempty"`
	Entities []Entity                 `json:"entities"`
	Stats    telemetry.EcosystemStats `json:"stats"`
}

// Entity is the stored form of one entity.
type Entity struct {
	ID       uint64  `json:"id"`
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx,omitempty"`
	VY       float64 `json:"vy,omitempty"`
	Energy   float64 `json:"energy,omitempty"`
	Capacity float64 `json:"capacity,omitempty"`

	Age      int     `json:"age,omitempty"`
	Cooldown int     `json:"cooldown,omitempty"`
	Heading  float64 `json:"heading,omitempty"`
	Dying    bool    `json:"dying,omitempty"`
	Cause    string  `json:"cause,omitempty"`

	Genome     *genome.Genome `json:"genome,omitempty"`
	Generation int            `json:"generation,omitempty"`
	ParentA    uint64         `json:"parent_a,omitempty"`
	ParentB    uint64         `json:"parent_b,omitempty"`
}

func entityOf(p entity.Prototype) Entity {
	return Entity{
		ID:         uint64(p.ID),
		Kind:       p.Kind.String(),
		X:          p.Position.X,
		Y:          p.Position.Y,
		VX:         p.Velocity.X,
		VY:         p.Velocity.Y,
		Energy:     p.Energy.Value,
		Capacity:   p.Energy.Capacity,
		Age:        p.Vitals.Age,
		Cooldown:   p.Vitals.Cooldown,
		Heading:    p.Vitals.Heading,
		Dying:      p.Vitals.Dying,
		Cause:      p.Vitals.Cause,
		Genome:     p.Genome,
		Generation: p.Generation,
		ParentA:    uint64(p.ParentA),
		ParentB:    uint64(p.ParentB),
	}
}

func (en Entity) prototype() (entity.Prototype, error) {
	kind, err := components.ParseKind(en.Kind)
	if err != nil {
		return entity.Prototype{}, fmt.Errorf("entity %d: %w", en.ID, err)
	}
	p := entity.Prototype{
		ID:         entity.ID(en.ID),
		Kind:       kind,
		Position:   components.Position{X: en.X, Y: en.Y},
		Velocity:   components.Velocity{X: en.VX, Y: en.VY},
		Energy:     components.Energy{Value: en.Energy, Capacity: en.Capacity},
		Vitals:     components.Vitals{Age: en.Age, Cooldown: en.Cooldown, Heading: en.Heading, Dying: en.Dying, Cause: en.Cause},
		Generation: en.Generation,
		ParentA:    entity.ID(en.ParentA),
		ParentB:    entity.ID(en.ParentB),
	}
	if en.Genome != nil {
		p.Genome = en.Genome.Clone()
	}
	return p, nil
}

// Capture builds a document from an engine between ticks.
func Capture(e *engine.Engine) (*Document, error) {
	st, err := e.State()
	if err != nil {
		return nil, fmt.Errorf("persist capture: %w", err)
	}
	cfgYAML, err := yaml.Marshal(e.Config())
	if err != nil {
		return nil, fmt.Errorf("persist capture: marshaling config: %w", err)
	}
	runID := e.RunID()
	if runID == "" {
		runID = uuid.NewString()
	}
	doc := &Document{
		Version:  Version,
		RunID:    runID,
		Seed:     e.Seed(),
		Config:   string(cfgYAML),
		Frame:    st.Frame,
		NextID:   uint64(st.NextID),
		RNG:      st.RNG,
		Entities: make([]Entity, 0, len(st.Entities)),
		Stats:    st.Stats,
	}
	for _, p := range st.Entities {
		doc.Entities = append(doc.Entities, entityOf(p))
	}
	return doc, nil
}

// ParseConfig returns the document's configuration layered over the
// embedded defaults.
func (d *Document) ParseConfig() (*config.Config, error) {
	cfg := config.Default()
	if err := config.Overlay(cfg, []byte(d.Config)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// State converts the document into engine state. Traits are clamped against
// the document's own schema.
func (d *Document) State() (*config.Config, engine.State, error) {
	cfg, err := d.ParseConfig()
	if err != nil {
		return nil, engine.State{}, fmt.Errorf("persist: %w", err)
	}
	schema := genome.SchemaFromConfig(cfg.Genome.Traits)
	st := engine.State{
		Frame:    d.Frame,
		NextID:   entity.ID(d.NextID),
		RNG:      d.RNG,
		Entities: make([]entity.Prototype, 0, len(d.Entities)),
		Stats:    d.Stats,
	}
	for _, en := range d.Entities {
		p, err := en.prototype()
		if err != nil {
			return nil, engine.State{}, fmt.Errorf("persist: %w", err)
		}
		if p.Genome != nil {
			p.Genome.Traits = schema.Conform(p.Genome.Traits)
		}
		st.Entities = append(st.Entities, p)
	}
	return cfg, st, nil
}

// Restore resets e and loads the document into it.
func Restore(e *engine.Engine, d *Document) error {
	if d.Version != Version {
		return fmt.Errorf("persist: unsupported document version %d", d.Version)
	}
	cfg, st, err := d.State()
	if err != nil {
		return err
	}
	if err := e.Load(d.Seed, cfg, st); err != nil {
		return fmt.Errorf("persist restore: %w", err)
	}
	return nil
}

// Write stores d at path, creating parent directories as needed.
func Write(path string, d *Document) (err error) {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("persist write: %w", err)
	}
	hb, err := json.Marshal(Header{Version: d.Version, RunID: d.RunID, Frame: d.Frame})
	if err != nil {
		return fmt.Errorf("persist write: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("persist write: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("persist write: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("persist write: %w", cerr)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("persist write: %w", err)
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return fmt.Errorf("persist write: %w", err)
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return fmt.Errorf("persist write: %w", err)
	}
	if _, err := bw.Write(body); err != nil {
		enc.Close()
		return fmt.Errorf("persist write: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("persist write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("persist write: %w", err)
	}
	return nil
}

// ErrInvalid wraps schema validation failures from Read.
var ErrInvalid = errors.New("invalid document")

// Read loads and validates the document at path.
func Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persist read: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("persist read: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("persist read: header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("persist read: header: %w", err)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("persist read: unsupported document version %d", h.Version)
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("persist read: %w", err)
	}
	if err := Validate(body); err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("persist read: %w", err)
	}
	return &d, nil
}

// Validate checks a JSON document body against the embedded schema.
func Validate(body []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("persist: compiling schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
