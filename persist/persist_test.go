package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/genesis/components"
	"github.com/pthm-cable/genesis/config"
	"github.com/pthm-cable/genesis/engine"
	"github.com/pthm-cable/genesis/entity"
	"github.com/pthm-cable/genesis/genome"
)

func quietEngine() *engine.Engine {
	return engine.New(engine.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func testConfig() *config.Config {
	cfg := config.Default().Clone()
	cfg.World.Width, cfg.World.Height = 400, 300
	cfg.Population.InitialAgents = 8
	cfg.Population.InitialConsumables = 20
	cfg.Population.InitialResources = 3
	cfg.Population.InitialDecorations = 1
	return cfg
}

func snapshotJSON(t *testing.T, e *engine.Engine) []byte {
	t.Helper()
	data, err := json.Marshal(e.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestWriteReadRestoreRoundTrip(t *testing.T) {
	src := quietEngine()
	if err := src.Reset(21, testConfig()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		src.Step()
	}

	doc, err := Capture(src)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if doc.RunID == "" || doc.Version != Version || doc.Frame != 40 {
		t.Fatalf("document header = %q v%d frame %d", doc.RunID, doc.Version, doc.Frame)
	}

	path := filepath.Join(t.TempDir(), "runs", "run.json.zst")
	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.RunID != doc.RunID || got.Seed != 21 || len(got.Entities) != len(doc.Entities) {
		t.Errorf("read document differs: %q seed %d, %d entities", got.RunID, got.Seed, len(got.Entities))
	}

	dst := quietEngine()
	if err := Restore(dst, got); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !bytes.Equal(snapshotJSON(t, src), snapshotJSON(t, dst)) {
		t.Fatal("restored snapshot differs")
	}
	for i := 0; i < 40; i++ {
		src.Step()
		dst.Step()
	}
	if !bytes.Equal(snapshotJSON(t, src), snapshotJSON(t, dst)) {
		t.Fatal("restored run diverged")
	}
}

func TestHeaderLineIsPlainJSON(t *testing.T) {
	e := quietEngine()
	if err := e.Reset(1, testConfig()); err != nil {
		t.Fatal(err)
	}
	doc, err := Capture(e)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "run.zst")
	if err := Write(path, doc); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}
	line, _, _ := bytes.Cut(raw, []byte("\n"))
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.RunID != doc.RunID || h.Version != Version {
		t.Errorf("header = %+v", h)
	}
}

func agentDoc(t *testing.T, g *genome.Genome) *Document {
	t.Helper()
	e := quietEngine()
	cfg := testConfig()
	cfg.Population.InitialAgents = 0
	if err := e.Reset(5, cfg); err != nil {
		t.Fatal(err)
	}
	doc, err := Capture(e)
	if err != nil {
		t.Fatal(err)
	}
	doc.Entities = append(doc.Entities, Entity{
		ID:     doc.NextID,
		Kind:   components.KindAgent.String(),
		X:      50,
		Y:      50,
		Energy: 30,
		Genome: g,
	})
	doc.NextID++
	return doc
}

func TestRestoreClampsTraits(t *testing.T) {
	doc := agentDoc(t, &genome.Genome{
		Algorithm: "wander",
		Traits:    []genome.Trait{{Name: "speed", Min: -100, Max: 100, Value: -5}},
	})
	id := entity.ID(doc.Entities[len(doc.Entities)-1].ID)

	e := quietEngine()
	if err := Restore(e, doc); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	v, ok := e.Entity(id)
	if !ok {
		t.Fatal("agent not restored")
	}
	tr := v.Genome.Traits
	if len(tr) != e.Schema().Len() {
		t.Fatalf("restored %d traits, want %d", len(tr), e.Schema().Len())
	}
	for _, trait := range tr {
		if trait.Name == "speed" && (trait.Value != 0.5 || trait.Min != 0.5 || trait.Max != 2) {
			t.Errorf("speed = %+v, want 0.5 in [0.5,2]", trait)
		}
	}
}

func TestRestoreSubstitutesUnknownAlgorithm(t *testing.T) {
	doc := agentDoc(t, &genome.Genome{Algorithm: "teleport"})
	id := entity.ID(doc.Entities[len(doc.Entities)-1].ID)

	e := quietEngine()
	if err := Restore(e, doc); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	v, _ := e.Entity(id)
	if v.Genome == nil || v.Genome.Algorithm != e.Config().Genome.DefaultAlgorithm {
		t.Errorf("algorithm = %+v, want default", v.Genome)
	}
	if e.DebugInfo().Substitutions != 1 {
		t.Errorf("substitutions = %d, want 1", e.DebugInfo().Substitutions)
	}
}

func TestRestoreRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"version", func(d *Document) { d.Version = 2 }},
		{"kind", func(d *Document) {
			d.Entities = append(d.Entities, Entity{ID: d.NextID, Kind: "dragon"})
		}},
		{"config", func(d *Document) { d.Config = "world: [not, a, map" }},
		{"duplicate id", func(d *Document) {
			d.Entities = append(d.Entities, d.Entities[0])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := quietEngine()
			if err := e.Reset(1, testConfig()); err != nil {
				t.Fatal(err)
			}
			doc, err := Capture(e)
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(doc)
			if err := Restore(quietEngine(), doc); err == nil {
				t.Error("Restore accepted a bad document")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	e := quietEngine()
	if err := e.Reset(1, testConfig()); err != nil {
		t.Fatal(err)
	}
	doc, err := Capture(e)
	if err != nil {
		t.Fatal(err)
	}
	good, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(good); err != nil {
		t.Fatalf("Validate(captured) = %v", err)
	}

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"version":`},
		{"missing fields", `{"version":1}`},
		{"wrong version", strings.Replace(string(good), `"version":1`, `"version":7`, 1)},
		{"zero id", `{"version":1,"run_id":"r","seed":1,"config":"","frame":0,"next_id":1,
			"entities":[{"id":0,"kind":"agent","x":0,"y":0}],
			"stats":{"population":0,"births":0,"deaths":0,"death_causes":{}}}`},
		{"bad kind", `{"version":1,"run_id":"r","seed":1,"config":"","frame":0,"next_id":2,
			"entities":[{"id":1,"kind":"dragon","x":0,"y":0}],
			"stats":{"population":0,"births":0,"deaths":0,"death_causes":{}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.body))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Read(filepath.Join(dir, "missing")); err == nil {
		t.Error("Read of a missing file succeeded")
	}

	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(plain); err == nil {
		t.Error("Read of an uncompressed file succeeded")
	}

	invalid := filepath.Join(dir, "invalid")
	writeRaw(t, invalid, `{"version":1,"run_id":"r","frame":0}`+"\n"+`{"version":1}`)
	if _, err := Read(invalid); !errors.Is(err, ErrInvalid) {
		t.Errorf("Read(invalid) = %v, want ErrInvalid", err)
	}

	future := filepath.Join(dir, "future")
	writeRaw(t, future, `{"version":9,"run_id":"r","frame":0}`+"\n{}")
	if _, err := Read(future); err == nil {
		t.Error("Read accepted a future version")
	}
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCaptureUsesEngineRunID(t *testing.T) {
	e := engine.New(engine.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunID:  "run-7f3a",
	})
	if err := e.Reset(4, testConfig()); err != nil {
		t.Fatal(err)
	}
	e.Step()

	first, err := Capture(e)
	if err != nil {
		t.Fatal(err)
	}
	e.Step()
	second, err := Capture(e)
	if err != nil {
		t.Fatal(err)
	}
	if first.RunID != "run-7f3a" || second.RunID != "run-7f3a" {
		t.Errorf("run ids = %q, %q, want run-7f3a", first.RunID, second.RunID)
	}

	// Restoring another run's document keeps this engine's identity.
	dst := engine.New(engine.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunID:  "run-b210",
	})
	if err := Restore(dst, first); err != nil {
		t.Fatal(err)
	}
	resaved, err := Capture(dst)
	if err != nil {
		t.Fatal(err)
	}
	if resaved.RunID != "run-b210" {
		t.Errorf("resaved run id = %q, want run-b210", resaved.RunID)
	}
}
