package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/genesis/config"
)

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	for _, end := range []uint64{600, 1200} {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: end, Agents: 10}); err != nil {
			t.Fatalf("WriteTelemetry: %v", err)
		}
	}
	if err := om.WritePerf(PerfStats{PhasePct: map[string]float64{"act": 50}}, 600); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkStableEcosystem, Tick: 600}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("telemetry.csv has %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_start,window_end,agents") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Contains(lines[0], "Traits") {
		t.Errorf("trait slice leaked into CSV header: %q", lines[0])
	}

	for _, name := range []string{"perf.csv", "bookmarks.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("nil WriteTelemetry: %v", err)
	}
	if om.Dir() != "" || om.Path("x") != "" {
		t.Error("nil manager reported a directory")
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path, "run-a")
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()

	if err := h.RecordRun(ctx, 42); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	for i, end := range []uint64{600, 1200, 1800} {
		s := WindowStats{
			WindowStartTick:   end - 600,
			WindowEndTick:     end,
			Agents:            10 + i,
			Deaths:            3,
			DeathsStarvation:  1,
			DominantAlgorithm: "wander",
		}
		if err := h.Record(ctx, s); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	// Replaces the window ending at 1200.
	if err := h.Record(ctx, WindowStats{WindowStartTick: 600, WindowEndTick: 1200, Agents: 99}); err != nil {
		t.Fatalf("Record replace: %v", err)
	}

	got, err := h.Load(ctx, 0, 1800, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Load returned %d rows, want 3", len(got))
	}
	if got[0].WindowEndTick != 600 || got[0].Agents != 10 || got[0].DeathsOther != 2 {
		t.Errorf("first row = %+v", got[0])
	}
	if got[1].Agents != 99 {
		t.Errorf("replaced row agents = %d, want 99", got[1].Agents)
	}

	limited, err := h.Load(ctx, 1000, 2000, 1)
	if err != nil {
		t.Fatalf("Load limited: %v", err)
	}
	if len(limited) != 1 || limited[0].WindowEndTick != 1200 {
		t.Errorf("limited load = %+v", limited)
	}

	other, err := OpenHistory(path, "run-b")
	if err != nil {
		t.Fatalf("OpenHistory second run: %v", err)
	}
	defer other.Close()
	rows, err := other.Load(ctx, 0, 1800, 0)
	if err != nil {
		t.Fatalf("Load other run: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("run-b saw %d rows from run-a", len(rows))
	}
}
