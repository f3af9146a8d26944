package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few ticks
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("frame_start")
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase("act")
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	// Verify we got timing data
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}

	// Verify phases are tracked
	if len(stats.PhaseAvg) == 0 {
		t.Error("expected phase averages to be populated")
	}

	if _, ok := stats.PhaseAvg["frame_start"]; !ok {
		t.Error("expected frame_start phase to be tracked")
	}

	if _, ok := stats.PhaseAvg["act"]; !ok {
		t.Error("expected act phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	// Fill window completely
	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase("frame_start")
		pc.EndTick()
	}

	stats := pc.Stats()

	// Should have data
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}

	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate with uneven phase durations
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]

	// Slow phase should take more % than fast
	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}

	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}

	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollector_LastTick(t *testing.T) {
	pc := NewPerfCollector(4)
	if pc.LastTick() != 0 {
		t.Fatal("expected zero LastTick before any tick")
	}
	pc.StartTick()
	pc.StartPhase("act")
	time.Sleep(time.Millisecond)
	pc.EndTick()
	if pc.LastTick() < time.Millisecond {
		t.Errorf("LastTick = %v, want >= 1ms", pc.LastTick())
	}
}

func TestPerfStats_ToCSVGroupsPhases(t *testing.T) {
	s := PerfStats{
		PhasePct: map[string]float64{
			"act":         40,
			"commit_a":    5,
			"commit_b":    5,
			"frame_start": 2,
			"frame_end":   8,
			"time":        1,
		},
	}
	row := s.ToCSV(600)
	if row.WindowEnd != 600 {
		t.Errorf("WindowEnd = %d, want 600", row.WindowEnd)
	}
	if row.ActPct != 40 {
		t.Errorf("ActPct = %v, want 40", row.ActPct)
	}
	if row.CommitPct != 10 {
		t.Errorf("CommitPct = %v, want 10", row.CommitPct)
	}
	if row.FramePct != 10 {
		t.Errorf("FramePct = %v, want 10", row.FramePct)
	}
	if row.OtherPct != 1 {
		t.Errorf("OtherPct = %v, want 1", row.OtherPct)
	}
}
