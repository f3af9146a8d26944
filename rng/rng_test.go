package rng

import "testing"

func TestSameSeedSameStream(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 1000; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestDifferentSeeds(t *testing.T) {
	a, b := New(1), New(2)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	if same > 1 {
		t.Errorf("seeds 1 and 2 produced %d identical draws", same)
	}
}

func TestStateRestore(t *testing.T) {
	a := New(7)
	for i := 0; i < 10; i++ {
		a.Float64()
	}
	state, err := a.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	want := []float64{a.Float64(), a.Float64(), a.Float64()}

	b := New(999)
	if err := b.Restore(state); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	for i, w := range want {
		if got := b.Float64(); got != w {
			t.Errorf("draw %d after restore = %v, want %v", i, got, w)
		}
	}
}

func TestRestoreGarbage(t *testing.T) {
	if err := New(1).Restore([]byte("nope")); err == nil {
		t.Error("expected error for invalid state")
	}
}

func TestChanceEdges(t *testing.T) {
	r := New(3)
	for i := 0; i < 100; i++ {
		if r.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !r.Chance(1) {
			t.Fatal("Chance(1) returned false")
		}
	}
}

func TestRange(t *testing.T) {
	r := New(5)
	for i := 0; i < 1000; i++ {
		v := r.Range(-2, 3)
		if v < -2 || v >= 3 {
			t.Fatalf("Range(-2,3) = %v", v)
		}
	}
}
