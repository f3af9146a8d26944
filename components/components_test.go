package components

import "testing"

func TestKindMask(t *testing.T) {
	m := Mask(KindAgent, KindConsumable)
	tests := []struct {
		k    Kind
		want bool
	}{
		{KindAgent, true},
		{KindResource, false},
		{KindConsumable, true},
		{KindDecoration, false},
	}
	for _, tc := range tests {
		if got := m.Has(tc.k); got != tc.want {
			t.Errorf("Mask.Has(%v) = %v, want %v", tc.k, got, tc.want)
		}
	}
	for _, k := range Kinds() {
		if !MaskAll.Has(k) {
			t.Errorf("MaskAll missing %v", k)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("dragon"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestMarkDyingFirstCauseWins(t *testing.T) {
	var v Vitals
	v.MarkDying("starvation")
	v.MarkDying("old_age")
	if !v.Dying || v.Cause != "starvation" {
		t.Errorf("vitals = %+v, want dying from starvation", v)
	}
}
