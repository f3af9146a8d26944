package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/genesis/config"
)

func TestParamVectorDefaultsFromConfig(t *testing.T) {
	cfg := config.Default()
	pv := NewParamVector(cfg)
	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if spec.Default != got[i] {
			t.Errorf("%s default = %v, config has %v", spec.Name, spec.Default, got[i])
		}
		if spec.Min >= spec.Max {
			t.Errorf("%s has empty range [%v,%v]", spec.Name, spec.Min, spec.Max)
		}
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector(config.Default())
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(raw[i]-back[i]) > 1e-9 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestApplyToConfigClamps(t *testing.T) {
	cfg := config.Default()
	pv := NewParamVector(cfg)
	values := make([]float64, pv.Dim())
	for i := range values {
		values[i] = 1e9
	}
	pv.ApplyToConfig(cfg, values)
	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if got[i] != spec.Max {
			t.Errorf("%s = %v, want max %v", spec.Name, got[i], spec.Max)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config invalid after apply: %v", err)
	}
}

func TestApplyToConfigRoundsInts(t *testing.T) {
	cfg := config.Default()
	pv := NewParamVector(cfg)
	values := pv.DefaultVector()
	for i, spec := range pv.Specs {
		if spec.Path == "reproduction.cooldown" {
			values[i] = 100.6
		}
	}
	pv.ApplyToConfig(cfg, values)
	if cfg.Reproduction.Cooldown != 101 {
		t.Errorf("cooldown = %d, want 101", cfg.Reproduction.Cooldown)
	}
}
