package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Matching.AutoAccept != 0.85 {
		t.Errorf("AutoAccept = %v, want 0.85", cfg.Matching.AutoAccept)
	}
	if cfg.Matching.AmbiguousFloor != 0.60 {
		t.Errorf("AmbiguousFloor = %v, want 0.60", cfg.Matching.AmbiguousFloor)
	}
	if cfg.Matching.Exploratory != 0.45 {
		t.Errorf("Exploratory = %v, want 0.45", cfg.Matching.Exploratory)
	}
	if cfg.Vision.Dim != 512 {
		t.Errorf("Vision.Dim = %d, want 512", cfg.Vision.Dim)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d, want 25", cfg.Database.MaxOpenConns)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MATCH_AUTO_ACCEPT", "0.9")
	t.Setenv("VISION_EMBEDDING_DIM", "128")

	cfg := Load()

	if cfg.Matching.AutoAccept != 0.9 {
		t.Errorf("AutoAccept = %v, want 0.9", cfg.Matching.AutoAccept)
	}
	if cfg.Vision.Dim != 128 {
		t.Errorf("Vision.Dim = %d, want 128", cfg.Vision.Dim)
	}
}

func TestAutoAcceptClamped(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want float64
	}{
		{"below range", "0.5", 0.70},
		{"invalid", "nope", 0.85},
		{"negative", "-0.3", 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MATCH_AUTO_ACCEPT", tt.env)
			cfg := Load()
			if cfg.Matching.AutoAccept != tt.want {
				t.Errorf("AutoAccept = %v, want %v", cfg.Matching.AutoAccept, tt.want)
			}
		})
	}
}
