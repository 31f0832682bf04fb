package config

import (
	"os"
	"path/filepath"
	"testing"

	"fmigo/internal/steppers"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "zigzag" {
		t.Errorf("expected model zigzag, got %s", cfg.Model)
	}
	if cfg.StepperTag() != steppers.TagEuler {
		t.Errorf("expected stepper %s, got %s", steppers.TagEuler, cfg.Stepper)
	}
	if cfg.EventSearchPrecision <= 0 {
		t.Error("event search precision should be positive")
	}
	if !cfg.StopBeforeEvent {
		t.Error("expected stop-before-event default true")
	}
}

func TestAbstolReltolPtr(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AbstolPtr() != nil {
		t.Error("expected nil abstol when undefined")
	}
	cfg.AbstolDefined = true
	cfg.Abstol = 1e-6
	if got := cfg.AbstolPtr(); got == nil || *got != 1e-6 {
		t.Errorf("AbstolPtr() = %v, want 1e-6", got)
	}
	if cfg.ReltolPtr() != nil {
		t.Error("expected nil reltol when undefined")
	}
	cfg.ReltolDefined = true
	cfg.Reltol = 1e-8
	if got := cfg.ReltolPtr(); got == nil || *got != 1e-8 {
		t.Errorf("ReltolPtr() = %v, want 1e-8", got)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("zigzag", "default")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.EventSearchPrecision != 1e-6 {
		t.Errorf("expected precision 1e-6, got %v", cfg.EventSearchPrecision)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("zigzag", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "default"); cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("zigzag")
	if len(presets) == 0 {
		t.Error("expected presets for zigzag")
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = "robertson"
	cfg.Stepper = string(steppers.TagRosenbrock)

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "robertson" || loaded.Stepper != string(steppers.TagRosenbrock) {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestLoadFillsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	if err := os.WriteFile(path, []byte("model: stiff2\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "stiff2" {
		t.Errorf("Model = %q, want stiff2", cfg.Model)
	}
	if cfg.EventSearchPrecision != DefaultEventSearchPrecision {
		t.Errorf("EventSearchPrecision = %v, want default %v", cfg.EventSearchPrecision, DefaultEventSearchPrecision)
	}
}
