package config

import "fmigo/internal/steppers"

// Presets is a catalogue of named configs for each fixture model, one
// per interesting scenario from spec §8.
var Presets = map[string]map[string]*Config{
	"zigzag": {
		"default": {
			Model: "zigzag", Stepper: string(steppers.TagEuler),
			StopBeforeEvent: true, EventSearchPrecision: 1e-6,
			DtHint: 0.1, TEnd: 5.0,
		},
		"tight": {
			Model: "zigzag", Stepper: string(steppers.TagRK4),
			StopBeforeEvent: true, EventSearchPrecision: 1e-8,
			DtHint: 0.05, TEnd: 5.0,
		},
	},
	"stiff2": {
		"default": {
			Model: "stiff2", Stepper: string(steppers.TagRosenbrock),
			DtHint: 0.01, TEnd: 2.0,
		},
	},
	"vanderpol": {
		"limit_cycle": {
			Model: "vanderpol", Stepper: string(steppers.TagDormandPrince),
			DtHint: 0.01, TEnd: 20.0,
		},
	},
	"robertson": {
		"default": {
			Model: "robertson", Stepper: string(steppers.TagRosenbrock),
			DtHint: 1e-4, TEnd: 40.0,
		},
	},
}

// GetPreset returns the named preset for model, or nil if either is
// unknown.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

// ListPresets returns the preset names defined for model, or nil if
// model has none.
func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
