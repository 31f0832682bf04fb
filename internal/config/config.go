// Package config loads and saves the YAML settings that parameterize a
// Model-Exchange Driver run: which stepper family to use, its
// tolerances, and the event- and lookahead-related knobs the driver
// exposes. It keeps the teacher's Load/Save/DefaultConfig shape and its
// gopkg.in/yaml.v3 marshalling, generalized from a physics-model config
// to a driver config.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"fmigo/internal/steppers"
)

const (
	DefaultEventSearchPrecision = 1e-4
	DefaultLookaheadStepSize    = 0.1
	DefaultLookAheadHorizon     = 1.0
	DefaultDtHint               = 0.01
)

// Config is the on-disk shape of a driver run's settings.
type Config struct {
	Model                string  `yaml:"model"`
	Stepper              string  `yaml:"stepper"`
	Abstol               float64 `yaml:"abstol"`
	AbstolDefined        bool    `yaml:"abstol_defined"`
	Reltol               float64 `yaml:"reltol"`
	ReltolDefined        bool    `yaml:"reltol_defined"`
	StopBeforeEvent      bool    `yaml:"stop_before_event"`
	EventSearchPrecision float64 `yaml:"event_search_precision"`
	LookaheadStepSize    float64 `yaml:"lookahead_step_size"`
	LookAheadHorizon     float64 `yaml:"lookahead_horizon"`
	DtHint               float64 `yaml:"dt_hint"`
	TEnd                 float64 `yaml:"t_end"`
}

// DefaultConfig returns the settings a bare `fmigo run` invokes with
// when no config file is given: forward Euler, driver-chosen tolerance,
// stop-before-event semantics, and spec §4's default search precision.
func DefaultConfig() *Config {
	return &Config{
		Model:                "zigzag",
		Stepper:              string(steppers.TagEuler),
		StopBeforeEvent:      true,
		EventSearchPrecision: DefaultEventSearchPrecision,
		LookaheadStepSize:    DefaultLookaheadStepSize,
		LookAheadHorizon:     DefaultLookAheadHorizon,
		DtHint:               DefaultDtHint,
		TEnd:                 1.0,
	}
}

// Load reads cfg from path, filling in DefaultConfig for any field the
// file leaves unset by unmarshalling on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StepperTag returns the steppers.Tag named by cfg.Stepper.
func (c *Config) StepperTag() steppers.Tag {
	return steppers.Tag(c.Stepper)
}

// AbstolPtr returns &c.Abstol if the config file defined it, else nil,
// matching driver.Config's convention of a nil tolerance meaning "let
// the model's default experiment or the stepper decide".
func (c *Config) AbstolPtr() *float64 {
	if !c.AbstolDefined {
		return nil
	}
	v := c.Abstol
	return &v
}

// ReltolPtr mirrors AbstolPtr for the relative tolerance.
func (c *Config) ReltolPtr() *float64 {
	if !c.ReltolDefined {
		return nil
	}
	v := c.Reltol
	return &v
}
