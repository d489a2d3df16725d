// Package config loads an Engine's configuration from a YAML file,
// validating it before it ever reaches package lsm.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lsmsample/lsmsample/pkg/lsm"
	"github.com/lsmsample/lsmsample/pkg/validation"
)

// Load reads path as YAML into a validation.EngineConfig, validates it,
// and converts it to an lsm.EngineOptions ready to hand to lsm.NewEngine.
func Load(path string) (lsm.EngineOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lsm.EngineOptions{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg validation.EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return lsm.EngineOptions{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validation.ValidateEngineConfig(&cfg); err != nil {
		return lsm.EngineOptions{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return ToEngineOptions(cfg), nil
}

// ToEngineOptions converts a validated EngineConfig into the
// lsm.EngineOptions the engine constructor consumes.
func ToEngineOptions(cfg validation.EngineConfig) lsm.EngineOptions {
	opts := lsm.EngineOptions{
		MemtableCount:         cfg.MemtableCount,
		MemtableCap:           cfg.MemtableCap,
		MemtableTombstoneCap:  cfg.MemtableTombstoneCap,
		ScaleFactor:           cfg.ScaleFactor,
		TombstoneMaxFraction:  cfg.TombstoneMaxFraction,
		BloomFPR:              cfg.BloomFPR,
		BloomK:                cfg.BloomK,
		IndexPageSize:         cfg.IndexPageSize,
		IndexMaxError:         cfg.IndexMaxError,
		Seed:                  cfg.Seed,
	}

	switch cfg.Policy {
	case "TIERING":
		opts.Policy = lsm.Tiering
	default:
		opts.Policy = lsm.Leveling
	}

	switch cfg.SampleMode {
	case "WIRS":
		opts.SampleMode = lsm.SampleWIRS
	default:
		opts.SampleMode = lsm.SampleUniform
	}

	switch cfg.DeleteMode {
	case "TAG":
		opts.DeleteMode = lsm.DeleteTag
	default:
		opts.DeleteMode = lsm.DeleteCancel
	}

	switch cfg.IndexKind {
	case "SPLINE":
		opts.IndexKind = lsm.IndexSpline
	case "NONE":
		opts.IndexKind = lsm.IndexNone
	default:
		opts.IndexKind = lsm.IndexISAM
	}

	return opts
}
