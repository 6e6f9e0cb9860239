// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the optional recon.config.yaml from the scan root.
//
// The legacy system's exact scoring coefficients and theme keyword table
// were never documented; they are treated as tunable configuration here.
// Zero-config works out of the box: a missing file yields the defaults and
// only the documented invariants (confidence clamping, monotonic threshold
// filtering, deterministic theme unioning) are fixed in code.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up under the scan root.
const FileName = "recon.config.yaml"

// Scoring holds the confidence fusion weights. All weights live in [0,1];
// the fused score is clamped to [0,1] regardless.
type Scoring struct {
	// SymbolDocWeight is credit for a present class docstring.
	SymbolDocWeight float64 `yaml:"symbol_doc_weight" validate:"gte=0,lte=1"`

	// DocLengthBonus is extra credit when the class docstring is
	// non-trivial (at least MinDocLength characters).
	DocLengthBonus float64 `yaml:"doc_length_bonus" validate:"gte=0,lte=1"`

	// MethodSignalWeight scales the fraction of methods carrying both a
	// docstring and declared type annotations.
	MethodSignalWeight float64 `yaml:"method_signal_weight" validate:"gte=0,lte=1"`

	// MinDocLength is the non-trivial docstring cutoff in characters.
	MinDocLength int `yaml:"min_doc_length" validate:"gte=1"`

	// Boosts are additive per-finding-kind pattern boosts, applied at most
	// once per kind and scaled by finding strength.
	Boosts map[string]float64 `yaml:"boosts" validate:"dive,gte=0,lte=1"`
}

// ThemeRule maps an external-dependency name fragment to a theme label.
type ThemeRule struct {
	Fragment string `yaml:"fragment" validate:"required"`
	Label    string `yaml:"label" validate:"required"`
}

// Config is the full optional configuration.
type Config struct {
	Scoring Scoring `yaml:"scoring"`

	// Themes extends (never replaces) the built-in theme table. Extension
	// rules are evaluated after the built-ins, in file order.
	Themes []ThemeRule `yaml:"themes" validate:"dive"`

	// Exclude are doublestar globs dropped during discovery, matched
	// against root-relative paths.
	Exclude []string `yaml:"exclude"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Scoring: Scoring{
			SymbolDocWeight:    0.35,
			DocLengthBonus:     0.10,
			MethodSignalWeight: 0.40,
			MinDocLength:       24,
			Boosts: map[string]float64{
				"apiRoute":        0.15,
				"crudOperation":   0.10,
				"persistentModel": 0.10,
			},
		},
	}
}

var validate = validator.New()

// Load reads recon.config.yaml from the scan root.
//
// A missing file (or empty root) returns the defaults with no error. A file
// that exists but cannot be parsed or fails validation is an error: a
// half-applied config would silently change scoring.
func Load(root string) (Config, error) {
	cfg := Default()
	if root == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Default(), fmt.Errorf("validating %s: %w", FileName, err)
	}

	return cfg, nil
}
