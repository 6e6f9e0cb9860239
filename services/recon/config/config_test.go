// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EmptyRoot(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	root := t.TempDir()
	content := `
scoring:
  symbol_doc_weight: 0.5
  min_doc_length: 10
themes:
  - fragment: kafka
    label: Messaging
exclude:
  - "migrations/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Scoring.SymbolDocWeight)
	assert.Equal(t, 10, cfg.Scoring.MinDocLength)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Scoring.MethodSignalWeight, cfg.Scoring.MethodSignalWeight)
	assert.Equal(t, []ThemeRule{{Fragment: "kafka", Label: "Messaging"}}, cfg.Themes)
	assert.Equal(t, []string{"migrations/**"}, cfg.Exclude)
}

func TestLoad_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("scoring: ["), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestLoad_InvalidWeights(t *testing.T) {
	root := t.TempDir()
	content := "scoring:\n  symbol_doc_weight: 1.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestDefault_Validates(t *testing.T) {
	assert.NoError(t, validate.Struct(Default()))
}
