// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package recon

import (
	"fmt"
	"time"
)

// PluginStatus describes one analysis capability for observability. It is
// read-only reporting: nothing here feeds back into scoring.
type PluginStatus struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Used    bool   `yaml:"used"`
	Reason  string `yaml:"reason"`
}

// SkippedFile records one file that failed to parse. The batch continues;
// the skip is surfaced here instead of as an error.
type SkippedFile struct {
	Path   string `yaml:"path"`
	Reason string `yaml:"reason"`
}

// Report summarizes the most recent analysis run: identity, timing,
// partial-failure detail, and capability statuses. The capability model
// itself stays pure; everything error-shaped lives here.
type Report struct {
	RunID           string         `yaml:"run_id"`
	Duration        time.Duration  `yaml:"duration"`
	FilesDiscovered int            `yaml:"files_discovered"`
	Skipped         []SkippedFile  `yaml:"skipped"`
	Plugins         []PluginStatus `yaml:"plugins"`
}

// Report returns the report of the most recent completed run and whether a
// run has completed.
func (a *Analyzer) Report() (Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReport, a.hasReport
}

// PluginStatus returns the capability status list of the most recent run.
// Before any run it reports configured availability with Used=false.
func (a *Analyzer) PluginStatus() []PluginStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hasReport {
		return append([]PluginStatus(nil), a.lastReport.Plugins...)
	}
	return a.pluginStatuses(0, 0)
}

func (a *Analyzer) storeReport(r Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastReport = r
	a.hasReport = true
}

// pluginStatuses builds the capability status list. The syntax indexer
// entry is permanent: AST extraction is the one capability that is always
// enabled and always used.
func (a *Analyzer) pluginStatuses(patternOK, patternFailed int) []PluginStatus {
	statuses := []PluginStatus{
		{
			Name:    "syntax-indexer",
			Enabled: true,
			Used:    true,
			Reason:  "core AST extraction (tree-sitter)",
		},
		{
			Name:    "dependency-graph",
			Enabled: true,
			Used:    true,
			Reason:  "module import resolution",
		},
	}

	providerName := a.options.PatternProvider.Name()
	enabled := providerName != "noop"
	status := PluginStatus{
		Name:    "pattern-signals",
		Enabled: enabled,
	}
	switch {
	case !enabled:
		status.Reason = "no pattern provider configured"
	case patternOK == 0 && patternFailed == 0:
		status.Reason = fmt.Sprintf("%s configured, no modules analyzed", providerName)
	case patternFailed == 0:
		status.Used = true
		status.Reason = fmt.Sprintf("%s supplied findings for %d module(s)", providerName, patternOK)
	case patternOK > 0:
		status.Used = true
		status.Reason = fmt.Sprintf("%s degraded on %d of %d module(s); those scored on AST signals only",
			providerName, patternFailed, patternOK+patternFailed)
	default:
		status.Reason = fmt.Sprintf("%s failed on all %d module(s); scoring degraded to AST signals",
			providerName, patternFailed)
	}
	statuses = append(statuses, status)

	return statuses
}
