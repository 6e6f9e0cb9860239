// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command recon reverse-engineers a capability model from an existing
// source tree and writes it to stdout as YAML.
//
// Usage:
//
//	recon analyze /path/to/repo
//	recon analyze /path/to/repo --entry-point src/app --threshold 0.5
//	recon analyze /path/to/repo --key-format sequential-counter --report
//
// The analyzer never executes or mutates the target code; everything it
// cannot prove is reflected in confidence scores, not errors.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianRecon/services/recon"
	"github.com/AleutianAI/AleutianRecon/services/recon/model"
	"github.com/AleutianAI/AleutianRecon/services/recon/patterns"
)

var (
	entryPoint string
	threshold  float64
	keyFormat  string
	workers    int
	noPatterns bool
	withReport bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recon",
		Short: "Reverse-engineer a capability model from source code",
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <root>",
		Short: "Analyze a repository and print the capability model as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&entryPoint, "entry-point", "", "restrict the scan to a sub-path of root")
	analyzeCmd.Flags().Float64Var(&threshold, "threshold", recon.DefaultConfidenceThreshold, "confidence threshold in [0,1]")
	analyzeCmd.Flags().StringVar(&keyFormat, "key-format", string(model.KeyFromSymbolName),
		"key format: derive-from-symbol-name or sequential-counter")
	analyzeCmd.Flags().IntVar(&workers, "workers", 0, "parse worker count (0 = NumCPU)")
	analyzeCmd.Flags().BoolVar(&noPatterns, "no-patterns", false, "disable the framework pattern matcher")
	analyzeCmd.Flags().BoolVar(&withReport, "report", false, "append the run report (skips, plugin status)")
	analyzeCmd.Flags().BoolVar(&verbose, "verbose", false, "debug logging")
	rootCmd.AddCommand(analyzeCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := []recon.Option{
		recon.WithConfidenceThreshold(threshold),
		recon.WithKeyFormat(model.KeyFormat(keyFormat)),
	}
	if entryPoint != "" {
		opts = append(opts, recon.WithEntryPoint(entryPoint))
	}
	if workers > 0 {
		opts = append(opts, recon.WithWorkerCount(workers))
	}
	if !noPatterns {
		opts = append(opts, recon.WithPatternProvider(patterns.Heuristic{}))
	}

	analyzer, err := recon.NewAnalyzer(opts...)
	if err != nil {
		return err
	}

	capModel, err := analyzer.Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := yaml.NewEncoder(os.Stdout)
	out.SetIndent(2)
	if err := out.Encode(capModel); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}

	if withReport {
		if report, ok := analyzer.Report(); ok {
			fmt.Println("---")
			if err := out.Encode(report); err != nil {
				return fmt.Errorf("encoding report: %w", err)
			}
		}
	}
	return out.Close()
}
