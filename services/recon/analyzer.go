// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package recon reverse-engineers a confidence-scored capability model from
// an existing source tree.
//
// The pipeline is: source discovery → per-file symbol extraction (parallel)
// → dependency-graph construction → confidence scoring → story grouping →
// theme detection → model assembly. It is a static analyzer: the target
// code is never executed, no file is ever written, and accuracy loss is
// expressed through confidence scores rather than by aborting. Given the
// same file-system snapshot, two runs produce identical models.
package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/catalog"
	"github.com/AleutianAI/AleutianRecon/services/recon/config"
	"github.com/AleutianAI/AleutianRecon/services/recon/graph"
	"github.com/AleutianAI/AleutianRecon/services/recon/model"
	"github.com/AleutianAI/AleutianRecon/services/recon/patterns"
	"github.com/AleutianAI/AleutianRecon/services/recon/score"
	"github.com/AleutianAI/AleutianRecon/services/recon/story"
	"github.com/AleutianAI/AleutianRecon/services/recon/theme"
)

// ErrEntryPointOutsideRoot is re-exported so callers can test the single
// fatal configuration error without importing the catalog package.
var ErrEntryPointOutsideRoot = catalog.ErrEntryPointOutsideRoot

var tracer = otel.Tracer("github.com/AleutianAI/AleutianRecon/services/recon")

// Default analyzer settings.
const (
	// DefaultConfidenceThreshold excludes only near-zero-evidence symbols.
	DefaultConfidenceThreshold = 0.3

	// DefaultPatternTimeout bounds each pattern-provider call. On timeout
	// the call degrades to "no findings" for that module; no retries.
	DefaultPatternTimeout = 2 * time.Second

	// draftConfidence is the confidence below which a feature is flagged
	// as a draft even when it survives the threshold filter.
	draftConfidence = 0.5
)

// Options configures an Analyzer.
type Options struct {
	// EntryPoint optionally restricts the scan to a sub-path of the root.
	// A value escaping the root fails fast before any file I/O.
	EntryPoint string

	// ConfidenceThreshold excludes symbols scoring below it from the
	// feature list. Must be in [0,1].
	ConfidenceThreshold float64

	// KeyFormat controls Feature/Story key generation.
	KeyFormat model.KeyFormat

	// WorkerCount bounds the parse worker pool. Defaults to NumCPU.
	WorkerCount int

	// PatternProvider supplies optional framework hints. Defaults to the
	// no-op provider.
	PatternProvider patterns.Provider

	// PatternTimeout bounds each provider call.
	PatternTimeout time.Duration

	// MaxFileSize overrides the indexer's per-file size limit when > 0.
	MaxFileSize int64
}

// Option is a functional option for configuring an Analyzer.
type Option func(*Options)

// WithEntryPoint restricts the scan to root/entryPoint.
func WithEntryPoint(entryPoint string) Option {
	return func(o *Options) { o.EntryPoint = entryPoint }
}

// WithConfidenceThreshold sets the feature filter threshold.
func WithConfidenceThreshold(t float64) Option {
	return func(o *Options) { o.ConfidenceThreshold = t }
}

// WithKeyFormat sets the Feature/Story key format.
func WithKeyFormat(f model.KeyFormat) Option {
	return func(o *Options) { o.KeyFormat = f }
}

// WithWorkerCount bounds the parse worker pool.
func WithWorkerCount(n int) Option {
	return func(o *Options) { o.WorkerCount = n }
}

// WithPatternProvider injects a pattern-signal provider.
func WithPatternProvider(p patterns.Provider) Option {
	return func(o *Options) { o.PatternProvider = p }
}

// WithPatternTimeout bounds each pattern-provider call.
func WithPatternTimeout(d time.Duration) Option {
	return func(o *Options) { o.PatternTimeout = d }
}

// WithMaxFileSize overrides the per-file parse size limit.
func WithMaxFileSize(bytes int64) Option {
	return func(o *Options) { o.MaxFileSize = bytes }
}

// Analyzer runs the analysis pipeline.
//
// Thread Safety: Analyze may be called from multiple goroutines; each call
// operates on its own state. Report and PluginStatus reflect the most
// recently completed run.
type Analyzer struct {
	options Options

	mu         sync.Mutex
	lastReport Report
	hasReport  bool
}

// NewAnalyzer creates an Analyzer.
//
// Returns an error when the options are malformed: a threshold outside
// [0,1] or an unknown key format. Everything else has a default.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	options := Options{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		KeyFormat:           model.KeyFromSymbolName,
		WorkerCount:         runtime.NumCPU(),
		PatternProvider:     patterns.Noop{},
		PatternTimeout:      DefaultPatternTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.ConfidenceThreshold < 0 || options.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence threshold %v outside [0,1]", options.ConfidenceThreshold)
	}
	if !options.KeyFormat.Valid() {
		return nil, fmt.Errorf("unknown key format %q", options.KeyFormat)
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = runtime.NumCPU()
	}
	if options.PatternProvider == nil {
		options.PatternProvider = patterns.Noop{}
	}
	if options.PatternTimeout <= 0 {
		options.PatternTimeout = DefaultPatternTimeout
	}

	return &Analyzer{options: options}, nil
}

// Analyze scans root and returns the capability model.
//
// Description:
//
//	Discovery is sequential; parsing is dispatched across a bounded worker
//	pool with results merged by original discovery index at a single
//	barrier, never by completion order. Graph construction, scoring, story
//	grouping, and theme detection are pure functions over the merged
//	module set and run single-threaded after the barrier.
//
//	Per-file parse failures are recorded as skips and never abort the
//	batch. Pattern-provider failures degrade that module's scoring to
//	AST-only signals. An empty or fully unparsable tree yields a valid,
//	empty model. Only the entry-point configuration error is returned as
//	an error, before any file I/O.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*model.CapabilityModel, error) {
	ctx, span := tracer.Start(ctx, "recon.analyze",
		trace.WithAttributes(attribute.String("recon.root", root)))
	defer span.End()

	start := time.Now()
	report := Report{RunID: uuid.NewString()}

	cfg, err := config.Load(root)
	if err != nil {
		// Invalid optional config is absorbed, not fatal: defaults apply.
		slog.Warn("ignoring invalid recon config", slog.String("error", err.Error()))
		cfg = config.Default()
	}

	entries, err := catalog.Discover(root, catalog.Options{
		EntryPoint:   a.options.EntryPoint,
		ExcludeGlobs: cfg.Exclude,
	})
	if err != nil {
		return nil, err
	}

	modules, skipped, err := a.parseAll(ctx, entries)
	if err != nil {
		return nil, err
	}
	report.FilesDiscovered = len(entries)
	report.Skipped = skipped

	depGraph := graph.Build(modules)

	findings, patternOK, patternFailed := a.collectFindings(ctx, modules)

	scorer := score.NewScorer(cfg.Scoring)
	detector := theme.NewDetector(cfg.Themes)

	capModel := a.assemble(modules, depGraph, findings, scorer, detector)

	report.Duration = time.Since(start)
	report.Plugins = a.pluginStatuses(patternOK, patternFailed)
	a.storeReport(report)

	slog.Info("analysis complete",
		slog.String("run_id", report.RunID),
		slog.Int("files", len(entries)),
		slog.Int("skipped", len(skipped)),
		slog.Int("features", len(capModel.Features)),
		slog.Int("themes", len(capModel.Themes)),
		slog.Int("edges", len(capModel.Edges)),
		slog.Duration("duration", report.Duration))

	return capModel, nil
}

// parseAll parses the discovered files on a bounded worker pool. Each
// worker writes only its own discovery-index slot, so the merged module
// slice is ordered by discovery, not completion.
func (a *Analyzer) parseAll(ctx context.Context, entries []catalog.Entry) ([]*ast.Module, []SkippedFile, error) {
	var indexerOpts []ast.IndexerOption
	if a.options.MaxFileSize > 0 {
		indexerOpts = append(indexerOpts, ast.WithMaxFileSize(a.options.MaxFileSize))
	}
	indexer := ast.NewPythonIndexer(indexerOpts...)

	results := make([]*ast.Module, len(entries))
	skips := make([]*SkippedFile, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.options.WorkerCount)

	for i := range entries {
		entry := entries[i]
		g.Go(func() error {
			content, err := os.ReadFile(entry.AbsPath)
			if err != nil {
				skips[entry.Index] = &SkippedFile{Path: entry.Path, Reason: "read failed: " + err.Error()}
				return nil
			}
			mod, err := indexer.Parse(gctx, content, entry.Path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				skips[entry.Index] = &SkippedFile{Path: entry.Path, Reason: err.Error()}
				return nil
			}
			mod.Index = entry.Index
			results[entry.Index] = mod
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Interrupted runs produce no output: all progress is discarded.
		return nil, nil, err
	}

	// Merge barrier: compact in discovery order.
	var modules []*ast.Module
	var skipped []SkippedFile
	for i := range entries {
		if results[i] != nil {
			modules = append(modules, results[i])
		}
		if skips[i] != nil {
			skipped = append(skipped, *skips[i])
			slog.Debug("skipped file",
				slog.String("file", skips[i].Path),
				slog.String("reason", skips[i].Reason))
		}
	}
	return modules, skipped, nil
}

// collectFindings runs the pattern provider once per module under a
// bounded timeout. A timeout, error, or panic degrades that module to no
// findings; there are no retries and no partial credit.
func (a *Analyzer) collectFindings(ctx context.Context, modules []*ast.Module) (findings []patterns.Finding, ok, failed int) {
	if _, noop := a.options.PatternProvider.(patterns.Noop); noop {
		return nil, 0, 0
	}

	for _, mod := range modules {
		result, err := a.callProvider(ctx, mod)
		if err != nil {
			failed++
			slog.Debug("pattern provider degraded",
				slog.String("module", mod.Key),
				slog.String("reason", err.Error()))
			continue
		}
		ok++
		findings = append(findings, result...)
	}
	return findings, ok, failed
}

// callProvider invokes the provider with a per-call timeout and converts
// panics into degraded (empty) results. Providers must not raise; this
// guard keeps a misbehaving one from taking the run down.
func (a *Analyzer) callProvider(ctx context.Context, mod *ast.Module) ([]patterns.Finding, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.options.PatternTimeout)
	defer cancel()

	done := make(chan []patterns.Finding, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- nil
			}
		}()
		done <- a.options.PatternProvider.Findings(callCtx, mod)
	}()

	select {
	case result := <-done:
		return result, nil
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

// assemble filters scored symbols and composes the final model. Features
// are ordered by module discovery index, then in-file declaration order;
// the idempotence guarantee is enforced here.
func (a *Analyzer) assemble(
	modules []*ast.Module,
	depGraph *graph.Graph,
	findings []patterns.Finding,
	scorer *score.Scorer,
	detector *theme.Detector,
) *model.CapabilityModel {
	capModel := &model.CapabilityModel{
		Features: []model.Feature{},
		Themes:   detector.Detect(modules),
		Edges:    depGraph.Edges(),
	}
	if capModel.Themes == nil {
		capModel.Themes = []model.Theme{}
	}

	featureSeq := 0
	storySeq := 0
	usedKeys := make(map[string]int)

	for _, mod := range modules {
		for i := range mod.Symbols {
			sym := &mod.Symbols[i]

			confidence := scorer.Score(mod.Key, sym, findings)
			if confidence < a.options.ConfidenceThreshold {
				continue
			}

			featureSeq++
			feature := model.Feature{
				Title:        featureTitle(sym.Name),
				Outcomes:     featureOutcomes(mod, sym),
				Acceptance:   featureAcceptance(sym),
				Confidence:   confidence,
				Draft:        sym.DocComment == "" || confidence < draftConfidence,
				SourceModule: mod.Key,
				SourceSymbol: sym.Name,
			}
			feature.Key = a.featureKey(sym.Name, featureSeq, usedKeys)

			feature.Stories = story.Group(sym, confidence, func(seq int, title string) string {
				if a.options.KeyFormat == model.KeySequential {
					storySeq++
					return model.SequentialKey("ST", storySeq)
				}
				return feature.Key + "-" + storyKeySuffix(title)
			})

			capModel.Features = append(capModel.Features, feature)
		}
	}

	return capModel
}

// featureKey generates a feature key in the configured format. Derived
// keys get a numeric suffix when the same class name appears in several
// modules.
func (a *Analyzer) featureKey(symbolName string, seq int, used map[string]int) string {
	if a.options.KeyFormat == model.KeySequential {
		return model.SequentialKey("FEAT", seq)
	}
	key := model.Slug(symbolName)
	used[key]++
	if n := used[key]; n > 1 {
		return fmt.Sprintf("%s-%d", key, n)
	}
	return key
}

const storyTitlePrefix = "As a user, I can "

// storyKeySuffix slugs the distinguishing part of a story title.
func storyKeySuffix(title string) string {
	rest := title
	if len(rest) > len(storyTitlePrefix) && rest[:len(storyTitlePrefix)] == storyTitlePrefix {
		rest = rest[len(storyTitlePrefix):]
	}
	return model.Slug(rest)
}

// featureTitle humanizes a class name into a capability title.
func featureTitle(symbolName string) string {
	phrase := model.Humanize(symbolName)
	if phrase == "" {
		return symbolName
	}
	return capitalizeFirst(phrase)
}

// featureOutcomes derives outcome statements from the class docstring,
// falling back to the module docstring, then to a provenance note.
func featureOutcomes(mod *ast.Module, sym *ast.Symbol) []string {
	if sentence := firstDocSentence(sym.DocComment); sentence != "" {
		return []string{sentence}
	}
	if sentence := firstDocSentence(mod.DocComment); sentence != "" {
		return []string{sentence}
	}
	return []string{fmt.Sprintf("Preserve the observed behavior of %s.%s", mod.Key, sym.Name)}
}

// featureAcceptance states feature-level acceptance: behavior parity with
// the anchoring symbol.
func featureAcceptance(sym *ast.Symbol) []string {
	acceptance := []string{
		fmt.Sprintf("All stories derived from %s pass their acceptance checks", sym.Name),
	}
	if sentence := firstDocSentence(sym.DocComment); sentence != "" {
		acceptance = append(acceptance, sentence)
	}
	return acceptance
}

func firstDocSentence(doc string) string {
	s := strings.Join(strings.Fields(doc), " ")
	if s == "" {
		return ""
	}
	if idx := strings.IndexAny(s, ".!?"); idx >= 0 {
		return s[:idx+1]
	}
	return s
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
