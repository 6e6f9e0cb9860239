// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/AleutianAI/AleutianRecon/services/recon/ast")

// startParseSpan starts a tracing span for a single file parse. The span is
// a no-op unless the host process installed an OTel SDK.
func startParseSpan(ctx context.Context, filePath string, sizeBytes int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "recon.ast.parse",
		trace.WithAttributes(
			attribute.String("recon.file", filePath),
			attribute.Int("recon.file.size_bytes", sizeBytes),
		))
}

// setParseSpanResult records extraction counts on a parse span.
func setParseSpanResult(span trace.Span, symbols, imports int) {
	span.SetAttributes(
		attribute.Int("recon.symbols", symbols),
		attribute.Int("recon.imports", imports),
	)
}
