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
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// IndexerOption configures a PythonIndexer instance.
type IndexerOption func(*PythonIndexer)

// WithMaxFileSize sets the maximum file size the indexer will accept.
// Values <= 0 are ignored.
func WithMaxFileSize(bytes int64) IndexerOption {
	return func(p *PythonIndexer) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// PythonIndexer extracts Module symbol tables from Python source files.
//
// Description:
//
//	PythonIndexer uses tree-sitter to parse Python source and extract class
//	declarations, methods, docstrings, parameter/return annotations, async
//	markers, and the file's unresolved import list. It is error-tolerant:
//	syntactically invalid files yield partial results where the tree allows
//	it, and only a fully unusable tree is reported as a parse failure.
//
// Thread Safety:
//
//	PythonIndexer is safe for concurrent use. Each Parse call creates its
//	own tree-sitter parser instance internally.
type PythonIndexer struct {
	maxFileSize int64
}

// NewPythonIndexer creates a PythonIndexer with the given options.
func NewPythonIndexer(opts ...IndexerOption) *PythonIndexer {
	p := &PythonIndexer{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extensions returns the file extensions this indexer handles.
func (p *PythonIndexer) Extensions() []string {
	return []string{".py", ".pyi"}
}

// Parse extracts a Module from Python source code.
//
// Description:
//
//	Validates size and encoding, parses the content with tree-sitter, and
//	walks the tree for the module docstring, imports, and class
//	declarations. The returned Module carries the dotted key derived from
//	relPath; the caller assigns the discovery index.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing;
//     tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - relPath: Path relative to the scan root, forward slashes.
//
// Outputs:
//   - *Module: The extracted symbol table. Nil on error.
//   - error: ErrFileTooLarge, ErrInvalidContent, ErrUnparsable, or a
//     context error. All of these are recoverable per-file conditions for
//     the analyzer: the file is skipped with a recorded reason.
//
// Thread Safety: Safe for concurrent use.
func (p *PythonIndexer) Parse(ctx context.Context, content []byte, relPath string) (*Module, error) {
	ctx, span := startParseSpan(ctx, relPath, len(content))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", relPath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// New parser instance per call for thread safety.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: tree-sitter returned nil root node", ErrUnparsable)
	}

	mod := &Module{
		Key:  ModuleKey(relPath),
		Path: relPath,
	}

	mod.DocComment = extractModuleDocstring(root, content)
	extractImports(root, content, mod, 0)
	extractClasses(root, content, mod)

	if root.HasError() && len(mod.Symbols) == 0 && len(mod.Imports) == 0 {
		return nil, fmt.Errorf("%w: source contains syntax errors", ErrUnparsable)
	}

	setParseSpanResult(span, len(mod.Symbols), len(mod.Imports))
	return mod, nil
}

// extractModuleDocstring returns the module-level docstring if present.
// The docstring is the first expression_statement whose child is a string,
// allowing leading comments and imports before giving up.
func extractModuleDocstring(root *sitter.Node, content []byte) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == "expression_statement" && child.ChildCount() > 0 {
			strNode := child.Child(0)
			if strNode.Type() == "string" {
				return stringContent(strNode, content)
			}
		}
		if child.Type() != "comment" && child.Type() != "import_statement" && child.Type() != "import_from_statement" {
			return ""
		}
	}
	return ""
}

// maxImportDepth bounds the recursive import walk. Python code uses inline
// imports inside function bodies to break cycles; those still matter for
// theme detection, so the whole tree is walked.
const maxImportDepth = 40

func extractImports(node *sitter.Node, content []byte, mod *Module, depth int) {
	if node == nil || depth > maxImportDepth {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "import_statement":
			processImportStatement(child, content, mod)
		case "import_from_statement":
			processImportFromStatement(child, content, mod)
		default:
			extractImports(child, content, mod, depth+1)
		}
	}
}

// processImportStatement handles "import foo" and "import foo as bar".
func processImportStatement(node *sitter.Node, content []byte, mod *Module) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			mod.Imports = append(mod.Imports, nodeText(child, content))
		case "aliased_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "dotted_name" {
					mod.Imports = append(mod.Imports, nodeText(grandchild, content))
					break
				}
			}
		}
	}
}

// processImportFromStatement handles "from x import y" including relative
// forms. Only the module path is recorded; imported names resolve to the
// same module for dependency purposes.
func processImportFromStatement(node *sitter.Node, content []byte, mod *Module) {
	var modulePath string
	var isRelative bool
	var sawImport bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			isRelative = true
			var prefix, name string
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				switch grandchild.Type() {
				case "import_prefix":
					prefix = nodeText(grandchild, content)
				case "dotted_name":
					name = nodeText(grandchild, content)
				}
			}
			modulePath = prefix + name
		case "dotted_name":
			if !sawImport {
				modulePath = nodeText(child, content)
			}
		}
	}

	if modulePath == "" && isRelative {
		modulePath = "."
	}
	if modulePath != "" {
		mod.Imports = append(mod.Imports, modulePath)
	}
}

// extractClasses extracts top-level class declarations, including decorated
// ones, in source order.
func extractClasses(root *sitter.Node, content []byte, mod *Module) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "class_definition":
			if sym := processClass(child, content, nil); sym != nil {
				mod.Symbols = append(mod.Symbols, *sym)
			}
		case "decorated_definition":
			decorators := extractDecorators(child, content)
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "class_definition" {
					if sym := processClass(grandchild, content, decorators); sym != nil {
						mod.Symbols = append(mod.Symbols, *sym)
					}
					break
				}
			}
		}
	}
}

// processClass extracts one class declaration into a Symbol.
func processClass(node *sitter.Node, content []byte, decorators []string) *Symbol {
	var name string
	var bases []string
	var bodyNode *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name = nodeText(child, content)
		case "argument_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				arg := child.Child(j)
				switch arg.Type() {
				case "identifier", "attribute":
					bases = append(bases, nodeText(arg, content))
				case "subscript":
					// Protocol[T], Generic[T] — keep the base before the bracket.
					for k := 0; k < int(arg.ChildCount()); k++ {
						base := arg.Child(k)
						if base.Type() == "identifier" || base.Type() == "attribute" {
							bases = append(bases, nodeText(base, content))
							break
						}
					}
				}
			}
		case "block":
			bodyNode = child
		}
	}

	if name == "" {
		return nil
	}

	sym := &Symbol{
		Name:       name,
		Bases:      bases,
		Decorators: decorators,
		StartLine:  int(node.StartPoint().Row + 1),
	}

	if bodyNode != nil {
		sym.DocComment = blockDocstring(bodyNode, content)
		extractClassMethods(bodyNode, content, sym)
	}

	return sym
}

// extractClassMethods extracts methods from a class body in declaration
// order, unwrapping decorated definitions.
func extractClassMethods(body *sitter.Node, content []byte, sym *Symbol) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "function_definition":
			if m := processMethod(child, content, nil); m != nil {
				sym.Methods = append(sym.Methods, *m)
			}
		case "decorated_definition":
			decorators := extractDecorators(child, content)
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "function_definition" {
					if m := processMethod(grandchild, content, decorators); m != nil {
						sym.Methods = append(sym.Methods, *m)
					}
					break
				}
			}
		}
	}
}

// processMethod extracts one function_definition into a Method.
func processMethod(node *sitter.Node, content []byte, decorators []string) *Method {
	m := &Method{
		Decorators: decorators,
		StartLine:  int(node.StartPoint().Row + 1),
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "async":
			// The async keyword is a direct child of function_definition in
			// tree-sitter-python.
			m.Async = true
		case "identifier":
			m.Name = nodeText(child, content)
		case "parameters":
			m.Params = extractParams(child, content)
		case "type":
			m.Returns = collapseWhitespace(nodeText(child, content))
		case "block":
			m.DocComment = blockDocstring(child, content)
		}
	}

	if m.Name == "" {
		return nil
	}
	return m
}

// extractParams extracts declared parameters with their annotations.
func extractParams(paramsNode *sitter.Node, content []byte) []Param {
	var params []Param
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		switch child.Type() {
		case "identifier":
			params = append(params, Param{Name: nodeText(child, content)})
		case "typed_parameter", "typed_default_parameter":
			var p Param
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				switch grandchild.Type() {
				case "identifier":
					if p.Name == "" {
						p.Name = nodeText(grandchild, content)
					}
				case "type":
					p.Annotation = collapseWhitespace(nodeText(grandchild, content))
				}
			}
			if p.Name != "" {
				params = append(params, p)
			}
		case "default_parameter":
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "identifier" {
					params = append(params, Param{Name: nodeText(grandchild, content)})
					break
				}
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			// *args / **kwargs
			params = append(params, Param{Name: nodeText(child, content)})
		}
	}
	return params
}

// extractDecorators extracts decorator expressions from a
// decorated_definition node. For "@app.route('/x')" the recorded name is
// "app.route".
func extractDecorators(node *sitter.Node, content []byte) []string {
	var decorators []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "decorator" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			grandchild := child.Child(j)
			switch grandchild.Type() {
			case "identifier", "attribute":
				decorators = append(decorators, nodeText(grandchild, content))
			case "call":
				for k := 0; k < int(grandchild.ChildCount()); k++ {
					fn := grandchild.Child(k)
					if fn.Type() == "identifier" || fn.Type() == "attribute" {
						decorators = append(decorators, nodeText(fn, content))
						break
					}
				}
			}
		}
	}
	return decorators
}

// blockDocstring returns the docstring of a block node, if its first
// statement is a string expression.
func blockDocstring(block *sitter.Node, content []byte) string {
	if block.ChildCount() == 0 {
		return ""
	}
	first := block.Child(0)
	if first.Type() == "expression_statement" && first.ChildCount() > 0 {
		strNode := first.Child(0)
		if strNode.Type() == "string" {
			return stringContent(strNode, content)
		}
	}
	return ""
}

// stringDelimiters are the Python quote forms, longest first so a
// triple-quoted string is not mistaken for a single-quoted one.
var stringDelimiters = []string{`"""`, "'''", `"`, "'"}

// stringContent strips the matched quote delimiter from a string node. Only
// the delimiter pair itself is removed: a docstring ending in a quoted word
// keeps its inner quote characters.
func stringContent(node *sitter.Node, content []byte) string {
	raw := nodeText(node, content)
	for _, q := range stringDelimiters {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			raw = raw[len(q) : len(raw)-len(q)]
			break
		}
	}
	return strings.TrimSpace(raw)
}

func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

var whitespaceReplacer = strings.NewReplacer("\n", " ", "\t", " ")

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(whitespaceReplacer.Replace(s)), " ")
}
