package manifest

import (
	"fmt"
	"os"
	"slices"

	"github.com/bazelbuild/buildtools/build"

	"github.com/albertocavalcante/go-versioned/internal/buildutil"
	"github.com/albertocavalcante/go-versioned/version"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     Position
	Message string
	Wrapped error
}

func (e *ParseError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Wrapped
}

// ParseResult contains the parsed manifest and any diagnostics.
type ParseResult struct {
	Manifest *Manifest
	Errors   []*ParseError
	Warnings []*ParseError
}

// HasErrors returns true if there were parse errors.
func (r *ParseResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err returns the first error, or nil.
func (r *ParseResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

const ruleName = "versioned_package"

var knownAttrs = []string{"name", "src", "versions", "out", "prune_imports"}

// Parser parses VERSIONED manifests.
type Parser struct {
	filename string
	errors   []*ParseError
	warnings []*ParseError
}

// ParseFile reads and parses a manifest from disk.
func ParseFile(filename string) (*ParseResult, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return ParseContent(filename, data)
}

// ParseContent parses manifest content from bytes. Syntax errors are
// returned as a *ParseError; semantic problems are collected in the result.
func ParseContent(filename string, content []byte) (*ParseResult, error) {
	p := &Parser{filename: filename}
	return p.parse(content)
}

func (p *Parser) parse(content []byte) (*ParseResult, error) {
	raw, err := build.ParseBuild(p.filename, content)
	if err != nil {
		return nil, &ParseError{
			Pos:     Position{Filename: p.filename},
			Message: fmt.Sprintf("syntax error: %v", err),
			Wrapped: err,
		}
	}

	m := &Manifest{Path: p.filename, raw: raw}
	seen := make(map[string]Position)
	for _, stmt := range raw.Stmt {
		t := p.parseStatement(stmt)
		if t == nil {
			continue
		}
		if prev, dup := seen[t.Name]; dup {
			p.addError(t.Pos, "%s: duplicate name %q, first declared at %s", ruleName, t.Name, prev)
			continue
		}
		seen[t.Name] = t.Pos
		m.Targets = append(m.Targets, t)
	}

	return &ParseResult{
		Manifest: m,
		Errors:   p.errors,
		Warnings: p.warnings,
	}, nil
}

func (p *Parser) parseStatement(expr build.Expr) *Target {
	if _, ok := expr.(*build.CommentBlock); ok {
		return nil
	}

	call, ok := expr.(*build.CallExpr)
	if !ok {
		p.addWarning(p.position(expr), "ignoring statement that is not a rule call")
		return nil
	}
	pos := p.position(call)

	name := buildutil.FuncName(call)
	if name != ruleName {
		p.addWarning(pos, "unknown rule %q", name)
		return nil
	}
	return p.parseTarget(call, pos)
}

func (p *Parser) parseTarget(call *build.CallExpr, pos Position) *Target {
	t := &Target{
		Pos:          pos,
		Name:         buildutil.String(call, "name"),
		Src:          buildutil.String(call, "src"),
		Out:          buildutil.String(call, "out"),
		PruneImports: buildutil.Bool(call, "prune_imports", true),
	}

	for _, attr := range buildutil.Names(call) {
		if !slices.Contains(knownAttrs, attr) {
			p.addWarning(pos, "%s: unknown attribute %q", ruleName, attr)
		}
	}

	if t.Name == "" {
		p.addError(pos, "%s: missing required 'name' attribute", ruleName)
		return nil
	}
	if t.Src == "" {
		p.addError(pos, "%s(%s): missing required 'src' attribute", ruleName, t.Name)
		return nil
	}

	if _, ok := buildutil.Attr(call, "versions"); ok && !buildutil.IsNone(call, "versions") {
		versions, invalid := buildutil.StringList(call, "versions")
		for _, expr := range invalid {
			p.addError(p.position(expr), "%s(%s): versions must be a list of strings", ruleName, t.Name)
		}
		for _, v := range versions {
			if _, err := version.Parse(v); err != nil {
				p.errors = append(p.errors, &ParseError{
					Pos:     pos,
					Message: fmt.Sprintf("%s(%s): %v", ruleName, t.Name, err),
					Wrapped: err,
				})
			}
		}
		if versions == nil {
			versions = []string{}
		}
		t.Versions = versions
	}
	return t
}

// Helper methods for diagnostics

func (p *Parser) position(expr build.Expr) Position {
	start, _ := expr.Span()
	return Position{
		Filename: p.filename,
		Line:     start.Line,
		Column:   start.LineRune,
	}
}

func (p *Parser) addError(pos Position, format string, args ...any) {
	p.errors = append(p.errors, &ParseError{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *Parser) addWarning(pos Position, format string, args ...any) {
	p.warnings = append(p.warnings, &ParseError{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}
