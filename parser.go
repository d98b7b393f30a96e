package versioned

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"

	"github.com/albertocavalcante/go-versioned/filter"
	"github.com/albertocavalcante/go-versioned/tag"
	"github.com/albertocavalcante/go-versioned/version"
)

// Visibility is the import visibility of a module, which emitted packages
// inherit when written next to it.
type Visibility int

const (
	// Public modules can be imported from anywhere.
	Public Visibility = iota
	// Internal modules live under an internal/ directory.
	Internal
)

func (v Visibility) String() string {
	if v == Internal {
		return "internal"
	}
	return "public"
}

func visibilityOf(filename string) Visibility {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(filename)), "/") {
		if part == "internal" {
			return Internal
		}
	}
	return Public
}

// Module is a parsed annotated Go source file. The source is retained so
// that every emitted version works on its own copy of the tree.
type Module struct {
	// Filename is the path the module was read from.
	Filename string

	// Name is the package name declared by the module.
	Name string

	// Visibility is derived from the module's path.
	Visibility Visibility

	src  []byte
	fset *token.FileSet
	file *ast.File
}

// ParseFile reads and parses an annotated Go source file from disk.
func ParseFile(filename string) (*Module, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read module file: %w", err)
	}
	return ParseSource(filename, src)
}

// ParseSource parses annotated Go source. Syntax errors are returned as an
// *Error wrapping ErrSyntax.
func ParseSource(filename string, src []byte) (*Module, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, syntaxError(err)
	}
	return &Module{
		Filename:   filename,
		Name:       file.Name.Name,
		Visibility: visibilityOf(filename),
		src:        src,
		fset:       fset,
		file:       file,
	}, nil
}

func syntaxError(err error) *Error {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		wrapped := fmt.Errorf("%w: %s", ErrSyntax, list[0].Msg)
		return &Error{Pos: list[0].Pos, Message: wrapped.Error(), Wrapped: wrapped}
	}
	wrapped := fmt.Errorf("%w: %v", ErrSyntax, err)
	return &Error{Message: wrapped.Error(), Wrapped: wrapped}
}

// Empty reports whether the module declares nothing.
func (m *Module) Empty() bool {
	return len(m.file.Decls) == 0
}

// Pos returns the position of the package clause.
func (m *Module) Pos() token.Position {
	return m.fset.Position(m.file.Package)
}

// Targets returns the versions listed by the module directive, the
// comment above the package clause. The versions are returned in directive
// order.
func (m *Module) Targets() ([]version.Version, error) {
	args, pos, err := m.directive()
	if err != nil {
		return nil, err
	}
	versions, err := version.ParseList(args)
	if err != nil {
		return nil, newError(pos, err)
	}
	return versions, nil
}

// directive finds the module directive among the comments preceding the
// package clause.
func (m *Module) directive() ([]string, token.Position, error) {
	var found *tag.Directive
	var foundPos token.Position
	for _, group := range m.file.Comments {
		if group.End() >= m.file.Package {
			break
		}
		for _, c := range group.List {
			d, ok, err := tag.ParseDirective(c.Text)
			if !ok {
				continue
			}
			pos := m.fset.Position(c.Pos())
			if err != nil {
				var tagErr *tag.Error
				if errors.As(err, &tagErr) {
					err = tagErr.Err
				}
				return nil, pos, newError(pos, err)
			}
			if found != nil {
				err := fmt.Errorf("%w: second module directive", tag.ErrMalformedDirective)
				return nil, pos, newError(pos, err)
			}
			found, foundPos = d, pos
		}
	}
	if found == nil {
		return nil, m.Pos(), newError(m.Pos(), ErrMissingDirective)
	}
	return found.Args, foundPos, nil
}

// decorate parses the retained source again and returns an independent dst
// tree, with every tag bound to the node it annotates, together with a
// locator for its tag comments.
func (m *Module) decorate() (*dst.File, *locator, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, m.Filename, m.src, parser.ParseComments)
	if err != nil {
		return nil, nil, syntaxError(err)
	}
	dec := decorator.NewDecorator(fset)
	f, err := dec.DecorateFile(file)
	if err != nil {
		return nil, nil, fmt.Errorf("decorate %s: %w", m.Filename, err)
	}
	if err := filter.Attach(dec, f, m.src); err != nil {
		return nil, nil, newError(m.Pos(), err)
	}
	return f, &locator{fset: fset, file: file, nodes: dec.Map.Ast.Nodes}, nil
}

// locator maps tag comments on dst nodes back to source positions.
type locator struct {
	fset  *token.FileSet
	file  *ast.File
	nodes map[dst.Node]ast.Node
}

// Locate returns the position of the comment with the given text closest to
// the node's source span.
func (l *locator) Locate(node dst.Node, comment string) token.Position {
	lo, hi := token.NoPos, token.NoPos
	if n, ok := l.nodes[node]; ok {
		lo, hi = n.Pos(), n.End()
	}

	best, bestDist := token.NoPos, -1
	for _, group := range l.file.Comments {
		for _, c := range group.List {
			if c.Text != comment {
				continue
			}
			d := distance(c.Pos(), lo, hi)
			if bestDist < 0 || d < bestDist {
				best, bestDist = c.Pos(), d
			}
		}
	}
	if !best.IsValid() {
		if lo.IsValid() {
			return l.fset.Position(lo)
		}
		return token.Position{}
	}
	return l.fset.Position(best)
}

func distance(p, lo, hi token.Pos) int {
	switch {
	case !lo.IsValid():
		return 0
	case p < lo:
		return int(lo - p)
	case p > hi:
		return int(p - hi)
	}
	return 0
}
