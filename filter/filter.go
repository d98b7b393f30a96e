// Package filter removes or neutralizes tagged nodes of a Go syntax tree that
// do not apply to one target version.
//
// Each node kind has its own policy on mismatch:
//
//   - struct and interface members, composite literal elements, switch and
//     select clauses, and specs of grouped declarations are dropped from
//     their list;
//   - statements are replaced by an empty block so the enclosing statement
//     list keeps its length;
//   - value expressions are replaced by the empty value struct{}{};
//   - top-level declarations are replaced by an empty declaration, var ()
//     or import () for import declarations.
//
// A node whose tag matches, and any untagged node, is kept and its children
// are filtered in turn. Tags are read from a node's leading decorations only;
// Attach moves every tag there first and rejects tags on any other node.
package filter

import (
	"errors"
	"fmt"
	"go/token"
	"log/slog"

	"github.com/dave/dst"
	"github.com/dave/dst/dstutil"

	"github.com/albertocavalcante/go-versioned/tag"
	"github.com/albertocavalcante/go-versioned/version"
)

// Locator resolves the source position of a tag comment attached to a node.
type Locator interface {
	Locate(node dst.Node, comment string) token.Position
}

// Error is a tag failure with its source position.
type Error struct {
	Pos token.Position
	Err error
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %v", e.Pos, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Option configures a Filter.
type Option func(*Filter)

// WithLocator sets the locator used to position errors.
func WithLocator(l Locator) Option {
	return func(f *Filter) {
		f.locator = l
	}
}

// WithLogger sets a logger that receives one debug record per removed or
// neutralized node.
func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) {
		if l != nil {
			f.logger = l
		}
	}
}

// Filter filters syntax trees for one target version.
// A Filter holds no state between calls and may be reused for every
// declaration of a file.
type Filter struct {
	version version.Version
	locator Locator
	logger  *slog.Logger
}

// New returns a Filter for the target version v.
func New(v version.Version, opts ...Option) *Filter {
	f := &Filter{
		version: v,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Version returns the target version.
func (f *Filter) Version() version.Version {
	return f.version
}

// Decl filters one top-level declaration. The declaration is modified in
// place; the returned declaration is either decl itself or its empty
// replacement.
func (f *Filter) Decl(decl dst.Decl) (dst.Decl, error) {
	keep, err := f.keep(decl)
	if err != nil {
		return nil, err
	}
	if !keep {
		f.trace("declaration", decl)
		return emptyDecl(decl), nil
	}
	if err := f.walk(decl); err != nil {
		return nil, err
	}
	return decl, nil
}

// Decls filters every declaration in order and stops at the first error.
func (f *Filter) Decls(decls []dst.Decl) ([]dst.Decl, error) {
	out := make([]dst.Decl, 0, len(decls))
	for _, d := range decls {
		filtered, err := f.Decl(d)
		if err != nil {
			return nil, err
		}
		out = append(out, filtered)
	}
	return out, nil
}

// keep extracts the node's requirement tag and reports whether the node
// applies to the target version. Untagged nodes are always kept.
func (f *Filter) keep(n dst.Node) (bool, error) {
	extracted, err := tag.Extract(n.Decorations())
	if err != nil {
		return false, f.wrap(n, err)
	}
	if extracted == nil {
		return true, nil
	}
	return extracted.Requirement.Matches(f.version), nil
}

func (f *Filter) wrap(n dst.Node, err error) error {
	var tagErr *tag.Error
	if !errors.As(err, &tagErr) {
		return err
	}
	pos := token.Position{}
	if f.locator != nil {
		pos = f.locator.Locate(n, tagErr.Comment)
	}
	return &Error{Pos: pos, Err: tagErr.Err}
}

func (f *Filter) trace(kind string, n dst.Node) {
	f.logger.Debug("removed node",
		slog.String("kind", kind),
		slog.String("node", fmt.Sprintf("%T", n)),
		slog.String("version", f.version.String()))
}

// walk filters the children of a kept node. The traversal stops descending
// as soon as an error is recorded and the error is returned to the caller.
func (f *Filter) walk(root dst.Node) error {
	var err error
	pre := func(c *dstutil.Cursor) bool {
		if err != nil {
			return false
		}
		n := c.Node()
		if n == nil {
			return false
		}
		if n != root && isValueExpr(n) && inExprSlot(c.Parent(), c.Name()) {
			keep, kerr := f.keep(n)
			if kerr != nil {
				err = kerr
				return false
			}
			if !keep {
				f.trace("expression", n)
				c.Replace(emptyValue())
				return false
			}
		}
		if lerr := f.filterLists(n); lerr != nil {
			err = lerr
			return false
		}
		return true
	}
	dstutil.Apply(root, pre, nil)
	return err
}

// filterLists applies the list policies to the direct children of n.
func (f *Filter) filterLists(n dst.Node) error {
	var err error
	switch n := n.(type) {
	case *dst.StructType:
		err = f.filterFields(n.Fields)
	case *dst.InterfaceType:
		err = f.filterFields(n.Methods)
	case *dst.CompositeLit:
		n.Elts, err = retain(f, "literal element", n.Elts)
	case *dst.GenDecl:
		if n.Lparen {
			n.Specs, err = retain(f, "spec", n.Specs)
		}
	case *dst.BlockStmt:
		n.List, err = f.filterStmts(n.List)
	case *dst.CaseClause:
		n.Body, err = f.filterStmts(n.Body)
	case *dst.CommClause:
		n.Body, err = f.filterStmts(n.Body)
	}
	return err
}

func (f *Filter) filterFields(list *dst.FieldList) error {
	if list == nil {
		return nil
	}
	var err error
	list.List, err = retain(f, "field", list.List)
	return err
}

// filterStmts drops non-matching switch and select clauses and replaces
// every other non-matching statement with an empty block.
func (f *Filter) filterStmts(stmts []dst.Stmt) ([]dst.Stmt, error) {
	out := stmts[:0]
	for _, s := range stmts {
		keep, err := f.keep(s)
		if err != nil {
			return nil, err
		}
		switch {
		case keep:
			out = append(out, s)
		case isClause(s):
			f.trace("clause", s)
		default:
			f.trace("statement", s)
			out = append(out, emptyStmt(s))
		}
	}
	return out, nil
}

// retain drops the non-matching nodes of a list.
func retain[T dst.Node](f *Filter, kind string, nodes []T) ([]T, error) {
	out := nodes[:0]
	for _, n := range nodes {
		keep, err := f.keep(n)
		if err != nil {
			return nil, err
		}
		if !keep {
			f.trace(kind, n)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func isClause(s dst.Stmt) bool {
	switch s.(type) {
	case *dst.CaseClause, *dst.CommClause:
		return true
	}
	return false
}
