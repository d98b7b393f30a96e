// Package tag recognises version directives written as Go comments and
// extracts them from the decorations dst attaches to every node.
//
// A directive is the marker name followed by a parenthesised list of Go
// string literals, written as a line or block comment:
//
//	//versioned("1.4")
//	/*versioned("1.4")*/
//	//versioned("1.3", "1.4")
//
// Node tags take exactly one argument, a version requirement. The module
// directive above the package clause lists the target versions.
package tag

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/dave/dst"

	"github.com/albertocavalcante/go-versioned/version"
)

// Marker is the directive name.
const Marker = "versioned"

// Sentinel errors for tag and directive failures.
var (
	// ErrInvalidRequirement indicates a node tag whose argument is not a
	// valid version requirement.
	ErrInvalidRequirement = errors.New("invalid requirement argument")

	// ErrDuplicateRequirement indicates a node carrying more than one
	// requirement tag.
	ErrDuplicateRequirement = errors.New("duplicate version requirement")

	// ErrMalformedDirective indicates a directive whose arguments are not a
	// comma separated list of string literals.
	ErrMalformedDirective = errors.New("malformed directive arguments")

	// ErrUnsupportedPosition indicates a tag that neither precedes nor
	// trails a node that can be tagged.
	ErrUnsupportedPosition = errors.New("tag does not annotate a taggable node")
)

// Directive is a parsed marker comment.
type Directive struct {
	// Comment is the raw comment text, including the comment delimiters.
	Comment string
	// Args holds the unquoted string arguments in order.
	Args []string
}

// Error reports a failure attributed to one comment. The comment text lets
// callers resolve the source position.
type Error struct {
	Comment string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Comment, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParseDirective reports whether comment is a marker directive and, if so,
// parses its arguments. A comment that merely starts with the marker word
// (e.g. "//versioned types below") is not a directive.
func ParseDirective(comment string) (*Directive, bool, error) {
	body, ok := directiveBody(comment)
	if !ok {
		return nil, false, nil
	}

	expr, err := parser.ParseExpr(body)
	if err != nil {
		return nil, true, &Error{Comment: comment, Err: fmt.Errorf("%w: %v", ErrMalformedDirective, err)}
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok || call.Ellipsis.IsValid() {
		return nil, true, &Error{Comment: comment, Err: ErrMalformedDirective}
	}
	if ident, ok := call.Fun.(*ast.Ident); !ok || ident.Name != Marker {
		return nil, true, &Error{Comment: comment, Err: ErrMalformedDirective}
	}

	d := &Directive{Comment: comment, Args: make([]string, 0, len(call.Args))}
	for _, arg := range call.Args {
		lit, ok := arg.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return nil, true, &Error{
				Comment: comment,
				Err:     fmt.Errorf("%w: expected string literal, found %T", ErrMalformedDirective, arg),
			}
		}
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, true, &Error{Comment: comment, Err: fmt.Errorf("%w: %v", ErrMalformedDirective, err)}
		}
		d.Args = append(d.Args, s)
	}
	return d, true, nil
}

// IsDirective reports whether comment is a marker directive, well formed
// or not.
func IsDirective(comment string) bool {
	_, ok := directiveBody(comment)
	return ok
}

// directiveBody strips the comment delimiters and returns the call text when
// the comment begins with the marker immediately followed by "(".
func directiveBody(comment string) (string, bool) {
	var body string
	switch {
	case strings.HasPrefix(comment, "//"):
		body = comment[2:]
	case strings.HasPrefix(comment, "/*") && strings.HasSuffix(comment, "*/") && len(comment) >= 4:
		body = comment[2 : len(comment)-2]
	default:
		return "", false
	}
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, Marker+"(") {
		return "", false
	}
	return body, true
}

// Extracted is a requirement removed from a node.
type Extracted struct {
	Requirement version.Requirement
	Comment     string
}

// Extract removes the requirement tag from decs and returns it, or nil when
// the node is untagged. Other comments are kept in their original order.
//
// The tag is consumed even when its argument is invalid; the returned error
// then wraps ErrInvalidRequirement.
func Extract(decs *dst.NodeDecs) (*Extracted, error) {
	if decs == nil {
		return nil, nil
	}

	var found []string
	var firstErr error
	keep := func(comment string) bool {
		d, ok, err := ParseDirective(comment)
		if !ok {
			return true
		}
		found = append(found, comment)
		if err != nil {
			if firstErr == nil {
				firstErr = &Error{Comment: comment, Err: fmt.Errorf("%w: %w", ErrInvalidRequirement, errors.Unwrap(err))}
			}
			return false
		}
		if len(d.Args) != 1 {
			if firstErr == nil {
				firstErr = &Error{
					Comment: comment,
					Err:     fmt.Errorf("%w: expected exactly one argument, found %d", ErrInvalidRequirement, len(d.Args)),
				}
			}
		}
		return false
	}

	decs.Start = filterDecorations(decs.Start, keep)
	decs.End = filterDecorations(decs.End, keep)

	if firstErr != nil {
		return nil, firstErr
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, &Error{
			Comment: found[1],
			Err:     fmt.Errorf("%w: node has %d requirement tags", ErrDuplicateRequirement, len(found)),
		}
	}

	d, _, _ := ParseDirective(found[0])
	req, err := version.ParseRequirement(d.Args[0])
	if err != nil {
		return nil, &Error{Comment: found[0], Err: fmt.Errorf("%w: %w", ErrInvalidRequirement, err)}
	}
	return &Extracted{Requirement: req, Comment: found[0]}, nil
}

// StripDirectives removes every marker directive from decs and returns the
// directives found, in order. Malformed directives are reported and removed.
func StripDirectives(decs *dst.NodeDecs) ([]*Directive, error) {
	if decs == nil {
		return nil, nil
	}

	var found []*Directive
	var firstErr error
	keep := func(comment string) bool {
		d, ok, err := ParseDirective(comment)
		if !ok {
			return true
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if d != nil {
			found = append(found, d)
		}
		return false
	}

	decs.Start = filterDecorations(decs.Start, keep)
	decs.End = filterDecorations(decs.End, keep)
	return found, firstErr
}

// Strip returns decs without its marker directives.
func Strip(decs dst.Decorations) dst.Decorations {
	return filterDecorations(decs, func(comment string) bool {
		return !IsDirective(comment)
	})
}

func filterDecorations(decs dst.Decorations, keep func(string) bool) dst.Decorations {
	if len(decs) == 0 {
		return decs
	}
	out := decs[:0:0]
	for _, d := range decs {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
