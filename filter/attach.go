package filter

import (
	"fmt"
	"go/ast"
	"go/scanner"
	"go/token"
	"sort"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/dstutil"

	"github.com/albertocavalcante/go-versioned/tag"
)

// Attach binds every tag of a decorated file to the node it annotates and
// moves it into that node's leading decorations, the only place the filter
// reads tags from. src is the source the file was parsed from.
//
// A tag annotates the taggable node starting at the first token after it:
//
//	Start(a, /*versioned("1.4")*/ b)
//	return /*versioned("1.4")*/ x
//
// A line comment after code on the same line, and a block comment closing
// its line, annotate the node ending at the last token before it; a
// separating comma is skipped, and after the colon of a case the tag
// annotates the whole clause:
//
//	Remote bool //versioned("1.4")
//	case "remote": //versioned("1.4")
//
// A tag that annotates no taggable node fails with an *Error wrapping
// tag.ErrUnsupportedPosition. Comments above the package clause are left
// alone.
func Attach(dec *decorator.Decorator, file *dst.File, src []byte) error {
	astFile, ok := dec.Map.Ast.Nodes[file].(*ast.File)
	if !ok {
		return fmt.Errorf("attach: file was not decorated by dec")
	}
	b := &binder{
		file:   dec.Fset.File(astFile.Package),
		tokens: lex(src),
	}
	b.collect(dec.Map.Ast.Nodes, file)

	type binding struct {
		node    dst.Node
		comment string
	}
	var bindings []binding
	for _, group := range astFile.Comments {
		for _, c := range group.List {
			if c.Pos() < astFile.Package || !tag.IsDirective(c.Text) {
				continue
			}
			target := b.target(c)
			if target == nil {
				return &Error{Pos: dec.Fset.Position(c.Pos()), Err: tag.ErrUnsupportedPosition}
			}
			bindings = append(bindings, binding{node: target.node, comment: c.Text})
		}
	}

	sweep(file)
	for _, bd := range bindings {
		decs := bd.node.Decorations()
		decs.Start = append(decs.Start, bd.comment)
	}
	return nil
}

// lexeme is one token of the source, by byte offset.
type lexeme struct {
	tok      token.Token
	off, end int
}

// lex returns the tokens of src without comments or inserted semicolons.
func lex(src []byte) []lexeme {
	fset := token.NewFileSet()
	file := fset.AddFile("", -1, len(src))
	var s scanner.Scanner
	s.Init(file, src, nil, 0)

	var out []lexeme
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			return out
		}
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		n := len(lit)
		if n == 0 {
			n = len(tok.String())
		}
		off := file.Offset(pos)
		out = append(out, lexeme{tok: tok, off: off, end: off + n})
	}
}

// candidate is a node whose tag the filter consults.
type candidate struct {
	node     dst.Node
	off, end int
	line     int
	depth    int
	colon    int // offset of a clause colon, -1 otherwise
}

type binder struct {
	file       *token.File
	tokens     []lexeme
	candidates []*candidate
}

// collect records the taggable nodes below root with their source spans.
func (b *binder) collect(nodes map[dst.Node]ast.Node, root *dst.File) {
	var stack []dst.Node
	pre := func(c *dstutil.Cursor) bool {
		n := c.Node()
		if n == nil {
			return false
		}
		var grand dst.Node
		if len(stack) > 1 {
			grand = stack[len(stack)-2]
		}
		if an, ok := nodes[n]; ok && taggable(grand, c.Parent(), c.Name(), n) {
			cand := &candidate{
				node:  n,
				off:   b.file.Offset(an.Pos()),
				end:   b.file.Offset(an.End()),
				line:  b.file.Line(an.Pos()),
				depth: len(stack),
				colon: -1,
			}
			switch an := an.(type) {
			case *ast.CaseClause:
				cand.colon = b.file.Offset(an.Colon)
			case *ast.CommClause:
				cand.colon = b.file.Offset(an.Colon)
			}
			b.candidates = append(b.candidates, cand)
		}
		stack = append(stack, n)
		return true
	}
	post := func(c *dstutil.Cursor) bool {
		stack = stack[:len(stack)-1]
		return true
	}
	dstutil.Apply(root, pre, post)
}

func (b *binder) line(off int) int {
	return b.file.Line(b.file.Pos(off))
}

// target returns the node annotated by the tag comment c, or nil.
func (b *binder) target(c *ast.Comment) *candidate {
	start, end := b.file.Offset(c.Pos()), b.file.Offset(c.End())
	next := sort.Search(len(b.tokens), func(i int) bool {
		return b.tokens[i].off >= end
	})
	prev := next - 1

	afterCode := prev >= 0 && b.line(b.tokens[prev].end) == b.line(start)
	beforeCode := next < len(b.tokens) && b.line(b.tokens[next].off) == b.line(end)
	trailing := afterCode && (strings.HasPrefix(c.Text, "//") || !beforeCode)

	if !trailing && next < len(b.tokens) {
		if t := b.startingAt(b.tokens[next].off); t != nil {
			return t
		}
	}
	if !afterCode {
		return nil
	}
	return b.endingAt(prev)
}

// startingAt returns the outermost candidate starting at off.
func (b *binder) startingAt(off int) *candidate {
	var best *candidate
	for _, c := range b.candidates {
		if c.off == off && (best == nil || c.depth < best.depth) {
			best = c
		}
	}
	return best
}

// endingAt returns the candidate that ends at token i. Of the nodes ending
// there, the one starting on the latest line wins, so a tag after the last
// statement of a clause annotates the statement; ties go to the outermost.
func (b *binder) endingAt(i int) *candidate {
	for i >= 0 && (b.tokens[i].tok == token.COMMA || b.tokens[i].tok == token.SEMICOLON) {
		i--
	}
	if i < 0 {
		return nil
	}
	tok := b.tokens[i]
	if tok.tok == token.COLON {
		for _, c := range b.candidates {
			if c.colon == tok.off {
				return c
			}
		}
		return nil
	}

	var best *candidate
	for _, c := range b.candidates {
		if c.end != tok.end {
			continue
		}
		switch {
		case best == nil,
			c.line > best.line,
			c.line == best.line && c.depth < best.depth:
			best = c
		}
	}
	return best
}
