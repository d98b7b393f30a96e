package filter

import (
	"go/token"
	"reflect"

	"github.com/dave/dst"

	"github.com/albertocavalcante/go-versioned/tag"
)

// emptyDecl returns the stand-in for a removed declaration. Imports must
// precede every other declaration, so an import is replaced by import ().
func emptyDecl(decl dst.Decl) dst.Decl {
	tok := token.VAR
	if g, ok := decl.(*dst.GenDecl); ok && g.Tok == token.IMPORT {
		tok = token.IMPORT
	}
	d := &dst.GenDecl{Tok: tok, Lparen: true, Rparen: true}
	keepSpacing(decl, d)
	return d
}

// emptyStmt returns the empty block that replaces a removed statement.
func emptyStmt(stmt dst.Stmt) dst.Stmt {
	b := &dst.BlockStmt{}
	keepSpacing(stmt, b)
	return b
}

// emptyValue returns struct{}{}, the value that replaces a removed
// expression.
func emptyValue() dst.Expr {
	return &dst.CompositeLit{
		Type: &dst.StructType{
			Fields: &dst.FieldList{Opening: true, Closing: true},
		},
	}
}

func keepSpacing(from, to dst.Node) {
	src, dstDecs := from.Decorations(), to.Decorations()
	dstDecs.Before = src.Before
	dstDecs.After = src.After
}

// isValueExpr reports whether n is one of the expression forms that can be
// tagged. Type expressions and key/value pairs are not.
func isValueExpr(n dst.Node) bool {
	switch n.(type) {
	case *dst.BasicLit,
		*dst.BinaryExpr,
		*dst.CallExpr,
		*dst.CompositeLit,
		*dst.FuncLit,
		*dst.Ident,
		*dst.IndexExpr,
		*dst.IndexListExpr,
		*dst.ParenExpr,
		*dst.SelectorExpr,
		*dst.SliceExpr,
		*dst.StarExpr,
		*dst.TypeAssertExpr,
		*dst.UnaryExpr:
		return true
	}
	return false
}

var exprType = reflect.TypeOf((*dst.Expr)(nil)).Elem()

// inExprSlot reports whether name is a field of parent that accepts any
// expression, so that struct{}{} can take its place. Name fields typed
// *dst.Ident and type positions are excluded.
func inExprSlot(parent dst.Node, name string) bool {
	if name == "Type" {
		return false
	}
	switch parent.(type) {
	case *dst.ArrayType, *dst.ChanType, *dst.MapType, *dst.Ellipsis:
		return false
	}

	v := reflect.ValueOf(parent)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	elem := v.Elem()
	if elem.Kind() != reflect.Struct {
		return false
	}
	field := elem.FieldByName(name)
	if !field.IsValid() {
		return false
	}
	t := field.Type()
	if t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t == exprType
}

// taggable reports whether the filter consults the tag of n, found in field
// name of parent. grand is the parent's parent and tells struct and
// interface members apart from parameters.
func taggable(grand, parent dst.Node, name string, n dst.Node) bool {
	switch p := parent.(type) {
	case *dst.File:
		return name == "Decls"
	case *dst.FieldList:
		switch grand.(type) {
		case *dst.StructType, *dst.InterfaceType:
			return name == "List"
		}
		return false
	case *dst.GenDecl:
		return name == "Specs" && p.Lparen
	case *dst.BlockStmt:
		return name == "List"
	case *dst.CaseClause, *dst.CommClause:
		if name == "Body" {
			return true
		}
	case *dst.CompositeLit:
		if name == "Elts" {
			return true
		}
	}
	return isValueExpr(n) && inExprSlot(parent, name)
}

var decorationsType = reflect.TypeOf(dst.Decorations(nil))

// sweep removes every tag from the decorations of the nodes below file. The
// file's own decorations hold the module directive and are left alone.
func sweep(file *dst.File) {
	dst.Inspect(file, func(n dst.Node) bool {
		if n == nil {
			return false
		}
		if n != dst.Node(file) {
			stripTags(reflect.ValueOf(n).Elem().FieldByName("Decs"))
		}
		return true
	})
}

func stripTags(v reflect.Value) {
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch {
		case field.Type() == decorationsType:
			field.Set(reflect.ValueOf(tag.Strip(field.Interface().(dst.Decorations))))
		case field.Kind() == reflect.Struct:
			stripTags(field)
		}
	}
}
