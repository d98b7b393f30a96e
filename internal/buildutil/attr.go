// Package buildutil provides utilities for extracting attributes from
// buildtools AST nodes.
package buildutil

import (
	"github.com/bazelbuild/buildtools/build"
)

// Attr returns the value of the named attribute of a function call.
func Attr(call *build.CallExpr, name string) (build.Expr, bool) {
	for _, arg := range call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			continue
		}
		lhs, ok := assign.LHS.(*build.Ident)
		if !ok || lhs.Name != name {
			continue
		}
		return assign.RHS, true
	}
	return nil, false
}

// Names returns the attribute names of a call in source order.
func Names(call *build.CallExpr) []string {
	var names []string
	for _, arg := range call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			continue
		}
		if lhs, ok := assign.LHS.(*build.Ident); ok {
			names = append(names, lhs.Name)
		}
	}
	return names
}

// String extracts a string attribute from a function call by name.
// If name is empty and the call has positional arguments, returns the first
// positional string argument.
// Returns empty string if the attribute is not found or not a string.
func String(call *build.CallExpr, name string) string {
	if name == "" && len(call.List) > 0 {
		if str, ok := call.List[0].(*build.StringExpr); ok {
			return str.Value
		}
		return ""
	}

	if expr, ok := Attr(call, name); ok {
		if str, ok := expr.(*build.StringExpr); ok {
			return str.Value
		}
	}
	return ""
}

// Bool extracts a boolean attribute from a function call by name.
// Returns def if the attribute is not found or not True/False.
func Bool(call *build.CallExpr, name string, def bool) bool {
	expr, ok := Attr(call, name)
	if !ok {
		return def
	}
	if ident, ok := expr.(*build.Ident); ok {
		switch ident.Name {
		case "True":
			return true
		case "False":
			return false
		}
	}
	return def
}

// IsNone returns true if the named attribute exists and is set to None.
func IsNone(call *build.CallExpr, name string) bool {
	expr, ok := Attr(call, name)
	if !ok {
		return false
	}
	ident, ok := expr.(*build.Ident)
	return ok && ident.Name == "None"
}

// StringList extracts a list of strings attribute from a function call by name.
// Returns nil if the attribute is not found or not a list.
// The second result reports elements that are not string literals.
func StringList(call *build.CallExpr, name string) ([]string, []build.Expr) {
	expr, ok := Attr(call, name)
	if !ok {
		return nil, nil
	}
	list, ok := expr.(*build.ListExpr)
	if !ok {
		return nil, []build.Expr{expr}
	}
	result := make([]string, 0, len(list.List))
	var invalid []build.Expr
	for _, elem := range list.List {
		if str, ok := elem.(*build.StringExpr); ok {
			result = append(result, str.Value)
		} else {
			invalid = append(invalid, elem)
		}
	}
	return result, invalid
}

// FuncName returns the function name from a CallExpr.
// Returns empty string if the call is not a simple function call
// (e.g., method calls like foo.bar()).
func FuncName(call *build.CallExpr) string {
	if ident, ok := call.X.(*build.Ident); ok {
		return ident.Name
	}
	return ""
}

// IsFuncCall returns true if the call is for the specified function name.
func IsFuncCall(call *build.CallExpr, name string) bool {
	return FuncName(call) == name
}
