package versioned

import (
	"go/token"
	"sort"

	"github.com/dave/dst"
)

// Symbol is one element of a package's surface: a top-level declaration or
// a struct field or interface method.
type Symbol struct {
	// Name is the declared name. Members and methods are qualified by their
	// type, e.g. "Volume.Remote".
	Name string `json:"name"`

	// Kind is one of "func", "method", "type", "var", "const", "field" or
	// "interface method".
	Kind string `json:"kind"`
}

// SurfaceDiff describes the symbols that differ between two emitted
// versions of the same module.
//
// Example usage:
//
//	pkgs, _ := versioned.GenerateFile("schema.go", []string{"1.4", "1.5"})
//	diff := versioned.DiffPackages(pkgs[0], pkgs[1])
//	for _, s := range diff.Added {
//	    fmt.Printf("+ %s %s\n", s.Kind, s.Name)
//	}
type SurfaceDiff struct {
	// From and To are the compared versions.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Added contains symbols present in new but not in old.
	Added []Symbol `json:"added,omitempty"`

	// Removed contains symbols present in old but not in new.
	Removed []Symbol `json:"removed,omitempty"`
}

// IsEmpty returns true if both packages expose the same symbols.
func (d *SurfaceDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// TotalChanges returns the number of added and removed symbols.
func (d *SurfaceDiff) TotalChanges() int {
	return len(d.Added) + len(d.Removed)
}

// DiffPackages compares the symbols of two packages. A nil package is
// treated as empty. Results are sorted by name.
func DiffPackages(old, new *Package) *SurfaceDiff {
	diff := &SurfaceDiff{}
	if old != nil {
		diff.From = old.Version.String()
	}
	if new != nil {
		diff.To = new.Version.String()
	}

	oldSymbols := surface(old)
	newSymbols := surface(new)

	for key, s := range newSymbols {
		if _, ok := oldSymbols[key]; !ok {
			diff.Added = append(diff.Added, s)
		}
	}
	for key, s := range oldSymbols {
		if _, ok := newSymbols[key]; !ok {
			diff.Removed = append(diff.Removed, s)
		}
	}

	sortSymbols(diff.Added)
	sortSymbols(diff.Removed)
	return diff
}

// surface collects the symbols of pkg keyed by kind and name.
func surface(pkg *Package) map[Symbol]Symbol {
	symbols := make(map[Symbol]Symbol)
	if pkg == nil || pkg.File == nil {
		return symbols
	}
	add := func(name, kind string) {
		if name == "" || name == "_" {
			return
		}
		s := Symbol{Name: name, Kind: kind}
		symbols[s] = s
	}

	for _, decl := range pkg.File.Decls {
		switch d := decl.(type) {
		case *dst.FuncDecl:
			if recv := receiverName(d); recv != "" {
				add(recv+"."+d.Name.Name, "method")
			} else {
				add(d.Name.Name, "func")
			}
		case *dst.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *dst.TypeSpec:
					add(s.Name.Name, "type")
					members(s, add)
				case *dst.ValueSpec:
					kind := "var"
					if d.Tok == token.CONST {
						kind = "const"
					}
					for _, n := range s.Names {
						add(n.Name, kind)
					}
				}
			}
		}
	}
	return symbols
}

func members(s *dst.TypeSpec, add func(name, kind string)) {
	var list *dst.FieldList
	kind := "field"
	switch t := s.Type.(type) {
	case *dst.StructType:
		list = t.Fields
	case *dst.InterfaceType:
		list, kind = t.Methods, "interface method"
	}
	if list == nil {
		return
	}
	for _, f := range list.List {
		if len(f.Names) == 0 {
			if name := embeddedName(f.Type); name != "" {
				add(s.Name.Name+"."+name, kind)
			}
			continue
		}
		for _, n := range f.Names {
			add(s.Name.Name+"."+n.Name, kind)
		}
	}
}

func receiverName(fn *dst.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	return embeddedName(fn.Recv.List[0].Type)
}

// embeddedName returns the type name of an embedded field or receiver.
func embeddedName(e dst.Expr) string {
	switch t := e.(type) {
	case *dst.Ident:
		return t.Name
	case *dst.StarExpr:
		return embeddedName(t.X)
	case *dst.SelectorExpr:
		return t.Sel.Name
	case *dst.IndexExpr:
		return embeddedName(t.X)
	case *dst.IndexListExpr:
		return embeddedName(t.X)
	}
	return ""
}

// sortSymbols sorts symbols by name, then kind.
func sortSymbols(symbols []Symbol) {
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Name != symbols[j].Name {
			return symbols[i].Name < symbols[j].Name
		}
		return symbols[i].Kind < symbols[j].Kind
	})
}
