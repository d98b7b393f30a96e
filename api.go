// Package versioned generates one Go package per API version from a single
// annotated source file.
//
// Declarations, struct and interface members, statements, expressions,
// composite literal elements and switch clauses can be tagged with a
// version requirement written as a comment directive:
//
//	//versioned("1.3", "1.4")
//	package schema
//
//	type Volume struct {
//	    UID string
//	    //versioned("1.4")
//	    Remote bool
//	    Mode string //versioned("1.5")
//	}
//
// For every target version the tagged nodes that do not apply are removed,
// or replaced by a neutral stand-in where removal would break the
// surrounding code, and the result is emitted as package v1_3, v1_4 and so
// on. Untagged code appears unchanged in every version.
//
// # Quick Start
//
//	// Versions from the module directive
//	pkgs, err := versioned.GenerateFile("schema/schema.go", nil)
//
//	// Explicit versions
//	pkgs, err := versioned.GenerateFile("schema/schema.go", []string{"1.4", "1.5"})
//
//	// Write v1_4/schema.go and v1_5/schema.go next to the input
//	paths, err := versioned.WriteFiles(pkgs, "schema")
//
// # Tag Placement
//
// A tag annotates the node that follows it, whether on its own line or
// inline before the node. A line comment after code, or a block comment
// that closes its line, annotates the node that ends just before it:
//
//	out := []any{uid, /*versioned("1.4")*/ remote}
//	return /*versioned("1.5")*/ v.Mode
//	case "remote": //versioned("1.4")
//
// Tags that annotate nothing the filter can remove, such as a tag on a
// parameter, are reported as errors.
//
// # Thread Safety
//
// A Module is read-only after parsing and may be emitted concurrently.
package versioned

import (
	"fmt"
	"path/filepath"

	"github.com/dave/dst"

	"github.com/albertocavalcante/go-versioned/filter"
	"github.com/albertocavalcante/go-versioned/tag"
	"github.com/albertocavalcante/go-versioned/version"
)

// Package is the module filtered for one version.
type Package struct {
	// Version is the target version.
	Version version.Version

	// Name is the package name, v<major>_<minor>.
	Name string

	// Visibility is inherited from the module.
	Visibility Visibility

	// Filename is the base name of the module file.
	Filename string

	// File is the filtered tree.
	File *dst.File
}

// Generate emits the module for each target version. When targets is nil the
// versions listed by the module directive are used. All versions are parsed
// before any filtering; the first failure is returned as an *Error and no
// packages are returned.
func Generate(mod *Module, targets []string, opts ...Option) ([]*Package, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if mod.Empty() {
		return nil, newError(mod.Pos(), ErrEmptyModule)
	}

	var versions []version.Version
	if targets == nil {
		versions, err = mod.Targets()
	} else {
		versions, err = version.ParseList(targets)
	}
	if err != nil {
		return nil, newError(mod.Pos(), err)
	}
	return emit(mod, versions, cfg)
}

// GenerateFile parses filename and calls Generate.
func GenerateFile(filename string, targets []string, opts ...Option) ([]*Package, error) {
	mod, err := ParseFile(filename)
	if err != nil {
		return nil, err
	}
	return Generate(mod, targets, opts...)
}

// Emit filters a fresh copy of the module for each version, in order.
// Emitted packages share no nodes with each other. Emission stops at the
// first error and then returns no packages.
func Emit(mod *Module, targets []version.Version, opts ...Option) ([]*Package, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return emit(mod, targets, cfg)
}

func emit(mod *Module, targets []version.Version, cfg *config) ([]*Package, error) {
	pkgs := make([]*Package, 0, len(targets))
	for _, v := range targets {
		pkg, err := emitVersion(mod, v, cfg)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

func emitVersion(mod *Module, v version.Version, cfg *config) (*Package, error) {
	logger := cfg.log().With(
		"module", mod.Filename,
		"version", v.String())

	file, loc, err := mod.decorate()
	if err != nil {
		return nil, err
	}

	f := filter.New(v, filter.WithLocator(loc), filter.WithLogger(logger))
	decls, err := f.Decls(file.Decls)
	if err != nil {
		return nil, newError(mod.Pos(), err)
	}
	file.Decls = decls

	if _, err := tag.StripDirectives(&file.Decs.NodeDecs); err != nil {
		return nil, newError(mod.Pos(), err)
	}
	base := filepath.Base(mod.Filename)
	if cfg.generatedHeader {
		header := fmt.Sprintf("// Code generated by versioned from %s; DO NOT EDIT.", base)
		file.Decs.Start = append(dst.Decorations{header, "\n"}, file.Decs.Start...)
	}
	file.Name.Name = v.Ident()

	logger.Debug("emitted package", "package", v.Ident(), "decls", len(decls))
	return &Package{
		Version:    v,
		Name:       v.Ident(),
		Visibility: mod.Visibility,
		Filename:   base,
		File:       file,
	}, nil
}
