// Package manifest parses VERSIONED files, the Starlark manifests that list
// which annotated Go files to generate and for which versions.
//
// A manifest holds one versioned_package call per module:
//
//	versioned_package(
//	    name = "schema",
//	    src = "schema/schema.go",
//	    versions = ["1.3", "1.4"],
//	    out = "schema",
//	    prune_imports = True,
//	)
//
// Only name and src are required. Without versions the module directive is
// used; without out the packages are written next to src.
package manifest

import (
	"fmt"
	"path/filepath"

	"github.com/bazelbuild/buildtools/build"
)

// DefaultFilename is the manifest file name looked up by the CLI.
const DefaultFilename = "VERSIONED"

// Position represents a source position for diagnostics.
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Manifest is a parsed VERSIONED file.
type Manifest struct {
	// Path is the manifest file path.
	Path string

	// Targets lists the versioned_package calls in source order.
	Targets []*Target

	raw *build.File
}

// Raw returns the underlying buildtools File for advanced use cases.
func (m *Manifest) Raw() *build.File {
	return m.raw
}

// Dir returns the directory relative paths in the manifest resolve against.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// Lookup returns the target with the given name.
func (m *Manifest) Lookup(name string) (*Target, bool) {
	for _, t := range m.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Target is one versioned_package declaration.
type Target struct {
	Pos  Position
	Name string

	// Src is the annotated Go file, relative to the manifest.
	Src string

	// Versions lists the target versions. Nil means the module directive
	// decides.
	Versions []string

	// Out is the output directory, relative to the manifest. Empty means the
	// directory of Src.
	Out string

	// PruneImports drops imports left unused in the emitted files.
	PruneImports bool
}

// SrcPath returns the source path resolved against dir.
func (t *Target) SrcPath(dir string) string {
	return resolve(dir, t.Src)
}

// OutDir returns the output directory resolved against dir.
func (t *Target) OutDir(dir string) string {
	if t.Out == "" {
		return filepath.Dir(t.SrcPath(dir))
	}
	return resolve(dir, t.Out)
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}
