package versioned

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/dst/decorator"
	"golang.org/x/tools/imports"
)

// Render prints a package as formatted Go source. Unless disabled with
// WithPruneImports(false), imports left unused by removed declarations are
// dropped.
func Render(pkg *Package, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return render(pkg, cfg)
}

func render(pkg *Package, cfg *config) ([]byte, error) {
	var buf bytes.Buffer
	if err := decorator.NewRestorer().Fprint(&buf, pkg.File); err != nil {
		return nil, fmt.Errorf("print %s/%s: %w", pkg.Name, pkg.Filename, err)
	}

	out, err := imports.Process(pkg.Filename, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: !cfg.pruneImports,
	})
	if err != nil {
		return nil, fmt.Errorf("format %s/%s: %w", pkg.Name, pkg.Filename, err)
	}
	return out, nil
}

// WriteFiles renders each package to outDir/<package name>/<file name> and
// returns the written paths in package order.
func WriteFiles(pkgs []*Package, outDir string, opts ...Option) ([]string, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	logger := cfg.log()

	paths := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		if pkg.Visibility == Internal && visibilityOf(outDir) != Internal {
			logger.Warn("internal module written outside an internal tree",
				"package", pkg.Name,
				"out", outDir)
		}

		data, err := render(pkg, cfg)
		if err != nil {
			return nil, err
		}
		dir := filepath.Join(outDir, pkg.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create package directory: %w", err)
		}
		path := filepath.Join(dir, pkg.Filename)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		logger.Debug("wrote package", "package", pkg.Name, "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}
