// Package runner generates every target of a manifest and keeps the
// lockfile in step with what was written.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	versioned "github.com/albertocavalcante/go-versioned"
	"github.com/albertocavalcante/go-versioned/lockfile"
	"github.com/albertocavalcante/go-versioned/manifest"
)

// Options configures a Runner.
type Options struct {
	// Root is the directory lockfile paths are relative to. Empty means the
	// manifest directory.
	Root string

	// Concurrency bounds the targets generated at once. Zero means
	// GOMAXPROCS.
	Concurrency int

	// DisablePrune turns import pruning off regardless of the manifest.
	DisablePrune bool

	// NoHeader omits the generated-code header.
	NoHeader bool

	Logger *slog.Logger
}

// Runner drives generation for a manifest.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{opts: opts, logger: logger}
}

// Result is the outcome of generating one target.
type Result struct {
	Target *manifest.Target
	Paths  []string
	Entry  lockfile.Entry
}

// Generate emits and writes the named targets, or every target when names
// is empty, and returns a lockfile recording them. Targets run concurrently;
// the first failure cancels the rest.
func (r *Runner) Generate(ctx context.Context, m *manifest.Manifest, names ...string) (*lockfile.Lockfile, []Result, error) {
	targets, err := Select(m, names)
	if err != nil {
		return nil, nil, err
	}
	root := r.root(m)

	results := make([]Result, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.generate(m, root, t)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	lf := lockfile.New()
	for _, res := range results {
		lf.Set(res.Target.Name, res.Entry)
	}
	return lf, results, nil
}

func (r *Runner) generate(m *manifest.Manifest, root string, t *manifest.Target) (Result, error) {
	logger := r.logger.With("target", t.Name)
	src := t.SrcPath(m.Dir())
	opts := r.options(t, logger)

	data, err := os.ReadFile(src)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %s: %w", t.Pos, t.Name, err)
	}
	mod, err := versioned.ParseSource(src, data)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", t.Name, err)
	}
	pkgs, err := versioned.Generate(mod, t.Versions, opts...)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", t.Name, err)
	}
	paths, err := versioned.WriteFiles(pkgs, t.OutDir(m.Dir()), opts...)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", t.Name, err)
	}

	entry, err := r.entry(root, src, data, pkgs, paths)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", t.Name, err)
	}
	logger.Info("generated target", "packages", len(pkgs))
	return Result{Target: t, Paths: paths, Entry: entry}, nil
}

func (r *Runner) entry(root, src string, data []byte, pkgs []*versioned.Package, paths []string) (lockfile.Entry, error) {
	rel, err := lockfile.RelPath(root, src)
	if err != nil {
		return lockfile.Entry{}, err
	}
	e := lockfile.Entry{
		Src:      rel,
		SrcHash:  lockfile.HashContent(data),
		Versions: make([]string, 0, len(pkgs)),
		Outputs:  make(map[string]string, len(paths)),
	}
	for _, pkg := range pkgs {
		e.Versions = append(e.Versions, pkg.Version.String())
	}
	for _, path := range paths {
		out, err := os.ReadFile(path)
		if err != nil {
			return lockfile.Entry{}, err
		}
		rel, err := lockfile.RelPath(root, path)
		if err != nil {
			return lockfile.Entry{}, err
		}
		e.Outputs[rel] = lockfile.HashContent(out)
	}
	return e, nil
}

func (r *Runner) options(t *manifest.Target, logger *slog.Logger) []versioned.Option {
	return []versioned.Option{
		versioned.WithLogger(logger),
		versioned.WithPruneImports(t.PruneImports && !r.opts.DisablePrune),
		versioned.WithGeneratedHeader(!r.opts.NoHeader),
	}
}

func (r *Runner) root(m *manifest.Manifest) string {
	if r.opts.Root != "" {
		return r.opts.Root
	}
	return m.Dir()
}

// UpdateLockfile merges generated into the lockfile at path, dropping
// entries whose target is no longer in the manifest, and writes it back.
func (r *Runner) UpdateLockfile(path string, m *manifest.Manifest, generated *lockfile.Lockfile) error {
	lf := lockfile.New()
	if lockfile.Exists(path) {
		existing, err := lockfile.ReadFile(path)
		if err != nil {
			return err
		}
		lf = existing
	}

	before := lockfile.New()
	if err := before.Merge(lf, lockfile.DefaultMergeOptions()); err != nil {
		return err
	}
	if err := lf.Merge(generated, lockfile.DefaultMergeOptions()); err != nil {
		return err
	}
	for _, name := range lf.Names() {
		if _, ok := m.Lookup(name); !ok {
			lf.Remove(name)
		}
	}

	if diff := before.Diff(lf); !diff.IsEmpty() {
		r.logger.Info("lockfile updated",
			"added", len(diff.Added),
			"removed", len(diff.Removed),
			"changed", len(diff.Changed))
	}
	return lf.WriteFile(path)
}

// Check reports where the workspace differs from the lockfile and from a
// fresh in-memory generation. Nothing is written.
func (r *Runner) Check(ctx context.Context, m *manifest.Manifest, lf *lockfile.Lockfile) ([]lockfile.Drift, error) {
	root := r.root(m)

	drift, err := lf.Verify(root)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(drift))
	for _, d := range drift {
		seen[d.Target+"\x00"+d.Path] = true
	}
	add := func(d lockfile.Drift) {
		key := d.Target + "\x00" + d.Path
		if !seen[key] {
			seen[key] = true
			drift = append(drift, d)
		}
	}

	for _, t := range m.Targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := lf.Get(t.Name); !ok {
			add(lockfile.Drift{Target: t.Name, Path: filepath.ToSlash(t.Src), Kind: lockfile.DriftUnlocked})
		}

		stale, err := r.stale(m, root, t)
		if err != nil {
			return nil, err
		}
		for _, d := range stale {
			add(d)
		}
	}

	sort.Slice(drift, func(i, j int) bool {
		if drift[i].Target != drift[j].Target {
			return drift[i].Target < drift[j].Target
		}
		return drift[i].Path < drift[j].Path
	})
	return drift, nil
}

// stale regenerates t in memory and compares each file with the disk.
func (r *Runner) stale(m *manifest.Manifest, root string, t *manifest.Target) ([]lockfile.Drift, error) {
	logger := r.logger.With("target", t.Name)
	opts := r.options(t, logger)

	pkgs, err := versioned.GenerateFile(t.SrcPath(m.Dir()), t.Versions, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}

	var drift []lockfile.Drift
	outDir := t.OutDir(m.Dir())
	for _, pkg := range pkgs {
		want, err := versioned.Render(pkg, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		path := filepath.Join(outDir, pkg.Name, pkg.Filename)
		rel, err := lockfile.RelPath(root, path)
		if err != nil {
			return nil, err
		}

		got, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			drift = append(drift, lockfile.Drift{Target: t.Name, Path: rel, Kind: lockfile.DriftMissing})
		case err != nil:
			return nil, err
		case !bytes.Equal(got, want):
			logger.Debug("stale output", "path", rel)
			drift = append(drift, lockfile.Drift{Target: t.Name, Path: rel, Kind: lockfile.DriftOutput})
		}
	}
	return drift, nil
}

// Select returns the named targets in manifest order, or all targets when
// names is empty.
func Select(m *manifest.Manifest, names []string) ([]*manifest.Target, error) {
	if len(names) == 0 {
		return m.Targets, nil
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := m.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown target %q in %s", name, m.Path)
		}
		want[name] = true
	}
	var targets []*manifest.Target
	for _, t := range m.Targets {
		if want[t.Name] {
			targets = append(targets, t)
		}
	}
	return targets, nil
}

// Inputs returns the files a watch should track: the manifest and every
// target source.
func Inputs(m *manifest.Manifest) []string {
	inputs := []string{m.Path}
	for _, t := range m.Targets {
		inputs = append(inputs, t.SrcPath(m.Dir()))
	}
	return inputs
}
