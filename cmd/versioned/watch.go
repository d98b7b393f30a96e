package main

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/albertocavalcante/go-versioned/internal/config"
	"github.com/albertocavalcante/go-versioned/internal/runner"
	"github.com/albertocavalcante/go-versioned/internal/watch"
	"github.com/albertocavalcante/go-versioned/manifest"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate targets whenever their sources change",
	Long: `Runs every target once, then watches the manifest and target sources.
A changed source regenerates its targets; a changed manifest regenerates
everything and updates the watched set.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := loadManifest()
	if err != nil {
		return err
	}
	r := newRunner()
	lockPath := config.Resolve(rootDir, cfg.Lockfile)

	regenerate := func(ctx context.Context, names ...string) error {
		lf, _, err := r.Generate(ctx, m, names...)
		if err != nil {
			return err
		}
		return r.UpdateLockfile(lockPath, m, lf)
	}
	if err := regenerate(ctx); err != nil {
		logger.Error("initial generation failed", zap.Error(err))
	}

	manifestPath, err := filepath.Abs(m.Path)
	if err != nil {
		return err
	}

	var w *watch.Watcher
	onChange := func(ctx context.Context, changed []string) error {
		for _, path := range changed {
			if path != manifestPath {
				continue
			}
			next, err := loadManifest()
			if err != nil {
				return err
			}
			m = next
			if err := w.SetPaths(runner.Inputs(m)); err != nil {
				return err
			}
			logger.Info("manifest reloaded", zap.Int("targets", len(m.Targets)))
			return regenerate(ctx)
		}

		names := affected(m, changed)
		if len(names) == 0 {
			return nil
		}
		logger.Info("regenerating", zap.Strings("targets", names))
		return regenerate(ctx, names...)
	}

	w, err = watch.New(runner.Inputs(m), cfg.GetDebounce(), onChange, slogger)
	if err != nil {
		return err
	}
	logger.Info("watching", zap.Int("files", len(w.Paths())))

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// affected returns the targets whose source is one of changed.
func affected(m *manifest.Manifest, changed []string) []string {
	set := make(map[string]bool, len(changed))
	for _, path := range changed {
		set[path] = true
	}
	var names []string
	for _, t := range m.Targets {
		abs, err := filepath.Abs(t.SrcPath(m.Dir()))
		if err == nil && set[abs] {
			names = append(names, t.Name)
		}
	}
	return names
}
