package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/albertocavalcante/go-versioned/internal/config"
	"github.com/albertocavalcante/go-versioned/internal/runner"
	"github.com/albertocavalcante/go-versioned/lockfile"
	"github.com/albertocavalcante/go-versioned/manifest"
)

var runCmd = &cobra.Command{
	Use:   "run [target...]",
	Short: "Generate the targets of the VERSIONED manifest",
	Long: `Generates every versioned_package target of the manifest, or only the
named ones, and records source and output hashes in the lockfile.`,
	RunE: runRun,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report generated files that are out of date",
	Long: `Compares the workspace with the lockfile and with a fresh in-memory
generation. Nothing is written. Exits non-zero when anything is stale.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func newRunner() *runner.Runner {
	return runner.New(runner.Options{
		Root:         rootDir,
		Concurrency:  cfg.Concurrency,
		DisablePrune: !cfg.PruneImports,
		NoHeader:     !cfg.GeneratedHeader,
		Logger:       slogger,
	})
}

// loadManifest parses the configured manifest, logging warnings and
// returning the first error.
func loadManifest() (*manifest.Manifest, error) {
	path := config.Resolve(rootDir, cfg.Manifest)
	res, err := manifest.ParseFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logger.Warn(w.Message, zap.String("pos", w.Pos.String()))
	}
	if res.HasErrors() {
		for _, e := range res.Errors[1:] {
			logger.Error(e.Message, zap.String("pos", e.Pos.String()))
		}
		return nil, res.Err()
	}
	return res.Manifest, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	r := newRunner()
	lf, results, err := r.Generate(cmd.Context(), m, args...)
	if err != nil {
		return err
	}
	for _, res := range results {
		for _, path := range res.Paths {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
	}

	path := config.Resolve(rootDir, cfg.Lockfile)
	if err := r.UpdateLockfile(path, m, lf); err != nil {
		return err
	}
	logger.Info("run complete",
		zap.Int("targets", len(results)),
		zap.String("lockfile", path))
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	lf := lockfile.New()
	path := config.Resolve(rootDir, cfg.Lockfile)
	if lockfile.Exists(path) {
		if lf, err = lockfile.ReadFile(path); err != nil {
			return err
		}
	}

	drift, err := newRunner().Check(cmd.Context(), m, lf)
	if err != nil {
		return err
	}
	for _, d := range drift {
		fmt.Fprintln(cmd.OutOrStdout(), d)
	}
	if len(drift) > 0 {
		return fmt.Errorf("%d generated file(s) out of date, run \"versioned run\"", len(drift))
	}
	logger.Info("workspace up to date", zap.Int("targets", len(m.Targets)))
	return nil
}
