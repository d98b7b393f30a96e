// Command versioned emits per-version Go packages from annotated source
// files.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"github.com/albertocavalcante/go-versioned/internal/config"
)

var (
	// Flags
	rootDir    string
	configFile string
	verbose    bool

	// Set in PersistentPreRunE
	cfg     *config.Config
	logger  *zap.Logger
	slogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "versioned",
	Short: "Emit per-version Go packages from //versioned annotations",
	Long: `versioned reads a Go file whose declarations, fields, statements and
expressions carry //versioned("X.Y") comments and writes one package per
target version, keeping only the nodes required by that version.

Single files are handled by "gen". Workspaces list their files in a VERSIONED
manifest and are handled by "run", "check" and "watch".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = config.Resolve(rootDir, config.DefaultFilename)
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, slogger, err = newLoggers(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// newLoggers builds the CLI logger and the slog logger handed to the
// library packages. Both write through the same zap core.
func newLoggers(lc config.LoggingConfig) (*zap.Logger, *slog.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	if lc.Format == "text" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zl, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return zl, slog.New(zapslog.NewHandler(zl.Core())), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "C", ".", "workspace root")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: <root>/.versioned.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(genCmd, runCmd, checkCmd, diffCmd, watchCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "versioned: %v\n", err)
		os.Exit(1)
	}
}
