package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	versioned "github.com/albertocavalcante/go-versioned"
)

var (
	genVersions []string
	genOut      string
	genStdout   bool
	genNoPrune  bool
)

var genCmd = &cobra.Command{
	Use:   "gen <file.go>",
	Short: "Generate the versioned packages of one file",
	Long: `Emits one package per target version for a single annotated file.

Without --versions the targets come from the module directive above the
package clause. Packages are written to <out>/v<major>_<minor>/<file>, where
out defaults to the directory of the file.

Example:
  versioned gen schema/schema.go --versions 1.3,1.4`,
	Args: cobra.ExactArgs(1),
	RunE: runGen,
}

func init() {
	genCmd.Flags().StringSliceVar(&genVersions, "versions", nil, "target versions (default: module directive)")
	genCmd.Flags().StringVarP(&genOut, "out", "o", "", "output directory (default: directory of the file)")
	genCmd.Flags().BoolVar(&genStdout, "stdout", false, "print the packages instead of writing them")
	genCmd.Flags().BoolVar(&genNoPrune, "no-prune", false, "keep imports left unused by removed code")
}

func runGen(cmd *cobra.Command, args []string) error {
	src := args[0]
	opts := []versioned.Option{
		versioned.WithLogger(slogger),
		versioned.WithPruneImports(cfg.PruneImports && !genNoPrune),
		versioned.WithGeneratedHeader(cfg.GeneratedHeader),
	}

	var targets []string
	if cmd.Flags().Changed("versions") {
		targets = genVersions
		if targets == nil {
			targets = []string{}
		}
	}

	pkgs, err := versioned.GenerateFile(src, targets, opts...)
	if err != nil {
		return err
	}

	if genStdout {
		for _, pkg := range pkgs {
			data, err := versioned.Render(pkg, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "// %s/%s\n%s", pkg.Name, pkg.Filename, data)
		}
		return nil
	}

	out := genOut
	if out == "" {
		out = filepath.Dir(src)
	}
	paths, err := versioned.WriteFiles(pkgs, out, opts...)
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	logger.Info("generated", zap.String("src", src), zap.Int("packages", len(pkgs)))
	return nil
}
