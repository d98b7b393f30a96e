package main

import (
	"fmt"

	"github.com/spf13/cobra"

	versioned "github.com/albertocavalcante/go-versioned"
)

var diffCmd = &cobra.Command{
	Use:     "diff <file.go> <from> <to>",
	Short:   "Show the API surface added and removed between two versions",
	Example: `  versioned diff schema/schema.go 1.3 1.4`,
	Args:    cobra.ExactArgs(3),
	RunE:    runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	pkgs, err := versioned.GenerateFile(args[0], []string{args[1], args[2]},
		versioned.WithLogger(slogger))
	if err != nil {
		return err
	}

	d := versioned.DiffPackages(pkgs[0], pkgs[1])
	out := cmd.OutOrStdout()
	if d.IsEmpty() {
		fmt.Fprintf(out, "%s -> %s: no changes\n", d.From, d.To)
		return nil
	}
	fmt.Fprintf(out, "%s -> %s: %d change(s)\n", d.From, d.To, d.TotalChanges())
	for _, s := range d.Added {
		fmt.Fprintf(out, "+ %s %s\n", s.Kind, s.Name)
	}
	for _, s := range d.Removed {
		fmt.Fprintf(out, "- %s %s\n", s.Kind, s.Name)
	}
	return nil
}
