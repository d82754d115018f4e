package main

import (
	"fmt"

	"github.com/aretw0/stepgraph/internal/compiler"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph.yaml>...",
	Short: "Check graph files for consistency",
	Long: `Reports broken edges, unknown start nodes, unregistered tools, unknown operators
and nodes unreachable from the start node. Warnings do not fail the command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tools, err := newRegistry(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		failed := 0

		for _, path := range args {
			file, err := readGraphFile(path)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", path, err)
				failed++
				continue
			}
			lint := compiler.Lint(file.Doc.Definition(), tools)
			if len(lint) == 0 {
				fmt.Fprintf(out, "%s: graph '%s' is valid\n", path, file.Name)
				continue
			}
			for _, issue := range lint {
				fmt.Fprintf(out, "%s: %s\n", path, issue)
			}
			if lint.HasErrors() {
				failed++
			}
		}

		if failed > 0 {
			return fmt.Errorf("validation failed for %d of %d files", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
