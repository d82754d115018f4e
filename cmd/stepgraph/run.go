package main

import (
	"context"
	"fmt"

	"github.com/aretw0/stepgraph/internal/compiler"
	"github.com/aretw0/stepgraph/internal/presentation/report"
	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <graph.yaml>",
	Short: "Run a graph file once and print the result",
	Long: `Parses the graph file, runs it against the initial state and prints a report.
The initial state comes from --state (YAML or JSON) and --set key=value pairs.
The command exits non-zero when the run fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		statePath, _ := cmd.Flags().GetString("state")
		sets, _ := cmd.Flags().GetStringArray("set")
		jsonMode, _ := cmd.Flags().GetBool("json")

		file, err := readGraphFile(args[0])
		if err != nil {
			return err
		}
		initial, err := loadState(statePath, sets)
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg, newLogger(cfg, "text"))
		if err != nil {
			return err
		}
		defer a.Close()

		def := file.Doc.Definition()
		if lint := compiler.Lint(def, a.tools); lint.HasErrors() {
			a.logger.Warn("graph has problems", "graph", file.Name, "issues", len(lint))
		}

		graphID, err := a.engine.CreateGraph(ctx, def)
		if err != nil {
			return err
		}
		run, err := a.engine.Execute(ctx, graphID, initial)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonMode {
			enc := xjson.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(run); err != nil {
				return err
			}
		} else if err := report.Write(out, run); err != nil {
			return err
		}

		if run.Status == domain.RunFailed {
			return fmt.Errorf("run %s failed: %s", run.ID, run.LastError)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("state", "", "YAML or JSON file with the initial state")
	runCmd.Flags().StringArray("set", nil, "Set an initial state key (key=value, repeatable)")
	runCmd.Flags().Bool("json", false, "Print the run record as JSON instead of a report")
}
