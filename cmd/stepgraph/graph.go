package main

import (
	"fmt"

	"github.com/aretw0/stepgraph/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph.yaml>",
	Short: "Export the graph visualization",
	Long:  `Parses the graph file and outputs a Mermaid diagram (graph TD) of its nodes and edges.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := readGraphFile(args[0])
		if err != nil {
			return err
		}
		g := file.Doc.Definition().Compile(file.Name)
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
