package main

import (
	"context"
	"log"
	"os"

	"github.com/aretw0/stepgraph/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP server over Standard Input/Output.
This lets AI agents create graphs, run them and inspect runs as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("catalog") {
			cfg.CatalogDir, _ = cmd.Flags().GetString("catalog")
		}

		// Stdout carries JSON-RPC; logs go to Stderr only.
		log.SetOutput(os.Stderr)
		logger := newLogger(cfg, "text")

		a, err := newApp(context.Background(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("starting MCP server (stdio)")
		return mcp.NewServer(a.engine, a.tools).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("catalog", "", "Directory of graph documents to load at startup")
}
