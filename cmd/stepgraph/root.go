package main

import (
	"fmt"
	"os"

	"github.com/aretw0/stepgraph/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stepgraph",
	Short: "stepgraph runs graphs of tools over a shared state",
	Long: `stepgraph builds directed graphs whose nodes invoke registered tools and whose
edges are chosen by conditions on the state. Graphs can be served over HTTP or MCP,
or run straight from a YAML/JSON file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("store", "", "Store backend: memory, redis, badger")
	rootCmd.PersistentFlags().String("tools", "", "Path to a YAML/JSON file declaring external process tools")
	rootCmd.PersistentFlags().Int("max-steps", 0, "Fail runs after entering this many nodes (0 = unlimited)")
}

// loadConfig reads --config and applies the persistent flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.LogLevel = f.Value.String()
	}
	if f := cmd.Flags().Lookup("store"); f != nil && f.Changed {
		cfg.Store.Backend = f.Value.String()
	}
	if cmd.Flags().Changed("tools") {
		cfg.ToolsFile, _ = cmd.Flags().GetString("tools")
	}
	if cmd.Flags().Changed("max-steps") {
		cfg.MaxSteps, _ = cmd.Flags().GetInt("max-steps")
	}
	return cfg, cfg.Validate()
}
