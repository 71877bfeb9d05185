package main

import (
	"github.com/spf13/cobra"

	"codefacts/internal/version"
)

var (
	dataDirFlag string
	configFlag  string
	formatFlag  string
	verbosity   int
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "codefacts",
	Short: "codefacts - fact index and query engine for code",
	Long: `codefacts stores facts extracted from source code (method calls, method,
class, property and field definitions) per project, and answers structural
queries over them: enumeration, call graph traversal, search, and accuracy
checks against a fresh extraction.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("codefacts version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (default: ~/.codefacts, env CODEFACTS_DATADIR)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: <data-dir>/config.{yaml,json,toml})")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (json, human)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
}
