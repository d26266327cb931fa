package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file.
	configPath string

	// outputJSON prints command results as JSON instead of text.
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "searchlens",
	Short: "AI companion service for search result pages",
	Long: `searchlens summarizes linked pages, suggests related topics and refines
search queries for a browser extension. Run "serve" for the HTTP service or
use the one-shot commands from a terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c", "searchlens.yaml",
		"Path to the YAML config file (missing file means defaults)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&outputJSON, "json", false,
		"Print results as JSON",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(expandCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
