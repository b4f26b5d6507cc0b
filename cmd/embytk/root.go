package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "embytk",
	Short: "Emby library mirror and watchlist manager",
	Long: `embytk - Emby library mirror and watchlist manager

Reconciles the Emby catalog into a local database enriched with TMDB
metadata, classifies tracked series and mirrors their state to MoviePilot.

Run 'embytk serve' to start the scheduler daemon.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("embytk {{.Version}}\n")
}
