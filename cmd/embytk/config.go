package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qf-luck/emby-toolkit-sub001/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, cron schedules and environment variable substitution without contacting any service.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigCheck,
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration",
	Long: `Write the annotated example configuration. Without a path it goes to
$XDG_CONFIG_HOME/embytk/config.toml. An existing file is never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		var err error
		if path, err = config.Discover(); err != nil {
			return err
		}
	}

	fmt.Printf("Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(cfg)
	fmt.Println("\nConfiguration valid!")
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Set EMBY_API_KEY, EMBY_USER_ID and TMDB_API_KEY, then run 'embytk config check'.")
	return nil
}

func printConfigErrors(e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Println("Unset environment variables:")
		for _, m := range e.Missing {
			fmt.Printf("  - %s\n", m)
		}
		fmt.Println()
	}

	sections := e.Sections()
	names := slices.Sorted(maps.Keys(sections))
	for _, name := range names {
		fmt.Printf("[%s]\n", name)
		for _, err := range sections[name] {
			fmt.Printf("  - %s\n", err)
		}
		fmt.Println()
	}
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Database:   %s (log: %s)\n", cfg.Database.Path, cfg.Server.LogLevel)
	libs := "all"
	if len(cfg.Emby.LibraryIDs) > 0 {
		libs = strings.Join(cfg.Emby.LibraryIDs, ", ")
	}
	fmt.Printf("  Emby:       %s (libraries: %s)\n", cfg.Emby.URL, libs)
	fmt.Printf("  TMDB:       %.0f req/s, cache %s\n", cfg.TMDB.RateLimit, cfg.TMDB.CacheTTL.Duration)
	fmt.Printf("  Sync:       %s, batch %d, %d workers\n", scheduleOrManual(cfg.Sync.Schedule), cfg.Sync.BatchSize, cfg.Sync.ProviderWorkers)
	fmt.Printf("  Watchlist:  %s, %d workers\n", scheduleOrManual(cfg.Watchlist.Schedule), cfg.Watchlist.Workers)
	if cfg.MoviePilot.Enabled() {
		fmt.Printf("  MoviePilot: %s (upgrade on completion: %v)\n", cfg.MoviePilot.URL, cfg.Watchlist.CompletionUpgrade)
	} else {
		fmt.Println("  MoviePilot: disabled")
	}
}

func scheduleOrManual(cron string) string {
	if cron == "" {
		return "manual"
	}
	return cron
}
