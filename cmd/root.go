// Package cmd provides the command-line interface for the standards daemon.
//
// Configuration sources, in ascending precedence: .standards.yml (or the
// file named via --config / STANDARDS_CONFIG_FILE), individual STANDARDS_*
// environment variables, then command-line flags.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/menoncello/coding-standard-sub000/internal/config"
	"github.com/menoncello/coding-standard-sub000/internal/logging"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "standards",
	Short: "Hot-reload daemon for coding standards definitions",
	Long: `standards keeps a live registry of rule definitions in sync with
on-disk standards files. File changes are debounced, throttled, batched,
validated, and applied atomically: a failed batch rolls back so the registry
never serves a partially-applied view.

Quick start:
  standards watch                 Watch the configured roots and hot reload
  standards validate FILE...      Dry-run validation of standards files`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .standards.yml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
}

// loadConfig resolves configuration from flags, environment, and file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv("STANDARDS_CONFIG_FILE")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the application logger from the loaded configuration.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
