package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configFile string

	// RootCmd is the root command for devprune
	RootCmd = &cobra.Command{
		Use:   "devprune [dir]",
		Short: "Find and clean build artifacts of development projects",
		Long: `devprune scans a directory tree for development projects and reclaims the
disk space held by their build artifacts.

Detected projects:
  • Rust    Cargo.toml + target/
  • Node    package.json + node_modules/
  • Python  setup.py, pyproject.toml, requirements.txt, ... + caches, venvs, build output
  • Go      go.mod + vendor/

By default build directories are moved to the trash and can be put back
with 'devprune restore'. Use --permanent to delete them instead.

Settings can be stored in ~/.config/devprune/config.toml. Flags given on the
command line always win over the config file.

Examples:
  # See what could be cleaned under ~/code without touching anything
  devprune ~/code --dry-run

  # Clean Node projects bigger than 100MB not built for a month
  devprune ~/code --node-only --keep-size 100MB --keep-days 30

  # Pick projects from a numbered list
  devprune ~/code -i

  # Keep compiled Rust binaries before cleaning
  devprune ~/code --rust-only --keep-executables

  # Undo the last clean
  devprune restore latest`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runClean,
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.devprune/devprune.db)")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ~/.config/devprune/config.toml)")

	registerCleanFlags(RootCmd)

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	// Create .devprune directory if it doesn't exist
	dir := filepath.Join(home, ".devprune")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create devprune directory: %w", err)
	}

	return filepath.Join(dir, "devprune.db"), nil
}
