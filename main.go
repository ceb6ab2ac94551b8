// Package main implements the planner CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides ~/.config/planner/config.yaml
	configPath string
	// offline keeps every change local; run `planner sync` later
	offline  bool
	logLevel string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Tasks and weekly habits, synced with the planner API",
	Long: `planner keeps a list of tasks and up to five weekly habits.

Changes are sent to the planner API right away. When the API cannot be
reached they are kept locally and replayed by "planner sync".

Examples:
  planner add "Read chapter 4" --priority high --hours 1.5 --due 01/12
  planner list --view week
  planner done 42
  planner habit check 3 wed`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/planner/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "do not contact the planner API")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
