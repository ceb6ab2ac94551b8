package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/planner/pkg/auth"
	"github.com/harrisonrobin/planner/pkg/config"
	"github.com/harrisonrobin/planner/pkg/google"
	"github.com/harrisonrobin/planner/pkg/index"
	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var calendarName string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send changes made while the API was unreachable",
	Long: `Replay local changes against the planner API, oldest first, then
refresh the local copy. Changes that still fail stay queued.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Mirror dated tasks into Google Calendar",
}

var calendarSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create, update and remove calendar events to match dated tasks",
	Long: `Every task with a due date gets an all-day event in the configured
calendar. Events whose task was deleted or lost its due date are removed.

Run "planner auth" first to authorize access to Google Calendar.`,
	Args: cobra.NoArgs,
	RunE: runCalendarSync,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize planner to use Google Calendar",
	Long: `Remove any stored Google token and run the browser authorization
flow again. credentials.json must be in the planner config directory.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Change planner settings",
}

var configSetCalendarCmd = &cobra.Command{
	Use:   "set-calendar <name>",
	Short: "Set the Google calendar that dated tasks are mirrored to",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetCalendar,
}

func init() {
	calendarSyncCmd.Flags().StringVar(&calendarName, "calendar", "", "calendar name (overrides config)")

	calendarCmd.AddCommand(calendarSyncCmd)
	configCmd.AddCommand(configSetCalendarCmd)
	rootCmd.AddCommand(syncCmd, calendarCmd, authCmd, configCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if offline {
		return errors.New("sync needs the planner API, drop --offline")
	}
	return withApp(cmd, func(a *app) error {
		report, syncErr := a.store.Resync(cmd.Context())

		if len(report.Rekeyed) > 0 {
			if err := rekeyEvents(a.eventsPath(), report.Rekeyed); err != nil {
				a.logger.Warn("could not update event index", zap.Error(err))
			}
		}
		a.refresh(cmd.Context())

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %d, failed %d\n", successStyle.Render("synced"), report.Synced, report.Failed)
		renderStatus(out, a.store.State(), a.table.Len())
		return syncErr
	})
}

// rekeyEvents moves calendar mappings from local ids to server ids.
func rekeyEvents(path string, rekeyed map[string]string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	idx, err := index.NewEventIndex(path)
	if err != nil {
		return err
	}
	for oldID, newID := range rekeyed {
		idx.Rekey(oldID, newID)
	}
	return idx.Save()
}

func runCalendarSync(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		a.refresh(cmd.Context())

		name := a.cfg.Calendar.Name
		if calendarName != "" {
			name = calendarName
		}
		dir, err := configDir()
		if err != nil {
			return err
		}

		idx, err := index.NewEventIndex(a.eventsPath())
		if err != nil {
			return fmt.Errorf("open event index: %w", err)
		}
		client, err := google.NewClient(cmd.Context(), dir, name, idx, a.logger)
		if err != nil {
			return err
		}

		report, mirrorErr := client.Mirror(cmd.Context(), a.store.State().Items, time.Now())
		if err := idx.Save(); err != nil {
			mirrorErr = errors.Join(mirrorErr, fmt.Errorf("save event index: %w", err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %d, removed %d, failed %d (calendar %q)\n",
			successStyle.Render("mirrored"), report.Synced, report.Removed, report.Failed, name)
		return mirrorErr
	})
}

func runAuth(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	dir, err := configDir()
	if err != nil {
		return err
	}

	tokenFile := filepath.Join(dir, auth.TokenFile)
	if _, err := os.Stat(tokenFile); err == nil {
		logger.Info("removing existing token", zap.String("path", tokenFile))
		if err := os.Remove(tokenFile); err != nil {
			return fmt.Errorf("could not delete token file %s, please delete it manually: %w", tokenFile, err)
		}
	} else if !os.IsNotExist(err) {
		logger.Warn("could not check token file", zap.String("path", tokenFile), zap.Error(err))
	}

	if _, err := auth.GetCalendarService(cmd.Context(), dir, logger); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s token saved to %s\n", successStyle.Render("authorized"), tokenFile)
	return nil
}

func runConfigSetCalendar(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Calendar.Name = args[0]
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "default calendar set to %s\n", args[0])
	return nil
}
