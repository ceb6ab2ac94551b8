package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/spf13/cobra"
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Track up to five weekly habits",
}

// habit add
var habitAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Start tracking a habit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHabitAdd,
}

// habit check
var habitCheckCmd = &cobra.Command{
	Use:   "check <id> [day]",
	Short: "Toggle a day's check (default today)",
	Long: `Toggle one day of a habit's week. Days are Mon..Sun and may be
given by their first three letters in any case.

Examples:
  planner habit check 3
  planner habit check 3 wed`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runHabitCheck,
}

// habit rm
var habitRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Stop tracking a habit",
	Args:  cobra.ExactArgs(1),
	RunE:  runHabitRm,
}

// habit list
var habitListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show this week's habits",
	Args:  cobra.NoArgs,
	RunE:  runHabitList,
}

func init() {
	rootCmd.AddCommand(habitCmd)
	habitCmd.AddCommand(habitAddCmd, habitCheckCmd, habitRmCmd, habitListCmd)
}

func runHabitAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		a.refresh(cmd.Context())
		h, err := a.store.TrackHabit(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render("tracking"), h.Name, idStyle.Render(shortID(h.ID)))
		renderStatus(out, a.store.State(), a.table.Len())
		return nil
	})
}

func runHabitCheck(cmd *cobra.Command, args []string) error {
	day := model.WeekdayOf(time.Now().Weekday())
	if len(args) == 2 {
		d, err := model.ParseWeekday(args[1])
		if err != nil {
			return err
		}
		day = d
	}

	return withApp(cmd, func(a *app) error {
		a.refresh(cmd.Context())
		id, err := resolveHabitID(a.store.State().Habits, args[0])
		if err != nil {
			return err
		}
		h, err := a.store.CheckHabit(cmd.Context(), id, day)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		state := "unchecked"
		if h.Checks[day] {
			state = "checked"
		}
		fmt.Fprintf(out, "%s %s on %s (%d/7)\n", h.Name, state, day, h.CheckCount())
		renderStatus(out, a.store.State(), a.table.Len())
		return nil
	})
}

func runHabitRm(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		a.refresh(cmd.Context())
		id, err := resolveHabitID(a.store.State().Habits, args[0])
		if err != nil {
			return err
		}
		h, _ := a.store.FindHabit(id)
		if err := a.store.DropHabit(cmd.Context(), id); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render("dropped"), h.Name)
		renderStatus(out, a.store.State(), a.table.Len())
		return nil
	})
}

func runHabitList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		a.refresh(cmd.Context())
		st := a.store.State()
		out := cmd.OutOrStdout()
		renderHabits(out, st.Habits)
		renderStatus(out, st, a.table.Len())
		return nil
	})
}
