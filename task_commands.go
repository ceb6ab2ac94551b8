package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/store"
	"github.com/harrisonrobin/planner/pkg/views"
	"github.com/spf13/cobra"
)

const weekDays = 7

var (
	addPriority string
	addHours    string
	addCategory string
	addDue      string

	listView string
	doneUndo bool
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task. Without --due it goes on the running to-do list.

Examples:
  planner add "Lab report" --priority high --hours 2 --category school --due 01/12
  planner add Groceries --category personal`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show tasks and habits",
	Long: `Show tasks. Views:
  home     today, the running to-do list, recently added and habits (default)
  today    tasks due today
  running  tasks without a due date
  recent   the most recently added tasks
  week     tasks due over the next seven days
  overdue  pending tasks past their due date
  all      every task`,
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE:  runDone,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Flip a task between pending and done",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Short:   "Delete a task",
	Aliases: []string{"delete"},
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

func init() {
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "High, Medium or Low (default Medium)")
	addCmd.Flags().StringVar(&addHours, "hours", "", "estimated hours, e.g. 1.5")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "School, Work, Personal or Other (default School)")
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "due date as MM/DD")

	listCmd.Flags().StringVarP(&listView, "view", "v", "home", "home, today, running, recent, week, overdue or all")

	doneCmd.Flags().BoolVar(&doneUndo, "undo", false, "mark the task pending again")

	rootCmd.AddCommand(addCmd, listCmd, doneCmd, toggleCmd, rmCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		task, err := a.store.AddTask(cmd.Context(), store.TaskInput{
			Title:    strings.Join(args, " "),
			Priority: addPriority,
			Hours:    addHours,
			Category: addCategory,
			DueDate:  addDue,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render("added"), renderTask(task))
		renderStatus(out, a.store.State(), a.table.Len())
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		a.refresh(cmd.Context())
		st := a.store.State()
		now := time.Now()
		out := cmd.OutOrStdout()

		switch strings.ToLower(listView) {
		case "home", "":
			pending, done := views.Today(st.Items, now)
			renderSection(out, "Today", append(pending, done...))
			renderSection(out, "Running to-do", views.RunningTodo(st.Items))
			renderSection(out, "Recently added", views.RecentlyAdded(st.Items, views.DefaultRecent))
			renderHabits(out, st.Habits)
		case "today":
			pending, done := views.Today(st.Items, now)
			renderSection(out, "Today", pending)
			renderSection(out, "Done today", done)
		case "running":
			renderSection(out, "Running to-do", views.RunningTodo(st.Items))
		case "recent":
			renderSection(out, "Recently added", views.RecentlyAdded(st.Items, views.DefaultRecent))
		case "week":
			renderDays(out, views.NextDays(st.Items, now, weekDays))
		case "overdue":
			renderSection(out, "Overdue", views.Overdue(st.Items, now))
		case "all":
			renderSection(out, "All tasks", st.Items)
		default:
			return fmt.Errorf("unknown view %q", listView)
		}

		renderStatus(out, st, a.table.Len())
		return nil
	})
}

func runDone(cmd *cobra.Command, args []string) error {
	return changeTask(cmd, args[0], func(a *app, id string) (model.Task, error) {
		return a.store.SetTaskDone(cmd.Context(), id, !doneUndo)
	})
}

func runToggle(cmd *cobra.Command, args []string) error {
	return changeTask(cmd, args[0], func(a *app, id string) (model.Task, error) {
		return a.store.ToggleTask(cmd.Context(), id)
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		a.refresh(cmd.Context())
		id, err := resolveTaskID(a.store.State().Items, args[0])
		if err != nil {
			return err
		}
		task, _ := a.store.FindTask(id)
		if err := a.store.DeleteTask(cmd.Context(), id); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render("deleted"), task.Title)
		renderStatus(out, a.store.State(), a.table.Len())
		return nil
	})
}

// changeTask resolves ref against the current task list, applies fn and
// prints the result.
func changeTask(cmd *cobra.Command, ref string, fn func(*app, string) (model.Task, error)) error {
	return withApp(cmd, func(a *app) error {
		a.refresh(cmd.Context())
		id, err := resolveTaskID(a.store.State().Items, ref)
		if err != nil {
			return err
		}
		task, err := fn(a, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderTask(task))
		renderStatus(out, a.store.State(), a.table.Len())
		return nil
	})
}
