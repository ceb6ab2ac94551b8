package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/store"
	"github.com/harrisonrobin/planner/pkg/util"
	"github.com/harrisonrobin/planner/pkg/views"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	localStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	priorityStyles = map[model.Priority]lipgloss.Style{
		model.High:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		model.Medium: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		model.Low:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}
)

const shortIDLen = 8

// shortID trims local uuids; server ids are already short.
func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func renderTask(t model.Task) string {
	box := "[ ]"
	title := t.Title
	if t.Done() {
		box = "[x]"
		title = doneStyle.Render(title)
	}

	meta := []string{
		priorityStyles[t.Priority].Render(string(t.Priority)),
		string(t.Category),
	}
	if t.Minutes > 0 {
		meta = append(meta, util.FormatHours(t.Minutes)+"h")
	}
	if t.HasDueDate() {
		meta = append(meta, "due "+t.DueDate)
	}

	line := fmt.Sprintf("%s %s %s %s", box, idStyle.Render(fmt.Sprintf("%-*s", shortIDLen, shortID(t.ID))), title, mutedStyle.Render("("+strings.Join(meta, ", ")+")"))
	if !t.Synced {
		line += " " + localStyle.Render("local")
	}
	return line
}

func renderSection(w io.Writer, heading string, tasks []model.Task) {
	fmt.Fprintln(w, headingStyle.Render(heading))
	if len(tasks) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  nothing here"))
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, "  "+renderTask(t))
	}
}

func renderDays(w io.Writer, days []views.Day) {
	for _, d := range days {
		renderSection(w, fmt.Sprintf("%s %s", d.DayName, d.Date), d.Tasks)
	}
}

func renderHabits(w io.Writer, habits []model.Habit) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Habits (%d/%d)", len(habits), model.MaxHabits)))
	if len(habits) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no habits yet"))
		return
	}

	header := make([]string, len(model.Weekdays))
	for i, d := range model.Weekdays {
		header[i] = string(d)[:2]
	}
	fmt.Fprintf(w, "  %-*s %s\n", shortIDLen, "", mutedStyle.Render(strings.Join(header, " ")))

	for i, row := range views.HabitWeek(habits) {
		cells := make([]string, len(row.Checks))
		for j, checked := range row.Checks {
			cells[j] = mutedStyle.Render(" .")
			if checked {
				cells[j] = successStyle.Render(" x")
			}
		}
		line := fmt.Sprintf("  %s %s  %s %s", idStyle.Render(fmt.Sprintf("%-*s", shortIDLen, shortID(row.ID))),
			strings.Join(cells, ""), row.Name, mutedStyle.Render(fmt.Sprintf("%d/7", row.Count)))
		if !habits[i].Synced {
			line += " " + localStyle.Render("local")
		}
		fmt.Fprintln(w, line)
	}
}

// renderStatus reports the store's last error and how many changes wait for
// `planner sync`.
func renderStatus(w io.Writer, st store.State, queued int) {
	if st.Error != "" {
		fmt.Fprintln(w, errorStyle.Render("error: "+st.Error))
	}
	if queued > 0 {
		fmt.Fprintln(w, localStyle.Render(fmt.Sprintf("%d change(s) not synced, run `planner sync`", queued)))
	}
}
