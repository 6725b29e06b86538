package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"priority-todo-backend/internal/categories"
	"priority-todo-backend/internal/tasks"
)

const timeLayout = "2006-01-02 15:04"

func openTasks(list []tasks.Task) []tasks.Task {
	out := make([]tasks.Task, 0, len(list))
	for _, t := range list {
		if t.Status != tasks.StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}

func statusText(s tasks.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func renderTasks(w io.Writer, list []tasks.Task) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tIMPORTANCE\tURGENCY\tSTATUS\tTITLE")
	for _, t := range list {
		fmt.Fprintf(tw, "%d\t%.1f\t%s %s\t%s %s\t%s\t%s\n",
			t.ID,
			t.PriorityScore,
			t.ImportanceIcon, t.ImportanceLabel,
			t.UrgencyIcon, t.UrgencyLabel,
			statusText(t.Status),
			t.Title,
		)
	}
	return tw.Flush()
}

func renderCategories(w io.Writer, list []categories.Category) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No categories.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, c := range list {
		desc := ""
		if c.Description != nil {
			desc = *c.Description
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, desc)
	}
	return tw.Flush()
}

// describeTask renders one task as "key: value" lines. Optional fields are
// left out when empty.
func describeTask(t tasks.Task) string {
	var b strings.Builder

	line := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	line("id", fmt.Sprint(t.ID))
	line("title", t.Title)
	if t.Description != nil && *t.Description != "" {
		line("description", *t.Description)
	}
	line("status", statusText(t.Status))
	line("importance", fmt.Sprintf("%s %s (%d)", t.ImportanceIcon, t.ImportanceLabel, t.Importance))
	line("urgency", fmt.Sprintf("%s %s (%d)", t.UrgencyIcon, t.UrgencyLabel, t.Urgency))
	line("priority", fmt.Sprintf("%.1f", t.PriorityScore))
	if t.CategoryID != nil {
		line("category", fmt.Sprint(*t.CategoryID))
	}
	line("created", t.CreatedAt.Local().Format(timeLayout))
	line("updated", t.UpdatedAt.Local().Format(timeLayout))

	return b.String()
}
