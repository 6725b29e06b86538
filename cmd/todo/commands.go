package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"priority-todo-backend/internal/categories"
	"priority-todo-backend/internal/client"
	"priority-todo-backend/internal/tasks"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func (c *cli) newRegisterCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register EMAIL USERNAME",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), password)
			if err != nil {
				return err
			}
			res, err := c.client().Register(cmd.Context(), args[0], args[1], pw)
			if err != nil {
				return err
			}
			if err := c.saveToken(res.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s. Logged in as %s.\n", res.Message, res.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func (c *cli) newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Log in and save the token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), password)
			if err != nil {
				return err
			}
			res, err := c.client().Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			if err := c.saveToken(res.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", res.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := c.client()
			if api.Token() != "" {
				err := api.Logout(cmd.Context())
				// a rejected token is already unusable
				var apiErr *client.APIError
				if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
					return err
				}
			}
			if err := c.clearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func (c *cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.client().Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
}

func (c *cli) newListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, highest priority first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := c.client()
			board := client.NewBoard(api)
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}

			list := board.Tasks()
			if !all {
				list = openTasks(list)
			}
			if err := renderTasks(cmd.OutOrStdout(), list); err != nil {
				return err
			}

			_ = api.Track(cmd.Context(), "task_list_viewed", map[string]any{"count": len(list)})
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")
	return cmd
}

func (c *cli) newNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the task to focus on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := c.client()
			board := client.NewBoard(api)
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}

			t, ok := board.Focus()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), describeTask(t))

			_ = api.Track(cmd.Context(), "focus_task_shown", map[string]any{
				"task_id":        t.ID,
				"priority_score": t.PriorityScore,
			})
			return nil
		},
	}
}

func (c *cli) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := c.client().GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), describeTask(t))
			return nil
		},
	}
}

func (c *cli) newAddCmd() *cobra.Command {
	var (
		description string
		importance  int
		urgency     int
		categoryID  int64
		status      string
	)
	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := tasks.NewTask{Title: strings.Join(args, " ")}
			flags := cmd.Flags()
			if flags.Changed("description") {
				in.Description = &description
			}
			if flags.Changed("importance") {
				in.Importance = &importance
			}
			if flags.Changed("urgency") {
				in.Urgency = &urgency
			}
			if flags.Changed("category") {
				in.CategoryID = &categoryID
			}
			if flags.Changed("status") {
				s := tasks.Status(status)
				in.Status = &s
			}

			board := client.NewBoard(c.client())
			t, err := board.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %d (priority %.1f).\n", t.ID, t.PriorityScore)
			return renderTasks(cmd.OutOrStdout(), openTasks(board.Tasks()))
		},
	}
	f := cmd.Flags()
	f.StringVarP(&description, "description", "d", "", "longer description")
	f.IntVarP(&importance, "importance", "i", 2, "importance 1-4")
	f.IntVarP(&urgency, "urgency", "u", 2, "urgency 1-4")
	f.Int64VarP(&categoryID, "category", "c", 0, "category id")
	f.StringVarP(&status, "status", "s", string(tasks.StatusPending), "pending, in_progress or completed")
	return cmd
}

func (c *cli) newEditCmd() *cobra.Command {
	var (
		title            string
		description      string
		clearDescription bool
		importance       int
		urgency          int
		categoryID       int64
		clearCategory    bool
		status           string
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a task",
		Long:  "Change fields of a task. Only the flags given are sent.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var p tasks.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = tasks.Value(title)
			}
			switch {
			case clearDescription:
				p.Description = tasks.Value[*string](nil)
			case flags.Changed("description"):
				p.Description = tasks.Value(&description)
			}
			if flags.Changed("importance") {
				p.Importance = tasks.Value(importance)
			}
			if flags.Changed("urgency") {
				p.Urgency = tasks.Value(urgency)
			}
			switch {
			case clearCategory:
				p.CategoryID = tasks.Value[*int64](nil)
			case flags.Changed("category"):
				p.CategoryID = tasks.Value(&categoryID)
			}
			if flags.Changed("status") {
				p.Status = tasks.Value(tasks.Status(status))
			}
			if p.IsEmpty() {
				return fmt.Errorf("nothing to change; see todo edit --help")
			}

			t, err := c.client().UpdateTask(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), describeTask(t))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&title, "title", "t", "", "new title")
	f.StringVarP(&description, "description", "d", "", "new description")
	f.BoolVar(&clearDescription, "clear-description", false, "remove the description")
	f.IntVarP(&importance, "importance", "i", 0, "importance 1-4")
	f.IntVarP(&urgency, "urgency", "u", 0, "urgency 1-4")
	f.Int64VarP(&categoryID, "category", "c", 0, "category id")
	f.BoolVar(&clearCategory, "no-category", false, "remove the category")
	f.StringVarP(&status, "status", "s", "", "pending, in_progress or completed")
	cmd.MarkFlagsMutuallyExclusive("description", "clear-description")
	cmd.MarkFlagsMutuallyExclusive("category", "no-category")
	return cmd
}

func (c *cli) newDoneCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done ID",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status := tasks.StatusCompleted
			if undo {
				status = tasks.StatusPending
			}

			board := client.NewBoard(c.client())
			t, err := board.SetStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d is now %s.\n", t.ID, statusText(t.Status))
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "set the task back to pending")
	return cmd
}

func (c *cli) newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			board := client.NewBoard(c.client())
			if err := board.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d.\n", id)
			return nil
		},
	}
}

func (c *cli) newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.client().ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			return renderCategories(cmd.OutOrStdout(), list)
		},
	}

	var description string
	add := &cobra.Command{
		Use:   "add NAME...",
		Short: "Create a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := categories.NewCategory{Name: strings.Join(args, " ")}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			cat, err := c.client().CreateCategory(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %d (%s).\n", cat.ID, cat.Name)
			return nil
		},
	}
	add.Flags().StringVarP(&description, "description", "d", "", "description")
	cmd.AddCommand(add)
	return cmd
}
