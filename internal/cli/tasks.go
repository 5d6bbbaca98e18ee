package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mstodo/mstodo-cli/internal/api"
	"github.com/mstodo/mstodo-cli/internal/auth"
	"github.com/mstodo/mstodo-cli/internal/config"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with To Do tasks",
	}

	cmd.AddCommand(
		newTasksListsCmd(),
		newTasksListCmd(),
		newTasksAddCmd(),
	)

	return cmd
}

// newAPIClient builds an authenticated Graph client
func newAPIClient() (*api.Client, error) {
	store, err := auth.NewDefaultStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}
	manager := auth.NewManager(store, nil)
	return api.NewClient(manager, ""), nil
}

// resolveListID picks the list to operate on: explicit flag, configured
// default, or the provider's default Tasks list
func resolveListID(cmd *cobra.Command, client *api.Client, listID string) (string, error) {
	if listID != "" {
		return listID, nil
	}

	if cfg, err := config.Load(); err == nil {
		if id := cfg.GetDefaultListID(); id != "" {
			return id, nil
		}
	}

	lists, err := client.ListTaskLists(cmd.Context())
	if err != nil {
		return "", err
	}
	for _, list := range lists {
		if list.WellknownListName == "defaultList" {
			return list.ID, nil
		}
	}
	if len(lists) > 0 {
		return lists[0].ID, nil
	}
	return "", fmt.Errorf("no task lists found")
}

func newTasksListsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show your task lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			lists, err := client.ListTaskLists(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list task lists: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tID")
			for _, list := range lists {
				fmt.Fprintf(w, "%s\t%s\n", list.DisplayName, list.ID)
			}
			return w.Flush()
		},
	}
}

func newTasksListCmd() *cobra.Command {
	var listID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show tasks in a list",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			id, err := resolveListID(cmd, client, listID)
			if err != nil {
				return err
			}

			tasks, err := client.ListTasks(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}

			if len(tasks) == 0 {
				Info("No tasks")
				return nil
			}

			for _, task := range tasks {
				marker := "[ ]"
				if task.Status == "completed" {
					marker = color.GreenString("[x]")
				}
				fmt.Printf("%s %s\n", marker, task.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listID, "list", "", "Task list ID (defaults to the configured or well-known list)")
	return cmd
}

func newTasksAddCmd() *cobra.Command {
	var listID string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			id, err := resolveListID(cmd, client, listID)
			if err != nil {
				return err
			}

			task, err := client.CreateTask(cmd.Context(), id, args[0])
			if err != nil {
				return fmt.Errorf("failed to add task: %w", err)
			}

			Success("Added %q", task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&listID, "list", "", "Task list ID (defaults to the configured or well-known list)")
	return cmd
}
