package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/taskstore"
	"github.com/spf13/cobra"
)

var (
	taskList    string
	taskListAll bool
	listColor   string
)

func init() {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	addCmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTaskAdd,
	}
	addCmd.Flags().StringVar(&taskList, "list", "", "list id or name")
	taskCmd.AddCommand(addCmd)

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List tasks",
		RunE:  runTaskList,
	}
	lsCmd.Flags().StringVar(&taskList, "list", "", "list id or name")
	lsCmd.Flags().BoolVar(&taskListAll, "all", false, "include completed tasks")
	taskCmd.AddCommand(lsCmd)

	taskCmd.AddCommand(&cobra.Command{
		Use:   "done TASK",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskDone,
	})

	taskCmd.AddCommand(&cobra.Command{
		Use:   "rm TASK",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskRemove,
	})
	rootCmd.AddCommand(taskCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Manage task lists",
	}
	listAddCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a list",
		Args:  cobra.ExactArgs(1),
		RunE:  runListAdd,
	}
	listAddCmd.Flags().StringVar(&listColor, "color", "", "list color as #rrggbb")
	listCmd.AddCommand(listAddCmd)
	listCmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "Show lists",
		RunE:  runListList,
	})
	rootCmd.AddCommand(listCmd)
}

// resolveList accepts a list id, id prefix or name
func resolveList(store *taskstore.Store, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	lists, err := store.ListLists()
	if err != nil {
		return "", err
	}
	for _, l := range lists {
		if l.ID == ref || l.Name == ref {
			return l.ID, nil
		}
	}
	var match string
	for _, l := range lists {
		if len(ref) >= 4 && len(l.ID) >= len(ref) && l.ID[:len(ref)] == ref {
			if match != "" {
				return "", fmt.Errorf("list %q: %w", ref, taskstore.ErrAmbiguous)
			}
			match = l.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("list %q: %w", ref, taskstore.ErrNotFound)
	}
	return match, nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	listID, err := resolveList(store, taskList)
	if err != nil {
		return err
	}

	title := args[0]
	for _, a := range args[1:] {
		title += " " + a
	}
	task, err := store.CreateTask(title, listID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", task.ShortID(), task.Title)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	listID, err := resolveList(store, taskList)
	if err != nil {
		return err
	}

	tasks, err := store.ListTasks(taskstore.ListOptions{ListID: listID, IncludeCompleted: taskListAll})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPOMODOROS\tDONE")
	for _, t := range tasks {
		done := ""
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ShortID(), t.Title, t.PomodorosCompleted, done)
	}
	return w.Flush()
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	return withTask(args[0], func(store *taskstore.Store, id string) error {
		if err := store.SetCompleted(id, true); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", domain.ShortID(id))
		return nil
	})
}

func runTaskRemove(cmd *cobra.Command, args []string) error {
	return withTask(args[0], func(store *taskstore.Store, id string) error {
		if err := store.DeleteTask(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", domain.ShortID(id))
		return nil
	})
}

func withTask(ref string, fn func(store *taskstore.Store, id string) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.ResolveTaskID(ref)
	if err != nil {
		return err
	}
	return fn(store, id)
}

func runListAdd(cmd *cobra.Command, args []string) error {
	if listColor != "" && !domain.ValidColor(listColor) {
		return fmt.Errorf("color %q must be #rrggbb", listColor)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.CreateList(args[0], listColor)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added list %s %s (%s)\n", domain.ShortID(list.ID), list.Name, list.Color)
	return nil
}

func runListList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	lists, err := store.ListLists()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR")
	for _, l := range lists {
		fmt.Fprintf(w, "%s\t%s\t%s\n", domain.ShortID(l.ID), l.Name, l.Color)
	}
	return w.Flush()
}
