package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Inspect and edit the task list directly",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Only tasks with this status (pending, done)"},
					&cli.StringFlag{Name: "priority", Usage: "Only tasks with this priority"},
				},
				Action: runTasksList,
			},
			{
				Name:      "done",
				Usage:     "Mark a task as done",
				ArgsUsage: "<id>",
				Action:    setStatusAction(tasks.StatusDone),
			},
			{
				Name:      "undo",
				Usage:     "Mark a task as pending",
				ArgsUsage: "<id>",
				Action:    setStatusAction(tasks.StatusPending),
			},
			{
				Name:      "add",
				Usage:     "Create a task",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "high, medium or low"},
					&cli.StringFlag{Name: "due", Usage: "Due date (YYYY-MM-DD)"},
				},
				Action: runTasksAdd,
			},
			{
				Name:      "rm",
				Usage:     "Delete a task",
				ArgsUsage: "<id>",
				Action:    runTasksRemove,
			},
		},
	}
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	client, err := taskClient(cmd)
	if err != nil {
		return err
	}

	var filter tasks.Filter
	if s := cmd.String("status"); s != "" {
		status, err := tasks.ParseStatus(s)
		if err != nil {
			return err
		}
		filter.Status = status
	}
	filter.Priority = cmd.String("priority")

	var list []tasks.Task
	if filter == (tasks.Filter{}) {
		list, err = client.List(ctx)
	} else {
		list, err = client.Filter(ctx, filter)
	}
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	printTasks(os.Stdout, list, time.Now())
	return nil
}

func setStatusAction(status tasks.Status) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id := cmd.Args().First()
		if id == "" {
			return fmt.Errorf("usage: taskpilot tasks %s <id>", cmd.Name)
		}
		client, err := taskClient(cmd)
		if err != nil {
			return err
		}
		if err := client.UpdateStatus(ctx, tasks.ID(id), status); err != nil {
			return fmt.Errorf("update task %s: %w", id, err)
		}
		fmt.Printf("Task %s is now %s.\n", id, status)
		return nil
	}
}

func runTasksAdd(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if title == "" {
		return fmt.Errorf("usage: taskpilot tasks add <title>")
	}

	nt := tasks.NewTask{
		Title:       title,
		Description: cmd.String("description"),
		Priority:    cmd.String("priority"),
	}
	if s := cmd.String("due"); s != "" {
		due, err := tasks.ParseDate(s)
		if err != nil {
			return err
		}
		nt.DueDate = &due
	}

	client, err := taskClient(cmd)
	if err != nil {
		return err
	}
	id, err := client.Create(ctx, nt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	fmt.Printf("Created task %s: %s\n", id, title)
	return nil
}

func runTasksRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: taskpilot tasks rm <id>")
	}
	client, err := taskClient(cmd)
	if err != nil {
		return err
	}
	if err := client.Delete(ctx, tasks.ID(id)); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	fmt.Printf("Deleted task %s.\n", id)
	return nil
}

func taskClient(cmd *cli.Command) (*tasks.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	setupLogging(cmd, cfg, os.Stderr)
	return newTaskClient(cfg), nil
}

// printTasks writes an aligned table. Due dates are shown relative to now.
func printTasks(w io.Writer, list []tasks.Task, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE")
	for _, t := range list {
		due := "-"
		if t.DueDate != nil {
			d := t.DueDate.Time(now.Location())
			due = fmt.Sprintf("%s (%s)", t.DueDate, humanize.RelTime(d, now, "ago", "from now"))
		}
		priority := t.Priority
		if priority == "" {
			priority = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, priority, due, t.Title)
	}
	tw.Flush()
}
