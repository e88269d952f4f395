package main

import (
	"context"
	"fmt"

	"github.com/SubhabrataBarik/TaskMaster/internal/dashboard"
	"github.com/SubhabrataBarik/TaskMaster/internal/formatter"
	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/urfave/cli/v3"
)

// SubtasksList prints the subtasks of a task in order, numbered from 1.
func (r *Runner) SubtasksList(ctx context.Context, cmd *cli.Command) error {
	subtasks, err := r.subtasks.List(ctx, cmd.StringArg("task-id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(subtasks, true)
	}
	if len(subtasks) == 0 {
		return r.writePlain("No subtasks\n")
	}

	for i, s := range subtasks {
		r.writePlain("%s\n", subtaskLine(i+1, s))
	}
	r.writePlain("\n%s\n", formatter.Progress(subtasks))
	return nil
}

func subtaskLine(pos int, s models.Subtask) string {
	mark := "[ ]"
	if s.Done() {
		mark = "[x]"
	}
	line := fmt.Sprintf("%2d. %s %s", pos, mark, s.Title)
	if s.EstimatedHours > 0 {
		line += fmt.Sprintf(" (%sh)", formatter.FormatHours(s.EstimatedHours))
	}
	return line + "  " + s.ID
}

// SubtasksAdd appends a subtask to a task.
func (r *Runner) SubtasksAdd(ctx context.Context, cmd *cli.Command) error {
	sub, err := r.subtasks.Add(ctx, cmd.StringArg("task-id"), cmd.String("title"), cmd.Float("hours"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added subtask %s\n", sub.ID)
}

// SubtasksToggle flips a subtask between pending and completed.
//
// The current status is read from the task's subtask list, so the task must be given.
func (r *Runner) SubtasksToggle(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: subtask id", shared.ErrMissingArgument)
	}

	subtasks, err := r.subtasks.List(ctx, cmd.String("task"))
	if err != nil {
		return err
	}

	for _, s := range subtasks {
		if s.ID != id {
			continue
		}
		updated, err := r.subtasks.Toggle(ctx, s)
		if err != nil {
			return err
		}
		if updated.Done() {
			return r.writePlain("✓ Completed %q\n", updated.Title)
		}
		return r.writePlain("✓ Reopened %q\n", updated.Title)
	}
	return fmt.Errorf("%w: subtask %s is not part of task %s", shared.ErrNotFound, id, cmd.String("task"))
}

// SubtasksRemove deletes a subtask.
func (r *Runner) SubtasksRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if err := r.subtasks.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted subtask %s\n", id)
}

// SubtasksMove moves the subtask at --from to --to (both 1-based) and saves the new order of every subtask.
func (r *Runner) SubtasksMove(ctx context.Context, cmd *cli.Command) error {
	subtasks, err := r.subtasks.List(ctx, cmd.StringArg("task-id"))
	if err != nil {
		return err
	}

	from, to := cmd.Int("from")-1, cmd.Int("to")-1
	moved, err := dashboard.Move(subtasks, from, to)
	if err != nil {
		return err
	}
	if from == to {
		return r.writePlain("Nothing to move\n")
	}

	if err := r.subtasks.Reorder(ctx, dashboard.OrderItems(moved)); err != nil {
		return err
	}

	r.writePlain("✓ Moved %q to position %d\n\n", subtasks[from].Title, to+1)
	for i, s := range moved {
		r.writePlain("%s\n", subtaskLine(i+1, s))
	}
	return nil
}
