package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/SubhabrataBarik/TaskMaster/internal/formatter"
	"github.com/SubhabrataBarik/TaskMaster/internal/models"
)

var (
	_ list.Item = taskItem{}
	_ list.Item = subtaskItem{}
)

const (
	bucketOverdue  = "Overdue"
	bucketToday    = "Today"
	bucketUpcoming = "Upcoming"
)

// taskItem wraps [models.Task] to implement [list.Item]. bucket is the dashboard section it was sorted into.
type taskItem struct {
	task   models.Task
	bucket string
}

func (i taskItem) FilterValue() string { return i.task.Title }
func (i taskItem) Title() string {
	if i.task.Done() {
		return "✓ " + i.task.Title
	}
	return i.task.Title
}
func (i taskItem) Description() string {
	parts := []string{styles.Bucket(i.bucket), styles.Priority(i.task.Priority), formatter.StatusLabel(i.task.Status)}
	if due := formatter.DueLabel(i.task); due != "" {
		parts = append(parts, "due "+due)
	}
	if n := len(i.task.Subtasks); n > 0 {
		parts = append(parts, formatter.Progress(i.task.Subtasks))
	}
	if len(i.task.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(i.task.TagNames(), " #"))
	}
	return strings.Join(parts, " • ")
}

// subtaskItem wraps [models.Subtask] to implement [list.Item].
type subtaskItem struct {
	subtask models.Subtask
}

func (i subtaskItem) FilterValue() string { return i.subtask.Title }
func (i subtaskItem) Title() string {
	if i.subtask.Done() {
		return "[x] " + i.subtask.Title
	}
	return "[ ] " + i.subtask.Title
}
func (i subtaskItem) Description() string {
	desc := fmt.Sprintf("#%d", i.subtask.OrderIndex+1)
	if i.subtask.EstimatedHours > 0 {
		desc = fmt.Sprintf("%s • %sh", desc, formatter.FormatHours(i.subtask.EstimatedHours))
	}
	return desc
}
