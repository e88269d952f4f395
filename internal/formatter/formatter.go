// package formatter renders tasks and subtasks as CSV, Markdown and plain text, and writes export files.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

// Supported export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the accepted values of --format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat normalizes a format name. "md" and "text" are accepted as aliases.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatText, "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want %s)", shared.ErrInvalidFlag, s, strings.Join(Formats, ", "))
}

// TasksToCSV converts tasks to CSV with columns: ID, Title, Status, Priority, Due Date, Due Time, Tags, Subtasks
func TasksToCSV(tasks []models.Task) ([]byte, error) {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID,
			t.Title,
			string(t.Status),
			string(t.Priority),
			t.DueDate,
			t.DueTime,
			strings.Join(t.TagNames(), ";"),
			strconv.Itoa(len(t.Subtasks)),
		})
	}
	return writeCSV([]string{"ID", "Title", "Status", "Priority", "Due Date", "Due Time", "Tags", "Subtasks"}, rows)
}

// SubtasksToCSV converts subtasks to CSV with columns: Order, ID, Title, Status, Estimated Hours, Completed At
func SubtasksToCSV(subtasks []models.Subtask) ([]byte, error) {
	rows := make([][]string, 0, len(subtasks))
	for _, s := range subtasks {
		completed := ""
		if s.CompletedAt != nil {
			completed = s.CompletedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			strconv.Itoa(s.OrderIndex),
			s.ID,
			s.Title,
			string(s.Status),
			FormatHours(s.EstimatedHours),
			completed,
		})
	}
	return writeCSV([]string{"Order", "ID", "Title", "Status", "Estimated Hours", "Completed At"}, rows)
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV records: %w", err)
	}
	return buf.Bytes(), nil
}

// TaskToMarkdown renders a task and its subtasks as a Markdown document with a checklist.
func TaskToMarkdown(task models.Task, subtasks []models.Subtask) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", task.Title)
	fmt.Fprintf(&buf, "**Status**: %s\n", StatusLabel(task.Status))
	fmt.Fprintf(&buf, "**Priority**: %s\n", task.Priority)
	if due := DueLabel(task); due != "" {
		fmt.Fprintf(&buf, "**Due**: %s\n", due)
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(&buf, "**Tags**: %s\n", strings.Join(task.TagNames(), ", "))
	}
	buf.WriteString("\n")

	if task.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", task.Description)
	}

	fmt.Fprintf(&buf, "## Subtasks (%s)\n\n", Progress(subtasks))
	if len(subtasks) == 0 {
		buf.WriteString("_No subtasks._\n")
	}
	for _, s := range subtasks {
		check := " "
		if s.Done() {
			check = "x"
		}
		fmt.Fprintf(&buf, "- [%s] %s", check, s.Title)
		if s.EstimatedHours > 0 {
			fmt.Fprintf(&buf, " (%sh)", FormatHours(s.EstimatedHours))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// TaskToText renders a task and its subtasks as plain text.
func TaskToText(task models.Task, subtasks []models.Subtask) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Task: %s\n", task.Title)
	fmt.Fprintf(&buf, "Status: %s\n", StatusLabel(task.Status))
	fmt.Fprintf(&buf, "Priority: %s\n", task.Priority)
	if due := DueLabel(task); due != "" {
		fmt.Fprintf(&buf, "Due: %s\n", due)
	}
	if task.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", task.Description)
	}
	fmt.Fprintf(&buf, "Subtasks: %s\n\n", Progress(subtasks))

	for i, s := range subtasks {
		mark := "[ ]"
		if s.Done() {
			mark = "[x]"
		}
		fmt.Fprintf(&buf, "%d. %s %s\n", i+1, mark, s.Title)
	}
	return buf.Bytes()
}

// StatusLabel turns in_progress into "in progress".
func StatusLabel(s models.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// DueLabel joins due date and time, trimming seconds. Empty when the task has no date.
func DueLabel(t models.Task) string {
	if t.DueDate == "" {
		return ""
	}
	if t.DueTime == "" {
		return t.DueDate
	}
	clock := t.DueTime
	if len(clock) > 5 {
		clock = clock[:5]
	}
	return t.DueDate + " " + clock
}

// FormatHours prints an estimate without trailing zeros: 1.5, 2, 0.25.
func FormatHours(h models.Hours) string {
	return strconv.FormatFloat(float64(h), 'f', -1, 64)
}

// Progress reports "done/total done".
func Progress(subtasks []models.Subtask) string {
	done := 0
	for _, s := range subtasks {
		if s.Done() {
			done++
		}
	}
	return fmt.Sprintf("%d/%d done", done, len(subtasks))
}

// TaskExport is the JSON document written for a single task.
type TaskExport struct {
	Task     models.Task      `json:"task"`
	Subtasks []models.Subtask `json:"subtasks"`
}

// WriteTaskExport writes task and subtasks into dir in the given format and returns the created files.
//
// Files are named after the task ID:
//   - json: {id}.json
//   - csv: {id}_subtasks.csv and {id}_task.json
//   - markdown: {id}/README.md
//   - txt: {id}.txt
func WriteTaskExport(task models.Task, subtasks []models.Subtask, format, dir string) ([]string, error) {
	if task.ID == "" {
		return nil, fmt.Errorf("%w: task has no ID", shared.ErrMissingArgument)
	}
	base := filepath.Join(dir, filepath.Base(task.ID))

	switch format {
	case FormatCSV:
		csvData, err := SubtasksToCSV(subtasks)
		if err != nil {
			return nil, fmt.Errorf("failed to generate CSV: %w", err)
		}
		subtasksFile := base + "_subtasks.csv"
		if err := os.WriteFile(subtasksFile, csvData, 0644); err != nil {
			return nil, fmt.Errorf("failed to write CSV file: %w", err)
		}

		meta := task
		meta.Subtasks = nil
		metaJSON, err := shared.MarshalJSON(meta, true)
		if err != nil {
			return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
		}
		taskFile := base + "_task.json"
		if err := os.WriteFile(taskFile, metaJSON, 0644); err != nil {
			return nil, fmt.Errorf("failed to write metadata file: %w", err)
		}
		return []string{subtasksFile, taskFile}, nil

	case FormatMarkdown:
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		mdFile := filepath.Join(base, "README.md")
		if err := os.WriteFile(mdFile, TaskToMarkdown(task, subtasks), 0644); err != nil {
			return nil, fmt.Errorf("failed to write Markdown file: %w", err)
		}
		return []string{mdFile}, nil

	case FormatText:
		txtFile := base + ".txt"
		if err := os.WriteFile(txtFile, TaskToText(task, subtasks), 0644); err != nil {
			return nil, fmt.Errorf("failed to write text file: %w", err)
		}
		return []string{txtFile}, nil

	case FormatJSON, "":
		data, err := shared.MarshalJSON(TaskExport{Task: task, Subtasks: subtasks}, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		jsonFile := base + ".json"
		if err := os.WriteFile(jsonFile, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		return []string{jsonFile}, nil
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
}

// Manifest summarizes a bulk export.
type Manifest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Format      string          `json:"format"`
	Total       int             `json:"total"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	Entries     []ManifestEntry `json:"entries"`
}

// ManifestEntry is the outcome for one task.
type ManifestEntry struct {
	TaskID string   `json:"task_id"`
	Title  string   `json:"title"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
