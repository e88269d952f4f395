package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	th "github.com/SubhabrataBarik/TaskMaster/internal/testing"
)

func sampleTask() models.Task {
	return models.Task{
		ID:          "task-1",
		Title:       "Write sprint report",
		Description: "Summarize the sprint for the team",
		Priority:    models.PriorityHigh,
		Status:      models.StatusInProgress,
		DueDate:     "2026-03-14",
		DueTime:     "17:30:00",
		Tags:        []models.Tag{{Name: "work"}, {Name: "writing"}},
	}
}

func sampleSubtasks() []models.Subtask {
	done := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	return []models.Subtask{
		{ID: "s1", Title: "Collect metrics", Status: models.SubtaskCompleted, EstimatedHours: 1.5, OrderIndex: 0, CompletedAt: &done},
		{ID: "s2", Title: "Draft summary", Status: models.SubtaskPending, EstimatedHours: 2, OrderIndex: 1},
		{ID: "s3", Title: "Send, review", Status: models.SubtaskPending, OrderIndex: 2},
	}
}

func TestExporters(t *testing.T) {
	t.Run("TasksToCSV", func(t *testing.T) {
		data, err := TasksToCSV([]models.Task{sampleTask()})
		if err != nil {
			t.Fatalf("TasksToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Title,Status,Priority,Due Date,Due Time,Tags,Subtasks\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "task-1,Write sprint report,in_progress,high,2026-03-14,17:30:00,work;writing,0") {
			t.Errorf("CSV missing task row, got: %s", output)
		}
	})

	t.Run("SubtasksToCSV", func(t *testing.T) {
		data, err := SubtasksToCSV(sampleSubtasks())
		if err != nil {
			t.Fatalf("SubtasksToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "0,s1,Collect metrics,completed,1.5,2026-03-13T09:00:00Z") {
			t.Errorf("CSV missing completed subtask, got: %s", output)
		}
		if !strings.Contains(output, `2,s3,"Send, review",pending,0,`) {
			t.Errorf("CSV should quote titles with commas, got: %s", output)
		}
	})

	t.Run("TaskToMarkdown", func(t *testing.T) {
		output := string(TaskToMarkdown(sampleTask(), sampleSubtasks()))

		for _, want := range []string{
			"# Write sprint report",
			"**Status**: in progress",
			"**Priority**: high",
			"**Due**: 2026-03-14 17:30",
			"**Tags**: work, writing",
			"Summarize the sprint for the team",
			"## Subtasks (1/3 done)",
			"- [x] Collect metrics (1.5h)",
			"- [ ] Draft summary (2h)",
			"- [ ] Send, review\n",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("TaskToMarkdown without subtasks", func(t *testing.T) {
		task := sampleTask()
		task.DueDate = ""
		output := string(TaskToMarkdown(task, nil))

		if strings.Contains(output, "**Due**") {
			t.Error("Markdown should omit due line for undated task")
		}
		if !strings.Contains(output, "_No subtasks._") {
			t.Error("Markdown missing empty subtasks note")
		}
	})

	t.Run("TaskToText", func(t *testing.T) {
		output := string(TaskToText(sampleTask(), sampleSubtasks()))

		for _, want := range []string{
			"Task: Write sprint report",
			"Due: 2026-03-14 17:30",
			"Subtasks: 1/3 done",
			"1. [x] Collect metrics",
			"2. [ ] Draft summary",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Text missing %q, got: %s", want, output)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", FormatJSON},
		{"JSON", FormatJSON},
		{"csv", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"text", FormatText},
		{"txt", FormatText},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestWriters(t *testing.T) {
	t.Run("WriteTaskExport CSV", func(t *testing.T) {
		dir := t.TempDir()

		files, err := WriteTaskExport(sampleTask(), sampleSubtasks(), FormatCSV, dir)
		if err != nil {
			t.Fatalf("WriteTaskExport failed: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("expected 2 files, got %v", files)
		}
		if files[0] != filepath.Join(dir, "task-1_subtasks.csv") || files[1] != filepath.Join(dir, "task-1_task.json") {
			t.Errorf("unexpected files %v", files)
		}

		th.AssertFileExists(t, files[0])
		if !strings.Contains(th.MustReadFile(t, files[0]), "Collect metrics") {
			t.Error("CSV missing subtask data")
		}
		if !strings.Contains(th.MustReadFile(t, files[1]), `"title": "Write sprint report"`) {
			t.Error("metadata JSON missing title")
		}
	})

	t.Run("WriteTaskExport Markdown", func(t *testing.T) {
		dir := t.TempDir()

		files, err := WriteTaskExport(sampleTask(), sampleSubtasks(), FormatMarkdown, dir)
		if err != nil {
			t.Fatalf("WriteTaskExport failed: %v", err)
		}
		th.AssertDirExists(t, filepath.Join(dir, "task-1"))
		if len(files) != 1 || files[0] != filepath.Join(dir, "task-1", "README.md") {
			t.Errorf("unexpected files %v", files)
		}
	})

	t.Run("WriteTaskExport Text", func(t *testing.T) {
		dir := t.TempDir()

		files, err := WriteTaskExport(sampleTask(), nil, FormatText, dir)
		if err != nil {
			t.Fatalf("WriteTaskExport failed: %v", err)
		}
		if !strings.Contains(th.MustReadFile(t, files[0]), "Subtasks: 0/0 done") {
			t.Error("text export missing progress")
		}
	})

	t.Run("WriteTaskExport JSON", func(t *testing.T) {
		dir := t.TempDir()

		files, err := WriteTaskExport(sampleTask(), sampleSubtasks(), FormatJSON, dir)
		if err != nil {
			t.Fatalf("WriteTaskExport failed: %v", err)
		}

		var doc TaskExport
		if err := json.Unmarshal([]byte(th.MustReadFile(t, files[0])), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.Task.ID != "task-1" || len(doc.Subtasks) != 3 {
			t.Errorf("unexpected export %+v", doc)
		}
	})

	t.Run("WriteTaskExport Requires ID", func(t *testing.T) {
		_, err := WriteTaskExport(models.Task{Title: "x"}, nil, FormatJSON, t.TempDir())
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("WriteTaskExport Missing Directory", func(t *testing.T) {
		_, err := WriteTaskExport(sampleTask(), nil, FormatText, filepath.Join(t.TempDir(), "missing"))
		if err == nil {
			t.Error("expected write error for missing directory")
		}
	})

	t.Run("WriteManifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export_manifest.json")
		m := Manifest{
			Format:    FormatCSV,
			Total:     2,
			Succeeded: 1,
			Failed:    1,
			Entries: []ManifestEntry{
				{TaskID: "a", Title: "A", Files: []string{"a.csv"}},
				{TaskID: "b", Title: "B", Error: "boom"},
			},
		}
		if err := WriteManifest(m, path); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}

		var got Manifest
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &got); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if got.Total != 2 || got.Failed != 1 || got.Entries[1].Error != "boom" {
			t.Errorf("unexpected manifest %+v", got)
		}
	})
}
