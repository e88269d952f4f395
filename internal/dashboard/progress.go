package dashboard

import "fmt"

// ProgressUpdate reports a step of a long-running operation to the CLI or TUI.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific payload
}

// Phase of a bulk export.
type Phase int

const (
	FetchSubtasks Phase = iota
	WriteTask
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchSubtasks:
		return "fetch_subtasks"
	case WriteTask:
		return "write_task"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress never blocks; updates are dropped when nobody is keeping up.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSubtasks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching subtasks: %s...", step, total, title),
	}
}

func writtenUpdate(step, total int, res TaskExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTask,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, res.Title, len(res.Files)),
		Data:    res,
	}
}

func failedUpdate(step, total int, res TaskExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTask,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest %s", path),
	}
}
