package dashboard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/formatter"
	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"golang.org/x/time/rate"
)

// ManifestName is the summary file written at the root of every export.
const ManifestName = "export_manifest.json"

// Export pool defaults.
const (
	DefaultExportWorkers = 4
	MaxExportWorkers     = 10
	DefaultExportRate    = 5.0
)

// SubtaskLister fetches the subtasks of a task.
type SubtaskLister interface {
	List(ctx context.Context, taskID string) ([]models.Subtask, error)
}

// ExportOpts configures [BulkExport].
type ExportOpts struct {
	Format     string           // json, csv, markdown or txt
	OutputDir  string           // default: taskmaster_export_{epoch}
	NumWorkers int              // concurrent writers, 1 to 10 (default 4)
	RateLimit  float64          // subtask fetches per second (default 5)
	Now        func() time.Time // manifest timestamp
}

// TaskExportResult is the outcome of exporting one task.
type TaskExportResult struct {
	TaskID  string
	Title   string
	Files   []string
	Success bool
	Error   error
}

// BulkExportResult summarizes a [BulkExport] run.
type BulkExportResult struct {
	Total           int
	Succeeded       int
	Failed          int
	OutputDirectory string
	ManifestPath    string
	Results         []TaskExportResult
}

type exportJob struct {
	task     models.Task
	subtasks []models.Subtask
}

// BulkExport writes every task with its subtasks to opts.OutputDir.
//
// A single producer fetches subtasks under a rate limit and hands them to a pool of writers.
// A task that fails to fetch or write is recorded and does not stop the others.
// A manifest of the run is written last; results are in completion order.
func BulkExport(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	subtasks SubtaskLister,
	tasks []models.Task,
	opts ExportOpts,
) (*BulkExportResult, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("taskmaster_export_%d", opts.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultExportWorkers
	}
	opts.NumWorkers = min(opts.NumWorkers, MaxExportWorkers)
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultExportRate
	}
	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(tasks)
	result := &BulkExportResult{
		Total:           total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]TaskExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, total)
	results := make(chan TaskExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)

		for i, task := range tasks {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendProgress(progress, fetchingUpdate(i+1, total, task.Title))

			subs, err := subtasks.List(ctx, task.ID)
			if err != nil {
				results <- TaskExportResult{
					TaskID: task.ID,
					Title:  task.Title,
					Error:  fmt.Errorf("failed to fetch subtasks: %w", err),
				}
				continue
			}
			jobs <- exportJob{task: task, subtasks: subs}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Succeeded++
			sendProgress(progress, writtenUpdate(completed, total, res))
		} else {
			result.Failed++
			sendProgress(progress, failedUpdate(completed, total, res))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	sendProgress(progress, manifestUpdate(manifestPath))
	if err := formatter.WriteManifest(manifest(result, opts), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted after %d of %d tasks: %w", completed, total, err)
	}
	return result, nil
}

func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- TaskExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res := TaskExportResult{TaskID: job.task.ID, Title: job.task.Title}
		files, err := formatter.WriteTaskExport(job.task, job.subtasks, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		} else {
			res.Files = files
			res.Success = true
		}
		results <- res
	}
}

func manifest(r *BulkExportResult, opts ExportOpts) formatter.Manifest {
	m := formatter.Manifest{
		GeneratedAt: opts.Now().UTC(),
		Format:      opts.Format,
		Total:       r.Total,
		Succeeded:   r.Succeeded,
		Failed:      r.Failed,
		Entries:     make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{TaskID: res.TaskID, Title: res.Title, Files: res.Files}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}
