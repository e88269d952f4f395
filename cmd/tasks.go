package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/dashboard"
	"github.com/SubhabrataBarik/TaskMaster/internal/formatter"
	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/repositories"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/urfave/cli/v3"
)

// filterFromFlags reads --status, --priority, --timeline and --search.
func filterFromFlags(cmd *cli.Command) (dashboard.FilterState, error) {
	var f dashboard.FilterState

	for _, s := range splitFlag(cmd.StringSlice("status")) {
		st, err := models.ParseStatus(s)
		if err != nil {
			return f, fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
		}
		if !f.Status[st] {
			f.ToggleStatus(st)
		}
	}
	for _, p := range splitFlag(cmd.StringSlice("priority")) {
		pr, err := models.ParsePriority(p)
		if err != nil {
			return f, fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
		}
		if !f.Priority[pr] {
			f.TogglePriority(pr)
		}
	}

	timeline, err := dashboard.ParseTimeline(cmd.String("timeline"))
	if err != nil {
		return f, err
	}
	f.Timeline = timeline
	f.Search = cmd.String("search")
	return f, nil
}

// splitFlag accepts both repeated flags and comma separated values.
func splitFlag(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// TasksList prints one page of tasks, optionally grouped into dashboard buckets.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("cached") {
		return r.tasksListCached(cmd)
	}

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	state := dashboard.NewPageState()
	state.CurrentPage = max(1, cmd.Int("page"))

	query := dashboard.ComputeQuery(filter, state)
	r.logger.Debug("listing tasks", "query", query.Encode())

	page, err := r.tasks.List(ctx, query)
	if err != nil {
		return err
	}
	state.Apply(page)
	r.cacheTasks(query, page)

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}
	r.printTasks(page.Results, cmd.Bool("buckets"))
	r.printFooter(state, filter.Summary())
	return nil
}

// cacheTasks keeps the listed page for tasks list --cached. Only the sqlite storage driver has a database open.
func (r *Runner) cacheTasks(query url.Values, page *models.Page[models.Task]) {
	if r.db == nil {
		return
	}
	if err := repositories.NewTaskCacheRepository(r.db).Replace(query.Encode(), page); err != nil {
		r.logger.Warn("failed to cache task list", "error", err)
	}
}

func (r *Runner) tasksListCached(cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	snap, ok, err := repositories.NewTaskCacheRepository(db).Snapshot()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no cached task list; run `taskmaster tasks list` with storage.driver = \"sqlite\" first", shared.ErrNotFound)
	}

	if cmd.Bool("json") {
		return r.writeJSON(snap.Page, cmd.Bool("pretty"))
	}

	state := dashboard.NewPageState()
	state.TotalCount = snap.Page.Count
	state.HasNext, state.HasPrevious = snap.HasNext, snap.HasPrevious
	summary := ""
	if q, err := url.ParseQuery(snap.Query); err == nil {
		fmt.Sscan(q.Get("page"), &state.CurrentPage)
		summary = cachedSummary(q)
	}

	r.writePlain("Cached %s\n\n", snap.FetchedAt.Local().Format(time.DateTime))
	r.printTasks(snap.Page.Results, cmd.Bool("buckets"))
	r.printFooter(state, summary)
	return nil
}

// cachedSummary rebuilds the filter summary from a stored query.
func cachedSummary(q url.Values) string {
	var f dashboard.FilterState
	for _, s := range splitFlag([]string{q.Get("status__in")}) {
		f.ToggleStatus(models.Status(s))
	}
	for _, p := range splitFlag([]string{q.Get("priority__in")}) {
		f.TogglePriority(models.Priority(p))
	}
	f.Timeline = dashboard.Timeline(q.Get("timeline"))
	f.Search = q.Get("search")
	return f.Summary()
}

func (r *Runner) printTasks(tasks []models.Task, grouped bool) {
	if len(tasks) == 0 {
		r.writePlain("No tasks found\n")
		return
	}
	if !grouped {
		for _, t := range tasks {
			r.writePlain("%s\n", taskLine(t))
		}
		return
	}

	b := dashboard.Bucket(tasks, time.Now())
	for _, section := range []struct {
		name  string
		tasks []models.Task
	}{
		{"Overdue", b.Overdue},
		{"Today", b.Today},
		{"Upcoming", b.Upcoming},
	} {
		r.writePlain("%s (%d)\n", section.name, len(section.tasks))
		for _, t := range section.tasks {
			r.writePlain("  %s\n", taskLine(t))
		}
		r.writePlain("\n")
	}
}

func (r *Runner) printFooter(state dashboard.PageState, summary string) {
	r.writePlain("\nPage %d of %d · %d tasks\n", max(1, state.CurrentPage), state.TotalPages(), state.TotalCount)
	if summary != "" {
		r.writePlain("Filters: %s\n", summary)
	}
}

// taskLine renders a task on one line: checkbox, title, priority, status, due, subtask progress and ID.
func taskLine(t models.Task) string {
	check := "[ ]"
	if t.Done() {
		check = "[x]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-36s %-6s %-11s", check, truncate(t.Title, 36), t.Priority, formatter.StatusLabel(t.Status))
	if due := formatter.DueLabel(t); due != "" {
		fmt.Fprintf(&b, " due %-16s", due)
	} else {
		fmt.Fprintf(&b, " %-20s", "")
	}
	if len(t.Subtasks) > 0 {
		fmt.Fprintf(&b, " %s", formatter.Progress(t.Subtasks))
	}
	for _, name := range t.TagNames() {
		fmt.Fprintf(&b, " #%s", name)
	}
	fmt.Fprintf(&b, "  %s", t.ID)
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// TasksShow prints a task with its subtasks.
func (r *Runner) TasksShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	task, subtasks, err := r.taskWithSubtasks(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	switch format {
	case formatter.FormatJSON:
		return r.writeJSON(formatter.TaskExport{Task: *task, Subtasks: subtasks}, true)
	case formatter.FormatMarkdown:
		return r.writePlain("%s", formatter.TaskToMarkdown(*task, subtasks))
	case formatter.FormatCSV:
		data, err := formatter.SubtasksToCSV(subtasks)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	default:
		return r.writePlain("%s", formatter.TaskToText(*task, subtasks))
	}
}

func (r *Runner) taskWithSubtasks(ctx context.Context, id string) (*models.Task, []models.Subtask, error) {
	task, err := r.tasks.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	subtasks, err := r.subtasks.List(ctx, task.ID)
	if err != nil {
		return nil, nil, err
	}
	return task, subtasks, nil
}

// TasksAdd creates a task.
func (r *Runner) TasksAdd(ctx context.Context, cmd *cli.Command) error {
	in := models.TaskInput{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Tags:        splitFlag(cmd.StringSlice("tag")),
	}
	if cmd.IsSet("priority") {
		p, err := models.ParsePriority(cmd.String("priority"))
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
		}
		in.Priority = p
	}
	if cmd.IsSet("status") {
		s, err := models.ParseStatus(cmd.String("status"))
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
		}
		in.Status = s
	}
	if cmd.IsSet("due") {
		due := cmd.String("due")
		in.DueDate = &due
	}
	if cmd.IsSet("time") {
		clock := cmd.String("time")
		in.DueTime = &clock
	}

	task, err := r.tasks.Create(ctx, in)
	if err != nil {
		return err
	}

	r.logger.Info("task created", "id", task.ID)
	r.writePlain("✓ Created task %s\n", task.ID)
	r.writePlain("  %s\n", taskLine(*task))
	return nil
}

// TasksEdit sends only the flags that were given.
func (r *Runner) TasksEdit(ctx context.Context, cmd *cli.Command) error {
	var patch models.TaskPatch
	if cmd.IsSet("title") {
		title := cmd.String("title")
		patch.Title = &title
	}
	if cmd.IsSet("description") {
		desc := cmd.String("description")
		patch.Description = &desc
	}
	if cmd.IsSet("priority") {
		p, err := models.ParsePriority(cmd.String("priority"))
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
		}
		patch.Priority = &p
	}
	if cmd.IsSet("status") {
		s, err := models.ParseStatus(cmd.String("status"))
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
		}
		patch.Status = &s
	}
	if cmd.IsSet("due") {
		due := cmd.String("due")
		patch.DueDate = &due
	}
	if cmd.IsSet("time") {
		clock := cmd.String("time")
		patch.DueTime = &clock
	}
	if cmd.IsSet("tag") {
		tags := splitFlag(cmd.StringSlice("tag"))
		patch.Tags = &tags
	}

	task, err := r.tasks.Update(ctx, cmd.StringArg("id"), patch)
	if err != nil {
		return err
	}

	r.writePlain("✓ Updated task %s\n", task.ID)
	r.writePlain("  %s\n", taskLine(*task))
	return nil
}

// TasksDone marks a task completed.
func (r *Runner) TasksDone(ctx context.Context, cmd *cli.Command) error {
	task, err := r.tasks.Complete(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Completed %q\n", task.Title)
}

// TasksRemove deletes a task.
func (r *Runner) TasksRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if err := r.tasks.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted task %s\n", id)
}

// TasksExport exports every task matching the filters, walking all pages first.
func (r *Runner) TasksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	workers := cmd.Int("workers")
	if workers < 1 || workers > dashboard.MaxExportWorkers {
		return fmt.Errorf("%w: --workers must be between 1 and %d", shared.ErrInvalidFlag, dashboard.MaxExportWorkers)
	}
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	tasks, err := r.allTasks(ctx, filter)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return r.writePlain("No tasks to export\n")
	}

	r.writePlain("→ Exporting %d tasks as %s\n", len(tasks), format)

	progress := make(chan dashboard.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Phase == dashboard.FetchSubtasks {
				r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
				continue
			}
			r.writePlain("  %s\n", update.Message)
		}
	}()

	result, err := dashboard.BulkExport(ctx, progress, r.subtasks, tasks, dashboard.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: workers,
		RateLimit:  r.config.API.RateLimit,
	})
	close(progress)
	wg.Wait()

	if result != nil {
		r.writePlainln("Exported %d of %d tasks to %s", result.Succeeded, result.Total, result.OutputDirectory)
		if result.ManifestPath != "" {
			r.writePlain("Manifest: %s\n", result.ManifestPath)
		}
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  ✗ %s: %v\n", res.Title, res.Error)
			}
		}
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d tasks failed to export", result.Failed, result.Total)
	}
	return nil
}

// allTasks follows next links until the last page.
func (r *Runner) allTasks(ctx context.Context, filter dashboard.FilterState) ([]models.Task, error) {
	state := dashboard.NewPageState()
	var tasks []models.Task
	for {
		page, err := r.tasks.List(ctx, dashboard.ComputeQuery(filter, state))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, page.Results...)
		if !page.HasNext() {
			return tasks, nil
		}
		state.CurrentPage++
	}
}
