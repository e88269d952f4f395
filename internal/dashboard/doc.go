// Package dashboard holds the task dashboard logic shared by the CLI and the TUI.
//
// # Pure Functions
//
//   - [ComputeQuery] turns a [FilterState] and [PageState] into the list query (status__in, priority__in, timeline, search, page)
//   - [Bucket] splits tasks into overdue, today and upcoming
//   - [Reorder] moves a subtask and renumbers order_index from 0
//
// # Controller
//
// [Controller] keeps filter, page and bucket state. Loads are numbered; [Controller.Finish]
// drops any result that is not from the newest [Controller.Begin], so the TUI can fire
// requests asynchronously without stale pages overwriting fresh ones.
//
// # Bulk Export
//
// [BulkExport] fetches subtasks for a list of tasks under a rate limit, writes each task
// through the formatter on a worker pool and reports [ProgressUpdate] values on a
// non-blocking channel.
package dashboard
