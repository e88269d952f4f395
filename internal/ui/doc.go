// Package ui implements the interactive task dashboard using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [DashboardView] : Tasks of the current page, grouped as overdue, today and upcoming
//  2. [SubtaskView] : Checklist of the selected task, with toggle, add, delete and reorder
//  3. [InputView] : Single-line prompt for search text, a new task or a new subtask
//  4. [ConfirmView] : Confirm deleting a task
//
// Filter, page and load-generation state live in a [dashboard.Controller]. Every list request is
// tagged with the generation it was started under, and responses from older generations are
// dropped, so rapid filter changes never show a stale page.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
// An expired session ends the program with a hint to sign in again.
package ui
