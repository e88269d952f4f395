package main

import (
	"context"
	"fmt"

	"github.com/SubhabrataBarik/TaskMaster/internal/dashboard"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
	"github.com/SubhabrataBarik/TaskMaster/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if !r.auth.Authenticated() {
		return fmt.Errorf("%w: run `taskmaster auth login` first", shared.ErrNotAuthenticated)
	}

	// stdout belongs to bubbletea, so logs go to a file
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = "taskmaster.log"
	}
	fileLogger, logFile, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()

	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)
	r.wire(r.config, r.store, r.httpClient)

	controller := dashboard.NewController(r.tasks, dashboard.ControllerOpts{
		Logger: shared.WithLogger(fileLogger, "component", "dashboard"),
	})
	model := ui.NewModel(ctx, r.tasks, r.subtasks, controller)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	fileLogger.Info("starting dashboard")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if err := controller.Err(); err != nil && !r.auth.Authenticated() {
		return err
	}
	return nil
}
