// submodule cmd contains command definitions
package main

import (
	"github.com/SubhabrataBarik/TaskMaster/internal/dashboard"
	"github.com/urfave/cli/v3"
)

// authCommand handles sign in, registration and the session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in and manage the stored session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (default: $TASKMASTER_PASSWORD)",
						Sources: cli.EnvVars("TASKMASTER_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Display name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Password, at least 8 characters",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password2",
						Usage:    "Password confirmation",
						Required: true,
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and clear the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "me",
				Usage: "Show the signed in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthMe,
			},
			{
				Name:   "status",
				Usage:  "Show whether a session is stored and when its access token expires",
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
			{
				Name:   "google",
				Usage:  "Sign in with Google in the browser",
				Action: r.AuthGoogle,
			},
		},
	}
}

// taskFlags are shared by tasks add and tasks edit.
func taskFlags(requireTitle bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "title",
			Aliases:  []string{"t"},
			Usage:    "Task title",
			Required: requireTitle,
		},
		&cli.StringFlag{
			Name:    "description",
			Aliases: []string{"d"},
			Usage:   "Task description",
		},
		&cli.StringFlag{
			Name:    "priority",
			Aliases: []string{"p"},
			Usage:   "low, medium or high",
		},
		&cli.StringFlag{
			Name:    "status",
			Aliases: []string{"s"},
			Usage:   "pending, in_progress or completed",
		},
		&cli.StringFlag{
			Name:  "due",
			Usage: "Due date as YYYY-MM-DD; an empty value clears it",
		},
		&cli.StringFlag{
			Name:  "time",
			Usage: "Due time as HH:MM; an empty value clears it",
		},
		&cli.StringSliceFlag{
			Name:  "tag",
			Usage: "Tag name (repeatable)",
		},
	}
}

// tasksCommand handles task operations
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"task", "t"},
		Usage:   "List and edit tasks",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List one page of tasks",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "status",
						Aliases: []string{"s"},
						Usage:   "Filter by status (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:    "priority",
						Aliases: []string{"p"},
						Usage:   "Filter by priority (repeatable)",
					},
					&cli.StringFlag{
						Name:  "timeline",
						Usage: "overdue, today or week",
					},
					&cli.StringFlag{
						Name:  "search",
						Usage: "Search titles and descriptions",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
					&cli.BoolFlag{
						Name:  "buckets",
						Usage: "Group by overdue, today and upcoming",
					},
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Show the last listed page from the local cache without contacting the API",
					},
				},
				Action: r.TasksList,
			},
			{
				Name:      "show",
				Usage:     "Show a task with its subtasks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "txt, markdown or json",
						Value:   "txt",
					},
				},
				Action: r.TasksShow,
			},
			{
				Name:   "add",
				Usage:  "Create a task",
				Flags:  taskFlags(true),
				Action: r.TasksAdd,
			},
			{
				Name:      "edit",
				Usage:     "Change fields of a task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     taskFlags(false),
				Action:    r.TasksEdit,
			},
			{
				Name:      "done",
				Usage:     "Mark a task completed",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TasksDone,
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TasksRemove,
			},
			{
				Name:  "export",
				Usage: "Export every task matching the filters, with subtasks, to a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "json, csv, markdown or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: taskmaster_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent writers (1-10)",
						Value:   dashboard.DefaultExportWorkers,
					},
					&cli.StringSliceFlag{
						Name:  "status",
						Usage: "Filter by status (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "priority",
						Usage: "Filter by priority (repeatable)",
					},
					&cli.StringFlag{
						Name:  "timeline",
						Usage: "overdue, today or week",
					},
				},
				Action: r.TasksExport,
			},
		},
	}
}

// subtasksCommand handles subtask operations
func subtasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "subtasks",
		Aliases: []string{"subtask", "st"},
		Usage:   "Manage the checklist of a task",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List the subtasks of a task in order",
				Arguments: []cli.Argument{&cli.StringArg{Name: "task-id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SubtasksList,
			},
			{
				Name:      "add",
				Usage:     "Append a subtask",
				Arguments: []cli.Argument{&cli.StringArg{Name: "task-id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Subtask title",
						Required: true,
					},
					&cli.FloatFlag{
						Name:  "hours",
						Usage: "Estimated hours",
					},
				},
				Action: r.SubtasksAdd,
			},
			{
				Name:      "toggle",
				Usage:     "Flip a subtask between pending and completed",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "task",
						Usage:    "ID of the task the subtask belongs to",
						Required: true,
					},
				},
				Action: r.SubtasksToggle,
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a subtask",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.SubtasksRemove,
			},
			{
				Name:      "move",
				Usage:     "Move a subtask from one position to another",
				Arguments: []cli.Argument{&cli.StringArg{Name: "task-id"}},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "from",
						Usage:    "Current position, starting at 1",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "to",
						Usage:    "New position, starting at 1",
						Required: true,
					},
				},
				Action: r.SubtasksMove,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the file (default: the user config directory)",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// mockCommand runs the development backend
func mockCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "In-memory TaskMaster API for development",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the mock API on server.host:server.port",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "seed",
						Usage: "Create the demo account with sample tasks",
						Value: true,
					},
				},
				Action: r.MockServe,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"dashboard", "ui"},
		Usage:   "Launch the interactive dashboard",
		Action:  r.TUI,
	}
}
