package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTasksLoaded MsgKind = iota
	MsgSubtasksLoaded
	MsgActionDone
)

type tasksLoaded struct {
	gen  uint64
	page *models.Page[models.Task]
	err  error
}

type subtasksLoaded struct {
	taskID   string
	subtasks []models.Subtask
	err      error
}

// reloadTarget says what to fetch again after an action.
type reloadTarget int

const (
	reloadTasks reloadTarget = iota
	reloadSubtasks
)

type actionDone struct {
	reload  reloadTarget
	message string
	err     error
}

// tasksLoadedMsg is the constructor for [MsgTasksLoaded]
func tasksLoadedMsg(gen uint64, page *models.Page[models.Task], err error) Msg {
	return Msg{kind: MsgTasksLoaded, data: tasksLoaded{gen, page, err}}
}

// subtasksLoadedMsg is the constructor for [MsgSubtasksLoaded]
func subtasksLoadedMsg(taskID string, subtasks []models.Subtask, err error) Msg {
	return Msg{kind: MsgSubtasksLoaded, data: subtasksLoaded{taskID, subtasks, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(reload reloadTarget, message string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDone{reload, message, err}}
}
