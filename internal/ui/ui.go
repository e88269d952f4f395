package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/SubhabrataBarik/TaskMaster/internal/dashboard"
	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DashboardView ViewState = iota
	SubtaskView
	InputView
	ConfirmView
)

type inputPurpose int

const (
	inputSearch inputPurpose = iota
	inputTask
	inputSubtask
)

// TaskAPI is the subset of the task service the dashboard needs.
type TaskAPI interface {
	List(ctx context.Context, query url.Values) (*models.Page[models.Task], error)
	Create(ctx context.Context, in models.TaskInput) (*models.Task, error)
	Complete(ctx context.Context, id string) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}

// SubtaskAPI is the subset of the subtask service the subtask view needs.
type SubtaskAPI interface {
	List(ctx context.Context, taskID string) ([]models.Subtask, error)
	Add(ctx context.Context, taskID, title string, hours float64) (*models.Subtask, error)
	Toggle(ctx context.Context, subtask models.Subtask) (*models.Subtask, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, items []models.OrderItem) error
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	returnTo   ViewState
	controller *dashboard.Controller
	tasks      TaskAPI
	subtasks   SubtaskAPI
	width      int
	height     int
	taskList   list.Model
	subList    list.Model
	task       *models.Task
	items      []models.Subtask
	input      textinput.Model
	purpose    inputPurpose
	pending    *models.Task
	loading    bool
	status     string
	err        error
	fatal      bool
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model. controller holds the filter and page state and must list through tasks.
func NewModel(ctx context.Context, tasks TaskAPI, subtasks SubtaskAPI, controller *dashboard.Controller) *Model {
	taskList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	taskList.Title = "Tasks"
	taskList.SetFilteringEnabled(false)
	taskList.SetShowHelp(false)
	taskList.DisableQuitKeybindings()

	subList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	subList.SetFilteringEnabled(false)
	subList.SetShowHelp(false)
	subList.DisableQuitKeybindings()

	input := textinput.New()
	input.CharLimit = 200

	return &Model{
		ctx:        ctx,
		view:       DashboardView,
		controller: controller,
		tasks:      tasks,
		subtasks:   subtasks,
		taskList:   taskList,
		subList:    subList,
		input:      input,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init loads the first page of tasks.
func (m *Model) Init() tea.Cmd {
	return m.load()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskList.SetSize(msg.Width-4, msg.Height-8)
		m.subList.SetSize(msg.Width-4, msg.Height-8)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.fatal || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case DashboardView:
			return m.handleDashboardKeys(msg)
		case SubtaskView:
			return m.handleSubtaskKeys(msg)
		case InputView:
			return m.handleInputKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTasksLoaded:
		data := msg.data.(tasksLoaded)
		if !m.controller.Finish(data.gen, data.page, data.err) {
			return m, nil
		}
		m.loading = false
		if data.err != nil {
			m.fail(data.err)
			return m, nil
		}
		m.err = nil
		m.setTaskItems(m.controller.Buckets())
		return m, nil

	case MsgSubtasksLoaded:
		data := msg.data.(subtasksLoaded)
		if m.task == nil || m.task.ID != data.taskID {
			return m, nil
		}
		m.loading = false
		if data.err != nil {
			m.fail(data.err)
			return m, nil
		}
		m.err = nil
		m.setSubtaskItems(data.subtasks)
		if m.view == DashboardView {
			m.view = SubtaskView
		}
		return m, nil

	case MsgActionDone:
		data := msg.data.(actionDone)
		if data.err != nil {
			m.fail(data.err)
			return m, nil
		}
		m.err = nil
		m.status = data.message
		if data.reload == reloadSubtasks && m.task != nil {
			return m, m.fetchSubtasks(m.task.ID)
		}
		return m, m.load()
	}
	return m, nil
}

// fail records err. An auth failure ends the session, so nothing else can be done but quit.
func (m *Model) fail(err error) {
	m.err = err
	m.status = ""
	if errors.Is(err, shared.ErrSessionExpired) ||
		errors.Is(err, shared.ErrAuthRejected) ||
		errors.Is(err, shared.ErrNotAuthenticated) {
		m.fatal = true
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.fatal {
		return fmt.Sprintf("%s\n\n%s",
			styles.err.Render(fmt.Sprintf("Error: %v", m.err)),
			styles.help.Render("Run `taskmaster auth login` to sign in again. Press any key to quit."))
	}

	switch m.view {
	case DashboardView:
		return m.renderDashboard()
	case SubtaskView:
		return m.renderSubtasks()
	case InputView:
		return m.renderInput()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return ""
	}
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.load()
	case key.Matches(msg, m.keys.next):
		if m.controller.NextPage() {
			return m, m.load()
		}
		return m, nil
	case key.Matches(msg, m.keys.prev):
		if m.controller.PrevPage() {
			return m, m.load()
		}
		return m, nil
	case key.Matches(msg, m.keys.status):
		f := m.controller.Filter()
		f.Status = cycle(f.Statuses(), models.Statuses)
		m.controller.SetFilter(f)
		return m, m.load()
	case key.Matches(msg, m.keys.priority):
		f := m.controller.Filter()
		f.Priority = cycle(f.Priorities(), models.Priorities)
		m.controller.SetFilter(f)
		return m, m.load()
	case key.Matches(msg, m.keys.timeline):
		m.controller.SetTimeline(m.controller.Filter().Timeline.Next())
		return m, m.load()
	case key.Matches(msg, m.keys.clear):
		m.controller.ClearFilters()
		return m, m.load()
	case key.Matches(msg, m.keys.search):
		return m, m.openInput(inputSearch, "Search tasks", m.controller.Filter().Search)
	case key.Matches(msg, m.keys.add):
		return m, m.openInput(inputTask, "New task title", "")
	}

	task, ok := m.selectedTask()
	if ok {
		switch {
		case key.Matches(msg, m.keys.enter):
			m.task = &task
			m.status = ""
			return m, m.fetchSubtasks(task.ID)
		case key.Matches(msg, m.keys.complete):
			return m, m.action(reloadTasks, fmt.Sprintf("Completed %q", task.Title), func(ctx context.Context) error {
				_, err := m.tasks.Complete(ctx, task.ID)
				return err
			})
		case key.Matches(msg, m.keys.remove):
			m.pending = &task
			m.view = ConfirmView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) handleSubtaskKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = DashboardView
		m.task = nil
		m.items = nil
		return m, m.load()
	case key.Matches(msg, m.keys.add):
		return m, m.openInput(inputSubtask, "New subtask (append e.g. 1.5h for an estimate)", "")
	case key.Matches(msg, m.keys.moveUp):
		return m, m.move(m.subList.Index(), m.subList.Index()-1)
	case key.Matches(msg, m.keys.moveDown):
		return m, m.move(m.subList.Index(), m.subList.Index()+1)
	}

	if idx := m.subList.Index(); idx >= 0 && idx < len(m.items) {
		sub := m.items[idx]
		switch {
		case key.Matches(msg, m.keys.toggle):
			return m, m.action(reloadSubtasks, "", func(ctx context.Context) error {
				_, err := m.subtasks.Toggle(ctx, sub)
				return err
			})
		case key.Matches(msg, m.keys.remove):
			return m, m.action(reloadSubtasks, fmt.Sprintf("Deleted %q", sub.Title), func(ctx context.Context) error {
				return m.subtasks.Delete(ctx, sub.ID)
			})
		}
	}

	var cmd tea.Cmd
	m.subList, cmd = m.subList.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.view = m.returnTo
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.view = m.returnTo
		m.input.Blur()
		return m, m.submit(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes) && m.pending != nil:
		task := *m.pending
		m.pending = nil
		m.view = DashboardView
		return m, m.action(reloadTasks, fmt.Sprintf("Deleted %q", task.Title), func(ctx context.Context) error {
			if err := m.tasks.Delete(ctx, task.ID); err != nil {
				return err
			}
			m.controller.AfterDelete()
			return nil
		})
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.pending = nil
		m.view = DashboardView
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case DashboardView:
		m.taskList, cmd = m.taskList.Update(msg)
	case SubtaskView:
		m.subList, cmd = m.subList.Update(msg)
	case InputView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) openInput(purpose inputPurpose, placeholder, value string) tea.Cmd {
	m.returnTo = m.view
	m.view = InputView
	m.purpose = purpose
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) submit(value string) tea.Cmd {
	value = strings.TrimSpace(value)

	switch m.purpose {
	case inputSearch:
		m.controller.SetSearch(value)
		return m.load()
	case inputTask:
		if value == "" {
			return nil
		}
		return m.action(reloadTasks, fmt.Sprintf("Added %q", value), func(ctx context.Context) error {
			_, err := m.tasks.Create(ctx, models.TaskInput{Title: value})
			return err
		})
	case inputSubtask:
		if value == "" || m.task == nil {
			return nil
		}
		taskID := m.task.ID
		title, hours := parseSubtaskInput(value)
		return m.action(reloadSubtasks, fmt.Sprintf("Added %q", title), func(ctx context.Context) error {
			_, err := m.subtasks.Add(ctx, taskID, title, hours)
			return err
		})
	}
	return nil
}

// move reorders the subtask list locally and persists the new order.
func (m *Model) move(from, to int) tea.Cmd {
	if to < 0 || to >= len(m.items) {
		return nil
	}
	moved, err := dashboard.Move(m.items, from, to)
	if err != nil {
		m.fail(err)
		return nil
	}
	order := dashboard.OrderItems(moved)
	for i := range moved {
		moved[i].OrderIndex = i
	}
	m.setSubtaskItems(moved)
	m.subList.Select(to)

	return m.action(reloadSubtasks, "", func(ctx context.Context) error {
		return m.subtasks.Reorder(ctx, order)
	})
}

func (m *Model) load() tea.Cmd {
	gen, query := m.controller.Begin()
	m.loading = true
	return func() tea.Msg {
		page, err := m.tasks.List(m.ctx, query)
		return tasksLoadedMsg(gen, page, err)
	}
}

func (m *Model) fetchSubtasks(taskID string) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		subtasks, err := m.subtasks.List(m.ctx, taskID)
		return subtasksLoadedMsg(taskID, subtasks, err)
	}
}

func (m *Model) action(reload reloadTarget, message string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg(reload, message, fn(m.ctx))
	}
}

func (m *Model) selectedTask() (models.Task, bool) {
	if item, ok := m.taskList.SelectedItem().(taskItem); ok {
		return item.task, true
	}
	return models.Task{}, false
}

func (m *Model) setTaskItems(b dashboard.Buckets) {
	items := make([]list.Item, 0, b.Len())
	for _, t := range b.Overdue {
		items = append(items, taskItem{task: t, bucket: bucketOverdue})
	}
	for _, t := range b.Today {
		items = append(items, taskItem{task: t, bucket: bucketToday})
	}
	for _, t := range b.Upcoming {
		items = append(items, taskItem{task: t, bucket: bucketUpcoming})
	}

	idx := m.taskList.Index()
	m.taskList.SetItems(items)
	if idx >= len(items) && len(items) > 0 {
		m.taskList.Select(len(items) - 1)
	}

	page := m.controller.Page()
	m.taskList.Title = fmt.Sprintf("Tasks · page %d of %d · %d total", page.CurrentPage, page.TotalPages(), page.TotalCount)
}

func (m *Model) setSubtaskItems(subtasks []models.Subtask) {
	m.items = subtasks
	items := make([]list.Item, len(subtasks))
	for i, s := range subtasks {
		items[i] = subtaskItem{subtask: s}
	}
	idx := m.subList.Index()
	m.subList.SetItems(items)
	if idx >= len(items) && len(items) > 0 {
		m.subList.Select(len(items) - 1)
	}
	if m.task != nil {
		m.subList.Title = m.task.Title
	}
}

func (m *Model) footer() string {
	var lines []string
	if summary := m.controller.Summary(); summary != "" {
		lines = append(lines, styles.warn.Render("Filters: "+summary))
	}
	switch {
	case m.err != nil:
		lines = append(lines, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.loading:
		lines = append(lines, styles.help.Render("Loading..."))
	case m.status != "":
		lines = append(lines, styles.ok.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderDashboard() string {
	return fmt.Sprintf("%s\n%s\n\n%s", m.taskList.View(), m.footer(), m.help.View(m.keys))
}

func (m *Model) renderSubtasks() string {
	if len(m.items) == 0 {
		title := ""
		if m.task != nil {
			title = styles.title.Render(m.task.Title)
		}
		return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, styles.help.Render("No subtasks yet."),
			m.footer(), m.help.ShortHelpView(m.keys.subtaskKeys()))
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.subList.View(), m.footer(), m.help.ShortHelpView(m.keys.subtaskKeys()))
}

func (m *Model) renderInput() string {
	title := styles.title.Render(m.input.Placeholder)
	helpView := m.help.ShortHelpView([]key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		m.keys.back,
	})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderConfirm() string {
	if m.pending == nil {
		return ""
	}
	title := styles.title.Render(fmt.Sprintf("Delete %q?", m.pending.Title))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n\n%s", title, styles.warn.Render("This cannot be undone."), helpView)
}

// cycle steps a single-valued filter through none, each value in order, then none again.
// A multi-valued selection resets to none.
func cycle[T comparable](selected, all []T) map[T]bool {
	if len(selected) > 1 {
		return nil
	}
	if len(selected) == 0 {
		return map[T]bool{all[0]: true}
	}
	for i, v := range all {
		if v == selected[0] && i+1 < len(all) {
			return map[T]bool{all[i+1]: true}
		}
	}
	return nil
}

// parseSubtaskInput splits a trailing estimate such as "2h" or "1.5h" off the title.
func parseSubtaskInput(s string) (string, float64) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return strings.TrimSpace(s), 0
	}
	last := fields[len(fields)-1]
	if !strings.HasSuffix(last, "h") {
		return strings.Join(fields, " "), 0
	}
	hours, err := strconv.ParseFloat(strings.TrimSuffix(last, "h"), 64)
	if err != nil || hours < 0 {
		return strings.Join(fields, " "), 0
	}
	return strings.Join(fields[:len(fields)-1], " "), hours
}
