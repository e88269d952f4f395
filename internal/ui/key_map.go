package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	back     key.Binding
	complete key.Binding
	toggle   key.Binding
	add      key.Binding
	remove   key.Binding
	search   key.Binding
	status   key.Binding
	priority key.Binding
	timeline key.Binding
	clear    key.Binding
	next     key.Binding
	prev     key.Binding
	refresh  key.Binding
	moveUp   key.Binding
	moveDown key.Binding
	yes      key.Binding
	no       key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "subtasks")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		remove:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		status:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
		priority: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
		timeline: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timeline")),
		clear:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
		next:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		prev:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		moveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		moveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.complete, k.add, k.search, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.complete},
		{k.add, k.remove, k.refresh},
		{k.search, k.status, k.priority, k.timeline, k.clear},
		{k.prev, k.next, k.help, k.quit},
	}
}

// subtaskKeys is the help shown on the subtask view.
func (k keyMap) subtaskKeys() []key.Binding {
	return []key.Binding{k.toggle, k.add, k.remove, k.moveUp, k.moveDown, k.back, k.quit}
}
