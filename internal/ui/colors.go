package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
)

// Theme names the hex colors of each role in the dashboard.
type Theme struct {
	Title, OK, Error, Warning, Muted string
}

var defaultTheme = Theme{Title: "#7D56F4", OK: "#04B575", Error: "#FF0000", Warning: "#FFA500", Muted: "#626262"}

var styles = NewPalette(defaultTheme)

// Palette holds the rendered [lipgloss.Style] for each role of a [Theme].
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t Theme) *Palette {
	return &Palette{
		title: bold(t.Title).MarginBottom(1),
		ok:    bold(t.OK),
		err:   bold(t.Error),
		warn:  fg(t.Warning),
		help:  fg(t.Muted).Italic(true),
	}
}

// Priority colors a priority label: high in the error color, medium as a warning, low muted.
func (p *Palette) Priority(pr models.Priority) string {
	switch pr {
	case models.PriorityHigh:
		return p.err.Render(string(pr))
	case models.PriorityMedium:
		return p.warn.Render(string(pr))
	default:
		return p.help.Render(string(pr))
	}
}

// Bucket colors a dashboard section label. Only Overdue stands out.
func (p *Palette) Bucket(name string) string {
	if name == bucketOverdue {
		return p.err.Render(name)
	}
	return name
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}
