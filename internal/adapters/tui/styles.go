package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

var (
	accent  = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	muted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	danger  = lipgloss.Color("#E53935")
	success = lipgloss.Color("#8BC34A")
)

// Styles groups the lipgloss styles used by the model.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Display  lipgloss.Style
	Quote    lipgloss.Style
	Category lipgloss.Style
	Rule     lipgloss.Style
	Message  lipgloss.Style
	Selector lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the adaptive light/dark styles.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		Label:    lipgloss.NewStyle().Foreground(muted),
		Focused:  lipgloss.NewStyle().Foreground(accent).Bold(true),
		Display:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
		Quote:    lipgloss.NewStyle().Bold(true),
		Category: lipgloss.NewStyle().Italic(true).Foreground(muted),
		Rule:     lipgloss.NewStyle().Foreground(muted),
		Message:  lipgloss.NewStyle().Foreground(muted),
		Selector: lipgloss.NewStyle().Foreground(accent),
		Status:   lipgloss.NewStyle().Foreground(success),
		Error:    lipgloss.NewStyle().Foreground(danger),
		Help:     lipgloss.NewStyle().Foreground(muted).MarginTop(1),
	}
}

// renderView draws view nodes for the display region, wrapped to width.
func (s Styles) renderView(view ports.View, width int) string {
	lines := make([]string, 0, len(view.Nodes))

	for _, node := range view.Nodes {
		switch node.Kind {
		case ports.NodeText:
			lines = append(lines, s.Quote.Width(width).Render(node.Content))
		case ports.NodeCategory:
			lines = append(lines, s.Category.Render(node.Content))
		case ports.NodeSeparator:
			lines = append(lines, s.Rule.Render(strings.Repeat("─", min(width, 40))))
		default:
			lines = append(lines, s.Message.Render(node.Content))
		}
	}

	return strings.Join(lines, "\n")
}
