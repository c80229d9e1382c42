package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// TerminalConfig configures a TerminalSurface.
type TerminalConfig struct {
	Out io.Writer

	// WordWrap is the wrap column handed to glamour.
	WordWrap int

	// Style is a glamour standard style ("dark", "light", "notty"). Empty
	// selects one from the terminal background.
	Style string

	Logger *slog.Logger
}

// TerminalSurface draws views as glamour-rendered markdown. When glamour
// cannot render, it falls back to plain lipgloss styling.
type TerminalSurface struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *glamour.TermRenderer
	logger   *slog.Logger

	quote    lipgloss.Style
	category lipgloss.Style
	rule     lipgloss.Style
}

// NewTerminalSurface creates a TerminalSurface.
func NewTerminalSurface(cfg TerminalConfig) *TerminalSurface {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wrap := cfg.WordWrap
	if wrap <= 0 {
		wrap = 80
	}

	style := glamour.WithAutoStyle()
	if cfg.Style != "" {
		style = glamour.WithStylePath(cfg.Style)
	}

	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrap))
	if err != nil {
		logger.Warn("glamour unavailable, using plain styling", slog.Any("error", err))
		renderer = nil
	}

	return &TerminalSurface{
		out:      cfg.Out,
		renderer: renderer,
		logger:   logger,
		quote:    lipgloss.NewStyle().Bold(true).Width(wrap),
		category: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8")),
		rule:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Draw implements ports.Surface.
func (t *TerminalSurface) Draw(ctx context.Context, view ports.View) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.render(ctx, view)

	if _, err := io.WriteString(t.out, out); err != nil {
		return fmt.Errorf("writing to terminal: %w", err)
	}

	return nil
}

func (t *TerminalSurface) render(ctx context.Context, view ports.View) string {
	if t.renderer != nil {
		out, err := t.renderer.Render(Markdown(view))
		if err == nil {
			return out
		}

		t.logger.DebugContext(ctx, "glamour render failed, using plain styling", slog.Any("error", err))
	}

	return t.plain(view)
}

func (t *TerminalSurface) plain(view ports.View) string {
	var b strings.Builder

	for _, node := range view.Nodes {
		switch node.Kind {
		case ports.NodeText:
			b.WriteString(t.quote.Render(node.Content))
		case ports.NodeCategory:
			b.WriteString(t.category.Render(node.Content))
		case ports.NodeSeparator:
			b.WriteString(t.rule.Render(strings.Repeat("-", 20)))
		default:
			b.WriteString(node.Content)
		}

		b.WriteString("\n")
	}

	return b.String()
}
