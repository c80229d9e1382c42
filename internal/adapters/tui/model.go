// Package tui is the interactive terminal front end: quote and category
// inputs, an add action, a category selector, the display region and a
// status line.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

const (
	focusText = iota
	focusCategory
	focusCount
)

const (
	defaultWidth   = 80
	inputCharLimit = 500

	msgBothRequired = "Please enter both a quote and a category."
	msgAdded        = "Quote added!"
)

type addedMsg struct {
	quote domain.Quote
	err   error
}

type selectedMsg struct {
	category string
	err      error
}

type randomMsg struct {
	quote *domain.Quote
	err   error
}

type syncedMsg struct {
	result app.SyncResult
	err    error
}

type refreshedMsg struct {
	err error
}

// Model is the bubbletea model. Service calls run in commands so the
// Surface can forward draws while the event loop is free.
type Model struct {
	ctx     context.Context
	svc     *app.QuoteService
	surface *Surface
	styles  Styles

	text     textinput.Model
	category textinput.Model
	focus    int

	categories []string
	selected   string
	view       ports.View

	status    string
	statusErr bool
	width     int
}

// NewModel builds a Model over svc. The service must already be initialized
// with surface as its Surface.
func NewModel(ctx context.Context, svc *app.QuoteService, surface *Surface) Model {
	text := textinput.New()
	text.Placeholder = "Enter a new quote"
	text.Prompt = "> "
	text.CharLimit = inputCharLimit
	text.Focus()

	category := textinput.New()
	category.Placeholder = "Enter quote category"
	category.Prompt = "> "
	category.CharLimit = inputCharLimit

	return Model{
		ctx:        ctx,
		svc:        svc,
		surface:    surface,
		styles:     DefaultStyles(),
		text:       text,
		category:   category,
		categories: svc.Categories(),
		selected:   svc.Selected(ctx),
		view:       surface.View(),
		width:      defaultWidth,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-4, 20)
		m.text.Width = m.width - 4
		m.category.Width = m.width - 4

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case viewMsg:
		m.view = msg.view
		m.reloadCategories()

		return m, nil

	case addedMsg:
		m.afterAction()

		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}

		m.text.Reset()
		m.category.Reset()
		m.setFocus(focusText)
		m.setStatus(msgAdded)

		return m, nil

	case selectedMsg:
		m.afterAction()

		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}

		m.setStatus("Showing " + msg.category)

		return m, nil

	case randomMsg:
		m.afterAction()

		switch {
		case msg.err != nil:
			m.setError(msg.err)
		case msg.quote == nil:
			m.setStatus(app.NoQuotesMessage)
		default:
			m.setStatus("Random quote from " + msg.quote.Category)
		}

		return m, nil

	case syncedMsg:
		m.afterAction()

		switch {
		case msg.err != nil:
			m.setError(msg.err)
		case msg.result.Added > 0:
			m.setStatus(app.SyncedMessage)
		default:
			m.setStatus(fmt.Sprintf("Up to date (%d quotes)", msg.result.Total))
		}

		return m, nil

	case refreshedMsg:
		m.afterAction()

		if msg.err != nil {
			m.setError(msg.err)
		}

		return m, nil
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "down":
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case "shift+tab", "up":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	case "enter":
		return m, m.addCmd(m.text.Value(), m.category.Value())
	case "ctrl+n":
		return m, m.selectCmd(m.cycleCategory(1))
	case "ctrl+p":
		return m, m.selectCmd(m.cycleCategory(-1))
	case "ctrl+r":
		return m, m.randomCmd()
	case "ctrl+l":
		return m, m.refreshCmd()
	case "ctrl+s":
		return m, m.syncCmd()
	}

	return m.updateInputs(msg)
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var textCmd, categoryCmd tea.Cmd

	m.text, textCmd = m.text.Update(msg)
	m.category, categoryCmd = m.category.Update(msg)

	return m, tea.Batch(textCmd, categoryCmd)
}

func (m Model) addCmd(text, category string) tea.Cmd {
	return func() tea.Msg {
		quote, err := m.svc.Add(m.ctx, text, category)
		return addedMsg{quote: quote, err: err}
	}
}

func (m Model) selectCmd(category string) tea.Cmd {
	return func() tea.Msg {
		stored, err := m.svc.Select(m.ctx, category)
		return selectedMsg{category: stored, err: err}
	}
}

func (m Model) randomCmd() tea.Cmd {
	return func() tea.Msg {
		quote, err := m.svc.ShowRandom(m.ctx)
		return randomMsg{quote: quote, err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: m.svc.Refresh(m.ctx)}
	}
}

func (m Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.svc.SyncNow(m.ctx)
		return syncedMsg{result: result, err: err}
	}
}

// cycleCategory returns the category step positions away from the selection.
func (m Model) cycleCategory(step int) string {
	if len(m.categories) == 0 {
		return domain.CategoryAll
	}

	idx := 0

	for i, c := range m.categories {
		if c == m.selected {
			idx = i
			break
		}
	}

	n := len(m.categories)

	return m.categories[((idx+step)%n+n)%n]
}

func (m *Model) afterAction() {
	m.view = m.surface.View()
	m.reloadCategories()
}

func (m *Model) reloadCategories() {
	m.categories = m.svc.Categories()
	m.selected = m.svc.Selected(m.ctx)
}

func (m *Model) setFocus(focus int) {
	m.focus = focus

	if focus == focusText {
		m.text.Focus()
		m.category.Blur()

		return
	}

	m.category.Focus()
	m.text.Blur()
}

func (m *Model) setStatus(status string) {
	m.status = status
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.statusErr = true

	switch {
	case domain.IsValidation(err):
		m.status = msgBothRequired
	case errors.Is(err, app.ErrSyncDisabled):
		m.status = "Sync is not configured."
	default:
		m.status = err.Error()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Quotes"))
	b.WriteString("\n")

	b.WriteString(m.label("Quote", focusText))
	b.WriteString("\n")
	b.WriteString(m.text.View())
	b.WriteString("\n")
	b.WriteString(m.label("Category", focusCategory))
	b.WriteString("\n")
	b.WriteString(m.category.View())
	b.WriteString("\n\n")

	b.WriteString(m.styles.Label.Render("Filter: "))
	b.WriteString(m.styles.Selector.Render("◀ " + m.selected + " ▶"))
	b.WriteString("\n")

	b.WriteString(m.styles.Display.Width(m.width).Render(m.styles.renderView(m.view, m.width-4)))
	b.WriteString("\n")

	if m.status != "" {
		style := m.styles.Status
		if m.statusErr {
			style = m.styles.Error
		}

		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render(
		"enter add • tab switch field • ctrl+n/p category • ctrl+r random • ctrl+l list • ctrl+s sync • esc quit"))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) label(name string, focus int) string {
	if m.focus == focus {
		return m.styles.Focused.Render(name)
	}

	return m.styles.Label.Render(name)
}

// Run starts the program and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, svc *app.QuoteService, surface *Surface, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)

	p := tea.NewProgram(NewModel(ctx, svc, surface), opts...)

	surface.Attach(p)
	defer surface.Attach(nil)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("running tui: %w", err)
	}

	return nil
}
