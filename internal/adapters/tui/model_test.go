package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func newModel(t *testing.T, source ports.QuoteSource) (Model, *app.QuoteService) {
	t.Helper()

	surface := NewSurface()
	svc := app.NewQuoteService(app.QuoteServiceConfig{
		KV:      storage.NewMemoryStore(),
		Session: storage.NewMemoryStore(),
		Surface: surface,
		Source:  source,
		Intn:    func(int) int { return 0 },
		Sync:    app.SyncSettings{Interval: time.Minute},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(svc.StopSync)

	return NewModel(context.Background(), svc, surface), svc
}

// press feeds key to m and runs the resulting command synchronously.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()

	next, cmd := m.Update(key)
	m = next.(Model)

	if cmd == nil {
		return m
	}

	msg := cmd()
	if msg == nil {
		return m
	}

	if _, ok := msg.(tea.BatchMsg); ok {
		return m
	}

	next, _ = m.Update(msg)

	return next.(Model)
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})

	return next.(Model)
}

func keyOf(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func TestNewModel_ShowsInitialList(t *testing.T) {
	m, _ := newModel(t, nil)

	assert.Len(t, m.view.Nodes, 9)
	assert.Equal(t, "all", m.selected)
	assert.Equal(t, []string{"all", "Inspiration", "Motivation", "Programming"}, m.categories)
	assert.Contains(t, m.View(), "First, solve the problem.")
}

func TestModel_FocusCycles(t *testing.T) {
	m, _ := newModel(t, nil)
	require.Equal(t, focusText, m.focus)

	m = press(t, m, keyOf(tea.KeyTab))
	assert.Equal(t, focusCategory, m.focus)
	assert.True(t, m.category.Focused())
	assert.False(t, m.text.Focused())

	m = press(t, m, keyOf(tea.KeyTab))
	assert.Equal(t, focusText, m.focus)

	m = press(t, m, keyOf(tea.KeyShiftTab))
	assert.Equal(t, focusCategory, m.focus)
}

func TestModel_AddQuote(t *testing.T) {
	m, svc := newModel(t, nil)

	m = typeText(t, m, "Ship it.")
	m = press(t, m, keyOf(tea.KeyTab))
	m = typeText(t, m, "Work")
	m = press(t, m, keyOf(tea.KeyEnter))

	assert.Equal(t, msgAdded, m.status)
	assert.False(t, m.statusErr)
	assert.Empty(t, m.text.Value())
	assert.Empty(t, m.category.Value())
	assert.Equal(t, focusText, m.focus)
	assert.Contains(t, m.categories, "Work")
	assert.Len(t, svc.All(), 4)
	assert.Contains(t, m.View(), "Ship it.")
}

func TestModel_AddQuoteValidation(t *testing.T) {
	m, svc := newModel(t, nil)

	m = typeText(t, m, "Ship it.")
	m = press(t, m, keyOf(tea.KeyEnter))

	assert.Equal(t, msgBothRequired, m.status)
	assert.True(t, m.statusErr)
	assert.Equal(t, "Ship it.", m.text.Value(), "inputs are kept on failure")
	assert.Len(t, svc.All(), 3)
}

func TestModel_CategorySelector(t *testing.T) {
	m, svc := newModel(t, nil)

	m = press(t, m, keyOf(tea.KeyCtrlN))
	assert.Equal(t, "Inspiration", m.selected)
	assert.Equal(t, "Inspiration", svc.Selected(context.Background()))
	assert.Len(t, m.view.Nodes, 3)

	m = press(t, m, keyOf(tea.KeyCtrlP))
	m = press(t, m, keyOf(tea.KeyCtrlP))
	assert.Equal(t, "Programming", m.selected, "selector wraps backwards past all")
}

func TestModel_RandomQuote(t *testing.T) {
	m, svc := newModel(t, nil)

	m = press(t, m, keyOf(tea.KeyCtrlR))

	assert.Equal(t, "Random quote from Inspiration", m.status)
	require.Len(t, m.view.Nodes, 2)

	last, err := svc.LastViewed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultQuotes()[0], *last)

	m = press(t, m, keyOf(tea.KeyCtrlL))
	assert.Len(t, m.view.Nodes, 9)
}

func TestModel_Sync(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		m, _ := newModel(t, nil)

		m = press(t, m, keyOf(tea.KeyCtrlS))

		assert.True(t, m.statusErr)
		assert.Equal(t, "Sync is not configured.", m.status)
	})

	t.Run("adds server quotes", func(t *testing.T) {
		source := mocks.NewMockQuoteSource(t)
		source.EXPECT().FetchQuotes(mock.Anything).Return([]domain.Quote{
			{Text: "qui est esse", Category: domain.ServerCategory},
		}, nil).Once()

		m, _ := newModel(t, source)

		m = press(t, m, keyOf(tea.KeyCtrlS))

		assert.Equal(t, app.SyncedMessage, m.status)
		assert.Contains(t, m.categories, domain.ServerCategory)
		assert.Contains(t, m.View(), "qui est esse")
	})

	t.Run("nothing new", func(t *testing.T) {
		source := mocks.NewMockQuoteSource(t)
		source.EXPECT().FetchQuotes(mock.Anything).Return([]domain.Quote{}, nil).Once()

		m, _ := newModel(t, source)

		m = press(t, m, keyOf(tea.KeyCtrlS))

		assert.Equal(t, "Up to date (3 quotes)", m.status)
	})
}

func TestModel_ViewMsgFromBackground(t *testing.T) {
	m, _ := newModel(t, nil)

	next, _ := m.Update(viewMsg{view: ports.View{Nodes: []ports.Node{{Kind: ports.NodeMessage, Content: app.NoQuotesMessage}}}})

	assert.Contains(t, next.(Model).View(), app.NoQuotesMessage)
}

func TestModel_Quit(t *testing.T) {
	m, _ := newModel(t, nil)

	_, cmd := m.Update(keyOf(tea.KeyEsc))
	require.NotNil(t, cmd)

	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestSurface_Detached(t *testing.T) {
	s := NewSurface()
	view := ports.View{Nodes: []ports.Node{{Kind: ports.NodeText, Content: "x"}}}

	require.NoError(t, s.Draw(context.Background(), view))

	assert.Equal(t, view, s.View())
	assert.Equal(t, 1, s.Draws())
}
