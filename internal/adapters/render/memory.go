// Package render provides ports.Surface implementations: an in-memory
// surface that keeps structured nodes, a terminal surface (glamour, with a
// lipgloss fallback) and an HTML surface (goldmark).
package render

import (
	"context"
	"slices"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// MemorySurface records the last drawn view. The HTTP API and tests read it back.
type MemorySurface struct {
	mu    sync.RWMutex
	view  ports.View
	draws int
}

// NewMemorySurface creates an empty MemorySurface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

// Draw implements ports.Surface.
func (m *MemorySurface) Draw(_ context.Context, view ports.View) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.view = ports.View{Nodes: slices.Clone(view.Nodes)}
	m.draws++

	return nil
}

// View returns a copy of the current content.
func (m *MemorySurface) View() ports.View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ports.View{Nodes: slices.Clone(m.view.Nodes)}
}

// Draws counts Draw calls.
func (m *MemorySurface) Draws() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.draws
}
