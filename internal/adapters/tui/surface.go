package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jsamuelsen/quotesync/internal/adapters/render"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// viewMsg carries a redraw into the program.
type viewMsg struct {
	view ports.View
}

// Surface is the display region of the TUI. It keeps the last drawn view and,
// once attached, forwards every draw to the running program so background
// sync cycles show up without a keypress.
//
// Draw must not be called from inside Model.Update: Program.Send blocks until
// the event loop receives the message. Every service call made by the model
// runs in a tea.Cmd for that reason.
type Surface struct {
	*render.MemorySurface

	mu      sync.Mutex
	program *tea.Program
}

// NewSurface creates a detached Surface.
func NewSurface() *Surface {
	return &Surface{MemorySurface: render.NewMemorySurface()}
}

// Attach starts forwarding draws to p. A nil p detaches.
func (s *Surface) Attach(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.program = p
}

// Draw implements ports.Surface.
func (s *Surface) Draw(ctx context.Context, view ports.View) error {
	if err := s.MemorySurface.Draw(ctx, view); err != nil {
		return err
	}

	s.mu.Lock()
	p := s.program
	s.mu.Unlock()

	if p != nil {
		p.Send(viewMsg{view: s.View()})
	}

	return nil
}
