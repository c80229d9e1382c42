package render

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Surface kinds accepted by render.surface.
const (
	KindMemory   = "memory"
	KindTerminal = "terminal"
	KindHTML     = "html"
)

// NewSurface builds the surface named by kind. Memory surfaces ignore out.
func NewSurface(kind string, out io.Writer, wordWrap int, logger *slog.Logger) (ports.Surface, error) {
	switch kind {
	case KindMemory:
		return NewMemorySurface(), nil
	case KindTerminal:
		return NewTerminalSurface(TerminalConfig{Out: out, WordWrap: wordWrap, Logger: logger}), nil
	case KindHTML:
		return NewHTMLSurface(out, NewHTMLRenderer("")), nil
	default:
		return nil, fmt.Errorf("unknown render surface %q", kind)
	}
}
