package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"sync"

	"github.com/yuin/goldmark"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
<div id="quoteDisplay">
%s</div>
</body>
</html>
`

// HTMLRenderer turns views into HTML through goldmark.
type HTMLRenderer struct {
	md    goldmark.Markdown
	title string
}

// NewHTMLRenderer creates an HTMLRenderer. title is used by Page.
func NewHTMLRenderer(title string) *HTMLRenderer {
	if title == "" {
		title = "Quotes"
	}

	return &HTMLRenderer{md: goldmark.New(), title: title}
}

// Fragment renders the view body only.
func (h *HTMLRenderer) Fragment(view ports.View) ([]byte, error) {
	var buf bytes.Buffer

	if err := h.md.Convert([]byte(Markdown(view)), &buf); err != nil {
		return nil, fmt.Errorf("rendering html: %w", err)
	}

	return buf.Bytes(), nil
}

// Page renders the view as a standalone HTML document.
func (h *HTMLRenderer) Page(view ports.View) ([]byte, error) {
	body, err := h.Fragment(view)
	if err != nil {
		return nil, err
	}

	return fmt.Appendf(nil, pageTemplate, html.EscapeString(h.title), body), nil
}

// HTMLSurface writes a full page to Out on every Draw.
type HTMLSurface struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *HTMLRenderer
}

// NewHTMLSurface creates an HTMLSurface.
func NewHTMLSurface(out io.Writer, renderer *HTMLRenderer) *HTMLSurface {
	if renderer == nil {
		renderer = NewHTMLRenderer("")
	}

	return &HTMLSurface{out: out, renderer: renderer}
}

// Draw implements ports.Surface.
func (s *HTMLSurface) Draw(_ context.Context, view ports.View) error {
	page, err := s.renderer.Page(view)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.out.Write(page); err != nil {
		return fmt.Errorf("writing html: %w", err)
	}

	return nil
}
