package render

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

func listView() ports.View {
	return ports.View{Nodes: []ports.Node{
		{Kind: ports.NodeText, Content: `"Ship it."`},
		{Kind: ports.NodeCategory, Content: "Category: Work"},
		{Kind: ports.NodeSeparator},
		{Kind: ports.NodeText, Content: `"Rest."`},
		{Kind: ports.NodeCategory, Content: "Category: Life"},
		{Kind: ports.NodeSeparator},
	}}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(listView())

	assert.Equal(t, "> \"Ship it.\"\n\n*Category: Work*\n\n---\n\n> \"Rest.\"\n\n*Category: Life*\n\n---\n\n", got)
}

func TestMarkdown_EscapesUserText(t *testing.T) {
	got := Markdown(ports.View{Nodes: []ports.Node{
		{Kind: ports.NodeText, Content: "<b>*bold*</b> [link](x)"},
	}})

	assert.Equal(t, "> \\<b\\>\\*bold\\*\\</b\\> \\[link\\](x)\n\n", got)
}

func TestMarkdown_Message(t *testing.T) {
	got := Markdown(ports.View{Nodes: []ports.Node{{Kind: ports.NodeMessage, Content: "No quotes available."}}})

	assert.Equal(t, "No quotes available.\n\n", got)
}

func TestHTMLRenderer_Fragment(t *testing.T) {
	out, err := NewHTMLRenderer("").Fragment(listView())

	require.NoError(t, err)
	html := string(out)
	assert.Equal(t, 2, strings.Count(html, "<blockquote>"))
	assert.Equal(t, 2, strings.Count(html, "<hr"))
	assert.Contains(t, html, "<em>Category: Work</em>")
	assert.Less(t, strings.Index(html, "Ship it."), strings.Index(html, "Rest."))
}

func TestHTMLRenderer_EscapesMarkup(t *testing.T) {
	out, err := NewHTMLRenderer("").Fragment(ports.View{Nodes: []ports.Node{
		{Kind: ports.NodeText, Content: "<script>alert(1)</script>"},
	}})

	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestHTMLRenderer_Page(t *testing.T) {
	out, err := NewHTMLRenderer("My <Quotes>").Page(ports.View{Nodes: []ports.Node{
		{Kind: ports.NodeMessage, Content: "No quotes available."},
	}})

	require.NoError(t, err)
	page := string(out)
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>My &lt;Quotes&gt;</title>")
	assert.Contains(t, page, `<div id="quoteDisplay">`)
	assert.Contains(t, page, "<p>No quotes available.</p>")
}

func TestHTMLSurface_Draw(t *testing.T) {
	var buf bytes.Buffer
	surface := NewHTMLSurface(&buf, nil)

	require.NoError(t, surface.Draw(context.Background(), listView()))

	assert.Contains(t, buf.String(), "Ship it.")
	assert.Contains(t, buf.String(), "</html>")
}

func TestTerminalSurface_Draw(t *testing.T) {
	var buf bytes.Buffer
	surface := NewTerminalSurface(TerminalConfig{
		Out:      &buf,
		WordWrap: 60,
		Style:    "notty",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	require.NoError(t, surface.Draw(context.Background(), listView()))

	out := buf.String()
	assert.Contains(t, out, "Ship it.")
	assert.Contains(t, out, "Category: Life")
	assert.Less(t, strings.Index(out, "Ship it."), strings.Index(out, "Rest."))
}

func TestTerminalSurface_PlainFallback(t *testing.T) {
	surface := NewTerminalSurface(TerminalConfig{Out: io.Discard, WordWrap: 40, Style: "notty"})

	out := surface.plain(listView())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "Ship it.")
	assert.Contains(t, lines[1], "Category: Work")
	assert.Contains(t, lines[2], "----")
}

func TestMemorySurface(t *testing.T) {
	surface := NewMemorySurface()
	view := listView()

	require.NoError(t, surface.Draw(context.Background(), view))
	view.Nodes[0].Content = "mutated"

	assert.Equal(t, 1, surface.Draws())
	assert.Equal(t, `"Ship it."`, surface.View().Nodes[0].Content)
}

func TestNewSurface(t *testing.T) {
	for _, kind := range []string{KindMemory, KindTerminal, KindHTML} {
		surface, err := NewSurface(kind, io.Discard, 80, nil)
		require.NoError(t, err, kind)
		assert.NotNil(t, surface)
	}

	_, err := NewSurface("canvas", io.Discard, 80, nil)
	assert.Error(t, err)
}
