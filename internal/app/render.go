package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// NoQuotesMessage is shown when there is nothing to display.
const NoQuotesMessage = "No quotes available."

// Renderer turns quotes into a ports.View and draws it on a Surface.
type Renderer struct {
	surface ports.Surface
	session ports.KeyValueStore
	intn    func(n int) int
	logger  *slog.Logger
}

// RendererConfig holds Renderer dependencies. Intn defaults to math/rand/v2.
type RendererConfig struct {
	Surface ports.Surface
	Session ports.KeyValueStore
	Intn    func(n int) int
	Logger  *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(cfg RendererConfig) *Renderer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	intn := cfg.Intn
	if intn == nil {
		intn = rand.IntN
	}

	return &Renderer{
		surface: cfg.Surface,
		session: cfg.Session,
		intn:    intn,
		logger:  logger.With(slog.String("component", "renderer")),
	}
}

// OneView builds the view for a single quote; nil yields the no-quotes message.
func OneView(quote *domain.Quote) ports.View {
	if quote == nil {
		return messageView()
	}

	return ports.View{Nodes: quoteNodes(*quote)}
}

// ListView builds the view for quotes in order, each followed by a separator.
func ListView(quotes []domain.Quote) ports.View {
	if len(quotes) == 0 {
		return messageView()
	}

	nodes := make([]ports.Node, 0, len(quotes)*3)
	for _, quote := range quotes {
		nodes = append(nodes, quoteNodes(quote)...)
		nodes = append(nodes, ports.Node{Kind: ports.NodeSeparator})
	}

	return ports.View{Nodes: nodes}
}

// RenderOne replaces the surface content with quote and records it as the
// last viewed quote in session storage. A session write failure is only logged.
func (r *Renderer) RenderOne(ctx context.Context, quote *domain.Quote) error {
	if err := r.surface.Draw(ctx, OneView(quote)); err != nil {
		return fmt.Errorf("drawing quote: %w", err)
	}

	if quote != nil {
		r.rememberLastViewed(ctx, *quote)
	}

	return nil
}

// RenderList replaces the surface content with quotes.
func (r *Renderer) RenderList(ctx context.Context, quotes []domain.Quote) error {
	if err := r.surface.Draw(ctx, ListView(quotes)); err != nil {
		return fmt.Errorf("drawing quote list: %w", err)
	}

	return nil
}

// RenderRandom picks one of quotes at random and renders it. An empty list
// renders the no-quotes message and returns nil.
func (r *Renderer) RenderRandom(ctx context.Context, quotes []domain.Quote) (*domain.Quote, error) {
	var picked *domain.Quote

	if len(quotes) > 0 {
		choice := quotes[r.intn(len(quotes))]
		picked = &choice
	}

	if err := r.RenderOne(ctx, picked); err != nil {
		return nil, err
	}

	return picked, nil
}

// LastViewed returns the quote recorded by the most recent RenderOne.
func (r *Renderer) LastViewed(ctx context.Context) (*domain.Quote, error) {
	raw, err := r.session.Get(ctx, ports.KeyLastViewedQuote)
	if err != nil {
		return nil, err
	}

	var quote domain.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, domain.NewParseError("session", "last viewed quote", err)
	}

	return &quote, nil
}

func (r *Renderer) rememberLastViewed(ctx context.Context, quote domain.Quote) {
	if r.session == nil {
		return
	}

	raw, err := json.Marshal(quote)
	if err == nil {
		err = r.session.Set(ctx, ports.KeyLastViewedQuote, raw)
	}

	if err != nil {
		r.logger.WarnContext(ctx, "recording last viewed quote", slog.Any("error", err))
	}
}

func quoteNodes(quote domain.Quote) []ports.Node {
	return []ports.Node{
		{Kind: ports.NodeText, Content: `"` + quote.Text + `"`},
		{Kind: ports.NodeCategory, Content: "Category: " + quote.Category},
	}
}

func messageView() ports.View {
	return ports.View{Nodes: []ports.Node{{Kind: ports.NodeMessage, Content: NoQuotesMessage}}}
}
