package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/metrics"
)

// Refresher redraws the current view after the Store changed.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// QuotePoster hands a new quote to the remote endpoint without blocking.
type QuotePoster interface {
	PostQuote(ctx context.Context, quote domain.Quote)
}

// Editor validates user input and appends it to the Store.
type Editor struct {
	store     *Store
	refresher Refresher
	poster    QuotePoster
	exec      *Executor
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// EditorConfig holds Editor dependencies. Refresher and Poster are optional.
type EditorConfig struct {
	Store     *Store
	Refresher Refresher
	Poster    QuotePoster
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// NewEditor creates an Editor.
func NewEditor(cfg EditorConfig) *Editor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "editor"))

	return &Editor{
		store:     cfg.Store,
		refresher: cfg.Refresher,
		poster:    cfg.Poster,
		exec:      NewExecutor(logger),
		logger:    logger,
		metrics:   cfg.Metrics,
	}
}

type submitInput struct {
	text     string
	category string
}

// Submit trims text and category, appends the quote, persists it, refreshes
// the view and hands it to the poster. Blank fields return a
// domain.ValidationError and change nothing.
func (e *Editor) Submit(ctx context.Context, text, category string) (domain.Quote, error) {
	op := Operation[submitInput, domain.Quote, domain.Quote]{
		Name: "submit_quote",
		Validate: func(_ context.Context, in submitInput) error {
			_, err := domain.NewQuote(in.text, in.category)
			return err
		},
		Perform: func(_ context.Context, in submitInput) (domain.Quote, error) {
			return domain.NewQuote(in.text, in.category)
		},
		Archive: func(ctx context.Context, quote domain.Quote) error {
			return e.store.Append(ctx, quote)
		},
		Respond: func(ctx context.Context, quote domain.Quote) (domain.Quote, error) {
			e.metrics.QuotesAdded(metrics.SourceEditor, 1)
			e.refresh(ctx)

			if e.poster != nil {
				e.poster.PostQuote(ctx, quote)
			}

			return quote, nil
		},
	}

	return Execute(ctx, e.exec, op, submitInput{text: text, category: category})
}

// ImportBatch decodes raw as a JSON array of quotes and appends all of them,
// or none when any element is malformed. Imported quotes are not posted.
func (e *Editor) ImportBatch(ctx context.Context, raw []byte) (int, error) {
	op := Operation[[]byte, []domain.Quote, int]{
		Name: "import_quotes",
		Perform: func(_ context.Context, in []byte) ([]domain.Quote, error) {
			return decodeImport(in)
		},
		Archive: func(ctx context.Context, quotes []domain.Quote) error {
			return e.store.AppendAll(ctx, quotes)
		},
		Respond: func(ctx context.Context, quotes []domain.Quote) (int, error) {
			e.metrics.QuotesAdded(metrics.SourceImport, len(quotes))
			e.refresh(ctx)

			return len(quotes), nil
		},
	}

	return Execute(ctx, e.exec, op, raw)
}

// ExportSnapshot returns the whole Store as indented JSON.
func (e *Editor) ExportSnapshot(_ context.Context) []byte {
	return exportQuotes(e.store.Snapshot())
}

// refresh redraws after a committed change. The quotes are already saved, so
// a draw failure is logged and never reported as a failed edit.
func (e *Editor) refresh(ctx context.Context) {
	if e.refresher == nil {
		return
	}

	if err := e.refresher.Refresh(ctx); err != nil {
		e.logger.WarnContext(ctx, "refresh after edit failed", slog.Any("error", err))
	}
}
