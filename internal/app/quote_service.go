package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/metrics"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// ErrSyncDisabled is returned by sync operations when no remote source is configured.
var ErrSyncDisabled = errors.New("sync is not configured")

// QuoteService is the facade every front end talks to. It owns the refresh
// step: read the selection, filter the Store, draw the list.
type QuoteService struct {
	store    *Store
	filter   *FilterIndex
	renderer *Renderer
	editor   *Editor
	sync     *SyncAgent
	logger   *slog.Logger
}

// SyncSettings tunes the Sync Agent built by NewQuoteService.
type SyncSettings struct {
	Interval       time.Duration
	BackoffEnabled bool
	MaxBackoff     time.Duration
	FetchLimit     int
	NotifyTitle    string
	PostTimeout    time.Duration
}

// QuoteServiceConfig wires the service. Source and Notifier are optional;
// without a Source there is no Sync Agent and nothing is posted.
type QuoteServiceConfig struct {
	KV          ports.KeyValueStore
	Session     ports.KeyValueStore
	Surface     ports.Surface
	Source      ports.QuoteSource
	Notifier    ports.Notifier
	MergePolicy MergePolicy
	Sync        SyncSettings
	Intn        func(n int) int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// NewQuoteService builds the Store, Filter Index, Renderer, Editor and Sync Agent.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &QuoteService{
		store: NewStore(StoreConfig{
			KV:          cfg.KV,
			MergePolicy: cfg.MergePolicy,
			Logger:      logger,
			Metrics:     cfg.Metrics,
		}),
		filter: NewFilterIndex(cfg.KV, logger),
		renderer: NewRenderer(RendererConfig{
			Surface: cfg.Surface,
			Session: cfg.Session,
			Intn:    cfg.Intn,
			Logger:  logger,
		}),
		logger: logger,
	}

	var poster QuotePoster

	if cfg.Source != nil {
		s.sync = NewSyncAgent(SyncAgentConfig{
			Source:         cfg.Source,
			Store:          s.store,
			Refresher:      s,
			Notifier:       cfg.Notifier,
			Interval:       cfg.Sync.Interval,
			BackoffEnabled: cfg.Sync.BackoffEnabled,
			MaxBackoff:     cfg.Sync.MaxBackoff,
			FetchLimit:     cfg.Sync.FetchLimit,
			NotifyTitle:    cfg.Sync.NotifyTitle,
			PostTimeout:    cfg.Sync.PostTimeout,
			Logger:         logger,
			Metrics:        cfg.Metrics,
		})
		poster = s.sync
	}

	s.editor = NewEditor(EditorConfig{
		Store:     s.store,
		Refresher: s,
		Poster:    poster,
		Logger:    logger,
		Metrics:   cfg.Metrics,
	})

	return s
}

// Init loads the persisted quotes and draws the first view.
func (s *QuoteService) Init(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}

	return s.Refresh(ctx)
}

// Load reads the persisted quotes without drawing. A corrupt snapshot is not
// fatal: the defaults are used in memory and the blob is left on disk for
// inspection until the next successful save overwrites it.
func (s *QuoteService) Load(ctx context.Context) error {
	if _, err := s.store.Load(ctx); err != nil {
		if !domain.IsParse(err) {
			return err
		}

		s.logger.WarnContext(ctx, "persisted quotes are malformed, using defaults", slog.Any("error", err))
		s.store.adopt(domain.DefaultQuotes())
	}

	return nil
}

// Refresh redraws the quotes in the selected category.
func (s *QuoteService) Refresh(ctx context.Context) error {
	return s.renderer.RenderList(ctx, s.Quotes(ctx, ""))
}

// Reload re-reads the persisted snapshot after an external change and
// redraws. A malformed snapshot keeps the current list.
func (s *QuoteService) Reload(ctx context.Context) error {
	if _, err := s.store.Load(ctx); err != nil {
		return err
	}

	return s.Refresh(ctx)
}

// Quotes returns the quotes in category. An empty category means the
// persisted selection.
func (s *QuoteService) Quotes(ctx context.Context, category string) []domain.Quote {
	quotes := s.store.Snapshot()

	if category == "" {
		category = s.filter.Selected(ctx, quotes)
	}

	return s.filter.Apply(quotes, category)
}

// All returns every quote in order.
func (s *QuoteService) All() []domain.Quote {
	return s.store.Snapshot()
}

// View builds the list view for the selected category without drawing it.
func (s *QuoteService) View(ctx context.Context) ports.View {
	return ListView(s.Quotes(ctx, ""))
}

// ShowRandom draws one random quote from the selected category. It returns
// nil when the category is empty.
func (s *QuoteService) ShowRandom(ctx context.Context) (*domain.Quote, error) {
	return s.renderer.RenderRandom(ctx, s.Quotes(ctx, ""))
}

// LastViewed returns the last quote drawn on its own in this process.
func (s *QuoteService) LastViewed(ctx context.Context) (*domain.Quote, error) {
	return s.renderer.LastViewed(ctx)
}

// Categories returns "all" followed by the distinct categories.
func (s *QuoteService) Categories() []string {
	return s.filter.Categories(s.store.Snapshot())
}

// Selected returns the effective category selection.
func (s *QuoteService) Selected(ctx context.Context) string {
	return s.filter.Selected(ctx, s.store.Snapshot())
}

// Select persists category as the selection and redraws. The stored value is
// returned; an unknown category becomes "all".
func (s *QuoteService) Select(ctx context.Context, category string) (string, error) {
	stored, err := s.filter.SetSelected(ctx, category, s.store.Snapshot())
	if err != nil {
		return "", err
	}

	return stored, s.Refresh(ctx)
}

// Add submits a new quote through the Editor.
func (s *QuoteService) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	return s.editor.Submit(ctx, text, category)
}

// Import appends a JSON batch through the Editor.
func (s *QuoteService) Import(ctx context.Context, raw []byte) (int, error) {
	return s.editor.ImportBatch(ctx, raw)
}

// Export returns the indented JSON snapshot.
func (s *QuoteService) Export(ctx context.Context) []byte {
	return s.editor.ExportSnapshot(ctx)
}

// SyncNow runs one sync cycle immediately.
func (s *QuoteService) SyncNow(ctx context.Context) (SyncResult, error) {
	if s.sync == nil {
		return SyncResult{}, ErrSyncDisabled
	}

	return s.sync.RunOnce(ctx)
}

// StartSync starts the periodic Sync Agent.
func (s *QuoteService) StartSync(ctx context.Context) error {
	if s.sync == nil {
		return ErrSyncDisabled
	}

	s.sync.Start(ctx)

	return nil
}

// StopSync stops the Sync Agent and waits for in-flight posts.
func (s *QuoteService) StopSync() {
	if s.sync != nil {
		s.sync.Stop()
	}
}

// SyncState reports the Sync Agent state, or idle when sync is disabled.
func (s *QuoteService) SyncState() SyncState {
	if s.sync == nil {
		return SyncIdle
	}

	return s.sync.State()
}
