// Package app contains the quote keeper's use cases: the Store, Filter Index,
// Renderer, Editor and Sync Agent, tied together by QuoteService.
//
// Components depend on ports only. Adapters (storage backends, the remote
// client, render surfaces, HTTP/CLI/TUI/MCP front ends) are injected at startup.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/platform/metrics"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// MergePolicy decides how a server snapshot is reconciled into the Store.
type MergePolicy string

const (
	// MergeReplace makes the server list the new local list.
	MergeReplace MergePolicy = "replace"

	// MergeUnionByText appends server quotes whose text is not already present.
	MergeUnionByText MergePolicy = "union-by-text"
)

// MergeResult describes what a Merge changed.
type MergeResult struct {
	Policy MergePolicy
	Added  int
	Total  int
}

// Store is the in-memory ordered quote list backed by a KeyValueStore.
// Every mutation builds the next list, persists it, and only then swaps it in,
// so a failed Save leaves the previous list in place.
type Store struct {
	mu      sync.Mutex
	quotes  []domain.Quote
	kv      ports.KeyValueStore
	policy  MergePolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// StoreConfig holds Store dependencies.
type StoreConfig struct {
	KV          ports.KeyValueStore
	MergePolicy MergePolicy
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// NewStore creates an empty Store. Call Load to populate it.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := cfg.MergePolicy
	if policy == "" {
		policy = MergeUnionByText
	}

	return &Store{
		quotes:  []domain.Quote{},
		kv:      cfg.KV,
		policy:  policy,
		logger:  logger.With(slog.String("component", "store")),
		metrics: cfg.Metrics,
	}
}

// Load reads the persisted snapshot and makes it the current list.
// An absent key yields the built-in defaults. A malformed blob returns a
// domain.ParseError and leaves the current list untouched.
//
// The writer lock is held from Get to swap so a commit cannot land between
// them and be overwritten by the older snapshot.
func (s *Store) Load(ctx context.Context) ([]domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, ports.KeyQuotes)

	var loaded []domain.Quote

	switch {
	case domain.IsNotFound(err):
		logging.FromContext(ctx).DebugContext(ctx, "no persisted quotes, using defaults")

		loaded = domain.DefaultQuotes()
	case err != nil:
		return nil, fmt.Errorf("reading quotes: %w", err)
	default:
		loaded, err = decodeQuotes(sourceStorage, raw)
		if err != nil {
			return nil, err
		}
	}

	s.quotes = loaded
	s.metrics.StoreSize(len(loaded))

	return slices.Clone(loaded), nil
}

// Save overwrites the persisted snapshot with quotes and makes it current.
func (s *Store) Save(ctx context.Context, quotes []domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(quotes)
	if next == nil {
		next = []domain.Quote{}
	}

	return s.commit(ctx, next)
}

// Replace is Save under the name the watcher and import paths use.
func (s *Store) Replace(ctx context.Context, quotes []domain.Quote) error {
	return s.Save(ctx, quotes)
}

// Append adds quote at the end and persists.
func (s *Store) Append(ctx context.Context, quote domain.Quote) error {
	return s.AppendAll(ctx, []domain.Quote{quote})
}

// AppendAll adds quotes at the end, in order, and persists once.
func (s *Store) AppendAll(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.Quote, 0, len(s.quotes)+len(quotes))
	next = append(next, s.quotes...)
	next = append(next, quotes...)

	return s.commit(ctx, next)
}

// Merge reconciles a server snapshot using the configured policy. A server
// quote that fails Quote.Validate rejects the whole snapshot.
func (s *Store) Merge(ctx context.Context, server []domain.Quote) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateAll(server); err != nil {
		return MergeResult{Policy: s.policy, Total: len(s.quotes)}, fmt.Errorf("merging server quotes: %w", err)
	}

	var (
		next  []domain.Quote
		added int
	)

	switch s.policy {
	case MergeReplace:
		next = slices.Clone(server)
		if next == nil {
			next = []domain.Quote{}
		}

		added = countNewTexts(s.quotes, next)
	default:
		next, added = unionByText(s.quotes, server)
	}

	result := MergeResult{Policy: s.policy, Added: added, Total: len(next)}

	if s.policy != MergeReplace && added == 0 {
		return result, nil
	}

	if err := s.commit(ctx, next); err != nil {
		return MergeResult{Policy: s.policy, Total: len(s.quotes)}, err
	}

	return result, nil
}

// adopt makes quotes current without persisting them.
func (s *Store) adopt(quotes []domain.Quote) {
	s.mu.Lock()
	s.quotes = slices.Clone(quotes)
	s.mu.Unlock()

	s.metrics.StoreSize(len(quotes))
}

// Snapshot returns a copy of the current list.
func (s *Store) Snapshot() []domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.quotes)
}

// Len returns the number of quotes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.quotes)
}

// commit persists next and swaps it in. Caller holds s.mu. Nothing is
// written unless every quote is valid, so Load always accepts what commit wrote.
func (s *Store) commit(ctx context.Context, next []domain.Quote) error {
	if err := validateAll(next); err != nil {
		return err
	}

	raw, err := encodeQuotes(next)
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := s.kv.Set(ctx, ports.KeyQuotes, raw); err != nil {
		s.logger.WarnContext(ctx, "save failed, keeping previous quotes",
			slog.Int("kept", len(s.quotes)),
			slog.Any("error", err),
		)

		return fmt.Errorf("saving quotes: %w", err)
	}

	s.quotes = next
	s.metrics.StoreSize(len(next))

	return nil
}

// unionByText appends server quotes whose text is not yet present locally.
// Duplicates inside the server batch collapse to their first occurrence.
func unionByText(local, server []domain.Quote) ([]domain.Quote, int) {
	seen := make(map[string]struct{}, len(local)+len(server))
	for _, q := range local {
		seen[q.Text] = struct{}{}
	}

	next := slices.Clone(local)
	if next == nil {
		next = []domain.Quote{}
	}

	added := 0

	for _, q := range server {
		if _, dup := seen[q.Text]; dup {
			continue
		}

		seen[q.Text] = struct{}{}
		next = append(next, q)
		added++
	}

	return next, added
}

func countNewTexts(before, after []domain.Quote) int {
	known := make(map[string]struct{}, len(before))
	for _, q := range before {
		known[q.Text] = struct{}{}
	}

	n := 0

	for _, q := range after {
		if _, ok := known[q.Text]; !ok {
			n++
		}
	}

	return n
}
