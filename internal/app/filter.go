package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// FilterIndex derives the category list and remembers the user's selection.
type FilterIndex struct {
	kv     ports.KeyValueStore
	logger *slog.Logger
}

// NewFilterIndex creates a FilterIndex persisting its selection in kv.
func NewFilterIndex(kv ports.KeyValueStore, logger *slog.Logger) *FilterIndex {
	if logger == nil {
		logger = slog.Default()
	}

	return &FilterIndex{kv: kv, logger: logger.With(slog.String("component", "filter"))}
}

// Categories returns "all" followed by each distinct category in order of
// first appearance.
func (f *FilterIndex) Categories(quotes []domain.Quote) []string {
	out := []string{domain.CategoryAll}
	seen := make(map[string]struct{}, len(quotes))

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}

	return out
}

// Selected returns the persisted selection, or "all" when nothing is stored,
// the stored value is unreadable, or it names a category no quote carries any more.
func (f *FilterIndex) Selected(ctx context.Context, quotes []domain.Quote) string {
	raw, err := f.kv.Get(ctx, ports.KeySelectedCategory)
	if err != nil {
		if !domain.IsNotFound(err) {
			f.logger.WarnContext(ctx, "reading selected category", slog.Any("error", err))
		}

		return domain.CategoryAll
	}

	var category string
	if err := json.Unmarshal(raw, &category); err != nil {
		f.logger.WarnContext(ctx, "selected category is not a JSON string", slog.Any("error", err))

		return domain.CategoryAll
	}

	if !f.isLive(category, quotes) {
		return domain.CategoryAll
	}

	return category
}

// SetSelected persists category. Anything that is neither "all" nor a live
// category is stored as "all"; the stored value is returned.
func (f *FilterIndex) SetSelected(ctx context.Context, category string, quotes []domain.Quote) (string, error) {
	if !f.isLive(category, quotes) {
		category = domain.CategoryAll
	}

	raw, err := json.Marshal(category)
	if err != nil {
		return "", fmt.Errorf("encoding selected category: %w", err)
	}

	if err := f.kv.Set(ctx, ports.KeySelectedCategory, raw); err != nil {
		return "", fmt.Errorf("saving selected category: %w", err)
	}

	return category, nil
}

// Apply returns the quotes in category, preserving order. "all" returns the
// input unchanged. Matching is exact and case-sensitive.
func (f *FilterIndex) Apply(quotes []domain.Quote, category string) []domain.Quote {
	if category == domain.CategoryAll {
		return quotes
	}

	out := make([]domain.Quote, 0, len(quotes))

	for _, q := range quotes {
		if q.Category == category {
			out = append(out, q)
		}
	}

	return out
}

func (f *FilterIndex) isLive(category string, quotes []domain.Quote) bool {
	if category == domain.CategoryAll {
		return true
	}

	return slices.ContainsFunc(quotes, func(q domain.Quote) bool { return q.Category == category })
}
