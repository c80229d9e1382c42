package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jsamuelsen/quotesync/internal/adapters/render"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

type serviceFixture struct {
	svc     *QuoteService
	kv      *storage.MemoryStore
	surface *render.MemorySurface
	source  *mocks.MockQuoteSource
}

func newServiceFixture(t *testing.T, withSource bool) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		kv:      storage.NewMemoryStore(),
		surface: render.NewMemorySurface(),
	}

	cfg := QuoteServiceConfig{
		KV:      f.kv,
		Session: storage.NewMemoryStore(),
		Surface: f.surface,
		Intn:    func(int) int { return 0 },
		Sync:    SyncSettings{Interval: time.Minute},
		Logger:  discardLogger(),
	}

	if withSource {
		f.source = mocks.NewMockQuoteSource(t)
		cfg.Source = f.source
	}

	f.svc = NewQuoteService(cfg)

	return f
}

func textNodes(view ports.View) []string {
	var out []string

	for _, n := range view.Nodes {
		if n.Kind == ports.NodeText {
			out = append(out, n.Content)
		}
	}

	return out
}

func TestQuoteService_InitDrawsDefaults(t *testing.T) {
	f := newServiceFixture(t, false)

	require.NoError(t, f.svc.Init(context.Background()))

	assert.Equal(t, domain.DefaultQuotes(), f.svc.All())
	assert.Len(t, textNodes(f.surface.View()), 3)
}

func TestQuoteService_LoadDoesNotDraw(t *testing.T) {
	f := newServiceFixture(t, false)

	require.NoError(t, f.svc.Load(context.Background()))

	assert.Len(t, f.svc.All(), 3)
	assert.Zero(t, f.surface.Draws())
}

func TestQuoteService_InitFallsBackOnCorruptSnapshot(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.kv.Set(ctx, ports.KeyQuotes, []byte(`{not json`)))

	require.NoError(t, f.svc.Init(ctx))

	assert.Equal(t, domain.DefaultQuotes(), f.svc.All())

	raw, err := f.kv.Get(ctx, ports.KeyQuotes)
	require.NoError(t, err)
	assert.Equal(t, `{not json`, string(raw), "corrupt blob is left in place")
}

func TestQuoteService_SelectFiltersView(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.svc.Init(ctx))

	stored, err := f.svc.Select(ctx, "Motivation")
	require.NoError(t, err)
	assert.Equal(t, "Motivation", stored)

	assert.Equal(t, []string{`"Don't watch the clock; do what it does. Keep going."`}, textNodes(f.surface.View()))
	assert.Equal(t, "Motivation", f.svc.Selected(ctx))

	stored, err = f.svc.Select(ctx, "motivation")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryAll, stored, "matching is case-sensitive")
	assert.Len(t, textNodes(f.surface.View()), 3)
}

func TestQuoteService_AddKeepsSelection(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.svc.Init(ctx))

	_, err := f.svc.Select(ctx, "Programming")
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, "Make it work, make it right, make it fast.", "Programming")
	require.NoError(t, err)

	assert.Len(t, textNodes(f.surface.View()), 2)
	assert.Equal(t, []string{domain.CategoryAll, "Inspiration", "Motivation", "Programming"}, f.svc.Categories())
}

func TestQuoteService_AddPostsWhenSyncConfigured(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newServiceFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.svc.Init(ctx))

	f.source.EXPECT().PostQuote(mock.Anything, q("New", "Cat")).Return(nil)

	_, err := f.svc.Add(ctx, " New ", " Cat ")
	require.NoError(t, err)

	f.svc.StopSync()
}

func TestQuoteService_ShowRandomUsesSelection(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.svc.Init(ctx))

	_, err := f.svc.Select(ctx, "Programming")
	require.NoError(t, err)

	picked, err := f.svc.ShowRandom(ctx)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "Programming", picked.Category)

	last, err := f.svc.LastViewed(ctx)
	require.NoError(t, err)
	assert.Equal(t, *picked, *last)
}

func TestQuoteService_ImportExport(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.svc.Init(ctx))

	n, err := f.svc.Import(ctx, []byte(`[{"text":"Imported","category":"Batch"}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var exported []domain.Quote
	require.NoError(t, json.Unmarshal(f.svc.Export(ctx), &exported))
	assert.Equal(t, append(domain.DefaultQuotes(), q("Imported", "Batch")), exported)
}

func TestQuoteService_Reload(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.svc.Init(ctx))

	require.NoError(t, f.kv.Set(ctx, ports.KeyQuotes, []byte(`[{"text":"From another process","category":"Ext"}]`)))
	require.NoError(t, f.svc.Reload(ctx))

	assert.Equal(t, []string{`"From another process"`}, textNodes(f.surface.View()))

	require.NoError(t, f.kv.Set(ctx, ports.KeyQuotes, []byte(`nope`)))
	err := f.svc.Reload(ctx)
	assert.True(t, domain.IsParse(err))
	assert.Equal(t, []domain.Quote{q("From another process", "Ext")}, f.svc.All())
}

func TestQuoteService_SyncDisabled(t *testing.T) {
	f := newServiceFixture(t, false)

	_, err := f.svc.SyncNow(context.Background())
	require.ErrorIs(t, err, ErrSyncDisabled)
	require.ErrorIs(t, f.svc.StartSync(context.Background()), ErrSyncDisabled)
	assert.Equal(t, SyncIdle, f.svc.SyncState())

	f.svc.StopSync()
}

func TestQuoteService_SyncNowRefreshes(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.svc.Init(ctx))

	f.source.EXPECT().FetchQuotes(mock.Anything).Return([]domain.Quote{q("qui est esse", domain.ServerCategory)}, nil)

	result, err := f.svc.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	assert.Contains(t, textNodes(f.surface.View()), `"qui est esse"`)
	assert.Contains(t, f.svc.Categories(), domain.ServerCategory)
}

func TestQuoteService_CategoryWithoutQuotesRendersMessage(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     []ports.Node
	}{
		{
			name:     "category with no quotes",
			category: "Motivation",
			want:     []ports.Node{{Kind: ports.NodeMessage, Content: NoQuotesMessage}},
		},
		{
			name:     "category with one quote",
			category: "Yoda",
			want: []ports.Node{
				{Kind: ports.NodeText, Content: `"Do or do not"`},
				{Kind: ports.NodeCategory, Content: "Category: Yoda"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newServiceFixture(t, false)
			require.NoError(t, f.kv.Set(ctx, ports.KeyQuotes, []byte(`[{"text":"Do or do not","category":"Yoda"}]`)))
			require.NoError(t, f.svc.Init(ctx))

			_, err := f.svc.renderer.RenderRandom(ctx, f.svc.Quotes(ctx, tt.category))

			require.NoError(t, err)
			assert.Equal(t, tt.want, f.surface.View().Nodes)
		})
	}
}
