package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++

	return r.err
}

func (r *countingRefresher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

type recordingPoster struct {
	mu     sync.Mutex
	posted []domain.Quote
}

func (p *recordingPoster) PostQuote(_ context.Context, quote domain.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.posted = append(p.posted, quote)
}

func newTestEditor(t *testing.T, kv ports.KeyValueStore) (*Editor, *Store, *countingRefresher, *recordingPoster) {
	t.Helper()

	store := newTestStore(t, kv, MergeUnionByText)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	refresher := &countingRefresher{}
	poster := &recordingPoster{}

	editor := NewEditor(EditorConfig{
		Store:     store,
		Refresher: refresher,
		Poster:    poster,
		Logger:    discardLogger(),
	})

	return editor, store, refresher, poster
}

func TestEditor_Submit(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		category  string
		wantField string
		want      domain.Quote
	}{
		{name: "trims input", text: "  Stay curious.  ", category: " Life ", want: q("Stay curious.", "Life")},
		{name: "blank text", text: "   ", category: "Life", wantField: "text"},
		{name: "blank category", text: "Stay curious.", category: "", wantField: "category"},
		{name: "both blank names text first", text: "", category: " ", wantField: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, store, refresher, poster := newTestEditor(t, storage.NewMemoryStore())
			before := store.Snapshot()

			got, err := editor.Submit(context.Background(), tt.text, tt.category)

			if tt.wantField != "" {
				require.Error(t, err)

				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
				assert.Equal(t, before, store.Snapshot())
				assert.Zero(t, refresher.Calls())
				assert.Empty(t, poster.posted)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			after := store.Snapshot()
			assert.Len(t, after, len(before)+1)
			assert.Equal(t, tt.want, after[len(after)-1])
			assert.Equal(t, 1, refresher.Calls())
			assert.Equal(t, []domain.Quote{tt.want}, poster.posted)
		})
	}
}

func TestEditor_SubmitSaveFailure(t *testing.T) {
	kv := mocks.NewMockKeyValueStore(t)
	kv.EXPECT().Get(mock.Anything, ports.KeyQuotes).Return(nil, domain.NewNotFoundError("storage key", ports.KeyQuotes))
	kv.EXPECT().Set(mock.Anything, ports.KeyQuotes, mock.Anything).Return(errors.New("disk full"))

	editor, store, refresher, poster := newTestEditor(t, kv)

	_, err := editor.Submit(context.Background(), "New", "Cat")

	require.Error(t, err)
	step, _ := GetExecutionStep(err)
	assert.Equal(t, StepArchive, step)
	assert.Equal(t, domain.DefaultQuotes(), store.Snapshot())
	assert.Zero(t, refresher.Calls())
	assert.Empty(t, poster.posted)
}

func TestEditor_ImportBatch(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantCount int
		wantParse bool
		wantTail  []domain.Quote
	}{
		{
			name:      "appends in order",
			raw:       `[{"text":"A","category":"X"},{"text":" B ","category":"Y"}]`,
			wantCount: 2,
			wantTail:  []domain.Quote{q("A", "X"), q("B", "Y")},
		},
		{
			name:      "empty array",
			raw:       `[]`,
			wantCount: 0,
		},
		{
			name:      "object instead of array",
			raw:       `{"text":"A","category":"X"}`,
			wantParse: true,
		},
		{
			name:      "not json",
			raw:       `quotes!`,
			wantParse: true,
		},
		{
			name:      "missing category rejects whole batch",
			raw:       `[{"text":"A","category":"X"},{"text":"B"}]`,
			wantParse: true,
		},
		{
			name:      "non-string text",
			raw:       `[{"text":5,"category":"X"}]`,
			wantParse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor, store, refresher, poster := newTestEditor(t, storage.NewMemoryStore())
			before := store.Snapshot()

			n, err := editor.ImportBatch(context.Background(), []byte(tt.raw))

			if tt.wantParse {
				require.Error(t, err)
				assert.True(t, domain.IsParse(err))
				assert.Equal(t, before, store.Snapshot())
				assert.Zero(t, refresher.Calls())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, n)

			after := store.Snapshot()
			if diff := cmp.Diff(tt.wantTail, after[len(before):], cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("appended quotes mismatch (-want +got):\n%s", diff)
			}

			assert.Equal(t, 1, refresher.Calls())
			assert.Empty(t, poster.posted, "imported quotes are not posted")
		})
	}
}

func TestEditor_ImportBatchNamesElement(t *testing.T) {
	editor, _, _, _ := newTestEditor(t, storage.NewMemoryStore())

	_, err := editor.ImportBatch(context.Background(), []byte(`[{"text":"A","category":"X"},{"text":"","category":"Y"}]`))

	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "element 1")
}

func TestEditor_ExportSnapshot(t *testing.T) {
	editor, _, _, _ := newTestEditor(t, storage.NewMemoryStore())

	_, err := editor.Submit(context.Background(), "A", "X")
	require.NoError(t, err)

	out := editor.ExportSnapshot(context.Background())

	assert.Contains(t, string(out), "[\n  {\n    \"text\": ")

	// Exported output imports back to the same list.
	reimported, err := decodeImport(out)
	require.NoError(t, err)
	assert.Equal(t, append(domain.DefaultQuotes(), q("A", "X")), reimported)
}

func TestEditor_RefreshFailureStillCommits(t *testing.T) {
	ctx := context.Background()
	editor, store, refresher, poster := newTestEditor(t, storage.NewMemoryStore())
	refresher.err = errors.New("surface gone")

	quote, err := editor.Submit(ctx, "Kept anyway", "Drafts")

	require.NoError(t, err)
	assert.Equal(t, q("Kept anyway", "Drafts"), quote)
	assert.Equal(t, 4, store.Len())
	assert.Equal(t, 1, refresher.Calls())
	assert.Equal(t, []domain.Quote{quote}, poster.posted)

	n, err := editor.ImportBatch(ctx, []byte(`[{"text":"Imported","category":"Files"}]`))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, store.Len())
}

func TestEditor_ExportKeepsHTMLCharacters(t *testing.T) {
	editor, _, _, _ := newTestEditor(t, storage.NewMemoryStore())

	_, err := editor.Submit(context.Background(), "Rock & roll <loud>", "Music")
	require.NoError(t, err)

	out := string(editor.ExportSnapshot(context.Background()))

	assert.Contains(t, out, `"Rock & roll <loud>"`)
	assert.NotContains(t, out, `\u0026`)
}

func TestEditor_ImportTrimsFields(t *testing.T) {
	editor, store, _, _ := newTestEditor(t, storage.NewMemoryStore())

	n, err := editor.ImportBatch(context.Background(), []byte(`[{"text":"  spaced  ","category":" Pad "}]`))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, q("spaced", "Pad"), store.Snapshot()[3])
}
