package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
)

type syncFixture struct {
	agent     *SyncAgent
	store     *Store
	source    *mocks.MockQuoteSource
	notifier  *mocks.MockNotifier
	refresher *countingRefresher
}

func newSyncFixture(t *testing.T, policy MergePolicy, mutate func(*SyncAgentConfig)) *syncFixture {
	t.Helper()

	store := newTestStore(t, storage.NewMemoryStore(), policy)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	f := &syncFixture{
		store:     store,
		source:    mocks.NewMockQuoteSource(t),
		notifier:  mocks.NewMockNotifier(t),
		refresher: &countingRefresher{},
	}

	cfg := SyncAgentConfig{
		Source:      f.source,
		Store:       store,
		Refresher:   f.refresher,
		Notifier:    f.notifier,
		Interval:    time.Second,
		NotifyTitle: "Quote Sync",
		Logger:      discardLogger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f.agent = NewSyncAgent(cfg)

	return f
}

func TestSyncAgent_RunOnceMergesAndNotifies(t *testing.T) {
	f := newSyncFixture(t, MergeUnionByText, nil)

	server := []domain.Quote{
		q("sunt aut facere", domain.ServerCategory),
		q("First, solve the problem. Then, write the code.", domain.ServerCategory),
	}
	f.source.EXPECT().FetchQuotes(mock.Anything).Return(server, nil)
	f.notifier.EXPECT().Notify(mock.Anything, "Quote Sync", SyncedMessage).Return(nil)

	result, err := f.agent.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncResult{Fetched: 2, Added: 1, Total: 4, Policy: MergeUnionByText}, result)
	assert.Equal(t, q("sunt aut facere", domain.ServerCategory), f.store.Snapshot()[3])
	assert.Equal(t, 1, f.refresher.Calls())
	assert.Equal(t, SyncIdle, f.agent.State())
}

func TestSyncAgent_RunOnceNothingNew(t *testing.T) {
	f := newSyncFixture(t, MergeUnionByText, nil)

	f.source.EXPECT().FetchQuotes(mock.Anything).Return(domain.DefaultQuotes(), nil)

	result, err := f.agent.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.Added)
	assert.Equal(t, domain.DefaultQuotes(), f.store.Snapshot())
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncAgent_RunOnceReplace(t *testing.T) {
	f := newSyncFixture(t, MergeReplace, nil)

	server := []domain.Quote{q("only", domain.ServerCategory)}
	f.source.EXPECT().FetchQuotes(mock.Anything).Return(server, nil)
	f.notifier.EXPECT().Notify(mock.Anything, mock.Anything, SyncedMessage).Return(nil)

	_, err := f.agent.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, server, f.store.Snapshot())
}

func TestSyncAgent_RunOnceFetchFailureLeavesStore(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"network", domain.NewNetworkError("quote-server", "connection refused"), domain.IsNetwork},
		{"malformed payload", domain.NewParseError("remote", "unexpected token", nil), domain.IsParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(t, MergeUnionByText, nil)
			f.source.EXPECT().FetchQuotes(mock.Anything).Return(nil, tt.err)

			_, err := f.agent.RunOnce(context.Background())

			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, domain.DefaultQuotes(), f.store.Snapshot())
			assert.Zero(t, f.refresher.Calls())
			assert.Equal(t, SyncIdle, f.agent.State())
		})
	}
}

func TestSyncAgent_FetchLimit(t *testing.T) {
	f := newSyncFixture(t, MergeUnionByText, func(c *SyncAgentConfig) { c.FetchLimit = 2 })

	server := []domain.Quote{q("a", "Server"), q("b", "Server"), q("c", "Server")}
	f.source.EXPECT().FetchQuotes(mock.Anything).Return(server, nil)
	f.notifier.EXPECT().Notify(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no display"))

	result, err := f.agent.RunOnce(context.Background())

	require.NoError(t, err, "notification failures are not sync failures")
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Added)
}

func TestSyncAgent_StateWhileFetching(t *testing.T) {
	f := newSyncFixture(t, MergeUnionByText, nil)

	f.source.EXPECT().FetchQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		assert.Equal(t, SyncFetching, f.agent.State())
		return nil, nil
	})

	_, err := f.agent.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncIdle, f.agent.State())
}

func TestSyncAgent_NextDelay(t *testing.T) {
	tests := []struct {
		name     string
		backoff  bool
		failures int
		want     time.Duration
	}{
		{"no failures", true, 0, 30 * time.Second},
		{"one failure", true, 1, time.Minute},
		{"two failures", true, 2, 2 * time.Minute},
		{"capped", true, 10, 5 * time.Minute},
		{"backoff disabled", false, 3, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := NewSyncAgent(SyncAgentConfig{
				Interval:       30 * time.Second,
				BackoffEnabled: tt.backoff,
				MaxBackoff:     5 * time.Minute,
				Logger:         discardLogger(),
			})

			assert.Equal(t, tt.want, agent.nextDelay(tt.failures))
		})
	}
}

func TestSyncAgent_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSyncFixture(t, MergeUnionByText, func(c *SyncAgentConfig) { c.Interval = 5 * time.Millisecond })

	var cycles atomic.Int32

	f.source.EXPECT().FetchQuotes(mock.Anything).RunAndReturn(func(context.Context) ([]domain.Quote, error) {
		cycles.Add(1)
		return domain.DefaultQuotes(), nil
	}).Maybe()

	f.agent.Start(context.Background())
	f.agent.Start(context.Background())
	assert.True(t, f.agent.Running())

	assert.Eventually(t, func() bool { return cycles.Load() >= 2 }, time.Second, 5*time.Millisecond)

	f.agent.Stop()
	f.agent.Stop()
	assert.False(t, f.agent.Running())

	stopped := cycles.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, cycles.Load(), "no cycles after Stop")
}

func TestSyncAgent_StopBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSyncFixture(t, MergeUnionByText, nil)

	f.agent.Stop()
	assert.False(t, f.agent.Running())
}

func TestSyncAgent_ParentCancelEndsLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSyncFixture(t, MergeUnionByText, nil)

	ctx, cancel := context.WithCancel(context.Background())
	f.agent.Start(ctx)
	cancel()

	f.agent.Stop()
}

func TestSyncAgent_PostQuote(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSyncFixture(t, MergeUnionByText, nil)

	quote := q("Ship it.", "Work")
	posted := make(chan struct{})

	f.source.EXPECT().PostQuote(mock.Anything, quote).RunAndReturn(func(ctx context.Context, _ domain.Quote) error {
		assert.NoError(t, ctx.Err(), "caller cancellation must not reach the post")
		close(posted)
		return errors.New("503 from server")
	})

	ctx, cancel := context.WithCancel(context.Background())
	f.agent.PostQuote(ctx, quote)
	cancel()

	f.agent.Stop()

	select {
	case <-posted:
	default:
		t.Fatal("Stop returned before the in-flight post finished")
	}
}

func TestSyncAgent_RunOnceReconcilesSingleLocalQuote(t *testing.T) {
	yoda := q("Do or do not", "Yoda")
	hello := q("Hello World", domain.ServerCategory)

	tests := []struct {
		name   string
		policy MergePolicy
		server []domain.Quote
		want   []domain.Quote
		notify bool
	}{
		{
			name:   "union appends the server title after the local quote",
			policy: MergeUnionByText,
			server: []domain.Quote{hello},
			want:   []domain.Quote{yoda, hello},
			notify: true,
		},
		{
			name:   "union of a known text changes nothing",
			policy: MergeUnionByText,
			server: []domain.Quote{q("Do or do not", domain.ServerCategory)},
			want:   []domain.Quote{yoda},
		},
		{
			name:   "replace keeps only the server title",
			policy: MergeReplace,
			server: []domain.Quote{hello},
			want:   []domain.Quote{hello},
			notify: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newSyncFixture(t, tt.policy, nil)
			require.NoError(t, f.store.Save(ctx, []domain.Quote{yoda}))

			f.source.EXPECT().FetchQuotes(mock.Anything).Return(tt.server, nil)
			if tt.notify {
				f.notifier.EXPECT().Notify(mock.Anything, "Quote Sync", SyncedMessage).Return(nil)
			}

			result, err := f.agent.RunOnce(ctx)

			require.NoError(t, err)
			assert.Equal(t, len(tt.want), result.Total)
			assert.Equal(t, tt.want, f.store.Snapshot())
		})
	}
}

func TestSyncAgent_RunOnceRejectsInvalidServerQuote(t *testing.T) {
	f := newSyncFixture(t, MergeUnionByText, nil)

	f.source.EXPECT().FetchQuotes(mock.Anything).Return([]domain.Quote{q("", domain.ServerCategory)}, nil)

	_, err := f.agent.RunOnce(context.Background())

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.DefaultQuotes(), f.store.Snapshot())
	assert.Equal(t, SyncIdle, f.agent.State())
}
