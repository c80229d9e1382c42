package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/metrics"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// SyncedMessage is sent to the Notifier after a cycle that added quotes.
const SyncedMessage = "Quotes synced with server!"

const (
	defaultSyncInterval = 30 * time.Second
	defaultPostTimeout  = 10 * time.Second
)

// SyncState is the Sync Agent's position in its cycle.
type SyncState int32

const (
	SyncIdle SyncState = iota
	SyncFetching
	SyncReconciling
)

// String implements fmt.Stringer.
func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncFetching:
		return "fetching"
	case SyncReconciling:
		return "reconciling"
	default:
		return "unknown"
	}
}

// SyncResult summarizes one cycle.
type SyncResult struct {
	Fetched int
	Added   int
	Total   int
	Policy  MergePolicy
}

// SyncAgent periodically pulls the server snapshot into the Store and pushes
// newly submitted quotes upstream.
type SyncAgent struct {
	source      ports.QuoteSource
	store       *Store
	refresher   Refresher
	notifier    ports.Notifier
	interval    time.Duration
	maxBackoff  time.Duration
	backoff     bool
	fetchLimit  int
	notifyTitle string
	postTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics

	state   atomic.Int32
	cycleMu sync.Mutex

	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	posts sync.WaitGroup
}

// SyncAgentConfig holds SyncAgent dependencies and tuning.
type SyncAgentConfig struct {
	Source         ports.QuoteSource
	Store          *Store
	Refresher      Refresher
	Notifier       ports.Notifier
	Interval       time.Duration
	BackoffEnabled bool
	MaxBackoff     time.Duration
	FetchLimit     int
	NotifyTitle    string
	PostTimeout    time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// NewSyncAgent creates an idle SyncAgent. Call Start to run the periodic loop.
func NewSyncAgent(cfg SyncAgentConfig) *SyncAgent {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	maxBackoff := max(cfg.MaxBackoff, interval)

	postTimeout := cfg.PostTimeout
	if postTimeout <= 0 {
		postTimeout = defaultPostTimeout
	}

	return &SyncAgent{
		source:      cfg.Source,
		store:       cfg.Store,
		refresher:   cfg.Refresher,
		notifier:    cfg.Notifier,
		interval:    interval,
		maxBackoff:  maxBackoff,
		backoff:     cfg.BackoffEnabled,
		fetchLimit:  cfg.FetchLimit,
		notifyTitle: cfg.NotifyTitle,
		postTimeout: postTimeout,
		logger:      logger.With(slog.String("component", "sync")),
		metrics:     cfg.Metrics,
	}
}

// Start launches the periodic loop. The first cycle runs after one interval.
// Calling Start on a running agent does nothing.
func (a *SyncAgent) Start(ctx context.Context) {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	if a.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.running = true

	go a.loop(loopCtx, a.done)

	a.logger.InfoContext(ctx, "sync agent started",
		slog.Duration("interval", a.interval),
		slog.Bool("backoff", a.backoff),
	)
}

// Stop cancels the loop, waits for it to exit and drains in-flight posts.
// Safe to call more than once and on an agent that never started.
func (a *SyncAgent) Stop() {
	a.lifeMu.Lock()

	if a.running {
		a.cancel()
		<-a.done
		a.running = false

		a.logger.Info("sync agent stopped")
	}

	a.lifeMu.Unlock()

	a.posts.Wait()
}

// Running reports whether the periodic loop is active.
func (a *SyncAgent) Running() bool {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	return a.running
}

// State returns the current cycle state.
func (a *SyncAgent) State() SyncState {
	return SyncState(a.state.Load())
}

func (a *SyncAgent) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	failures := 0
	timer := time.NewTimer(a.interval)

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if _, err := a.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}

			failures++
		} else {
			failures = 0
		}

		timer.Reset(a.nextDelay(failures))
	}
}

// nextDelay is interval * 2^failures, capped at maxBackoff.
func (a *SyncAgent) nextDelay(failures int) time.Duration {
	if !a.backoff || failures <= 0 {
		return a.interval
	}

	delay := a.interval
	for range failures {
		delay *= 2
		if delay >= a.maxBackoff {
			return a.maxBackoff
		}
	}

	return delay
}

// RunOnce performs one fetch and reconcile cycle. Cycles never overlap.
// A fetch failure leaves the Store untouched.
func (a *SyncAgent) RunOnce(ctx context.Context) (SyncResult, error) {
	a.cycleMu.Lock()
	defer a.cycleMu.Unlock()

	ctx, span := telemetry.Tracer().Start(ctx, "sync.cycle")
	defer span.End()

	defer a.state.Store(int32(SyncIdle))

	start := time.Now()

	a.state.Store(int32(SyncFetching))

	fetched, err := a.source.FetchQuotes(ctx)
	if err != nil {
		return a.fail(ctx, span, "fetch", err)
	}

	if a.fetchLimit > 0 && len(fetched) > a.fetchLimit {
		fetched = fetched[:a.fetchLimit]
	}

	a.state.Store(int32(SyncReconciling))

	merged, err := a.store.Merge(ctx, fetched)
	if err != nil {
		return a.fail(ctx, span, "merge", err)
	}

	result := SyncResult{
		Fetched: len(fetched),
		Added:   merged.Added,
		Total:   merged.Total,
		Policy:  merged.Policy,
	}

	span.SetAttributes(
		attribute.Int("sync.fetched", result.Fetched),
		attribute.Int("sync.added", result.Added),
		attribute.String("sync.policy", string(result.Policy)),
	)

	if a.refresher != nil {
		if err := a.refresher.Refresh(ctx); err != nil {
			a.logger.WarnContext(ctx, "refresh after sync failed", slog.Any("error", err))
		}
	}

	if result.Added > 0 {
		a.metrics.QuotesAdded(metrics.SourceServer, result.Added)
		a.notify(ctx)
	}

	a.metrics.SyncCycle(metrics.ResultSuccess)

	a.logger.InfoContext(ctx, "sync cycle finished",
		slog.Int("fetched", result.Fetched),
		slog.Int("added", result.Added),
		slog.Int("total", result.Total),
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (a *SyncAgent) fail(ctx context.Context, span trace.Span, stage string, err error) (SyncResult, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")

	a.metrics.SyncCycle(metrics.ResultFailure)

	level := slog.LevelWarn
	if !domain.IsNetwork(err) && !domain.IsParse(err) && !errors.Is(err, context.Canceled) {
		level = slog.LevelError
	}

	a.logger.Log(ctx, level, "sync cycle failed", slog.String("stage", stage), slog.Any("error", err))

	return SyncResult{}, err
}

func (a *SyncAgent) notify(ctx context.Context) {
	if a.notifier == nil {
		return
	}

	if err := a.notifier.Notify(ctx, a.notifyTitle, SyncedMessage); err != nil {
		a.logger.WarnContext(ctx, "sync notification failed", slog.Any("error", err))
	}
}

// PostQuote sends quote upstream in the background. The caller's
// cancellation does not abort the post; failures are logged and never retried.
func (a *SyncAgent) PostQuote(ctx context.Context, quote domain.Quote) {
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.postTimeout)

	a.posts.Add(1)

	go func() {
		defer a.posts.Done()
		defer cancel()

		if err := a.source.PostQuote(postCtx, quote); err != nil {
			a.logger.WarnContext(postCtx, "posting quote failed",
				slog.String("category", quote.Category),
				slog.Any("error", err),
			)

			return
		}

		a.logger.DebugContext(postCtx, "quote posted", slog.String("category", quote.Category))
	}()
}
