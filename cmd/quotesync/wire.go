package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/notify"
	"github.com/jsamuelsen/quotesync/internal/adapters/render"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/metrics"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// buildOptions vary per command.
type buildOptions struct {
	// Surface receives draws. Nil means the configured render surface on Out.
	Surface ports.Surface

	// Out is where the configured render surface writes.
	Out io.Writer

	// Metrics is set by long-running commands only.
	Metrics *metrics.Metrics

	// Draw makes Init draw the first view; one-shot commands draw explicitly.
	Draw bool
}

// runtime is a wired QuoteService plus the resources it owns.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	backend   storage.Backend
	posts     *acl.PostsClient
	svc       *app.QuoteService
	telemetry *telemetry.Provider
}

// build wires the application in the same order the server starts it:
// telemetry, storage, remote client, notifier, service.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts buildOptions) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	rt.telemetry = tel

	backend, err := storage.Open(ctx, &cfg.Storage)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	rt.backend = backend

	var source ports.QuoteSource

	if cfg.Sync.Enabled {
		httpClient, err := clients.New(&clients.Config{
			BaseURL:     cfg.Services.Quote.BaseURL,
			ServiceName: cfg.Services.Quote.Name,
			Timeout:     cfg.Client.Timeout,
			Retry:       cfg.Client.Retry,
			Circuit:     cfg.Client.CircuitBreaker,
			Transport:   cfg.Client.Transport,
			UserAgent:   "quotesync/" + Version,
			Logger:      logger,
			Metrics:     opts.Metrics,
		})
		if err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("creating HTTP client: %w", err)
		}

		rt.posts = acl.NewPostsClient(acl.PostsClientConfig{
			Client:      httpClient,
			ServiceName: cfg.Services.Quote.Name,
			Logger:      logger,
		})
		source = rt.posts
	}

	surface := opts.Surface
	if surface == nil {
		surface, err = render.NewSurface(cfg.Render.Surface, opts.Out, cfg.Render.WordWrap, logger)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
	}

	rt.svc = app.NewQuoteService(app.QuoteServiceConfig{
		KV:          backend,
		Session:     storage.NewMemoryStore(),
		Surface:     surface,
		Source:      source,
		Notifier:    notify.New(cfg.Notify.Desktop, logger),
		MergePolicy: app.MergePolicy(cfg.Sync.MergePolicy),
		Sync: app.SyncSettings{
			Interval:       cfg.Sync.Interval,
			BackoffEnabled: cfg.Sync.BackoffEnabled,
			MaxBackoff:     cfg.Sync.MaxBackoff,
			FetchLimit:     cfg.Sync.FetchLimit,
			NotifyTitle:    cfg.Notify.Title,
		},
		Logger:  logger,
		Metrics: opts.Metrics,
	})

	load := rt.svc.Load
	if opts.Draw {
		load = rt.svc.Init
	}

	if err := load(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("loading quotes: %w", err)
	}

	return rt, nil
}

// healthRegistry registers storage and, when sync is on, the quote server.
func (rt *runtime) healthRegistry() (*ports.DefaultHealthRegistry, error) {
	registry := ports.NewHealthRegistry()

	if err := registry.Register(rt.backend); err != nil {
		return nil, fmt.Errorf("registering storage health check: %w", err)
	}

	if rt.posts != nil {
		if err := registry.Register(rt.posts); err != nil {
			return nil, fmt.Errorf("registering quote server health check: %w", err)
		}
	}

	return registry, nil
}

// Close stops the Sync Agent, waiting for queued posts, then releases
// storage and flushes telemetry.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error

	if rt.svc != nil {
		rt.svc.StopSync()
	}

	if rt.backend != nil {
		if err := rt.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
	}

	if rt.telemetry != nil {
		if err := rt.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}
