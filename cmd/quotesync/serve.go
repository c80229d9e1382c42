package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/render"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/metrics"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the Sync Agent and storage watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

// serve runs until ctx is cancelled (SIGINT/SIGTERM from main), then stops
// the server, the Sync Agent and the watcher.
func (c *cli) serve(ctx context.Context) (err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := build(ctx, c.cfg, c.logger, buildOptions{
		Surface: render.NewMemorySurface(),
		Metrics: metrics.New(reg),
		Draw:    true,
	})
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, rt.Close(ctx))
	}()

	registry, err := rt.healthRegistry()
	if err != nil {
		return err
	}

	c.logger.Info("starting quotesync",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", c.cfg.App.Environment),
		slog.String("storage", c.cfg.Storage.Backend),
		slog.Bool("sync", c.cfg.Sync.Enabled),
	)

	server := httpadapter.New(&c.cfg.Server, c.logger)
	httpadapter.SetupRouter(server.Engine(), httpadapter.RouterConfig{
		ServiceName: c.cfg.Telemetry.ServiceName,
		HealthHandler: handlers.NewHealthHandler(handlers.HealthHandlerConfig{
			Registry:  registry,
			BuildInfo: handlers.NewBuildInfo(Version, Commit, BuildTime),
			Gatherer:  reg,
			SyncState: func() string { return rt.svc.SyncState().String() },
		}),
		QuoteHandler: handlers.NewQuoteHandler(rt.svc, render.NewHTMLRenderer(c.cfg.App.Name)),
		Timeout:      httpadapter.DefaultRequestTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(gctx)
	})

	stopWatch, err := startBackground(gctx, rt)
	if err != nil {
		return err
	}
	defer stopWatch()

	if err := g.Wait(); err != nil {
		return err
	}

	c.logger.Info("shutdown complete")

	return nil
}

// startBackground starts the Sync Agent (when configured) and the storage
// watcher (file backend with storage.watch). The returned func stops the
// watcher; the Sync Agent is stopped by runtime.Close.
func startBackground(ctx context.Context, rt *runtime) (func(), error) {
	if rt.cfg.Sync.Enabled {
		if err := rt.svc.StartSync(ctx); err != nil && !errors.Is(err, app.ErrSyncDisabled) {
			return nil, fmt.Errorf("starting sync: %w", err)
		}
	}

	files, ok := rt.backend.(*storage.FileStore)
	if !ok || !rt.cfg.Storage.Watch {
		return func() {}, nil
	}

	watcher := storage.NewWatcher(storage.WatcherConfig{
		Store:    files,
		Key:      ports.KeyQuotes,
		OnChange: rt.svc.Reload,
		Logger:   rt.logger,
	})

	if err := watcher.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting storage watcher: %w", err)
	}

	return watcher.Stop, nil
}
