//go:build integration

package integration

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/render"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

const configsDir = "../../configs"

// TestConfig_ShippedProfilesValidate loads every profile under configs/ the
// way the binary does and checks the settings each one exists for.
func TestConfig_ShippedProfilesValidate(t *testing.T) {
	tests := []struct {
		profile string
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			profile: "local",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "local", cfg.App.Environment)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, "pretty", cfg.Log.Format)
				assert.Equal(t, "file", cfg.Storage.Backend)
				assert.True(t, cfg.Notify.Desktop)
			},
		},
		{
			profile: "prod",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "prod", cfg.App.Environment)
				assert.Equal(t, "sqlite", cfg.Storage.Backend)
				assert.False(t, cfg.Storage.Watch)
				assert.True(t, cfg.Log.File.Enabled)
				assert.True(t, cfg.Telemetry.Enabled)
				assert.InDelta(t, 0.1, cfg.Telemetry.SamplingRate, 1e-9)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			cfg, err := config.LoadFrom(configsDir, tt.profile)
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			assert.Equal(t, "quotesync", cfg.App.Name)
			assert.Equal(t, "https://jsonplaceholder.typicode.com", cfg.Services.Quote.BaseURL)
			assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
			assert.Equal(t, "union-by-text", cfg.Sync.MergePolicy)

			tt.check(t, cfg)
		})
	}
}

func TestConfig_EnvironmentOverridesProfile(t *testing.T) {
	t.Setenv("APP_STORAGE_BACKEND", "memory")
	t.Setenv("APP_SYNC_INTERVAL", "5s")
	t.Setenv("APP_RENDER_SURFACE", "html")

	cfg, err := config.LoadFrom(configsDir, "prod")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Sync.Interval)
	assert.Equal(t, "html", cfg.Render.Surface)
}

// TestConfig_LocalProfileOpensItsBackend checks the loaded storage and render
// settings are accepted by the factories that consume them.
func TestConfig_LocalProfileOpensItsBackend(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_STORAGE_PATH", dir)

	cfg, err := config.LoadFrom(configsDir, "local")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	backend, err := storage.Open(context.Background(), &cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	require.NoError(t, backend.Check(context.Background()))

	files, ok := backend.(*storage.FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Clean(dir), filepath.Clean(files.Dir()))

	surface, err := render.NewSurface(cfg.Render.Surface, io.Discard, cfg.Render.WordWrap, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, surface)
}
