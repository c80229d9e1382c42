package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const defaultProfile = "local"

// cli holds what every subcommand shares once the root has run.
type cli struct {
	profile   string
	configDir string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "quotesync",
		Short: "Local-first quote store that syncs with a quote server",
		Long: `quotesync keeps a list of quotes, each with a category, on local storage.
It can filter by category, show a random quote, import and export JSON,
and reconcile with a remote posts server on a fixed interval.`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVar(&c.profile, "profile", "",
		"configuration profile (defaults to APP_ENVIRONMENT, then local)")
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", config.DefaultConfigDir,
		"directory holding base.yaml and the profile files")

	root.AddCommand(
		newServeCmd(c),
		newShowCmd(c),
		newListCmd(c),
		newAddCmd(c),
		newImportCmd(c),
		newExportCmd(c),
		newCategoriesCmd(c),
		newSelectCmd(c),
		newSyncCmd(c),
		newTUICmd(c),
		newMCPCmd(c),
	)

	return root
}

// setup loads and validates configuration (fail fast) and builds the logger.
// Logs go to stderr so stdout carries only command output.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	profile := c.profile
	if profile == "" {
		profile = os.Getenv("APP_ENVIRONMENT")
	}

	if profile == "" {
		profile = defaultProfile
	}

	cfg, err := config.LoadFrom(c.configDir, profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.cfg = cfg
	c.logger = logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, cmd.ErrOrStderr())
	logging.SetDefault(c.logger)

	c.logger.Debug("configuration loaded",
		slog.String("profile", profile),
		slog.String("storage", cfg.Storage.Backend),
		slog.Bool("sync", cfg.Sync.Enabled),
	)

	return nil
}

// open builds the runtime for cmd; the caller must Close it.
func (c *cli) open(cmd *cobra.Command, opts buildOptions) (*runtime, error) {
	if opts.Out == nil {
		opts.Out = cmd.OutOrStdout()
	}

	return build(cmd.Context(), c.cfg, c.logger, opts)
}
