package main

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pagebin/app/internal/app/bootstrap"
	"pagebin/app/internal/platform/config"
	applog "pagebin/app/internal/platform/log"
)

type rootOptions struct {
	configFile string
	dataDir    string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "pagebin",
		Short:         "Store HTML pages under readable slugs and serve them back",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.configFile != "" {
				os.Setenv("CONFIG_FILE", opts.configFile)
			}
			if opts.dataDir != "" {
				os.Setenv("DATA_DIR", opts.dataDir)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "TOML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (overrides DATA_DIR)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")

	serve := newServeCmd(opts)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newListCmd(opts),
		newStatsCmd(opts),
		newExportCmd(opts),
		newDeleteCmd(opts),
		newWatchCmd(opts),
	)

	return root
}

// application bundles what a subcommand needs after bootstrap.
type application struct {
	cfg    *config.Config
	logger *logrus.Logger
	result bootstrap.Result
}

type appSettings struct {
	// server selects JSON logs and Sentry reporting.
	server bool
	stderr io.Writer
}

// withApp loads configuration, builds the application and releases it once fn returns.
func withApp(ctx context.Context, settings appSettings, fn func(ctx context.Context, app *application) error) error {
	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	stderr := settings.stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logLevel := cfg.LogLevel
	if !settings.server && !strings.EqualFold(logLevel, "debug") {
		logLevel = "warn"
	}

	logger, err := applog.NewLogger(applog.Options{
		Level:  logLevel,
		Output: stderr,
		Text:   !settings.server,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	deps := bootstrap.Dependencies{
		Config:    *cfg,
		Logger:    logger,
		Version:   Version,
		StartedAt: time.Now(),
	}

	if settings.server {
		hub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
			DSN:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     Version,
			Tags: map[string]string{
				"index_backend": cfg.IndexBackend,
				"blob_backend":  cfg.BlobBackend,
			},
		})
		if err != nil {
			return eris.Wrap(err, "failure initialising sentry")
		}
		defer flush()
		deps.SentryHub = hub
	}

	result, err := bootstrap.Build(ctx, deps)
	if err != nil {
		return eris.Wrap(err, "failure building application")
	}
	defer func() {
		if cleanupErr := result.Cleanup(); cleanupErr != nil {
			logger.WithError(cleanupErr).Error("releasing application resources")
		}
	}()

	return fn(ctx, &application{cfg: cfg, logger: logger, result: result})
}
