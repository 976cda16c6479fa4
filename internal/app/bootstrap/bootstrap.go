package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pagebin/app/internal/data/database"
	"pagebin/app/internal/data/migrations"
	datapages "pagebin/app/internal/data/pages"
	"pagebin/app/internal/data/uploads"
	domainpages "pagebin/app/internal/domain/pages"
	"pagebin/app/internal/infrastructure/events"
	"pagebin/app/internal/infrastructure/storage/s3store"
	"pagebin/app/internal/platform/config"
	presentationhttp "pagebin/app/internal/presentation/http"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	Version   string
	StartedAt time.Time
}

type Result struct {
	PageService domainpages.Service
	HTTPServer  *presentationhttp.Server
	// Database is nil unless the sqlite index backend is selected.
	Database *gorm.DB
	Cleanup  func() error
}

// Build composes the pagebin application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	cfg := deps.Config
	var closers []func() error

	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := cleanup(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("releasing resources after bootstrap failure")
		}
		return Result{}, wrapper
	}

	index, db, err := buildIndex(ctx, cfg, deps.Logger)
	if err != nil {
		return Result{}, err
	}
	if db != nil {
		closers = append(closers, func() error { return database.Close(db) })
	}

	blobs, err := buildBlobStore(ctx, cfg, deps.Logger)
	if err != nil {
		return closeOnError(err)
	}

	uploadStore, err := uploads.NewStore(uploads.Options{
		Dir:      cfg.UploadDir,
		MaxBytes: cfg.MaxUploadBytes,
		Logger:   deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating upload store"))
	}

	var publisher domainpages.EventPublisher
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewPublisher(events.Options{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			Name:          "pagebin",
			Logger:        deps.Logger,
		})
		if err != nil {
			return closeOnError(eris.Wrap(err, "connecting page event publisher"))
		}
		closers = append(closers, natsPublisher.Close)
		publisher = natsPublisher
	}

	registry, err := domainpages.NewRegistry(domainpages.Options{
		Index:     index,
		Blobs:     blobs,
		Uploads:   uploadStore,
		Events:    publisher,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page registry"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		PageService: registry,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
		UploadDir:      uploadStore.Dir(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Version:        deps.Version,
		StartedAt:      deps.StartedAt,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}
	closers = append(closers, func() error {
		httpServer.Close()
		return nil
	})

	return Result{
		PageService: registry,
		HTTPServer:  httpServer,
		Database:    db,
		Cleanup:     cleanup,
	}, nil
}

func buildIndex(ctx context.Context, cfg config.Config, logger *logrus.Logger) (domainpages.IndexStore, *gorm.DB, error) {
	switch cfg.IndexBackend {
	case config.IndexBackendSQLite:
		db, err := database.Open(database.Options{Path: cfg.DBPath, Logger: logger})
		if err != nil {
			return nil, nil, eris.Wrap(err, "opening database")
		}

		if err := database.Ping(ctx, db); err != nil {
			closeQuietly(db, logger)
			return nil, nil, err
		}

		if err := migrations.MigratePages(ctx, db, logger); err != nil {
			closeQuietly(db, logger)
			return nil, nil, eris.Wrap(err, "running page migrations")
		}

		index, err := datapages.NewGormIndex(db, logger)
		if err != nil {
			closeQuietly(db, logger)
			return nil, nil, eris.Wrap(err, "creating sqlite page index")
		}
		return index, db, nil
	case config.IndexBackendJSON, "":
		index, err := datapages.NewJSONIndex(cfg.IndexPath(), logger)
		if err != nil {
			return nil, nil, eris.Wrap(err, "creating json page index")
		}
		return index, nil, nil
	default:
		return nil, nil, eris.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (domainpages.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		store, err := s3store.New(ctx, s3store.Options{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
			Prefix:   cfg.S3.Prefix,
			Logger:   logger,
		})
		if err != nil {
			return nil, eris.Wrap(err, "creating s3 blob store")
		}
		return store, nil
	case config.BlobBackendFS, "":
		store, err := datapages.NewFileBlobStore(cfg.PagesDir())
		if err != nil {
			return nil, eris.Wrap(err, "creating file blob store")
		}
		return store, nil
	default:
		return nil, eris.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func closeQuietly(db *gorm.DB, logger *logrus.Logger) {
	if err := database.Close(db); err != nil && logger != nil {
		logger.WithError(err).Error("closing database after bootstrap failure")
	}
}
