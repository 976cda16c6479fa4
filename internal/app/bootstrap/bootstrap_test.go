package bootstrap

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/sirupsen/logrus"

	domainpages "pagebin/app/internal/domain/pages"
	"pagebin/app/internal/platform/config"
)

func TestBuildWithJSONIndexAndFileBlobs(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	result := build(t, cfg)

	if result.Database != nil {
		t.Fatalf("expected no database for the json backend")
	}

	page, err := result.PageService.Create(context.Background(), domainpages.CreatePageRequest{
		Name:    "Bootstrapped",
		Content: "<p>wired</p>",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.PagesDir(), page.Slug+".html")); err != nil {
		t.Fatalf("expected blob file on disk: %v", err)
	}
	if _, err := os.Stat(cfg.IndexPath()); err != nil {
		t.Fatalf("expected index file on disk: %v", err)
	}

	rec := httptest.NewRecorder()
	result.HTTPServer.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/"+page.Slug, nil))
	if rec.Body.String() != "<p>wired</p>" {
		t.Fatalf("expected content through the http server, got %q", rec.Body.String())
	}
}

func TestBuildWithSQLiteIndex(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.IndexBackend = config.IndexBackendSQLite
	result := build(t, cfg)

	if result.Database == nil {
		t.Fatalf("expected database for the sqlite backend")
	}

	ctx := context.Background()
	if _, err := result.PageService.Create(ctx, domainpages.CreatePageRequest{Name: "One", Content: "<p>1</p>"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	count, err := result.PageService.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 page, got %d", count)
	}
	if _, err := os.Stat(cfg.IndexPath()); !os.IsNotExist(err) {
		t.Fatalf("expected no json index for the sqlite backend, got %v", err)
	}
}

func TestBuildConnectsEventPublisher(t *testing.T) {
	t.Parallel()

	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}

	cfg := testConfig(t)
	cfg.NATS.URL = srv.ClientURL()
	result := build(t, cfg)

	if _, err := result.PageService.Create(context.Background(), domainpages.CreatePageRequest{Name: "Evented", Content: "<p>e</p>"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
}

func TestBuildRejectsUnknownBackends(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.IndexBackend = "postgres"
	if _, err := Build(context.Background(), Dependencies{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatalf("expected error for unknown index backend")
	}

	cfg = testConfig(t)
	cfg.BlobBackend = "ftp"
	if _, err := Build(context.Background(), Dependencies{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatalf("expected error for unknown blob backend")
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	dir := t.TempDir()
	return config.Config{
		DataDir:        dir,
		IndexBackend:   config.IndexBackendJSON,
		DBPath:         filepath.Join(dir, "pagebin.db"),
		BlobBackend:    config.BlobBackendFS,
		UploadDir:      filepath.Join(dir, "uploads"),
		MaxUploadBytes: 1 << 20,
		ServerPort:     3000,
		ShutdownGrace:  time.Second,
		RateLimit: config.RateLimit{
			RequestsPerSecond: 100,
			Burst:             100,
			ClientTTL:         time.Minute,
		},
	}
}

func build(t *testing.T, cfg config.Config) Result {
	t.Helper()

	result, err := Build(context.Background(), Dependencies{
		Config:  cfg,
		Logger:  quietLogger(),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Cleanup(); err != nil {
			t.Errorf("Cleanup returned error: %v", err)
		}
	})
	return result
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
