package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"CONFIG_FILE",
	"DATA_DIR",
	"INDEX_BACKEND",
	"DB_PATH",
	"BLOB_BACKEND",
	"UPLOAD_DIR",
	"MAX_UPLOAD_BYTES",
	"SERVER_PORT",
	"LOG_LEVEL",
	"SENTRY_DSN",
	"ENV",
	"SHUTDOWN_GRACE",
	"S3_BUCKET",
	"S3_REGION",
	"S3_ENDPOINT",
	"S3_PREFIX",
	"NATS_URL",
	"NATS_SUBJECT_PREFIX",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"RATE_LIMIT_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DataDir != defaultDataDir {
		t.Errorf("expected default data dir %q, got %q", defaultDataDir, cfg.DataDir)
	}

	if cfg.ServerPort != defaultServerPort {
		t.Errorf("expected default server port %d, got %d", defaultServerPort, cfg.ServerPort)
	}

	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.ShutdownGrace != defaultShutdownGrace {
		t.Errorf("expected shutdown grace %s, got %s", defaultShutdownGrace, cfg.ShutdownGrace)
	}

	if cfg.IndexBackend != IndexBackendJSON || cfg.BlobBackend != BlobBackendFS {
		t.Errorf("expected json index and fs blobs, got %q and %q", cfg.IndexBackend, cfg.BlobBackend)
	}

	if cfg.DBPath != filepath.Join(defaultDataDir, "pagebin.db") {
		t.Errorf("expected DB path under data dir, got %q", cfg.DBPath)
	}

	if cfg.UploadDir != filepath.Join(defaultDataDir, "uploads") {
		t.Errorf("expected upload dir under data dir, got %q", cfg.UploadDir)
	}

	if cfg.IndexPath() != filepath.Join(defaultDataDir, "pages", "index.json") {
		t.Errorf("unexpected index path %q", cfg.IndexPath())
	}

	if cfg.RateLimit.Burst != defaultRateLimitBurst || cfg.RateLimit.RequestsPerSecond != defaultRateLimitRPS {
		t.Errorf("unexpected rate limit defaults %#v", cfg.RateLimit)
	}

	if cfg.NATS.URL != "" {
		t.Errorf("expected empty NATS url, got %q", cfg.NATS.URL)
	}

	if cfg.SentryDSN != "" {
		t.Errorf("expected empty Sentry DSN, got %q", cfg.SentryDSN)
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/srv/pagebin")
	t.Setenv("INDEX_BACKEND", "SQLite")
	t.Setenv("DB_PATH", "/tmp/pagebin.db")
	t.Setenv("BLOB_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "pages")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SENTRY_DSN", "dsn")
	t.Setenv("ENV", "production")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("RATE_LIMIT_TTL", "30s")
	t.Setenv("SHUTDOWN_GRACE", "3s")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.IndexBackend != IndexBackendSQLite {
		t.Errorf("expected sqlite index backend, got %q", cfg.IndexBackend)
	}

	if cfg.DBPath != "/tmp/pagebin.db" {
		t.Errorf("expected DB path %q, got %q", "/tmp/pagebin.db", cfg.DBPath)
	}

	if cfg.UploadDir != filepath.Join("/srv/pagebin", "uploads") {
		t.Errorf("expected upload dir derived from data dir, got %q", cfg.UploadDir)
	}

	if cfg.S3.Bucket != "pages" || cfg.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("unexpected S3 settings %#v", cfg.S3)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.ServerPort)
	}

	if cfg.RateLimit.RequestsPerSecond != 2.5 || cfg.RateLimit.Burst != 4 || cfg.RateLimit.ClientTTL != 30*time.Second {
		t.Errorf("unexpected rate limit settings %#v", cfg.RateLimit)
	}

	if cfg.ShutdownGrace != 3*time.Second {
		t.Errorf("expected shutdown grace 3s, got %s", cfg.ShutdownGrace)
	}

	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("expected max upload bytes 1024, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "not-a-number")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got %v", err)
	}
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	clearEnv(t)
	t.Setenv("INDEX_BACKEND", "postgres")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "INDEX_BACKEND") {
		t.Fatalf("expected INDEX_BACKEND error, got %v", err)
	}
}

func TestLoadRequiresBucketForS3(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLOB_BACKEND", "s3")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "S3_BUCKET") {
		t.Fatalf("expected S3_BUCKET error, got %v", err)
	}
}

func TestLoadAppliesConfigFileBeforeEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "pagebin.toml")
	contents := `
data_dir = "/var/lib/pagebin"
server_port = 4000
log_level = "warn"
shutdown_grace = "20s"

[nats]
url = "nats://file:4222"
subject_prefix = "acme"

[rate_limit]
requests_per_second = 1.5
burst = 2
client_ttl = "1m"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DataDir != "/var/lib/pagebin" {
		t.Errorf("expected data dir from file, got %q", cfg.DataDir)
	}
	if cfg.ServerPort != 5000 {
		t.Errorf("expected env to override file port, got %d", cfg.ServerPort)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log level from file, got %q", cfg.LogLevel)
	}
	if cfg.ShutdownGrace != 20*time.Second {
		t.Errorf("expected shutdown grace from file, got %s", cfg.ShutdownGrace)
	}
	if cfg.NATS.URL != "nats://file:4222" || cfg.NATS.SubjectPrefix != "acme" {
		t.Errorf("unexpected NATS settings %#v", cfg.NATS)
	}
	if cfg.RateLimit.Burst != 2 || cfg.RateLimit.ClientTTL != time.Minute {
		t.Errorf("unexpected rate limit settings %#v", cfg.RateLimit)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
