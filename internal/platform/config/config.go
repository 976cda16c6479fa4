package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
)

// Index and blob backends understood by bootstrap.
const (
	IndexBackendJSON   = "json"
	IndexBackendSQLite = "sqlite"
	BlobBackendFS      = "fs"
	BlobBackendS3      = "s3"
)

// Config holds runtime configuration values for the pagebin server.
type Config struct {
	DataDir        string        `toml:"data_dir"`
	IndexBackend   string        `toml:"index_backend"`
	DBPath         string        `toml:"db_path"`
	BlobBackend    string        `toml:"blob_backend"`
	UploadDir      string        `toml:"upload_dir"`
	MaxUploadBytes int64         `toml:"max_upload_bytes"`
	ServerPort     int           `toml:"server_port"`
	LogLevel       string        `toml:"log_level"`
	SentryDSN      string        `toml:"sentry_dsn"`
	Environment    string        `toml:"env"`
	ShutdownGrace  time.Duration `toml:"shutdown_grace"`
	S3             S3Config      `toml:"s3"`
	NATS           NATSConfig    `toml:"nats"`
	RateLimit      RateLimit     `toml:"rate_limit"`
}

// S3Config selects the bucket used when BlobBackend is s3.
type S3Config struct {
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
	Prefix   string `toml:"prefix"`
}

// NATSConfig enables page event publishing when URL is set.
type NATSConfig struct {
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// RateLimit configures the per-client HTTP token bucket.
type RateLimit struct {
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
	ClientTTL         time.Duration `toml:"client_ttl"`
}

const (
	defaultDataDir        = "./data"
	defaultServerPort     = 3000
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultShutdownGrace  = 10 * time.Second
	defaultMaxUploadBytes = 5 << 20
	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 20
	defaultRateLimitTTL   = 5 * time.Minute
)

// Load reads configuration from the optional TOML file named by CONFIG_FILE and
// then from environment variables, which take precedence. Defaults fill the rest.
func Load() (*Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PagesDir is where the JSON index and file blobs live.
func (c *Config) PagesDir() string {
	return filepath.Join(c.DataDir, "pages")
}

// IndexPath is the location of the JSON index file.
func (c *Config) IndexPath() string {
	return filepath.Join(c.PagesDir(), "index.json")
}

// Validate rejects unknown backends and unusable limits.
func (c *Config) Validate() error {
	switch c.IndexBackend {
	case IndexBackendJSON, IndexBackendSQLite:
	default:
		return eris.Errorf("invalid INDEX_BACKEND value: %s", c.IndexBackend)
	}

	switch c.BlobBackend {
	case BlobBackendFS:
	case BlobBackendS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return eris.New("S3_BUCKET is required when BLOB_BACKEND is s3")
		}
	default:
		return eris.Errorf("invalid BLOB_BACKEND value: %s", c.BlobBackend)
	}

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return eris.Errorf("invalid SERVER_PORT value: %d", c.ServerPort)
	}
	if c.MaxUploadBytes <= 0 {
		return eris.New("MAX_UPLOAD_BYTES must be greater than zero")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return eris.New("RATE_LIMIT_RPS must be greater than zero")
	}
	if c.RateLimit.Burst <= 0 {
		return eris.New("RATE_LIMIT_BURST must be greater than zero")
	}
	if c.RateLimit.ClientTTL <= 0 {
		return eris.New("RATE_LIMIT_TTL must be greater than zero")
	}
	if c.ShutdownGrace <= 0 {
		return eris.New("SHUTDOWN_GRACE must be greater than zero")
	}

	return nil
}

func defaults() *Config {
	return &Config{
		DataDir:        defaultDataDir,
		IndexBackend:   IndexBackendJSON,
		BlobBackend:    BlobBackendFS,
		MaxUploadBytes: defaultMaxUploadBytes,
		ServerPort:     defaultServerPort,
		LogLevel:       defaultLogLevel,
		Environment:    defaultEnvironment,
		ShutdownGrace:  defaultShutdownGrace,
		RateLimit: RateLimit{
			RequestsPerSecond: defaultRateLimitRPS,
			Burst:             defaultRateLimitBurst,
			ClientTTL:         defaultRateLimitTTL,
		},
	}
}

func applyFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return eris.Wrapf(err, "reading config file %s", path)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.IndexBackend = strings.ToLower(getEnv("INDEX_BACKEND", cfg.IndexBackend))
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.BlobBackend = strings.ToLower(getEnv("BLOB_BACKEND", cfg.BlobBackend))
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.SentryDSN = getEnv("SENTRY_DSN", cfg.SentryDSN)
	cfg.Environment = getEnv("ENV", cfg.Environment)
	cfg.S3.Bucket = getEnv("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Region = getEnv("S3_REGION", cfg.S3.Region)
	cfg.S3.Endpoint = getEnv("S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.Prefix = getEnv("S3_PREFIX", cfg.S3.Prefix)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)

	if value := os.Getenv("SERVER_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return eris.Wrapf(err, "invalid SERVER_PORT value: %s", value)
		}
		cfg.ServerPort = port
	}

	if value := os.Getenv("MAX_UPLOAD_BYTES"); value != "" {
		limit, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return eris.Wrapf(err, "invalid MAX_UPLOAD_BYTES value: %s", value)
		}
		cfg.MaxUploadBytes = limit
	}

	if value := os.Getenv("RATE_LIMIT_RPS"); value != "" {
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", value)
		}
		cfg.RateLimit.RequestsPerSecond = rps
	}

	if value := os.Getenv("RATE_LIMIT_BURST"); value != "" {
		burst, err := strconv.Atoi(value)
		if err != nil {
			return eris.Wrapf(err, "invalid RATE_LIMIT_BURST value: %s", value)
		}
		cfg.RateLimit.Burst = burst
	}

	if value := os.Getenv("RATE_LIMIT_TTL"); value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil {
			return eris.Wrapf(err, "invalid RATE_LIMIT_TTL value: %s", value)
		}
		cfg.RateLimit.ClientTTL = ttl
	}

	if value := os.Getenv("SHUTDOWN_GRACE"); value != "" {
		grace, err := time.ParseDuration(value)
		if err != nil {
			return eris.Wrapf(err, "invalid SHUTDOWN_GRACE value: %s", value)
		}
		cfg.ShutdownGrace = grace
	}

	return nil
}

func (c *Config) fillDerived() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "pagebin.db")
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
