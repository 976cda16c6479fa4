package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultBusyTimeout   = 5 * time.Second
	defaultSlowThreshold = 200 * time.Millisecond
)

// Options controls how the SQLite page index database is opened.
//
// The index is rewritten in full on every save, so a single open connection is
// the default. Raising MaxOpenConns only helps concurrent readers.
type Options struct {
	Path         string
	Logger       *logrus.Logger
	BusyTimeout  time.Duration
	MaxOpenConns int
	ConnMaxIdle  time.Duration
}

type pragma struct {
	statement string
	purpose   string
}

// Open establishes a SQLite connection using Gorm, creating the parent directory when needed.
func Open(opts Options) (*gorm.DB, error) {
	if opts.Path == "" {
		return nil, eris.New("database path is required")
	}

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "creating database directory %s", dir)
		}
	}

	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 1
	}

	timeoutMillis := int(opts.BusyTimeout / time.Millisecond)
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", opts.Path, timeoutMillis)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger(opts.Logger)})
	if err != nil {
		return nil, eris.Wrapf(err, "opening sqlite database %s", opts.Path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "retrieving sql.DB from gorm")
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxOpenConns)
	if opts.ConnMaxIdle > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdle)
	}

	pragmas := []pragma{
		{fmt.Sprintf("PRAGMA busy_timeout = %d;", timeoutMillis), "configuring busy timeout"},
		{"PRAGMA journal_mode = WAL;", "setting journal mode to WAL"},
		{"PRAGMA synchronous = NORMAL;", "relaxing synchronous mode"},
	}
	for _, p := range pragmas {
		if err := db.Exec(p.statement).Error; err != nil {
			_ = sqlDB.Close()
			return nil, eris.Wrap(err, p.purpose)
		}
	}

	return db, nil
}

// Ping verifies the connection is usable.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return eris.New("database is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return eris.Wrap(err, "retrieving sql.DB")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return eris.Wrap(err, "pinging database")
	}
	return nil
}

// Close releases the underlying database resources. A nil db is a no-op.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return eris.Wrap(err, "retrieving sql.DB for close")
	}

	if err := sqlDB.Close(); err != nil {
		return eris.Wrap(err, "closing database connection")
	}

	return nil
}

func gormLogger(log *logrus.Logger) logger.Interface {
	if log == nil {
		return logger.Default.LogMode(logger.Silent)
	}

	return logger.New(log.WithField("component", "database"), logger.Config{
		SlowThreshold:             defaultSlowThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
