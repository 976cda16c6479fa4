package log

import (
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Options configures the process logger.
type Options struct {
	Level  string
	Output io.Writer
	// Text switches from JSON to logfmt-style output, used by the CLI.
	Text bool
}

// NewLogger constructs a logrus logger. JSON output is the default.
func NewLogger(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()
	if opts.Text {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	}
	logger.SetReportCaller(false)
	logger.SetLevel(logrus.InfoLevel)

	if opts.Level == "" {
		return logger, nil
	}

	parsedLevel, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return nil, eris.Wrapf(err, "invalid log level: %s", opts.Level)
	}

	logger.SetLevel(parsedLevel)
	return logger, nil
}

// Component returns an entry tagged with the owning component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}
