package log

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const sentryFlushTimeout = 2 * time.Second

// SentrySettings represents the configuration required to bootstrap Sentry.
type SentrySettings struct {
	DSN         string
	Environment string
	Release     string
	// Tags are set on the root scope, e.g. the selected storage backends.
	Tags map[string]string
}

// InitSentry creates a hub and forwards error-level log entries to it.
// Without a DSN it returns a nil hub and a no-op flush.
func InitSentry(logger *logrus.Logger, settings SentrySettings) (*sentry.Hub, func(), error) {
	if settings.DSN == "" {
		return nil, func() {}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         settings.DSN,
		Environment: settings.Environment,
		Release:     settings.Release,
		BeforeSend:  scrubPageContent,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "error initializing sentry client")
	}

	scope := sentry.NewScope()
	for key, value := range settings.Tags {
		scope.SetTag(key, value)
	}
	hub := sentry.NewHub(client, scope)

	if logger != nil {
		hook := sentrylogrus.NewLogHookFromClient([]logrus.Level{
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		}, client)
		logger.AddHook(hook)
	}

	return hub, func() { hub.Flush(sentryFlushTimeout) }, nil
}

// scrubPageContent drops request bodies, which carry user-submitted HTML.
func scrubPageContent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event != nil && event.Request != nil {
		event.Request.Data = ""
	}
	return event
}
