package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

func TestNewLoggerDefaultsToInfoJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Options{Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}

	Component(logger, "pages.registry").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "pages.registry" || entry["msg"] != "hello" {
		t.Fatalf("unexpected log entry %v", entry)
	}
}

func TestNewLoggerParsesLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(Options{Level: "DEBUG"})
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	if _, err := NewLogger(Options{Level: "chatty"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestNewLoggerTextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Options{Output: &buf, Text: true})
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	logger.Info("plain")

	if !strings.Contains(buf.String(), "msg=plain") {
		t.Fatalf("expected text formatted output, got %q", buf.String())
	}
}

func TestInitSentryWithoutDSN(t *testing.T) {
	t.Parallel()

	hub, flush, err := InitSentry(logrus.New(), SentrySettings{})
	if err != nil {
		t.Fatalf("InitSentry returned error: %v", err)
	}
	if hub != nil {
		t.Fatalf("expected nil hub without DSN")
	}
	flush()
}

func TestScrubPageContentDropsRequestBody(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{Request: &sentry.Request{URL: "/create", Data: "<h1>secret</h1>"}}
	scrubbed := scrubPageContent(event, nil)
	if scrubbed.Request.Data != "" {
		t.Fatalf("expected request body to be dropped, got %q", scrubbed.Request.Data)
	}
	if scrubbed.Request.URL != "/create" {
		t.Fatalf("expected url to be kept, got %q", scrubbed.Request.URL)
	}

	if scrubPageContent(&sentry.Event{}, nil) == nil {
		t.Fatalf("expected events without requests to pass through")
	}
}
