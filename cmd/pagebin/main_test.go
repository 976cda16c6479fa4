package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"pagebin/app/internal/app/bootstrap"
	"pagebin/app/internal/domain/pages"
	"pagebin/app/internal/infrastructure/events"
	"pagebin/app/internal/platform/config"
)

func TestWritePageTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	list := []pages.Page{
		{Name: "Alpha", Slug: "alpha", Views: 3, CreatedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)},
		{Name: "Beta", Slug: "beta"},
	}
	if err := writePageTable(&buf, list); err != nil {
		t.Fatalf("writePageTable returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"SLUG", "alpha", "Beta", "2 pages"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}

	buf.Reset()
	if err := writePageTable(&buf, nil); err != nil {
		t.Fatalf("writePageTable returned error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No pages." {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}

func TestWriteStats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	stats := &pages.Stats{
		TotalPages:   2,
		TotalViews:   5,
		AverageViews: 2.5,
		TopPages:     []pages.TopPage{{Name: "Alpha", Slug: "alpha", Views: 5}},
	}
	if err := writeStats(&buf, stats); err != nil {
		t.Fatalf("writeStats returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "2.50") || !strings.Contains(out, "1.") || !strings.Contains(out, "alpha") {
		t.Fatalf("unexpected stats output %q", out)
	}
}

func TestPrintEvent(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(pages.PageEvent{Slug: "alpha", Page: &pages.Page{Name: "Alpha", Slug: "alpha"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var buf bytes.Buffer
	printEvent(&buf, events.Message{Topic: pages.TopicPageCreated, Data: payload}, false)
	if got := buf.String(); got != "pages.created\talpha\tAlpha\n" {
		t.Fatalf("unexpected event line %q", got)
	}

	buf.Reset()
	printEvent(&buf, events.Message{Topic: pages.TopicPageDeleted, Data: []byte(`{"slug":"alpha"}`)}, false)
	if got := buf.String(); got != "pages.deleted\talpha\n" {
		t.Fatalf("unexpected event line %q", got)
	}

	buf.Reset()
	printEvent(&buf, events.Message{Topic: pages.TopicPageDeleted, Data: []byte(`{"slug":"alpha"}`)}, true)
	if got := buf.String(); got != "{\"slug\":\"alpha\"}\n" {
		t.Fatalf("expected raw payload, got %q", got)
	}
}

func TestWatchEventsIgnoresCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	source := &stubEventSource{
		messages: []events.Message{{Topic: "pages.created", Data: []byte(`{}`)}},
		after:    cancel,
	}

	var received int
	if err := watchEvents(ctx, source, func(events.Message) { received++ }); err != nil {
		t.Fatalf("expected nil error after cancellation, got %v", err)
	}
	if received != 1 {
		t.Fatalf("expected 1 message, got %d", received)
	}
}

func TestListAndExportCommands(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("INDEX_BACKEND", "")
	t.Setenv("BLOB_BACKEND", "")
	t.Setenv("NATS_URL", "")

	seedPages(t, dataDir, "Alpha", "Beta")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"list", "--json", "--sort", "name-asc"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("list returned error: %v", err)
	}

	var listed []pages.Page
	if err := json.Unmarshal(out.Bytes(), &listed); err != nil {
		t.Fatalf("decoding list output: %v", err)
	}
	if len(listed) != 2 || listed[0].Slug != "alpha" || listed[1].Slug != "beta" {
		t.Fatalf("unexpected list output %#v", listed)
	}

	target := filepath.Join(t.TempDir(), "out", "export.json")
	cmd = newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"export", "-o", target})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("export returned error: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	var payload pages.ExportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if payload.TotalPages != 2 || payload.Version != pages.ExportVersion {
		t.Fatalf("unexpected export payload %#v", payload)
	}

	cmd = newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"delete", "alpha", "missing"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error when a slug is missing")
	}

	if _, err := os.Stat(filepath.Join(dataDir, "pages", "alpha.html")); !os.IsNotExist(err) {
		t.Fatalf("expected alpha content to be removed, got %v", err)
	}
}

func seedPages(t *testing.T, dataDir string, names ...string) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	result, err := bootstrap.Build(context.Background(), bootstrap.Dependencies{
		Config: config.Config{
			DataDir:        dataDir,
			IndexBackend:   config.IndexBackendJSON,
			BlobBackend:    config.BlobBackendFS,
			UploadDir:      filepath.Join(dataDir, "uploads"),
			MaxUploadBytes: 1 << 20,
			RateLimit: config.RateLimit{
				RequestsPerSecond: 1,
				Burst:             1,
				ClientTTL:         time.Minute,
			},
		},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	defer result.Cleanup()

	for _, name := range names {
		if _, err := result.PageService.Create(context.Background(), pages.CreatePageRequest{Name: name, Content: "<p>" + name + "</p>"}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
}

type stubEventSource struct {
	messages []events.Message
	after    func()
}

func (s *stubEventSource) Watch(ctx context.Context, handle func(events.Message)) error {
	for _, msg := range s.messages {
		handle(msg)
	}
	s.after()
	<-ctx.Done()
	return ctx.Err()
}
