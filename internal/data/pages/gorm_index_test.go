package pages_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"pagebin/app/internal/data/database"
	"pagebin/app/internal/data/migrations"
	datapages "pagebin/app/internal/data/pages"
	domainpages "pagebin/app/internal/domain/pages"
)

func TestNewGormIndexRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := datapages.NewGormIndex(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestGormIndexLoadEmpty(t *testing.T) {
	t.Parallel()

	index := setupGormIndex(t)

	pages, err := index.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(pages) != 0 {
		t.Fatalf("expected empty index, got %d pages", len(pages))
	}
}

func TestGormIndexSaveReplacesAndPreservesOrder(t *testing.T) {
	t.Parallel()

	index := setupGormIndex(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	viewed := created.Add(2 * time.Hour)
	first := []domainpages.Page{
		{Name: "Zulu", Slug: "zulu", CreatedAt: created, Views: 3, LastViewedAt: &viewed, Thumbnail: "/static/thumbnails/dune.svg"},
		{Name: "Alpha", Slug: "alpha", CreatedAt: created.Add(time.Minute), Excerpt: "hello"},
		{Name: "Mike", Slug: "mike", CreatedAt: created.Add(2 * time.Minute)},
	}
	if err := index.Save(ctx, first); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := index.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(loaded))
	}
	for i, want := range []string{"zulu", "alpha", "mike"} {
		if loaded[i].Slug != want {
			t.Fatalf("expected slug %q at position %d, got %q", want, i, loaded[i].Slug)
		}
	}
	if loaded[0].Views != 3 || loaded[0].LastViewedAt == nil || !loaded[0].LastViewedAt.Equal(viewed) {
		t.Fatalf("expected view data to round trip, got %#v", loaded[0])
	}
	if !loaded[0].CreatedAt.Equal(created) {
		t.Fatalf("expected createdAt %v, got %v", created, loaded[0].CreatedAt)
	}
	if loaded[1].Excerpt != "hello" {
		t.Fatalf("expected excerpt to round trip, got %q", loaded[1].Excerpt)
	}

	if err := index.Save(ctx, first[1:2]); err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}

	loaded, err = index.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Slug != "alpha" {
		t.Fatalf("expected index to be replaced with alpha only, got %#v", loaded)
	}

	if err := index.Save(ctx, nil); err != nil {
		t.Fatalf("saving empty index returned error: %v", err)
	}
	loaded, err = index.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty index after clearing, got %d", len(loaded))
	}
}

func TestGormIndexRejectsDuplicateSlugs(t *testing.T) {
	t.Parallel()

	index := setupGormIndex(t)
	ctx := context.Background()

	if err := index.Save(ctx, []domainpages.Page{{Name: "One", Slug: "one"}}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	duplicate := []domainpages.Page{{Name: "A", Slug: "dup"}, {Name: "B", Slug: "dup"}}
	if err := index.Save(ctx, duplicate); err == nil {
		t.Fatalf("expected error when saving duplicate slugs")
	}

	loaded, err := index.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Slug != "one" {
		t.Fatalf("expected failed save to roll back, got %#v", loaded)
	}
}

func setupGormIndex(t *testing.T) *datapages.GormIndex {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	path := filepath.Join(t.TempDir(), "index.db")
	db, err := database.Open(database.Options{Path: path, Logger: logger})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if err := migrations.MigratePages(context.Background(), db, logger); err != nil {
		t.Fatalf("migrating database: %v", err)
	}

	index, err := datapages.NewGormIndex(db, logger)
	if err != nil {
		t.Fatalf("NewGormIndex returned error: %v", err)
	}
	return index
}
