package uploads

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	domainpages "pagebin/app/internal/domain/pages"
)

func TestNewStoreRequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(Options{}); err == nil {
		t.Fatalf("expected error when dir is empty")
	}
}

func TestSaveAndRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(Options{Dir: dir})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	ctx := context.Background()

	ref, err := store.Save(ctx, "Cat.PNG", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if !strings.HasPrefix(ref, DefaultURLPrefix) || !strings.HasSuffix(ref, ".png") {
		t.Fatalf("unexpected reference %q", ref)
	}

	stored := filepath.Join(dir, strings.TrimPrefix(ref, DefaultURLPrefix))
	content, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("reading stored upload: %v", err)
	}
	if string(content) != "png-bytes" {
		t.Fatalf("expected stored bytes, got %q", content)
	}

	other, err := store.Save(ctx, "cat.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}
	if other == ref {
		t.Fatalf("expected distinct names for repeated uploads")
	}

	if err := store.Remove(ctx, ref); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := os.Stat(stored); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected upload to be removed, stat err %v", err)
	}
	if err := store.Remove(ctx, ref); err != nil {
		t.Fatalf("removing twice should be a no-op, got %v", err)
	}
}

func TestSaveRejectsDisallowedExtension(t *testing.T) {
	t.Parallel()

	store, err := NewStore(Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}

	_, err = store.Save(context.Background(), "script.exe", strings.NewReader("MZ"))
	if !domainpages.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSaveRejectsOversizedAndEmptyFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(Options{Dir: dir, MaxBytes: 4})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}

	if _, err := store.Save(context.Background(), "big.gif", bytes.NewReader([]byte("12345"))); !domainpages.IsValidation(err) {
		t.Fatalf("expected validation error for oversized upload, got %v", err)
	}
	if _, err := store.Save(context.Background(), "empty.gif", bytes.NewReader(nil)); !domainpages.IsValidation(err) {
		t.Fatalf("expected validation error for empty upload, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected rejected uploads to be cleaned up, found %d files", len(entries))
	}
}

func TestRemoveIgnoresForeignReferences(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(Options{Dir: dir})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}

	sentinel := filepath.Join(dir, "keep.png")
	if err := os.WriteFile(sentinel, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing sentinel: %v", err)
	}

	for _, ref := range []string{"/static/thumbnails/aurora.svg", "https://example.com/keep.png", "/uploads/../keep.png"} {
		if err := store.Remove(context.Background(), ref); err != nil {
			t.Fatalf("Remove(%q) returned error: %v", ref, err)
		}
	}
	if _, err := os.Stat(sentinel); err != nil {
		t.Fatalf("expected foreign references to be ignored: %v", err)
	}
}
