package pages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"

	domainpages "pagebin/app/internal/domain/pages"
)

func TestFileBlobStoreLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileBlobStore(dir)
	if err != nil {
		t.Fatalf("NewFileBlobStore returned error: %v", err)
	}
	ctx := context.Background()

	exists, err := store.Exists(ctx, "hello")
	if err != nil || exists {
		t.Fatalf("expected missing blob, got exists=%v err=%v", exists, err)
	}

	if err := store.Put(ctx, "hello", []byte("<p>hi</p>")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "hello.html")); err != nil {
		t.Fatalf("expected blob file on disk: %v", err)
	}

	content, err := store.Get(ctx, "hello")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(content) != "<p>hi</p>" {
		t.Fatalf("expected stored content, got %q", content)
	}

	if err := store.Put(ctx, "hello", []byte("<p>bye</p>")); err != nil {
		t.Fatalf("overwriting Put returned error: %v", err)
	}
	content, _ = store.Get(ctx, "hello")
	if string(content) != "<p>bye</p>" {
		t.Fatalf("expected overwritten content, got %q", content)
	}

	if err := store.Delete(ctx, "hello"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Get(ctx, "hello"); !eris.Is(err, domainpages.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "hello"); !eris.Is(err, domainpages.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound deleting twice, got %v", err)
	}
}

func TestFileBlobStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewFileBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBlobStore returned error: %v", err)
	}

	for _, slug := range []string{"", "../escape", "a/b", `a\b`, ".."} {
		if err := store.Put(context.Background(), slug, []byte("x")); err == nil {
			t.Fatalf("expected error for slug %q", slug)
		}
	}
}
