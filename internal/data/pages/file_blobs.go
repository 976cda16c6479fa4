package pages

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	domainpages "pagebin/app/internal/domain/pages"
)

const blobExtension = ".html"

// FileBlobStore keeps each page's content in <dir>/<slug>.html.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore creates dir when needed.
func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, eris.New("blob directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "creating blob directory %s", dir)
	}

	return &FileBlobStore{dir: dir}, nil
}

var _ domainpages.BlobStore = (*FileBlobStore)(nil)

// Put writes content, replacing any previous blob for slug.
func (s *FileBlobStore) Put(_ context.Context, slug string, content []byte) error {
	path, err := s.path(slug)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return eris.Wrapf(err, "writing blob %s", slug)
	}
	return nil
}

// Get reads the blob for slug.
func (s *FileBlobStore) Get(_ context.Context, slug string) ([]byte, error) {
	path, err := s.path(slug)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(domainpages.ErrBlobNotFound, "reading blob %s", slug)
		}
		return nil, eris.Wrapf(err, "reading blob %s", slug)
	}
	return content, nil
}

// Delete removes the blob for slug.
func (s *FileBlobStore) Delete(_ context.Context, slug string) error {
	path, err := s.path(slug)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return eris.Wrapf(domainpages.ErrBlobNotFound, "deleting blob %s", slug)
		}
		return eris.Wrapf(err, "deleting blob %s", slug)
	}
	return nil
}

// Exists reports whether a blob is stored for slug.
func (s *FileBlobStore) Exists(_ context.Context, slug string) (bool, error) {
	path, err := s.path(slug)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, eris.Wrapf(err, "inspecting blob %s", slug)
	}
	return true, nil
}

func (s *FileBlobStore) path(slug string) (string, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" || trimmed == "." || strings.Contains(trimmed, "..") || strings.ContainsAny(trimmed, `/\`) {
		return "", eris.Errorf("invalid blob slug %q", slug)
	}
	return filepath.Join(s.dir, trimmed+blobExtension), nil
}
