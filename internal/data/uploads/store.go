// Package uploads stores user-supplied thumbnail images on disk.
package uploads

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainpages "pagebin/app/internal/domain/pages"
)

const (
	// DefaultURLPrefix is where stored uploads are served from.
	DefaultURLPrefix = "/uploads/"
	// DefaultMaxBytes caps a single upload.
	DefaultMaxBytes int64 = 5 << 20

	nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	nameLength   = 16
)

// AllowedExtensions lists the image types accepted as thumbnails.
var AllowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

// Options configures a Store.
type Options struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
	Logger    *logrus.Logger
}

// Store writes uploads under a directory with generated names.
type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	logger    *logrus.Logger
}

var _ domainpages.UploadStore = (*Store)(nil)

// NewStore creates the upload directory when needed.
func NewStore(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, eris.New("upload directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "creating upload directory %s", opts.Dir)
	}

	prefix := opts.URLPrefix
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Store{dir: opts.Dir, urlPrefix: prefix, maxBytes: maxBytes, logger: opts.Logger}, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save copies content to a new file and returns its public reference.
func (s *Store) Save(_ context.Context, filename string, content io.Reader) (string, error) {
	if content == nil {
		return "", &domainpages.ValidationError{Field: "thumbnail_file", Reason: "is required"}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return "", &domainpages.ValidationError{Field: "thumbnail_file", Reason: "must be a png, jpg, gif, webp or svg image"}
	}

	id, err := nanoid.Generate(nameAlphabet, nameLength)
	if err != nil {
		return "", eris.Wrap(err, "generating upload name")
	}
	name := id + ext
	target := filepath.Join(s.dir, name)

	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", eris.Wrapf(err, "creating upload %s", name)
	}

	written, copyErr := io.Copy(file, io.LimitReader(content, s.maxBytes+1))
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		s.removeFile(target)
		return "", eris.Wrapf(copyErr, "writing upload %s", name)
	case closeErr != nil:
		s.removeFile(target)
		return "", eris.Wrapf(closeErr, "closing upload %s", name)
	case written > s.maxBytes:
		s.removeFile(target)
		return "", &domainpages.ValidationError{Field: "thumbnail_file", Reason: "exceeds the upload size limit"}
	case written == 0:
		s.removeFile(target)
		return "", &domainpages.ValidationError{Field: "thumbnail_file", Reason: "is empty"}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "uploads",
			"file":      name,
			"bytes":     written,
		}).Info("stored thumbnail upload")
	}

	return s.urlPrefix + name, nil
}

// Remove deletes a previously saved upload. References the store does not own are ignored.
func (s *Store) Remove(_ context.Context, ref string) error {
	if !s.Owns(ref) {
		return nil
	}

	name := path.Base(strings.TrimPrefix(ref, s.urlPrefix))
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "removing upload %s", name)
	}
	return nil
}

// Owns reports whether ref points at a file managed by this store.
func (s *Store) Owns(ref string) bool {
	if !strings.HasPrefix(ref, s.urlPrefix) {
		return false
	}
	name := strings.TrimPrefix(ref, s.urlPrefix)
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func (s *Store) removeFile(target string) {
	if err := os.Remove(target); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "uploads",
			"file":      target,
			"error":     err.Error(),
		}).Warn("failed to remove partial upload")
	}
}
