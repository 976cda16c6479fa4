package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainpages "pagebin/app/internal/domain/pages"
)

// JSONIndex persists the page index as a single JSON array file.
type JSONIndex struct {
	path   string
	logger *logrus.Logger
}

// indexEntry accepts the legacy `time` field written by older indexes.
type indexEntry struct {
	domainpages.Page
	LegacyTime *time.Time `json:"time,omitempty"`
}

// NewJSONIndex prepares the index file, creating an empty list when it does not exist.
func NewJSONIndex(path string, logger *logrus.Logger) (*JSONIndex, error) {
	if path == "" {
		return nil, eris.New("index path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "creating index directory for %s", path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if writeErr := os.WriteFile(path, []byte("[]"), 0o644); writeErr != nil {
			return nil, eris.Wrapf(writeErr, "initialising index file %s", path)
		}
	} else if err != nil {
		return nil, eris.Wrapf(err, "inspecting index file %s", path)
	}

	return &JSONIndex{path: path, logger: logger}, nil
}

var _ domainpages.IndexStore = (*JSONIndex)(nil)

// Path returns the location of the index file.
func (s *JSONIndex) Path() string {
	return s.path
}

// Load reads the whole index. A missing or empty file is an empty index.
func (s *JSONIndex) Load(_ context.Context) ([]domainpages.Page, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domainpages.Page{}, nil
		}
		s.logError(err, "reading index file")
		return nil, eris.Wrapf(err, "reading index file %s", s.path)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return []domainpages.Page{}, nil
	}

	var entries []indexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logError(err, "decoding index file")
		return nil, eris.Wrapf(err, "decoding index file %s", s.path)
	}

	pages := make([]domainpages.Page, 0, len(entries))
	for _, entry := range entries {
		page := entry.Page
		if page.CreatedAt.IsZero() && entry.LegacyTime != nil {
			page.CreatedAt = *entry.LegacyTime
		}
		pages = append(pages, page)
	}

	return pages, nil
}

// Save writes the whole index, replacing the file via rename.
func (s *JSONIndex) Save(_ context.Context, pages []domainpages.Page) error {
	if pages == nil {
		pages = []domainpages.Page{}
	}

	encoded, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encoding index")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".index-*.json")
	if err != nil {
		s.logError(err, "creating temporary index file")
		return eris.Wrap(err, "creating temporary index file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		s.logError(err, "writing temporary index file")
		return eris.Wrap(err, "writing temporary index file")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "closing temporary index file")
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "setting index file permissions")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		s.logError(err, "replacing index file")
		return eris.Wrapf(err, "replacing index file %s", s.path)
	}

	return nil
}

func (s *JSONIndex) logError(err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"component": "pages.json_index",
		"path":      s.path,
		"error":     err.Error(),
	}).Error(message)
}
