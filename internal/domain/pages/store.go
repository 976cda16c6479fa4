package pages

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
)

// ErrBlobNotFound is returned by BlobStore implementations for a missing slug.
var ErrBlobNotFound = eris.New("blob not found")

// BlobStore keeps the raw content of each page keyed by slug.
type BlobStore interface {
	Put(ctx context.Context, slug string, content []byte) error
	Get(ctx context.Context, slug string) ([]byte, error)
	Delete(ctx context.Context, slug string) error
	Exists(ctx context.Context, slug string) (bool, error)
}

// IndexStore loads and saves the full ordered page list.
type IndexStore interface {
	Load(ctx context.Context) ([]Page, error)
	Save(ctx context.Context, pages []Page) error
}

// UploadStore persists uploaded thumbnail images and returns a servable reference.
type UploadStore interface {
	Save(ctx context.Context, filename string, content io.Reader) (string, error)
	Remove(ctx context.Context, ref string) error
}

// EventPublisher broadcasts page lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

const (
	TopicPageCreated = "pages.created"
	TopicPageUpdated = "pages.updated"
	TopicPageDeleted = "pages.deleted"
)

// PageEvent is the payload published for lifecycle topics.
type PageEvent struct {
	Slug string `json:"slug"`
	Page *Page  `json:"page,omitempty"`
}

// Service is the set of registry operations consumed by transports.
type Service interface {
	Create(ctx context.Context, req CreatePageRequest) (*Page, error)
	Update(ctx context.Context, req UpdatePageRequest) (*Page, error)
	Delete(ctx context.Context, slug string) error
	Get(ctx context.Context, slug string) (*Document, error)
	RecordView(ctx context.Context, slug string) error
	List(ctx context.Context, opts ListOptions) ([]Page, error)
	Stats(ctx context.Context) (*Stats, error)
	Export(ctx context.Context) (*ExportPayload, error)
	Count(ctx context.Context) (int, error)
}
