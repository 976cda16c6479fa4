package pages

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// DefaultThumbnails are assigned when no explicit thumbnail is requested.
var DefaultThumbnails = []string{
	"/static/thumbnails/aurora.svg",
	"/static/thumbnails/dune.svg",
	"/static/thumbnails/lagoon.svg",
	"/static/thumbnails/meadow.svg",
	"/static/thumbnails/ember.svg",
}

// ReservedSlugs collide with fixed routes and are never handed out.
var ReservedSlugs = []string{
	"new", "create", "edit", "update", "delete", "stats",
	"api", "static", "uploads", "healthz", "docs", "schemas", "favicon.ico",
}

// Options configures a Registry.
type Options struct {
	Index      IndexStore
	Blobs      BlobStore
	Uploads    UploadStore
	Events     EventPublisher
	Logger     *logrus.Logger
	SentryHub  *sentry.Hub
	Thumbnails []string
	Reserved   []string
	Now        func() time.Time
	Pick       func(n int) int
}

// Registry owns the page index and the content blobs as one unit.
//
// Every operation reloads the index and writes it back in full. There is no
// in-process locking: concurrent mutations race and the last save wins.
type Registry struct {
	index      IndexStore
	blobs      BlobStore
	uploads    UploadStore
	events     EventPublisher
	logger     *logrus.Logger
	sentryHub  *sentry.Hub
	thumbnails []string
	reserved   map[string]struct{}
	now        func() time.Time
	pick       func(n int) int
}

var _ Service = (*Registry)(nil)

// NewRegistry wires a registry with its stores.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Index == nil {
		return nil, eris.New("index store is required")
	}
	if opts.Blobs == nil {
		return nil, eris.New("blob store is required")
	}

	thumbnails := opts.Thumbnails
	if len(thumbnails) == 0 {
		thumbnails = DefaultThumbnails
	}

	reservedList := opts.Reserved
	if reservedList == nil {
		reservedList = ReservedSlugs
	}
	reserved := make(map[string]struct{}, len(reservedList))
	for _, slug := range reservedList {
		reserved[slug] = struct{}{}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}

	return &Registry{
		index:      opts.Index,
		blobs:      opts.Blobs,
		uploads:    opts.Uploads,
		events:     opts.Events,
		logger:     opts.Logger,
		sentryHub:  opts.SentryHub,
		thumbnails: thumbnails,
		reserved:   reserved,
		now:        now,
		pick:       pick,
	}, nil
}

// Create stores new content under a fresh slug and appends it to the index.
func (r *Registry) Create(ctx context.Context, req CreatePageRequest) (*Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	list, err := r.load(ctx, "create")
	if err != nil {
		return nil, err
	}

	slug, err := r.uniqueSlug(ctx, list, Slugify(name))
	if err != nil {
		return nil, r.persistenceFailure("create", logrus.Fields{"name": name}, err)
	}

	thumbnail, err := r.resolveThumbnail(ctx, req.Thumbnail, "", false)
	if err != nil {
		return nil, err
	}

	if err := r.blobs.Put(ctx, slug, []byte(req.Content)); err != nil {
		r.discardUpload(ctx, thumbnail)
		return nil, r.persistenceFailure("create", logrus.Fields{"slug": slug}, eris.Wrapf(err, "writing content for %s", slug))
	}

	page := Page{
		Name:      name,
		Slug:      slug,
		CreatedAt: r.now().UTC(),
		Thumbnail: thumbnail,
		Excerpt:   Excerpt(req.Content),
	}
	list = append(list, page)

	if err := r.save(ctx, "create", list); err != nil {
		if delErr := r.blobs.Delete(ctx, slug); delErr != nil {
			r.logWarn(logrus.Fields{"slug": slug}, delErr, "removing orphaned content after failed index save")
		}
		r.discardUpload(ctx, thumbnail)
		return nil, err
	}

	r.logInfo(logrus.Fields{"slug": slug}, "page created")
	r.publish(ctx, TopicPageCreated, PageEvent{Slug: slug, Page: &page})

	return &page, nil
}

// Update overwrites the content and metadata of an existing page. The slug never changes.
func (r *Registry) Update(ctx context.Context, req UpdatePageRequest) (*Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(req.Slug)
	list, err := r.load(ctx, "update")
	if err != nil {
		return nil, err
	}

	idx := indexOf(list, slug)
	if idx < 0 {
		return nil, &NotFoundError{Slug: slug}
	}

	original, existed, err := r.snapshot(ctx, "update", slug)
	if err != nil {
		return nil, err
	}

	previous := list[idx].Thumbnail
	thumbnail, err := r.resolveThumbnail(ctx, req.Thumbnail, previous, true)
	if err != nil {
		return nil, err
	}

	if err := r.blobs.Put(ctx, slug, []byte(req.Content)); err != nil {
		if thumbnail != previous {
			r.discardUpload(ctx, thumbnail)
		}
		return nil, r.persistenceFailure("update", logrus.Fields{"slug": slug}, eris.Wrapf(err, "writing content for %s", slug))
	}

	updatedAt := r.now().UTC()
	page := &list[idx]
	page.Name = strings.TrimSpace(req.Name)
	page.UpdatedAt = &updatedAt
	page.Thumbnail = thumbnail
	page.Excerpt = Excerpt(req.Content)
	updated := *page

	if err := r.save(ctx, "update", list); err != nil {
		r.restore(ctx, slug, original, existed)
		if thumbnail != previous {
			r.discardUpload(ctx, thumbnail)
		}
		return nil, err
	}

	if previous != "" && previous != thumbnail {
		r.discardUpload(ctx, previous)
	}

	r.logInfo(logrus.Fields{"slug": slug}, "page updated")
	r.publish(ctx, TopicPageUpdated, PageEvent{Slug: slug, Page: &updated})

	return &updated, nil
}

// Delete removes the content and the index record for slug.
func (r *Registry) Delete(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	list, err := r.load(ctx, "delete")
	if err != nil {
		return err
	}

	idx := indexOf(list, slug)
	if idx < 0 {
		return &NotFoundError{Slug: slug}
	}

	original, existed, err := r.snapshot(ctx, "delete", slug)
	if err != nil {
		return err
	}

	if err := r.blobs.Delete(ctx, slug); err != nil && !eris.Is(err, ErrBlobNotFound) {
		return r.persistenceFailure("delete", logrus.Fields{"slug": slug}, eris.Wrapf(err, "removing content for %s", slug))
	}

	removed := list[idx]
	remaining := make([]Page, 0, len(list)-1)
	remaining = append(remaining, list[:idx]...)
	remaining = append(remaining, list[idx+1:]...)

	if err := r.save(ctx, "delete", remaining); err != nil {
		r.restore(ctx, slug, original, existed)
		return err
	}

	r.discardUpload(ctx, removed.Thumbnail)
	r.logInfo(logrus.Fields{"slug": slug}, "page deleted")
	r.publish(ctx, TopicPageDeleted, PageEvent{Slug: slug})

	return nil
}

// Get returns the record for slug together with its content.
func (r *Registry) Get(ctx context.Context, slug string) (*Document, error) {
	slug = strings.TrimSpace(slug)
	list, err := r.load(ctx, "get")
	if err != nil {
		return nil, err
	}

	idx := indexOf(list, slug)
	if idx < 0 {
		return nil, &NotFoundError{Slug: slug}
	}

	content, err := r.blobs.Get(ctx, slug)
	if err != nil {
		if eris.Is(err, ErrBlobNotFound) {
			return nil, &NotFoundError{Slug: slug}
		}
		return nil, r.persistenceFailure("get", logrus.Fields{"slug": slug}, eris.Wrapf(err, "reading content for %s", slug))
	}

	return &Document{Page: list[idx], Content: content}, nil
}

// RecordView bumps the view counter for slug. Failures are logged here;
// callers serving content should not fail because of them.
func (r *Registry) RecordView(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	list, err := r.load(ctx, "record view")
	if err != nil {
		return err
	}

	idx := indexOf(list, slug)
	if idx < 0 {
		return &NotFoundError{Slug: slug}
	}

	viewedAt := r.now().UTC()
	list[idx].Views++
	list[idx].LastViewedAt = &viewedAt

	return r.save(ctx, "record view", list)
}

// List returns pages filtered by opts.Query and ordered by opts.Sort.
func (r *Registry) List(ctx context.Context, opts ListOptions) ([]Page, error) {
	list, err := r.load(ctx, "list")
	if err != nil {
		return nil, err
	}

	return SortPages(FilterPages(list, opts.Query), opts.Sort), nil
}

// Count returns the number of indexed pages.
func (r *Registry) Count(ctx context.Context) (int, error) {
	list, err := r.load(ctx, "count")
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Stats aggregates the full index.
func (r *Registry) Stats(ctx context.Context) (*Stats, error) {
	list, err := r.load(ctx, "stats")
	if err != nil {
		return nil, err
	}

	stats := ComputeStats(list, r.now())
	return &stats, nil
}

// Export snapshots the full index for download.
func (r *Registry) Export(ctx context.Context) (*ExportPayload, error) {
	list, err := r.load(ctx, "export")
	if err != nil {
		return nil, err
	}

	payload := BuildExport(list, r.now())
	return &payload, nil
}

func (r *Registry) uniqueSlug(ctx context.Context, list []Page, base string) (string, error) {
	taken := make(map[string]struct{}, len(list))
	for _, page := range list {
		taken[page.Slug] = struct{}{}
	}

	candidate := base
	for n := 2; ; n++ {
		_, inIndex := taken[candidate]
		_, isReserved := r.reserved[candidate]
		if !inIndex && !isReserved {
			exists, err := r.blobs.Exists(ctx, candidate)
			if err != nil {
				return "", eris.Wrapf(err, "checking content for %s", candidate)
			}
			if !exists {
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func (r *Registry) resolveThumbnail(ctx context.Context, spec ThumbnailSpec, current string, allowKeep bool) (string, error) {
	switch spec.Option {
	case ThumbnailKeep:
		if allowKeep {
			return current, nil
		}
	case ThumbnailFile:
		if spec.File != nil && spec.File.Content != nil && r.uploads != nil {
			ref, err := r.uploads.Save(ctx, spec.File.Filename, spec.File.Content)
			if err != nil {
				if IsValidation(err) {
					return "", err
				}
				return "", r.persistenceFailure("store thumbnail", logrus.Fields{"filename": spec.File.Filename}, err)
			}
			return ref, nil
		}
	case ThumbnailURL:
		if strings.TrimSpace(spec.URL) != "" {
			return spec.URL, nil
		}
	}

	return r.randomThumbnail(), nil
}

func (r *Registry) randomThumbnail() string {
	if len(r.thumbnails) == 0 {
		return ""
	}
	return r.thumbnails[r.pick(len(r.thumbnails))]
}

// snapshot reads the current content of slug so a failed index save can put it back.
func (r *Registry) snapshot(ctx context.Context, op, slug string) ([]byte, bool, error) {
	content, err := r.blobs.Get(ctx, slug)
	if err != nil {
		if eris.Is(err, ErrBlobNotFound) {
			return nil, false, nil
		}
		return nil, false, r.persistenceFailure(op, logrus.Fields{"slug": slug}, eris.Wrapf(err, "reading content for %s", slug))
	}
	return content, true, nil
}

func (r *Registry) restore(ctx context.Context, slug string, content []byte, existed bool) {
	var err error
	if existed {
		err = r.blobs.Put(ctx, slug, content)
	} else {
		err = r.blobs.Delete(ctx, slug)
		if eris.Is(err, ErrBlobNotFound) {
			err = nil
		}
	}
	if err != nil {
		r.logWarn(logrus.Fields{"slug": slug}, err, "restoring content after failed index save")
	}
}

func (r *Registry) discardUpload(ctx context.Context, ref string) {
	if r.uploads == nil || ref == "" {
		return
	}
	if err := r.uploads.Remove(ctx, ref); err != nil {
		r.logWarn(logrus.Fields{"thumbnail": ref}, err, "removing uploaded thumbnail")
	}
}

func (r *Registry) load(ctx context.Context, op string) ([]Page, error) {
	list, err := r.index.Load(ctx)
	if err != nil {
		return nil, r.persistenceFailure(op, nil, eris.Wrap(err, "loading page index"))
	}
	return list, nil
}

func (r *Registry) save(ctx context.Context, op string, list []Page) error {
	if err := r.index.Save(ctx, list); err != nil {
		return r.persistenceFailure(op, nil, eris.Wrap(err, "saving page index"))
	}
	return nil
}

func (r *Registry) publish(ctx context.Context, topic string, event PageEvent) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, topic, event); err != nil {
		r.logWarn(logrus.Fields{"topic": topic, "slug": event.Slug}, err, "publishing page event")
	}
}

func (r *Registry) persistenceFailure(op string, fields logrus.Fields, err error) error {
	r.recordError(fields, err, op+" failed")
	return &PersistenceError{Op: op, Err: err}
}

func (r *Registry) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if r.logger != nil {
		entry := r.logger.WithField("component", "pages.registry").WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if r.sentryHub != nil {
		r.sentryHub.CaptureException(err)
	}
}

func (r *Registry) logWarn(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}
	r.logger.WithField("component", "pages.registry").WithField("error", err.Error()).WithFields(fields).Warn(message)
}

func (r *Registry) logInfo(fields logrus.Fields, message string) {
	if r.logger == nil {
		return
	}
	r.logger.WithField("component", "pages.registry").WithFields(fields).Info(message)
}

func indexOf(list []Page, slug string) int {
	for i := range list {
		if list[i].Slug == slug {
			return i
		}
	}
	return -1
}
