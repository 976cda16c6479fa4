package pages

import (
	"io"
	"strings"
	"time"
)

// Page is a single entry in the page index.
type Page struct {
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	Views        int64      `json:"views"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty"`
	Thumbnail    string     `json:"thumbnail,omitempty"`
	Excerpt      string     `json:"excerpt,omitempty"`
}

// Document pairs a page with its stored content.
type Document struct {
	Page
	Content []byte
}

// ThumbnailOption selects how a page thumbnail is resolved.
type ThumbnailOption string

const (
	ThumbnailFile   ThumbnailOption = "file"
	ThumbnailURL    ThumbnailOption = "url"
	ThumbnailRandom ThumbnailOption = "random"
	ThumbnailKeep   ThumbnailOption = "keep"
)

// ParseThumbnailOption normalises user input. Unknown values map to the empty option.
func ParseThumbnailOption(raw string) ThumbnailOption {
	switch option := ThumbnailOption(strings.ToLower(strings.TrimSpace(raw))); option {
	case ThumbnailFile, ThumbnailURL, ThumbnailRandom, ThumbnailKeep:
		return option
	default:
		return ""
	}
}

// Upload is an image submitted alongside a page.
type Upload struct {
	Filename string
	Content  io.Reader
}

// ThumbnailSpec describes the requested thumbnail for a create or update.
type ThumbnailSpec struct {
	Option ThumbnailOption
	URL    string
	File   *Upload
}

// CreatePageRequest carries the validated input for a new page.
type CreatePageRequest struct {
	Name      string
	Content   string
	Thumbnail ThumbnailSpec
}

// Validate reports missing required fields.
func (r CreatePageRequest) Validate() error {
	return validateNameAndContent(r.Name, r.Content)
}

// UpdatePageRequest carries the validated input for an existing page.
type UpdatePageRequest struct {
	Slug      string
	Name      string
	Content   string
	Thumbnail ThumbnailSpec
}

// Validate reports missing required fields.
func (r UpdatePageRequest) Validate() error {
	if strings.TrimSpace(r.Slug) == "" {
		return &ValidationError{Field: "slug", Reason: "is required"}
	}
	return validateNameAndContent(r.Name, r.Content)
}

func validateNameAndContent(name, content string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if content == "" {
		return &ValidationError{Field: "content", Reason: "is required"}
	}
	return nil
}

// SortKey orders the results of List.
type SortKey string

const (
	SortTimeDesc  SortKey = "time-desc"
	SortTimeAsc   SortKey = "time-asc"
	SortViewsDesc SortKey = "views-desc"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
)

// SortKeys lists every supported ordering, default first.
var SortKeys = []SortKey{SortTimeDesc, SortTimeAsc, SortViewsDesc, SortNameAsc, SortNameDesc}

// ParseSortKey falls back to SortTimeDesc for empty or unknown input.
func ParseSortKey(raw string) SortKey {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range SortKeys {
		if key == known {
			return key
		}
	}
	return SortTimeDesc
}

// ListOptions filters and orders List results.
type ListOptions struct {
	Query string
	Sort  SortKey
}

// TopPage is a ranked entry in Stats.
type TopPage struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Views int64  `json:"views"`
}

// Stats aggregates the whole index.
type Stats struct {
	TotalPages   int       `json:"totalPages"`
	TotalViews   int64     `json:"totalViews"`
	RecentPages  int       `json:"recentPages"`
	TopPages     []TopPage `json:"topPages"`
	AverageViews float64   `json:"averageViews"`
	RecentViews  int64     `json:"recentViews"`
}

// ExportPayload is a downloadable snapshot of the index.
type ExportPayload struct {
	ExportedAt time.Time `json:"exportedAt"`
	Version    string    `json:"version"`
	TotalPages int       `json:"totalPages"`
	TotalViews int64     `json:"totalViews"`
	Pages      []Page    `json:"pages"`
}
