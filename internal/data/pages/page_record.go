package pages

import (
	"strings"
	"time"

	domainpages "pagebin/app/internal/domain/pages"
)

// PageRecord is the SQLite row backing one index entry.
type PageRecord struct {
	ID         uint       `gorm:"primaryKey"`
	Position   int        `gorm:"not null;index:idx_pages_position"`
	Slug       string     `gorm:"size:255;uniqueIndex:idx_pages_slug;not null"`
	Name       string     `gorm:"size:1024;not null"`
	Created    time.Time  `gorm:"column:created_at;not null"`
	Updated    *time.Time `gorm:"column:updated_at"`
	Views      int64      `gorm:"not null"`
	LastViewed *time.Time `gorm:"column:last_viewed_at"`
	Thumbnail  string     `gorm:"size:2048"`
	Excerpt    string     `gorm:"type:text"`
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "pages"
}

func toRecord(page domainpages.Page, position int) PageRecord {
	return PageRecord{
		Position:   position,
		Slug:       strings.TrimSpace(page.Slug),
		Name:       page.Name,
		Created:    page.CreatedAt.UTC(),
		Updated:    utcPointer(page.UpdatedAt),
		Views:      page.Views,
		LastViewed: utcPointer(page.LastViewedAt),
		Thumbnail:  page.Thumbnail,
		Excerpt:    page.Excerpt,
	}
}

func toDomainPage(record PageRecord) domainpages.Page {
	return domainpages.Page{
		Name:         record.Name,
		Slug:         strings.TrimSpace(record.Slug),
		CreatedAt:    record.Created.UTC(),
		UpdatedAt:    utcPointer(record.Updated),
		Views:        record.Views,
		LastViewedAt: utcPointer(record.LastViewed),
		Thumbnail:    record.Thumbnail,
		Excerpt:      record.Excerpt,
	}
}

func utcPointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
