package pages

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainpages "pagebin/app/internal/domain/pages"
)

const saveBatchSize = 200

// GormIndex persists the page index in a SQLite table.
type GormIndex struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewGormIndex constructs a Gorm-backed index store.
func NewGormIndex(db *gorm.DB, logger *logrus.Logger) (*GormIndex, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormIndex{db: db, logger: logger}, nil
}

var _ domainpages.IndexStore = (*GormIndex)(nil)

// Load returns every page in index order.
func (s *GormIndex) Load(ctx context.Context) ([]domainpages.Page, error) {
	var records []PageRecord

	if err := s.db.WithContext(ctx).Order("position ASC").Order("id ASC").Find(&records).Error; err != nil {
		s.logError(nil, err, "loading page index")
		return nil, eris.Wrap(err, "loading page index")
	}

	pages := make([]domainpages.Page, 0, len(records))
	for _, record := range records {
		pages = append(pages, toDomainPage(record))
	}

	return pages, nil
}

// Save replaces the stored index with pages inside a single transaction.
func (s *GormIndex) Save(ctx context.Context, pages []domainpages.Page) error {
	records := make([]PageRecord, 0, len(pages))
	for i, page := range pages {
		records = append(records, toRecord(page, i))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&PageRecord{}).Error; err != nil {
			return eris.Wrap(err, "clearing page index")
		}

		if len(records) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(&records, saveBatchSize).Error; err != nil {
			return eris.Wrap(err, "writing page index")
		}

		return nil
	})
	if err != nil {
		s.logError(logrus.Fields{"pages": len(records)}, err, "saving page index")
		return eris.Wrap(err, "saving page index")
	}

	return nil
}

func (s *GormIndex) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
