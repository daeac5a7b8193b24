package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"gorm.io/gorm"
)

type ExtractionLog interface {
	Create(ctx context.Context, entry model.ExtractionLog) (*model.ExtractionLog, error)
	ListByJob(ctx context.Context, jobID uuid.UUID, limit int) (model.ExtractionLogList, error)
}

type extractionLogStore struct {
	db *gorm.DB
}

func NewExtractionLogStore(db *gorm.DB) ExtractionLog {
	return &extractionLogStore{db: db}
}

func (e *extractionLogStore) Create(ctx context.Context, entry model.ExtractionLog) (*model.ExtractionLog, error) {
	if err := e.getDB(ctx).Omit("Voter").Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByJob returns the newest entries first with the linked voter row
// preloaded.
func (e *extractionLogStore) ListByJob(ctx context.Context, jobID uuid.UUID, limit int) (model.ExtractionLogList, error) {
	var entries model.ExtractionLogList
	tx := e.getDB(ctx).Preload("Voter").
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (e *extractionLogStore) getDB(ctx context.Context) *gorm.DB {
	return getDB(ctx, e.db)
}
