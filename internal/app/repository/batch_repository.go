package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
)

// BatchRepository defines the data access contract for upload batches.
type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
}

type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository returns a GORM-backed BatchRepository.
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *model.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}
