package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"gorm.io/gorm"
)

type ImportBatchRepository struct {
	db *gorm.DB
}

func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

func (r *ImportBatchRepository) Create(ctx context.Context, batch *domain.ImportBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *ImportBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportBatch, error) {
	var batch domain.ImportBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns import batches, newest first
func (r *ImportBatchRepository) List(ctx context.Context, page, pageSize int) ([]domain.ImportBatch, int64, error) {
	var batches []domain.ImportBatch
	var total int64

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	query := r.db.WithContext(ctx).Model(&domain.ImportBatch{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&batches).Error

	return batches, total, err
}
