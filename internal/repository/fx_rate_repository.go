package repository

import (
	"context"

	"github.com/pharmsource/sourcing-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FxRateRepository struct {
	db *gorm.DB
}

func NewFxRateRepository(db *gorm.DB) *FxRateRepository {
	return &FxRateRepository{db: db}
}

// Upsert inserts or refreshes a reference rate keyed by currency
func (r *FxRateRepository) Upsert(ctx context.Context, rate *domain.FxRate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "synced_at"}),
		}).
		Create(rate).Error
}

// GetByCurrency returns the reference rate for one currency
func (r *FxRateRepository) GetByCurrency(ctx context.Context, currency string) (*domain.FxRate, error) {
	var rate domain.FxRate
	err := r.db.WithContext(ctx).Where("currency = ?", currency).First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// List returns all reference rates ordered by currency code
func (r *FxRateRepository) List(ctx context.Context) ([]domain.FxRate, error) {
	var rates []domain.FxRate
	err := r.db.WithContext(ctx).Order("currency ASC").Find(&rates).Error
	return rates, err
}
