package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"gorm.io/gorm"
)

type StageHistoryRepository struct {
	db *gorm.DB
}

func NewStageHistoryRepository(db *gorm.DB) *StageHistoryRepository {
	return &StageHistoryRepository{db: db}
}

// Create records a new stage transition
func (r *StageHistoryRepository) Create(ctx context.Context, history *domain.StageHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// GetByOpportunityID returns all stage history for an opportunity, newest first
func (r *StageHistoryRepository) GetByOpportunityID(ctx context.Context, opportunityID uuid.UUID) ([]domain.StageHistory, error) {
	var history []domain.StageHistory
	err := r.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Order("changed_at DESC").
		Find(&history).Error
	return history, err
}

// GetLatestByOpportunityID returns the most recent stage change for an opportunity
func (r *StageHistoryRepository) GetLatestByOpportunityID(ctx context.Context, opportunityID uuid.UUID) (*domain.StageHistory, error) {
	var history domain.StageHistory
	err := r.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Order("changed_at DESC").
		First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// RecordTransition is a convenience method to create a stage history record
func (r *StageHistoryRepository) RecordTransition(
	ctx context.Context,
	opportunityID uuid.UUID,
	fromStage *domain.Stage,
	toStage domain.Stage,
	actorName string,
	comment string,
) error {
	history := &domain.StageHistory{
		OpportunityID: opportunityID,
		FromStage:     fromStage,
		ToStage:       toStage,
		ActorName:     actorName,
		Comment:       comment,
		ChangedAt:     time.Now().UTC(),
	}
	return r.Create(ctx, history)
}

// CountTransitionsToStage returns the count of transitions into a stage within a date range
func (r *StageHistoryRepository) CountTransitionsToStage(ctx context.Context, stage domain.Stage, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.StageHistory{}).
		Where("to_stage = ?", stage).
		Where("changed_at >= ? AND changed_at <= ?", from, to).
		Count(&count).Error
	return count, err
}

// DeleteByOpportunityID removes all history for an opportunity (used when it is deleted)
func (r *StageHistoryRepository) DeleteByOpportunityID(ctx context.Context, opportunityID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Delete(&domain.StageHistory{}).Error
}
