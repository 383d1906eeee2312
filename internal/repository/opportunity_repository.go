package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// OpportunityFilters contains all filter options for listing opportunities
type OpportunityFilters struct {
	Stage         *domain.Stage
	Segment       *domain.Segment
	OwnerName     *string
	AccountName   *string
	ProductKey    *string
	MinQuantity   *float64
	MaxQuantity   *float64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	SearchQuery   *string
}

// OpportunitySortOption represents available sort options
type OpportunitySortOption string

const (
	OpportunitySortByCreatedDesc  OpportunitySortOption = "created_desc"
	OpportunitySortByCreatedAsc   OpportunitySortOption = "created_asc"
	OpportunitySortBySavingDesc   OpportunitySortOption = "saving_desc"
	OpportunitySortBySavingAsc    OpportunitySortOption = "saving_asc"
	OpportunitySortByQuantityDesc OpportunitySortOption = "quantity_desc"
	OpportunitySortByQuantityAsc  OpportunitySortOption = "quantity_asc"
	OpportunitySortByStageDesc    OpportunitySortOption = "stage_desc"
	OpportunitySortByStageAsc     OpportunitySortOption = "stage_asc"
)

type OpportunityRepository struct {
	db *gorm.DB
}

func NewOpportunityRepository(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

func (r *OpportunityRepository) Create(ctx context.Context, opp *domain.Opportunity) error {
	return r.db.WithContext(ctx).Create(opp).Error
}

func (r *OpportunityRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&opp).Error
	if err != nil {
		return nil, err
	}
	return &opp, nil
}

func (r *OpportunityRepository) Update(ctx context.Context, opp *domain.Opportunity) error {
	return r.db.WithContext(ctx).Save(opp).Error
}

func (r *OpportunityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Opportunity{}, "id = ?", id).Error
}

func (r *OpportunityRepository) List(ctx context.Context, page, pageSize int, filters *OpportunityFilters, sortBy OpportunitySortOption) ([]domain.Opportunity, int64, error) {
	var opps []domain.Opportunity
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

	query := r.db.WithContext(ctx).Model(&domain.Opportunity{})
	query = r.applyFilters(query, filters)

	// Count total matching records
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.applySorting(query, sortBy)

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Find(&opps).Error

	return opps, total, err
}

// StageSummary holds aggregated figures for one pipeline stage
type StageSummary struct {
	Stage         domain.Stage
	Count         int64
	TotalSaving   float64
	TotalQuantity float64
}

// GetStageSummaries returns per-stage counts and totals for the pipeline view
func (r *OpportunityRepository) GetStageSummaries(ctx context.Context) ([]StageSummary, error) {
	var results []StageSummary
	err := r.db.WithContext(ctx).Model(&domain.Opportunity{}).
		Select("stage, COUNT(*) as count, COALESCE(SUM(total_saving), 0) as total_saving, COALESCE(SUM(quantity_kg), 0) as total_quantity").
		Group("stage").
		Scan(&results).Error
	return results, err
}

// CountByStage returns the number of opportunities in a stage
func (r *OpportunityRepository) CountByStage(ctx context.Context, stage domain.Stage) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Opportunity{}).
		Where("stage = ?", stage).
		Count(&count).Error
	return count, err
}

// SumSaving returns the total saving over opportunities in the given stages.
// Rows without savings data contribute nothing to the sum.
func (r *OpportunityRepository) SumSaving(ctx context.Context, stages []domain.Stage) (float64, error) {
	var total float64
	query := r.db.WithContext(ctx).Model(&domain.Opportunity{})
	if len(stages) > 0 {
		query = query.Where("stage IN ?", stages)
	}
	err := query.Select("COALESCE(SUM(total_saving), 0)").Scan(&total).Error
	return total, err
}

// Count returns the total number of opportunities
func (r *OpportunityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Opportunity{}).Count(&count).Error
	return count, err
}

// applyFilters applies all filter criteria to the query
func (r *OpportunityRepository) applyFilters(query *gorm.DB, filters *OpportunityFilters) *gorm.DB {
	if filters == nil {
		return query
	}

	if filters.Stage != nil {
		query = query.Where("stage = ?", *filters.Stage)
	}

	if filters.Segment != nil {
		query = query.Where("segment = ?", *filters.Segment)
	}

	if filters.OwnerName != nil {
		query = query.Where("owner_name = ?", *filters.OwnerName)
	}

	if filters.AccountName != nil {
		query = query.Where("account_name = ?", *filters.AccountName)
	}

	if filters.ProductKey != nil {
		query = query.Where("product_key = ?", *filters.ProductKey)
	}

	if filters.MinQuantity != nil {
		query = query.Where("quantity_kg >= ?", *filters.MinQuantity)
	}

	if filters.MaxQuantity != nil {
		query = query.Where("quantity_kg <= ?", *filters.MaxQuantity)
	}

	if filters.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filters.CreatedAfter)
	}

	if filters.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filters.CreatedBefore)
	}

	if filters.SearchQuery != nil && *filters.SearchQuery != "" {
		search := "%" + *filters.SearchQuery + "%"
		query = query.Where("account_name ILIKE ? OR product_name ILIKE ? OR owner_name ILIKE ?", search, search, search)
	}

	return query
}

// applySorting applies the sort option to the query
func (r *OpportunityRepository) applySorting(query *gorm.DB, sortBy OpportunitySortOption) *gorm.DB {
	switch sortBy {
	case OpportunitySortByCreatedAsc:
		return query.Order("created_at ASC")
	case OpportunitySortBySavingDesc:
		return query.Order("total_saving DESC NULLS LAST")
	case OpportunitySortBySavingAsc:
		return query.Order("total_saving ASC NULLS LAST")
	case OpportunitySortByQuantityDesc:
		return query.Order("quantity_kg DESC")
	case OpportunitySortByQuantityAsc:
		return query.Order("quantity_kg ASC")
	case OpportunitySortByStageDesc:
		return query.Order("stage_progress DESC, created_at DESC")
	case OpportunitySortByStageAsc:
		return query.Order("stage_progress ASC, created_at DESC")
	default:
		return query.Order("created_at DESC")
	}
}
