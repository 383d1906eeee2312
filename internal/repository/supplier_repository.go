package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"gorm.io/gorm"
)

// SupplierFilters contains all filter options for listing suppliers
type SupplierFilters struct {
	ProductKey    *string
	SupplierName  *string
	LinkageStatus *domain.LinkageStatus
	DMFRegistered *bool
	SearchQuery   *string
}

type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	var supplier domain.Supplier
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *SupplierRepository) Update(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

func (r *SupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Supplier{}, "id = ?", id).Error
}

func (r *SupplierRepository) List(ctx context.Context, page, pageSize int, filters *SupplierFilters) ([]domain.Supplier, int64, error) {
	var suppliers []domain.Supplier
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

	query := r.db.WithContext(ctx).Model(&domain.Supplier{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&suppliers).Error

	return suppliers, total, err
}

// ListByProductKey returns all price entries for a normalized product name,
// newest first so the per-supplier collapse can keep the first row it sees.
func (r *SupplierRepository) ListByProductKey(ctx context.Context, productKey string) ([]domain.Supplier, error) {
	var suppliers []domain.Supplier
	err := r.db.WithContext(ctx).
		Where("product_key = ?", productKey).
		Order("created_at DESC").
		Find(&suppliers).Error
	return suppliers, err
}

// CountByProductKey returns the number of price entries for a product
func (r *SupplierRepository) CountByProductKey(ctx context.Context, productKey string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Supplier{}).
		Where("product_key = ?", productKey).
		Count(&count).Error
	return count, err
}

// applyFilters applies all filter criteria to the query
func (r *SupplierRepository) applyFilters(query *gorm.DB, filters *SupplierFilters) *gorm.DB {
	if filters == nil {
		return query
	}

	if filters.ProductKey != nil {
		query = query.Where("product_key = ?", *filters.ProductKey)
	}

	if filters.SupplierName != nil {
		query = query.Where("supplier_name = ?", *filters.SupplierName)
	}

	if filters.LinkageStatus != nil {
		query = query.Where("linkage_status = ?", *filters.LinkageStatus)
	}

	if filters.DMFRegistered != nil {
		query = query.Where("dmf_registered = ?", *filters.DMFRegistered)
	}

	if filters.SearchQuery != nil && *filters.SearchQuery != "" {
		search := "%" + *filters.SearchQuery + "%"
		query = query.Where("product_name ILIKE ? OR supplier_name ILIKE ?", search, search)
	}

	return query
}
