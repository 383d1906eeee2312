package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/auth"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/mapper"
	"github.com/pharmsource/sourcing-api/internal/metrics"
	"github.com/pharmsource/sourcing-api/internal/normalize"
	"github.com/pharmsource/sourcing-api/internal/pricing"
	"github.com/pharmsource/sourcing-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stages the upward trigger advances from when a product gains its
// first supplier price entry.
var preSourcingStages = []domain.Stage{
	domain.StageMarketResearch,
	domain.StageSourcingRequest,
}

type SupplierService struct {
	supplierRepo *repository.SupplierRepository
	oppRepo      *repository.OpportunityRepository
	logger       *zap.Logger
	db           *gorm.DB
}

func NewSupplierService(
	supplierRepo *repository.SupplierRepository,
	oppRepo *repository.OpportunityRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *SupplierService {
	return &SupplierService{
		supplierRepo: supplierRepo,
		oppRepo:      oppRepo,
		logger:       logger,
		db:           db,
	}
}

// Create adds a supplier price entry and advances any opportunities for the
// product that were waiting on sourcing. The insert and the stage moves
// commit atomically; the response names every opportunity the roster change
// advanced.
func (s *SupplierService) Create(ctx context.Context, req *domain.CreateSupplierRequest) (*domain.CreateSupplierResponse, error) {
	linkage := req.LinkageStatus
	if linkage == "" {
		linkage = domain.LinkagePreparing
	}
	if !linkage.IsValid() {
		return nil, fmt.Errorf("%w: unknown linkage status %q", ErrInvalidInput, linkage)
	}
	if err := pricing.ValidateBlock(pricing.BlockInput{Currency: req.Currency, FxRate: req.FxRate}); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	actor := auth.ActorName(ctx)
	supplier := &domain.Supplier{
		ProductName:   req.ProductName,
		ProductKey:    normalize.ProductKey(req.ProductName),
		SupplierName:  req.SupplierName,
		EnteredBy:     actor,
		Currency:      req.Currency,
		UnitPrice:     req.UnitPrice,
		TariffRate:    req.TariffRate,
		ExtraCostRate: req.ExtraCostRate,
		DMFRegistered: req.DMFRegistered,
		LinkageStatus: linkage,
		Note:          req.Note,
	}
	applySupplierPricing(supplier, req.FxRate)

	var advanced []uuid.UUID
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(supplier).Error; err != nil {
			return err
		}
		var rosterCount int64
		if err := tx.Model(&domain.Supplier{}).Where("product_key = ?", supplier.ProductKey).Count(&rosterCount).Error; err != nil {
			return err
		}
		ids, err := s.advanceWaitingOpportunities(tx, supplier.ProductKey, actor, rosterCount)
		advanced = ids
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	return &domain.CreateSupplierResponse{
		Supplier:               mapper.ToSupplierDTO(supplier),
		AdvancedOpportunityIDs: advanced,
	}, nil
}

func (s *SupplierService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SupplierDTO, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	dto := mapper.ToSupplierDTO(supplier)
	return &dto, nil
}

// Update replaces the pricing and status fields of a price entry. The
// product association is immutable; a mislinked entry is deleted and
// re-entered instead.
func (s *SupplierService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateSupplierRequest) (*domain.SupplierDTO, error) {
	if req.LinkageStatus != "" && !req.LinkageStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown linkage status %q", ErrInvalidInput, req.LinkageStatus)
	}
	if err := pricing.ValidateBlock(pricing.BlockInput{Currency: req.Currency, FxRate: req.FxRate}); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	supplier, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	supplier.SupplierName = req.SupplierName
	supplier.Currency = req.Currency
	supplier.UnitPrice = req.UnitPrice
	supplier.TariffRate = req.TariffRate
	supplier.ExtraCostRate = req.ExtraCostRate
	supplier.DMFRegistered = req.DMFRegistered
	if req.LinkageStatus != "" {
		supplier.LinkageStatus = req.LinkageStatus
	}
	supplier.Note = req.Note
	applySupplierPricing(supplier, req.FxRate)

	if err := s.supplierRepo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}

	dto := mapper.ToSupplierDTO(supplier)
	return &dto, nil
}

// Delete removes a price entry. When it was the last one for its product,
// opportunities that had advanced past sourcing fall back to
// SOURCING_REQUEST in the same transaction; the response names every
// opportunity that was rolled back.
func (s *SupplierService) Delete(ctx context.Context, id uuid.UUID) (*domain.SupplierRemovalResponse, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	actor := auth.ActorName(ctx)
	var rolledBack []uuid.UUID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.Supplier{}, "id = ?", id).Error; err != nil {
			return err
		}
		ids, err := s.rollbackIfRosterEmpty(tx, supplier.ProductKey, actor)
		rolledBack = ids
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete supplier: %w", err)
	}
	return &domain.SupplierRemovalResponse{
		Deleted:                  1,
		RollbackOccurred:         len(rolledBack) > 0,
		RolledBackOpportunityIDs: rolledBack,
	}, nil
}

// DeleteByName removes every price entry of one supplier for a product
func (s *SupplierService) DeleteByName(ctx context.Context, req *domain.DeleteSupplierByNameRequest) (*domain.SupplierRemovalResponse, error) {
	productKey := normalize.ProductKey(req.ProductName)
	actor := auth.ActorName(ctx)

	var removed int64
	var rolledBack []uuid.UUID
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("product_key = ? AND supplier_name = ?", productKey, req.SupplierName).
			Delete(&domain.Supplier{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		if removed == 0 {
			return ErrNotFound
		}
		ids, err := s.rollbackIfRosterEmpty(tx, productKey, actor)
		rolledBack = ids
		return err
	})
	if err != nil {
		return nil, err
	}
	return &domain.SupplierRemovalResponse{
		Deleted:                  removed,
		RollbackOccurred:         len(rolledBack) > 0,
		RolledBackOpportunityIDs: rolledBack,
	}, nil
}

func (s *SupplierService) List(ctx context.Context, page, pageSize int, filters *repository.SupplierFilters) (*domain.PaginatedResponse, error) {
	suppliers, total, err := s.supplierRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	dtos := make([]domain.SupplierDTO, len(suppliers))
	for i := range suppliers {
		dtos[i] = mapper.ToSupplierDTO(&suppliers[i])
	}

	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ListByProduct returns the supplier roster for a product, collapsed to the
// most recent price entry per supplier name.
func (s *SupplierService) ListByProduct(ctx context.Context, productName string) ([]domain.SupplierDTO, error) {
	productKey := normalize.ProductKey(productName)
	suppliers, err := s.supplierRepo.ListByProductKey(ctx, productKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	seen := make(map[string]bool, len(suppliers))
	dtos := make([]domain.SupplierDTO, 0, len(suppliers))
	for i := range suppliers {
		if seen[suppliers[i].SupplierName] {
			continue
		}
		seen[suppliers[i].SupplierName] = true
		dtos = append(dtos, mapper.ToSupplierDTO(&suppliers[i]))
	}
	return dtos, nil
}

// EnforceConsistency walks every opportunity in a supplier-requiring stage
// and moves back any whose product has lost all price entries. Returns the
// number of opportunities it had to fix. The nightly sweep calls this to
// catch drift no trigger saw, such as rows changed by hand in the database.
func (s *SupplierService) EnforceConsistency(ctx context.Context) (int, error) {
	fixed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var keys []string
		err := tx.Model(&domain.Opportunity{}).
			Where("stage IN ?", supplierRequiringStages()).
			Distinct("product_key").
			Pluck("product_key", &keys).Error
		if err != nil {
			return err
		}

		for _, key := range keys {
			var count int64
			if err := tx.Model(&domain.Supplier{}).Where("product_key = ?", key).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			ids, err := s.rollbackOpportunities(tx, key, "system")
			if err != nil {
				return err
			}
			fixed += len(ids)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("consistency sweep failed: %w", err)
	}

	if fixed > 0 {
		metrics.ConsistencySweepRewritesTotal.Add(float64(fixed))
		s.logger.Warn("consistency sweep moved opportunities back", zap.Int("fixed", fixed))
	}
	return fixed, nil
}

// advanceWaitingOpportunities moves opportunities still in the research or
// request stages to SOURCING_COMPLETED now that the product has a supplier.
// Each history row notes the roster size that triggered the move. Returns
// the ids of the opportunities it advanced.
func (s *SupplierService) advanceWaitingOpportunities(tx *gorm.DB, productKey, actor string, rosterCount int64) ([]uuid.UUID, error) {
	var opps []domain.Opportunity
	err := tx.Where("product_key = ? AND stage IN ?", productKey, preSourcingStages).
		Find(&opps).Error
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var advanced []uuid.UUID
	for i := range opps {
		opp := &opps[i]
		fromStage := opp.Stage

		result := tx.Model(&domain.Opportunity{}).
			Where("id = ? AND stage = ?", opp.ID, fromStage).
			Updates(map[string]interface{}{
				"stage":            domain.StageSourcingCompleted,
				"stage_progress":   domain.StageSourcingCompleted.Progress(),
				"stage_updated_at": now,
			})
		if result.Error != nil {
			return advanced, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}

		history := &domain.StageHistory{
			OpportunityID: opp.ID,
			FromStage:     &fromStage,
			ToStage:       domain.StageSourcingCompleted,
			ActorName:     actor,
			Comment:       fmt.Sprintf("Supplier added for product (%d on roster)", rosterCount),
			ChangedAt:     now,
		}
		if err := tx.Create(history).Error; err != nil {
			return advanced, err
		}
		metrics.StageTransitionsTotal.WithLabelValues("supplier_added", string(domain.StageSourcingCompleted)).Inc()
		advanced = append(advanced, opp.ID)
	}
	return advanced, nil
}

// rollbackIfRosterEmpty re-counts the roster inside the caller's transaction
// and rolls back affected opportunities when it reached zero. Returns the
// ids of the opportunities the rollback moved.
func (s *SupplierService) rollbackIfRosterEmpty(tx *gorm.DB, productKey, actor string) ([]uuid.UUID, error) {
	var count int64
	if err := tx.Model(&domain.Supplier{}).Where("product_key = ?", productKey).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	return s.rollbackOpportunities(tx, productKey, actor)
}

// rollbackOpportunities moves every opportunity of a product that sits at or
// past SOURCING_COMPLETED back to SOURCING_REQUEST, one history row each.
func (s *SupplierService) rollbackOpportunities(tx *gorm.DB, productKey, actor string) ([]uuid.UUID, error) {
	var opps []domain.Opportunity
	err := tx.Where("product_key = ? AND stage IN ?", productKey, supplierRequiringStages()).
		Find(&opps).Error
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var moved []uuid.UUID
	for i := range opps {
		opp := &opps[i]
		fromStage := opp.Stage

		result := tx.Model(&domain.Opportunity{}).
			Where("id = ? AND stage = ?", opp.ID, fromStage).
			Updates(map[string]interface{}{
				"stage":            domain.StageSourcingRequest,
				"stage_progress":   domain.StageSourcingRequest.Progress(),
				"stage_updated_at": now,
			})
		if result.Error != nil {
			return moved, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}

		history := &domain.StageHistory{
			OpportunityID: opp.ID,
			FromStage:     &fromStage,
			ToStage:       domain.StageSourcingRequest,
			ActorName:     actor,
			Comment:       "Last supplier removed for product",
			ChangedAt:     now,
		}
		if err := tx.Create(history).Error; err != nil {
			return moved, err
		}
		metrics.StageTransitionsTotal.WithLabelValues("supplier_removed", string(domain.StageSourcingRequest)).Inc()
		moved = append(moved, opp.ID)
	}
	return moved, nil
}

// supplierRequiringStages lists the forward stages at or past
// SOURCING_COMPLETED. LOST and ON_HOLD are never rolled back.
func supplierRequiringStages() []domain.Stage {
	stages := make([]domain.Stage, 0, len(domain.ForwardStages))
	for _, stage := range domain.ForwardStages {
		if stage.RequiresSupplier() {
			stages = append(stages, stage)
		}
	}
	return stages
}

// applySupplierPricing derives the localized unit price for a price entry.
// KRW entries always store an FX rate of 1.
func applySupplierPricing(supplier *domain.Supplier, fxRate float64) {
	input := pricing.BlockInput{
		Currency:         supplier.Currency,
		UnitPrice:        supplier.UnitPrice,
		FxRate:           fxRate,
		TariffRatePct:    supplier.TariffRate,
		ExtraCostRatePct: supplier.ExtraCostRate,
	}
	supplier.FxRate = input.EffectiveFxRate()
	supplier.LocalUnitPrice = pricing.LocalUnitPrice(input)
}
