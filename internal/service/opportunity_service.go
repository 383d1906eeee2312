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

type OpportunityService struct {
	oppRepo      *repository.OpportunityRepository
	supplierRepo *repository.SupplierRepository
	historyRepo  *repository.StageHistoryRepository
	logger       *zap.Logger
	db           *gorm.DB
}

func NewOpportunityService(
	oppRepo *repository.OpportunityRepository,
	supplierRepo *repository.SupplierRepository,
	historyRepo *repository.StageHistoryRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *OpportunityService {
	return &OpportunityService{
		oppRepo:      oppRepo,
		supplierRepo: supplierRepo,
		historyRepo:  historyRepo,
		logger:       logger,
		db:           db,
	}
}

func (s *OpportunityService) Create(ctx context.Context, req *domain.CreateOpportunityRequest) (*domain.OpportunityDTO, error) {
	if req.Segment != nil && !req.Segment.IsValid() {
		return nil, fmt.Errorf("%w: unknown segment %q", ErrInvalidInput, *req.Segment)
	}

	now := time.Now().UTC()
	opp := &domain.Opportunity{
		AccountName:    req.AccountName,
		ProductName:    req.ProductName,
		ProductKey:     normalize.ProductKey(req.ProductName),
		Segment:        req.Segment,
		QuantityKg:     req.QuantityKg,
		OwnerName:      req.OwnerName,
		Stage:          domain.StageMarketResearch,
		StageProgress:  domain.StageMarketResearch.Progress(),
		StageUpdatedAt: &now,
		Note:           req.Note,
	}

	if err := applyPricing(opp, req.Purchase, req.Estimate, req.QuantityKg); err != nil {
		return nil, err
	}

	if err := s.oppRepo.Create(ctx, opp); err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	if err := s.historyRepo.RecordTransition(ctx, opp.ID, nil, opp.Stage, auth.ActorName(ctx), "Opportunity created"); err != nil {
		s.logger.Warn("failed to record initial stage history", zap.Error(err))
	}

	count, _ := s.supplierRepo.CountByProductKey(ctx, opp.ProductKey)
	dto := mapper.ToOpportunityDTO(opp, count)
	return &dto, nil
}

func (s *OpportunityService) GetByID(ctx context.Context, id uuid.UUID) (*domain.OpportunityDTO, error) {
	opp, err := s.oppRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	count, _ := s.supplierRepo.CountByProductKey(ctx, opp.ProductKey)
	dto := mapper.ToOpportunityDTO(opp, count)
	return &dto, nil
}

// Update replaces the descriptive and pricing fields of an opportunity.
// The stage is never touched here; stage moves go through ChangeStage.
func (s *OpportunityService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateOpportunityRequest) (*domain.OpportunityDTO, error) {
	if req.Segment != nil && !req.Segment.IsValid() {
		return nil, fmt.Errorf("%w: unknown segment %q", ErrInvalidInput, *req.Segment)
	}

	opp, err := s.oppRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	opp.AccountName = req.AccountName
	opp.ProductName = req.ProductName
	opp.ProductKey = normalize.ProductKey(req.ProductName)
	opp.Segment = req.Segment
	opp.QuantityKg = req.QuantityKg
	opp.OwnerName = req.OwnerName
	opp.Note = req.Note

	if err := applyPricing(opp, req.Purchase, req.Estimate, req.QuantityKg); err != nil {
		return nil, err
	}

	if err := s.oppRepo.Update(ctx, opp); err != nil {
		return nil, fmt.Errorf("failed to update opportunity: %w", err)
	}

	count, _ := s.supplierRepo.CountByProductKey(ctx, opp.ProductKey)
	dto := mapper.ToOpportunityDTO(opp, count)
	return &dto, nil
}

func (s *OpportunityService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.oppRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get opportunity: %w", err)
	}

	// Delete stage history first
	if err := s.historyRepo.DeleteByOpportunityID(ctx, id); err != nil {
		s.logger.Warn("failed to delete stage history", zap.Error(err))
	}

	if err := s.oppRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", err)
	}

	return nil
}

func (s *OpportunityService) List(ctx context.Context, page, pageSize int, filters *repository.OpportunityFilters, sortBy repository.OpportunitySortOption) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	opps, total, err := s.oppRepo.List(ctx, page, pageSize, filters, sortBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}

	dtos := make([]domain.OpportunityDTO, len(opps))
	for i := range opps {
		count, _ := s.supplierRepo.CountByProductKey(ctx, opps[i].ProductKey)
		dtos[i] = mapper.ToOpportunityDTO(&opps[i], count)
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

// ChangeStage moves an opportunity to a new pipeline stage.
//
// Moving to the current stage is a no-op and records no history. Stages at
// or after SOURCING_COMPLETED require at least one supplier price entry for
// the product; LOST and ON_HOLD are reachable from any stage.
func (s *OpportunityService) ChangeStage(ctx context.Context, id uuid.UUID, req *domain.ChangeStageRequest) (*domain.OpportunityDTO, error) {
	if !req.Stage.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, req.Stage)
	}

	opp, err := s.oppRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	supplierCount, err := s.supplierRepo.CountByProductKey(ctx, opp.ProductKey)
	if err != nil {
		return nil, fmt.Errorf("failed to count suppliers: %w", err)
	}

	if opp.Stage == req.Stage {
		dto := mapper.ToOpportunityDTO(opp, supplierCount)
		return &dto, nil
	}

	if req.Stage.RequiresSupplier() && supplierCount == 0 {
		return nil, ErrSupplierRequired
	}

	oldStage := opp.Stage
	now := time.Now().UTC()
	actor := auth.ActorName(ctx)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Opportunity{}).
			Where("id = ? AND stage = ?", opp.ID, oldStage).
			Updates(map[string]interface{}{
				"stage":            req.Stage,
				"stage_progress":   req.Stage.Progress(),
				"stage_updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConflict
		}

		history := &domain.StageHistory{
			OpportunityID: opp.ID,
			FromStage:     &oldStage,
			ToStage:       req.Stage,
			ActorName:     actor,
			Comment:       req.Comment,
			ChangedAt:     now,
		}
		return tx.Create(history).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change stage: %w", err)
	}

	metrics.StageTransitionsTotal.WithLabelValues("manual", string(req.Stage)).Inc()

	opp.Stage = req.Stage
	opp.StageProgress = req.Stage.Progress()
	opp.StageUpdatedAt = &now

	s.logger.Info("opportunity stage changed",
		zap.String("opportunity_id", opp.ID.String()),
		zap.String("from_stage", string(oldStage)),
		zap.String("to_stage", string(req.Stage)),
		zap.String("actor", actor),
	)

	dto := mapper.ToOpportunityDTO(opp, supplierCount)
	return &dto, nil
}

// GetStageHistory returns the transition log of an opportunity, newest first
func (s *OpportunityService) GetStageHistory(ctx context.Context, id uuid.UUID) ([]domain.StageHistoryDTO, error) {
	if _, err := s.oppRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}

	history, err := s.historyRepo.GetByOpportunityID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage history: %w", err)
	}

	dtos := make([]domain.StageHistoryDTO, len(history))
	for i := range history {
		dtos[i] = mapper.ToStageHistoryDTO(&history[i])
	}
	return dtos, nil
}

// GetPipelineOverview returns one bucket per stage in pipeline order,
// including empty stages and the LOST and ON_HOLD side states.
func (s *OpportunityService) GetPipelineOverview(ctx context.Context) ([]domain.PipelineStageDTO, error) {
	summaries, err := s.oppRepo.GetStageSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage summaries: %w", err)
	}

	byStage := make(map[domain.Stage]repository.StageSummary, len(summaries))
	for _, summary := range summaries {
		byStage[summary.Stage] = summary
	}

	stages := append([]domain.Stage{}, domain.ForwardStages...)
	stages = append(stages, domain.StageLost, domain.StageOnHold)

	overview := make([]domain.PipelineStageDTO, len(stages))
	for i, stage := range stages {
		summary := byStage[stage]
		overview[i] = domain.PipelineStageDTO{
			Stage:         stage,
			Progress:      stage.Progress(),
			Count:         summary.Count,
			TotalSaving:   summary.TotalSaving,
			TotalQuantity: summary.TotalQuantity,
		}
	}
	return overview, nil
}

// GetDashboardSummary returns the aggregate counters for the landing page
func (s *OpportunityService) GetDashboardSummary(ctx context.Context) (*domain.DashboardSummaryDTO, error) {
	total, err := s.oppRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count opportunities: %w", err)
	}

	won, err := s.oppRepo.CountByStage(ctx, domain.StageWon)
	if err != nil {
		return nil, fmt.Errorf("failed to count won opportunities: %w", err)
	}
	lost, err := s.oppRepo.CountByStage(ctx, domain.StageLost)
	if err != nil {
		return nil, fmt.Errorf("failed to count lost opportunities: %w", err)
	}
	onHold, err := s.oppRepo.CountByStage(ctx, domain.StageOnHold)
	if err != nil {
		return nil, fmt.Errorf("failed to count on-hold opportunities: %w", err)
	}

	totalSaving, err := s.oppRepo.SumSaving(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sum savings: %w", err)
	}
	wonSaving, err := s.oppRepo.SumSaving(ctx, []domain.Stage{domain.StageWon})
	if err != nil {
		return nil, fmt.Errorf("failed to sum won savings: %w", err)
	}

	return &domain.DashboardSummaryDTO{
		TotalOpportunities: total,
		ActiveCount:        total - won - lost - onHold,
		WonCount:           won,
		LostCount:          lost,
		OnHoldCount:        onHold,
		TotalSaving:        totalSaving,
		WonSaving:          wonSaving,
	}, nil
}

// applyPricing derives the localized price blocks and savings for an
// opportunity and writes them onto the model. When the purchase block is
// absent every purchase and savings column is cleared to NULL, never zero.
func applyPricing(opp *domain.Opportunity, purchase *domain.PriceBlockRequest, estimate domain.PriceBlockRequest, quantity float64) error {
	var purchaseInput *pricing.BlockInput
	if purchase != nil {
		purchaseInput = &pricing.BlockInput{
			Currency:         purchase.Currency,
			UnitPrice:        purchase.UnitPrice,
			FxRate:           purchase.FxRate,
			TariffRatePct:    purchase.TariffRate,
			ExtraCostRatePct: purchase.ExtraCostRate,
		}
	}
	estimateInput := pricing.BlockInput{
		Currency:         estimate.Currency,
		UnitPrice:        estimate.UnitPrice,
		FxRate:           estimate.FxRate,
		TariffRatePct:    estimate.TariffRate,
		ExtraCostRatePct: estimate.ExtraCostRate,
	}

	if err := pricing.ValidateBlock(estimateInput); err != nil {
		return fmt.Errorf("%w: estimate %s", ErrInvalidInput, err)
	}
	if purchaseInput != nil {
		if err := pricing.ValidateBlock(*purchaseInput); err != nil {
			return fmt.Errorf("%w: purchase %s", ErrInvalidInput, err)
		}
	}

	result := pricing.Compute(purchaseInput, estimateInput, quantity)

	opp.EstimateCurrency = estimate.Currency
	opp.EstimateUnitPrice = estimate.UnitPrice
	opp.EstimateFxRate = estimateInput.EffectiveFxRate()
	opp.EstimateTariffRate = estimate.TariffRate
	opp.EstimateExtraCostRate = estimate.ExtraCostRate
	opp.EstimateLocalUnitPrice = result.Estimate.LocalUnitPrice
	opp.EstimateLocalTotal = result.Estimate.LocalTotal

	if purchase == nil {
		opp.PurchaseCurrency = nil
		opp.PurchaseUnitPrice = nil
		opp.PurchaseFxRate = nil
		opp.PurchaseTariffRate = nil
		opp.PurchaseExtraCostRate = nil
		opp.PurchaseLocalUnitPrice = nil
		opp.PurchaseLocalTotal = nil
		opp.SavingPerUnit = nil
		opp.TotalSaving = nil
		opp.SavingRate = nil
		return nil
	}

	fx := purchaseInput.EffectiveFxRate()
	opp.PurchaseCurrency = &purchase.Currency
	opp.PurchaseUnitPrice = &purchase.UnitPrice
	opp.PurchaseFxRate = &fx
	opp.PurchaseTariffRate = &purchase.TariffRate
	opp.PurchaseExtraCostRate = &purchase.ExtraCostRate
	opp.PurchaseLocalUnitPrice = &result.Purchase.LocalUnitPrice
	opp.PurchaseLocalTotal = &result.Purchase.LocalTotal
	opp.SavingPerUnit = &result.Savings.PerUnit
	opp.TotalSaving = &result.Savings.Total
	opp.SavingRate = &result.Savings.Rate
	return nil
}
