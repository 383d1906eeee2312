package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/auth"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/mapper"
	"github.com/pharmsource/sourcing-api/internal/metrics"
	"github.com/pharmsource/sourcing-api/internal/normalize"
	"github.com/pharmsource/sourcing-api/internal/repository"
	"github.com/pharmsource/sourcing-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxRowErrorsStored caps the per-batch error strings persisted for audit
const maxRowErrorsStored = 100

type ImportService struct {
	batchRepo *repository.ImportBatchRepository
	archiver  storage.Archiver
	logger    *zap.Logger
	db        *gorm.DB
}

// NewImportService creates the bulk import service. batchRepo and archiver
// may be nil; audit rows and payload archival are then skipped.
func NewImportService(
	batchRepo *repository.ImportBatchRepository,
	archiver storage.Archiver,
	logger *zap.Logger,
	db *gorm.DB,
) *ImportService {
	return &ImportService{
		batchRepo: batchRepo,
		archiver:  archiver,
		logger:    logger,
		db:        db,
	}
}

// ValidateBatch checks every row of an import payload without writing any
// opportunity data. Blank rows are skipped silently and excluded from the
// row totals.
func (s *ImportService) ValidateBatch(ctx context.Context, req *domain.ImportRequest) (*domain.ImportValidationResult, error) {
	result := s.validateRows(req.Rows)

	batch := &domain.ImportBatch{
		FileName:    req.FileName,
		Mode:        domain.ImportModeValidate,
		TotalRows:   result.TotalRows,
		ValidRows:   result.ValidRows,
		InvalidRows: result.InvalidRows,
		SkippedRows: result.SkippedRows,
		RowErrors:   collectRowErrors(result.Rows),
		RequestedBy: auth.ActorName(ctx),
	}
	s.recordBatch(ctx, batch, req)
	result.BatchID = batch.ID

	metrics.ImportBatchesTotal.WithLabelValues(string(domain.ImportModeValidate)).Inc()
	return result, nil
}

// CommitBatch applies an import payload. The payload must validate cleanly
// first; a single invalid row rejects the whole commit. Valid rows are then
// upserted one by one, keyed by the exact account and product names.
func (s *ImportService) CommitBatch(ctx context.Context, req *domain.ImportRequest) (*domain.ImportCommitResult, error) {
	validation := s.validateRows(req.Rows)
	if validation.InvalidRows > 0 {
		return nil, fmt.Errorf("%w: %d of %d rows invalid", ErrBatchValidationFailed, validation.InvalidRows, validation.TotalRows)
	}

	actor := auth.ActorName(ctx)
	result := &domain.ImportCommitResult{
		TotalRows: validation.TotalRows,
		Rows:      make([]domain.RowResult, 0, len(req.Rows)),
	}
	var rowErrors []string

	skippedRows := make(map[int]bool, validation.SkippedRows)
	for _, v := range validation.Rows {
		if v.Skipped {
			skippedRows[v.Row] = true
		}
	}

	for i := range req.Rows {
		rowNum := i + 1
		if skippedRows[rowNum] {
			result.SkippedRows++
			result.Rows = append(result.Rows, domain.RowResult{Row: rowNum, Action: "skipped"})
			metrics.ImportRowsTotal.WithLabelValues("skipped").Inc()
			continue
		}

		action, err := s.commitRow(ctx, &req.Rows[i], actor)
		if err != nil {
			result.ErrorCount++
			result.Rows = append(result.Rows, domain.RowResult{Row: rowNum, Action: "error", Message: err.Error()})
			if len(rowErrors) < maxRowErrorsStored {
				rowErrors = append(rowErrors, fmt.Sprintf("row %d: %s", rowNum, err.Error()))
			}
			metrics.ImportRowsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("import row failed", zap.Int("row", rowNum), zap.Error(err))
			continue
		}

		switch action {
		case "created":
			result.CreatedCount++
		case "updated":
			result.UpdatedCount++
		}
		result.Rows = append(result.Rows, domain.RowResult{Row: rowNum, Action: action})
		metrics.ImportRowsTotal.WithLabelValues(action).Inc()
	}

	batch := &domain.ImportBatch{
		FileName:     req.FileName,
		Mode:         domain.ImportModeCommit,
		TotalRows:    result.TotalRows,
		ValidRows:    validation.ValidRows,
		SkippedRows:  result.SkippedRows,
		CreatedCount: result.CreatedCount,
		UpdatedCount: result.UpdatedCount,
		ErrorCount:   result.ErrorCount,
		RowErrors:    rowErrors,
		RequestedBy:  actor,
	}
	s.recordBatch(ctx, batch, req)
	result.BatchID = batch.ID

	metrics.ImportBatchesTotal.WithLabelValues(string(domain.ImportModeCommit)).Inc()

	s.logger.Info("import batch committed",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("created", result.CreatedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("errors", result.ErrorCount),
	)
	return result, nil
}

// GetBatch returns one import audit record
func (s *ImportService) GetBatch(ctx context.Context, id uuid.UUID) (*domain.ImportBatchDTO, error) {
	if s.batchRepo == nil {
		return nil, ErrNotFound
	}
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get import batch: %w", err)
	}
	dto := mapper.ToImportBatchDTO(batch)
	return &dto, nil
}

// ListBatches returns import audit records, newest first
func (s *ImportService) ListBatches(ctx context.Context, page, pageSize int) (*domain.PaginatedResponse, error) {
	if s.batchRepo == nil {
		return &domain.PaginatedResponse{Data: []domain.ImportBatchDTO{}, Page: 1, PageSize: pageSize}, nil
	}

	batches, total, err := s.batchRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}

	dtos := make([]domain.ImportBatchDTO, len(batches))
	for i := range batches {
		dtos[i] = mapper.ToImportBatchDTO(&batches[i])
	}

	if pageSize < 1 {
		pageSize = 20
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

// validateRows runs the shared row validation over the whole payload
func (s *ImportService) validateRows(rows []domain.ImportRow) *domain.ImportValidationResult {
	result := &domain.ImportValidationResult{
		Rows: make([]domain.RowVerdict, 0, len(rows)),
	}

	for i := range rows {
		rowNum := i + 1
		if isBlankRow(&rows[i]) {
			result.SkippedRows++
			result.Rows = append(result.Rows, domain.RowVerdict{Row: rowNum, Skipped: true})
			continue
		}

		rowErrors := validateRow(&rows[i])
		result.TotalRows++
		if len(rowErrors) == 0 {
			result.ValidRows++
			result.Rows = append(result.Rows, domain.RowVerdict{Row: rowNum, Valid: true})
		} else {
			result.InvalidRows++
			result.Rows = append(result.Rows, domain.RowVerdict{Row: rowNum, Errors: rowErrors})
		}
	}
	return result
}

// commitRow upserts one validated row inside its own transaction
func (s *ImportService) commitRow(ctx context.Context, row *domain.ImportRow, actor string) (string, error) {
	purchase, estimate := rowPriceBlocks(row)

	var action string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Opportunity
		err := tx.Where("account_name = ? AND product_name = ?", row.AccountName, row.ProductName).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err == nil {
			// Existing target: refresh data fields, leave the stage alone
			existing.ProductKey = normalize.ProductKey(row.ProductName)
			existing.QuantityKg = *row.QuantityKg
			existing.OwnerName = row.OwnerName
			if row.Segment != "" {
				segment := domain.Segment(row.Segment)
				existing.Segment = &segment
			}
			if row.Note != "" {
				existing.Note = row.Note
			}
			if err := applyPricing(&existing, purchase, estimate, existing.QuantityKg); err != nil {
				return err
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			action = "updated"
			return nil
		}

		now := time.Now().UTC()
		opp := &domain.Opportunity{
			AccountName:    row.AccountName,
			ProductName:    row.ProductName,
			ProductKey:     normalize.ProductKey(row.ProductName),
			QuantityKg:     *row.QuantityKg,
			OwnerName:      row.OwnerName,
			Stage:          domain.StageMarketResearch,
			StageProgress:  domain.StageMarketResearch.Progress(),
			StageUpdatedAt: &now,
			Note:           row.Note,
		}
		if row.Segment != "" {
			segment := domain.Segment(row.Segment)
			opp.Segment = &segment
		}
		if err := applyPricing(opp, purchase, estimate, opp.QuantityKg); err != nil {
			return err
		}
		if err := tx.Create(opp).Error; err != nil {
			return err
		}

		history := &domain.StageHistory{
			OpportunityID: opp.ID,
			ToStage:       opp.Stage,
			ActorName:     actor,
			Comment:       "Created by bulk import",
			ChangedAt:     now,
		}
		if err := tx.Create(history).Error; err != nil {
			return err
		}
		action = "created"
		return nil
	})
	return action, err
}

// recordBatch persists the audit row and archives the raw payload
func (s *ImportService) recordBatch(ctx context.Context, batch *domain.ImportBatch, req *domain.ImportRequest) {
	if s.archiver != nil {
		payload, err := json.Marshal(req)
		if err == nil {
			path, err := s.archiver.Archive(ctx, req.FileName, payload)
			if err != nil {
				s.logger.Warn("failed to archive import payload", zap.Error(err))
			} else {
				batch.ArchivePath = path
			}
		}
	}

	if s.batchRepo == nil {
		return
	}
	if err := s.batchRepo.Create(ctx, batch); err != nil {
		s.logger.Warn("failed to record import batch", zap.Error(err))
	}
}

// isBlankRow reports whether the row carries no account, product, or
// quantity. Spreadsheets routinely end with such padding rows, so they are
// skipped without an error.
func isBlankRow(row *domain.ImportRow) bool {
	return strings.TrimSpace(row.AccountName) == "" &&
		strings.TrimSpace(row.ProductName) == "" &&
		row.QuantityKg == nil
}

// validateRow returns every problem found in a non-blank row
func validateRow(row *domain.ImportRow) []string {
	var problems []string

	if strings.TrimSpace(row.AccountName) == "" {
		problems = append(problems, "account name is required")
	}
	if strings.TrimSpace(row.ProductName) == "" {
		problems = append(problems, "product name is required")
	}
	if strings.TrimSpace(row.OwnerName) == "" {
		problems = append(problems, "owner name is required")
	}
	if row.QuantityKg == nil {
		problems = append(problems, "quantity is required")
	} else if *row.QuantityKg <= 0 {
		problems = append(problems, "quantity must be greater than zero")
	}

	if row.Segment != "" && !domain.Segment(row.Segment).IsValid() {
		problems = append(problems, fmt.Sprintf("unknown segment %q", row.Segment))
	}

	problems = append(problems, validatePriceBlock("estimate", row.EstimateCurrency, row.EstimateUnitPrice, row.EstimateFxRate, row.EstimateTariffRate, row.EstimateExtraCostRate)...)

	// The purchase block is optional but all-or-nothing
	if hasAnyPurchaseField(row) {
		problems = append(problems, validatePriceBlock("purchase", row.PurchaseCurrency, row.PurchaseUnitPrice, row.PurchaseFxRate, row.PurchaseTariffRate, row.PurchaseExtraCostRate)...)
	}

	return problems
}

func hasAnyPurchaseField(row *domain.ImportRow) bool {
	return row.PurchaseCurrency != "" ||
		row.PurchaseUnitPrice != nil ||
		row.PurchaseFxRate != nil ||
		row.PurchaseTariffRate != nil ||
		row.PurchaseExtraCostRate != nil
}

// validatePriceBlock checks one price block's raw inputs. KRW rows may omit
// the FX rate since it is forced to 1 during derivation.
func validatePriceBlock(name, currency string, unitPrice, fxRate, tariffRate, extraCostRate *float64) []string {
	var problems []string

	trimmed := strings.TrimSpace(currency)
	if trimmed == "" {
		problems = append(problems, name+" currency is required")
	} else if len(trimmed) != 3 {
		problems = append(problems, name+" currency must be a 3-letter code")
	}

	if unitPrice == nil {
		problems = append(problems, name+" unit price is required")
	} else if *unitPrice <= 0 {
		problems = append(problems, name+" unit price must be greater than zero")
	}

	if !strings.EqualFold(trimmed, "KRW") {
		if fxRate == nil {
			problems = append(problems, name+" fx rate is required for foreign currencies")
		} else if *fxRate <= 0 {
			problems = append(problems, name+" fx rate must be greater than zero")
		}
	}

	if tariffRate != nil && *tariffRate < 0 {
		problems = append(problems, name+" tariff rate must not be negative")
	}
	if extraCostRate != nil && *extraCostRate < 0 {
		problems = append(problems, name+" extra cost rate must not be negative")
	}

	return problems
}

// rowPriceBlocks converts the flat row fields into price block requests
func rowPriceBlocks(row *domain.ImportRow) (*domain.PriceBlockRequest, domain.PriceBlockRequest) {
	estimate := domain.PriceBlockRequest{
		Currency:      strings.ToUpper(strings.TrimSpace(row.EstimateCurrency)),
		UnitPrice:     derefFloat(row.EstimateUnitPrice),
		FxRate:        derefFloat(row.EstimateFxRate),
		TariffRate:    derefFloat(row.EstimateTariffRate),
		ExtraCostRate: derefFloat(row.EstimateExtraCostRate),
	}

	var purchase *domain.PriceBlockRequest
	if hasAnyPurchaseField(row) {
		purchase = &domain.PriceBlockRequest{
			Currency:      strings.ToUpper(strings.TrimSpace(row.PurchaseCurrency)),
			UnitPrice:     derefFloat(row.PurchaseUnitPrice),
			FxRate:        derefFloat(row.PurchaseFxRate),
			TariffRate:    derefFloat(row.PurchaseTariffRate),
			ExtraCostRate: derefFloat(row.PurchaseExtraCostRate),
		}
	}
	return purchase, estimate
}

// collectRowErrors flattens per-row validation errors for the audit record
func collectRowErrors(verdicts []domain.RowVerdict) []string {
	var collected []string
	for _, v := range verdicts {
		for _, msg := range v.Errors {
			if len(collected) >= maxRowErrorsStored {
				return collected
			}
			collected = append(collected, fmt.Sprintf("row %d: %s", v.Row, msg))
		}
	}
	return collected
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
