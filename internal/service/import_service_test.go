package service_test

import (
	"testing"

	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validImportRow(account, product string) domain.ImportRow {
	return domain.ImportRow{
		AccountName:       account,
		ProductName:       product,
		QuantityKg:        floatPtr(500),
		OwnerName:         "Importer",
		EstimateCurrency:  "USD",
		EstimateUnitPrice: floatPtr(8),
		EstimateFxRate:    floatPtr(1000),
	}
}

func TestImportService_ValidateBatch(t *testing.T) {
	db := setupTestDB(t)
	svc := newImportService(db)
	ctx := testContext()

	t.Run("mixed payload", func(t *testing.T) {
		rows := []domain.ImportRow{
			validImportRow("Hanmi", "Atorvastatin"),
			{}, // blank padding row
			{
				AccountName:      "Yuhan",
				ProductName:      "Rosuvastatin",
				QuantityKg:       floatPtr(-5),
				EstimateCurrency: "USD",
			},
		}

		result, err := svc.ValidateBatch(ctx, &domain.ImportRequest{FileName: "pipeline.xlsx", Rows: rows})
		require.NoError(t, err)

		assert.Equal(t, 2, result.TotalRows) // blank row excluded
		assert.Equal(t, 1, result.ValidRows)
		assert.Equal(t, 1, result.InvalidRows)
		assert.Equal(t, 1, result.SkippedRows)

		require.Len(t, result.Rows, 3)
		assert.True(t, result.Rows[0].Valid)
		assert.True(t, result.Rows[1].Skipped)
		assert.False(t, result.Rows[2].Valid)
		assert.Contains(t, result.Rows[2].Errors, "quantity must be greater than zero")
		assert.Contains(t, result.Rows[2].Errors, "estimate unit price is required")

		// Validation writes no opportunity rows
		var count int64
		require.NoError(t, db.Model(&domain.Opportunity{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("rows without an owner are invalid", func(t *testing.T) {
		row := validImportRow("Hanmi", "Rosuvastatin")
		row.OwnerName = ""

		result, err := svc.ValidateBatch(ctx, &domain.ImportRequest{Rows: []domain.ImportRow{row}})
		require.NoError(t, err)
		assert.Zero(t, result.ValidRows)
		assert.Equal(t, 1, result.InvalidRows)
		assert.Contains(t, result.Rows[0].Errors, "owner name is required")

		_, err = svc.CommitBatch(ctx, &domain.ImportRequest{Rows: []domain.ImportRow{row}})
		assert.ErrorIs(t, err, service.ErrBatchValidationFailed)

		var count int64
		require.NoError(t, db.Model(&domain.Opportunity{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("local currency rows omit the fx rate", func(t *testing.T) {
		row := validImportRow("Hanmi", "Domestic Product")
		row.EstimateCurrency = "KRW"
		row.EstimateFxRate = nil

		result, err := svc.ValidateBatch(ctx, &domain.ImportRequest{Rows: []domain.ImportRow{row}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.ValidRows)
	})

	t.Run("partial purchase block is rejected", func(t *testing.T) {
		row := validImportRow("Hanmi", "Partial")
		row.PurchaseUnitPrice = floatPtr(10) // currency and fx rate missing

		result, err := svc.ValidateBatch(ctx, &domain.ImportRequest{Rows: []domain.ImportRow{row}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.InvalidRows)
		assert.Contains(t, result.Rows[0].Errors, "purchase currency is required")
	})
}

func TestImportService_CommitBatch(t *testing.T) {
	db := setupTestDB(t)
	oppSvc := newOpportunityService(db)
	svc := newImportService(db)
	ctx := testContext()

	t.Run("refuses payloads with any invalid row", func(t *testing.T) {
		rows := []domain.ImportRow{
			validImportRow("Hanmi", "Atorvastatin"),
			{AccountName: "Broken"},
		}

		_, err := svc.CommitBatch(ctx, &domain.ImportRequest{Rows: rows})
		assert.ErrorIs(t, err, service.ErrBatchValidationFailed)

		var count int64
		require.NoError(t, db.Model(&domain.Opportunity{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("creates new opportunities at market research", func(t *testing.T) {
		row := validImportRow("Hanmi", "Atorvastatin")
		row.Segment = "API"
		row.PurchaseCurrency = "USD"
		row.PurchaseUnitPrice = floatPtr(10)
		row.PurchaseFxRate = floatPtr(1000)

		result, err := svc.CommitBatch(ctx, &domain.ImportRequest{Rows: []domain.ImportRow{row, {}}})
		require.NoError(t, err)

		assert.Equal(t, 1, result.TotalRows)
		assert.Equal(t, 1, result.CreatedCount)
		assert.Equal(t, 1, result.SkippedRows)
		assert.Zero(t, result.ErrorCount)

		var opp domain.Opportunity
		require.NoError(t, db.First(&opp, "account_name = ? AND product_name = ?", "Hanmi", "Atorvastatin").Error)
		assert.Equal(t, domain.StageMarketResearch, opp.Stage)
		require.NotNil(t, opp.TotalSaving)
		assert.InDelta(t, 1000000, *opp.TotalSaving, 1e-9)

		history, err := oppSvc.GetStageHistory(ctx, opp.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "Created by bulk import", history[0].Comment)
	})

	t.Run("updates existing rows without touching the stage", func(t *testing.T) {
		existing := createTestOpportunity(t, oppSvc, "Yuhan", "Sitagliptin")
		_, err := oppSvc.ChangeStage(ctx, existing.ID, &domain.ChangeStageRequest{Stage: domain.StageSourcingRequest})
		require.NoError(t, err)

		row := validImportRow("Yuhan", "Sitagliptin")
		row.QuantityKg = floatPtr(900)

		result, err := svc.CommitBatch(ctx, &domain.ImportRequest{Rows: []domain.ImportRow{row}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.UpdatedCount)
		assert.Zero(t, result.CreatedCount)

		got, err := oppSvc.GetByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, 900.0, got.QuantityKg)
		assert.Equal(t, domain.StageSourcingRequest, got.Stage)
	})

	t.Run("matching is literal, not normalized", func(t *testing.T) {
		createTestOpportunity(t, oppSvc, "Daewoong", "Metformin HCl")

		// Different spelling of the same product creates a second record
		result, err := svc.CommitBatch(ctx, &domain.ImportRequest{Rows: []domain.ImportRow{
			validImportRow("Daewoong", "METFORMIN  HCL"),
		}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.CreatedCount)

		var count int64
		require.NoError(t, db.Model(&domain.Opportunity{}).Where("product_key = ?", "metformin hcl").Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}
