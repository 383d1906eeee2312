package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/repository"
	"github.com/pharmsource/sourcing-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpportunityService_Create(t *testing.T) {
	db := setupTestDB(t)
	svc := newOpportunityService(db)
	ctx := testContext()

	t.Run("starts at market research with derived pricing", func(t *testing.T) {
		dto, err := svc.Create(ctx, &domain.CreateOpportunityRequest{
			AccountName: "Hanmi Pharm",
			ProductName: "Atorvastatin  Calcium",
			QuantityKg:  1000,
			OwnerName:   "Kim",
			Purchase: &domain.PriceBlockRequest{
				Currency:  "USD",
				UnitPrice: 10,
				FxRate:    1000,
			},
			Estimate: estimateBlock(),
		})
		require.NoError(t, err)

		assert.Equal(t, domain.StageMarketResearch, dto.Stage)
		assert.Equal(t, 0, dto.StageProgress)
		require.NotNil(t, dto.Purchase)
		assert.InDelta(t, 10000, dto.Purchase.LocalUnitPrice, 1e-9)
		assert.InDelta(t, 8000, dto.Estimate.LocalUnitPrice, 1e-9)
		require.NotNil(t, dto.Savings)
		assert.InDelta(t, 2000, dto.Savings.PerUnit, 1e-9)
		assert.InDelta(t, 2000000, dto.Savings.Total, 1e-9)
		assert.InDelta(t, 0.2, dto.Savings.Rate, 1e-9)

		// Product key is normalized for matching
		var opp domain.Opportunity
		require.NoError(t, db.First(&opp, "id = ?", dto.ID).Error)
		assert.Equal(t, "atorvastatin calcium", opp.ProductKey)

		// Initial transition is recorded
		history, err := svc.GetStageHistory(ctx, dto.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Nil(t, history[0].FromStage)
		assert.Equal(t, domain.StageMarketResearch, history[0].ToStage)
		assert.Equal(t, "Test User", history[0].ActorName)
	})

	t.Run("without purchase block savings stay absent", func(t *testing.T) {
		dto, err := svc.Create(ctx, &domain.CreateOpportunityRequest{
			AccountName: "Yuhan",
			ProductName: "Rosuvastatin",
			QuantityKg:  200,
			OwnerName:   "Lee",
			Estimate:    estimateBlock(),
		})
		require.NoError(t, err)

		assert.Nil(t, dto.Purchase)
		assert.Nil(t, dto.Savings)

		var opp domain.Opportunity
		require.NoError(t, db.First(&opp, "id = ?", dto.ID).Error)
		assert.Nil(t, opp.TotalSaving)
		assert.Nil(t, opp.PurchaseLocalUnitPrice)
	})

	t.Run("local currency estimate omits the fx rate", func(t *testing.T) {
		dto, err := svc.Create(ctx, &domain.CreateOpportunityRequest{
			AccountName: "Chong Kun Dang",
			ProductName: "Domestic Excipient",
			QuantityKg:  300,
			OwnerName:   "Choi",
			Estimate: domain.PriceBlockRequest{
				Currency:  "KRW",
				UnitPrice: 5000,
			},
		})
		require.NoError(t, err)
		assert.InDelta(t, 5000, dto.Estimate.LocalUnitPrice, 1e-9)
		assert.Equal(t, 1.0, dto.Estimate.FxRate)
	})

	t.Run("foreign currency needs an fx rate", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateOpportunityRequest{
			AccountName: "Boryung",
			ProductName: "Imported API",
			QuantityKg:  100,
			OwnerName:   "Jung",
			Estimate: domain.PriceBlockRequest{
				Currency:  "USD",
				UnitPrice: 8,
			},
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("rejects unknown segment", func(t *testing.T) {
		segment := domain.Segment("RAW_MATERIAL")
		_, err := svc.Create(ctx, &domain.CreateOpportunityRequest{
			AccountName: "Daewoong",
			ProductName: "Metformin",
			Segment:     &segment,
			QuantityKg:  100,
			OwnerName:   "Park",
			Estimate:    estimateBlock(),
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestOpportunityService_GetByID(t *testing.T) {
	db := setupTestDB(t)
	svc := newOpportunityService(db)

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.GetByID(testContext(), uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("existing", func(t *testing.T) {
		created := createTestOpportunity(t, svc, "Hanmi", "Metformin HCl")
		dto, err := svc.GetByID(testContext(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, dto.ID)
	})
}

func TestOpportunityService_Update(t *testing.T) {
	db := setupTestDB(t)
	svc := newOpportunityService(db)
	ctx := testContext()

	created := createTestOpportunity(t, svc, "Hanmi", "Metformin HCl")

	t.Run("clears purchase when block is removed", func(t *testing.T) {
		dto, err := svc.Update(ctx, created.ID, &domain.UpdateOpportunityRequest{
			AccountName: "Hanmi",
			ProductName: "Metformin HCl",
			QuantityKg:  800,
			OwnerName:   "Choi",
			Estimate:    estimateBlock(),
		})
		require.NoError(t, err)

		assert.Equal(t, 800.0, dto.QuantityKg)
		assert.Equal(t, "Choi", dto.OwnerName)
		assert.Nil(t, dto.Purchase)
		assert.Nil(t, dto.Savings)
	})

	t.Run("stage is untouched by updates", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, &domain.UpdateOpportunityRequest{
			AccountName: "Hanmi",
			ProductName: "Metformin HCl",
			QuantityKg:  800,
			OwnerName:   "Choi",
			Estimate:    estimateBlock(),
		})
		require.NoError(t, err)

		dto, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageMarketResearch, dto.Stage)
	})
}

func TestOpportunityService_ChangeStage(t *testing.T) {
	db := setupTestDB(t)
	svc := newOpportunityService(db)
	supplierSvc := newSupplierService(db)
	ctx := testContext()

	t.Run("unknown stage", func(t *testing.T) {
		opp := createTestOpportunity(t, svc, "A", "Product One")
		_, err := svc.ChangeStage(ctx, opp.ID, &domain.ChangeStageRequest{Stage: "SHIPPED"})
		assert.ErrorIs(t, err, service.ErrInvalidStage)
	})

	t.Run("supplier required past sourcing", func(t *testing.T) {
		opp := createTestOpportunity(t, svc, "B", "Product Two")
		_, err := svc.ChangeStage(ctx, opp.ID, &domain.ChangeStageRequest{Stage: domain.StageQuoteSent})
		assert.ErrorIs(t, err, service.ErrSupplierRequired)
	})

	t.Run("side states reachable without supplier", func(t *testing.T) {
		opp := createTestOpportunity(t, svc, "C", "Product Three")
		dto, err := svc.ChangeStage(ctx, opp.ID, &domain.ChangeStageRequest{Stage: domain.StageLost, Comment: "No budget"})
		require.NoError(t, err)
		assert.Equal(t, domain.StageLost, dto.Stage)
		assert.Equal(t, 0, dto.StageProgress)

		history, err := svc.GetStageHistory(ctx, opp.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, domain.StageLost, history[0].ToStage)
		assert.Equal(t, "No budget", history[0].Comment)
	})

	t.Run("advances with a supplier on the roster", func(t *testing.T) {
		opp := createTestOpportunity(t, svc, "D", "Product Four")
		_, err := supplierSvc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:  "Product Four",
			SupplierName: "Zhejiang Pharma",
			Currency:     "USD",
			UnitPrice:    9,
			FxRate:       1000,
		})
		require.NoError(t, err)

		// Supplier creation already advanced it to SOURCING_COMPLETED
		dto, err := svc.ChangeStage(ctx, opp.ID, &domain.ChangeStageRequest{Stage: domain.StageQuoteSent})
		require.NoError(t, err)
		assert.Equal(t, domain.StageQuoteSent, dto.Stage)
		assert.Equal(t, domain.StageQuoteSent.Progress(), dto.StageProgress)
	})

	t.Run("same stage is a silent no-op", func(t *testing.T) {
		opp := createTestOpportunity(t, svc, "E", "Product Five")
		dto, err := svc.ChangeStage(ctx, opp.ID, &domain.ChangeStageRequest{Stage: domain.StageMarketResearch})
		require.NoError(t, err)
		assert.Equal(t, domain.StageMarketResearch, dto.Stage)

		history, err := svc.GetStageHistory(ctx, opp.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1) // only the creation entry
	})
}

func TestOpportunityService_Delete(t *testing.T) {
	db := setupTestDB(t)
	svc := newOpportunityService(db)
	ctx := testContext()

	opp := createTestOpportunity(t, svc, "Hanmi", "Ezetimibe")
	require.NoError(t, svc.Delete(ctx, opp.ID))

	_, err := svc.GetByID(ctx, opp.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	var historyCount int64
	require.NoError(t, db.Model(&domain.StageHistory{}).Where("opportunity_id = ?", opp.ID).Count(&historyCount).Error)
	assert.Zero(t, historyCount)

	assert.ErrorIs(t, svc.Delete(ctx, uuid.New()), service.ErrNotFound)
}

func TestOpportunityService_List(t *testing.T) {
	db := setupTestDB(t)
	svc := newOpportunityService(db)
	ctx := testContext()

	createTestOpportunity(t, svc, "Hanmi", "Atorvastatin")
	createTestOpportunity(t, svc, "Yuhan", "Atorvastatin")
	createTestOpportunity(t, svc, "Hanmi", "Rosuvastatin")

	t.Run("paginates", func(t *testing.T) {
		result, err := svc.List(ctx, 1, 2, nil, repository.OpportunitySortByCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Total)
		assert.Equal(t, 2, result.TotalPages)
		assert.Len(t, result.Data.([]domain.OpportunityDTO), 2)
	})

	t.Run("filters by product key", func(t *testing.T) {
		key := "atorvastatin"
		result, err := svc.List(ctx, 1, 20, &repository.OpportunityFilters{ProductKey: &key}, repository.OpportunitySortByCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
	})

	t.Run("filters by account", func(t *testing.T) {
		account := "Yuhan"
		result, err := svc.List(ctx, 1, 20, &repository.OpportunityFilters{AccountName: &account}, repository.OpportunitySortByCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})
}

func TestOpportunityService_GetPipelineOverview(t *testing.T) {
	db := setupTestDB(t)
	svc := newOpportunityService(db)
	ctx := testContext()

	createTestOpportunity(t, svc, "Hanmi", "Atorvastatin")
	createTestOpportunity(t, svc, "Yuhan", "Rosuvastatin")
	lost := createTestOpportunity(t, svc, "Daewoong", "Metformin")
	_, err := svc.ChangeStage(ctx, lost.ID, &domain.ChangeStageRequest{Stage: domain.StageLost})
	require.NoError(t, err)

	overview, err := svc.GetPipelineOverview(ctx)
	require.NoError(t, err)

	// Every forward stage plus LOST and ON_HOLD, in order, empty ones included
	require.Len(t, overview, len(domain.ForwardStages)+2)
	assert.Equal(t, domain.StageMarketResearch, overview[0].Stage)
	assert.Equal(t, int64(2), overview[0].Count)
	assert.Equal(t, domain.StageLost, overview[len(overview)-2].Stage)
	assert.Equal(t, int64(1), overview[len(overview)-2].Count)
	assert.Equal(t, domain.StageOnHold, overview[len(overview)-1].Stage)
	assert.Equal(t, int64(0), overview[len(overview)-1].Count)
}

func TestOpportunityService_GetDashboardSummary(t *testing.T) {
	db := setupTestDB(t)
	svc := newOpportunityService(db)
	ctx := testContext()

	createTestOpportunity(t, svc, "Hanmi", "Atorvastatin")
	lost := createTestOpportunity(t, svc, "Yuhan", "Rosuvastatin")
	_, err := svc.ChangeStage(ctx, lost.ID, &domain.ChangeStageRequest{Stage: domain.StageLost})
	require.NoError(t, err)

	summary, err := svc.GetDashboardSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalOpportunities)
	assert.Equal(t, int64(1), summary.ActiveCount)
	assert.Equal(t, int64(1), summary.LostCount)
	assert.Equal(t, int64(0), summary.WonCount)
	assert.Equal(t, int64(0), summary.OnHoldCount)
}
