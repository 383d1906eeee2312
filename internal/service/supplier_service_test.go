package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplierService_Create(t *testing.T) {
	db := setupTestDB(t)
	oppSvc := newOpportunityService(db)
	svc := newSupplierService(db)
	ctx := testContext()

	t.Run("advances waiting opportunities", func(t *testing.T) {
		waiting := createTestOpportunity(t, oppSvc, "Hanmi", "Atorvastatin Calcium")
		requested := createTestOpportunity(t, oppSvc, "Yuhan", "atorvastatin  CALCIUM")
		_, err := oppSvc.ChangeStage(ctx, requested.ID, &domain.ChangeStageRequest{Stage: domain.StageSourcingRequest})
		require.NoError(t, err)
		held := createTestOpportunity(t, oppSvc, "Daewoong", "Atorvastatin Calcium")
		_, err = oppSvc.ChangeStage(ctx, held.ID, &domain.ChangeStageRequest{Stage: domain.StageOnHold})
		require.NoError(t, err)

		resp, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:  "Atorvastatin Calcium",
			SupplierName: "Zhejiang Pharma",
			Currency:     "USD",
			UnitPrice:    9,
			FxRate:       1000,
			TariffRate:   5,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.LinkagePreparing, resp.Supplier.LinkageStatus)
		assert.Equal(t, "Test User", resp.Supplier.EnteredBy)
		// 9 * 1000 * 1.05
		assert.InDelta(t, 9450, resp.Supplier.LocalUnitPrice, 1e-9)

		// The response names exactly the opportunities the trigger moved
		assert.ElementsMatch(t, []uuid.UUID{waiting.ID, requested.ID}, resp.AdvancedOpportunityIDs)

		// Both pre-sourcing opportunities moved, regardless of entered spelling
		for _, id := range []uuid.UUID{waiting.ID, requested.ID} {
			got, err := oppSvc.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.StageSourcingCompleted, got.Stage)

			history, err := oppSvc.GetStageHistory(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.StageSourcingCompleted, history[0].ToStage)
			assert.Equal(t, "Supplier added for product (1 on roster)", history[0].Comment)
		}

		// Side states are left alone
		got, err := oppSvc.GetByID(ctx, held.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageOnHold, got.Stage)
	})

	t.Run("local currency forces fx rate of one", func(t *testing.T) {
		resp, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:  "Domestic Excipient",
			SupplierName: "Kukje Chem",
			Currency:     "KRW",
			UnitPrice:    5000,
		})
		require.NoError(t, err)
		assert.Equal(t, 1.0, resp.Supplier.FxRate)
		assert.InDelta(t, 5000, resp.Supplier.LocalUnitPrice, 1e-9)
		assert.Empty(t, resp.AdvancedOpportunityIDs)
	})

	t.Run("foreign currency needs an fx rate", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:  "Imported Intermediate",
			SupplierName: "Anywhere",
			Currency:     "USD",
			UnitPrice:    4,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("rejects unknown linkage status", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:   "Metformin",
			SupplierName:  "Anywhere",
			Currency:      "USD",
			UnitPrice:     1,
			FxRate:        1000,
			LinkageStatus: "LINKED",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestSupplierService_Update(t *testing.T) {
	db := setupTestDB(t)
	svc := newSupplierService(db)
	ctx := testContext()

	created, err := svc.Create(ctx, &domain.CreateSupplierRequest{
		ProductName:  "Rosuvastatin",
		SupplierName: "Aurobindo",
		Currency:     "USD",
		UnitPrice:    12,
		FxRate:       1000,
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.Supplier.ID, &domain.UpdateSupplierRequest{
		SupplierName:  "Aurobindo",
		Currency:      "EUR",
		UnitPrice:     11,
		FxRate:        1450,
		DMFRegistered: true,
		LinkageStatus: domain.LinkageInProgress,
	})
	require.NoError(t, err)

	assert.Equal(t, "EUR", updated.Currency)
	assert.True(t, updated.DMFRegistered)
	assert.Equal(t, domain.LinkageInProgress, updated.LinkageStatus)
	assert.InDelta(t, 15950, updated.LocalUnitPrice, 1e-9)
	// Product association is immutable
	assert.Equal(t, "Rosuvastatin", updated.ProductName)
}

func TestSupplierService_Delete(t *testing.T) {
	db := setupTestDB(t)
	oppSvc := newOpportunityService(db)
	svc := newSupplierService(db)
	ctx := testContext()

	t.Run("last entry rolls opportunities back", func(t *testing.T) {
		opp := createTestOpportunity(t, oppSvc, "Hanmi", "Ezetimibe")
		supplier, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:  "Ezetimibe",
			SupplierName: "MSN Labs",
			Currency:     "USD",
			UnitPrice:    20,
			FxRate:       1000,
		})
		require.NoError(t, err)

		_, err = oppSvc.ChangeStage(ctx, opp.ID, &domain.ChangeStageRequest{Stage: domain.StageQuoteSent})
		require.NoError(t, err)

		resp, err := svc.Delete(ctx, supplier.Supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Deleted)
		assert.True(t, resp.RollbackOccurred)
		assert.Equal(t, []uuid.UUID{opp.ID}, resp.RolledBackOpportunityIDs)

		got, err := oppSvc.GetByID(ctx, opp.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageSourcingRequest, got.Stage)

		history, err := oppSvc.GetStageHistory(ctx, opp.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageSourcingRequest, history[0].ToStage)
	})

	t.Run("remaining roster keeps stages", func(t *testing.T) {
		opp := createTestOpportunity(t, oppSvc, "Yuhan", "Sitagliptin")
		first, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:  "Sitagliptin",
			SupplierName: "Supplier A",
			Currency:     "USD",
			UnitPrice:    30,
			FxRate:       1000,
		})
		require.NoError(t, err)
		_, err = svc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:  "Sitagliptin",
			SupplierName: "Supplier B",
			Currency:     "USD",
			UnitPrice:    28,
			FxRate:       1000,
		})
		require.NoError(t, err)

		resp, err := svc.Delete(ctx, first.Supplier.ID)
		require.NoError(t, err)
		assert.False(t, resp.RollbackOccurred)
		assert.Empty(t, resp.RolledBackOpportunityIDs)

		got, err := oppSvc.GetByID(ctx, opp.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageSourcingCompleted, got.Stage)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestSupplierService_DeleteByName(t *testing.T) {
	db := setupTestDB(t)
	oppSvc := newOpportunityService(db)
	svc := newSupplierService(db)
	ctx := testContext()

	opp := createTestOpportunity(t, oppSvc, "Hanmi", "Linagliptin")
	for _, price := range []float64{40, 38} {
		_, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			ProductName:  "Linagliptin",
			SupplierName: "Hetero",
			Currency:     "USD",
			UnitPrice:    price,
			FxRate:       1000,
		})
		require.NoError(t, err)
	}

	resp, err := svc.DeleteByName(ctx, &domain.DeleteSupplierByNameRequest{
		ProductName:  "linagliptin",
		SupplierName: "Hetero",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Deleted)
	assert.True(t, resp.RollbackOccurred)
	assert.Equal(t, []uuid.UUID{opp.ID}, resp.RolledBackOpportunityIDs)

	// Roster emptied, opportunity rolled back
	got, err := oppSvc.GetByID(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageSourcingRequest, got.Stage)

	_, err = svc.DeleteByName(ctx, &domain.DeleteSupplierByNameRequest{
		ProductName:  "Linagliptin",
		SupplierName: "Hetero",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSupplierService_ListByProduct(t *testing.T) {
	db := setupTestDB(t)
	svc := newSupplierService(db)
	ctx := testContext()

	_, err := svc.Create(ctx, &domain.CreateSupplierRequest{
		ProductName:  "Valsartan",
		SupplierName: "Mylan",
		Currency:     "USD",
		UnitPrice:    60,
		FxRate:       1000,
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Create(ctx, &domain.CreateSupplierRequest{
		ProductName:  "Valsartan",
		SupplierName: "Mylan",
		Currency:     "USD",
		UnitPrice:    55,
		FxRate:       1000,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &domain.CreateSupplierRequest{
		ProductName:  "Valsartan",
		SupplierName: "Teva",
		Currency:     "USD",
		UnitPrice:    58,
		FxRate:       1000,
	})
	require.NoError(t, err)

	roster, err := svc.ListByProduct(ctx, "VALSARTAN")
	require.NoError(t, err)
	require.Len(t, roster, 2)

	// The newest entry wins per supplier name
	byName := make(map[string]float64, len(roster))
	for _, s := range roster {
		byName[s.SupplierName] = s.UnitPrice
	}
	assert.Equal(t, 55.0, byName["Mylan"])
	assert.Equal(t, 58.0, byName["Teva"])
}

func TestSupplierService_EnforceConsistency(t *testing.T) {
	db := setupTestDB(t)
	oppSvc := newOpportunityService(db)
	svc := newSupplierService(db)
	ctx := testContext()

	opp := createTestOpportunity(t, oppSvc, "Hanmi", "Olmesartan")

	// Force the stage forward behind the triggers' back
	err := db.Model(&domain.Opportunity{}).
		Where("id = ?", opp.ID).
		Updates(map[string]interface{}{
			"stage":          domain.StageQualification,
			"stage_progress": domain.StageQualification.Progress(),
		}).Error
	require.NoError(t, err)

	fixed, err := svc.EnforceConsistency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	got, err := oppSvc.GetByID(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageSourcingRequest, got.Stage)

	// A clean pipeline needs no fixes
	fixed, err = svc.EnforceConsistency(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}
