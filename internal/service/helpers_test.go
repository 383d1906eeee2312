package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/auth"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/repository"
	"github.com/pharmsource/sourcing-api/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database per test. The shared
// cache keeps the schema visible across pooled connections.
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&domain.Opportunity{},
		&domain.Supplier{},
		&domain.StageHistory{},
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newOpportunityService(db *gorm.DB) *service.OpportunityService {
	return service.NewOpportunityService(
		repository.NewOpportunityRepository(db),
		repository.NewSupplierRepository(db),
		repository.NewStageHistoryRepository(db),
		zap.NewNop(),
		db,
	)
}

func newSupplierService(db *gorm.DB) *service.SupplierService {
	return service.NewSupplierService(
		repository.NewSupplierRepository(db),
		repository.NewOpportunityRepository(db),
		zap.NewNop(),
		db,
	)
}

func newImportService(db *gorm.DB) *service.ImportService {
	return service.NewImportService(nil, nil, zap.NewNop(), db)
}

func testContext() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: "Test User",
		Email:       "test@example.com",
	})
}

func floatPtr(f float64) *float64 {
	return &f
}

func estimateBlock() domain.PriceBlockRequest {
	return domain.PriceBlockRequest{
		Currency:  "USD",
		UnitPrice: 8,
		FxRate:    1000,
	}
}

func createTestOpportunity(t *testing.T, svc *service.OpportunityService, account, product string) *domain.OpportunityDTO {
	t.Helper()
	dto, err := svc.Create(testContext(), &domain.CreateOpportunityRequest{
		AccountName: account,
		ProductName: product,
		QuantityKg:  500,
		OwnerName:   "Owner",
		Estimate:    estimateBlock(),
	})
	require.NoError(t, err)
	return dto
}
