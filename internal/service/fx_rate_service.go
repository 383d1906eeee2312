package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/fxwarehouse"
	"github.com/pharmsource/sourcing-api/internal/mapper"
	"github.com/pharmsource/sourcing-api/internal/metrics"
	"github.com/pharmsource/sourcing-api/internal/pricing"
	"github.com/pharmsource/sourcing-api/internal/repository"
	"go.uber.org/zap"
)

// FxRateService maintains the advisory reference FX rates. Pricing never
// reads these implicitly; clients fetch them to prefill entry forms.
type FxRateService struct {
	fxRepo    *repository.FxRateRepository
	warehouse *fxwarehouse.Client
	logger    *zap.Logger
}

// NewFxRateService creates the service. warehouse may be nil when the
// finance warehouse connection is disabled.
func NewFxRateService(fxRepo *repository.FxRateRepository, warehouse *fxwarehouse.Client, logger *zap.Logger) *FxRateService {
	return &FxRateService{
		fxRepo:    fxRepo,
		warehouse: warehouse,
		logger:    logger,
	}
}

// ListRates returns all stored reference rates
func (s *FxRateService) ListRates(ctx context.Context) ([]domain.FxRateDTO, error) {
	rates, err := s.fxRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fx rates: %w", err)
	}

	dtos := make([]domain.FxRateDTO, len(rates))
	for i := range rates {
		dtos[i] = mapper.ToFxRateDTO(&rates[i])
	}
	return dtos, nil
}

// SyncFromWarehouse pulls the latest reference rates from the finance
// warehouse and upserts them. Returns the number of rates refreshed.
func (s *FxRateService) SyncFromWarehouse(ctx context.Context) (int, error) {
	if !s.warehouse.IsEnabled() {
		return 0, nil
	}

	refRates, err := s.warehouse.FetchLatestRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch reference rates: %w", err)
	}

	synced := 0
	for _, ref := range refRates {
		currency := strings.ToUpper(strings.TrimSpace(ref.Currency))
		// The local currency never needs a reference rate
		if currency == pricing.LocalCurrency {
			continue
		}

		rate := &domain.FxRate{
			Currency: currency,
			Rate:     ref.Rate,
			Source:   ref.Source,
			SyncedAt: ref.RateDate,
		}
		if err := s.fxRepo.Upsert(ctx, rate); err != nil {
			s.logger.Warn("failed to upsert fx rate",
				zap.String("currency", currency),
				zap.Error(err),
			)
			continue
		}
		synced++
	}

	if synced > 0 {
		metrics.FxRatesSyncedTotal.Add(float64(synced))
	}
	s.logger.Info("reference fx rates synced", zap.Int("synced", synced))
	return synced, nil
}
