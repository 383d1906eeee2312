package mapper

import (
	"github.com/pharmsource/sourcing-api/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ToOpportunityDTO converts Opportunity to OpportunityDTO
func ToOpportunityDTO(opp *domain.Opportunity, supplierCount int64) domain.OpportunityDTO {
	dto := domain.OpportunityDTO{
		ID:          opp.ID,
		AccountName: opp.AccountName,
		ProductName: opp.ProductName,
		Segment:     opp.Segment,
		QuantityKg:  opp.QuantityKg,
		OwnerName:   opp.OwnerName,
		Estimate: domain.PriceBlockDTO{
			Currency:       opp.EstimateCurrency,
			UnitPrice:      opp.EstimateUnitPrice,
			FxRate:         opp.EstimateFxRate,
			TariffRate:     opp.EstimateTariffRate,
			ExtraCostRate:  opp.EstimateExtraCostRate,
			LocalUnitPrice: opp.EstimateLocalUnitPrice,
			LocalTotal:     opp.EstimateLocalTotal,
		},
		Stage:         opp.Stage,
		StageProgress: opp.StageProgress,
		SupplierCount: supplierCount,
		Note:          opp.Note,
		CreatedAt:     opp.CreatedAt.Format(timeFormat),
		UpdatedAt:     opp.UpdatedAt.Format(timeFormat),
	}

	if opp.StageUpdatedAt != nil {
		formatted := opp.StageUpdatedAt.Format(timeFormat)
		dto.StageUpdatedAt = &formatted
	}

	if opp.HasPurchaseBlock() {
		dto.Purchase = &domain.PriceBlockDTO{
			Currency:       deref(opp.PurchaseCurrency),
			UnitPrice:      derefFloat(opp.PurchaseUnitPrice),
			FxRate:         derefFloat(opp.PurchaseFxRate),
			TariffRate:     derefFloat(opp.PurchaseTariffRate),
			ExtraCostRate:  derefFloat(opp.PurchaseExtraCostRate),
			LocalUnitPrice: derefFloat(opp.PurchaseLocalUnitPrice),
			LocalTotal:     derefFloat(opp.PurchaseLocalTotal),
		}
	}

	if opp.SavingPerUnit != nil && opp.TotalSaving != nil && opp.SavingRate != nil {
		dto.Savings = &domain.SavingsDTO{
			PerUnit: *opp.SavingPerUnit,
			Total:   *opp.TotalSaving,
			Rate:    *opp.SavingRate,
		}
	}

	return dto
}

// ToSupplierDTO converts Supplier to SupplierDTO
func ToSupplierDTO(supplier *domain.Supplier) domain.SupplierDTO {
	return domain.SupplierDTO{
		ID:             supplier.ID,
		ProductName:    supplier.ProductName,
		SupplierName:   supplier.SupplierName,
		EnteredBy:      supplier.EnteredBy,
		Currency:       supplier.Currency,
		UnitPrice:      supplier.UnitPrice,
		FxRate:         supplier.FxRate,
		TariffRate:     supplier.TariffRate,
		ExtraCostRate:  supplier.ExtraCostRate,
		LocalUnitPrice: supplier.LocalUnitPrice,
		DMFRegistered:  supplier.DMFRegistered,
		LinkageStatus:  supplier.LinkageStatus,
		Note:           supplier.Note,
		CreatedAt:      supplier.CreatedAt.Format(timeFormat),
		UpdatedAt:      supplier.UpdatedAt.Format(timeFormat),
	}
}

// ToStageHistoryDTO converts StageHistory to StageHistoryDTO
func ToStageHistoryDTO(history *domain.StageHistory) domain.StageHistoryDTO {
	return domain.StageHistoryDTO{
		ID:            history.ID,
		OpportunityID: history.OpportunityID,
		FromStage:     history.FromStage,
		ToStage:       history.ToStage,
		ActorName:     history.ActorName,
		Comment:       history.Comment,
		ChangedAt:     history.ChangedAt.Format(timeFormat),
	}
}

// ToImportBatchDTO converts ImportBatch to ImportBatchDTO
func ToImportBatchDTO(batch *domain.ImportBatch) domain.ImportBatchDTO {
	return domain.ImportBatchDTO{
		ID:           batch.ID,
		FileName:     batch.FileName,
		Mode:         batch.Mode,
		TotalRows:    batch.TotalRows,
		ValidRows:    batch.ValidRows,
		InvalidRows:  batch.InvalidRows,
		SkippedRows:  batch.SkippedRows,
		CreatedCount: batch.CreatedCount,
		UpdatedCount: batch.UpdatedCount,
		ErrorCount:   batch.ErrorCount,
		RowErrors:    batch.RowErrors,
		ArchivePath:  batch.ArchivePath,
		RequestedBy:  batch.RequestedBy,
		CreatedAt:    batch.CreatedAt.Format(timeFormat),
	}
}

// ToFxRateDTO converts FxRate to FxRateDTO
func ToFxRateDTO(rate *domain.FxRate) domain.FxRateDTO {
	return domain.FxRateDTO{
		Currency: rate.Currency,
		Rate:     rate.Rate,
		Source:   rate.Source,
		SyncedAt: rate.SyncedAt.Format(timeFormat),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
