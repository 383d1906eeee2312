package domain

import (
	"github.com/google/uuid"
)

// DTOs for API responses

// PriceBlockDTO is one localized price block (current purchase or estimate)
type PriceBlockDTO struct {
	Currency       string  `json:"currency"`
	UnitPrice      float64 `json:"unitPrice"`
	FxRate         float64 `json:"fxRate"`
	TariffRate     float64 `json:"tariffRate"`
	ExtraCostRate  float64 `json:"extraCostRate"`
	LocalUnitPrice float64 `json:"localUnitPrice"`
	LocalTotal     float64 `json:"localTotal"`
}

// SavingsDTO holds the derived savings figures. The whole object is omitted
// when the opportunity has no current-purchase block.
type SavingsDTO struct {
	PerUnit float64 `json:"perUnit"`
	Total   float64 `json:"total"`
	Rate    float64 `json:"rate"`
}

type OpportunityDTO struct {
	ID             uuid.UUID      `json:"id"`
	AccountName    string         `json:"accountName"`
	ProductName    string         `json:"productName"`
	Segment        *Segment       `json:"segment,omitempty"`
	QuantityKg     float64        `json:"quantityKg"`
	OwnerName      string         `json:"ownerName"`
	Purchase       *PriceBlockDTO `json:"purchase,omitempty"`
	Estimate       PriceBlockDTO  `json:"estimate"`
	Savings        *SavingsDTO    `json:"savings,omitempty"`
	Stage          Stage          `json:"stage"`
	StageProgress  int            `json:"stageProgress"`
	StageUpdatedAt *string        `json:"stageUpdatedAt,omitempty"` // ISO 8601
	SupplierCount  int64          `json:"supplierCount"`
	Note           string         `json:"note,omitempty"`
	CreatedAt      string         `json:"createdAt"` // ISO 8601
	UpdatedAt      string         `json:"updatedAt"` // ISO 8601
}

type SupplierDTO struct {
	ID             uuid.UUID     `json:"id"`
	ProductName    string        `json:"productName"`
	SupplierName   string        `json:"supplierName"`
	EnteredBy      string        `json:"enteredBy,omitempty"`
	Currency       string        `json:"currency"`
	UnitPrice      float64       `json:"unitPrice"`
	FxRate         float64       `json:"fxRate"`
	TariffRate     float64       `json:"tariffRate"`
	ExtraCostRate  float64       `json:"extraCostRate"`
	LocalUnitPrice float64       `json:"localUnitPrice"`
	DMFRegistered  bool          `json:"dmfRegistered"`
	LinkageStatus  LinkageStatus `json:"linkageStatus"`
	Note           string        `json:"note,omitempty"`
	CreatedAt      string        `json:"createdAt"` // ISO 8601
	UpdatedAt      string        `json:"updatedAt"` // ISO 8601
}

// CreateSupplierResponse pairs the stored price entry with the opportunities
// the roster change advanced out of pre-sourcing.
type CreateSupplierResponse struct {
	Supplier               SupplierDTO `json:"supplier"`
	AdvancedOpportunityIDs []uuid.UUID `json:"advancedOpportunityIds,omitempty"`
}

// SupplierRemovalResponse reports a roster removal and any rollback it caused
type SupplierRemovalResponse struct {
	Deleted                  int64       `json:"deleted"`
	RollbackOccurred         bool        `json:"rollbackOccurred"`
	RolledBackOpportunityIDs []uuid.UUID `json:"rolledBackOpportunityIds,omitempty"`
}

type StageHistoryDTO struct {
	ID            uuid.UUID `json:"id"`
	OpportunityID uuid.UUID `json:"opportunityId"`
	FromStage     *Stage    `json:"fromStage,omitempty"`
	ToStage       Stage     `json:"toStage"`
	ActorName     string    `json:"actorName,omitempty"`
	Comment       string    `json:"comment,omitempty"`
	ChangedAt     string    `json:"changedAt"` // ISO 8601
}

// PipelineStageDTO is one stage bucket in the pipeline overview
type PipelineStageDTO struct {
	Stage         Stage   `json:"stage"`
	Progress      int     `json:"progress"`
	Count         int64   `json:"count"`
	TotalSaving   float64 `json:"totalSaving"`
	TotalQuantity float64 `json:"totalQuantity"`
}

// DashboardSummaryDTO holds aggregated figures for the landing dashboard
type DashboardSummaryDTO struct {
	TotalOpportunities int64   `json:"totalOpportunities"`
	ActiveCount        int64   `json:"activeCount"`
	WonCount           int64   `json:"wonCount"`
	LostCount          int64   `json:"lostCount"`
	OnHoldCount        int64   `json:"onHoldCount"`
	TotalSaving        float64 `json:"totalSaving"`
	WonSaving          float64 `json:"wonSaving"`
}

type FxRateDTO struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
	Source   string  `json:"source,omitempty"`
	SyncedAt string  `json:"syncedAt"` // ISO 8601
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

// PriceBlockRequest carries the raw inputs of a price block. Derived local
// values are always recomputed server-side and never accepted from clients.
type PriceBlockRequest struct {
	Currency      string  `json:"currency" validate:"required,len=3"`
	UnitPrice     float64 `json:"unitPrice" validate:"gt=0"`
	FxRate        float64 `json:"fxRate" validate:"gte=0"`
	TariffRate    float64 `json:"tariffRate" validate:"gte=0"`
	ExtraCostRate float64 `json:"extraCostRate" validate:"gte=0"`
}

type CreateOpportunityRequest struct {
	AccountName string             `json:"accountName" validate:"required,max=200"`
	ProductName string             `json:"productName" validate:"required,max=200"`
	Segment     *Segment           `json:"segment,omitempty"`
	QuantityKg  float64            `json:"quantityKg" validate:"gt=0"`
	OwnerName   string             `json:"ownerName" validate:"required,max=200"`
	Purchase    *PriceBlockRequest `json:"purchase,omitempty"`
	Estimate    PriceBlockRequest  `json:"estimate" validate:"required"`
	Note        string             `json:"note,omitempty" validate:"max=2000"`
}

type UpdateOpportunityRequest struct {
	AccountName string             `json:"accountName" validate:"required,max=200"`
	ProductName string             `json:"productName" validate:"required,max=200"`
	Segment     *Segment           `json:"segment,omitempty"`
	QuantityKg  float64            `json:"quantityKg" validate:"gt=0"`
	OwnerName   string             `json:"ownerName" validate:"required,max=200"`
	Purchase    *PriceBlockRequest `json:"purchase,omitempty"`
	Estimate    PriceBlockRequest  `json:"estimate" validate:"required"`
	Note        string             `json:"note,omitempty" validate:"max=2000"`
}

// ChangeStageRequest moves an opportunity to a new pipeline stage
type ChangeStageRequest struct {
	Stage   Stage  `json:"stage" validate:"required"`
	Comment string `json:"comment,omitempty" validate:"max=1000"`
}

type CreateSupplierRequest struct {
	ProductName   string        `json:"productName" validate:"required,max=200"`
	SupplierName  string        `json:"supplierName" validate:"required,max=200"`
	Currency      string        `json:"currency" validate:"required,len=3"`
	UnitPrice     float64       `json:"unitPrice" validate:"gt=0"`
	FxRate        float64       `json:"fxRate" validate:"gte=0"`
	TariffRate    float64       `json:"tariffRate" validate:"gte=0"`
	ExtraCostRate float64       `json:"extraCostRate" validate:"gte=0"`
	DMFRegistered bool          `json:"dmfRegistered"`
	LinkageStatus LinkageStatus `json:"linkageStatus,omitempty"`
	Note          string        `json:"note,omitempty" validate:"max=2000"`
}

type UpdateSupplierRequest struct {
	SupplierName  string        `json:"supplierName" validate:"required,max=200"`
	Currency      string        `json:"currency" validate:"required,len=3"`
	UnitPrice     float64       `json:"unitPrice" validate:"gt=0"`
	FxRate        float64       `json:"fxRate" validate:"gte=0"`
	TariffRate    float64       `json:"tariffRate" validate:"gte=0"`
	ExtraCostRate float64       `json:"extraCostRate" validate:"gte=0"`
	DMFRegistered bool          `json:"dmfRegistered"`
	LinkageStatus LinkageStatus `json:"linkageStatus,omitempty"`
	Note          string        `json:"note,omitempty" validate:"max=2000"`
}

// DeleteSupplierByNameRequest removes every price entry of one supplier for
// a product at once.
type DeleteSupplierByNameRequest struct {
	ProductName  string `json:"productName" validate:"required,max=200"`
	SupplierName string `json:"supplierName" validate:"required,max=200"`
}

// PricingPreviewRequest derives localized prices and savings without
// persisting anything.
type PricingPreviewRequest struct {
	QuantityKg float64            `json:"quantityKg" validate:"gt=0"`
	Purchase   *PriceBlockRequest `json:"purchase,omitempty"`
	Estimate   PriceBlockRequest  `json:"estimate" validate:"required"`
}

// PricingPreviewResponse mirrors the persisted derived columns
type PricingPreviewResponse struct {
	Purchase *PriceBlockDTO `json:"purchase,omitempty"`
	Estimate PriceBlockDTO  `json:"estimate"`
	Savings  *SavingsDTO    `json:"savings,omitempty"`
}

// Import DTOs

// ImportRow is one spreadsheet row of the bulk import payload. Optional
// numeric fields arrive as pointers so absent and zero stay distinct.
type ImportRow struct {
	AccountName           string   `json:"accountName"`
	ProductName           string   `json:"productName"`
	Segment               string   `json:"segment,omitempty"`
	QuantityKg            *float64 `json:"quantityKg,omitempty"`
	OwnerName             string   `json:"ownerName,omitempty"`
	PurchaseCurrency      string   `json:"purchaseCurrency,omitempty"`
	PurchaseUnitPrice     *float64 `json:"purchaseUnitPrice,omitempty"`
	PurchaseFxRate        *float64 `json:"purchaseFxRate,omitempty"`
	PurchaseTariffRate    *float64 `json:"purchaseTariffRate,omitempty"`
	PurchaseExtraCostRate *float64 `json:"purchaseExtraCostRate,omitempty"`
	EstimateCurrency      string   `json:"estimateCurrency,omitempty"`
	EstimateUnitPrice     *float64 `json:"estimateUnitPrice,omitempty"`
	EstimateFxRate        *float64 `json:"estimateFxRate,omitempty"`
	EstimateTariffRate    *float64 `json:"estimateTariffRate,omitempty"`
	EstimateExtraCostRate *float64 `json:"estimateExtraCostRate,omitempty"`
	Note                  string   `json:"note,omitempty"`
}

// ImportRequest is the payload shared by the validate and commit endpoints
type ImportRequest struct {
	FileName string      `json:"fileName,omitempty" validate:"max=255"`
	Rows     []ImportRow `json:"rows" validate:"required"`
}

// RowVerdict is the per-row outcome of a validation run. Row numbers are
// 1-based positions in the submitted payload.
type RowVerdict struct {
	Row     int      `json:"row"`
	Valid   bool     `json:"valid"`
	Skipped bool     `json:"skipped,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportValidationResult summarizes a validate-only run
type ImportValidationResult struct {
	BatchID     uuid.UUID    `json:"batchId"`
	TotalRows   int          `json:"totalRows"`
	ValidRows   int          `json:"validRows"`
	InvalidRows int          `json:"invalidRows"`
	SkippedRows int          `json:"skippedRows"`
	Rows        []RowVerdict `json:"rows"`
}

// RowResult is the per-row outcome of a commit run
type RowResult struct {
	Row     int    `json:"row"`
	Action  string `json:"action"` // created, updated, skipped, error
	Message string `json:"message,omitempty"`
}

// ImportCommitResult summarizes a commit run
type ImportCommitResult struct {
	BatchID      uuid.UUID   `json:"batchId"`
	TotalRows    int         `json:"totalRows"`
	CreatedCount int         `json:"createdCount"`
	UpdatedCount int         `json:"updatedCount"`
	SkippedRows  int         `json:"skippedRows"`
	ErrorCount   int         `json:"errorCount"`
	Rows         []RowResult `json:"rows"`
}

// ImportBatchDTO is the audit view of a past import run
type ImportBatchDTO struct {
	ID           uuid.UUID  `json:"id"`
	FileName     string     `json:"fileName,omitempty"`
	Mode         ImportMode `json:"mode"`
	TotalRows    int        `json:"totalRows"`
	ValidRows    int        `json:"validRows"`
	InvalidRows  int        `json:"invalidRows"`
	SkippedRows  int        `json:"skippedRows"`
	CreatedCount int        `json:"createdCount"`
	UpdatedCount int        `json:"updatedCount"`
	ErrorCount   int        `json:"errorCount"`
	RowErrors    []string   `json:"rowErrors,omitempty"`
	ArchivePath  string     `json:"archivePath,omitempty"`
	RequestedBy  string     `json:"requestedBy,omitempty"`
	CreatedAt    string     `json:"createdAt"` // ISO 8601
}
