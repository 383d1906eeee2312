package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns the primary key application-side so the models work
// on both PostgreSQL and the SQLite databases used in tests.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Segment classifies the product category of an opportunity
type Segment string

const (
	SegmentAPI          Segment = "API"
	SegmentHighPotency  Segment = "HI_API"
	SegmentIntermediate Segment = "INTERMEDIATE"
	SegmentExcipient    Segment = "EXCIPIENT"
	SegmentFormulation  Segment = "FORMULATION"
)

// IsValid checks if the Segment is a valid enum value
func (s Segment) IsValid() bool {
	switch s {
	case SegmentAPI, SegmentHighPotency, SegmentIntermediate, SegmentExcipient, SegmentFormulation:
		return true
	}
	return false
}

// LinkageStatus represents the review status of a supplier linkage
type LinkageStatus string

const (
	LinkagePreparing  LinkageStatus = "PREPARING"
	LinkageInProgress LinkageStatus = "IN_PROGRESS"
	LinkageCompleted  LinkageStatus = "COMPLETED"
)

// IsValid checks if the LinkageStatus is a valid enum value
func (ls LinkageStatus) IsValid() bool {
	switch ls {
	case LinkagePreparing, LinkageInProgress, LinkageCompleted:
		return true
	}
	return false
}

// Opportunity represents a sourcing target: one account+product pairing
// moving through the pipeline.
//
// The purchase_* columns form the optional current-purchase price block.
// They are populated all together or not at all; a partially filled block
// is never persisted. The estimate_* block is mandatory. The saving_*
// columns are nil whenever the purchase block is absent ("no data", which
// is not the same as zero).
type Opportunity struct {
	BaseModel
	AccountName string   `gorm:"type:varchar(200);not null;index:idx_opportunities_account_product;column:account_name"`
	ProductName string   `gorm:"type:varchar(200);not null;index:idx_opportunities_account_product;column:product_name"`
	ProductKey  string   `gorm:"type:varchar(200);not null;index;column:product_key"`
	Segment     *Segment `gorm:"type:varchar(50);index"`
	QuantityKg  float64  `gorm:"type:decimal(12,2);not null;column:quantity_kg"`
	OwnerName   string   `gorm:"type:varchar(200);not null;column:owner_name"`

	PurchaseCurrency       *string  `gorm:"type:varchar(3);column:purchase_currency"`
	PurchaseUnitPrice      *float64 `gorm:"type:decimal(15,4);column:purchase_unit_price"`
	PurchaseFxRate         *float64 `gorm:"type:decimal(12,4);column:purchase_fx_rate"`
	PurchaseTariffRate     *float64 `gorm:"type:decimal(6,2);column:purchase_tariff_rate"`
	PurchaseExtraCostRate  *float64 `gorm:"type:decimal(6,2);column:purchase_extra_cost_rate"`
	PurchaseLocalUnitPrice *float64 `gorm:"type:decimal(15,2);column:purchase_local_unit_price"`
	PurchaseLocalTotal     *float64 `gorm:"type:decimal(18,2);column:purchase_local_total"`

	EstimateCurrency       string  `gorm:"type:varchar(3);not null;column:estimate_currency"`
	EstimateUnitPrice      float64 `gorm:"type:decimal(15,4);not null;column:estimate_unit_price"`
	EstimateFxRate         float64 `gorm:"type:decimal(12,4);not null;default:1;column:estimate_fx_rate"`
	EstimateTariffRate     float64 `gorm:"type:decimal(6,2);not null;default:0;column:estimate_tariff_rate"`
	EstimateExtraCostRate  float64 `gorm:"type:decimal(6,2);not null;default:0;column:estimate_extra_cost_rate"`
	EstimateLocalUnitPrice float64 `gorm:"type:decimal(15,2);not null;default:0;column:estimate_local_unit_price"`
	EstimateLocalTotal     float64 `gorm:"type:decimal(18,2);not null;default:0;column:estimate_local_total"`

	SavingPerUnit *float64 `gorm:"type:decimal(15,2);column:saving_per_unit"`
	TotalSaving   *float64 `gorm:"type:decimal(18,2);column:total_saving"`
	SavingRate    *float64 `gorm:"type:decimal(8,4);column:saving_rate"`

	Stage          Stage      `gorm:"type:varchar(50);not null;default:'MARKET_RESEARCH';index"`
	StageProgress  int        `gorm:"not null;default:0;column:stage_progress"`
	StageUpdatedAt *time.Time `gorm:"column:stage_updated_at"`
	Note           string     `gorm:"type:text"`
}

// HasPurchaseBlock reports whether the current-purchase block is present.
// The block is all-or-nothing, so checking one field is sufficient.
func (o *Opportunity) HasPurchaseBlock() bool {
	return o.PurchaseUnitPrice != nil
}

// Supplier represents a priced sourcing option for a product. It is
// associated with opportunities by normalized product name, not a foreign
// key: the same product roster can back opportunities across many accounts.
type Supplier struct {
	BaseModel
	ProductName    string        `gorm:"type:varchar(200);not null;column:product_name"`
	ProductKey     string        `gorm:"type:varchar(200);not null;index;column:product_key"`
	SupplierName   string        `gorm:"type:varchar(200);not null;index;column:supplier_name"`
	EnteredBy      string        `gorm:"type:varchar(200);column:entered_by"`
	Currency       string        `gorm:"type:varchar(3);not null"`
	UnitPrice      float64       `gorm:"type:decimal(15,4);not null;column:unit_price"`
	FxRate         float64       `gorm:"type:decimal(12,4);not null;default:1;column:fx_rate"`
	TariffRate     float64       `gorm:"type:decimal(6,2);not null;default:0;column:tariff_rate"`
	ExtraCostRate  float64       `gorm:"type:decimal(6,2);not null;default:0;column:extra_cost_rate"`
	LocalUnitPrice float64       `gorm:"type:decimal(15,2);not null;default:0;column:local_unit_price"`
	DMFRegistered  bool          `gorm:"not null;default:false;column:dmf_registered"`
	LinkageStatus  LinkageStatus `gorm:"type:varchar(50);not null;default:'PREPARING';column:linkage_status"`
	Note           string        `gorm:"type:text"`
}

// StageHistory is an append-only audit record of stage transitions.
// Entries are created exactly once per transition and never mutated.
type StageHistory struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	OpportunityID uuid.UUID    `gorm:"type:uuid;not null;index;column:opportunity_id"`
	Opportunity   *Opportunity `gorm:"foreignKey:OpportunityID"`
	FromStage     *Stage       `gorm:"type:varchar(50);column:from_stage"`
	ToStage       Stage        `gorm:"type:varchar(50);not null;column:to_stage"`
	ActorName     string       `gorm:"type:varchar(200);column:actor_name"`
	Comment       string       `gorm:"type:text"`
	ChangedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;column:changed_at"`
}

// TableName overrides the default table name to match the migration
func (StageHistory) TableName() string {
	return "stage_history"
}

// BeforeCreate assigns the primary key application-side.
func (h *StageHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// ImportMode distinguishes the two runs of the bulk import pipeline
type ImportMode string

const (
	ImportModeValidate ImportMode = "validate"
	ImportModeCommit   ImportMode = "commit"
)

// ImportBatch is the audit record of one bulk import run
type ImportBatch struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	FileName     string         `gorm:"type:varchar(255);column:file_name"`
	Mode         ImportMode     `gorm:"type:varchar(20);not null"`
	TotalRows    int            `gorm:"not null;default:0;column:total_rows"`
	ValidRows    int            `gorm:"not null;default:0;column:valid_rows"`
	InvalidRows  int            `gorm:"not null;default:0;column:invalid_rows"`
	SkippedRows  int            `gorm:"not null;default:0;column:skipped_rows"`
	CreatedCount int            `gorm:"not null;default:0;column:created_count"`
	UpdatedCount int            `gorm:"not null;default:0;column:updated_count"`
	ErrorCount   int            `gorm:"not null;default:0;column:error_count"`
	RowErrors    pq.StringArray `gorm:"type:text[];column:row_errors"`
	ArchivePath  string         `gorm:"type:varchar(500);column:archive_path"`
	RequestedBy  string         `gorm:"type:varchar(200);column:requested_by"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName overrides the default table name to match the migration
func (ImportBatch) TableName() string {
	return "import_batches"
}

// BeforeCreate assigns the primary key application-side.
func (b *ImportBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// FxRate is an advisory reference rate synced from the corporate warehouse.
// Pricing always uses the rate supplied on the record or row being priced;
// these rows only prefill manual-entry forms.
type FxRate struct {
	Currency string    `gorm:"type:varchar(3);primaryKey"`
	Rate     float64   `gorm:"type:decimal(12,4);not null"`
	Source   string    `gorm:"type:varchar(100)"`
	SyncedAt time.Time `gorm:"not null;column:synced_at"`
}

// TableName overrides the default table name to match the migration
func (FxRate) TableName() string {
	return "fx_rates"
}
