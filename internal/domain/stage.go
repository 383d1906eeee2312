package domain

// Stage represents the pipeline stage of a sourcing opportunity
type Stage string

const (
	StageMarketResearch    Stage = "MARKET_RESEARCH"
	StageSourcingRequest   Stage = "SOURCING_REQUEST"
	StageSourcingCompleted Stage = "SOURCING_COMPLETED"
	StageQuoteSent         Stage = "QUOTE_SENT"
	StageSampleShipped     Stage = "SAMPLE_SHIPPED"
	StageQualification     Stage = "QUALIFICATION"
	StageDMFRAReview       Stage = "DMF_RA_REVIEW"
	StagePriceAgreed       Stage = "PRICE_AGREED"
	StageTrialPO           Stage = "TRIAL_PO"
	StageRegistration      Stage = "REGISTRATION"
	StageCommercialPO      Stage = "COMMERCIAL_PO"
	StageWon               Stage = "WON"

	// Terminal side-states, reachable from anywhere, outside the forward order
	StageLost   Stage = "LOST"
	StageOnHold Stage = "ON_HOLD"
)

// ForwardStages lists the pipeline stages in their fixed forward order.
// LOST and ON_HOLD are deliberately excluded.
var ForwardStages = []Stage{
	StageMarketResearch,
	StageSourcingRequest,
	StageSourcingCompleted,
	StageQuoteSent,
	StageSampleShipped,
	StageQualification,
	StageDMFRAReview,
	StagePriceAgreed,
	StageTrialPO,
	StageRegistration,
	StageCommercialPO,
	StageWon,
}

// Progress percentage by stage
var stageProgress = map[Stage]int{
	StageMarketResearch:    0,
	StageSourcingRequest:   5,
	StageSourcingCompleted: 10,
	StageQuoteSent:         20,
	StageSampleShipped:     30,
	StageQualification:     40,
	StageDMFRAReview:       50,
	StagePriceAgreed:       60,
	StageTrialPO:           70,
	StageRegistration:      80,
	StageCommercialPO:      90,
	StageWon:               100,
	StageLost:              0,
	StageOnHold:            50,
}

var stageOrdinal = func() map[Stage]int {
	m := make(map[Stage]int, len(ForwardStages))
	for i, s := range ForwardStages {
		m[s] = i
	}
	return m
}()

// IsValid checks if the Stage is a known pipeline stage or side-state
func (s Stage) IsValid() bool {
	_, ok := stageProgress[s]
	return ok
}

// Progress returns the progress percentage mapped to the stage
func (s Stage) Progress() int {
	return stageProgress[s]
}

// Ordinal returns the stage's position in the forward order.
// Side-states return ok=false.
func (s Stage) Ordinal() (int, bool) {
	i, ok := stageOrdinal[s]
	return i, ok
}

// AtOrAfter reports whether s sits at or after other in the forward order.
// Side-states never compare: they are outside the order.
func (s Stage) AtOrAfter(other Stage) bool {
	si, ok := stageOrdinal[s]
	if !ok {
		return false
	}
	oi, ok := stageOrdinal[other]
	if !ok {
		return false
	}
	return si >= oi
}

// RequiresSupplier reports whether an opportunity may only hold this stage
// when at least one supplier record matches its product.
func (s Stage) RequiresSupplier() bool {
	return s.AtOrAfter(StageSourcingCompleted)
}
