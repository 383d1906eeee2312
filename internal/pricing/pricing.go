// Package pricing converts foreign-currency unit prices into local-currency
// costs and computes savings metrics. All functions are pure; persistence and
// validation live with the callers.
package pricing

import (
	"errors"
	"strings"
)

// LocalCurrency is the currency every derived amount is expressed in.
// Prices already quoted in it carry an implicit fx rate of 1.
const LocalCurrency = "KRW"

// BlockInput is one price block as entered: a foreign unit price with the
// rates needed to land it in local currency. Tariff and additional-cost
// rates are percentages (5 means 5%), never fractions.
type BlockInput struct {
	Currency         string
	UnitPrice        float64
	FxRate           float64
	TariffRatePct    float64
	ExtraCostRatePct float64
}

// BlockDerived holds the local-currency amounts derived from a BlockInput.
type BlockDerived struct {
	LocalUnitPrice float64
	LocalTotal     float64
}

// Savings is the cost differential between the current-purchase baseline
// and the estimated-sale cost basis.
type Savings struct {
	PerUnit float64
	Total   float64
	Rate    float64
}

// Result carries all derived fields for an opportunity. Purchase and
// Savings are nil when the current-purchase block is absent: "no data"
// is distinct from zero and must never be collapsed into it.
type Result struct {
	Purchase *BlockDerived
	Estimate BlockDerived
	Savings  *Savings
}

// EffectiveFxRate returns the fx rate to apply for the block.
// The local currency always converts at 1 regardless of the entered rate.
func (in BlockInput) EffectiveFxRate() float64 {
	if strings.EqualFold(in.Currency, LocalCurrency) {
		return 1
	}
	return in.FxRate
}

// ValidateBlock reports whether the block can be derived. Foreign-currency
// blocks need a positive fx rate; local-currency blocks may omit it since
// the effective rate is always 1.
func ValidateBlock(in BlockInput) error {
	if !strings.EqualFold(in.Currency, LocalCurrency) && in.FxRate <= 0 {
		return errors.New("fx rate must be greater than zero for foreign currencies")
	}
	return nil
}

// LocalUnitPrice converts the block's foreign unit price into local currency,
// including tariff and additional-cost loadings.
func LocalUnitPrice(in BlockInput) float64 {
	return in.UnitPrice * in.EffectiveFxRate() * (1 + in.TariffRatePct/100 + in.ExtraCostRatePct/100)
}

// DeriveBlock computes the local unit price and local total for a block
// at the given quantity.
func DeriveBlock(in BlockInput, quantity float64) BlockDerived {
	unit := LocalUnitPrice(in)
	return BlockDerived{
		LocalUnitPrice: unit,
		LocalTotal:     unit * quantity,
	}
}

// ComputeSavings derives savings from a present current-purchase local unit
// price and the estimate local unit price. The rate is 0 when the baseline
// is 0 to avoid dividing by zero.
func ComputeSavings(currentLocalUnit, estimateLocalUnit, quantity float64) Savings {
	perUnit := currentLocalUnit - estimateLocalUnit
	s := Savings{
		PerUnit: perUnit,
		Total:   perUnit * quantity,
	}
	if currentLocalUnit != 0 {
		s.Rate = perUnit / currentLocalUnit
	}
	return s
}

// Compute derives every pricing field for an opportunity. A nil purchase
// block yields nil Purchase and nil Savings.
func Compute(purchase *BlockInput, estimate BlockInput, quantity float64) Result {
	res := Result{
		Estimate: DeriveBlock(estimate, quantity),
	}
	if purchase != nil {
		derived := DeriveBlock(*purchase, quantity)
		savings := ComputeSavings(derived.LocalUnitPrice, res.Estimate.LocalUnitPrice, quantity)
		res.Purchase = &derived
		res.Savings = &savings
	}
	return res
}
