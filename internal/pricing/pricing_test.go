package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveFxRate(t *testing.T) {
	t.Run("foreign currency uses entered rate", func(t *testing.T) {
		in := BlockInput{Currency: "USD", FxRate: 1350}
		assert.Equal(t, 1350.0, in.EffectiveFxRate())
	})

	t.Run("local currency forces rate of one", func(t *testing.T) {
		in := BlockInput{Currency: "KRW", FxRate: 42}
		assert.Equal(t, 1.0, in.EffectiveFxRate())

		in.Currency = "krw"
		assert.Equal(t, 1.0, in.EffectiveFxRate())
	})
}

func TestValidateBlock(t *testing.T) {
	t.Run("foreign currency requires a positive fx rate", func(t *testing.T) {
		assert.Error(t, ValidateBlock(BlockInput{Currency: "USD", UnitPrice: 10}))
		assert.Error(t, ValidateBlock(BlockInput{Currency: "EUR", UnitPrice: 10, FxRate: -1}))
		assert.NoError(t, ValidateBlock(BlockInput{Currency: "USD", UnitPrice: 10, FxRate: 1300}))
	})

	t.Run("local currency may omit the fx rate", func(t *testing.T) {
		assert.NoError(t, ValidateBlock(BlockInput{Currency: "KRW", UnitPrice: 5000}))
		assert.NoError(t, ValidateBlock(BlockInput{Currency: "krw", UnitPrice: 5000}))
	})
}

func TestLocalUnitPrice(t *testing.T) {
	t.Run("applies fx and rate loadings", func(t *testing.T) {
		in := BlockInput{
			Currency:         "USD",
			UnitPrice:        10,
			FxRate:           1300,
			TariffRatePct:    8,
			ExtraCostRatePct: 2,
		}
		// 10 * 1300 * 1.10
		assert.InDelta(t, 14300, LocalUnitPrice(in), 1e-9)
	})

	t.Run("local currency ignores entered fx rate", func(t *testing.T) {
		in := BlockInput{Currency: "KRW", UnitPrice: 5000, FxRate: 1300}
		assert.InDelta(t, 5000, LocalUnitPrice(in), 1e-9)
	})
}

func TestDeriveBlock(t *testing.T) {
	in := BlockInput{Currency: "USD", UnitPrice: 10, FxRate: 1000}
	derived := DeriveBlock(in, 250)
	assert.InDelta(t, 10000, derived.LocalUnitPrice, 1e-9)
	assert.InDelta(t, 2500000, derived.LocalTotal, 1e-9)
}

func TestComputeSavings(t *testing.T) {
	t.Run("positive saving", func(t *testing.T) {
		s := ComputeSavings(1000, 800, 100)
		assert.InDelta(t, 200, s.PerUnit, 1e-9)
		assert.InDelta(t, 20000, s.Total, 1e-9)
		assert.InDelta(t, 0.2, s.Rate, 1e-9)
	})

	t.Run("negative saving when estimate is dearer", func(t *testing.T) {
		s := ComputeSavings(800, 1000, 100)
		assert.InDelta(t, -200, s.PerUnit, 1e-9)
		assert.InDelta(t, -0.25, s.Rate, 1e-9)
	})

	t.Run("zero baseline yields zero rate", func(t *testing.T) {
		s := ComputeSavings(0, 100, 10)
		assert.Equal(t, 0.0, s.Rate)
	})
}

func TestCompute(t *testing.T) {
	estimate := BlockInput{Currency: "USD", UnitPrice: 8, FxRate: 1000}

	t.Run("without purchase block", func(t *testing.T) {
		res := Compute(nil, estimate, 100)
		assert.Nil(t, res.Purchase)
		assert.Nil(t, res.Savings)
		assert.InDelta(t, 8000, res.Estimate.LocalUnitPrice, 1e-9)
	})

	t.Run("with purchase block", func(t *testing.T) {
		purchase := &BlockInput{Currency: "USD", UnitPrice: 10, FxRate: 1000}
		res := Compute(purchase, estimate, 100)
		require.NotNil(t, res.Purchase)
		require.NotNil(t, res.Savings)
		assert.InDelta(t, 10000, res.Purchase.LocalUnitPrice, 1e-9)
		assert.InDelta(t, 2000, res.Savings.PerUnit, 1e-9)
		assert.InDelta(t, 200000, res.Savings.Total, 1e-9)
		assert.InDelta(t, 0.2, res.Savings.Rate, 1e-9)
	})
}
