package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageIsValid(t *testing.T) {
	for _, stage := range ForwardStages {
		assert.True(t, stage.IsValid(), string(stage))
	}
	assert.True(t, StageLost.IsValid())
	assert.True(t, StageOnHold.IsValid())
	assert.False(t, Stage("SHIPPED").IsValid())
	assert.False(t, Stage("").IsValid())
}

func TestStageProgress(t *testing.T) {
	assert.Equal(t, 0, StageMarketResearch.Progress())
	assert.Equal(t, 10, StageSourcingCompleted.Progress())
	assert.Equal(t, 100, StageWon.Progress())
	assert.Equal(t, 0, StageLost.Progress())
	assert.Equal(t, 50, StageOnHold.Progress())
}

func TestStageOrdinal(t *testing.T) {
	t.Run("forward stages are ordered", func(t *testing.T) {
		prev := -1
		for _, stage := range ForwardStages {
			i, ok := stage.Ordinal()
			assert.True(t, ok)
			assert.Greater(t, i, prev)
			prev = i
		}
	})

	t.Run("side states have no ordinal", func(t *testing.T) {
		_, ok := StageLost.Ordinal()
		assert.False(t, ok)
		_, ok = StageOnHold.Ordinal()
		assert.False(t, ok)
	})
}

func TestStageAtOrAfter(t *testing.T) {
	assert.True(t, StageWon.AtOrAfter(StageMarketResearch))
	assert.True(t, StageSourcingCompleted.AtOrAfter(StageSourcingCompleted))
	assert.False(t, StageSourcingRequest.AtOrAfter(StageSourcingCompleted))

	// Side states never compare
	assert.False(t, StageLost.AtOrAfter(StageMarketResearch))
	assert.False(t, StageWon.AtOrAfter(StageOnHold))
}

func TestStageRequiresSupplier(t *testing.T) {
	assert.False(t, StageMarketResearch.RequiresSupplier())
	assert.False(t, StageSourcingRequest.RequiresSupplier())
	assert.True(t, StageSourcingCompleted.RequiresSupplier())
	assert.True(t, StageQuoteSent.RequiresSupplier())
	assert.True(t, StageWon.RequiresSupplier())
	assert.False(t, StageLost.RequiresSupplier())
	assert.False(t, StageOnHold.RequiresSupplier())
}
