package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductKey(t *testing.T) {
	t.Run("lowercases and trims", func(t *testing.T) {
		assert.Equal(t, "atorvastatin calcium", ProductKey("  Atorvastatin Calcium  "))
	})

	t.Run("collapses internal whitespace", func(t *testing.T) {
		assert.Equal(t, "atorvastatin calcium", ProductKey("Atorvastatin\t  Calcium"))
	})

	t.Run("strips punctuation but keeps hyphens and digits", func(t *testing.T) {
		assert.Equal(t, "omega-3 90 ee", ProductKey("Omega-3 (90% EE)"))
	})

	t.Run("keeps hangul", func(t *testing.T) {
		assert.Equal(t, "아토르바스타틴", ProductKey(" 아토르바스타틴 "))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", ProductKey(""))
		assert.Equal(t, "", ProductKey("   "))
		assert.Equal(t, "", ProductKey("()%/"))
	})
}

func TestSameProduct(t *testing.T) {
	assert.True(t, SameProduct("Atorvastatin Calcium", "atorvastatin   CALCIUM"))
	assert.True(t, SameProduct("Omega-3 (90% EE)", "omega-3 90 ee"))
	assert.False(t, SameProduct("Atorvastatin", "Rosuvastatin"))
}
