// Package normalize canonicalizes free-text product names so that
// independently entered opportunity and supplier rows can be matched
// without a shared identifier.
package normalize

import (
	"strings"
	"unicode"
)

// ProductKey returns the canonical form of a product name: lowercased,
// trimmed, internal whitespace runs collapsed to a single space, and all
// characters removed except Latin and Hangul letters, digits, spaces and
// hyphens. Two names refer to the same product iff their keys are equal.
func ProductKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingSpace := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if !isProductRune(r) {
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// SameProduct reports whether two free-text product names refer to the
// same product under key normalization.
func SameProduct(a, b string) bool {
	return ProductKey(a) == ProductKey(b)
}

func isProductRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case unicode.IsDigit(r):
		return true
	case r == '-':
		return true
	case unicode.Is(unicode.Hangul, r):
		return true
	case unicode.Is(unicode.Latin, r):
		// Accented Latin letters survive ToLower (e.g. é) and still count
		// as letters for matching purposes.
		return true
	}
	return false
}
