package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icalvete/facturador/internal/services"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "FAC-2026-0007", services.FormatInvoiceNumber("FAC", 2026, 7))
	assert.Equal(t, "INV-2026-1234", services.FormatInvoiceNumber("INV", 2026, 1234))
	// Sequences past 9999 widen instead of wrapping.
	assert.Equal(t, "FAC-2026-10001", services.FormatInvoiceNumber("FAC", 2026, 10001))
}

func TestNumberPattern(t *testing.T) {
	re := services.NumberPattern("FAC", 2026)

	m := re.FindStringSubmatch("FAC-2026-0042")
	if assert.Len(t, m, 2) {
		assert.Equal(t, "0042", m[1])
	}

	assert.Nil(t, re.FindStringSubmatch("FAC-2025-0042"), "other years do not match")
	assert.Nil(t, re.FindStringSubmatch("INV-2026-0042"), "other prefixes do not match")
	assert.Nil(t, re.FindStringSubmatch("FAC-2026-42"), "unpadded sequences do not match")

	dotted := services.NumberPattern("A.B", 2026)
	assert.NotNil(t, dotted.FindStringSubmatch("A.B-2026-0001"))
	assert.Nil(t, dotted.FindStringSubmatch("AXB-2026-0001"), "prefix metacharacters are quoted")
}

func TestNumberLikePrefix(t *testing.T) {
	assert.Equal(t, "FAC-2026-%", services.NumberLikePrefix("FAC", 2026))
}
