package services

import (
	"fmt"
	"regexp"
)

// Invoice numbers follow PREFIX-YYYY-NNNN, e.g. FAC-2024-0007. The sequence
// restarts every calendar year and is always recomputed from existing data;
// no counter is persisted anywhere.

// FormatInvoiceNumber renders a number for the given year and sequence.
func FormatInvoiceNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, seq)
}

// NumberPattern matches numbers of the given prefix and year, capturing the
// numeric sequence suffix.
func NumberPattern(prefix string, year int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s-%04d-(\d{4})$`, regexp.QuoteMeta(prefix), year))
}

// NumberLikePrefix is the SQL LIKE prefix for a year's numbers.
func NumberLikePrefix(prefix string, year int) string {
	return fmt.Sprintf("%s-%04d-%%", prefix, year)
}
