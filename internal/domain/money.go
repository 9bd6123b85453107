package domain

import "fmt"

// All amounts in this package are int64 minor units (cents). Conversion to
// and from decimal happens only at the transport boundary.

const refundPercent = 80

// RefundSplit computes the refund and retained portions of a cancelled paid
// booking. The refund is 80% of the total, rounded half-up to the nearest
// cent; the retained amount is the remainder so the two always sum to total.
func RefundSplit(totalCents int64) (refundCents, retainedCents int64) {
	refundCents = (totalCents*refundPercent + 50) / 100
	retainedCents = totalCents - refundCents
	return refundCents, retainedCents
}

// FormatCents renders minor units as a decimal string, e.g. 82025 -> "820.25".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
