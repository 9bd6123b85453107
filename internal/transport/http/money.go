package http

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Amounts cross the wire as decimals ("820.25") and live internally as
// int64 minor units. The conversion happens here and nowhere else.

var errFractionalCents = errors.New("amount has more than two decimal places")

func decimalToCents(d decimal.Decimal) (int64, error) {
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, errFractionalCents
	}
	return cents.IntPart(), nil
}

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
