package utils

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a scanned pgtype.Numeric into a decimal without
// a float64 round trip. Invalid/NaN values become zero.
func NumericToDecimal(value pgtype.Numeric) decimal.Decimal {
	if !value.Valid || value.NaN || value.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value.Int, value.Exp)
}

// DecimalParam renders a decimal as a 2dp string for numeric query params.
func DecimalParam(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// MinorUnits returns the amount in currency minor units (cents).
func MinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts provider minor-unit amounts back to a decimal.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
