package market

import "github.com/shopspring/decimal"

// BaseAmount converts a human-readable size into the exchange's smallest unit:
// floor(size * 10^sizeDecimals). Truncation, not rounding, matches the
// exchange's integer tick representation.
func BaseAmount(size decimal.Decimal, sizeDecimals int32) int64 {
	return size.Shift(sizeDecimals).IntPart()
}

// PriceInt converts a human-readable price into integer ticks:
// floor(price * 10^priceDecimals).
func PriceInt(price decimal.Decimal, priceDecimals int32) int64 {
	return price.Shift(priceDecimals).IntPart()
}
