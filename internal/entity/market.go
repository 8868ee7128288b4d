package entity

import "github.com/shopspring/decimal"

// MarketDecimals holds the two integer precisions fixed for a market's
// lifetime.
type MarketDecimals struct {
	SizeDecimals  int32
	PriceDecimals int32
}

// MarketDetail is one entry of the exchange's order book listing.
type MarketDetail struct {
	MarketIndex   int64
	Symbol        string
	SizeDecimals  int32
	PriceDecimals int32
}

// OrderBookTop is the best bid/ask for a market at a point in time. Either
// side may be absent.
type OrderBookTop struct {
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	HasBid bool
	HasAsk bool
}
