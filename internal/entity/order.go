package entity

import (
	"github.com/shopspring/decimal"
)

type OrderSide string
type OrderType string
type TimeInForce string
type MarginMode string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"

	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"

	TimeInForceGoodTillTime      TimeInForce = "good_till_time"
	TimeInForceImmediateOrCancel TimeInForce = "immediate_or_cancel"
	TimeInForcePostOnly          TimeInForce = "post_only"

	MarginModeCross    MarginMode = "cross"
	MarginModeIsolated MarginMode = "isolated"
)

// OrderRequest is a validated, side-aware order specification. Price is zero
// for market orders until the execution price resolver fills it in.
type OrderRequest struct {
	MarketIndex   int64
	Side          OrderSide
	Size          decimal.Decimal
	Price         decimal.Decimal
	Slippage      decimal.Decimal // in percentage, e.g. 0.5 for 0.5%
	ReduceOnly    bool
	PostOnly      bool
	ClientOrderID int64
	Type          OrderType
	TimeInForce   TimeInForce
}

func (r OrderRequest) IsAsk() bool {
	return r.Side == OrderSideSell
}

// QuantizedOrder is the integer representation consumed by the signing client.
// BaseAmount is size scaled by 10^sizeDecimals, Price by 10^priceDecimals,
// both truncated.
type QuantizedOrder struct {
	MarketIndex      int64
	ClientOrderIndex int64
	BaseAmount       int64
	Price            int64
	IsAsk            bool
	Type             OrderType
	TimeInForce      TimeInForce
	ReduceOnly       bool
}
