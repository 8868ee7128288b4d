package entity

import (
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Position is a normalized, read-only snapshot of one open position. Size is
// always the absolute magnitude, the direction lives in Side.
type Position struct {
	MarketIndex int64           `json:"market_index"`
	Size        decimal.Decimal `json:"size"`
	Side        OrderSide       `json:"side"`
}

// OpenOrder is a normalized open order from the account's active order list.
// ClientOrderIndex and Status are null when the upstream record omits them.
type OpenOrder struct {
	MarketIndex      int64           `json:"market_index"`
	OrderIndex       int64           `json:"order_index"`
	ClientOrderIndex null.Int        `json:"client_order_index"`
	Side             OrderSide       `json:"side"`
	Size             decimal.Decimal `json:"size"`
	Price            decimal.Decimal `json:"price"`
	Status           null.String     `json:"status"`
}
