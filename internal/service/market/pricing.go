package market

import (
	"errors"

	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/shopspring/decimal"
)

var ErrNoLiquidity = errors.New("no liquidity on required order book side")

var oneHundred = decimal.NewFromInt(100)

// ExecutionPrice derives the worst acceptable fill price for an immediate
// order. A sell consumes bids, so the reference is the best bid discounted by
// the slippage margin; a buy consumes asks, so the reference is the best ask
// marked up by the same margin. Slippage is given in percent (0.5 means 0.5%).
func ExecutionPrice(top entity.OrderBookTop, side entity.OrderSide, slippagePercent decimal.Decimal) (decimal.Decimal, error) {
	fraction := slippagePercent.Div(oneHundred)

	if side == entity.OrderSideSell {
		if !top.HasBid {
			return decimal.Decimal{}, ErrNoLiquidity
		}

		return top.Bid.Mul(decimal.NewFromInt(1).Sub(fraction)), nil
	}

	if !top.HasAsk {
		return decimal.Decimal{}, ErrNoLiquidity
	}

	return top.Ask.Mul(decimal.NewFromInt(1).Add(fraction)), nil
}
