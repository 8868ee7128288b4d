package trading

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/shopspring/decimal"
)

func normalizeLimitOrder(params LimitOrderParams) (entity.OrderRequest, error) {
	side, err := parseSide(params.Side)
	if err != nil {
		return entity.OrderRequest{}, err
	}

	size := decimal.NewFromFloat(params.Size)
	if !size.IsPositive() {
		return entity.OrderRequest{}, fmt.Errorf("%w: size must be > 0", ErrValidation)
	}

	price := decimal.NewFromFloat(params.Price)
	if !price.IsPositive() {
		return entity.OrderRequest{}, fmt.Errorf("%w: price must be > 0 for limit orders", ErrValidation)
	}

	timeInForce := entity.TimeInForceGoodTillTime
	if params.PostOnly {
		timeInForce = entity.TimeInForcePostOnly
	}

	return entity.OrderRequest{
		MarketIndex:   params.MarketIndex,
		Side:          side,
		Size:          size,
		Price:         price,
		ReduceOnly:    params.ReduceOnly,
		PostOnly:      params.PostOnly,
		ClientOrderID: resolveClientOrderID(params.ClientOrderID),
		Type:          entity.OrderTypeLimit,
		TimeInForce:   timeInForce,
	}, nil
}

func normalizeMarketOrder(params MarketOrderParams, defaultSlippage decimal.Decimal) (entity.OrderRequest, error) {
	side, err := parseSide(params.Side)
	if err != nil {
		return entity.OrderRequest{}, err
	}

	size := decimal.NewFromFloat(params.Size)
	if !size.IsPositive() {
		return entity.OrderRequest{}, fmt.Errorf("%w: size must be > 0", ErrValidation)
	}

	slippage, err := resolveSlippage(params.Slippage, defaultSlippage)
	if err != nil {
		return entity.OrderRequest{}, err
	}

	return entity.OrderRequest{
		MarketIndex:   params.MarketIndex,
		Side:          side,
		Size:          size,
		Slippage:      slippage,
		ReduceOnly:    params.ReduceOnly,
		ClientOrderID: resolveClientOrderID(params.ClientOrderID),
		Type:          entity.OrderTypeMarket,
		TimeInForce:   entity.TimeInForceImmediateOrCancel,
	}, nil
}

// normalizeClose builds the skeleton of a position-close order; side and size
// are filled in once the open position is known.
func normalizeClose(marketIndex int64, slippage *float64, defaultSlippage decimal.Decimal) (entity.OrderRequest, error) {
	resolved, err := resolveSlippage(slippage, defaultSlippage)
	if err != nil {
		return entity.OrderRequest{}, err
	}

	return entity.OrderRequest{
		MarketIndex:   marketIndex,
		Slippage:      resolved,
		ReduceOnly:    true,
		ClientOrderID: resolveClientOrderID(0),
		Type:          entity.OrderTypeMarket,
		TimeInForce:   entity.TimeInForceImmediateOrCancel,
	}, nil
}

func normalizeLeverage(leverage int64, marginMode string) (entity.MarginMode, error) {
	if leverage < 1 || leverage > 100 {
		return "", fmt.Errorf("%w: leverage must be between 1 and 100", ErrValidation)
	}

	switch strings.ToLower(strings.TrimSpace(marginMode)) {
	case "cross":
		return entity.MarginModeCross, nil
	case "isolated":
		return entity.MarginModeIsolated, nil
	default:
		return "", fmt.Errorf("%w: margin mode must be cross or isolated", ErrValidation)
	}
}

// parseSide rejects anything that is not an explicit buy or sell.
func parseSide(raw string) (entity.OrderSide, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return entity.OrderSideBuy, nil
	case "sell":
		return entity.OrderSideSell, nil
	default:
		return "", fmt.Errorf("%w: side must be buy or sell", ErrValidation)
	}
}

var maxSlippagePercent = decimal.NewFromInt(100)

func resolveSlippage(requested *float64, fallback decimal.Decimal) (decimal.Decimal, error) {
	if requested == nil {
		return fallback, nil
	}

	slippage := decimal.NewFromFloat(*requested)
	if slippage.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: slippage must be >= 0", ErrValidation)
	}
	// At 100% a sell's execution price reaches zero; beyond it the price goes
	// negative.
	if slippage.GreaterThanOrEqual(maxSlippagePercent) {
		return decimal.Decimal{}, fmt.Errorf("%w: slippage must be < 100", ErrValidation)
	}

	return slippage, nil
}

// resolveClientOrderID keeps a caller-supplied id and otherwise draws a random
// 63-bit identifier, which unlike a millisecond timestamp stays collision-free
// under concurrent callers.
func resolveClientOrderID(requested int64) int64 {
	if requested > 0 {
		return requested
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixMilli()
	}

	id := int64(binary.BigEndian.Uint64(buf[:]) >> 1)
	if id == 0 {
		id = time.Now().UnixMilli()
	}

	return id
}
