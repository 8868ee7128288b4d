package trading

import (
	"github.com/guregu/null/v6"
	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/shopspring/decimal"
)

// The exchange's account schema drifts between versions (`position` vs `size`,
// `market_index` vs `market_id`, numeric vs string amounts), so every record
// is probed across the known spellings and normalized here, at the boundary.

// mapPositions normalizes raw position records, dropping anything with zero
// size. Size is reported as an absolute magnitude with the direction in Side.
func mapPositions(records []map[string]any) []entity.Position {
	positions := make([]entity.Position, 0, len(records))

	for _, record := range records {
		marketIndex, ok := intFromRecord(record, "market_index", "market_id")
		if !ok {
			continue
		}

		size, ok := decimalFromRecord(record, "position", "size")
		if !ok || size.IsZero() {
			continue
		}

		side := entity.OrderSideBuy
		if sign, ok := intFromRecord(record, "sign"); ok {
			if sign < 0 {
				side = entity.OrderSideSell
			}
		} else if size.IsNegative() {
			side = entity.OrderSideSell
		}

		positions = append(positions, entity.Position{
			MarketIndex: marketIndex,
			Size:        size.Abs(),
			Side:        side,
		})
	}

	return positions
}

// mapOpenOrders normalizes raw active order records.
func mapOpenOrders(records []map[string]any) []entity.OpenOrder {
	orders := make([]entity.OpenOrder, 0, len(records))

	for _, record := range records {
		orderIndex, ok := intFromRecord(record, "order_index", "index", "order_id")
		if !ok {
			continue
		}

		marketIndex, _ := intFromRecord(record, "market_index", "market_id")
		clientOrderIndex, hasClientOrderIndex := intFromRecord(record, "client_order_index", "client_order_id")

		size, _ := decimalFromRecord(record, "remaining_base_amount", "size", "initial_base_amount")
		price, _ := decimalFromRecord(record, "price")

		side := entity.OrderSideBuy
		if isAsk, ok := boolFromRecord(record, "is_ask"); ok && isAsk {
			side = entity.OrderSideSell
		} else if raw, ok := stringFromRecord(record, "side"); ok && raw == "sell" {
			side = entity.OrderSideSell
		}

		status, hasStatus := stringFromRecord(record, "status")

		orders = append(orders, entity.OpenOrder{
			MarketIndex:      marketIndex,
			OrderIndex:       orderIndex,
			ClientOrderIndex: null.NewInt(clientOrderIndex, hasClientOrderIndex),
			Side:             side,
			Size:             size.Abs(),
			Price:            price,
			Status:           null.NewString(status, hasStatus),
		})
	}

	return orders
}

func intFromRecord(record map[string]any, keys ...string) (int64, bool) {
	for _, key := range keys {
		value, ok := record[key]
		if !ok {
			continue
		}

		switch v := value.(type) {
		case float64:
			return int64(v), true
		case int64:
			return v, true
		case int:
			return int64(v), true
		case string:
			if parsed, err := decimal.NewFromString(v); err == nil {
				return parsed.IntPart(), true
			}
		}
	}

	return 0, false
}

func decimalFromRecord(record map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		value, ok := record[key]
		if !ok {
			continue
		}

		switch v := value.(type) {
		case string:
			if parsed, err := decimal.NewFromString(v); err == nil {
				return parsed, true
			}
		case float64:
			return decimal.NewFromFloat(v), true
		case int64:
			return decimal.NewFromInt(v), true
		}
	}

	return decimal.Decimal{}, false
}

func stringFromRecord(record map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := record[key].(string); ok && value != "" {
			return value, true
		}
	}

	return "", false
}

func boolFromRecord(record map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		switch v := record[key].(type) {
		case bool:
			return v, true
		case float64:
			return v != 0, true
		}
	}

	return false, false
}
