package trading

import (
	"testing"

	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/shopspring/decimal"
)

func TestMapPositionsProbesFieldSpellings(t *testing.T) {
	records := []map[string]any{
		{"market_id": float64(0), "position": "0.5", "sign": float64(1)},
		{"market_index": float64(1), "size": "-2.25"},
		{"market_id": float64(2), "position": "0"},      // zero size, dropped
		{"position": "1.0"},                             // no market, dropped
		{"market_id": float64(3), "position": "3", "sign": float64(-1)},
	}

	positions := mapPositions(records)
	if len(positions) != 3 {
		t.Fatalf("mapped %d positions, want 3", len(positions))
	}

	if positions[0].MarketIndex != 0 || positions[0].Side != entity.OrderSideBuy {
		t.Fatalf("positions[0] = %+v, want market 0 buy", positions[0])
	}
	if !positions[0].Size.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("positions[0].Size = %s, want 0.5", positions[0].Size)
	}

	// Negative size with no sign field implies a short.
	if positions[1].Side != entity.OrderSideSell {
		t.Fatalf("positions[1].Side = %s, want sell", positions[1].Side)
	}
	if !positions[1].Size.Equal(decimal.RequireFromString("2.25")) {
		t.Fatalf("positions[1].Size = %s, want absolute 2.25", positions[1].Size)
	}

	if positions[2].Side != entity.OrderSideSell {
		t.Fatalf("positions[2].Side = %s, want sell from sign=-1", positions[2].Side)
	}
}

func TestMapOpenOrders(t *testing.T) {
	records := []map[string]any{
		{
			"order_index":           float64(101),
			"market_index":          float64(0),
			"client_order_index":    float64(7),
			"is_ask":                true,
			"remaining_base_amount": "1.5",
			"price":                 "100.25",
			"status":                "open",
		},
		{
			"order_id":  float64(102),
			"market_id": float64(1),
			"side":      "buy",
			"size":      "0.25",
			"price":     float64(99),
		},
		{"market_id": float64(2)}, // no order index, dropped
	}

	orders := mapOpenOrders(records)
	if len(orders) != 2 {
		t.Fatalf("mapped %d orders, want 2", len(orders))
	}

	first := orders[0]
	if first.OrderIndex != 101 || first.Side != entity.OrderSideSell {
		t.Fatalf("orders[0] = %+v", first)
	}
	if !first.Status.Valid || first.Status.String != "open" {
		t.Fatalf("orders[0].Status = %+v, want open", first.Status)
	}
	if !first.ClientOrderIndex.Valid || first.ClientOrderIndex.Int64 != 7 {
		t.Fatalf("orders[0].ClientOrderIndex = %+v, want 7", first.ClientOrderIndex)
	}
	if !first.Size.Equal(decimal.RequireFromString("1.5")) || !first.Price.Equal(decimal.RequireFromString("100.25")) {
		t.Fatalf("orders[0] size/price = %s/%s", first.Size, first.Price)
	}

	second := orders[1]
	if second.OrderIndex != 102 || second.MarketIndex != 1 || second.Side != entity.OrderSideBuy {
		t.Fatalf("orders[1] = %+v", second)
	}
	if !second.Price.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("orders[1].Price = %s, want 99", second.Price)
	}
	// Fields the upstream record omits come back null, not zero-valued.
	if second.Status.Valid || second.ClientOrderIndex.Valid {
		t.Fatalf("orders[1] optional fields = %+v/%+v, want null", second.ClientOrderIndex, second.Status)
	}
}
