package trading

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/maxwellmelo/lighter-backend/internal/service/market"
	"github.com/maxwellmelo/lighter-backend/internal/signer"
	"github.com/shopspring/decimal"
)

type fakeRest struct {
	top        entity.OrderBookTop
	topErr     error
	topCalls   int
	account    []byte
	accountErr error
	orders     []map[string]any
	lastToken  string
	lastMarket *int64
}

func (f *fakeRest) OrderBookTop(ctx context.Context, marketIndex int64) (entity.OrderBookTop, error) {
	_ = ctx
	_ = marketIndex
	f.topCalls++
	return f.top, f.topErr
}

func (f *fakeRest) Account(ctx context.Context, accountIndex int64) ([]byte, error) {
	_ = ctx
	_ = accountIndex
	return f.account, f.accountErr
}

func (f *fakeRest) AccountActiveOrders(ctx context.Context, accountIndex int64, marketIndex *int64, authToken string) ([]map[string]any, error) {
	_ = ctx
	_ = accountIndex
	f.lastMarket = marketIndex
	f.lastToken = authToken
	return f.orders, nil
}

type fakeSigner struct {
	created     []*entity.QuantizedOrder
	createErr   error
	cancelled   []int64
	cancelErrOn int64
	token       string
	tokenCalls  int
}

func (f *fakeSigner) CreateOrder(ctx context.Context, order *entity.QuantizedOrder) (*signer.TxResult, error) {
	_ = ctx
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, order)
	return &signer.TxResult{TxHash: "0xabc"}, nil
}

func (f *fakeSigner) CancelOrder(ctx context.Context, marketIndex, orderIndex int64) (*signer.TxResult, error) {
	_ = ctx
	_ = marketIndex
	if orderIndex == f.cancelErrOn {
		return nil, errors.New("nonce conflict")
	}
	f.cancelled = append(f.cancelled, orderIndex)
	return &signer.TxResult{TxHash: fmt.Sprintf("0x%d", orderIndex)}, nil
}

func (f *fakeSigner) UpdateLeverage(ctx context.Context, marketIndex, leverage int64, marginMode entity.MarginMode) (*signer.TxResult, error) {
	_ = ctx
	_ = marketIndex
	_ = leverage
	_ = marginMode
	return &signer.TxResult{TxHash: "0xlev"}, nil
}

func (f *fakeSigner) AuthToken(ctx context.Context, deadline time.Time) (string, error) {
	_ = ctx
	_ = deadline
	f.tokenCalls++
	if f.token == "" {
		return "token-1", nil
	}
	return f.token, nil
}

type fakeDecimals struct {
	decimals entity.MarketDecimals
}

func (f *fakeDecimals) Resolve(ctx context.Context, marketIndex int64) entity.MarketDecimals {
	_ = ctx
	_ = marketIndex
	return f.decimals
}

type fakeBooks struct {
	top entity.OrderBookTop
	ok  bool
}

func (f *fakeBooks) Top(marketIndex int64) (entity.OrderBookTop, bool) {
	_ = marketIndex
	return f.top, f.ok
}

func newTestService(rest *fakeRest, sign signer.Client, books TopProvider) *Service {
	return New(Config{
		AccountIndex:    5,
		DefaultSlippage: decimal.RequireFromString("0.5"),
	}, rest, sign, &fakeDecimals{decimals: entity.MarketDecimals{SizeDecimals: 4, PriceDecimals: 2}}, books)
}

func TestPlaceMarketOrderQuantizesExecutionPrice(t *testing.T) {
	rest := &fakeRest{top: entity.OrderBookTop{Bid: decimal.NewFromInt(100), HasBid: true}}
	sign := &fakeSigner{}
	svc := newTestService(rest, sign, nil)

	result, err := svc.PlaceMarketOrder(context.Background(), MarketOrderParams{
		MarketIndex: 1,
		Side:        "sell",
		Size:        1.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sign.created) != 1 {
		t.Fatalf("created %d orders, want 1", len(sign.created))
	}

	order := sign.created[0]
	if order.BaseAmount != 15000 {
		t.Fatalf("base amount = %d, want 15000", order.BaseAmount)
	}
	// bid 100 at 0.5% slippage -> 99.5, quantized with 2 price decimals.
	if order.Price != 9950 {
		t.Fatalf("price = %d, want 9950", order.Price)
	}
	if !order.IsAsk {
		t.Fatal("sell order must be an ask")
	}
	if order.TimeInForce != entity.TimeInForceImmediateOrCancel {
		t.Fatalf("tif = %s, want immediate_or_cancel", order.TimeInForce)
	}
	if result.TxHash != "0xabc" {
		t.Fatalf("tx hash = %s, want 0xabc", result.TxHash)
	}
}

func TestPlaceMarketOrderRejectsExcessiveSlippage(t *testing.T) {
	rest := &fakeRest{top: entity.OrderBookTop{Bid: decimal.NewFromInt(100), HasBid: true}}
	sign := &fakeSigner{}
	svc := newTestService(rest, sign, nil)

	slippage := 150.0
	_, err := svc.PlaceMarketOrder(context.Background(), MarketOrderParams{
		MarketIndex: 1,
		Side:        "sell",
		Size:        1,
		Slippage:    &slippage,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	// A negative execution price must never reach the signer.
	if len(sign.created) != 0 {
		t.Fatalf("signer received %d orders for rejected slippage", len(sign.created))
	}
}

func TestPlaceMarketOrderNoLiquidity(t *testing.T) {
	rest := &fakeRest{top: entity.OrderBookTop{}}
	svc := newTestService(rest, &fakeSigner{}, nil)

	_, err := svc.PlaceMarketOrder(context.Background(), MarketOrderParams{MarketIndex: 1, Side: "buy", Size: 1})
	if !errors.Is(err, market.ErrNoLiquidity) {
		t.Fatalf("got %v, want ErrNoLiquidity", err)
	}
}

func TestPlaceMarketOrderPrefersStreamTop(t *testing.T) {
	rest := &fakeRest{topErr: errors.New("rest should not be called")}
	books := &fakeBooks{top: entity.OrderBookTop{Ask: decimal.NewFromInt(200), HasAsk: true}, ok: true}
	sign := &fakeSigner{}
	svc := newTestService(rest, sign, books)

	_, err := svc.PlaceMarketOrder(context.Background(), MarketOrderParams{MarketIndex: 0, Side: "buy", Size: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rest.topCalls != 0 {
		t.Fatalf("rest top called %d times, want 0", rest.topCalls)
	}
	// ask 200 at default 0.5% -> 201, quantized to 20100.
	if sign.created[0].Price != 20100 {
		t.Fatalf("price = %d, want 20100", sign.created[0].Price)
	}
}

func TestPlaceLimitOrder(t *testing.T) {
	sign := &fakeSigner{}
	svc := newTestService(&fakeRest{}, sign, nil)

	result, err := svc.PlaceLimitOrder(context.Background(), LimitOrderParams{
		MarketIndex: 2,
		Side:        "buy",
		Size:        1.5,
		Price:       25000.75,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := sign.created[0]
	if order.BaseAmount != 15000 || order.Price != 2500075 {
		t.Fatalf("quantized = {%d %d}, want {15000 2500075}", order.BaseAmount, order.Price)
	}
	if order.IsAsk {
		t.Fatal("buy order must not be an ask")
	}
	if order.TimeInForce != entity.TimeInForceGoodTillTime {
		t.Fatalf("tif = %s, want good_till_time", order.TimeInForce)
	}
	if result.Type != entity.OrderTypeLimit {
		t.Fatalf("type = %s, want limit", result.Type)
	}
}

func TestPlaceLimitOrderWithoutSigner(t *testing.T) {
	svc := newTestService(&fakeRest{}, nil, nil)

	_, err := svc.PlaceLimitOrder(context.Background(), LimitOrderParams{Side: "buy", Size: 1, Price: 10})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("got %v, want ErrUpstream", err)
	}
}

func TestCancelAllOrdersIsolatesFailures(t *testing.T) {
	rest := &fakeRest{orders: []map[string]any{
		{"order_index": float64(1), "market_index": float64(0), "is_ask": false, "price": "1"},
		{"order_index": float64(2), "market_index": float64(0), "is_ask": false, "price": "1"},
		{"order_index": float64(3), "market_index": float64(0), "is_ask": false, "price": "1"},
	}}
	sign := &fakeSigner{cancelErrOn: 2}
	svc := newTestService(rest, sign, nil)

	result, err := svc.CancelAllOrders(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CancelledCount != 2 {
		t.Fatalf("cancelled count = %d, want 2", result.CancelledCount)
	}
	if len(result.CancelledOrders) != 2 || result.CancelledOrders[0] != 1 || result.CancelledOrders[1] != 3 {
		t.Fatalf("cancelled orders = %v, want [1 3]", result.CancelledOrders)
	}
	if len(result.Errors) != 1 || result.Errors[0].OrderIndex != 2 {
		t.Fatalf("errors = %v, want one entry for order 2", result.Errors)
	}
}

func TestCancelAllOrdersHonorsMarketFilter(t *testing.T) {
	rest := &fakeRest{}
	svc := newTestService(rest, &fakeSigner{}, nil)

	marketIndex := int64(4)
	if _, err := svc.CancelAllOrders(context.Background(), &marketIndex); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rest.lastMarket == nil || *rest.lastMarket != 4 {
		t.Fatalf("market filter = %v, want 4", rest.lastMarket)
	}
}

func TestClosePositionSubmitsOppositeReduceOnly(t *testing.T) {
	rest := &fakeRest{
		account: []byte(`{"accounts":[{"positions":[{"market_id":1,"position":"0.5","sign":1}]}]}`),
		top:     entity.OrderBookTop{Bid: decimal.NewFromInt(100), HasBid: true},
	}
	sign := &fakeSigner{}
	svc := newTestService(rest, sign, nil)

	result, err := svc.ClosePosition(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := sign.created[0]
	if !order.IsAsk {
		t.Fatal("closing a long must sell")
	}
	if !order.ReduceOnly {
		t.Fatal("close order must be reduce-only")
	}
	if order.BaseAmount != 5000 {
		t.Fatalf("base amount = %d, want 5000 for size 0.5", order.BaseAmount)
	}
	if result.Side != entity.OrderSideSell {
		t.Fatalf("side = %s, want sell", result.Side)
	}
}

func TestClosePositionWithoutPosition(t *testing.T) {
	rest := &fakeRest{account: []byte(`{"accounts":[{"positions":[]}]}`)}
	svc := newTestService(rest, &fakeSigner{}, nil)

	_, err := svc.ClosePosition(context.Background(), 9, nil)
	if !errors.Is(err, ErrNoPosition) {
		t.Fatalf("got %v, want ErrNoPosition", err)
	}
}

func TestPositionsFiltersZeroSize(t *testing.T) {
	rest := &fakeRest{account: []byte(`{"accounts":[{"positions":[
		{"market_id":0,"position":"0"},
		{"market_id":1,"position":"-1.5"}
	]}]}`)}
	svc := newTestService(rest, &fakeSigner{}, nil)

	positions, err := svc.Positions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}
	if positions[0].Side != entity.OrderSideSell || !positions[0].Size.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("positions[0] = %+v, want sell 1.5", positions[0])
	}
}

func TestOpenOrdersReusesAuthToken(t *testing.T) {
	rest := &fakeRest{}
	sign := &fakeSigner{}
	svc := newTestService(rest, sign, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.OpenOrders(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if sign.tokenCalls != 1 {
		t.Fatalf("auth token minted %d times, want 1", sign.tokenCalls)
	}
	if rest.lastToken != "token-1" {
		t.Fatalf("token passed to rest = %q, want token-1", rest.lastToken)
	}
}

func TestAuthTokenClampsExpiry(t *testing.T) {
	sign := &fakeSigner{}
	svc := newTestService(&fakeRest{}, sign, nil)

	_, deadline, err := svc.AuthToken(context.Background(), 100*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if time.Until(deadline) > 8*time.Hour+time.Minute {
		t.Fatalf("deadline %s exceeds the 8h maximum", deadline)
	}
}
