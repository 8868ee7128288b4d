package signer

import (
	"context"
	"fmt"
	"time"

	"github.com/elliottech/lighter-go/client"
	lighterhttp "github.com/elliottech/lighter-go/client/http"
	"github.com/elliottech/lighter-go/types"
	"github.com/elliottech/lighter-go/types/txtypes"
	"github.com/maxwellmelo/lighter-backend/internal/entity"
)

// Wire-level codes used by the Lighter L2 transaction format.
const (
	orderTypeLimit  uint8 = 0
	orderTypeMarket uint8 = 1

	tifImmediateOrCancel uint8 = 0
	tifGoodTillTime      uint8 = 1
	tifPostOnly          uint8 = 2

	marginModeCross    uint8 = 0
	marginModeIsolated uint8 = 1
)

// Good-till-time orders rest for up to 28 days, the exchange maximum.
const defaultOrderLifetime = 28 * 24 * time.Hour

// LighterSigner adapts the official lighter-go SDK to the Client interface.
type LighterSigner struct {
	http client.MinimalHTTPClient
	tx   *client.TxClient
}

func NewLighterSigner(baseURL, apiPrivateKey string, accountIndex int64, apiKeyIndex uint8, chainID uint32) (*LighterSigner, error) {
	httpClient := lighterhttp.NewClient(baseURL)

	txClient, err := client.NewTxClient(httpClient, apiPrivateKey, accountIndex, apiKeyIndex, chainID)
	if err != nil {
		return nil, fmt.Errorf("init lighter tx client: %w", err)
	}

	return &LighterSigner{http: httpClient, tx: txClient}, nil
}

func (s *LighterSigner) CreateOrder(ctx context.Context, order *entity.QuantizedOrder) (*TxResult, error) {
	req := &types.CreateOrderTxReq{
		MarketIndex:      int16(order.MarketIndex),
		ClientOrderIndex: order.ClientOrderIndex,
		BaseAmount:       order.BaseAmount,
		Price:            uint32(order.Price),
		IsAsk:            boolToUint8(order.IsAsk),
		Type:             orderTypeCode(order.Type),
		TimeInForce:      timeInForceCode(order.TimeInForce),
		ReduceOnly:       boolToUint8(order.ReduceOnly),
		TriggerPrice:     0,
		OrderExpiry:      orderExpiry(order.TimeInForce),
	}

	txInfo, err := s.tx.GetCreateOrderTransaction(req, transactOpts(ctx))
	if err != nil {
		return nil, fmt.Errorf("sign create order: %w", err)
	}

	txHash, err := s.http.SendRawTx(txtypes.TxTypeL2CreateOrder, txInfo)
	if err != nil {
		return nil, fmt.Errorf("send create order: %w", err)
	}

	return &TxResult{TxHash: txHash}, nil
}

func (s *LighterSigner) CancelOrder(ctx context.Context, marketIndex, orderIndex int64) (*TxResult, error) {
	req := &types.CancelOrderTxReq{
		MarketIndex: int16(marketIndex),
		Index:       orderIndex,
	}

	txInfo, err := s.tx.GetCancelOrderTransaction(req, transactOpts(ctx))
	if err != nil {
		return nil, fmt.Errorf("sign cancel order: %w", err)
	}

	txHash, err := s.http.SendRawTx(txtypes.TxTypeL2CancelOrder, txInfo)
	if err != nil {
		return nil, fmt.Errorf("send cancel order: %w", err)
	}

	return &TxResult{TxHash: txHash}, nil
}

func (s *LighterSigner) UpdateLeverage(ctx context.Context, marketIndex, leverage int64, marginMode entity.MarginMode) (*TxResult, error) {
	req := &types.UpdateLeverageTxReq{
		MarketIndex:           int16(marketIndex),
		InitialMarginFraction: marginFraction(leverage),
		MarginMode:            marginModeCode(marginMode),
	}

	txInfo, err := s.tx.GetUpdateLeverageTransaction(req, transactOpts(ctx))
	if err != nil {
		return nil, fmt.Errorf("sign update leverage: %w", err)
	}

	txHash, err := s.http.SendRawTx(txtypes.TxTypeL2UpdateLeverage, txInfo)
	if err != nil {
		return nil, fmt.Errorf("send update leverage: %w", err)
	}

	return &TxResult{TxHash: txHash}, nil
}

func (s *LighterSigner) AuthToken(ctx context.Context, deadline time.Time) (string, error) {
	token, err := s.tx.GetAuthToken(deadline)
	if err != nil {
		return "", fmt.Errorf("create auth token: %w", err)
	}

	return token, nil
}

func transactOpts(ctx context.Context) *types.TransactOpts {
	_ = ctx // the SDK does not thread a context through signing
	return nil
}

// marginFraction converts a leverage multiplier into the exchange's initial
// margin fraction, expressed in basis points of collateral (10000/leverage).
func marginFraction(leverage int64) uint16 {
	if leverage <= 0 {
		return 10000
	}

	return uint16(10000 / leverage)
}

func orderTypeCode(t entity.OrderType) uint8 {
	if t == entity.OrderTypeMarket {
		return orderTypeMarket
	}

	return orderTypeLimit
}

func timeInForceCode(tif entity.TimeInForce) uint8 {
	switch tif {
	case entity.TimeInForcePostOnly:
		return tifPostOnly
	case entity.TimeInForceImmediateOrCancel:
		return tifImmediateOrCancel
	default:
		return tifGoodTillTime
	}
}

func marginModeCode(mode entity.MarginMode) uint8 {
	if mode == entity.MarginModeIsolated {
		return marginModeIsolated
	}

	return marginModeCross
}

// orderExpiry returns the order expiry in unix milliseconds. Immediate or
// cancel orders never rest, so they carry no expiry.
func orderExpiry(tif entity.TimeInForce) int64 {
	if tif == entity.TimeInForceImmediateOrCancel {
		return 0
	}

	return time.Now().Add(defaultOrderLifetime).UnixMilli()
}

func boolToUint8(v bool) uint8 {
	if v {
		return 1
	}

	return 0
}
