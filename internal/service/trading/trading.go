package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/maxwellmelo/lighter-backend/internal/service/market"
	"github.com/maxwellmelo/lighter-backend/internal/signer"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrUpstream   = errors.New("upstream call failed")
	ErrNoPosition = errors.New("no open position for market")
)

// RestAPI is the read-only slice of the exchange API the service needs.
type RestAPI interface {
	OrderBookTop(ctx context.Context, marketIndex int64) (entity.OrderBookTop, error)
	Account(ctx context.Context, accountIndex int64) ([]byte, error)
	AccountActiveOrders(ctx context.Context, accountIndex int64, marketIndex *int64, authToken string) ([]map[string]any, error)
}

// DecimalResolver resolves a market's size/price decimal precisions.
type DecimalResolver interface {
	Resolve(ctx context.Context, marketIndex int64) entity.MarketDecimals
}

// TopProvider serves cached order book tops; a miss means the caller should
// fall back to a REST lookup.
type TopProvider interface {
	Top(marketIndex int64) (entity.OrderBookTop, bool)
}

type Config struct {
	AccountIndex    int64
	DefaultSlippage decimal.Decimal // in percentage, e.g. 0.5 for 0.5%
}

// Service validates and normalizes trading commands, derives execution prices
// and quantized integer order parameters, and forwards the result to the
// signing client. It holds no durable state of its own.
type Service struct {
	cfg      Config
	rest     RestAPI
	signer   signer.Client   // may be nil when no signing key is configured
	decimals DecimalResolver
	books    TopProvider // may be nil when the stream is disabled

	tokenMu       sync.Mutex
	token         string
	tokenDeadline time.Time
}

func New(cfg Config, rest RestAPI, sign signer.Client, decimals DecimalResolver, books TopProvider) *Service {
	return &Service{
		cfg:      cfg,
		rest:     rest,
		signer:   sign,
		decimals: decimals,
		books:    books,
	}
}

// OrderResult is the outcome of a placed order.
type OrderResult struct {
	TxHash        string
	MarketIndex   int64
	Side          entity.OrderSide
	Size          decimal.Decimal
	Price         decimal.Decimal
	Type          entity.OrderType
	ClientOrderID int64
}

type LimitOrderParams struct {
	MarketIndex   int64
	Side          string
	Size          float64
	Price         float64
	ReduceOnly    bool
	PostOnly      bool
	ClientOrderID int64
}

type MarketOrderParams struct {
	MarketIndex   int64
	Side          string
	Size          float64
	Slippage      *float64 // in percentage; nil means the configured default
	ReduceOnly    bool
	ClientOrderID int64
}

func (s *Service) PlaceLimitOrder(ctx context.Context, params LimitOrderParams) (*OrderResult, error) {
	req, err := normalizeLimitOrder(params)
	if err != nil {
		return nil, err
	}

	return s.submit(ctx, req)
}

func (s *Service) PlaceMarketOrder(ctx context.Context, params MarketOrderParams) (*OrderResult, error) {
	req, err := normalizeMarketOrder(params, s.cfg.DefaultSlippage)
	if err != nil {
		return nil, err
	}

	return s.submitMarket(ctx, req)
}

// ClosePosition flattens the market's open position with a reduce-only,
// slippage-bounded immediate-or-cancel order on the opposite side.
func (s *Service) ClosePosition(ctx context.Context, marketIndex int64, slippage *float64) (*OrderResult, error) {
	req, err := normalizeClose(marketIndex, slippage, s.cfg.DefaultSlippage)
	if err != nil {
		return nil, err
	}

	positions, err := s.Positions(ctx)
	if err != nil {
		return nil, err
	}

	var position *entity.Position
	for i := range positions {
		if positions[i].MarketIndex == marketIndex {
			position = &positions[i]
			break
		}
	}
	if position == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoPosition, marketIndex)
	}

	req.Size = position.Size
	req.Side = oppositeSide(position.Side)

	return s.submitMarket(ctx, req)
}

// submitMarket resolves the execution price from the order book top and then
// submits like any other order.
func (s *Service) submitMarket(ctx context.Context, req entity.OrderRequest) (*OrderResult, error) {
	top, err := s.orderBookTop(ctx, req.MarketIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	price, err := market.ExecutionPrice(top, req.Side, req.Slippage)
	if err != nil {
		return nil, err
	}
	req.Price = price

	return s.submit(ctx, req)
}

func (s *Service) submit(ctx context.Context, req entity.OrderRequest) (*OrderResult, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("%w: signing client not configured", ErrUpstream)
	}

	decimals := s.decimals.Resolve(ctx, req.MarketIndex)

	quantized := &entity.QuantizedOrder{
		MarketIndex:      req.MarketIndex,
		ClientOrderIndex: req.ClientOrderID,
		BaseAmount:       market.BaseAmount(req.Size, decimals.SizeDecimals),
		Price:            market.PriceInt(req.Price, decimals.PriceDecimals),
		IsAsk:            req.IsAsk(),
		Type:             req.Type,
		TimeInForce:      req.TimeInForce,
		ReduceOnly:       req.ReduceOnly,
	}

	result, err := s.signer.CreateOrder(ctx, quantized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	logrus.WithFields(logrus.Fields{
		"market_index":    req.MarketIndex,
		"side":            req.Side,
		"type":            req.Type,
		"base_amount":     quantized.BaseAmount,
		"price":           quantized.Price,
		"client_order_id": req.ClientOrderID,
		"tx_hash":         result.TxHash,
	}).Info("order submitted")

	return &OrderResult{
		TxHash:        result.TxHash,
		MarketIndex:   req.MarketIndex,
		Side:          req.Side,
		Size:          req.Size,
		Price:         req.Price,
		Type:          req.Type,
		ClientOrderID: req.ClientOrderID,
	}, nil
}

func (s *Service) CancelOrder(ctx context.Context, marketIndex, orderIndex int64) (*signer.TxResult, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("%w: signing client not configured", ErrUpstream)
	}

	result, err := s.signer.CancelOrder(ctx, marketIndex, orderIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return result, nil
}

// CancelAllResult aggregates the per-order outcomes of a cancel-all sweep.
type CancelAllResult struct {
	CancelledCount  int
	CancelledOrders []int64
	Errors          []CancelError
}

type CancelError struct {
	OrderIndex int64  `json:"order_index"`
	Error      string `json:"error"`
}

// CancelAllOrders cancels every open order, optionally filtered by market.
// Cancellation is best effort: one order's failure is recorded and the sweep
// continues.
func (s *Service) CancelAllOrders(ctx context.Context, marketIndex *int64) (*CancelAllResult, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("%w: signing client not configured", ErrUpstream)
	}

	orders, err := s.OpenOrders(ctx, marketIndex)
	if err != nil {
		return nil, err
	}

	result := &CancelAllResult{
		CancelledOrders: make([]int64, 0, len(orders)),
		Errors:          make([]CancelError, 0),
	}

	for _, order := range orders {
		if _, err := s.signer.CancelOrder(ctx, order.MarketIndex, order.OrderIndex); err != nil {
			logrus.Warnf("cancel order %d on market %d failed: %v", order.OrderIndex, order.MarketIndex, err)
			result.Errors = append(result.Errors, CancelError{
				OrderIndex: order.OrderIndex,
				Error:      err.Error(),
			})
			continue
		}

		result.CancelledCount++
		result.CancelledOrders = append(result.CancelledOrders, order.OrderIndex)
	}

	return result, nil
}

func (s *Service) UpdateLeverage(ctx context.Context, marketIndex, leverage int64, marginMode string) (*signer.TxResult, entity.MarginMode, error) {
	mode, err := normalizeLeverage(leverage, marginMode)
	if err != nil {
		return nil, "", err
	}

	if s.signer == nil {
		return nil, "", fmt.Errorf("%w: signing client not configured", ErrUpstream)
	}

	result, err := s.signer.UpdateLeverage(ctx, marketIndex, leverage, mode)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return result, mode, nil
}

// Account returns the raw account snapshot as served by the exchange.
func (s *Service) Account(ctx context.Context) (json.RawMessage, error) {
	raw, err := s.rest.Account(ctx, s.cfg.AccountIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return raw, nil
}

// Positions returns the account's non-zero positions in canonical form.
func (s *Service) Positions(ctx context.Context) ([]entity.Position, error) {
	raw, err := s.rest.Account(ctx, s.cfg.AccountIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var snapshot struct {
		Accounts []struct {
			Positions []map[string]any `json:"positions"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode account snapshot: %v", ErrUpstream, err)
	}

	records := make([]map[string]any, 0)
	for _, account := range snapshot.Accounts {
		records = append(records, account.Positions...)
	}

	return mapPositions(records), nil
}

// OpenOrders returns the account's active orders in canonical form, optionally
// filtered by market.
func (s *Service) OpenOrders(ctx context.Context, marketIndex *int64) ([]entity.OpenOrder, error) {
	token, err := s.readToken(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.rest.AccountActiveOrders(ctx, s.cfg.AccountIndex, marketIndex, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return mapOpenOrders(records), nil
}

// AuthToken mints a token valid for the requested duration, clamped to the
// exchange maximum of eight hours.
func (s *Service) AuthToken(ctx context.Context, expiry time.Duration) (string, time.Time, error) {
	if s.signer == nil {
		return "", time.Time{}, fmt.Errorf("%w: signing client not configured", ErrUpstream)
	}
	if expiry <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: expiry must be > 0", ErrValidation)
	}
	if expiry > maxAuthTokenExpiry {
		expiry = maxAuthTokenExpiry
	}

	deadline := time.Now().Add(expiry)
	token, err := s.signer.AuthToken(ctx, deadline)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return token, deadline, nil
}

const (
	maxAuthTokenExpiry   = 8 * time.Hour
	readTokenLifetime    = 10 * time.Minute
	readTokenGracePeriod = 1 * time.Minute
)

// readToken returns a short-lived auth token for authenticated read endpoints,
// reusing the previous one until it nears its deadline. Without a signer the
// read is attempted unauthenticated.
func (s *Service) readToken(ctx context.Context) (string, error) {
	if s.signer == nil {
		return "", nil
	}

	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	if s.token != "" && time.Until(s.tokenDeadline) > readTokenGracePeriod {
		return s.token, nil
	}

	deadline := time.Now().Add(readTokenLifetime)
	token, err := s.signer.AuthToken(ctx, deadline)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.token = token
	s.tokenDeadline = deadline

	return token, nil
}

func (s *Service) orderBookTop(ctx context.Context, marketIndex int64) (entity.OrderBookTop, error) {
	if s.books != nil {
		if top, ok := s.books.Top(marketIndex); ok {
			return top, nil
		}
	}

	return s.rest.OrderBookTop(ctx, marketIndex)
}

func oppositeSide(side entity.OrderSide) entity.OrderSide {
	if side == entity.OrderSideBuy {
		return entity.OrderSideSell
	}

	return entity.OrderSideBuy
}
