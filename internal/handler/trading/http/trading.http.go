package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/maxwellmelo/lighter-backend/internal/service/market"
	"github.com/maxwellmelo/lighter-backend/internal/service/trading"
	"github.com/sirupsen/logrus"
)

const apiSecretHeader = "X-API-Secret"

// Config carries the static values echoed by the health/info endpoints plus
// the optional shared secret gating /api routes.
type Config struct {
	APISecret    string
	Environment  string
	AccountIndex int64
	APIKeyIndex  uint8
	BaseURL      string
}

type Handler struct {
	tradingService *trading.Service
	cfg            Config
}

func NewTradingHTTPHandler(tradingService *trading.Service, cfg Config) *Handler {
	return &Handler{tradingService: tradingService, cfg: cfg}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/api/info", h.withSecret(h.Info))
	mux.HandleFunc("/api/order/limit", h.withSecret(h.CreateLimitOrder))
	mux.HandleFunc("/api/order/market", h.withSecret(h.CreateMarketOrder))
	mux.HandleFunc("/api/order/cancel", h.withSecret(h.CancelOrder))
	mux.HandleFunc("/api/order/cancel-all", h.withSecret(h.CancelAllOrders))
	mux.HandleFunc("/api/position/close", h.withSecret(h.ClosePosition))
	mux.HandleFunc("/api/position/update-leverage", h.withSecret(h.UpdateLeverage))
	mux.HandleFunc("/api/account", h.withSecret(h.Account))
	mux.HandleFunc("/api/positions", h.withSecret(h.Positions))
	mux.HandleFunc("/api/orders", h.withSecret(h.Orders))
	mux.HandleFunc("/api/auth-token", h.withSecret(h.AuthToken))
}

// withSecret enforces the shared secret when one is configured. The compare is
// constant time so the secret cannot be probed byte by byte.
func (h *Handler) withSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.APISecret != "" {
			provided := strings.TrimSpace(r.Header.Get(apiSecretHeader))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cfg.APISecret)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
				return
			}
		}

		next(w, r)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"environment":   h.cfg.Environment,
		"account_index": h.cfg.AccountIndex,
		"base_url":      h.cfg.BaseURL,
		"timestamp":     time.Now().UnixMilli(),
	})
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"environment":   h.cfg.Environment,
		"account_index": h.cfg.AccountIndex,
		"api_key_index": h.cfg.APIKeyIndex,
		"base_url":      h.cfg.BaseURL,
		"auth_required": h.cfg.APISecret != "",
	})
}

type limitOrderRequest struct {
	MarketIndex   int64   `json:"market_index"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	Price         float64 `json:"price"`
	ReduceOnly    bool    `json:"reduce_only"`
	PostOnly      bool    `json:"post_only"`
	ClientOrderID int64   `json:"client_order_id"`
}

type marketOrderRequest struct {
	MarketIndex   int64    `json:"market_index"`
	Side          string   `json:"side"`
	Size          float64  `json:"size"`
	Slippage      *float64 `json:"slippage"`
	ReduceOnly    bool     `json:"reduce_only"`
	ClientOrderID int64    `json:"client_order_id"`
}

type orderResponse struct {
	MarketIndex   int64  `json:"market_index"`
	Side          string `json:"side"`
	Size          string `json:"size"`
	Price         string `json:"price"`
	Type          string `json:"type"`
	ClientOrderID int64  `json:"client_order_id"`
}

func (h *Handler) CreateLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req limitOrderRequest
	if !decodePost(w, r, &req) {
		return
	}

	result, err := h.tradingService.PlaceLimitOrder(r.Context(), trading.LimitOrderParams{
		MarketIndex:   req.MarketIndex,
		Side:          req.Side,
		Size:          req.Size,
		Price:         req.Price,
		ReduceOnly:    req.ReduceOnly,
		PostOnly:      req.PostOnly,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tx_hash": result.TxHash,
		"order":   mapOrderResponse(result),
	})
}

func (h *Handler) CreateMarketOrder(w http.ResponseWriter, r *http.Request) {
	var req marketOrderRequest
	if !decodePost(w, r, &req) {
		return
	}

	result, err := h.tradingService.PlaceMarketOrder(r.Context(), trading.MarketOrderParams{
		MarketIndex:   req.MarketIndex,
		Side:          req.Side,
		Size:          req.Size,
		Slippage:      req.Slippage,
		ReduceOnly:    req.ReduceOnly,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tx_hash": result.TxHash,
		"order":   mapOrderResponse(result),
	})
}

type cancelOrderRequest struct {
	MarketIndex int64 `json:"market_index"`
	OrderIndex  int64 `json:"order_index"`
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if !decodePost(w, r, &req) {
		return
	}

	result, err := h.tradingService.CancelOrder(r.Context(), req.MarketIndex, req.OrderIndex)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"tx_hash":     result.TxHash,
		"order_index": req.OrderIndex,
	})
}

type cancelAllRequest struct {
	MarketIndex *int64 `json:"market_index"`
}

func (h *Handler) CancelAllOrders(w http.ResponseWriter, r *http.Request) {
	var req cancelAllRequest
	if !decodePost(w, r, &req) {
		return
	}

	result, err := h.tradingService.CancelAllOrders(r.Context(), req.MarketIndex)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"market_index":     null.IntFromPtr(req.MarketIndex),
		"cancelled_count":  result.CancelledCount,
		"cancelled_orders": result.CancelledOrders,
		"errors":           result.Errors,
	})
}

type closePositionRequest struct {
	MarketIndex int64    `json:"market_index"`
	Slippage    *float64 `json:"slippage"`
}

func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	var req closePositionRequest
	if !decodePost(w, r, &req) {
		return
	}

	result, err := h.tradingService.ClosePosition(r.Context(), req.MarketIndex, req.Slippage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tx_hash": result.TxHash,
		"closed":  mapOrderResponse(result),
	})
}

type updateLeverageRequest struct {
	MarketIndex int64  `json:"market_index"`
	Leverage    int64  `json:"leverage"`
	MarginMode  string `json:"margin_mode"`
}

func (h *Handler) UpdateLeverage(w http.ResponseWriter, r *http.Request) {
	var req updateLeverageRequest
	if !decodePost(w, r, &req) {
		return
	}

	result, mode, err := h.tradingService.UpdateLeverage(r.Context(), req.MarketIndex, req.Leverage, req.MarginMode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"tx_hash":      result.TxHash,
		"market_index": req.MarketIndex,
		"leverage":     req.Leverage,
		"margin_mode":  string(mode),
	})
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	raw, err := h.tradingService.Account(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *Handler) Positions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	positions, err := h.tradingService.Positions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"count":     len(positions),
	})
}

func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	var marketIndex *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("market_index")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid market_index"})
			return
		}
		marketIndex = &parsed
	}

	orders, err := h.tradingService.OpenOrders(r.Context(), marketIndex)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

func (h *Handler) AuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	expiry := 3600
	if raw := strings.TrimSpace(r.URL.Query().Get("expiry")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid expiry"})
			return
		}
		expiry = parsed
	}

	token, deadline, err := h.tradingService.AuthToken(r.Context(), time.Duration(expiry)*time.Second)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"token":      token,
		"expires_at": deadline.UnixMilli(),
	})
}

func mapOrderResponse(result *trading.OrderResult) orderResponse {
	return orderResponse{
		MarketIndex:   result.MarketIndex,
		Side:          string(result.Side),
		Size:          result.Size.String(),
		Price:         result.Price.String(),
		Type:          string(result.Type),
		ClientOrderID: result.ClientOrderID,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, trading.ErrValidation),
		errors.Is(err, market.ErrNoLiquidity),
		errors.Is(err, trading.ErrNoPosition),
		errors.Is(err, trading.ErrUpstream):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   errorMessage(err),
		})
	default:
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Errorf("unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "internal server error",
		})
	}
}

// errorMessage strips the sentinel prefix so clients see the detail only.
func errorMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{trading.ErrValidation, trading.ErrUpstream} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}

	return msg
}

func decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return false
	}

	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return false
	}

	return true
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
