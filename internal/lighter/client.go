package lighter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/shopspring/decimal"
)

// Client is a read-only client for the Lighter public REST API. Mutating
// operations go through the signing SDK, never through this client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// OrderBookDetails fetches the full market listing with per-market decimal
// precisions.
func (c *Client) OrderBookDetails(ctx context.Context) ([]entity.MarketDetail, error) {
	body, err := c.get(ctx, "/api/v1/orderBookDetails", nil, "")
	if err != nil {
		return nil, err
	}

	var resp orderBookDetailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order book details: %w", err)
	}

	details := make([]entity.MarketDetail, 0, len(resp.OrderBookDetails))
	for _, d := range resp.OrderBookDetails {
		details = append(details, entity.MarketDetail{
			MarketIndex:   d.MarketID,
			Symbol:        d.Symbol,
			SizeDecimals:  d.SizeDecimals,
			PriceDecimals: d.PriceDecimals,
		})
	}

	return details, nil
}

// OrderBookTop returns the best bid and ask for a market. Either side may be
// absent when the book is one-sided or empty.
func (c *Client) OrderBookTop(ctx context.Context, marketIndex int64) (entity.OrderBookTop, error) {
	query := url.Values{}
	query.Set("market_id", strconv.FormatInt(marketIndex, 10))
	query.Set("limit", "1")

	body, err := c.get(ctx, "/api/v1/orderBookOrders", query, "")
	if err != nil {
		return entity.OrderBookTop{}, err
	}

	var resp orderBookOrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return entity.OrderBookTop{}, fmt.Errorf("decode order book orders: %w", err)
	}

	top := entity.OrderBookTop{}
	if len(resp.Bids) > 0 {
		if price, err := decimal.NewFromString(resp.Bids[0].Price); err == nil {
			top.Bid = price
			top.HasBid = true
		}
	}
	if len(resp.Asks) > 0 {
		if price, err := decimal.NewFromString(resp.Asks[0].Price); err == nil {
			top.Ask = price
			top.HasAsk = true
		}
	}

	return top, nil
}

// Account returns the raw account snapshot for an account index. The payload
// is passed through unmodified so callers can expose it verbatim.
func (c *Client) Account(ctx context.Context, accountIndex int64) ([]byte, error) {
	query := url.Values{}
	query.Set("by", "index")
	query.Set("value", strconv.FormatInt(accountIndex, 10))

	return c.get(ctx, "/api/v1/account", query, "")
}

// AccountActiveOrders lists the account's open orders, optionally filtered by
// market. Records are kept loosely typed because the upstream schema is not
// consistent across versions.
func (c *Client) AccountActiveOrders(ctx context.Context, accountIndex int64, marketIndex *int64, authToken string) ([]map[string]any, error) {
	query := url.Values{}
	query.Set("account_index", strconv.FormatInt(accountIndex, 10))
	if marketIndex != nil {
		query.Set("market_id", strconv.FormatInt(*marketIndex, 10))
	}

	body, err := c.get(ctx, "/api/v1/accountActiveOrders", query, authToken)
	if err != nil {
		return nil, err
	}

	var resp activeOrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode active orders: %w", err)
	}

	return resp.Orders, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, authToken string) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lighter api %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lighter api %s: read body: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("lighter api %s: %d %s", path, apiErr.Code, apiErr.Message)
		}

		return nil, fmt.Errorf("lighter api %s: unexpected status %d", path, resp.StatusCode)
	}

	return body, nil
}
