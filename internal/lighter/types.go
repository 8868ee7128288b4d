package lighter

// Wire shapes for the subset of the Lighter public REST API this service
// consumes. Fields not read here are intentionally left undeclared.

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type orderBookDetailsResponse struct {
	Code             int               `json:"code"`
	OrderBookDetails []orderBookDetail `json:"order_book_details"`
}

type orderBookDetail struct {
	MarketID      int64  `json:"market_id"`
	Symbol        string `json:"symbol"`
	SizeDecimals  int32  `json:"size_decimals"`
	PriceDecimals int32  `json:"price_decimals"`
	Status        string `json:"status"`
}

type orderBookOrdersResponse struct {
	Code int              `json:"code"`
	Bids []orderBookLevel `json:"bids"`
	Asks []orderBookLevel `json:"asks"`
}

// Depending on the endpoint version the size field is reported either as
// remaining_base_amount or size; price is always a decimal string.
type orderBookLevel struct {
	Price               string `json:"price"`
	RemainingBaseAmount string `json:"remaining_base_amount"`
	Size                string `json:"size"`
}

type activeOrdersResponse struct {
	Code   int              `json:"code"`
	Orders []map[string]any `json:"orders"`
}
