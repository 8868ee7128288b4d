// Package signer wraps the external Lighter signing SDK behind a narrow
// interface. Order signing, nonce sequencing and transaction construction are
// the SDK's responsibility; this service only hands it fully quantized order
// specifications.
package signer

import (
	"context"
	"time"

	"github.com/maxwellmelo/lighter-backend/internal/entity"
)

// TxResult is the outcome of a submitted transaction.
type TxResult struct {
	TxHash string
}

type Client interface {
	// CreateOrder submits a signed order transaction. The quantized order is
	// consumed exactly once.
	CreateOrder(ctx context.Context, order *entity.QuantizedOrder) (*TxResult, error)
	// CancelOrder cancels a single resting order by its exchange order index.
	CancelOrder(ctx context.Context, marketIndex, orderIndex int64) (*TxResult, error)
	// UpdateLeverage sets the leverage and margin mode for a market.
	UpdateLeverage(ctx context.Context, marketIndex, leverage int64, marginMode entity.MarginMode) (*TxResult, error)
	// AuthToken mints an auth token valid until the given deadline.
	AuthToken(ctx context.Context, deadline time.Time) (string, error)
}
