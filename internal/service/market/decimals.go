package market

import (
	"context"
	"sync"
	"time"

	"github.com/maxwellmelo/lighter-backend/internal/constant"
	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/sirupsen/logrus"
)

// ListingSource provides the exchange's full order book listing.
type ListingSource interface {
	OrderBookDetails(ctx context.Context) ([]entity.MarketDetail, error)
}

// DecimalStore is an optional shared cache layer for market decimals. Values
// are idempotent per market, so last-writer-wins semantics are fine.
type DecimalStore interface {
	Load(ctx context.Context, marketIndex int64) (entity.MarketDecimals, bool, error)
	Save(ctx context.Context, marketIndex int64, decimals entity.MarketDecimals) error
}

// Listing fetches are rate limited so an unknown market index cannot hammer
// the listing endpoint on every request.
const minRefreshInterval = 1 * time.Minute

// DecimalCache resolves a market index to its size/price decimal precisions.
// Entries are populated lazily from the full listing and never invalidated;
// markets missing from the listing degrade to default precisions instead of
// failing the request.
type DecimalCache struct {
	source ListingSource
	store  DecimalStore // may be nil

	mu          sync.RWMutex
	entries     map[int64]entity.MarketDecimals
	lastRefresh time.Time
}

func NewDecimalCache(source ListingSource, store DecimalStore) *DecimalCache {
	return &DecimalCache{
		source:  source,
		store:   store,
		entries: make(map[int64]entity.MarketDecimals),
	}
}

// Resolve returns the decimal precisions for a market. A miss refreshes the
// whole listing once, populating entries for every market returned.
func (c *DecimalCache) Resolve(ctx context.Context, marketIndex int64) entity.MarketDecimals {
	c.mu.RLock()
	decimals, ok := c.entries[marketIndex]
	c.mu.RUnlock()
	if ok {
		return decimals
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	if decimals, ok := c.entries[marketIndex]; ok {
		return decimals
	}

	if c.store != nil {
		if decimals, ok, err := c.store.Load(ctx, marketIndex); err == nil && ok {
			c.entries[marketIndex] = decimals
			return decimals
		}
	}

	if time.Since(c.lastRefresh) >= minRefreshInterval {
		c.refreshLocked(ctx)
	}

	if decimals, ok := c.entries[marketIndex]; ok {
		return decimals
	}

	logrus.WithField("market_index", marketIndex).
		Warn("market missing from order book listing, using default decimals")

	return entity.MarketDecimals{
		SizeDecimals:  constant.DefaultSizeDecimals,
		PriceDecimals: constant.DefaultPriceDecimals,
	}
}

func (c *DecimalCache) refreshLocked(ctx context.Context) {
	c.lastRefresh = time.Now()

	details, err := c.source.OrderBookDetails(ctx)
	if err != nil {
		logrus.Errorf("failed to refresh order book listing: %v", err)
		return
	}

	for _, d := range details {
		decimals := entity.MarketDecimals{
			SizeDecimals:  d.SizeDecimals,
			PriceDecimals: d.PriceDecimals,
		}
		c.entries[d.MarketIndex] = decimals

		if c.store != nil {
			if err := c.store.Save(ctx, d.MarketIndex, decimals); err != nil {
				logrus.Warnf("failed to persist decimals for market %d: %v", d.MarketIndex, err)
			}
		}
	}

	logrus.WithField("markets", len(details)).Info("market decimal cache refreshed")
}
