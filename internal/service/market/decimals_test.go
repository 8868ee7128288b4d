package market

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/maxwellmelo/lighter-backend/internal/entity"
)

type fakeListing struct {
	mu      sync.Mutex
	calls   int
	details []entity.MarketDetail
	err     error
}

func (f *fakeListing) OrderBookDetails(ctx context.Context) ([]entity.MarketDetail, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.details, f.err
}

type memoryStore struct {
	mu   sync.Mutex
	data map[int64]entity.MarketDecimals
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[int64]entity.MarketDecimals)}
}

func (m *memoryStore) Load(ctx context.Context, marketIndex int64) (entity.MarketDecimals, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[marketIndex]
	return d, ok, nil
}

func (m *memoryStore) Save(ctx context.Context, marketIndex int64, decimals entity.MarketDecimals) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[marketIndex] = decimals
	return nil
}

func TestDecimalCachePopulatesAllMarketsOnMiss(t *testing.T) {
	listing := &fakeListing{details: []entity.MarketDetail{
		{MarketIndex: 0, Symbol: "ETH", SizeDecimals: 4, PriceDecimals: 2},
		{MarketIndex: 1, Symbol: "BTC", SizeDecimals: 5, PriceDecimals: 1},
	}}
	cache := NewDecimalCache(listing, nil)
	ctx := context.Background()

	got := cache.Resolve(ctx, 1)
	if got.SizeDecimals != 5 || got.PriceDecimals != 1 {
		t.Fatalf("Resolve(1) = %+v, want {5 1}", got)
	}

	// The other market must be resolvable without another fetch.
	got = cache.Resolve(ctx, 0)
	if got.SizeDecimals != 4 || got.PriceDecimals != 2 {
		t.Fatalf("Resolve(0) = %+v, want {4 2}", got)
	}

	if listing.calls != 1 {
		t.Fatalf("listing fetched %d times, want 1", listing.calls)
	}
}

func TestDecimalCacheIdempotentResolve(t *testing.T) {
	listing := &fakeListing{details: []entity.MarketDetail{
		{MarketIndex: 2, SizeDecimals: 3, PriceDecimals: 6},
	}}
	cache := NewDecimalCache(listing, nil)
	ctx := context.Background()

	first := cache.Resolve(ctx, 2)
	second := cache.Resolve(ctx, 2)
	if first != second {
		t.Fatalf("repeated Resolve returned %+v then %+v", first, second)
	}
}

func TestDecimalCacheFallsBackForUnknownMarket(t *testing.T) {
	listing := &fakeListing{details: []entity.MarketDetail{
		{MarketIndex: 0, SizeDecimals: 5, PriceDecimals: 1},
	}}
	cache := NewDecimalCache(listing, nil)

	got := cache.Resolve(context.Background(), 99)
	if got.SizeDecimals != 4 || got.PriceDecimals != 2 {
		t.Fatalf("Resolve(99) = %+v, want default {4 2}", got)
	}
}

func TestDecimalCacheFallsBackWhenListingFails(t *testing.T) {
	listing := &fakeListing{err: errors.New("listing down")}
	cache := NewDecimalCache(listing, nil)

	got := cache.Resolve(context.Background(), 0)
	if got.SizeDecimals != 4 || got.PriceDecimals != 2 {
		t.Fatalf("Resolve(0) = %+v, want default {4 2}", got)
	}
}

func TestDecimalCacheUsesStoreBeforeListing(t *testing.T) {
	listing := &fakeListing{}
	store := newMemoryStore()
	_ = store.Save(context.Background(), 7, entity.MarketDecimals{SizeDecimals: 6, PriceDecimals: 3})

	cache := NewDecimalCache(listing, store)

	got := cache.Resolve(context.Background(), 7)
	if got.SizeDecimals != 6 || got.PriceDecimals != 3 {
		t.Fatalf("Resolve(7) = %+v, want {6 3}", got)
	}
	if listing.calls != 0 {
		t.Fatalf("listing fetched %d times, want 0", listing.calls)
	}
}

func TestDecimalCacheWritesThroughToStore(t *testing.T) {
	listing := &fakeListing{details: []entity.MarketDetail{
		{MarketIndex: 4, SizeDecimals: 2, PriceDecimals: 5},
	}}
	store := newMemoryStore()
	cache := NewDecimalCache(listing, store)

	cache.Resolve(context.Background(), 4)

	stored, ok, err := store.Load(context.Background(), 4)
	if err != nil || !ok {
		t.Fatalf("store.Load(4) = %v, %v, %v", stored, ok, err)
	}
	if stored.SizeDecimals != 2 || stored.PriceDecimals != 5 {
		t.Fatalf("stored decimals = %+v, want {2 5}", stored)
	}
}
