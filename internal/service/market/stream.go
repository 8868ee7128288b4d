package market

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	streamReconnectMinDelay = 1 * time.Second
	streamReconnectMaxDelay = 15 * time.Second
	streamReconnectFactor   = 2.0
	streamPingInterval      = 2 * time.Minute

	// A session shorter than this counts as a failed connection for backoff,
	// so a server that accepts and immediately drops is not re-dialed in a
	// tight loop.
	streamStableSession = 1 * time.Minute
)

// BookStream keeps a warm top-of-book snapshot per market by subscribing to
// the exchange's order_book websocket channels. Consumers read through Top and
// fall back to a REST lookup when the snapshot is missing or stale.
type BookStream struct {
	url       string
	markets   []int64
	freshness time.Duration

	mu   sync.RWMutex
	tops map[int64]streamTop
}

type streamTop struct {
	top entity.OrderBookTop
	at  time.Time
}

func NewBookStream(url string, markets []int64, freshness time.Duration) *BookStream {
	return &BookStream{
		url:       url,
		markets:   markets,
		freshness: freshness,
		tops:      make(map[int64]streamTop),
	}
}

// Top returns the cached top of book for a market when it is fresh enough to
// price an order against.
func (s *BookStream) Top(marketIndex int64) (entity.OrderBookTop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tops[marketIndex]
	if !ok || time.Since(entry.at) > s.freshness {
		return entity.OrderBookTop{}, false
	}

	return entry.top, true
}

// Run connects, subscribes and reads until the context is cancelled,
// reconnecting with jittered backoff on any failure.
func (s *BookStream) Run(ctx context.Context) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return
		}

		logrus.Infof("connecting to %s", s.url)
		conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
		if err != nil {
			wait := streamReconnectDelay(attempt, rng)
			attempt++
			logrus.WithFields(logrus.Fields{"retry_in": wait.String(), "attempt": attempt}).
				Warnf("order book stream dial failed: %v", err)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return
			}
		}

		started := time.Now()

		if err := s.readLoop(ctx, conn); err != nil {
			logrus.Warnf("order book stream closed: %v", err)
		}

		_ = conn.Close()

		attempt = reconnectAttempt(attempt, time.Since(started))
		select {
		case <-time.After(streamReconnectDelay(attempt, rng)):
		case <-ctx.Done():
			return
		}
	}
}

// reconnectAttempt resets the backoff only after a session that lived long
// enough to count as stable; anything shorter keeps escalating the delay.
func reconnectAttempt(attempt int, sessionLength time.Duration) int {
	if sessionLength >= streamStableSession {
		return 0
	}

	return attempt + 1
}

func (s *BookStream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for _, marketIndex := range s.markets {
		sub := map[string]any{
			"type":    "subscribe",
			"channel": fmt.Sprintf("order_book/%d", marketIndex),
		}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("subscribe market %d: %w", marketIndex, err)
		}
		logrus.Infof("subscribed to order_book/%d", marketIndex)
	}

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(streamPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = conn.Close()
				return
			case <-stop:
				return
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if pong := s.handleMessage(message); pong {
			if err := conn.WriteJSON(map[string]string{"type": "pong"}); err != nil {
				return err
			}
		}
	}
}

// handleMessage applies one stream message to the snapshot map. The returned
// flag asks the caller to answer an application-level ping.
func (s *BookStream) handleMessage(message []byte) bool {
	var payload struct {
		Type      string `json:"type"`
		Channel   string `json:"channel"`
		OrderBook struct {
			Bids []struct {
				Price string `json:"price"`
			} `json:"bids"`
			Asks []struct {
				Price string `json:"price"`
			} `json:"asks"`
		} `json:"order_book"`
	}

	if err := json.Unmarshal(message, &payload); err != nil {
		logrus.Debugf("unparseable stream message: %v", err)
		return false
	}

	if payload.Type == "ping" {
		return true
	}

	if !strings.Contains(payload.Type, "order_book") {
		return false
	}

	marketIndex, ok := marketFromChannel(payload.Channel)
	if !ok {
		return false
	}

	var bid, ask decimal.Decimal
	hasBid, hasAsk := false, false

	if len(payload.OrderBook.Bids) > 0 {
		if price, err := decimal.NewFromString(payload.OrderBook.Bids[0].Price); err == nil {
			bid, hasBid = price, true
		}
	}
	if len(payload.OrderBook.Asks) > 0 {
		if price, err := decimal.NewFromString(payload.OrderBook.Asks[0].Price); err == nil {
			ask, hasAsk = price, true
		}
	}

	if !hasBid && !hasAsk {
		return false
	}

	s.mu.Lock()
	entry := s.tops[marketIndex]
	if hasBid {
		entry.top.Bid = bid
		entry.top.HasBid = true
	}
	if hasAsk {
		entry.top.Ask = ask
		entry.top.HasAsk = true
	}
	entry.at = time.Now()
	s.tops[marketIndex] = entry
	s.mu.Unlock()

	return false
}

// Channels arrive as "order_book:0" on updates and "order_book/0" on
// subscription acks.
func marketFromChannel(channel string) (int64, bool) {
	idx := strings.LastIndexAny(channel, ":/")
	if idx < 0 || idx == len(channel)-1 {
		return 0, false
	}

	var marketIndex int64
	if _, err := fmt.Sscanf(channel[idx+1:], "%d", &marketIndex); err != nil {
		return 0, false
	}

	return marketIndex, true
}

func streamReconnectDelay(attempt int, rng *rand.Rand) time.Duration {
	delay := float64(streamReconnectMinDelay) * math.Pow(streamReconnectFactor, float64(attempt))
	if delay > float64(streamReconnectMaxDelay) {
		delay = float64(streamReconnectMaxDelay)
	}

	jitter := rng.Float64() * 0.3 * delay

	return time.Duration(delay + jitter)
}
