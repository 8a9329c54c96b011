package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"stockbot/internal/marketdata"
)

const DefaultStreamURL = "wss://stream.data.alpaca.markets/v2/iex"

// Stream keeps the price cache warm with live trade prints so the decision
// loop does not have to hit the REST quote endpoint every cycle.
type Stream struct {
	URL     string
	KeyID   string
	Secret  string
	Symbols []string
	Cache   *marketdata.PriceCache
	Logger  *zap.Logger

	BackoffMin time.Duration
	BackoffMax time.Duration
}

type streamAuthRequest struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type streamSubscribeRequest struct {
	Action string   `json:"action"`
	Trades []string `json:"trades"`
}

type streamMessage struct {
	Type      string  `json:"T"`
	Symbol    string  `json:"S"`
	Price     float64 `json:"p"`
	Timestamp string  `json:"t"`
	Message   string  `json:"msg"`
}

func (s *Stream) Run(ctx context.Context) error {
	if s == nil || s.Cache == nil {
		return fmt.Errorf("stream not configured")
	}
	url := strings.TrimSpace(s.URL)
	if url == "" {
		url = DefaultStreamURL
	}
	backoffMin := s.BackoffMin
	if backoffMin == 0 {
		backoffMin = time.Second
	}
	backoffMax := s.BackoffMax
	if backoffMax == 0 {
		backoffMax = 30 * time.Second
	}

	backoff := backoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.runOnce(ctx, url)
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if s.Logger != nil {
			s.Logger.Warn("price stream disconnected", zap.Error(err))
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, backoffMax)
	}
}

func (s *Stream) runOnce(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "reconnect")
	conn.SetReadLimit(1 << 20)

	auth := streamAuthRequest{Action: "auth", Key: s.KeyID, Secret: s.Secret}
	if err := writeJSON(ctx, conn, auth); err != nil {
		return err
	}
	sub := streamSubscribeRequest{Action: "subscribe", Trades: s.Symbols}
	if err := writeJSON(ctx, conn, sub); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("price stream subscribed", zap.Int("symbols", len(s.Symbols)))
	}

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var msgs []streamMessage
		if err := json.Unmarshal(raw, &msgs); err != nil {
			continue
		}
		now := time.Now().UTC()
		for _, msg := range msgs {
			switch msg.Type {
			case "t":
				if msg.Symbol == "" || msg.Price <= 0 {
					continue
				}
				at := now
				if ts, err := time.Parse(time.RFC3339Nano, msg.Timestamp); err == nil {
					at = ts
				}
				s.Cache.Set(msg.Symbol, decimal.NewFromFloat(msg.Price), at)
			case "error":
				return fmt.Errorf("stream error: %s", msg.Message)
			}
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, raw)
}

func sleepWithJitter(ctx context.Context, d time.Duration) error {
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	t := time.NewTimer(d + jitter)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
