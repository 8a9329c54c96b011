package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"stockbot/internal/broker"
)

type Client struct {
	host       string
	keyID      string
	secret     string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, keyID, secret string) *Client {
	if host == "" {
		host = "https://paper-api.alpaca.markets"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		keyID:      keyID,
		secret:     secret,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.secret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

type clockResponse struct {
	IsOpen bool `json:"is_open"`
}

func (c *Client) IsMarketOpen(ctx context.Context) (bool, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/v2/clock", nil)
	if err != nil {
		return false, err
	}
	var clock clockResponse
	if err := json.Unmarshal(raw, &clock); err != nil {
		return false, err
	}
	return clock.IsOpen, nil
}

type accountResponse struct {
	Cash decimal.Decimal `json:"cash"`
}

func (c *Client) CashBalance(ctx context.Context) (decimal.Decimal, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: account: %v", broker.ErrDataUnavailable, err)
	}
	var account accountResponse
	if err := json.Unmarshal(raw, &account); err != nil {
		return decimal.Zero, err
	}
	return account.Cash, nil
}

type positionResponse struct {
	Symbol string `json:"symbol"`
}

func (c *Client) OpenPositions(ctx context.Context) (map[string]struct{}, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/v2/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: positions: %v", broker.ErrDataUnavailable, err)
	}
	var items []positionResponse
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		sym := strings.ToUpper(strings.TrimSpace(item.Symbol))
		if sym == "" {
			continue
		}
		out[sym] = struct{}{}
	}
	return out, nil
}

type orderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

func (c *Client) SubmitOrder(ctx context.Context, symbol string, qty int64, side broker.Side) error {
	req := orderRequest{
		Symbol:      symbol,
		Qty:         fmt.Sprintf("%d", qty),
		Side:        string(side),
		Type:        "market",
		TimeInForce: "gtc",
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "/v2/orders", req); err != nil {
		return &broker.OrderError{Symbol: symbol, Op: "submit", Err: err}
	}
	return nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, "/v2/positions/"+symbol, nil); err != nil {
		return &broker.OrderError{Symbol: symbol, Op: "close", Err: err}
	}
	return nil
}
