package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.kite.trade"
	loginBaseURL   = "https://kite.zerodha.com/connect/login"
	kiteVersion    = "3"

	// Kite allows 3 req/s on data endpoints.
	requestsPerSecond = 3
)

// Client is a rate-limited Kite Connect REST client. In dry-run mode order
// placement is simulated locally and everything else hits the API normally.
type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	dryRun    bool

	httpClient *http.Client
	limiter    *rate.Limiter

	mu          sync.RWMutex
	accessToken string

	// dry-run order log, so Orders() stays meaningful without a session
	dryMu     sync.Mutex
	dryOrders []OrderEvent
}

// NewClient builds a client for the given API credentials.
func NewClient(apiKey, apiSecret string, dryRun bool) *Client {
	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    defaultBaseURL,
		dryRun:     dryRun,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimSuffix(base, "/")
}

// LoginURL returns the URL the operator opens to start a broker session.
func (c *Client) LoginURL() string {
	return fmt.Sprintf("%s?v=%s&api_key=%s", loginBaseURL, kiteVersion, url.QueryEscape(c.apiKey))
}

// SetAccessToken installs an already-issued session token.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// Connected reports whether a session token is installed.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != ""
}

// CompleteLogin exchanges the redirect request token for an access token.
// The checksum is SHA-256 over api_key + request_token + api_secret.
func (c *Client) CompleteLogin(ctx context.Context, requestToken string) error {
	sum := sha256.Sum256([]byte(c.apiKey + requestToken + c.apiSecret))

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", hex.EncodeToString(sum[:]))

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/session/token", form, &data); err != nil {
		return fmt.Errorf("session token exchange: %w", err)
	}
	if data.AccessToken == "" {
		return fmt.Errorf("session token exchange: empty access token")
	}
	c.SetAccessToken(data.AccessToken)
	return nil
}

// Profile fetches the authenticated user profile. Used as the connection
// health probe.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/user/profile", nil, &p); err != nil {
		return Profile{}, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}

// HistoricalCandles fetches OHLCV bars for an instrument token. Interval is
// a Kite interval name such as "3minute".
func (c *Client) HistoricalCandles(ctx context.Context, token int64, interval string, from, to time.Time) ([]Candle, error) {
	path := fmt.Sprintf("/instruments/historical/%d/%s?from=%s&to=%s",
		token, interval,
		url.QueryEscape(from.Format("2006-01-02 15:04:05")),
		url.QueryEscape(to.Format("2006-01-02 15:04:05")))

	var data struct {
		Candles [][]any `json:"candles"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, fmt.Errorf("historical candles: %w", err)
	}

	candles := make([]Candle, 0, len(data.Candles))
	for _, row := range data.Candles {
		// [timestamp, open, high, low, close, volume]
		if len(row) < 6 {
			continue
		}
		ts, err := parseKiteTime(row[0])
		if err != nil {
			continue
		}
		candles = append(candles, Candle{
			Timestamp: ts,
			Open:      toFloat(row[1]),
			High:      toFloat(row[2]),
			Low:       toFloat(row[3]),
			Close:     toFloat(row[4]),
			Volume:    int64(toFloat(row[5])),
		})
	}
	return candles, nil
}

// LTP returns the last traded price for an exchange:symbol pair.
func (c *Client) LTP(ctx context.Context, exchange, symbol string) (float64, error) {
	key := exchange + ":" + symbol
	path := "/quote/ltp?i=" + url.QueryEscape(key)

	data := map[string]struct {
		LastPrice float64 `json:"last_price"`
	}{}
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return 0, fmt.Errorf("ltp %s: %w", key, err)
	}
	q, ok := data[key]
	if !ok {
		return 0, fmt.Errorf("ltp %s: no quote in response", key)
	}
	return q.LastPrice, nil
}

// PlaceOrder submits a regular MIS order. In dry-run mode the order is
// acknowledged locally with a synthetic ID and recorded as COMPLETE.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if req.Quantity <= 0 {
		return OrderResult{}, fmt.Errorf("place order: quantity must be positive")
	}
	if req.Action != "BUY" && req.Action != "SELL" {
		return OrderResult{}, fmt.Errorf("place order: bad action %q", req.Action)
	}

	if c.dryRun {
		return c.placeDryOrder(req), nil
	}

	form := url.Values{}
	form.Set("tradingsymbol", req.Symbol)
	form.Set("exchange", req.Exchange)
	form.Set("transaction_type", req.Action)
	form.Set("order_type", req.OrderType)
	form.Set("quantity", strconv.Itoa(req.Quantity))
	form.Set("product", "MIS")
	form.Set("validity", "DAY")
	if req.OrderType == "LIMIT" {
		form.Set("price", strconv.FormatFloat(req.Price, 'f', 2, 64))
	}
	if req.StopLoss > 0 {
		form.Set("stoploss", strconv.FormatFloat(req.StopLoss, 'f', 2, 64))
	}
	if req.Target > 0 {
		form.Set("squareoff", strconv.FormatFloat(req.Target, 'f', 2, 64))
	}

	var data struct {
		OrderID string `json:"order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders/regular", form, &data); err != nil {
		return OrderResult{Success: false, Message: err.Error()}, fmt.Errorf("place order: %w", err)
	}
	return OrderResult{Success: true, OrderID: data.OrderID, Message: "order placed"}, nil
}

func (c *Client) placeDryOrder(req OrderRequest) OrderResult {
	id := "DRY-" + uuid.NewString()[:8]
	c.dryMu.Lock()
	c.dryOrders = append(c.dryOrders, OrderEvent{
		OrderID:      id,
		Symbol:       req.Symbol,
		Action:       req.Action,
		Quantity:     req.Quantity,
		Status:       StatusComplete,
		Price:        req.Price,
		AveragePrice: req.Price,
		Timestamp:    time.Now(),
		Message:      "dry-run fill",
	})
	c.dryMu.Unlock()
	return OrderResult{Success: true, OrderID: id, Message: "dry-run order accepted"}
}

// rawOrder accepts both generations of the broker's order-log schema.
// Older payloads used symbol/action, newer ones tradingsymbol and
// transaction_type; status_message only exists in the new shape.
type rawOrder struct {
	OrderID        string  `json:"order_id"`
	TradingSymbol  string  `json:"tradingsymbol"`
	Symbol         string  `json:"symbol"`
	Transaction    string  `json:"transaction_type"`
	Action         string  `json:"action"`
	Quantity       int     `json:"quantity"`
	Status         string  `json:"status"`
	Price          float64 `json:"price"`
	AveragePrice   float64 `json:"average_price"`
	OrderTimestamp string  `json:"order_timestamp"`
	Timestamp      string  `json:"timestamp"`
	StatusMessage  string  `json:"status_message"`
}

func (r rawOrder) normalize() OrderEvent {
	ev := OrderEvent{
		OrderID:      r.OrderID,
		Symbol:       r.TradingSymbol,
		Action:       r.Transaction,
		Quantity:     r.Quantity,
		Status:       NormalizeStatus(r.Status),
		Price:        r.Price,
		AveragePrice: r.AveragePrice,
		Message:      r.StatusMessage,
	}
	if ev.Symbol == "" {
		ev.Symbol = r.Symbol
	}
	if ev.Action == "" {
		ev.Action = r.Action
	}
	rawTS := r.OrderTimestamp
	if rawTS == "" {
		rawTS = r.Timestamp
	}
	if ts, err := parseKiteTime(rawTS); err == nil {
		ev.Timestamp = ts
	}
	return ev
}

// Orders fetches the day's order log, normalized to one event shape.
func (c *Client) Orders(ctx context.Context) ([]OrderEvent, error) {
	if c.dryRun {
		c.dryMu.Lock()
		out := make([]OrderEvent, len(c.dryOrders))
		copy(out, c.dryOrders)
		c.dryMu.Unlock()
		return out, nil
	}

	var raws []rawOrder
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &raws); err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	events := make([]OrderEvent, 0, len(raws))
	for _, r := range raws {
		events = append(events, r.normalize())
	}
	return events, nil
}

// do executes one API call inside the rate limit and decodes the standard
// {"status": ..., "data": ...} envelope into out.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Kite-Version", kiteVersion)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "token "+c.apiKey+":"+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var envelope struct {
		Status    string          `json:"status"`
		Message   string          `json:"message"`
		ErrorType string          `json:"error_type"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response (http %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || envelope.Status == "error" {
		return fmt.Errorf("kite api %s (http %d): %s", envelope.ErrorType, res.StatusCode, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// parseKiteTime handles the timestamp flavors the API emits.
func parseKiteTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp is not a string")
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05-0700",
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}
