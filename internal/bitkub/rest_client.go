package bitkub

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"bitkub-trade-bot-go/internal/config"
	"bitkub-trade-bot-go/internal/indicator"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	baseURL = "https://api.bitkub.com"

	OrderSideBuy  = "buy"
	OrderSideSell = "sell"

	orderTypeLimit = "limit"
)

// Known Bitkub error codes the operator will want to recognise in logs.
const (
	ErrCodeInvalidSymbol       = 11
	ErrCodeAmountTooLow        = 15
	ErrCodeInsufficientBalance = 18
)

// ErrNoData means the market-data surface returned no usable candle series.
var ErrNoData = errors.New("no candle data returned")

// APIError is a Bitkub-level rejection: the HTTP exchange succeeded but the
// response wrapper carried a non-zero error code.
type APIError struct {
	Code int
}

func (e *APIError) Error() string {
	switch e.Code {
	case ErrCodeInvalidSymbol:
		return fmt.Sprintf("bitkub error %d: invalid symbol", e.Code)
	case ErrCodeAmountTooLow:
		return fmt.Sprintf("bitkub error %d: amount too low", e.Code)
	case ErrCodeInsufficientBalance:
		return fmt.Sprintf("bitkub error %d: insufficient balance", e.Code)
	default:
		return fmt.Sprintf("bitkub error %d", e.Code)
	}
}

// OpenOrder is one row of the exchange's open-order listing.
type OpenOrder struct {
	ID     string  `json:"id"`
	Hash   string  `json:"hash"`
	Side   string  `json:"side"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
	Ts     int64   `json:"ts"`
}

// HistoryOrder is one row of the exchange's order history.
type HistoryOrder struct {
	TxnID  string  `json:"txn_id"`
	Side   string  `json:"side"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
	Ts     int64   `json:"ts"`
}

// OrderResult is the exchange's acknowledgement of a placed order. ID is the
// reconciliation key matched against the open-order listing on later cycles.
type OrderResult struct {
	ID     string  `json:"id"`
	Hash   string  `json:"hash"`
	Type   string  `json:"typ"`
	Amount float64 `json:"amt"`
	Rate   float64 `json:"rat"`
	Fee    float64 `json:"fee"`
	Ts     int64   `json:"ts"`
}

// RestClientInterface defines the interface for the Bitkub REST API client.
// It covers both the public market-data surface and the signed account surface.
type RestClientInterface interface {
	GetServerTime() (int64, error)
	GetLastPrice(symbol string) (float64, error)
	GetRecentCloses(symbol string, resolutionMin, count int) ([]float64, error)
	GetBalances() (map[string]float64, error)
	GetOpenOrders(symbol string) ([]OpenOrder, error)
	GetOrderHistory(symbol string, limit int) ([]HistoryOrder, error)
	PlaceOrder(symbol, side string, quantity, price float64) (*OrderResult, error)
	CancelOrder(symbol, orderID string) error
}

// RestClient is a client for the Bitkub REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client    *resty.Client
	apiKey    string
	apiSecret string
	logger    *zap.Logger
	limiter   *rate.Limiter
	now       func() time.Time
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Bitkub REST API client.
func NewRestClient(cfg *config.Bitkub, logger *zap.Logger) *RestClient {
	client := resty.New().SetBaseURL(baseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:    client,
		apiKey:    cfg.ApiKey,
		apiSecret: cfg.ApiSecret,
		logger:    logger,
		limiter:   limiter,
		now:       time.Now,
	}
}

// sign creates the HMAC-SHA256 signature over timestamp+method+path+body,
// per the Bitkub secure-endpoint v3 scheme.
func (c *RestClient) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.RawResponse != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// secureRequest builds a signed request for the v3 account surface. body may
// be nil for GET endpoints; path must include the query string because the
// signature covers it.
func (c *RestClient) secureRequest(method, path string, body any) (*resty.Request, error) {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)

	payload := ""
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = string(raw)
	}

	sig := c.sign(ts + method + path + payload)

	req := c.client.R().
		SetHeader("X-BTK-APIKEY", c.apiKey).
		SetHeader("X-BTK-TIMESTAMP", ts).
		SetHeader("X-BTK-SIGN", sig).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if payload != "" {
		req.SetBody(payload)
	}

	return req, nil
}

// GetServerTime fetches the current server time in milliseconds.
// This is a good endpoint to test connectivity and credentials clock drift.
func (c *RestClient) GetServerTime() (int64, error) {
	req := c.client.R()
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/api/v3/servertime", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}

	ts, err := strconv.ParseInt(string(resp.Body()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse server time %q: %w", resp.String(), err)
	}
	return ts, nil
}

// GetLastPrice fetches the last traded price for a ticker symbol (THB_BTC form).
func (c *RestClient) GetLastPrice(symbol string) (float64, error) {
	var tickers map[string]struct {
		Last float64 `json:"last"`
	}

	req := c.client.R().SetResult(&tickers)
	ctx := context.Background()

	_, err := c.doRequest(ctx, "GET", "/api/market/ticker?sym="+symbol, req)
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker: %w", err)
	}

	t, ok := tickers[symbol]
	if !ok {
		return 0, fmt.Errorf("ticker response missing symbol %s", symbol)
	}
	return t.Last, nil
}

// GetRecentCloses fetches the closing prices of the most recent count candles
// at the given resolution in minutes, ordered oldest to newest.
func (c *RestClient) GetRecentCloses(symbol string, resolutionMin, count int) ([]float64, error) {
	var history struct {
		Status string    `json:"s"`
		Closes []float64 `json:"c"`
	}

	to := c.now().Unix()
	from := to - int64(resolutionMin)*60*int64(count)

	url := fmt.Sprintf("/tradingview/history?symbol=%s&resolution=%d&from=%d&to=%d",
		symbol, resolutionMin, from, to)

	req := c.client.R().SetResult(&history)
	ctx := context.Background()

	_, err := c.doRequest(ctx, "GET", url, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get candle history: %w", err)
	}

	if history.Status != "ok" || len(history.Closes) == 0 {
		return nil, ErrNoData
	}
	return history.Closes, nil
}

// GetBalances fetches available balances per asset code.
func (c *RestClient) GetBalances() (map[string]float64, error) {
	var out struct {
		Error  int `json:"error"`
		Result map[string]struct {
			Available float64 `json:"available"`
			Reserved  float64 `json:"reserved"`
		} `json:"result"`
	}

	req, err := c.secureRequest("POST", "/api/v3/market/balances", nil)
	if err != nil {
		return nil, err
	}
	req.SetResult(&out)

	ctx := context.Background()
	if _, err := c.doRequest(ctx, "POST", "/api/v3/market/balances", req); err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	if out.Error != 0 {
		return nil, &APIError{Code: out.Error}
	}

	balances := make(map[string]float64, len(out.Result))
	for asset, b := range out.Result {
		balances[asset] = b.Available
	}
	return balances, nil
}

// GetOpenOrders fetches the exchange's authoritative list of open orders for
// a trade symbol (btc_thb form).
func (c *RestClient) GetOpenOrders(symbol string) ([]OpenOrder, error) {
	var out struct {
		Error  int         `json:"error"`
		Result []OpenOrder `json:"result"`
	}

	path := "/api/v3/market/my-open-orders?sym=" + symbol
	req, err := c.secureRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	req.SetResult(&out)

	ctx := context.Background()
	if _, err := c.doRequest(ctx, "GET", path, req); err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}
	if out.Error != 0 {
		return nil, &APIError{Code: out.Error}
	}
	return out.Result, nil
}

// GetOrderHistory fetches up to limit recent filled orders, newest first.
func (c *RestClient) GetOrderHistory(symbol string, limit int) ([]HistoryOrder, error) {
	var out struct {
		Error  int            `json:"error"`
		Result []HistoryOrder `json:"result"`
	}

	path := fmt.Sprintf("/api/v3/market/my-order-history?sym=%s&lmt=%d", symbol, limit)
	req, err := c.secureRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	req.SetResult(&out)

	ctx := context.Background()
	if _, err := c.doRequest(ctx, "GET", path, req); err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	if out.Error != 0 {
		return nil, &APIError{Code: out.Error}
	}
	return out.Result, nil
}

// PlaceOrder submits a limit order. quantity is always in base-asset units
// regardless of side; it is rounded to 8 decimals and the price to 2 before
// submission, matching the exchange's precision rules.
func (c *RestClient) PlaceOrder(symbol, side string, quantity, price float64) (*OrderResult, error) {
	var path string
	switch side {
	case OrderSideBuy:
		path = "/api/v3/market/place-bid"
	case OrderSideSell:
		path = "/api/v3/market/place-ask"
	default:
		return nil, fmt.Errorf("unknown order side %q", side)
	}

	body := map[string]any{
		"sym": symbol,
		"amt": indicator.RoundQuantity(quantity),
		"rat": indicator.RoundPrice(price),
		"typ": orderTypeLimit,
	}

	var out struct {
		Error  int          `json:"error"`
		Result *OrderResult `json:"result"`
	}

	req, err := c.secureRequest("POST", path, body)
	if err != nil {
		return nil, err
	}
	req.SetResult(&out)

	ctx := context.Background()
	if _, err := c.doRequest(ctx, "POST", path, req); err != nil {
		c.logger.Error("Failed to place order",
			zap.Error(err),
			zap.String("symbol", symbol),
			zap.String("side", side),
		)
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	if out.Error != 0 {
		return nil, &APIError{Code: out.Error}
	}
	if out.Result == nil {
		return nil, fmt.Errorf("place order response carried no result")
	}

	c.logger.Info("Successfully placed order",
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.String("order_id", out.Result.ID),
		zap.Float64("rate", out.Result.Rate),
		zap.Float64("amount", out.Result.Amount),
	)
	return out.Result, nil
}

// CancelOrder cancels an open order by exchange order id.
func (c *RestClient) CancelOrder(symbol, orderID string) error {
	body := map[string]any{
		"sym": symbol,
		"id":  orderID,
	}

	var out struct {
		Error int `json:"error"`
	}

	req, err := c.secureRequest("POST", "/api/v3/market/cancel-order", body)
	if err != nil {
		return err
	}
	req.SetResult(&out)

	ctx := context.Background()
	if _, err := c.doRequest(ctx, "POST", "/api/v3/market/cancel-order", req); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	if out.Error != 0 {
		return &APIError{Code: out.Error}
	}
	return nil
}
