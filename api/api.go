// Package api implements the Bitget spot REST client: public market data
// endpoints and signed private trading endpoints.
package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"bitget-trader/config"
	"bitget-trader/logging"
	"bitget-trader/models"
)

const (
	pathServerTime   = "/api/v1/common/time"
	pathTicker       = "/api/spot/v1/market/ticker"
	pathCandles      = "/api/spot/v1/market/candles"
	pathPlaceOrder   = "/api/spot/v1/trade/place-order"
	pathCancelOrder  = "/api/spot/v1/trade/cancel-order"
	pathOpenOrders   = "/api/spot/v1/trade/open-orders"
	pathOrderHistory = "/api/spot/v1/trade/history-orders"
	pathAccountInfo  = "/api/spot/v1/account/info"
	pathAssets       = "/api/spot/v1/account/assets"

	codeSuccess    = "00000"
	channelAPICode = "spot"
)

// Ticker is the latest market snapshot for a symbol.
type Ticker struct {
	Symbol    string          `json:"symbol"`
	Close     decimal.Decimal `json:"close"`
	High24h   decimal.Decimal `json:"high24h"`
	Low24h    decimal.Decimal `json:"low24h"`
	BaseVol   decimal.Decimal `json:"baseVol"`
	Timestamp int64           `json:"ts,string"`
}

// Order is an exchange-side order record.
type Order struct {
	OrderID     string          `json:"orderId"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	OrderType   string          `json:"orderType"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Status      string          `json:"status"`
	CreatedTime int64           `json:"cTime,string"`
}

// Asset is one coin balance on the spot account.
type Asset struct {
	CoinName  string          `json:"coinName"`
	Available decimal.Decimal `json:"available"`
	Frozen    decimal.Decimal `json:"frozen"`
	Lock      decimal.Decimal `json:"lock"`
}

// AccountInfo is the spot account profile behind a set of credentials.
type AccountInfo struct {
	UserID      string   `json:"user_id"`
	InviterID   string   `json:"inviter_id"`
	IPs         string   `json:"ips"`
	Authorities []string `json:"authorities"`
	ParentID    int64    `json:"parentId"`
	Trader      bool     `json:"trader"`
}

// OrderRequest describes a spot order to place. Price and Quantity travel
// as strings on the wire.
type OrderRequest struct {
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	OrderType string `json:"orderType"`
	Force     string `json:"force"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
}

// RESTClient provides methods to interact with the Bitget REST API.
type RESTClient struct {
	Config *config.Config
	Logger logging.LoggerInterface

	httpClient *http.Client
	signer     *Signer
}

// NewRESTClient creates a new REST API client.
func NewRESTClient(cfg *config.Config, logger logging.LoggerInterface) *RESTClient {
	return &RESTClient{
		Config:     cfg,
		Logger:     logger,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		signer:     NewSigner(cfg.APISecret),
	}
}

// envelope is the common Bitget response frame.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// request performs one REST call and decodes the business envelope. Private
// calls get the ACCESS-* headers; body is the already-marshaled JSON for
// POST requests, nil for GET.
func (c *RESTClient) request(method, path string, params url.Values, body []byte, private bool) (json.RawMessage, error) {
	if private && (c.Config.APIKey == "" || c.Config.APISecret == "" || c.Config.Passphrase == "") {
		return nil, ErrMissingCredentials
	}

	requestPath := path + CanonicalQuery(params)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.Config.RESTHost+requestPath, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("locale", "en_US")
	req.Header.Set("X-CHANNEL-API-CODE", channelAPICode)

	if private {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		req.Header.Set("ACCESS-KEY", c.Config.APIKey)
		req.Header.Set("ACCESS-SIGN", c.signer.Sign(ts, method, requestPath, string(body)))
		req.Header.Set("ACCESS-TIMESTAMP", ts)
		req.Header.Set("ACCESS-PASSPHRASE", c.Config.Passphrase)
	}

	if c.Logger != nil {
		c.Logger.Debug("Sending %s request to exchange: %s", method, requestPath)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Error("Failed to send %s request to %s: %v", method, path, err)
		}
		return nil, fmt.Errorf("bitget: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bitget: %s %s: read body: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: "unparseable response body",
			Method:  method,
			Path:    path,
		}
	}
	if resp.StatusCode != http.StatusOK || env.Code != codeSuccess {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Code:    env.Code,
			Message: env.Msg,
			Method:  method,
			Path:    path,
		}
		if c.Logger != nil {
			c.Logger.Error("Exchange rejected request: %v", apiErr)
		}
		return nil, apiErr
	}
	return env.Data, nil
}

// ServerTime fetches the exchange clock in milliseconds since epoch.
func (c *RESTClient) ServerTime() (int64, error) {
	data, err := c.request(http.MethodGet, pathServerTime, nil, nil, false)
	if err != nil {
		return 0, err
	}
	var ts string
	if err := json.Unmarshal(data, &ts); err != nil {
		return 0, fmt.Errorf("bitget: server time: %w", err)
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bitget: server time %q: %w", ts, err)
	}
	return ms, nil
}

// GetTicker fetches the latest ticker for a symbol.
func (c *RESTClient) GetTicker(symbol string) (Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	data, err := c.request(http.MethodGet, pathTicker, params, nil, false)
	if err != nil {
		return Ticker{}, err
	}
	var t Ticker
	if err := json.Unmarshal(data, &t); err != nil {
		return Ticker{}, fmt.Errorf("bitget: ticker %s: %w", symbol, err)
	}
	return t, nil
}

// wireCandle is the candle record as Bitget serves it, every field a string.
type wireCandle struct {
	Open  string `json:"open"`
	High  string `json:"high"`
	Low   string `json:"low"`
	Close string `json:"close"`
	Vol   string `json:"baseVol"`
	TS    string `json:"ts"`
}

// GetCandles fetches up to limit historical candles for a symbol at the
// given period (1min, 5min, 1h...). startTime and endTime bound the range
// in milliseconds; zero leaves the bound open.
func (c *RESTClient) GetCandles(symbol, period string, startTime, endTime int64, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("period", period)
	params.Set("limit", strconv.Itoa(limit))
	if startTime > 0 {
		params.Set("startTime", strconv.FormatInt(startTime, 10))
	}
	if endTime > 0 {
		params.Set("endTime", strconv.FormatInt(endTime, 10))
	}

	data, err := c.request(http.MethodGet, pathCandles, params, nil, false)
	if err != nil {
		return nil, err
	}
	var wire []wireCandle
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("bitget: candles %s: %w", symbol, err)
	}

	out := make([]models.Candle, 0, len(wire))
	for _, w := range wire {
		ts, err := strconv.ParseInt(w.TS, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bitget: candle timestamp %q: %w", w.TS, err)
		}
		out = append(out, models.Candle{
			Timestamp: ts,
			Open:      parseFloat(w.Open),
			High:      parseFloat(w.High),
			Low:       parseFloat(w.Low),
			Close:     parseFloat(w.Close),
			Volume:    parseFloat(w.Vol),
		})
	}
	return out, nil
}

// PlaceOrder submits a spot order and returns the exchange order id.
func (c *RESTClient) PlaceOrder(req OrderRequest) (string, error) {
	if req.Force == "" {
		req.Force = "normal"
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	data, err := c.request(http.MethodPost, pathPlaceOrder, nil, body, true)
	if err != nil {
		return "", err
	}
	var r struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("bitget: place order: %w", err)
	}
	return r.OrderID, nil
}

// CancelOrder cancels one open order.
func (c *RESTClient) CancelOrder(symbol, orderID string) error {
	body, err := json.Marshal(map[string]string{
		"symbol":  symbol,
		"orderId": orderID,
	})
	if err != nil {
		return err
	}
	_, err = c.request(http.MethodPost, pathCancelOrder, nil, body, true)
	return err
}

// GetOpenOrders lists the currently open orders for a symbol.
func (c *RESTClient) GetOpenOrders(symbol string) ([]Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	data, err := c.request(http.MethodGet, pathOpenOrders, params, nil, true)
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("bitget: open orders %s: %w", symbol, err)
	}
	return orders, nil
}

// GetOrderHistory lists the filled and cancelled orders for a symbol.
func (c *RESTClient) GetOrderHistory(symbol string) ([]Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	data, err := c.request(http.MethodGet, pathOrderHistory, params, nil, true)
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("bitget: order history %s: %w", symbol, err)
	}
	return orders, nil
}

// GetAssets fetches all spot account balances.
func (c *RESTClient) GetAssets() ([]Asset, error) {
	data, err := c.request(http.MethodGet, pathAssets, nil, nil, true)
	if err != nil {
		return nil, err
	}
	var assets []Asset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("bitget: assets: %w", err)
	}
	return assets, nil
}

// GetAssetBalance returns the balance for one coin, or nil when the account
// holds none of it.
func (c *RESTClient) GetAssetBalance(coin string) (*Asset, error) {
	assets, err := c.GetAssets()
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if assets[i].CoinName == coin {
			return &assets[i], nil
		}
	}
	return nil, nil
}

// GetAccountInfo fetches the account profile for the configured
// credentials.
func (c *RESTClient) GetAccountInfo() (AccountInfo, error) {
	data, err := c.request(http.MethodGet, pathAccountInfo, nil, nil, true)
	if err != nil {
		return AccountInfo{}, err
	}
	var info AccountInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return AccountInfo{}, fmt.Errorf("bitget: account info: %w", err)
	}
	return info, nil
}

// TestConnection checks plain reachability via the public time endpoint.
func (c *RESTClient) TestConnection() error {
	_, err := c.ServerTime()
	return err
}

// TestAuthentication checks the configured credentials against a cheap
// private endpoint.
func (c *RESTClient) TestAuthentication() error {
	_, err := c.GetAccountInfo()
	return err
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
