package fetch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"fvgrid/shared"
)

const (
	okxBaseURL = "https://www.okx.com"
	// okxTimestampLayout is the ISO 8601 layout okx signs requests with.
	okxTimestampLayout = "2006-01-02T15:04:05.000Z"
)

// okxBars maps timeframes to okx candle bar sizes.
var okxBars = map[shared.Timeframe]string{
	shared.FiveMinute: "5m",
	shared.OneHour:    "1H",
	shared.OneDay:     "1D",
}

// OKXConfig represents the configuration for the okx client.
type OKXConfig struct {
	// APIKey is the okx api key.
	APIKey string
	// APISecret is the okx api secret.
	APISecret string
	// Passphrase is the okx api passphrase.
	Passphrase string
}

// OKXClient represents an okx v5 api client for perpetual swap markets. A
// client is shared between the scan and position engine goroutines and is
// safe for concurrent use.
type OKXClient struct {
	cfg   *OKXConfig
	httpc http.Client
}

// Ensure the OKXClient implements the ExchangeClient interface.
var _ shared.ExchangeClient = (*OKXClient)(nil)

// NewOKXClient instantiates a new okx client.
func NewOKXClient(cfg *OKXConfig) *OKXClient {
	return &OKXClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}
}

// Name returns the exchange name.
func (c *OKXClient) Name() string {
	return "okx"
}

// formURL creates full urls including parameters for the api.
func (c *OKXClient) formURL(path string, params string) string {
	var b strings.Builder
	b.Grow(len(okxBaseURL) + len(path) + len(params) + 1)
	b.WriteString(okxBaseURL)
	b.WriteString(path)
	if params != "" {
		b.WriteString("?")
		b.WriteString(params)
	}

	return b.String()
}

// sign generates the request signature okx expects on private endpoints.
func (c *OKXClient) sign(timestamp string, method string, requestPath string, body string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(timestamp + method + requestPath + body))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// do executes the provided request against the api and returns the response
// data array. Private requests are signed.
func (c *OKXClient) do(ctx context.Context, method string, requestPath string, body string, private bool) ([]gjson.Result, error) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.formURL(requestPath, ""), reader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request for %s: %w", method, requestPath, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if private {
		timestamp := time.Now().UTC().Format(okxTimestampLayout)
		req.Header.Set("OK-ACCESS-KEY", c.cfg.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(timestamp, method, requestPath, body))
		req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing %s request for %s: %w", method, requestPath, err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	code := gjson.GetBytes(respBody, "code").String()
	if code != "0" {
		return nil, fmt.Errorf("okx api error for %s (code %s): %s",
			requestPath, code, gjson.GetBytes(respBody, "msg").String())
	}

	return gjson.GetBytes(respBody, "data").Array(), nil
}

// FetchTicker fetches 24-hour rolling statistics for the provided market.
func (c *OKXClient) FetchTicker(ctx context.Context, market string) (*shared.Ticker, error) {
	params := url.Values{}
	params.Add("instId", market)

	data, err := c.do(ctx, http.MethodGet, "/api/v5/market/ticker?"+params.Encode(), "", false)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no ticker returned for %s", market)
	}

	last := data[0].Get("last").Float()
	open24h := data[0].Get("open24h").Float()

	var changePercent float64
	if open24h > 0 {
		changePercent = (last - open24h) / open24h * 100
	}

	return &shared.Ticker{
		Market:        market,
		Price:         last,
		ChangePercent: changePercent,
		Volume:        data[0].Get("vol24h").Float(),
		Date:          time.Now().UTC(),
	}, nil
}

// ParseCandlesticks parses candlesticks from the provided json data. The api
// returns candles newest first, the result is reversed into ascending date
// order.
func (c *OKXClient) ParseCandlesticks(data []gjson.Result, market string, timeframe shared.Timeframe) []*shared.Candlestick {
	candles := make([]*shared.Candlestick, 0, len(data))
	for idx := len(data) - 1; idx >= 0; idx-- {
		row := data[idx].Array()
		if len(row) < 6 {
			continue
		}

		candles = append(candles, &shared.Candlestick{
			Open:      row[1].Float(),
			High:      row[2].Float(),
			Low:       row[3].Float(),
			Close:     row[4].Float(),
			Volume:    row[5].Float(),
			Date:      time.UnixMilli(row[0].Int()).UTC(),
			Market:    market,
			Timeframe: timeframe,
		})
	}

	return candles
}

// FetchCandles fetches up to limit candlesticks for the provided market and
// timeframe, ordered by ascending date.
func (c *OKXClient) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, limit int) ([]*shared.Candlestick, error) {
	bar, ok := okxBars[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe for okx: %s", timeframe.String())
	}

	params := url.Values{}
	params.Add("instId", market)
	params.Add("bar", bar)
	params.Add("limit", strconv.Itoa(limit))

	data, err := c.do(ctx, http.MethodGet, "/api/v5/market/candles?"+params.Encode(), "", false)
	if err != nil {
		return nil, err
	}

	return c.ParseCandlesticks(data, market, timeframe), nil
}

// parseBookSide parses one side of an order book from the provided json data.
func parseBookSide(side gjson.Result) []shared.OrderBookLevel {
	rows := side.Array()
	levels := make([]shared.OrderBookLevel, 0, len(rows))
	for idx := range rows {
		row := rows[idx].Array()
		if len(row) < 2 {
			continue
		}

		levels = append(levels, shared.OrderBookLevel{
			Price:  row[0].Float(),
			Amount: row[1].Float(),
		})
	}

	return levels
}

// FetchOrderBook fetches an order book snapshot of the provided depth.
func (c *OKXClient) FetchOrderBook(ctx context.Context, market string, depth int) (*shared.OrderBook, error) {
	params := url.Values{}
	params.Add("instId", market)
	params.Add("sz", strconv.Itoa(depth))

	data, err := c.do(ctx, http.MethodGet, "/api/v5/market/books?"+params.Encode(), "", false)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no order book returned for %s", market)
	}

	return &shared.OrderBook{
		Market: market,
		Bids:   parseBookSide(data[0].Get("bids")),
		Asks:   parseBookSide(data[0].Get("asks")),
		Date:   time.Now().UTC(),
	}, nil
}

// FetchBalance fetches trading account balances keyed by currency.
func (c *OKXClient) FetchBalance(ctx context.Context) (map[string]shared.Balance, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v5/account/balance", "", true)
	if err != nil {
		return nil, err
	}

	result := make(map[string]shared.Balance)
	if len(data) == 0 {
		return result, nil
	}

	details := data[0].Get("details").Array()
	for idx := range details {
		currency := details[idx].Get("ccy").String()
		result[currency] = shared.Balance{
			Free:   details[idx].Get("availBal").Float(),
			Locked: details[idx].Get("frozenBal").Float(),
		}
	}

	return result, nil
}

// fetchOrder fetches the details of the provided order.
func (c *OKXClient) fetchOrder(ctx context.Context, market string, orderID string) (*shared.OrderResult, error) {
	params := url.Values{}
	params.Add("instId", market)
	params.Add("ordId", orderID)

	path := "/api/v5/trade/order?" + params.Encode()
	data, err := c.do(ctx, http.MethodGet, path, "", true)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no order details returned for %s", orderID)
	}

	return &shared.OrderResult{
		OrderID:  orderID,
		Price:    data[0].Get("avgPx").Float(),
		Quantity: data[0].Get("accFillSz").Float(),
		Status:   data[0].Get("state").String(),
	}, nil
}

// placeOrder places a market order and resolves its fill details. Market
// order placements only acknowledge the order id, the fill price requires a
// follow up order details request.
func (c *OKXClient) placeOrder(ctx context.Context, market string, side string, quantity float64, reduceOnly bool) (*shared.OrderResult, error) {
	body := fmt.Sprintf(`{"instId":%q,"tdMode":"cross","side":%q,"ordType":"market","sz":%q,"reduceOnly":%t}`,
		market, side, strconv.FormatFloat(quantity, 'f', -1, 64), reduceOnly)

	data, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", body, true)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no order acknowledgement returned for %s", market)
	}

	sCode := data[0].Get("sCode").String()
	if sCode != "0" {
		return nil, fmt.Errorf("okx order rejected for %s (code %s): %s",
			market, sCode, data[0].Get("sMsg").String())
	}

	return c.fetchOrder(ctx, market, data[0].Get("ordId").String())
}

// CreateOrder places a market order in the provided direction.
func (c *OKXClient) CreateOrder(ctx context.Context, market string, direction shared.Direction, quantity float64) (*shared.OrderResult, error) {
	switch direction {
	case shared.Long:
		return c.placeOrder(ctx, market, "buy", quantity, false)
	case shared.Short:
		return c.placeOrder(ctx, market, "sell", quantity, false)
	default:
		return nil, fmt.Errorf("no order side for direction: %s", direction.String())
	}
}

// ClosePosition closes a position of the provided direction and quantity
// with an opposing reduce-only market order.
func (c *OKXClient) ClosePosition(ctx context.Context, market string, direction shared.Direction, quantity float64) (*shared.OrderResult, error) {
	switch direction {
	case shared.Long:
		return c.placeOrder(ctx, market, "sell", quantity, true)
	case shared.Short:
		return c.placeOrder(ctx, market, "buy", quantity, true)
	default:
		return nil, fmt.Errorf("no closing side for direction: %s", direction.String())
	}
}
