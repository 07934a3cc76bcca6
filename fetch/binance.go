package fetch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"fvgrid/shared"
)

// binanceIntervals maps timeframes to binance kline intervals.
var binanceIntervals = map[shared.Timeframe]string{
	shared.FiveMinute: "5m",
	shared.OneHour:    "1h",
	shared.OneDay:     "1d",
}

// BinanceClient represents a binance usd-margined futures client.
type BinanceClient struct {
	client *futures.Client
}

// Ensure BinanceClient implements the ExchangeClient interface.
var _ shared.ExchangeClient = (*BinanceClient)(nil)

// NewBinanceClient initializes a new binance futures client. Testnet
// selection is a process global in the futures package, so it applies to
// every client in the process.
func NewBinanceClient(apiKey string, apiSecret string, testnet bool) *BinanceClient {
	futures.UseTestnet = testnet
	client := futures.NewClient(apiKey, apiSecret)

	return &BinanceClient{
		client: client,
	}
}

// Name returns the exchange name.
func (c *BinanceClient) Name() string {
	return "binance"
}

// parseFloat parses the provided string as a float, annotating failures with
// the field name.
func parseFloat(value string, field string) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", field, value, err)
	}

	return parsed, nil
}

// FetchTicker fetches 24-hour rolling statistics for the provided market.
func (c *BinanceClient) FetchTicker(ctx context.Context, market string) (*shared.Ticker, error) {
	stats, err := c.client.NewListPriceChangeStatsService().Symbol(market).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching price change stats for %s: %w", market, err)
	}

	if len(stats) == 0 {
		return nil, fmt.Errorf("no price change stats returned for %s", market)
	}

	price, err := parseFloat(stats[0].LastPrice, "last price")
	if err != nil {
		return nil, err
	}

	changePercent, err := parseFloat(stats[0].PriceChangePercent, "price change percent")
	if err != nil {
		return nil, err
	}

	volume, err := parseFloat(stats[0].Volume, "volume")
	if err != nil {
		return nil, err
	}

	return &shared.Ticker{
		Market:        market,
		Price:         price,
		ChangePercent: changePercent,
		Volume:        volume,
		Date:          time.Now().UTC(),
	}, nil
}

// FetchCandles fetches up to limit candlesticks for the provided market and
// timeframe, ordered by ascending date.
func (c *BinanceClient) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, limit int) ([]*shared.Candlestick, error) {
	interval, ok := binanceIntervals[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe for binance: %s", timeframe.String())
	}

	klines, err := c.client.NewKlinesService().
		Symbol(market).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s klines for %s: %w", interval, market, err)
	}

	candles := make([]*shared.Candlestick, 0, len(klines))
	for _, kline := range klines {
		open, err := parseFloat(kline.Open, "open")
		if err != nil {
			return nil, err
		}

		high, err := parseFloat(kline.High, "high")
		if err != nil {
			return nil, err
		}

		low, err := parseFloat(kline.Low, "low")
		if err != nil {
			return nil, err
		}

		clos, err := parseFloat(kline.Close, "close")
		if err != nil {
			return nil, err
		}

		volume, err := parseFloat(kline.Volume, "volume")
		if err != nil {
			return nil, err
		}

		candles = append(candles, &shared.Candlestick{
			Open:      open,
			High:      high,
			Low:       low,
			Close:     clos,
			Volume:    volume,
			Date:      time.UnixMilli(kline.OpenTime).UTC(),
			Market:    market,
			Timeframe: timeframe,
		})
	}

	return candles, nil
}

// FetchOrderBook fetches an order book snapshot of the provided depth.
func (c *BinanceClient) FetchOrderBook(ctx context.Context, market string, depth int) (*shared.OrderBook, error) {
	book, err := c.client.NewDepthService().
		Symbol(market).
		Limit(depth).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching order book for %s: %w", market, err)
	}

	orderBook := &shared.OrderBook{
		Market: market,
		Bids:   make([]shared.OrderBookLevel, 0, len(book.Bids)),
		Asks:   make([]shared.OrderBookLevel, 0, len(book.Asks)),
		Date:   time.Now().UTC(),
	}

	for _, bid := range book.Bids {
		price, err := parseFloat(bid.Price, "bid price")
		if err != nil {
			return nil, err
		}

		amount, err := parseFloat(bid.Quantity, "bid quantity")
		if err != nil {
			return nil, err
		}

		orderBook.Bids = append(orderBook.Bids, shared.OrderBookLevel{Price: price, Amount: amount})
	}

	for _, ask := range book.Asks {
		price, err := parseFloat(ask.Price, "ask price")
		if err != nil {
			return nil, err
		}

		amount, err := parseFloat(ask.Quantity, "ask quantity")
		if err != nil {
			return nil, err
		}

		orderBook.Asks = append(orderBook.Asks, shared.OrderBookLevel{Price: price, Amount: amount})
	}

	return orderBook, nil
}

// FetchBalance fetches futures account balances keyed by currency.
func (c *BinanceClient) FetchBalance(ctx context.Context) (map[string]shared.Balance, error) {
	balances, err := c.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching account balances: %w", err)
	}

	result := make(map[string]shared.Balance, len(balances))
	for _, balance := range balances {
		total, err := parseFloat(balance.Balance, "balance")
		if err != nil {
			return nil, err
		}

		free, err := parseFloat(balance.AvailableBalance, "available balance")
		if err != nil {
			return nil, err
		}

		result[balance.Asset] = shared.Balance{
			Free:   free,
			Locked: total - free,
		}
	}

	return result, nil
}

// orderSide maps a trade direction to the binance order side.
func orderSide(direction shared.Direction) (futures.SideType, error) {
	switch direction {
	case shared.Long:
		return futures.SideTypeBuy, nil
	case shared.Short:
		return futures.SideTypeSell, nil
	default:
		return "", fmt.Errorf("no order side for direction: %s", direction.String())
	}
}

// submitOrder places a market order, optionally flagged reduce-only.
func (c *BinanceClient) submitOrder(ctx context.Context, market string, side futures.SideType,
	quantity float64, reduceOnly bool) (*shared.OrderResult, error) {
	svc := c.client.NewCreateOrderService().
		Symbol(market).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', -1, 64))
	if reduceOnly {
		svc = svc.ReduceOnly(true)
	}

	order, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("placing %s order for %s: %w", side, market, err)
	}

	price, err := parseFloat(order.AvgPrice, "average price")
	if err != nil {
		return nil, err
	}

	executed, err := parseFloat(order.ExecutedQuantity, "executed quantity")
	if err != nil {
		return nil, err
	}

	return &shared.OrderResult{
		OrderID:  strconv.FormatInt(order.OrderID, 10),
		Price:    price,
		Quantity: executed,
		Status:   string(order.Status),
	}, nil
}

// CreateOrder places a market order in the provided direction.
func (c *BinanceClient) CreateOrder(ctx context.Context, market string, direction shared.Direction, quantity float64) (*shared.OrderResult, error) {
	side, err := orderSide(direction)
	if err != nil {
		return nil, err
	}

	return c.submitOrder(ctx, market, side, quantity, false)
}

// ClosePosition closes a position of the provided direction and quantity
// with an opposing reduce-only market order.
func (c *BinanceClient) ClosePosition(ctx context.Context, market string, direction shared.Direction, quantity float64) (*shared.OrderResult, error) {
	var side futures.SideType
	switch direction {
	case shared.Long:
		side = futures.SideTypeSell
	case shared.Short:
		side = futures.SideTypeBuy
	default:
		return nil, fmt.Errorf("no closing side for direction: %s", direction.String())
	}

	return c.submitOrder(ctx, market, side, quantity, true)
}
