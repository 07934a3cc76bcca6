package shared

import (
	"context"
)

// Balance represents an account balance for a single currency.
type Balance struct {
	Free   float64
	Locked float64
}

// OrderResult represents the outcome of an order placed with an exchange.
type OrderResult struct {
	OrderID  string
	Price    float64
	Quantity float64
	Status   string
}

// ExchangeClient defines the requirements for interacting with a market
// exchange.
type ExchangeClient interface {
	// Name returns the exchange name.
	Name() string
	// FetchTicker fetches 24-hour rolling statistics for the provided market.
	FetchTicker(ctx context.Context, market string) (*Ticker, error)
	// FetchCandles fetches up to limit candlesticks for the provided market
	// and timeframe, ordered by ascending date.
	FetchCandles(ctx context.Context, market string, timeframe Timeframe, limit int) ([]*Candlestick, error)
	// FetchOrderBook fetches an order book snapshot of the provided depth.
	FetchOrderBook(ctx context.Context, market string, depth int) (*OrderBook, error)
	// FetchBalance fetches account balances keyed by currency.
	FetchBalance(ctx context.Context) (map[string]Balance, error)
	// CreateOrder places a market order in the provided direction.
	CreateOrder(ctx context.Context, market string, direction Direction, quantity float64) (*OrderResult, error)
	// ClosePosition closes a position of the provided direction and quantity.
	ClosePosition(ctx context.Context, market string, direction Direction, quantity float64) (*OrderResult, error)
}

// PositionStore defines the requirements for persisting positions, trade
// logs and strategy configuration.
type PositionStore interface {
	// CreatePosition persists the provided position record, assigning its id.
	CreatePosition(ctx context.Context, position *PositionRecord) error
	// UpdatePosition applies the provided partial update to a position.
	UpdatePosition(ctx context.Context, id string, update *PositionUpdate) error
	// ClosePosition transitions a position to its terminal status.
	ClosePosition(ctx context.Context, id string, pnl float64, stopped bool) error
	// CreateTradeLog persists the provided trade log entry.
	CreateTradeLog(ctx context.Context, log *TradeLog) error
	// FetchOpenPositions fetches all open positions for the provided exchange
	// and market.
	FetchOpenPositions(ctx context.Context, exchange string, market string) ([]*PositionRecord, error)
}
