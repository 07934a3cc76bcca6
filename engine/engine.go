package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"fvgrid/shared"
)

const (
	// DefaultBalanceCurrency is the currency used for balance lookups and
	// position sizing.
	DefaultBalanceCurrency = "USDT"
)

// EngineConfig represents the configuration for the position engine.
type EngineConfig struct {
	// Exchange represents the market exchange client.
	Exchange shared.ExchangeClient
	// Store represents the position store.
	Store shared.PositionStore
	// Market is the instrument managed by the engine.
	Market string
	// Params are the hedge-grid strategy parameters.
	Params shared.StrategyParams
	// BalanceCurrency is the currency used for sizing balance lookups.
	BalanceCurrency string
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.Exchange == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange client cannot be nil"))
	}
	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("position store cannot be nil"))
	}
	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if err := cfg.Params.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// Engine manages paired long and short positions through their lifecycles.
// Each position closes and reopens on its threshold trigger or closes
// terminally on its stop, sustaining the grid indefinitely.
type Engine struct {
	cfg     *EngineConfig
	running atomic.Bool

	// pendingReopens tracks grid legs whose reopen order failed and is
	// retried on the next tick. The engine runs a single evaluation
	// goroutine, so no locking is needed.
	pendingReopens map[shared.Direction]bool
}

// NewEngine initializes a new position engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}

	if cfg.BalanceCurrency == "" {
		cfg.BalanceCurrency = DefaultBalanceCurrency
	}

	return &Engine{
		cfg:            cfg,
		pendingReopens: make(map[shared.Direction]bool),
	}, nil
}

// Quantity computes the order quantity for the provided price and balance
// according to the sizing rule, leverage applied.
func (e *Engine) Quantity(price float64, balance float64) float64 {
	var quantity float64

	switch e.cfg.Params.Sizing.Mode {
	case shared.FixedSize:
		quantity = e.cfg.Params.Sizing.Size / price
	case shared.BalanceRatio:
		quantity = (balance * e.cfg.Params.Sizing.Ratio) / price
	}

	return quantity * float64(e.cfg.Params.Leverage)
}

// freeBalance fetches the free balance of the sizing currency.
func (e *Engine) freeBalance(ctx context.Context) (float64, error) {
	balances, err := e.cfg.Exchange.FetchBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching balance: %w", err)
	}

	return balances[e.cfg.BalanceCurrency].Free, nil
}

// openPosition places a market order in the provided direction and persists
// the resulting position. Persistence failures propagate since the store is
// the system of record.
func (e *Engine) openPosition(ctx context.Context, direction shared.Direction,
	quantity float64, balance float64) (*shared.PositionRecord, error) {
	order, err := e.cfg.Exchange.CreateOrder(ctx, e.cfg.Market, direction, quantity)
	if err != nil {
		return nil, fmt.Errorf("creating %s order for %s: %w", direction.String(), e.cfg.Market, err)
	}

	position := &shared.PositionRecord{
		Exchange:       e.cfg.Exchange.Name(),
		Market:         e.cfg.Market,
		Direction:      direction,
		EntryPrice:     order.Price,
		CurrentPrice:   order.Price,
		Quantity:       order.Quantity,
		Leverage:       e.cfg.Params.Leverage,
		InitialBalance: balance,
		Status:         shared.Open,
		CreatedOn:      time.Now().UTC(),
	}

	err = e.cfg.Store.CreatePosition(ctx, position)
	if err != nil {
		return nil, fmt.Errorf("persisting %s position for %s: %w", direction.String(), e.cfg.Market, err)
	}

	err = e.cfg.Store.CreateTradeLog(ctx, &shared.TradeLog{
		Exchange:  position.Exchange,
		Market:    position.Market,
		Action:    shared.OpenAction,
		Direction: direction,
		Price:     order.Price,
		Quantity:  order.Quantity,
		OrderID:   order.OrderID,
		Metadata: map[string]any{
			"position_id":     position.ID,
			"leverage":        position.Leverage,
			"initial_balance": balance,
		},
		CreatedOn: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("logging %s open for %s: %w", direction.String(), e.cfg.Market, err)
	}

	e.cfg.Logger.Info().Msgf("opened %s position for %s @ %f (quantity %f)",
		direction.String(), e.cfg.Market, order.Price, order.Quantity)

	return position, nil
}

// InitializeStrategy opens the strategy's initial long and short legs. An
// order failure here is fatal since the dual leg invariant cannot be
// partially satisfied.
func (e *Engine) InitializeStrategy(ctx context.Context) error {
	ticker, err := e.cfg.Exchange.FetchTicker(ctx, e.cfg.Market)
	if err != nil {
		return fmt.Errorf("fetching ticker for %s: %w", e.cfg.Market, err)
	}

	balance, err := e.freeBalance(ctx)
	if err != nil {
		return err
	}

	quantity := e.Quantity(ticker.Price, balance)

	for _, direction := range []shared.Direction{shared.Long, shared.Short} {
		_, err = e.openPosition(ctx, direction, quantity, balance)
		if err != nil {
			return fmt.Errorf("initializing strategy: %w", err)
		}
	}

	e.cfg.Logger.Info().Msgf("strategy initialized for %s with %d positions", e.cfg.Market, 2)

	return nil
}

// closePosition closes the provided position at the current price, recording
// its realized pnl and the triggering action.
func (e *Engine) closePosition(ctx context.Context, position *shared.PositionRecord,
	currentPrice float64, action shared.TradeAction) error {
	order, err := e.cfg.Exchange.ClosePosition(ctx, e.cfg.Market, position.Direction, position.Quantity)
	if err != nil {
		return fmt.Errorf("closing %s position (%s): %w", position.Direction.String(), position.ID, err)
	}

	var pnl float64
	switch position.Direction {
	case shared.Long:
		pnl = (currentPrice - position.EntryPrice) * position.Quantity
	case shared.Short:
		pnl = (position.EntryPrice - currentPrice) * position.Quantity
	}

	stopped := action == shared.StopLossAction
	err = e.cfg.Store.ClosePosition(ctx, position.ID, pnl, stopped)
	if err != nil {
		return fmt.Errorf("persisting close for position (%s): %w", position.ID, err)
	}

	err = e.cfg.Store.CreateTradeLog(ctx, &shared.TradeLog{
		Exchange:  position.Exchange,
		Market:    position.Market,
		Action:    action,
		Direction: position.Direction,
		Price:     currentPrice,
		Quantity:  position.Quantity,
		PNL:       pnl,
		OrderID:   order.OrderID,
		Metadata:  map[string]any{"position_id": position.ID},
		CreatedOn: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("logging %s for position (%s): %w", action.String(), position.ID, err)
	}

	e.cfg.Logger.Info().Msgf("closed %s position (%s) for %s @ %f, pnl %f (%s)",
		position.Direction.String(), position.ID, e.cfg.Market, currentPrice, pnl, action.String())

	return nil
}

// stopLossPrice returns the stop price for the provided position, preferring
// its independent stop over the derived default.
func (e *Engine) stopLossPrice(position *shared.PositionRecord) float64 {
	if position.StopLossPrice > 0 {
		return position.StopLossPrice
	}

	switch position.Direction {
	case shared.Long:
		return position.EntryPrice * (1 - e.cfg.Params.StopLossRatio)
	default:
		return position.EntryPrice * (1 + e.cfg.Params.StopLossRatio)
	}
}

// reopenPosition opens a fresh same-side leg at the current market, marking
// it for a next-tick retry if the order fails.
func (e *Engine) reopenPosition(ctx context.Context, direction shared.Direction) {
	balance, err := e.freeBalance(ctx)
	if err != nil {
		e.cfg.Logger.Error().Msgf("reopening %s leg for %s: %v", direction.String(), e.cfg.Market, err)
		e.pendingReopens[direction] = true
		return
	}

	ticker, err := e.cfg.Exchange.FetchTicker(ctx, e.cfg.Market)
	if err != nil {
		e.cfg.Logger.Error().Msgf("reopening %s leg for %s: %v", direction.String(), e.cfg.Market, err)
		e.pendingReopens[direction] = true
		return
	}

	quantity := e.Quantity(ticker.Price, balance)
	_, err = e.openPosition(ctx, direction, quantity, balance)
	if err != nil {
		e.cfg.Logger.Error().Msgf("reopening %s leg for %s: %v", direction.String(), e.cfg.Market, err)
		e.pendingReopens[direction] = true
		return
	}

	delete(e.pendingReopens, direction)
}

// EvaluatePosition evaluates the provided open position against the current
// price, applying stop loss and threshold transitions.
func (e *Engine) EvaluatePosition(ctx context.Context, position *shared.PositionRecord, currentPrice float64) error {
	err := e.cfg.Store.UpdatePosition(ctx, position.ID, &shared.PositionUpdate{
		CurrentPrice: &currentPrice,
	})
	if err != nil {
		return fmt.Errorf("updating position (%s) price: %w", position.ID, err)
	}

	// Stop loss checks preempt threshold checks for the tick.
	stop := e.stopLossPrice(position)
	switch position.Direction {
	case shared.Long:
		if currentPrice <= stop {
			e.cfg.Logger.Warn().Msgf("long position (%s) stopped out: entry=%f current=%f stop=%f",
				position.ID, position.EntryPrice, currentPrice, stop)
			return e.closePosition(ctx, position, currentPrice, shared.StopLossAction)
		}

		trigger := position.EntryPrice * (1 + e.cfg.Params.LongThreshold)
		if currentPrice >= trigger {
			err := e.closePosition(ctx, position, currentPrice, shared.CloseAction)
			if err != nil {
				return err
			}
			e.reopenPosition(ctx, shared.Long)
		}
	case shared.Short:
		if currentPrice >= stop {
			e.cfg.Logger.Warn().Msgf("short position (%s) stopped out: entry=%f current=%f stop=%f",
				position.ID, position.EntryPrice, currentPrice, stop)
			return e.closePosition(ctx, position, currentPrice, shared.StopLossAction)
		}

		trigger := position.EntryPrice * (1 - e.cfg.Params.ShortThreshold)
		if currentPrice <= trigger {
			err := e.closePosition(ctx, position, currentPrice, shared.CloseAction)
			if err != nil {
				return err
			}
			e.reopenPosition(ctx, shared.Short)
		}
	}

	return nil
}

// tick runs one poll-evaluate-act cycle over the market's open positions.
func (e *Engine) tick(ctx context.Context) {
	ticker, err := e.cfg.Exchange.FetchTicker(ctx, e.cfg.Market)
	if err != nil {
		e.cfg.Logger.Error().Msgf("fetching ticker for %s: %v", e.cfg.Market, err)
		return
	}

	// Retry grid legs whose reopen failed on a previous tick.
	for direction := range e.pendingReopens {
		e.reopenPosition(ctx, direction)
	}

	positions, err := e.cfg.Store.FetchOpenPositions(ctx, e.cfg.Exchange.Name(), e.cfg.Market)
	if err != nil {
		e.cfg.Logger.Error().Msgf("fetching open positions for %s: %v", e.cfg.Market, err)
		return
	}

	for idx := range positions {
		err = e.EvaluatePosition(ctx, positions[idx], ticker.Price)
		if err != nil {
			e.cfg.Logger.Error().Msgf("evaluating position (%s): %v", positions[idx].ID, err)
		}
	}
}

// Stop cooperatively stops the engine's run loop.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Run manages the lifecycle processes of the position engine.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)

	ticker := time.NewTicker(e.cfg.Params.MonitorInterval)
	defer ticker.Stop()

	for {
		if !e.running.Load() {
			return
		}

		select {
		case <-ctx.Done():
			e.running.Store(false)
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}
