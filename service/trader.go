package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"fvgrid/database"
	"fvgrid/engine"
	"fvgrid/fetch"
	"fvgrid/indicator"
	"fvgrid/monitor"
	"fvgrid/shared"
	"fvgrid/signal"
)

// TraderConfig represents the configuration struct for the trader service.
type TraderConfig struct {
	// Exchange is the exchange to trade on, binance or okx.
	Exchange string
	// APIKey is the exchange api key.
	APIKey string
	// APISecret is the exchange api secret.
	APISecret string
	// Passphrase is the exchange api passphrase, where required.
	Passphrase string
	// Testnet is the exchange testnet flag.
	Testnet bool
	// Markets represents the tracked markets.
	Markets []string
	// Timeframes are the scanned timeframes per market.
	Timeframes []shared.Timeframe
	// DBEndpoint represents the database connection endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// MinGapRatio is the minimum gap to candle range ratio for detection.
	MinGapRatio float64
	// ScanInterval is the signal scan cadence.
	ScanInterval time.Duration
	// Trade enables the position engines alongside signal scanning.
	Trade bool
	// Params are the hedge-grid strategy parameters used when trading.
	Params shared.StrategyParams
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *TraderConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for trader service"))
	}
	if cfg.Exchange != "binance" && cfg.Exchange != "okx" {
		errs = errors.Join(errs, fmt.Errorf("unsupported exchange: %s", cfg.Exchange))
	}
	if cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if cfg.Trade {
		if cfg.APIKey == "" || cfg.APISecret == "" {
			errs = errors.Join(errs, fmt.Errorf("exchange api credentials required for trading"))
		}
		if err := cfg.Params.Validate(); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	return errs
}

// Trader represents the gap scanning and hedge-grid trading service.
type Trader struct {
	cfg      *TraderConfig
	exchange shared.ExchangeClient
	db       *database.Database
	monitor  *monitor.Manager
	engines  []*engine.Engine
	logger   *zerolog.Logger
	wg       sync.WaitGroup
}

// NewTrader initializes a new trader service.
func NewTrader(ctx context.Context, cfg *TraderConfig) (*Trader, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating trader config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "trader").Logger()

	var exchange shared.ExchangeClient
	switch cfg.Exchange {
	case "binance":
		exchange = fetch.NewBinanceClient(cfg.APIKey, cfg.APISecret, cfg.Testnet)
	case "okx":
		exchange = fetch.NewOKXClient(&fetch.OKXConfig{
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			Passphrase: cfg.Passphrase,
		})
	}

	dbLogger := logger.With().Str("component", "database").Logger()
	db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
		Endpoint: cfg.DBEndpoint,
		User:     cfg.DBUser,
		Pass:     cfg.DBPass,
		Logger:   &dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating database: %v", err)
	}

	generator := signal.NewGenerator(&signal.GeneratorConfig{
		MinGapRatio: cfg.MinGapRatio,
	})

	monitorLogger := logger.With().Str("component", "monitor").Logger()
	scanMgr, err := monitor.NewManager(&monitor.ManagerConfig{
		Exchanges:    map[string]shared.ExchangeClient{exchange.Name(): exchange},
		Generator:    generator,
		ScanInterval: cfg.ScanInterval,
		Logger:       &monitorLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating scan manager: %v", err)
	}

	for _, market := range cfg.Markets {
		err = scanMgr.AddMarket(market, exchange.Name(), cfg.Timeframes)
		if err != nil {
			return nil, fmt.Errorf("watching market: %v", err)
		}
	}

	service := &Trader{
		cfg:      cfg,
		exchange: exchange,
		db:       db,
		monitor:  scanMgr,
		logger:   &logger,
	}

	if cfg.Trade {
		for _, market := range cfg.Markets {
			params, err := service.strategyParams(ctx, market)
			if err != nil {
				return nil, err
			}

			engineLogger := logger.With().Str("component", "engine").Str("market", market).Logger()
			positionEngine, err := engine.NewEngine(&engine.EngineConfig{
				Exchange: exchange,
				Store:    db,
				Market:   market,
				Params:   *params,
				Logger:   engineLogger,
			})
			if err != nil {
				return nil, fmt.Errorf("creating position engine for %s: %v", market, err)
			}

			service.engines = append(service.engines, positionEngine)
		}
	}

	return service, nil
}

// strategyParams resolves the strategy parameters for the provided market,
// preferring persisted thresholds over the configured defaults. Configured
// defaults are persisted on first use.
func (t *Trader) strategyParams(ctx context.Context, market string) (*shared.StrategyParams, error) {
	params := t.cfg.Params

	persisted, err := t.db.FetchStrategyParams(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("fetching strategy config for %s: %v", market, err)
	}

	if persisted != nil {
		params.LongThreshold = persisted.LongThreshold
		params.ShortThreshold = persisted.ShortThreshold
		params.StopLossRatio = persisted.StopLossRatio
		return &params, nil
	}

	err = t.db.SaveStrategyParams(ctx, market, &params)
	if err != nil {
		return nil, fmt.Errorf("persisting strategy config for %s: %v", market, err)
	}

	return &params, nil
}

// logSuggestedParams compares the configured thresholds against ATR derived
// suggestions for the provided market.
func (t *Trader) logSuggestedParams(ctx context.Context, market string) {
	candles, err := t.exchange.FetchCandles(ctx, market, shared.OneHour, indicator.DefaultATRPeriod+1)
	if err != nil {
		t.logger.Error().Msgf("fetching candles for %s suggestions: %v", market, err)
		return
	}

	atr, err := indicator.AverageTrueRange(candles, indicator.DefaultATRPeriod)
	if err != nil {
		t.logger.Error().Msgf("computing atr for %s: %v", market, err)
		return
	}

	suggestion := indicator.SuggestParams(atr)
	t.logger.Info().Msgf("%s volatility is %s (atr %.4f, %.2f%%), suggested thresholds %.2f%%/%.2f%%, stop %.2f%%",
		market, atr.Volatility.String(), atr.Value, atr.Percent,
		suggestion.LongThreshold*100, suggestion.ShortThreshold*100, suggestion.StopLossRatio*100)
}

// initializeEngines opens the initial grid legs for markets that have no open
// positions. Markets with open positions resume from their persisted state.
func (t *Trader) initializeEngines(ctx context.Context) error {
	for idx := range t.engines {
		market := t.cfg.Markets[idx]

		t.logSuggestedParams(ctx, market)

		positions, err := t.db.FetchOpenPositions(ctx, t.exchange.Name(), market)
		if err != nil {
			return fmt.Errorf("fetching open positions for %s: %v", market, err)
		}

		if len(positions) > 0 {
			t.logger.Info().Msgf("resuming %s with %d open positions", market, len(positions))
			continue
		}

		err = t.engines[idx].InitializeStrategy(ctx)
		if err != nil {
			return fmt.Errorf("initializing strategy for %s: %v", market, err)
		}
	}

	return nil
}

// Run manages the lifecycle processes of the trader service.
func (t *Trader) Run(ctx context.Context) {
	if t.cfg.Trade {
		err := t.initializeEngines(ctx)
		if err != nil {
			t.logger.Error().Msgf("initializing engines: %v", err)
			t.cfg.Cancel()
			return
		}
	}

	t.wg.Add(1 + len(t.engines))

	go func() {
		t.monitor.Run(ctx)
		t.wg.Done()
	}()

	for idx := range t.engines {
		positionEngine := t.engines[idx]
		go func() {
			positionEngine.Run(ctx)
			t.wg.Done()
		}()
	}

	t.wg.Wait()
}
