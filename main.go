package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"fvgrid/service"
	"fvgrid/shared"
)

// defaultTimeframes are the scanned timeframes when none are configured.
var defaultTimeframes = []shared.Timeframe{shared.FiveMinute, shared.OneHour, shared.OneDay}

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// parseTimeframes parses the configured timeframe strings, falling back to
// the defaults when none are set.
func parseTimeframes(raw []string) ([]shared.Timeframe, error) {
	if len(raw) == 0 {
		return defaultTimeframes, nil
	}

	timeframes := make([]shared.Timeframe, 0, len(raw))
	for idx := range raw {
		timeframe, err := shared.ParseTimeframe(raw[idx])
		if err != nil {
			return nil, err
		}

		timeframes = append(timeframes, timeframe)
	}

	return timeframes, nil
}

// strategyParams assembles strategy parameters from the provided config.
func strategyParams(cfg *Config) shared.StrategyParams {
	sizing := shared.Sizing{Mode: shared.FixedSize, Size: cfg.PositionSize}
	if cfg.PositionRatio > 0 {
		sizing = shared.Sizing{Mode: shared.BalanceRatio, Ratio: cfg.PositionRatio}
	}

	leverage := cfg.Leverage
	if leverage < 1 {
		leverage = 1
	}

	monitorInterval := time.Duration(cfg.MonitorIntervalSeconds) * time.Second
	if monitorInterval <= 0 {
		monitorInterval = time.Second
	}

	return shared.StrategyParams{
		LongThreshold:   cfg.LongThreshold,
		ShortThreshold:  cfg.ShortThreshold,
		StopLossRatio:   cfg.StopLossRatio,
		Sizing:          sizing,
		Leverage:        leverage,
		MonitorInterval: monitorInterval,
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	timeframes, err := parseTimeframes(cfg.Timeframes)
	if err != nil {
		log.Printf("parsing timeframes: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traderCfg := service.TraderConfig{
		Exchange:     cfg.Exchange,
		APIKey:       cfg.APIKey,
		APISecret:    cfg.APISecret,
		Passphrase:   cfg.Passphrase,
		Testnet:      cfg.Testnet,
		Markets:      cfg.Markets,
		Timeframes:   timeframes,
		DBEndpoint:   cfg.DBEndpoint,
		DBUser:       cfg.DBUser,
		DBPass:       cfg.DBPass,
		MinGapRatio:  cfg.MinGapRatio,
		ScanInterval: time.Duration(cfg.ScanIntervalSeconds) * time.Second,
		Trade:        cfg.Trade,
		Params:       strategyParams(&cfg),
		Cancel:       cancel,
	}
	trader, err := service.NewTrader(ctx, &traderCfg)
	if err != nil {
		log.Printf("creating trader service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	trader.Run(ctx)
}
