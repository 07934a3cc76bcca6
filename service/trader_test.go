package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"fvgrid/shared"
)

func TestTraderConfigValidate(t *testing.T) {
	cancel := context.CancelFunc(func() {})

	tradingParams := shared.StrategyParams{
		LongThreshold:   0.02,
		ShortThreshold:  0.02,
		StopLossRatio:   0.05,
		Sizing:          shared.Sizing{Mode: shared.FixedSize, Size: 1000},
		Leverage:        5,
		MonitorInterval: time.Second * 5,
	}

	tests := []struct {
		name    string
		cfg     TraderConfig
		wantErr []string
	}{
		{
			name: "valid config, scanning only",
			cfg: TraderConfig{
				Exchange:   "binance",
				Markets:    []string{"BTCUSDT"},
				DBEndpoint: "http://localhost:4001",
				Cancel:     cancel,
			},
			wantErr: nil,
		},
		{
			name: "missing markets",
			cfg: TraderConfig{
				Exchange:   "binance",
				DBEndpoint: "http://localhost:4001",
				Cancel:     cancel,
			},
			wantErr: []string{"no markets provided for trader service"},
		},
		{
			name: "unsupported exchange",
			cfg: TraderConfig{
				Exchange:   "kraken",
				Markets:    []string{"BTCUSDT"},
				DBEndpoint: "http://localhost:4001",
				Cancel:     cancel,
			},
			wantErr: []string{"unsupported exchange: kraken"},
		},
		{
			name: "missing cancel function",
			cfg: TraderConfig{
				Exchange:   "binance",
				Markets:    []string{"BTCUSDT"},
				DBEndpoint: "http://localhost:4001",
			},
			wantErr: []string{"context cancellation function cannot be nil"},
		},
		{
			name: "trading without credentials",
			cfg: TraderConfig{
				Exchange:   "binance",
				Markets:    []string{"BTCUSDT"},
				DBEndpoint: "http://localhost:4001",
				Cancel:     cancel,
				Trade:      true,
				Params:     tradingParams,
			},
			wantErr: []string{"exchange api credentials required for trading"},
		},
		{
			name: "trading with invalid strategy params",
			cfg: TraderConfig{
				Exchange:   "binance",
				Markets:    []string{"BTCUSDT"},
				DBEndpoint: "http://localhost:4001",
				Cancel:     cancel,
				Trade:      true,
				APIKey:     "key",
				APISecret:  "secret",
			},
			wantErr: []string{"long threshold must be positive"},
		},
		{
			name: "valid trading config",
			cfg: TraderConfig{
				Exchange:   "okx",
				Markets:    []string{"BTC-USDT-SWAP"},
				DBEndpoint: "http://localhost:4001",
				Cancel:     cancel,
				Trade:      true,
				APIKey:     "key",
				APISecret:  "secret",
				Passphrase: "phrase",
				Params:     tradingParams,
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
				return
			}

			if err == nil {
				t.Errorf("expected error(s) %v, got none", tt.wantErr)
				return
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected error to contain %q, got %v", want, err)
				}
			}
		})
	}
}
