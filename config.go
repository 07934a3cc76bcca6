package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
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
	Timeframes []string
	// DBEndpoint represents the database connection endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// MinGapRatio is the minimum gap to candle range ratio for detection.
	MinGapRatio float64
	// ScanIntervalSeconds is the signal scan cadence in seconds.
	ScanIntervalSeconds int
	// Trade enables the position engines alongside signal scanning.
	Trade bool
	// LongThreshold is the gain ratio at which a long closes and reopens.
	LongThreshold float64
	// ShortThreshold is the drop ratio at which a short closes and reopens.
	ShortThreshold float64
	// StopLossRatio is the default stop loss ratio for positions.
	StopLossRatio float64
	// PositionSize is the fixed notional position size. Mutually exclusive
	// with the position ratio.
	PositionSize float64
	// PositionRatio is the balance ratio position size. Mutually exclusive
	// with the position size.
	PositionRatio float64
	// Leverage is the leverage multiplier applied to position quantities.
	Leverage int
	// MonitorIntervalSeconds is the position evaluation interval in seconds.
	MonitorIntervalSeconds int

	registeredFlags map[string]bool
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
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

	if cfg.Trade {
		if cfg.APIKey == "" || cfg.APISecret == "" {
			errs = errors.Join(errs, fmt.Errorf("exchange api credentials required for trading"))
		}
		if cfg.PositionSize > 0 && cfg.PositionRatio > 0 {
			errs = errors.Join(errs, fmt.Errorf("position size and position ratio are mutually exclusive"))
		}
		if cfg.PositionSize <= 0 && cfg.PositionRatio <= 0 {
			errs = errors.Join(errs, fmt.Errorf("either a position size or a position ratio is required"))
		}
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("exchange", &cfg.Exchange, "the exchange to trade on, binance or okx")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("apikey", &cfg.APIKey, "the exchange api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("apisecret", &cfg.APISecret, "the exchange api secret")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("passphrase", &cfg.Passphrase, "the exchange api passphrase")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("testnet", &cfg.Testnet, "the exchange testnet flag")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("markets", &cfg.Markets, "the tracked markets")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("timeframes", &cfg.Timeframes, "the scanned timeframes")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbendpoint", &cfg.DBEndpoint, "the database connection endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbuser", &cfg.DBUser, "the database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbpass", &cfg.DBPass, "the database user pass")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("mingapratio", &cfg.MinGapRatio, "the minimum gap to candle range ratio")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("scaninterval", &cfg.ScanIntervalSeconds, "the signal scan interval in seconds")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("trade", &cfg.Trade, "the trading flag")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("longthreshold", &cfg.LongThreshold, "the long close and reopen gain ratio")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("shortthreshold", &cfg.ShortThreshold, "the short close and reopen drop ratio")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("stoplossratio", &cfg.StopLossRatio, "the default stop loss ratio")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("positionsize", &cfg.PositionSize, "the fixed notional position size")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("positionratio", &cfg.PositionRatio, "the balance ratio position size")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("leverage", &cfg.Leverage, "the position leverage multiplier")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("monitorinterval", &cfg.MonitorIntervalSeconds, "the position evaluation interval in seconds")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
