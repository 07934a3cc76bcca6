package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"fvgrid/shared"
	"fvgrid/signal"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// defaultScanInterval is the default scan cadence.
	defaultScanInterval = time.Second * 30
	// defaultCandleLimit is the default number of candles fetched per scan.
	defaultCandleLimit = 100
	// defaultBookDepth is the default order book depth fetched per scan.
	defaultBookDepth = 20
)

// Callback represents a signal observer invoked with newly cached signals.
type Callback func(market string, timeframe shared.Timeframe, sig *shared.TradeSignal)

// ManagerConfig represents the configuration for the scan manager.
type ManagerConfig struct {
	// Exchanges are the available exchange clients keyed by name.
	Exchanges map[string]shared.ExchangeClient
	// Generator represents the trade signal generator.
	Generator *signal.Generator
	// ScanInterval is the scan cadence.
	ScanInterval time.Duration
	// CandleLimit is the number of candles fetched per scan.
	CandleLimit int
	// BookDepth is the order book depth fetched per scan.
	BookDepth int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// watchedMarket represents a market tracked by the scan loop.
type watchedMarket struct {
	exchange   string
	timeframes []shared.Timeframe
	addedOn    time.Time
}

// WatchedMarket represents a snapshot of a tracked market.
type WatchedMarket struct {
	Market      string
	Exchange    string
	Timeframes  []shared.Timeframe
	AddedOn     time.Time
	SignalCount int
}

// notification represents a cached signal queued for observer dispatch.
type notification struct {
	market    string
	timeframe shared.Timeframe
	sig       *shared.TradeSignal
}

// Manager periodically scans a mutable set of watched markets, caches the
// latest signal per market and timeframe, and notifies registered observers.
// The watched set, the signal cache and the observer registry share one
// mutual exclusion domain.
type Manager struct {
	cfg           *ManagerConfig
	mtx           sync.Mutex
	watched       map[string]*watchedMarket
	signals       map[string]map[shared.Timeframe]*shared.TradeSignal
	callbacks     map[uint64]Callback
	nextCallback  uint64
	notifications chan notification
	jobScheduler  *gocron.Scheduler
}

// NewManager initializes a new scan manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if len(cfg.Exchanges) == 0 {
		return nil, fmt.Errorf("no exchange clients provided for scan manager")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("signal generator cannot be nil")
	}

	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = defaultCandleLimit
	}
	if cfg.BookDepth <= 0 {
		cfg.BookDepth = defaultBookDepth
	}

	return &Manager{
		cfg:           cfg,
		watched:       make(map[string]*watchedMarket),
		signals:       make(map[string]map[shared.Timeframe]*shared.TradeSignal),
		callbacks:     make(map[uint64]Callback),
		notifications: make(chan notification, bufferSize),
		jobScheduler:  gocron.NewScheduler(time.UTC),
	}, nil
}

// AddMarket adds the provided market to the watched set.
func (m *Manager) AddMarket(market string, exchange string, timeframes []shared.Timeframe) error {
	_, ok := m.cfg.Exchanges[exchange]
	if !ok {
		return fmt.Errorf("unknown exchange for %s: %s", market, exchange)
	}

	if len(timeframes) == 0 {
		timeframes = []shared.Timeframe{shared.FiveMinute, shared.OneHour, shared.OneDay}
	}

	m.mtx.Lock()
	m.watched[market] = &watchedMarket{
		exchange:   exchange,
		timeframes: timeframes,
		addedOn:    time.Now().UTC(),
	}
	m.mtx.Unlock()

	m.cfg.Logger.Info().Msgf("watching %s (%s) on %d timeframes", market, exchange, len(timeframes))

	return nil
}

// RemoveMarket removes the provided market from the watched set along with
// its cached signals.
func (m *Manager) RemoveMarket(market string) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	_, ok := m.watched[market]
	if !ok {
		return false
	}

	delete(m.watched, market)
	delete(m.signals, market)

	return true
}

// Watched returns a snapshot of the watched markets.
func (m *Manager) Watched() []WatchedMarket {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	markets := make([]WatchedMarket, 0, len(m.watched))
	for market, info := range m.watched {
		markets = append(markets, WatchedMarket{
			Market:      market,
			Exchange:    info.exchange,
			Timeframes:  append([]shared.Timeframe{}, info.timeframes...),
			AddedOn:     info.addedOn,
			SignalCount: len(m.signals[market]),
		})
	}

	return markets
}

// LatestSignals returns the cached signals for the provided market, or for
// all watched markets when the market is empty.
func (m *Manager) LatestSignals(market string) map[string]map[shared.Timeframe]*shared.TradeSignal {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	result := make(map[string]map[shared.Timeframe]*shared.TradeSignal)
	for sym, cached := range m.signals {
		if market != "" && sym != market {
			continue
		}

		signals := make(map[shared.Timeframe]*shared.TradeSignal, len(cached))
		for timeframe, sig := range cached {
			signals[timeframe] = sig
		}
		result[sym] = signals
	}

	return result
}

// RegisterCallback registers the provided observer, returning its
// registration id.
func (m *Manager) RegisterCallback(callback Callback) uint64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.nextCallback++
	id := m.nextCallback
	m.callbacks[id] = callback

	return id
}

// UnregisterCallback unregisters the observer with the provided id.
func (m *Manager) UnregisterCallback(id uint64) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.callbacks, id)
}

// scanMarket scans a single market across its timeframes, caching results.
// Per timeframe failures are isolated so one market cannot abort a pass.
func (m *Manager) scanMarket(ctx context.Context, market string, info *watchedMarket) {
	client, ok := m.cfg.Exchanges[info.exchange]
	if !ok {
		m.cfg.Logger.Error().Msgf("no exchange client for %s: %s", market, info.exchange)
		return
	}

	for _, timeframe := range info.timeframes {
		candles, err := client.FetchCandles(ctx, market, timeframe, m.cfg.CandleLimit)
		if err != nil {
			m.cfg.Logger.Error().Msgf("fetching %s candles for %s: %v", timeframe.String(), market, err)
			continue
		}

		book, err := client.FetchOrderBook(ctx, market, m.cfg.BookDepth)
		if err != nil {
			m.cfg.Logger.Error().Msgf("fetching order book for %s: %v", market, err)
			continue
		}

		ticker, err := client.FetchTicker(ctx, market)
		if err != nil {
			m.cfg.Logger.Error().Msgf("fetching ticker for %s: %v", market, err)
			continue
		}

		sig := m.cfg.Generator.Generate(candles, book, ticker.Price, ticker)
		sig.Market = market
		sig.Exchange = info.exchange
		sig.Timeframe = timeframe

		m.mtx.Lock()
		cached, ok := m.signals[market]
		if !ok {
			cached = make(map[shared.Timeframe]*shared.TradeSignal)
			m.signals[market] = cached
		}
		cached[timeframe] = sig
		m.mtx.Unlock()

		if !sig.HasSignal {
			continue
		}

		m.cfg.Logger.Info().Msgf("%s %s: %s signal, confidence %.1f%%",
			market, timeframe.String(), sig.Direction.String(), sig.Confidence)

		select {
		case m.notifications <- notification{market: market, timeframe: timeframe, sig: sig}:
			// do nothing.
		default:
			m.cfg.Logger.Error().Msgf("notification channel at capacity: %d/%d",
				len(m.notifications), bufferSize)
		}
	}
}

// scan runs one pass over the watched set.
func (m *Manager) scan(ctx context.Context) {
	m.mtx.Lock()
	markets := make(map[string]*watchedMarket, len(m.watched))
	for market, info := range m.watched {
		markets[market] = info
	}
	m.mtx.Unlock()

	for market, info := range markets {
		m.scanMarket(ctx, market, info)
	}
}

// notify dispatches the provided notification to all registered observers.
// A panicking observer cannot prevent subsequent observers from running.
func (m *Manager) notify(n notification) {
	m.mtx.Lock()
	callbacks := make([]Callback, 0, len(m.callbacks))
	for _, callback := range m.callbacks {
		callbacks = append(callbacks, callback)
	}
	m.mtx.Unlock()

	for _, callback := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.cfg.Logger.Error().Msgf("signal callback panicked for %s: %v", n.market, r)
				}
			}()

			callback(n.market, n.timeframe, n.sig)
		}()
	}
}

// Run manages the lifecycle processes of the scan manager.
func (m *Manager) Run(ctx context.Context) {
	_, err := m.jobScheduler.Every(m.cfg.ScanInterval).Do(func() {
		m.scan(ctx)
	})
	if err != nil {
		m.cfg.Logger.Error().Msgf("scheduling scan job: %v", err)
		return
	}

	m.jobScheduler.StartAsync()
	defer m.jobScheduler.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-m.notifications:
			m.notify(n)
		}
	}
}
