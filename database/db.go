package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"

	"fvgrid/shared"
)

const (
	// SQL statements.
	createPositionTableSQL = "CREATE TABLE IF NOT EXISTS positions (id TEXT PRIMARY KEY, exchange TEXT, market TEXT, direction INTEGER, entryprice REAL, currentprice REAL, quantity REAL, leverage REAL, stoplossprice REAL, initialbalance REAL, status INTEGER, pnl REAL, createdon INTEGER, closedon INTEGER)"
	createTradeLogTableSQL = "CREATE TABLE IF NOT EXISTS trade_logs (id TEXT PRIMARY KEY, exchange TEXT, market TEXT, action TEXT, direction INTEGER, price REAL, quantity REAL, pnl REAL, orderid TEXT, metadata TEXT, createdon INTEGER)"
	createStrategyTableSQL = "CREATE TABLE IF NOT EXISTS strategy_config (market TEXT PRIMARY KEY, longthreshold REAL, shortthreshold REAL, stoplossratio REAL, updatedon INTEGER)"
	persistPositionSQL     = "INSERT INTO positions(id, exchange, market, direction, entryprice, currentprice, quantity, leverage, stoplossprice, initialbalance, status, pnl, createdon, closedon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	updatePositionSQL      = "UPDATE positions SET currentprice = COALESCE(?, currentprice), status = COALESCE(?, status), pnl = COALESCE(?, pnl) WHERE id = ?"
	closePositionSQL       = "UPDATE positions SET status = ?, pnl = ?, closedon = ? WHERE id = ?"
	persistTradeLogSQL     = "INSERT INTO trade_logs(id, exchange, market, action, direction, price, quantity, pnl, orderid, metadata, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?)"
	findOpenPositionsSQL   = "SELECT id, exchange, market, direction, entryprice, currentprice, quantity, leverage, stoplossprice, initialbalance, status, pnl, createdon FROM positions WHERE exchange = ? AND market = ? AND status = ? ORDER BY createdon ASC"
	upsertStrategySQL      = "INSERT INTO strategy_config(market, longthreshold, shortthreshold, stoplossratio, updatedon) VALUES(?,?,?,?,?) ON CONFLICT(market) DO UPDATE SET longthreshold = excluded.longthreshold, shortthreshold = excluded.shortthreshold, stoplossratio = excluded.stoplossratio, updatedon = excluded.updatedon"
	findStrategySQL        = "SELECT longthreshold, shortthreshold, stoplossratio FROM strategy_config WHERE market = ?"
)

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the PositionStore interface.
var _ shared.PositionStore = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createPositionTableSQL},
		{SQL: createTradeLogTableSQL},
		{SQL: createStrategyTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// execute runs the provided statement and surfaces statement level errors.
func (db *Database) execute(ctx context.Context, stmt rqlitehttp.SQLStatement) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{&stmt},
		&rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("executing statement: %d -> %s", idx, errStr)
	}

	return nil
}

// CreatePosition persists the provided position record, assigning its id.
func (db *Database) CreatePosition(ctx context.Context, position *shared.PositionRecord) error {
	if position.ID == "" {
		position.ID = uuid.NewString()
	}
	if position.CreatedOn.IsZero() {
		position.CreatedOn = time.Now().UTC()
	}

	var closedOn any
	if !position.ClosedOn.IsZero() {
		closedOn = position.ClosedOn.Unix()
	}

	err := db.execute(ctx, rqlitehttp.SQLStatement{
		SQL: persistPositionSQL,
		PositionalParams: []any{position.ID, position.Exchange, position.Market, int(position.Direction),
			position.EntryPrice, position.CurrentPrice, position.Quantity, position.Leverage,
			position.StopLossPrice, position.InitialBalance, int(position.Status), position.PNL,
			position.CreatedOn.Unix(), closedOn},
	})
	if err != nil {
		return fmt.Errorf("persisting position %s: %w", position.ID, err)
	}

	return nil
}

// UpdatePosition applies the provided partial update to a position. Unset
// fields keep their stored values.
func (db *Database) UpdatePosition(ctx context.Context, id string, update *shared.PositionUpdate) error {
	var currentPrice, status, pnl any
	if update.CurrentPrice != nil {
		currentPrice = *update.CurrentPrice
	}
	if update.Status != nil {
		status = int(*update.Status)
	}
	if update.PNL != nil {
		pnl = *update.PNL
	}

	err := db.execute(ctx, rqlitehttp.SQLStatement{
		SQL:              updatePositionSQL,
		PositionalParams: []any{currentPrice, status, pnl, id},
	})
	if err != nil {
		return fmt.Errorf("updating position %s: %w", id, err)
	}

	return nil
}

// ClosePosition transitions a position to its terminal status.
func (db *Database) ClosePosition(ctx context.Context, id string, pnl float64, stopped bool) error {
	status := shared.Closed
	if stopped {
		status = shared.StoppedOut
	}

	err := db.execute(ctx, rqlitehttp.SQLStatement{
		SQL:              closePositionSQL,
		PositionalParams: []any{int(status), pnl, time.Now().UTC().Unix(), id},
	})
	if err != nil {
		return fmt.Errorf("closing position %s: %w", id, err)
	}

	return nil
}

// CreateTradeLog persists the provided trade log entry.
func (db *Database) CreateTradeLog(ctx context.Context, log *shared.TradeLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedOn.IsZero() {
		log.CreatedOn = time.Now().UTC()
	}

	metadata, err := json.Marshal(log.Metadata)
	if err != nil {
		return fmt.Errorf("encoding trade log metadata: %w", err)
	}

	err = db.execute(ctx, rqlitehttp.SQLStatement{
		SQL: persistTradeLogSQL,
		PositionalParams: []any{log.ID, log.Exchange, log.Market, log.Action.String(),
			int(log.Direction), log.Price, log.Quantity, log.PNL, log.OrderID,
			string(metadata), log.CreatedOn.Unix()},
	})
	if err != nil {
		return fmt.Errorf("persisting trade log %s: %w", log.ID, err)
	}

	return nil
}

// rowString extracts the provided string column from an associative row.
func rowString(row map[string]any, column string) string {
	value, _ := row[column].(string)
	return value
}

// rowFloat extracts the provided numeric column from an associative row.
func rowFloat(row map[string]any, column string) float64 {
	value, _ := row[column].(float64)
	return value
}

// FetchOpenPositions fetches all open positions for the provided exchange and
// market, ordered by ascending creation time.
func (db *Database) FetchOpenPositions(ctx context.Context, exchange string, market string) ([]*shared.PositionRecord, error) {
	resp, err := db.client.QuerySingle(ctx, findOpenPositionsSQL, exchange, market, int(shared.Open))
	if err != nil {
		return nil, fmt.Errorf("querying open positions for %s %s: %w", exchange, market, err)
	}

	results := resp.GetQueryResultsAssoc()
	if len(results) == 0 {
		return []*shared.PositionRecord{}, nil
	}

	rows := results[0].Rows
	positions := make([]*shared.PositionRecord, 0, len(rows))
	for _, row := range rows {
		position := &shared.PositionRecord{
			ID:             rowString(row, "id"),
			Exchange:       rowString(row, "exchange"),
			Market:         rowString(row, "market"),
			Direction:      shared.Direction(rowFloat(row, "direction")),
			EntryPrice:     rowFloat(row, "entryprice"),
			CurrentPrice:   rowFloat(row, "currentprice"),
			Quantity:       rowFloat(row, "quantity"),
			Leverage:       int(rowFloat(row, "leverage")),
			StopLossPrice:  rowFloat(row, "stoplossprice"),
			InitialBalance: rowFloat(row, "initialbalance"),
			Status:         shared.PositionStatus(rowFloat(row, "status")),
			PNL:            rowFloat(row, "pnl"),
			CreatedOn:      time.Unix(int64(rowFloat(row, "createdon")), 0).UTC(),
		}

		if position.ID == "" || position.EntryPrice <= 0 || position.Quantity <= 0 {
			db.cfg.Logger.Error().Msgf("skipping inconsistent position record: %s", spew.Sdump(row))
			continue
		}

		positions = append(positions, position)
	}

	return positions, nil
}

// SaveStrategyParams upserts the provided strategy thresholds for a market.
func (db *Database) SaveStrategyParams(ctx context.Context, market string, params *shared.StrategyParams) error {
	err := db.execute(ctx, rqlitehttp.SQLStatement{
		SQL: upsertStrategySQL,
		PositionalParams: []any{market, params.LongThreshold, params.ShortThreshold,
			params.StopLossRatio, time.Now().UTC().Unix()},
	})
	if err != nil {
		return fmt.Errorf("persisting strategy config for %s: %w", market, err)
	}

	return nil
}

// FetchStrategyParams fetches persisted strategy thresholds for a market, or
// nil when none exist.
func (db *Database) FetchStrategyParams(ctx context.Context, market string) (*shared.StrategyParams, error) {
	resp, err := db.client.QuerySingle(ctx, findStrategySQL, market)
	if err != nil {
		return nil, fmt.Errorf("querying strategy config for %s: %w", market, err)
	}

	results := resp.GetQueryResultsAssoc()
	if len(results) == 0 || len(results[0].Rows) == 0 {
		return nil, nil
	}

	row := results[0].Rows[0]
	return &shared.StrategyParams{
		LongThreshold:  rowFloat(row, "longthreshold"),
		ShortThreshold: rowFloat(row, "shortthreshold"),
		StopLossRatio:  rowFloat(row, "stoplossratio"),
	}, nil
}
