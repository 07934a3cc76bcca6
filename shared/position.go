package shared

import (
	"time"
)

// PositionStatus represents the status of a position.
type PositionStatus int

const (
	Open PositionStatus = iota
	Closed
	StoppedOut
)

// String stringifies the provided position status.
func (s PositionStatus) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	case StoppedOut:
		return "stopped out"
	default:
		return "unknown"
	}
}

// PositionRecord represents a market position through its lifecycle. The
// position store is the system of record for position identity and history;
// records transition to a closed status exactly once.
type PositionRecord struct {
	ID           string
	Exchange     string
	Market       string
	Direction    Direction
	EntryPrice   float64
	CurrentPrice float64
	Quantity     float64
	Leverage     int
	// StopLossPrice is an independent stop price for the position. When zero
	// the engine derives a stop from the default stop loss ratio instead.
	StopLossPrice  float64
	InitialBalance float64
	Status         PositionStatus
	PNL            float64
	CreatedOn      time.Time
	ClosedOn       time.Time
}

// PositionUpdate represents a partial update to a position record. Nil fields
// are left untouched.
type PositionUpdate struct {
	CurrentPrice *float64
	Status       *PositionStatus
	PNL          *float64
}

// TradeAction represents the action recorded by a trade log entry.
type TradeAction int

const (
	OpenAction TradeAction = iota
	CloseAction
	StopLossAction
)

// String stringifies the provided trade action.
func (a TradeAction) String() string {
	switch a {
	case OpenAction:
		return "open"
	case CloseAction:
		return "close"
	case StopLossAction:
		return "stop_loss"
	default:
		return "unknown"
	}
}

// TradeLog represents a trade log entry. Every position action produces one,
// so no terminal state is silent.
type TradeLog struct {
	ID        string
	Exchange  string
	Market    string
	Action    TradeAction
	Direction Direction
	Price     float64
	Quantity  float64
	PNL       float64
	OrderID   string
	Metadata  map[string]any
	CreatedOn time.Time
}
