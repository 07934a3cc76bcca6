package shared

import (
	"time"
)

// Direction represents the direction of a trade.
type Direction int

const (
	None Direction = iota
	Long
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	case None:
		return "none"
	default:
		return "unknown"
	}
}

// TakeProfitBasis represents the method used to derive a take profit price.
type TakeProfitBasis int

const (
	NoTakeProfit TakeProfitBasis = iota
	LiquidityZoneTarget
	ATRTarget
	RiskRatioTarget
)

// String stringifies the provided take profit basis.
func (b TakeProfitBasis) String() string {
	switch b {
	case LiquidityZoneTarget:
		return "liquidity zone"
	case ATRTarget:
		return "atr"
	case RiskRatioTarget:
		return "risk ratio"
	default:
		return "none"
	}
}

// TradeSignal represents a directional trade signal produced by a scan.
// Signals are immutable once generated.
type TradeSignal struct {
	Market           string
	Exchange         string
	Timeframe        Timeframe
	HasSignal        bool
	Direction        Direction
	EntryPrice       float64
	StopLoss         float64
	TakeProfit       float64
	TakeProfitBasis  TakeProfitBasis
	TakeProfitReason string
	Confidence       float64
	RiskReward       float64
	Reason           string
	Gap              *Gap
	Liquidity        *LiquidityMetrics
	Zones            []*LiquidityZone
	CreatedOn        time.Time
}
