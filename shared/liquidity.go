package shared

// ZoneKind represents the side of the book a liquidity zone was built from.
type ZoneKind int

const (
	BuyZone ZoneKind = iota
	SellZone
)

// String stringifies the provided zone kind.
func (k ZoneKind) String() string {
	switch k {
	case BuyZone:
		return "buy"
	case SellZone:
		return "sell"
	default:
		return "unknown"
	}
}

// LiquidityZone represents a clustered price region holding unusually large
// resting order volume. Zones are created fresh per analysis call.
type LiquidityZone struct {
	Kind   ZoneKind
	Price  float64
	Volume float64
	// DistancePercent is the signed distance from the current price, positive
	// when the zone sits away from the market in the profitable direction for
	// its side.
	DistancePercent float64
	OrderCount      int
}

// LiquidityMetrics represents aggregate order book liquidity measurements.
type LiquidityMetrics struct {
	BidVolume      float64
	AskVolume      float64
	ImbalanceRatio float64
	LiquidityScore float64
	DepthRatio     float64
}
