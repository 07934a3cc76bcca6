package shared

import (
	"time"

	"go.uber.org/atomic"
)

// GapKind represents the kind of price gap.
type GapKind int

const (
	BullishGap GapKind = iota
	BearishGap
)

// String stringifies the provided gap kind.
func (k GapKind) String() string {
	switch k {
	case BullishGap:
		return "bullish"
	case BearishGap:
		return "bearish"
	default:
		return "unknown"
	}
}

// Gap represents a three-candle price imbalance (a fair value gap). These act
// as high probability reaction regions for price.
type Gap struct {
	Market      string
	Kind        GapKind
	High        float64
	Low         float64
	Size        float64
	Ratio       float64
	Confidence  float64
	Timeframe   Timeframe
	Purged      atomic.Bool
	Invalidated atomic.Bool
	Date        time.Time
}

// NewGap initializes a new gap.
func NewGap(market string, timeframe Timeframe, kind GapKind, high float64, low float64,
	ratio float64, confidence float64, date time.Time) *Gap {
	return &Gap{
		Market:     market,
		Timeframe:  timeframe,
		Kind:       kind,
		High:       high,
		Low:        low,
		Size:       high - low,
		Ratio:      ratio,
		Confidence: confidence,
		Date:       date,
	}
}

// Contains reports whether the provided price falls inside the gap range
// widened by the provided tolerance ratio.
func (g *Gap) Contains(price float64, tolerance float64) bool {
	return price >= g.Low*(1-tolerance) && price <= g.High*(1+tolerance)
}

// Update updates the gap with the provided candlestick. A gap whose far side
// is closed through twice is invalidated.
func (g *Gap) Update(candle *Candlestick) {
	if g.Invalidated.Load() {
		return
	}

	purged := g.Purged.Load()

	switch g.Kind {
	case BullishGap:
		// A bullish gap is invalidated by price closing below the low of the
		// gap range twice.
		switch {
		case candle.Close < g.Low && !purged:
			g.Purged.Store(true)
		case candle.Close < g.Low && purged:
			g.Invalidated.Store(true)
		}
	case BearishGap:
		// A bearish gap is invalidated by price closing above the high of the
		// gap range twice.
		switch {
		case candle.Close > g.High && !purged:
			g.Purged.Store(true)
		case candle.Close > g.High && purged:
			g.Invalidated.Store(true)
		}
	}
}
