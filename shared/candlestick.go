package shared

import (
	"time"
)

// Candlestick represents a unit candlestick for a market. Candlesticks are
// immutable once produced by the data source.
type Candlestick struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// Range returns the full price range covered by the candlestick.
func (c *Candlestick) Range() float64 {
	return c.High - c.Low
}
