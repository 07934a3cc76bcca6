package shared

import (
	"time"
)

// Ticker represents 24-hour rolling market statistics for an instrument.
type Ticker struct {
	Market        string
	Price         float64
	ChangePercent float64
	Volume        float64
	Date          time.Time
}
