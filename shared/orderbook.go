package shared

import (
	"time"
)

// OrderBookLevel represents a resting order level in an order book.
type OrderBookLevel struct {
	Price  float64
	Amount float64
}

// OrderBook represents a point-in-time snapshot of a market's order book.
// Bids are ordered by descending price, asks by ascending price. Levels are
// never mutated after the snapshot is taken.
type OrderBook struct {
	Market string
	Bids   []OrderBookLevel
	Asks   []OrderBookLevel
	Date   time.Time
}

// BidVolume returns the summed amount of all bid levels.
func (o *OrderBook) BidVolume() float64 {
	var volume float64
	for idx := range o.Bids {
		volume += o.Bids[idx].Amount
	}

	return volume
}

// AskVolume returns the summed amount of all ask levels.
func (o *OrderBook) AskVolume() float64 {
	var volume float64
	for idx := range o.Asks {
		volume += o.Asks[idx].Amount
	}

	return volume
}
