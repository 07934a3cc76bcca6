package liquidity

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"

	"fvgrid/shared"
)

// testBook returns a balanced order book around a price of 100 with volume
// concentrated in the best five levels of each side.
func testBook() *shared.OrderBook {
	bidAmounts := []float64{30, 25, 20, 15, 10, 4, 4, 4, 4, 4}
	askAmounts := []float64{30, 25, 20, 15, 10, 4, 4, 4, 4, 4}

	book := &shared.OrderBook{Market: "BTCUSDT"}
	for idx := range bidAmounts {
		book.Bids = append(book.Bids, shared.OrderBookLevel{
			Price:  99.5 - float64(idx)*0.1,
			Amount: bidAmounts[idx],
		})
		book.Asks = append(book.Asks, shared.OrderBookLevel{
			Price:  100.1 + float64(idx)*0.1,
			Amount: askAmounts[idx],
		})
	}

	return book
}

func TestAnalyzeBalancedBook(t *testing.T) {
	analyzer := NewAnalyzer()

	metrics := analyzer.Analyze(testBook(), 100)
	assert.Equal(t, metrics.BidVolume, float64(120))
	assert.Equal(t, metrics.AskVolume, float64(120))
	assert.Equal(t, metrics.ImbalanceRatio, float64(0))

	// The best five levels hold 100 of each side's 120.
	if math.Abs(metrics.DepthRatio-200.0/240.0) > 1e-9 {
		t.Errorf("expected depth ratio %v, got %v", 200.0/240.0, metrics.DepthRatio)
	}

	// Volume band 5, depth 25, balance capped at 20.
	if math.Abs(metrics.LiquidityScore-50) > 1e-9 {
		t.Errorf("expected liquidity score 50, got %v", metrics.LiquidityScore)
	}
}

func TestAnalyzeImbalance(t *testing.T) {
	analyzer := NewAnalyzer()

	book := &shared.OrderBook{
		Bids: []shared.OrderBookLevel{{Price: 99, Amount: 300}},
		Asks: []shared.OrderBookLevel{{Price: 101, Amount: 100}},
	}

	metrics := analyzer.Analyze(book, 100)
	assert.Equal(t, metrics.ImbalanceRatio, 0.5)
	assert.True(t, metrics.ImbalanceRatio >= -1 && metrics.ImbalanceRatio <= 1)

	// Flipping the sides flips the sign.
	book.Bids, book.Asks = book.Asks, book.Bids
	metrics = analyzer.Analyze(book, 100)
	assert.Equal(t, metrics.ImbalanceRatio, -0.5)
}

func TestAnalyzeDegenerateBooks(t *testing.T) {
	analyzer := NewAnalyzer()

	// An empty book yields zeroed metrics.
	metrics := analyzer.Analyze(&shared.OrderBook{}, 100)
	assert.Equal(t, metrics.LiquidityScore, float64(0))
	assert.Equal(t, metrics.ImbalanceRatio, float64(0))

	metrics = analyzer.Analyze(nil, 100)
	assert.Equal(t, metrics.LiquidityScore, float64(0))

	// A one sided book also yields zeroed metrics.
	book := &shared.OrderBook{
		Bids: []shared.OrderBookLevel{{Price: 99, Amount: 2_000}},
	}
	metrics = analyzer.Analyze(book, 100)
	assert.Equal(t, metrics.ImbalanceRatio, float64(0))
	assert.Equal(t, metrics.DepthRatio, float64(0))
	assert.Equal(t, metrics.LiquidityScore, float64(0))

	book = &shared.OrderBook{
		Asks: []shared.OrderBookLevel{{Price: 101, Amount: 2_000}},
	}
	metrics = analyzer.Analyze(book, 100)
	assert.Equal(t, metrics.ImbalanceRatio, float64(0))
	assert.Equal(t, metrics.LiquidityScore, float64(0))
}

func TestFindZones(t *testing.T) {
	analyzer := NewAnalyzer()

	zones := analyzer.FindZones(testBook(), 100)
	assert.Equal(t, len(zones), 2)

	// One concentrated bucket qualifies per side; the sparse trailing buckets
	// fall below the volume multiplier.
	var buyZone, sellZone *shared.LiquidityZone
	for idx := range zones {
		switch zones[idx].Kind {
		case shared.BuyZone:
			buyZone = zones[idx]
		case shared.SellZone:
			sellZone = zones[idx]
		}
	}

	assert.True(t, buyZone != nil)
	assert.True(t, sellZone != nil)

	assert.Equal(t, buyZone.Volume, float64(100))
	assert.Equal(t, buyZone.OrderCount, 5)
	if math.Abs(buyZone.Price-99.35) > 1e-9 {
		t.Errorf("expected buy zone price 99.35, got %v", buyZone.Price)
	}
	if math.Abs(buyZone.DistancePercent-0.65) > 1e-9 {
		t.Errorf("expected buy zone distance 0.65, got %v", buyZone.DistancePercent)
	}

	assert.Equal(t, sellZone.Volume, float64(100))
	if math.Abs(sellZone.Price-100.25) > 1e-9 {
		t.Errorf("expected sell zone price 100.25, got %v", sellZone.Price)
	}
}

func TestFindZonesUniformBook(t *testing.T) {
	analyzer := NewAnalyzer()

	// Uniform volume leaves no bucket above the volume multiplier.
	book := &shared.OrderBook{}
	for idx := 0; idx < 20; idx++ {
		book.Bids = append(book.Bids, shared.OrderBookLevel{
			Price:  99.5 - float64(idx)*0.1,
			Amount: 10,
		})
	}

	zones := analyzer.FindZones(book, 100)
	assert.Equal(t, len(zones), 0)
}

func TestFindTargetZone(t *testing.T) {
	analyzer := NewAnalyzer()
	book := testBook()

	// Longs target sell side liquidity above the market.
	zone := analyzer.FindTargetZone(book, 100, shared.Long)
	assert.True(t, zone != nil)
	assert.Equal(t, zone.Kind, shared.SellZone)
	assert.True(t, zone.Price > 100)

	// Shorts target buy side liquidity below the market.
	zone = analyzer.FindTargetZone(book, 100, shared.Short)
	assert.True(t, zone != nil)
	assert.Equal(t, zone.Kind, shared.BuyZone)
	assert.True(t, zone.Price < 100)

	// No zones in the required direction yields nil.
	oneSided := &shared.OrderBook{Bids: book.Bids}
	zone = analyzer.FindTargetZone(oneSided, 100, shared.Long)
	assert.True(t, zone == nil)
}

func TestDistanceScoreBands(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{
			"ideal distance",
			1.5,
			1.0,
		},
		{
			"near edge distance",
			0.4,
			0.7,
		},
		{
			"far distance",
			4.0,
			0.7,
		},
		{
			"out of range distance",
			8.0,
			0.4,
		},
		{
			"too close distance",
			0.1,
			0.4,
		},
	}

	for _, test := range tests {
		got := distanceScore(test.distance)
		if got != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}
}
