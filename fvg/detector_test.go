package fvg

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"fvgrid/shared"
)

// bullishGapCandles returns a candle triple with an unfilled interval below
// the first candle's low.
func bullishGapCandles() []*shared.Candlestick {
	return []*shared.Candlestick{
		{Open: 106, High: 110, Low: 105, Close: 109, Market: "BTCUSDT", Timeframe: shared.OneHour, Date: time.Unix(100, 0)},
		{Open: 104, High: 110, Low: 90, Close: 95, Market: "BTCUSDT", Timeframe: shared.OneHour, Date: time.Unix(200, 0)},
		{Open: 94, High: 95, Low: 92, Close: 93, Market: "BTCUSDT", Timeframe: shared.OneHour, Date: time.Unix(300, 0)},
	}
}

func TestDetectBullishGap(t *testing.T) {
	detector := NewDetector(0)

	gaps := detector.Detect(bullishGapCandles())
	assert.Equal(t, len(gaps), 1)

	gap := gaps[0]
	assert.Equal(t, gap.Kind, shared.BullishGap)
	assert.Equal(t, gap.High, float64(105))
	assert.Equal(t, gap.Low, float64(95))
	assert.Equal(t, gap.Size, float64(10))
	assert.Equal(t, gap.Ratio, 0.5)
	assert.Equal(t, gap.Confidence, float64(95))
	assert.Equal(t, gap.Date, time.Unix(200, 0))
}

func TestDetectBearishGap(t *testing.T) {
	detector := NewDetector(0)

	candles := []*shared.Candlestick{
		{Open: 92, High: 95, Low: 90, Close: 94, Date: time.Unix(100, 0)},
		{Open: 96, High: 110, Low: 90, Close: 108, Date: time.Unix(200, 0)},
		{Open: 106, High: 109, Low: 105, Close: 107, Date: time.Unix(300, 0)},
	}

	gaps := detector.Detect(candles)
	assert.Equal(t, len(gaps), 1)

	gap := gaps[0]
	assert.Equal(t, gap.Kind, shared.BearishGap)
	assert.Equal(t, gap.High, float64(105))
	assert.Equal(t, gap.Low, float64(95))
	assert.Equal(t, gap.Ratio, 0.5)
}

func TestDetectGapKindsAreExclusive(t *testing.T) {
	detector := NewDetector(0)

	// Overlapping outer candles leave no unfilled interval in either
	// direction.
	candles := []*shared.Candlestick{
		{Open: 100, High: 105, Low: 95, Close: 102, Date: time.Unix(100, 0)},
		{Open: 102, High: 106, Low: 94, Close: 98, Date: time.Unix(200, 0)},
		{Open: 98, High: 104, Low: 96, Close: 100, Date: time.Unix(300, 0)},
	}

	gaps := detector.Detect(candles)
	assert.Equal(t, len(gaps), 0)
}

func TestDetectRatioGate(t *testing.T) {
	detector := NewDetector(0.3)

	// The gap ratio here is 0.5/20 = 0.025, below any sane minimum.
	candles := []*shared.Candlestick{
		{Open: 106, High: 110, Low: 95.5, Close: 109, Date: time.Unix(100, 0)},
		{Open: 104, High: 110, Low: 90, Close: 95, Date: time.Unix(200, 0)},
		{Open: 94, High: 95, Low: 92, Close: 93, Date: time.Unix(300, 0)},
	}
	gaps := detector.Detect(candles)
	assert.Equal(t, len(gaps), 0)

	// A 0.5 ratio gap passes a 0.3 minimum.
	gaps = detector.Detect(bullishGapCandles())
	assert.Equal(t, len(gaps), 1)
}

func TestDetectTooFewCandles(t *testing.T) {
	detector := NewDetector(0)

	gaps := detector.Detect(bullishGapCandles()[:2])
	assert.Equal(t, len(gaps), 0)

	gaps = detector.Detect(nil)
	assert.Equal(t, len(gaps), 0)
}

func TestConfidenceBands(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{
			"dominant gap",
			0.6,
			95,
		},
		{
			"large gap",
			0.35,
			85,
		},
		{
			"medium gap",
			0.25,
			75,
		},
		{
			"small gap",
			0.12,
			65,
		},
		{
			"minor gap",
			0.07,
			55,
		},
		{
			"negligible gap",
			0.01,
			45,
		},
	}

	for _, test := range tests {
		got := confidence(test.ratio)
		if got != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}
}

func TestFindGapAtPrice(t *testing.T) {
	detector := NewDetector(0)
	gaps := detector.Detect(bullishGapCandles())
	assert.Equal(t, len(gaps), 1)

	// Price inside the gap range.
	gap := FindGapAtPrice(gaps, 100, 0)
	assert.True(t, gap != nil)

	// Price outside the gap range but within tolerance.
	gap = FindGapAtPrice(gaps, 106, 0.02)
	assert.True(t, gap != nil)

	// Price outside the gap range and tolerance.
	gap = FindGapAtPrice(gaps, 120, 0.02)
	assert.True(t, gap == nil)

	// Invalidated gaps are skipped.
	gaps[0].Invalidated.Store(true)
	gap = FindGapAtPrice(gaps, 100, 0)
	assert.True(t, gap == nil)
}

func TestMostRecent(t *testing.T) {
	gaps := []*shared.Gap{
		shared.NewGap("BTCUSDT", shared.OneHour, shared.BullishGap, 105, 95, 0.5, 95, time.Unix(100, 0)),
		shared.NewGap("BTCUSDT", shared.OneHour, shared.BearishGap, 115, 110, 0.3, 85, time.Unix(300, 0)),
		shared.NewGap("BTCUSDT", shared.OneHour, shared.BullishGap, 90, 85, 0.2, 75, time.Unix(200, 0)),
	}

	recent := MostRecent(gaps, 2)
	assert.Equal(t, len(recent), 2)
	assert.Equal(t, recent[0].Date, time.Unix(300, 0))
	assert.Equal(t, recent[1].Date, time.Unix(200, 0))

	// The input ordering is untouched.
	assert.Equal(t, gaps[0].Date, time.Unix(100, 0))
}
