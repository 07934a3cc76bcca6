package indicator

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"

	"fvgrid/shared"
)

func TestAverageTrueRange(t *testing.T) {
	candles := []*shared.Candlestick{
		{High: 10, Low: 9, Close: 9.5},
		{High: 11, Low: 10, Close: 10.5},
		{High: 12, Low: 11, Close: 11.5},
		{High: 12.5, Low: 11.5, Close: 12},
	}

	atr, err := AverageTrueRange(candles, 3)
	assert.NoError(t, err)

	// True ranges are 1.5, 1.5 and 1.
	want := (1.5 + 1.5 + 1.0) / 3.0
	if math.Abs(atr.Value-want) > 1e-9 {
		t.Errorf("expected atr %v, got %v", want, atr.Value)
	}

	wantPercent := want / 12 * 100
	if math.Abs(atr.Percent-wantPercent) > 1e-9 {
		t.Errorf("expected atr percent %v, got %v", wantPercent, atr.Percent)
	}

	assert.Equal(t, atr.Period, 3)
	assert.Equal(t, atr.Volatility, HighVolatility)
}

func TestAverageTrueRangeTooFewCandles(t *testing.T) {
	candles := []*shared.Candlestick{
		{High: 10, Low: 9, Close: 9.5},
		{High: 11, Low: 10, Close: 10.5},
	}

	_, err := AverageTrueRange(candles, 3)
	assert.Error(t, err)
}

func TestAverageTrueRangeVolatilityRegimes(t *testing.T) {
	// Tight ranges on a large price imply a calm market.
	calm := []*shared.Candlestick{
		{High: 1001, Low: 1000, Close: 1000.5},
		{High: 1001.5, Low: 1000.5, Close: 1001},
		{High: 1002, Low: 1001, Close: 1001.5},
		{High: 1002.5, Low: 1001.5, Close: 1002},
	}

	atr, err := AverageTrueRange(calm, 3)
	assert.NoError(t, err)
	assert.Equal(t, atr.Volatility, LowVolatility)

	// Percent in [0.5, 1.5) implies a medium regime.
	medium := []*shared.Candlestick{
		{High: 1005, Low: 995, Close: 1000},
		{High: 1005, Low: 995, Close: 1000},
		{High: 1005, Low: 995, Close: 1000},
		{High: 1005, Low: 995, Close: 1000},
	}

	atr, err = AverageTrueRange(medium, 3)
	assert.NoError(t, err)
	assert.Equal(t, atr.Volatility, MediumVolatility)
}

func TestSuggestParams(t *testing.T) {
	tests := []struct {
		name          string
		atr           *ATR
		wantThreshold float64
		wantStopLoss  float64
	}{
		{
			"low volatility floors apply",
			&ATR{Percent: 0.2, Volatility: LowVolatility},
			0.005,
			0.01,
		},
		{
			"medium volatility scales",
			&ATR{Percent: 1.0, Volatility: MediumVolatility},
			0.012,
			0.025,
		},
		{
			"high volatility clamps to the ceiling",
			&ATR{Percent: 11.0, Volatility: HighVolatility},
			0.05,
			0.10,
		},
	}

	for _, test := range tests {
		suggestion := SuggestParams(test.atr)
		if math.Abs(suggestion.LongThreshold-test.wantThreshold) > 1e-9 {
			t.Errorf("%s: expected long threshold %v, got %v", test.name,
				test.wantThreshold, suggestion.LongThreshold)
		}
		if suggestion.ShortThreshold != suggestion.LongThreshold {
			t.Errorf("%s: expected symmetric thresholds", test.name)
		}
		if math.Abs(suggestion.StopLossRatio-test.wantStopLoss) > 1e-9 {
			t.Errorf("%s: expected stop loss ratio %v, got %v", test.name,
				test.wantStopLoss, suggestion.StopLossRatio)
		}
	}
}
