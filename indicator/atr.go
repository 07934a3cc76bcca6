package indicator

import (
	"fmt"
	"math"

	"fvgrid/shared"
)

const (
	// DefaultATRPeriod is the default averaging period for the ATR.
	DefaultATRPeriod = 14
)

// Volatility represents the volatility regime implied by an ATR reading.
type Volatility int

const (
	LowVolatility Volatility = iota
	MediumVolatility
	HighVolatility
)

// String stringifies the provided volatility regime.
func (v Volatility) String() string {
	switch v {
	case LowVolatility:
		return "low"
	case MediumVolatility:
		return "medium"
	case HighVolatility:
		return "high"
	default:
		return "unknown"
	}
}

// ATR represents an average true range reading for a market.
type ATR struct {
	Value      float64
	Percent    float64
	Period     int
	Volatility Volatility
}

// AverageTrueRange computes the average true range of the provided
// candlesticks over the provided period as a simple moving average of the
// true range. It requires period+1 candles.
func AverageTrueRange(candles []*shared.Candlestick, period int) (*ATR, error) {
	if period <= 0 {
		period = DefaultATRPeriod
	}

	if len(candles) < period+1 {
		return nil, fmt.Errorf("average true range needs at least %d candles, got %d",
			period+1, len(candles))
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for idx := 1; idx < len(candles); idx++ {
		highLow := candles[idx].High - candles[idx].Low
		highPrevClose := math.Abs(candles[idx].High - candles[idx-1].Close)
		lowPrevClose := math.Abs(candles[idx].Low - candles[idx-1].Close)

		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highPrevClose, lowPrevClose)))
	}

	var sum float64
	for _, tr := range trueRanges[len(trueRanges)-period:] {
		sum += tr
	}
	value := sum / float64(period)

	currentPrice := candles[len(candles)-1].Close
	var percent float64
	if currentPrice > 0 {
		percent = value / currentPrice * 100
	}

	var volatility Volatility
	switch {
	case percent < 0.5:
		volatility = LowVolatility
	case percent < 1.5:
		volatility = MediumVolatility
	default:
		volatility = HighVolatility
	}

	return &ATR{
		Value:      value,
		Percent:    percent,
		Period:     period,
		Volatility: volatility,
	}, nil
}

// Suggestion represents strategy parameters suggested from an ATR reading.
type Suggestion struct {
	LongThreshold  float64
	ShortThreshold float64
	StopLossRatio  float64
}

// clamp bounds the provided value to the provided range.
func clamp(value float64, min float64, max float64) float64 {
	switch {
	case value < min:
		return min
	case value > max:
		return max
	default:
		return value
	}
}

// SuggestParams derives suggested hedge-grid thresholds from the provided
// ATR reading. Thresholds scale with the volatility regime and are clamped
// to 0.5%-5%, the stop loss ratio to 1%-10%.
func SuggestParams(atr *ATR) Suggestion {
	var threshold, stopLoss float64

	switch atr.Volatility {
	case LowVolatility:
		threshold = math.Max(atr.Percent*1.5, 0.5) / 100
		stopLoss = math.Max(atr.Percent*3, 1.0) / 100
	case MediumVolatility:
		threshold = math.Max(atr.Percent*1.2, 0.8) / 100
		stopLoss = math.Max(atr.Percent*2.5, 1.5) / 100
	default:
		threshold = math.Max(atr.Percent*1.0, 1.0) / 100
		stopLoss = math.Max(atr.Percent*2.0, 2.0) / 100
	}

	threshold = clamp(threshold, 0.005, 0.05)
	stopLoss = clamp(stopLoss, 0.01, 0.10)

	return Suggestion{
		LongThreshold:  threshold,
		ShortThreshold: threshold,
		StopLossRatio:  stopLoss,
	}
}
