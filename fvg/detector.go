package fvg

import (
	"sort"

	"fvgrid/shared"
)

const (
	// DefaultMinGapRatio is the minimum gap size relative to the middle
	// candle's range for a gap to be retained.
	DefaultMinGapRatio = 0.1
	// typeBonus is the flat confidence bonus for a recognized gap kind.
	typeBonus = 5
	// maxConfidence is the confidence ceiling.
	maxConfidence = 100
)

// Detector represents a three-candle price gap detector. Detectors hold no
// state between calls.
type Detector struct {
	minGapRatio float64
}

// NewDetector initializes a new gap detector with the provided minimum gap
// ratio. A non-positive ratio falls back to the default.
func NewDetector(minGapRatio float64) *Detector {
	if minGapRatio <= 0 {
		minGapRatio = DefaultMinGapRatio
	}

	return &Detector{
		minGapRatio: minGapRatio,
	}
}

// confidence returns the banded confidence for a gap of the provided ratio.
func confidence(ratio float64) float64 {
	var score float64
	switch {
	case ratio >= 0.5:
		score = 90
	case ratio >= 0.3:
		score = 80
	case ratio >= 0.2:
		score = 70
	case ratio >= 0.1:
		score = 60
	case ratio >= 0.05:
		score = 50
	default:
		score = 40
	}

	score += typeBonus
	if score > maxConfidence {
		score = maxConfidence
	}

	return score
}

// Detect scans the provided candlesticks for three-candle price gaps. Fewer
// than three candles yields an empty result.
func (d *Detector) Detect(candles []*shared.Candlestick) []*shared.Gap {
	gaps := []*shared.Gap{}
	if len(candles) < 3 {
		return gaps
	}

	for idx := 1; idx < len(candles)-1; idx++ {
		prev := candles[idx-1]
		curr := candles[idx]
		next := candles[idx+1]

		candleRange := curr.Range()

		switch {
		case prev.Low > next.High:
			// The outer candles' wicks do not overlap, leaving an unfilled
			// interval around the displacement candle.
			size := prev.Low - next.High
			if size <= 0 || candleRange <= 0 {
				continue
			}

			ratio := size / candleRange
			if ratio < d.minGapRatio {
				continue
			}

			gaps = append(gaps, shared.NewGap(curr.Market, curr.Timeframe, shared.BullishGap,
				prev.Low, next.High, ratio, confidence(ratio), curr.Date))

		case prev.High < next.Low:
			size := next.Low - prev.High
			if size <= 0 || candleRange <= 0 {
				continue
			}

			ratio := size / candleRange
			if ratio < d.minGapRatio {
				continue
			}

			gaps = append(gaps, shared.NewGap(curr.Market, curr.Timeframe, shared.BearishGap,
				next.Low, prev.High, ratio, confidence(ratio), curr.Date))
		}
	}

	return gaps
}

// FindGapAtPrice returns the first valid gap whose range, widened by the
// provided tolerance ratio, contains the provided price.
func FindGapAtPrice(gaps []*shared.Gap, price float64, tolerance float64) *shared.Gap {
	for idx := range gaps {
		if gaps[idx].Invalidated.Load() {
			continue
		}

		if gaps[idx].Contains(price, tolerance) {
			return gaps[idx]
		}
	}

	return nil
}

// MostRecent returns up to limit gaps ordered by descending date.
func MostRecent(gaps []*shared.Gap, limit int) []*shared.Gap {
	recent := make([]*shared.Gap, len(gaps))
	copy(recent, gaps)

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})

	if limit < len(recent) {
		recent = recent[:limit]
	}

	return recent
}
