package signal

import (
	"fmt"
	"math"
	"time"

	"fvgrid/fvg"
	"fvgrid/indicator"
	"fvgrid/liquidity"
	"fvgrid/shared"
)

const (
	// minConfidence is the minimum confidence for an actionable signal.
	minConfidence = 40
	// minLiquidityScore is the minimum liquidity score for an actionable signal.
	minLiquidityScore = 30
	// maxGapDistance is the maximum distance from the gap edge, as a ratio of
	// the current price, at which a gap remains tradeable.
	maxGapDistance = 0.02
	// stopLossBuffer widens the stop beyond the far gap edge.
	stopLossBuffer = 0.02
	// atrTakeProfitMultiplier scales the ATR into a take profit distance.
	atrTakeProfitMultiplier = 2.5
	// riskTakeProfitMultiplier scales the stop distance into a take profit
	// distance when no better target exists.
	riskTakeProfitMultiplier = 2.5
)

// Confidence weights for the individual signal factors.
const (
	gapWeight        = 0.35
	liquidityWeight  = 0.25
	proximityWeight  = 0.20
	volatilityWeight = 0.10
	riskRewardWeight = 0.10
)

// GeneratorConfig represents the configuration for the signal generator.
type GeneratorConfig struct {
	// MinGapRatio is the minimum gap to candle range ratio retained by the
	// gap detector.
	MinGapRatio float64
	// ATRPeriod is the averaging period for the take profit fallback ATR.
	ATRPeriod int
}

// Generator represents a trade signal generator. It combines gap detection
// and order book liquidity analysis into one signal per scan.
type Generator struct {
	cfg       *GeneratorConfig
	detector  *fvg.Detector
	liquidity *liquidity.Analyzer
}

// NewGenerator initializes a new signal generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = indicator.DefaultATRPeriod
	}

	return &Generator{
		cfg:       cfg,
		detector:  fvg.NewDetector(cfg.MinGapRatio),
		liquidity: liquidity.NewAnalyzer(),
	}
}

// capScore bounds the provided score to [0, 100].
func capScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// proximityScore scores how close the current price sits to the gap. Price
// already inside the gap scores full marks.
func proximityScore(gap *shared.Gap, currentPrice float64) float64 {
	if currentPrice >= gap.Low && currentPrice <= gap.High {
		return 100
	}

	edge := gap.Low
	if gap.Kind == shared.BearishGap {
		edge = gap.High
	}

	distance := math.Abs(currentPrice-edge) / currentPrice
	return capScore(100 - distance*5000)
}

// volatilityScore scores the 24-hour change band. Moderate volatility scores
// highest, stagnant markets lowest.
func volatilityScore(ticker *shared.Ticker) float64 {
	change := math.Abs(ticker.ChangePercent)
	switch {
	case change >= 2 && change <= 8:
		return 100
	case change < 2:
		return 50
	default:
		return 80
	}
}

// riskRewardScore scores the projected risk/reward ratio.
func riskRewardScore(ratio float64) float64 {
	switch {
	case ratio >= 2.0:
		return 100
	case ratio >= 1.5:
		return 80
	case ratio >= 1.0:
		return 60
	default:
		return 40
	}
}

// Generate produces a trade signal from the provided market snapshot. A
// signal is always returned; rejection carries a human readable reason.
func (g *Generator) Generate(candles []*shared.Candlestick, book *shared.OrderBook,
	currentPrice float64, ticker *shared.Ticker) *shared.TradeSignal {
	metrics := g.liquidity.Analyze(book, currentPrice)
	zones := g.liquidity.FindZones(book, currentPrice)

	sig := &shared.TradeSignal{
		Direction:  shared.None,
		EntryPrice: currentPrice,
		Liquidity:  metrics,
		Zones:      zones,
		CreatedOn:  time.Now().UTC(),
	}

	gaps := g.detector.Detect(candles)
	if len(gaps) == 0 {
		sig.Reason = "no gap found"
		return sig
	}

	// Replay the candles that closed after each gap formed so a gap price
	// has since closed through twice is invalidated before selection.
	for idx := range gaps {
		for _, candle := range candles {
			if candle.Date.After(gaps[idx].Date) {
				gaps[idx].Update(candle)
			}
		}
	}

	var best *shared.Gap
	for idx := range gaps {
		if gaps[idx].Invalidated.Load() {
			continue
		}

		if best == nil || gaps[idx].Confidence > best.Confidence {
			best = gaps[idx]
		}
	}
	if best == nil {
		sig.Reason = "all gaps invalidated"
		return sig
	}

	// The ATR is a fallback take profit distance generator; too few candles
	// leaves it unavailable and the fixed ratio fallback applies instead.
	atr, _ := indicator.AverageTrueRange(candles, g.cfg.ATRPeriod)

	var direction shared.Direction
	switch best.Kind {
	case shared.BullishGap:
		if currentPrice < best.Low && math.Abs(currentPrice-best.Low)/currentPrice > maxGapDistance {
			sig.Reason = "price too far from gap"
			return sig
		}
		direction = shared.Long
	case shared.BearishGap:
		if currentPrice > best.High && math.Abs(currentPrice-best.High)/currentPrice > maxGapDistance {
			sig.Reason = "price too far from gap"
			return sig
		}
		direction = shared.Short
	}

	sig.Direction = direction
	sig.Gap = best
	sig.EntryPrice = currentPrice

	switch direction {
	case shared.Long:
		sig.StopLoss = best.Low * (1 - stopLossBuffer)
	case shared.Short:
		sig.StopLoss = best.High * (1 + stopLossBuffer)
	}

	g.setTakeProfit(sig, book, atr)

	var risk, reward float64
	switch direction {
	case shared.Long:
		risk = sig.EntryPrice - sig.StopLoss
		reward = sig.TakeProfit - sig.EntryPrice
	case shared.Short:
		risk = sig.StopLoss - sig.EntryPrice
		reward = sig.EntryPrice - sig.TakeProfit
	}
	if risk > 0 && reward > 0 {
		sig.RiskReward = reward / risk
	}

	confidence := capScore(best.Confidence)*gapWeight +
		capScore(metrics.LiquidityScore)*liquidityWeight +
		proximityScore(best, currentPrice)*proximityWeight +
		volatilityScore(ticker)*volatilityWeight +
		riskRewardScore(sig.RiskReward)*riskRewardWeight
	sig.Confidence = capScore(confidence)

	switch {
	case sig.Confidence < minConfidence:
		sig.Reason = fmt.Sprintf("confidence too low (%.1f%%)", sig.Confidence)
		return sig
	case metrics.LiquidityScore < minLiquidityScore:
		sig.Reason = "insufficient liquidity"
		return sig
	}

	sig.HasSignal = true
	sig.Reason = fmt.Sprintf("%s gap signal", best.Kind.String())

	return sig
}

// setTakeProfit derives the signal's take profit price, preferring a
// liquidity zone target, then the ATR distance, then the fixed risk ratio.
func (g *Generator) setTakeProfit(sig *shared.TradeSignal, book *shared.OrderBook, atr *indicator.ATR) {
	zone := g.liquidity.FindTargetZone(book, sig.EntryPrice, sig.Direction)
	if zone != nil {
		sig.TakeProfit = zone.Price
		sig.TakeProfitBasis = shared.LiquidityZoneTarget
		sig.TakeProfitReason = fmt.Sprintf("%s liquidity zone @ %.4f (volume %.2f, %.2f%% away)",
			zone.Kind.String(), zone.Price, zone.Volume, zone.DistancePercent)
		return
	}

	if atr != nil {
		distance := atr.Value * atrTakeProfitMultiplier
		switch sig.Direction {
		case shared.Long:
			sig.TakeProfit = sig.EntryPrice + distance
		case shared.Short:
			sig.TakeProfit = sig.EntryPrice - distance
		}
		sig.TakeProfitBasis = shared.ATRTarget
		sig.TakeProfitReason = fmt.Sprintf("atr(%d) x %.1f distance", atr.Period, atrTakeProfitMultiplier)
		return
	}

	var risk float64
	switch sig.Direction {
	case shared.Long:
		risk = sig.EntryPrice - sig.StopLoss
		sig.TakeProfit = sig.EntryPrice + risk*riskTakeProfitMultiplier
	case shared.Short:
		risk = sig.StopLoss - sig.EntryPrice
		sig.TakeProfit = sig.EntryPrice - risk*riskTakeProfitMultiplier
	}
	sig.TakeProfitBasis = shared.RiskRatioTarget
	sig.TakeProfitReason = fmt.Sprintf("%.1f:1 risk ratio fallback", riskTakeProfitMultiplier)
}
