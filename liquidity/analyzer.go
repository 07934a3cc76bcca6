package liquidity

import (
	"sort"

	"fvgrid/shared"
)

const (
	// depthLevels is the number of best levels per side used for the depth ratio.
	depthLevels = 5
	// zoneBucketSize is the number of consecutive levels clustered into a zone.
	zoneBucketSize = 5
	// zoneVolumeMultiplier is the minimum bucket volume relative to the side
	// mean for a bucket to qualify as a zone.
	zoneVolumeMultiplier = 1.5
	// maxZones is the maximum number of zones returned per analysis.
	maxZones = 10
	// maxScore is the liquidity score ceiling.
	maxScore = 100
)

// Analyzer represents an order book liquidity analyzer. Analyzers hold no
// state between calls.
type Analyzer struct{}

// NewAnalyzer initializes a new liquidity analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// volumeScore returns the tiered score for the provided total resting volume.
func volumeScore(totalVolume float64) float64 {
	switch {
	case totalVolume > 1_000_000:
		return 50
	case totalVolume > 500_000:
		return 45
	case totalVolume > 100_000:
		return 40
	case totalVolume > 50_000:
		return 30
	case totalVolume > 10_000:
		return 20
	case totalVolume > 1_000:
		return 10
	default:
		return 5
	}
}

// depthRatio returns the share of total book volume concentrated in the best
// levels per side. It is zero when either side is empty.
func depthRatio(book *shared.OrderBook) float64 {
	totalBids := book.BidVolume()
	totalAsks := book.AskVolume()
	if totalBids == 0 || totalAsks == 0 {
		return 0
	}

	var topBids, topAsks float64
	for idx := 0; idx < depthLevels && idx < len(book.Bids); idx++ {
		topBids += book.Bids[idx].Amount
	}
	for idx := 0; idx < depthLevels && idx < len(book.Asks); idx++ {
		topAsks += book.Asks[idx].Amount
	}

	return (topBids + topAsks) / (totalBids + totalAsks)
}

// Analyze computes liquidity metrics for the provided order book snapshot.
// A book missing either side yields zeroed metrics, the imbalance and depth
// ratios are undefined without both sides.
func (a *Analyzer) Analyze(book *shared.OrderBook, currentPrice float64) *shared.LiquidityMetrics {
	metrics := &shared.LiquidityMetrics{}
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return metrics
	}

	metrics.BidVolume = book.BidVolume()
	metrics.AskVolume = book.AskVolume()

	totalVolume := metrics.BidVolume + metrics.AskVolume
	if totalVolume > 0 {
		metrics.ImbalanceRatio = (metrics.BidVolume - metrics.AskVolume) / totalVolume
	}

	metrics.DepthRatio = depthRatio(book)

	// The liquidity score is a weighted sum of the volume, depth and balance
	// bands, each capped before summing.
	score := volumeScore(totalVolume)
	score += metrics.DepthRatio * 30

	if totalVolume > 0 {
		balance := metrics.BidVolume
		if metrics.AskVolume < balance {
			balance = metrics.AskVolume
		}

		balanceScore := balance / totalVolume * 40
		if balanceScore > 20 {
			balanceScore = 20
		}
		score += balanceScore
	}

	if score > maxScore {
		score = maxScore
	}
	metrics.LiquidityScore = score

	return metrics
}

// sideZones clusters one side of the book into fixed buckets of consecutive
// levels, preserving book order, and retains buckets whose volume exceeds the
// side's mean bucket volume by the zone multiplier.
func sideZones(levels []shared.OrderBookLevel, kind shared.ZoneKind, currentPrice float64) []*shared.LiquidityZone {
	if len(levels) == 0 || currentPrice <= 0 {
		return nil
	}

	type bucket struct {
		volume     float64
		weighted   float64
		orderCount int
	}

	buckets := make([]bucket, 0, len(levels)/zoneBucketSize+1)
	for idx := 0; idx < len(levels); idx += zoneBucketSize {
		end := idx + zoneBucketSize
		if end > len(levels) {
			end = len(levels)
		}

		var b bucket
		for _, level := range levels[idx:end] {
			b.volume += level.Amount
			b.weighted += level.Price * level.Amount
			b.orderCount++
		}
		buckets = append(buckets, b)
	}

	var totalVolume float64
	for idx := range buckets {
		totalVolume += buckets[idx].volume
	}
	meanVolume := totalVolume / float64(len(buckets))

	zones := make([]*shared.LiquidityZone, 0, len(buckets))
	for idx := range buckets {
		b := buckets[idx]
		if b.volume <= zoneVolumeMultiplier*meanVolume || b.volume == 0 {
			continue
		}

		price := b.weighted / b.volume

		var distance float64
		switch kind {
		case shared.BuyZone:
			distance = (currentPrice - price) / currentPrice * 100
		case shared.SellZone:
			distance = (price - currentPrice) / currentPrice * 100
		}

		zones = append(zones, &shared.LiquidityZone{
			Kind:            kind,
			Price:           price,
			Volume:          b.volume,
			DistancePercent: distance,
			OrderCount:      b.orderCount,
		})
	}

	return zones
}

// FindZones clusters both sides of the provided order book into liquidity
// zones, ordered by descending volume.
func (a *Analyzer) FindZones(book *shared.OrderBook, currentPrice float64) []*shared.LiquidityZone {
	zones := []*shared.LiquidityZone{}
	if book == nil {
		return zones
	}

	zones = append(zones, sideZones(book.Bids, shared.BuyZone, currentPrice)...)
	zones = append(zones, sideZones(book.Asks, shared.SellZone, currentPrice)...)

	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].Volume > zones[j].Volume
	})

	if len(zones) > maxZones {
		zones = zones[:maxZones]
	}

	return zones
}

// distanceScore returns the banded score for a zone's distance from market.
func distanceScore(distancePercent float64) float64 {
	switch {
	case distancePercent >= 0.5 && distancePercent <= 3.0:
		return 1.0
	case distancePercent >= 0.3 && distancePercent <= 5.0:
		return 0.7
	default:
		return 0.4
	}
}

// FindTargetZone selects the best liquidity zone to target in the provided
// trade direction, or nil when no zone exists in the required price
// direction. Longs target sell zones above the current price, shorts target
// buy zones below it.
func (a *Analyzer) FindTargetZone(book *shared.OrderBook, currentPrice float64, direction shared.Direction) *shared.LiquidityZone {
	zones := a.FindZones(book, currentPrice)

	candidates := make([]*shared.LiquidityZone, 0, len(zones))
	for idx := range zones {
		zone := zones[idx]
		switch direction {
		case shared.Long:
			if zone.Kind == shared.SellZone && zone.Price > currentPrice {
				candidates = append(candidates, zone)
			}
		case shared.Short:
			if zone.Kind == shared.BuyZone && zone.Price < currentPrice {
				candidates = append(candidates, zone)
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	var maxVolume float64
	for idx := range candidates {
		if candidates[idx].Volume > maxVolume {
			maxVolume = candidates[idx].Volume
		}
	}

	var best *shared.LiquidityZone
	var bestScore float64
	for idx := range candidates {
		zone := candidates[idx]

		volumeScore := 0.0
		if maxVolume > 0 {
			volumeScore = zone.Volume / maxVolume
		}

		score := 0.6*distanceScore(zone.DistancePercent) + 0.4*volumeScore
		if best == nil || score > bestScore {
			best = zone
			bestScore = score
		}
	}

	return best
}
