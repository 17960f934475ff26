package continuous

import "github.com/sawpanic/marketscanner/internal/adapter"

// Cluster is one run of consecutive same-direction high-volume bars, per
// spec §4.7.
type Cluster struct {
	Bullish bool
	Bars    int
}

// ClusterResult is the candle-cluster sub-score and its components, per
// spec §4.7.
type ClusterResult struct {
	TotalClusters    int
	BullishClusters  int
	BearishClusters  int
	DirectionalRatio float64
	FollowThrough    float64
	TrendFormation   bool
	Strength         float64
}

// ClassifyClusters scans the last 20 bars for runs of consecutive
// high-volume (volume > 2*mean) same-direction bars, per spec §4.7.
// directional_ratio = max(bullish, bearish)/total; follow_through =
// fraction of the last 3 bars matching the last cluster's direction;
// trend_formation = directional_ratio > 0.7 && follow_through > 0.5;
// strength = directional_ratio * follow_through.
func ClassifyClusters(candles []adapter.Candle) ClusterResult {
	n := len(candles)
	if n < 20 {
		return ClusterResult{}
	}
	window := candles[n-20:]

	sum := 0.0
	for _, c := range window {
		sum += c.Volume
	}
	meanVol := sum / float64(len(window))

	var clusters []Cluster
	curIdx := -1
	for _, c := range window {
		highVol := c.Volume > 2*meanVol
		bullish := c.Close > c.Open
		if !highVol {
			curIdx = -1
			continue
		}
		if curIdx >= 0 && clusters[curIdx].Bullish == bullish {
			clusters[curIdx].Bars++
			continue
		}
		clusters = append(clusters, Cluster{Bullish: bullish, Bars: 1})
		curIdx = len(clusters) - 1
	}

	if len(clusters) == 0 {
		return ClusterResult{}
	}

	bullishClusters, bearishClusters := 0, 0
	for _, cl := range clusters {
		if cl.Bullish {
			bullishClusters++
		} else {
			bearishClusters++
		}
	}
	total := len(clusters)

	maxSide := bullishClusters
	if bearishClusters > maxSide {
		maxSide = bearishClusters
	}
	directionalRatio := float64(maxSide) / float64(total)

	lastDirection := clusters[len(clusters)-1].Bullish
	last3 := window[len(window)-3:]
	matching := 0
	for _, c := range last3 {
		if (c.Close > c.Open) == lastDirection {
			matching++
		}
	}
	followThrough := float64(matching) / 3

	trendFormation := directionalRatio > 0.7 && followThrough > 0.5

	return ClusterResult{
		TotalClusters:    total,
		BullishClusters:  bullishClusters,
		BearishClusters:  bearishClusters,
		DirectionalRatio: directionalRatio,
		FollowThrough:    followThrough,
		TrendFormation:   trendFormation,
		Strength:         directionalRatio * followThrough,
	}
}
