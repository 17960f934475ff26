package continuous

import "github.com/sawpanic/marketscanner/internal/adapter"

// Recommendation is the confluence query's strength classification, per
// spec §4.7.
type Recommendation string

const (
	RecommendationStrong   Recommendation = "STRONG"
	RecommendationModerate Recommendation = "MODERATE"
	RecommendationWeak     Recommendation = "WEAK"
)

// Confluence is the multi-timeframe confluence query result, per spec
// §4.7: agreement of the four timeframes' latest signals.
type Confluence struct {
	Symbol            string
	Confluence        bool
	BullishTimeframes int
	BearishTimeframes int
	MeanCombinedScore float64
	Recommendation    Recommendation
	Latest            map[adapter.Timeframe]SignalEntry
}

// QueryConfluence gathers the latest signal from each of the four
// timeframes for (exchange,symbol), per spec §4.7: confluence requires
// (bullish>=2 || bearish>=2) && min combined_score >= minScore. The
// recommendation is STRONG when confluence holds and the mean exceeds 75,
// MODERATE when confluence holds otherwise, WEAK when it doesn't.
func (p *Pipeline) QueryConfluence(exchange, pair string, minScore float64) Confluence {
	if minScore <= 0 {
		minScore = confluenceDefaultMinScore
	}
	latest := make(map[adapter.Timeframe]SignalEntry)
	var scores []float64
	bullish, bearish := 0, 0
	minCombined := -1.0

	for _, tf := range SignalTimeframes {
		entry, ok := p.SignalBuffer(exchange, pair, tf).Latest()
		if !ok {
			continue
		}
		latest[tf] = entry
		scores = append(scores, entry.CombinedScore)
		// Only the directionally-agreeing timeframes count toward the
		// "min combined_score >= threshold" gate; a neutral timeframe in
		// the mix neither confirms nor denies confluence.
		if entry.Bullish() || entry.Bearish() {
			if minCombined < 0 || entry.CombinedScore < minCombined {
				minCombined = entry.CombinedScore
			}
			if entry.Bullish() {
				bullish++
			} else {
				bearish++
			}
		}
	}

	mean := 0.0
	if len(scores) > 0 {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		mean = sum / float64(len(scores))
	}

	confluent := (bullish >= 2 || bearish >= 2) && len(scores) > 0 && minCombined >= minScore

	rec := RecommendationWeak
	switch {
	case confluent && mean > 75:
		rec = RecommendationStrong
	case confluent:
		rec = RecommendationModerate
	}

	return Confluence{
		Symbol:            pair,
		Confluence:        confluent,
		BullishTimeframes: bullish,
		BearishTimeframes: bearish,
		MeanCombinedScore: mean,
		Recommendation:    rec,
		Latest:            latest,
	}
}
