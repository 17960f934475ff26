package httpapi

import (
	"time"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/continuous"
	"github.com/sawpanic/marketscanner/internal/indicators"
	"github.com/sawpanic/marketscanner/internal/scan"
	"github.com/sawpanic/marketscanner/internal/scoring"
	"github.com/sawpanic/marketscanner/internal/store"
)

// timeframeAliases maps the Scan API's human-friendly timeframe names to
// adapter.Timeframe values, per spec §6's Scan API table.
var timeframeAliases = map[string]adapter.Timeframe{
	"scalping": adapter.TF1m,
	"short":    adapter.TF5m,
	"medium":   adapter.TF1h,
	"daily":    adapter.TF1d,
	"weekly":   adapter.TF1w,
}

// ResolveTimeframe maps a Scan API timeframe alias to its adapter value,
// defaulting to medium/1h when alias is empty or unrecognized.
func ResolveTimeframe(alias string) adapter.Timeframe {
	if tf, ok := timeframeAliases[alias]; ok {
		return tf
	}
	return adapter.TF1h
}

func volatilityWire(v indicators.Volatility) string {
	if v == indicators.VolMed {
		return "medium"
	}
	return string(v)
}

// volumeBucket buckets the volume-composite score (0..100) into the wire
// contract's coarse categories.
func volumeBucket(volumeComposite float64) string {
	switch {
	case volumeComposite >= 80:
		return "very_high"
	case volumeComposite >= 60:
		return "high"
	default:
		return "medium"
	}
}

// ScanRequestBody is the JSON request body for POST /api/scanner/scan.
type ScanRequestBody struct {
	Timeframe    string      `json:"timeframe"`
	Exchange     interface{} `json:"exchange"`
	Parallel     bool        `json:"parallel"`
	Signal       string      `json:"signal"`
	MinStrength  *float64    `json:"minStrength"`
	FullAnalysis *bool       `json:"fullAnalysis"`
}

// IndicatorsWire is the signal object's "indicators" sub-object.
type IndicatorsWire struct {
	RSI    float64 `json:"rsi"`
	MACD   string  `json:"macd"`
	EMA    string  `json:"ema"`
	Volume string  `json:"volume"`
}

// AdvancedWire is the signal object's "advanced" sub-object.
type AdvancedWire struct {
	OpportunityScore float64 `json:"opportunity_score"`
	CompositeScore   float64 `json:"composite_score"`
	TrendScore       float64 `json:"trend_score"`
	ConfidenceScore  float64 `json:"confidence_score"`
	CombinedScore    float64 `json:"combined_score"`
	IchimokuBullish  bool    `json:"ichimoku_bullish"`
	VWAPBullish      bool    `json:"vwap_bullish"`
	BBPosition       float64 `json:"bb_position"`
}

// RiskRewardWire is the signal object's "risk_reward" sub-object.
type RiskRewardWire struct {
	EntryPrice      float64  `json:"entry_price"`
	StopLoss        float64  `json:"stop_loss"`
	TakeProfit      float64  `json:"take_profit"`
	RiskAmount      float64  `json:"risk_amount"`
	RewardAmount    float64  `json:"reward_amount"`
	RiskRewardRatio float64  `json:"risk_reward_ratio"`
	StopLossPct     float64  `json:"stop_loss_pct"`
	TakeProfitPct   float64  `json:"take_profit_pct"`
	SupportLevel    *float64 `json:"support_level,omitempty"`
	ResistanceLevel *float64 `json:"resistance_level,omitempty"`
}

// MarketRegimeWire is the signal object's "market_regime" sub-object.
type MarketRegimeWire struct {
	Regime            string  `json:"regime"`
	Confidence        float64 `json:"confidence"`
	TrendStrength     float64 `json:"trend_strength"`
	Volatility        string  `json:"volatility"`
	SuggestedThreshold float64 `json:"suggested_threshold"`
}

// SignalWire is the stable wire-contract signal object, per spec §6.
type SignalWire struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Exchange     string  `json:"exchange"`
	Timeframe    string  `json:"timeframe"`
	Signal       string  `json:"signal"`
	Strength     int     `json:"strength"`
	Price        float64 `json:"price"`
	Change       float64 `json:"change"`
	Volume       float64 `json:"volume"`
	Timestamp    string  `json:"timestamp"`
	Indicators   IndicatorsWire   `json:"indicators"`
	Advanced     AdvancedWire     `json:"advanced"`
	RiskReward   RiskRewardWire   `json:"risk_reward"`
	MarketRegime MarketRegimeWire `json:"market_regime"`
}

func orZeroPtr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// ToSignalWire maps the internal scan.Signal to the stable wire contract,
// per spec §6. exchange is threaded in separately because scan.Signal
// doesn't carry it (one Signal belongs to whichever orchestrator produced
// it).
func ToSignalWire(exchange string, s scan.Signal) SignalWire {
	macd := "bearish"
	if orZeroPtr(s.MACDHist) > 0 {
		macd = "bullish"
	}
	ema := "below"
	if s.EMA21 != nil && s.Price >= *s.EMA21 {
		ema = "above"
	}

	return SignalWire{
		ID:        s.Symbol.ExchangeID + ":" + s.Symbol.Pair + ":" + string(s.Timeframe),
		Symbol:    s.Symbol.Pair,
		Exchange:  exchange,
		Timeframe: string(s.Timeframe),
		Signal:    s.Label.WireSignal(),
		Strength:  int(s.Strength),
		Price:     s.Price,
		Change:    s.Change24h,
		Volume:    s.Volume,
		Timestamp: s.Timestamp.UTC().Format(time.RFC3339),
		Indicators: IndicatorsWire{
			RSI:    orZeroPtr(s.RSI),
			MACD:   macd,
			EMA:    ema,
			Volume: volumeBucket(s.VolumeComposite),
		},
		Advanced: AdvancedWire{
			OpportunityScore: s.OpportunityScore,
			CompositeScore:   s.CompositeScore,
			TrendScore:       s.TrendStrength,
			ConfidenceScore:  s.RegimeConfidence,
			CombinedScore:    s.CombinedScore,
			IchimokuBullish:  s.IchimokuBullish,
			VWAPBullish:      s.VWAPBullish,
			BBPosition:       orZeroPtr(s.BBPosition),
		},
		RiskReward: RiskRewardWire{
			EntryPrice:      s.Risk.EntryPrice,
			StopLoss:        s.Risk.StopLoss,
			TakeProfit:      s.Risk.TakeProfit,
			RiskAmount:      s.Risk.RiskAmount,
			RewardAmount:    s.Risk.RewardAmount,
			RiskRewardRatio: s.Risk.RiskRewardRatio,
			StopLossPct:     s.Risk.StopLossPct,
			TakeProfitPct:   s.Risk.TakeProfitPct,
			SupportLevel:    s.Risk.SupportLevel,
			ResistanceLevel: s.Risk.ResistanceLevel,
		},
		MarketRegime: MarketRegimeWire{
			Regime:             string(s.Regime),
			Confidence:         s.RegimeConfidence,
			TrendStrength:      s.TrendStrength,
			Volatility:         volatilityWire(s.Volatility),
			SuggestedThreshold: s.SuggestedThresh,
		},
	}
}

// ScanMetadataWire is the "metadata" object of a scan response.
type ScanMetadataWire struct {
	Count           int                    `json:"count"`
	Timeframe       string                 `json:"timeframe"`
	Exchange        interface{}            `json:"exchange"`
	Timestamp       string                 `json:"timestamp"`
	DurationSeconds float64                `json:"duration_seconds"`
	Performance     map[string]interface{} `json:"performance"`
	FiltersApplied  map[string]interface{} `json:"filters_applied"`
}

// ScanResponseWire is the full POST /api/scanner/scan response body.
type ScanResponseWire struct {
	Signals  []SignalWire     `json:"signals"`
	Metadata ScanMetadataWire `json:"metadata"`
}

// ContinuousStatusWire is GET /api/scanner/continuous/status's response.
type ContinuousStatusWire struct {
	Running     bool                `json:"running"`
	MarketState continuous.MarketState `json:"market_state"`
	Buffers     map[string]int      `json:"buffers"`
}

// ConfluenceWire is GET /api/scanner/continuous/confluence/<symbol>'s
// response.
type ConfluenceWire struct {
	Symbol            string                           `json:"symbol"`
	Confluence        bool                             `json:"confluence"`
	BullishTimeframes int                              `json:"bullish_timeframes"`
	BearishTimeframes int                              `json:"bearish_timeframes"`
	MeanCombinedScore float64                          `json:"mean_combined_score"`
	Recommendation    string                           `json:"recommendation"`
}

func ToConfluenceWire(c continuous.Confluence) ConfluenceWire {
	return ConfluenceWire{
		Symbol:            c.Symbol,
		Confluence:        c.Confluence,
		BullishTimeframes: c.BullishTimeframes,
		BearishTimeframes: c.BearishTimeframes,
		MeanCombinedScore: c.MeanCombinedScore,
		Recommendation:    string(c.Recommendation),
	}
}

// TrainingDataWire is GET /api/scanner/training-data/<symbol>'s response.
type TrainingDataWire struct {
	Symbol     string                               `json:"symbol"`
	Signals    []continuous.SignalEntry             `json:"signals"`
	Clustering []store.ClusterRecord                `json:"clustering"`
	OHLCV      map[adapter.Timeframe][]adapter.Candle `json:"ohlcv"`
}

// PositionRequestBody is POST /api/position/calculate's request body.
type PositionRequestBody struct {
	AccountBalance  float64 `json:"accountBalance"`
	RiskPerTrade    float64 `json:"riskPerTrade"`
	EntryPrice      float64 `json:"entryPrice"`
	StopLoss        float64 `json:"stopLoss"`
	Leverage        float64 `json:"leverage"`
	FeeRate         float64 `json:"feeRate"`
}

// PositionResponseWire wraps scoring.PositionSize for JSON.
type PositionResponseWire struct {
	PositionValue   float64  `json:"position_value"`
	Units           float64  `json:"units"`
	MarginRequired  float64  `json:"margin_required"`
	RiskAmountUSD   float64  `json:"risk_amount_usd"`
	TotalFees       float64  `json:"total_fees"`
	StopDistancePct float64  `json:"stop_distance_pct"`
	Leverage        float64  `json:"leverage"`
	MarginUsagePct  float64  `json:"margin_usage_pct"`
	Warnings        []string `json:"warnings"`
	SafeToTrade     bool     `json:"safe_to_trade"`
}

func ToPositionWire(p scoring.PositionSize) PositionResponseWire {
	warnings := p.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return PositionResponseWire{
		PositionValue:   p.PositionValue,
		Units:           p.Units,
		MarginRequired:  p.MarginRequired,
		RiskAmountUSD:   p.RiskAmountUSD,
		TotalFees:       p.TotalFees,
		StopDistancePct: p.StopDistancePct,
		Leverage:        p.Leverage,
		MarginUsagePct:  p.MarginUsagePct,
		Warnings:        warnings,
		SafeToTrade:     p.SafeToTrade,
	}
}

// HealthWire is GET /health's response, per spec §6.
type HealthWire struct {
	Status   string            `json:"status"`
	UptimeS  float64           `json:"uptime"`
	Adapters map[string]string `json:"adapters"`
}

// ErrorWire is the standard error envelope for 4xx/5xx responses, per spec
// §7: "Invalid request bodies return 400 with a message naming the
// offending field."
type ErrorWire struct {
	Error string `json:"error"`
}
