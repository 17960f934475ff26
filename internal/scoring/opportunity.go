package scoring

// OpportunityInputs bundles the feature-vector fields the opportunity
// score reads, with pointer fields treated as absent -> neutral default.
type OpportunityInputs struct {
	MomentumShort  float64
	MomentumLong   float64
	RSI            float64
	MACD           float64
	BBPosition     *float64
	TrendScore     float64
	VolumeRatio    float64
	StochK         *float64
	RSIBearishDiv  bool
}

// Opportunity is the centerpiece entry-quality score: seven sub-scores in
// [0,1], weighted, multiplied by a divergence penalty, scaled to [0,100].
// It favors pullbacks in established trends over extended momentum, per
// spec §4.5.
func Opportunity(in OpportunityInputs) float64 {
	var rsiOpp float64
	switch {
	case in.RSI < 30:
		rsiOpp = 0.3
	case in.RSI < 45:
		rsiOpp = 1.0
	case in.RSI < 55:
		rsiOpp = 0.8
	case in.RSI < 70:
		rsiOpp = 0.5
	default:
		rsiOpp = 0.2
	}

	bbOpp := 0.5
	if in.BBPosition != nil {
		bb := *in.BBPosition
		switch {
		case bb < 0.3:
			bbOpp = 1.0
		case bb < 0.5:
			bbOpp = 0.9
		case bb < 0.7:
			bbOpp = 0.6
		default:
			bbOpp = 0.2
		}
	}

	stochOpp := 0.5
	if in.StochK != nil {
		k := *in.StochK
		switch {
		case k < 20:
			if in.MomentumLong > 0 {
				stochOpp = 1.0
			} else {
				stochOpp = 0.3
			}
		case k < 40:
			stochOpp = 0.9
		case k < 60:
			stochOpp = 0.7
		case k < 80:
			stochOpp = 0.4
		default:
			stochOpp = 0.1
		}
	}

	var momentumOpp float64
	switch {
	case in.MomentumLong > 0.001:
		switch {
		case in.MomentumShort > -0.005 && in.MomentumShort < 0.002:
			momentumOpp = 1.0
		case in.MomentumShort > 0.005:
			momentumOpp = 0.4
		default:
			momentumOpp = 0.6
		}
	case in.MomentumLong < -0.001:
		if in.MomentumShort > -0.002 && in.MomentumShort < 0.005 {
			momentumOpp = 1.0
		} else {
			momentumOpp = 0.5
		}
	default:
		momentumOpp = 0.5
	}

	divergencePenalty := 1.0
	if in.RSIBearishDiv {
		divergencePenalty = 0.5
	}

	var volOpp float64
	switch {
	case in.VolumeRatio > 1.5:
		if in.RSI < 55 {
			volOpp = 1.0
		} else {
			volOpp = 0.3
		}
	case in.VolumeRatio > 1.2:
		volOpp = 0.8
	case in.VolumeRatio > 0.8:
		volOpp = 0.6
	default:
		volOpp = 0.4
	}

	trendOpp := clamp(in.TrendScore/10, 0, 1)

	var macdOpp float64
	switch {
	case in.MomentumLong > 0 && in.MACD > -0.5 && in.MACD < 0:
		macdOpp = 1.0
	case in.MACD > 0:
		if in.MACD < 2 {
			macdOpp = 0.7
		} else {
			macdOpp = 0.3
		}
	default:
		macdOpp = 0.5
	}

	opportunity := (rsiOpp*0.25 +
		bbOpp*0.20 +
		stochOpp*0.15 +
		momentumOpp*0.15 +
		volOpp*0.10 +
		trendOpp*0.10 +
		macdOpp*0.05) * divergencePenalty

	return opportunity * 100
}

// Combined is the sole ranking key: 0.50*opportunity + 0.25*composite +
// 0.15*volume_composite + 0.10*signal_strength, per spec §4.5/§8 invariant 1.
func Combined(opportunity, composite, volumeComposite, strength float64) float64 {
	return 0.50*opportunity + 0.25*composite + 0.15*volumeComposite + 0.10*strength
}
