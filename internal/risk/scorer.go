package risk

import "math"

// Weights is the factor weight table. The defaults sum to 100; when the
// reserve feed is absent the reserve weight is redistributed across the
// remaining factors so the scale stays 0-100.
type Weights struct {
	ReserveMargin     float64
	RenewableDropRate float64
	BaseloadSurge     float64
	DemandSpike       float64
	CriticalHours     float64
	SystemImbalance   float64
}

// DefaultWeights returns the production weight table.
func DefaultWeights() Weights {
	return Weights{
		ReserveMargin:     35,
		RenewableDropRate: 25,
		BaseloadSurge:     15,
		DemandSpike:       10,
		CriticalHours:     10,
		SystemImbalance:   5,
	}
}

// Reserve-margin breakpoints (MW of available minus required reserve).
// Business rules; do not retune without a domain directive.
const (
	reserveDeficitMW = 0
	reserveSevereMW  = 300
	reserveLowMW     = 500
	reserveReducedMW = 1000
	reserveAmpleMW   = 1500
)

// Renewable-drop breakpoints (MW/h of combined PV+wind change, negative =
// falling) and the second-order gradient boost.
const (
	renewDropExtremeMW = -2000
	renewDropSevereMW  = -1500
	renewDropHighMW    = -1000
	renewDropMediumMW  = -500
	renewDropLightMW   = -200
	gradientBoostMW    = 500
	gradientBoostPts   = 20
)

// Baseload-surge breakpoints (MW/h); the full scale applies only in the
// evening peak window.
const (
	eveningStartHour = 16
	eveningEndHour   = 20
	surgeExtremeMW   = 1500
	surgeHighMW      = 1000
	surgeMediumMW    = 500
	surgeLightMW     = 200
)

// Demand-spike breakpoints (% of current load per hour).
const (
	demandSharpPct   = 5
	demandFastPct    = 3
	demandNotablePct = 2
	demandMildPct    = 1
)

// Cross-border exchange breakpoints (MW, absolute).
const (
	exchangeExtremeMW = 3000
	exchangeHighMW    = 2000
	exchangeNotableMW = 1000
)

// Synergy thresholds: a sub-score at or above these counts as a critical
// resp. high factor (a critical factor counts as high too).
const (
	criticalFactorMin = 80
	highFactorMin     = 50
)

// Scorer computes the redispatch risk for a single grid cell. It is
// stateless apart from its weight table, fixed at construction; Score is a
// pure function of its input.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer with the production weight table.
func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// factorEval pairs a factor's sub-score with its effective weight and raw
// signal value for the display layers.
type factorEval struct {
	name   string
	score  FactorScore
	weight float64
	value  float64
}

// Score computes the weighted multi-factor risk score for one cell.
func (s *Scorer) Score(in *RiskInput) (*RiskScore, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	comps := Components{
		RenewableDropRate: Some(renewableDropScore(in)),
		BaseloadSurge:     Some(baseloadSurgeScore(in)),
		DemandSpike:       Some(demandSpikeScore(in)),
		CriticalHours:     Some(criticalHoursScore(in)),
		SystemImbalance:   Some(systemImbalanceScore(in)),
	}
	if in.HasReserveData {
		comps.ReserveMargin = Some(reserveMarginScore(in))
	}

	eff := effectiveWeights(s.weights, in.HasReserveData)
	evals := []factorEval{
		{"reserveMargin", comps.ReserveMargin, eff.ReserveMargin, in.AvailableReserve - in.RequiredReserve},
		{"renewableDropRate", comps.RenewableDropRate, eff.RenewableDropRate, combinedDrop(in)},
		{"baseloadSurge", comps.BaseloadSurge, eff.BaseloadSurge, in.BaseloadDelta},
		{"demandSpike", comps.DemandSpike, eff.DemandSpike, demandRate(in)},
		{"criticalHours", comps.CriticalHours, eff.CriticalHours, float64(in.Hour)},
		{"systemImbalance", comps.SystemImbalance, eff.SystemImbalance, in.PowerExchange},
	}

	var sum float64
	for _, e := range evals {
		if e.score.Valid {
			sum += float64(e.score.Score) * e.weight / 100
		}
	}
	sum += float64(synergyBonus(evals))
	total := int(math.Round(clamp(sum, 0, 100)))

	quality := QualityComplete
	if !in.HasReserveData {
		quality = QualityPartial
	}

	return &RiskScore{
		TotalScore:      total,
		Components:      comps,
		RiskLevel:       LevelFor(total),
		Factors:         buildFactors(evals, in),
		Recommendations: buildRecommendations(evals, in),
		HasReserveData:  in.HasReserveData,
		DataQuality:     quality,
	}, nil
}

// effectiveWeights redistributes the reserve weight proportionally across
// the remaining factors when the reserve feed is absent, preserving the
// 100-point scale.
func effectiveWeights(w Weights, hasReserve bool) Weights {
	if hasReserve {
		return w
	}
	others := w.RenewableDropRate + w.BaseloadSurge + w.DemandSpike + w.CriticalHours + w.SystemImbalance
	if others == 0 {
		return w
	}
	scale := 1 + w.ReserveMargin/others
	return Weights{
		RenewableDropRate: w.RenewableDropRate * scale,
		BaseloadSurge:     w.BaseloadSurge * scale,
		DemandSpike:       w.DemandSpike * scale,
		CriticalHours:     w.CriticalHours * scale,
		SystemImbalance:   w.SystemImbalance * scale,
	}
}

// synergyBonus adds points when several factors fire at once; stacked
// stress is worse than the weighted sum alone suggests.
func synergyBonus(evals []factorEval) int {
	var critical, high int
	for _, e := range evals {
		if !e.score.Valid {
			continue
		}
		if e.score.Score >= criticalFactorMin {
			critical++
		}
		if e.score.Score >= highFactorMin {
			high++
		}
	}
	switch {
	case critical >= 3:
		return 15
	case critical >= 2:
		return 10
	case critical >= 1 && high >= 2:
		return 8
	case high >= 3:
		return 5
	}
	return 0
}

// combinedDrop is the PV+wind hour-over-hour change clamped to falling
// values; a rising combined output contributes no drop signal.
func combinedDrop(in *RiskInput) float64 {
	drop := in.PVDelta + in.WindDelta
	if drop > 0 {
		return 0
	}
	return drop
}

// demandRate is the load change rate in percent of current load per hour.
// Zero load (unpopulated feed) yields zero rate rather than a division.
func demandRate(in *RiskInput) float64 {
	if in.SystemLoad == 0 {
		return 0
	}
	return in.DemandDelta / in.SystemLoad * 100
}

func reserveMarginScore(in *RiskInput) int {
	margin := in.AvailableReserve - in.RequiredReserve
	switch {
	case margin < reserveDeficitMW:
		return 100
	case margin < reserveSevereMW:
		return 85
	case margin < reserveLowMW:
		return 65
	case margin < reserveReducedMW:
		return 40
	case margin < reserveAmpleMW:
		return 20
	}
	return 0
}

func renewableDropScore(in *RiskInput) int {
	drop := combinedDrop(in)
	score := 0
	switch {
	case drop < renewDropExtremeMW:
		score = 100
	case drop < renewDropSevereMW:
		score = 80
	case drop < renewDropHighMW:
		score = 60
	case drop < renewDropMediumMW:
		score = 40
	case drop < renewDropLightMW:
		score = 20
	}
	if math.Abs(in.PVGradient+in.WindGradient) > gradientBoostMW {
		score += gradientBoostPts
		if score > 100 {
			score = 100
		}
	}
	return score
}

func baseloadSurgeScore(in *RiskInput) int {
	d := in.BaseloadDelta
	if in.Hour >= eveningStartHour && in.Hour <= eveningEndHour {
		switch {
		case d > surgeExtremeMW:
			return 100
		case d > surgeHighMW:
			return 70
		case d > surgeMediumMW:
			return 40
		case d > surgeLightMW:
			return 20
		}
		return 0
	}
	if d > surgeMediumMW {
		return 20
	}
	return 0
}

func demandSpikeScore(in *RiskInput) int {
	rate := demandRate(in)
	switch {
	case rate > demandSharpPct:
		return 100
	case rate > demandFastPct:
		return 60
	case rate > demandNotablePct:
		return 30
	case rate > demandMildPct:
		return 15
	}
	return 0
}

// criticalHoursScore is the fixed schedule of structurally tight hours:
// weekday evening peak scores full, the morning ramp high, shoulder hours
// partial. Weekends score zero.
func criticalHoursScore(in *RiskInput) int {
	if in.DayOfWeek == 0 || in.DayOfWeek == 6 {
		return 0
	}
	h := in.Hour
	switch {
	case h >= 17 && h <= 20:
		return 100
	case h >= 7 && h <= 9:
		return 60
	case (h >= 6 && h <= 10) || (h >= 16 && h <= 21):
		return 30
	}
	return 0
}

func systemImbalanceScore(in *RiskInput) int {
	x := math.Abs(in.PowerExchange)
	switch {
	case x > exchangeExtremeMW:
		return 100
	case x > exchangeHighMW:
		return 60
	case x > exchangeNotableMW:
		return 30
	}
	return 0
}

func validateInput(in *RiskInput) error {
	type check struct {
		name string
		v    float64
	}
	checks := []check{
		{"systemLoad", in.SystemLoad},
		{"pvGeneration", in.PVGeneration},
		{"windGeneration", in.WindGeneration},
		{"baseloadGeneration", in.BaseloadGeneration},
		{"powerExchange", in.PowerExchange},
		{"pvDelta", in.PVDelta},
		{"windDelta", in.WindDelta},
		{"baseloadDelta", in.BaseloadDelta},
		{"demandDelta", in.DemandDelta},
		{"pvGradient", in.PVGradient},
		{"windGradient", in.WindGradient},
	}
	if in.HasReserveData {
		checks = append(checks,
			check{"availableReserve", in.AvailableReserve},
			check{"requiredReserve", in.RequiredReserve},
		)
	}

	var bad []string
	for _, c := range checks {
		if !isFinite(c.v) {
			bad = append(bad, c.name)
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}
