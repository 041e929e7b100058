package risk

import (
	"encoding/json"
	"math"
	"strings"
)

// Level classifies a total score into one of four buckets. The string
// values double as CSS class names on the dashboard.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// LevelFor maps a total score to its risk level via fixed thresholds.
func LevelFor(total int) Level {
	switch {
	case total <= 25:
		return LevelLow
	case total <= 50:
		return LevelMedium
	case total <= 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// LevelColor returns the hue bucket shared by the HTML and PNG renderers.
func LevelColor(l Level) (r, g, b uint8) {
	switch l {
	case LevelLow:
		return 0x43, 0xa0, 0x47
	case LevelMedium:
		return 0xff, 0xb3, 0x00
	case LevelHigh:
		return 0xf5, 0x7c, 0x00
	default:
		return 0xe5, 0x39, 0x35
	}
}

// Quality reports whether every factor was computable for a cell.
type Quality string

const (
	QualityComplete Quality = "complete"
	QualityPartial  Quality = "partial"
)

// RiskInput is the flat per-cell record the scorer consumes. Reserve fields
// are meaningful only when HasReserveData is set; the scorer treats the pair
// as absent otherwise and never substitutes synthetic values.
type RiskInput struct {
	Hour      int `json:"hour"`
	DayOfWeek int `json:"dayOfWeek"` // 0 = Sunday
	DayOffset int `json:"dayOffset"` // 0 = today

	SystemLoad         float64 `json:"systemLoad"`
	PVGeneration       float64 `json:"pvGeneration"`
	WindGeneration     float64 `json:"windGeneration"`
	BaseloadGeneration float64 `json:"baseloadGeneration"`
	PowerExchange      float64 `json:"powerExchange"` // signed, positive = export

	AvailableReserve float64 `json:"availableReserve"`
	RequiredReserve  float64 `json:"requiredReserve"`
	HasReserveData   bool    `json:"hasReserveData"`

	PVDelta       float64 `json:"pvDelta"`
	WindDelta     float64 `json:"windDelta"`
	BaseloadDelta float64 `json:"baseloadDelta"`
	DemandDelta   float64 `json:"demandDelta"`
	PVGradient    float64 `json:"pvGradient"`
	WindGradient  float64 `json:"windGradient"`
}

// FactorScore is an optional sub-score. Valid=false means the factor's
// required input was absent for the cell; such scores serialize as JSON
// null and are excluded from the weighted sum.
type FactorScore struct {
	Score int
	Valid bool
}

// Some wraps a computed sub-score.
func Some(score int) FactorScore {
	return FactorScore{Score: score, Valid: true}
}

func (f FactorScore) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Score)
}

func (f *FactorScore) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = FactorScore{}
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FactorScore{Score: v, Valid: true}
	return nil
}

// Components holds the six per-factor sub-scores.
type Components struct {
	ReserveMargin     FactorScore `json:"reserveMargin"`
	RenewableDropRate FactorScore `json:"renewableDropRate"`
	BaseloadSurge     FactorScore `json:"baseloadSurge"`
	DemandSpike       FactorScore `json:"demandSpike"`
	CriticalHours     FactorScore `json:"criticalHours"`
	SystemImbalance   FactorScore `json:"systemImbalance"`
}

// Factor is one operator-facing contributing-factor descriptor. Impact is
// the factor's point contribution to the total; informational entries carry
// Impact 0 and sort last.
type Factor struct {
	Name   string  `json:"name"`
	Label  string  `json:"label"`
	Detail string  `json:"detail"`
	Value  float64 `json:"value"`
	Impact int     `json:"impact"`
	Info   bool    `json:"info,omitempty"`
}

// RiskScore is the scorer's full output for one cell. It is transient:
// recomputed on every refresh, never persisted.
type RiskScore struct {
	TotalScore      int        `json:"totalScore"`
	Components      Components `json:"components"`
	RiskLevel       Level      `json:"riskLevel"`
	Factors         []Factor   `json:"factors"`
	Recommendations []string   `json:"recommendations"`
	HasReserveData  bool       `json:"hasReserveData"`
	DataQuality     Quality    `json:"dataQuality"`
}

// ValidationError reports non-finite numeric fields in a RiskInput. The
// scorer refuses such input outright rather than letting NaN reach the
// total score.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "risk: non-finite input values: " + strings.Join(e.Fields, ", ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
