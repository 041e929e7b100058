package risk

import (
	"fmt"
	"math"
	"sort"
)

// Operator-facing strings are Polish; the factor names stay in API form so
// the JSON surface is stable.

const (
	recStable        = "✅ Sytuacja stabilna – brak istotnych czynników ryzyka"
	recNoReserveData = "Brak danych o rezerwach – analiza częściowa, monitoruj plan koordynacyjny"
)

// Composite threat thresholds over the three supply-side factors.
const (
	threatElevated = 50
	threatSevere   = 70
)

// buildFactors turns the evaluated factors into display descriptors sorted
// by descending point impact, with informational entries last.
func buildFactors(evals []factorEval, in *RiskInput) []Factor {
	var factors []Factor
	for _, e := range evals {
		if !e.score.Valid || e.score.Score == 0 {
			continue
		}
		factors = append(factors, Factor{
			Name:   e.name,
			Label:  factorLabel(e.name, e.score.Score),
			Detail: factorDetail(e.name, e.value, in),
			Value:  e.value,
			Impact: int(math.Round(float64(e.score.Score) * e.weight / 100)),
		})
	}
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Impact > factors[j].Impact
	})

	if !in.HasReserveData {
		factors = append(factors, Factor{
			Name:   "reserveMargin",
			Label:  "Brak danych o rezerwach",
			Detail: "plan koordynacyjny nie obejmuje tej godziny",
			Impact: 0,
			Info:   true,
		})
	}
	return factors
}

// factorLabel picks the severity-graded Polish label for a factor.
func factorLabel(name string, score int) string {
	switch name {
	case "reserveMargin":
		switch {
		case score >= 100:
			return "Deficyt rezerwy mocy"
		case score >= 65:
			return "Krytycznie niski margines rezerwy"
		case score >= 40:
			return "Niski margines rezerwy"
		default:
			return "Obniżony margines rezerwy"
		}
	case "renewableDropRate":
		switch {
		case score >= 80:
			return "Gwałtowny spadek generacji OZE"
		case score >= 40:
			return "Znaczący spadek generacji OZE"
		default:
			return "Spadek generacji OZE"
		}
	case "baseloadSurge":
		if score >= 70 {
			return "Silny wzrost generacji JW RB"
		}
		return "Wzrost generacji JW RB"
	case "demandSpike":
		if score >= 60 {
			return "Gwałtowny wzrost zapotrzebowania"
		}
		return "Wzrost zapotrzebowania"
	case "criticalHours":
		switch {
		case score >= 100:
			return "Szczyt wieczorny w dniu roboczym"
		case score >= 60:
			return "Szczyt poranny w dniu roboczym"
		default:
			return "Godzina okołoszczytowa"
		}
	case "systemImbalance":
		if score >= 60 {
			return "Bardzo wysokie saldo wymiany"
		}
		return "Wysokie saldo wymiany"
	}
	return name
}

// factorDetail formats the raw signal value behind a factor.
func factorDetail(name string, value float64, in *RiskInput) string {
	switch name {
	case "reserveMargin":
		return fmt.Sprintf("margines %.0f MW (dostępna %.0f MW, wymagana %.0f MW)",
			value, in.AvailableReserve, in.RequiredReserve)
	case "renewableDropRate":
		return fmt.Sprintf("zmiana PV+wiatr %.0f MW/h", value)
	case "baseloadSurge":
		return fmt.Sprintf("zmiana generacji JW RB %.0f MW/h", value)
	case "demandSpike":
		return fmt.Sprintf("tempo wzrostu %.1f%%/h przy %.0f MW", value, in.SystemLoad)
	case "criticalHours":
		return fmt.Sprintf("godzina %02d:00", in.Hour)
	case "systemImbalance":
		return fmt.Sprintf("saldo wymiany %.0f MW", value)
	}
	return ""
}

// threatLevel is the composite redispatch pressure: the point contribution
// of the three supply-side factors (reserve, renewable drop, baseload) on
// the same 0-100 scale as the total.
func threatLevel(evals []factorEval) float64 {
	var t float64
	for _, e := range evals {
		switch e.name {
		case "reserveMargin", "renewableDropRate", "baseloadSurge":
			if e.score.Valid {
				t += float64(e.score.Score) * e.weight / 100
			}
		}
	}
	return t
}

// buildRecommendations emits the ordered advisory list: composite threat
// advisories first, factor-keyed ones next, the all-clear line when nothing
// triggered, and the degraded-data note always last.
func buildRecommendations(evals []factorEval, in *RiskInput) []string {
	var recs []string

	switch t := threatLevel(evals); {
	case t >= threatSevere:
		recs = append(recs, "🚨 Wysokie ryzyko wezwania do redysponowania – przygotuj plan ograniczenia generacji")
	case t >= threatElevated:
		recs = append(recs, "⚠️ Podwyższone ryzyko redysponowania – śledź komunikaty OSP")
	}

	for _, e := range evals {
		if !e.score.Valid {
			continue
		}
		if r := factorRecommendation(e.name, e.score.Score); r != "" {
			recs = append(recs, r)
		}
	}

	if len(recs) == 0 {
		recs = append(recs, recStable)
	}
	if !in.HasReserveData {
		recs = append(recs, recNoReserveData)
	}
	return recs
}

// factorRecommendation maps a factor at actionable severity to its advisory.
// Thresholds track the sub-score breakpoints, not the weighted impact.
func factorRecommendation(name string, score int) string {
	switch name {
	case "reserveMargin":
		switch {
		case score >= 85:
			return "Uruchom procedury zarządzania deficytem rezerwy mocy"
		case score >= 65:
			return "Przygotuj jednostki szczytowe do synchronizacji"
		}
	case "renewableDropRate":
		if score >= 60 {
			return "Zabezpiecz moc konwencjonalną na wypadek dalszego spadku generacji OZE"
		}
	case "baseloadSurge":
		if score >= 70 {
			return "Monitoruj ograniczenia sieciowe przy rosnącej generacji JW RB"
		}
	case "demandSpike":
		if score >= 60 {
			return "Zweryfikuj prognozę zapotrzebowania na najbliższe godziny"
		}
	case "systemImbalance":
		if score >= 60 {
			return "Możliwe ograniczenia na połączeniach transgranicznych – sprawdź plan wymiany"
		}
	}
	return ""
}
