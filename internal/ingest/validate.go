package ingest

import (
	"encoding/json"
	"math"

	"github.com/mpawlak/ksewatch/internal/models"
)

const (
	FlagLoadOutOfRange     = "load_out_of_range"
	FlagNegativeGeneration = "negative_generation"
	FlagGenerationUnlikely = "generation_unlikely"
	FlagExchangeOutOfRange = "exchange_out_of_range"
	FlagReserveInvalid     = "reserve_invalid"
)

// Plausibility bounds for KSE-wide values, generous enough to survive
// record days.
const (
	loadMinMW     = 8000.0
	loadMaxMW     = 32000.0
	pvMaxMW       = 25000.0
	windMaxMW     = 12000.0
	baseloadMaxMW = 28000.0
	exchangeMaxMW = 8000.0
)

func ValidateLoadHours(hours []models.LoadHour) []string {
	var flags []string
	for _, h := range hours {
		if h.LoadMW < loadMinMW || h.LoadMW > loadMaxMW {
			flags = append(flags, FlagLoadOutOfRange)
			break
		}
	}
	return flags
}

func ValidateRenewableHours(hours []models.RenewableHour) []string {
	var flags []string
	negative, unlikely := false, false
	for _, h := range hours {
		if h.PVMW < 0 || h.WindMW < 0 {
			negative = true
		}
		if h.PVMW > pvMaxMW || h.WindMW > windMaxMW {
			unlikely = true
		}
	}
	if negative {
		flags = append(flags, FlagNegativeGeneration)
	}
	if unlikely {
		flags = append(flags, FlagGenerationUnlikely)
	}
	return flags
}

func ValidateBaseloadQuarters(quarters []models.BaseloadQuarter) []string {
	var flags []string
	negative, unlikely := false, false
	for _, q := range quarters {
		if q.GenMW < 0 {
			negative = true
		}
		if q.GenMW > baseloadMaxMW {
			unlikely = true
		}
	}
	if negative {
		flags = append(flags, FlagNegativeGeneration)
	}
	if unlikely {
		flags = append(flags, FlagGenerationUnlikely)
	}
	return flags
}

func ValidateExchangeHours(hours []models.ExchangeHour) []string {
	var flags []string
	for _, h := range hours {
		if math.Abs(h.ExchangeMW) > exchangeMaxMW {
			flags = append(flags, FlagExchangeOutOfRange)
			break
		}
	}
	return flags
}

func ValidateReservePlan(plan *models.ReservePlan) []string {
	var flags []string
	for _, slot := range plan.Slots {
		if slot.AvailableMW < 0 || slot.RequiredMW < 0 {
			flags = append(flags, FlagReserveInvalid)
			break
		}
	}
	return flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
