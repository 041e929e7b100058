package ingest

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/mpawlak/ksewatch/internal/models"
)

var testDate = time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)

func loadHours(values ...float64) []models.LoadHour {
	rows := make([]models.LoadHour, 0, len(values))
	for h, v := range values {
		rows = append(rows, models.LoadHour{BusinessDate: testDate, Hour: h, LoadMW: v})
	}
	return rows
}

func TestValidateLoadHours(t *testing.T) {
	tests := []struct {
		name      string
		hours     []models.LoadHour
		wantFlags []string
	}{
		{
			name:      "typical values - no flags",
			hours:     loadHours(16000, 19500, 24000),
			wantFlags: nil,
		},
		{
			name:      "empty - no flags",
			hours:     nil,
			wantFlags: nil,
		},
		{
			name:      "too low",
			hours:     loadHours(19500, 4200),
			wantFlags: []string{FlagLoadOutOfRange},
		},
		{
			name:      "too high",
			hours:     loadHours(19500, 40000),
			wantFlags: []string{FlagLoadOutOfRange},
		},
		{
			name:      "boundaries are valid",
			hours:     loadHours(8000, 32000),
			wantFlags: nil,
		},
		{
			name:      "flagged once for multiple bad rows",
			hours:     loadHours(100, 200, 300),
			wantFlags: []string{FlagLoadOutOfRange},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFlags(t, ValidateLoadHours(tt.hours), tt.wantFlags)
		})
	}
}

func TestValidateRenewableHours(t *testing.T) {
	row := func(pv, wind float64) models.RenewableHour {
		return models.RenewableHour{BusinessDate: testDate, Hour: 12, PVMW: pv, WindMW: wind}
	}

	tests := []struct {
		name      string
		hours     []models.RenewableHour
		wantFlags []string
	}{
		{
			name:      "typical values - no flags",
			hours:     []models.RenewableHour{row(4500, 2200), row(0, 6800)},
			wantFlags: nil,
		},
		{
			name:      "negative pv",
			hours:     []models.RenewableHour{row(-10, 2200)},
			wantFlags: []string{FlagNegativeGeneration},
		},
		{
			name:      "negative wind",
			hours:     []models.RenewableHour{row(4500, -1)},
			wantFlags: []string{FlagNegativeGeneration},
		},
		{
			name:      "pv over installed capacity",
			hours:     []models.RenewableHour{row(26000, 2200)},
			wantFlags: []string{FlagGenerationUnlikely},
		},
		{
			name:      "wind over installed capacity",
			hours:     []models.RenewableHour{row(4500, 12500)},
			wantFlags: []string{FlagGenerationUnlikely},
		},
		{
			name:      "negative and unlikely together",
			hours:     []models.RenewableHour{row(-10, 2200), row(26000, 100)},
			wantFlags: []string{FlagNegativeGeneration, FlagGenerationUnlikely},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFlags(t, ValidateRenewableHours(tt.hours), tt.wantFlags)
		})
	}
}

func TestValidateBaseloadQuarters(t *testing.T) {
	row := func(gen float64) models.BaseloadQuarter {
		return models.BaseloadQuarter{BusinessDate: testDate, Quarter: 40, GenMW: gen}
	}

	tests := []struct {
		name      string
		quarters  []models.BaseloadQuarter
		wantFlags []string
	}{
		{
			name:      "typical values - no flags",
			quarters:  []models.BaseloadQuarter{row(11000), row(14500)},
			wantFlags: nil,
		},
		{
			name:      "negative generation",
			quarters:  []models.BaseloadQuarter{row(-50)},
			wantFlags: []string{FlagNegativeGeneration},
		},
		{
			name:      "implausibly high",
			quarters:  []models.BaseloadQuarter{row(29000)},
			wantFlags: []string{FlagGenerationUnlikely},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFlags(t, ValidateBaseloadQuarters(tt.quarters), tt.wantFlags)
		})
	}
}

func TestValidateExchangeHours(t *testing.T) {
	row := func(x float64) models.ExchangeHour {
		return models.ExchangeHour{BusinessDate: testDate, Hour: 12, ExchangeMW: x}
	}

	tests := []struct {
		name      string
		hours     []models.ExchangeHour
		wantFlags []string
	}{
		{
			name:      "export and import in range",
			hours:     []models.ExchangeHour{row(1500), row(-2300)},
			wantFlags: nil,
		},
		{
			name:      "boundary is valid",
			hours:     []models.ExchangeHour{row(-8000), row(8000)},
			wantFlags: nil,
		},
		{
			name:      "export out of range",
			hours:     []models.ExchangeHour{row(8001)},
			wantFlags: []string{FlagExchangeOutOfRange},
		},
		{
			name:      "import out of range",
			hours:     []models.ExchangeHour{row(-9500)},
			wantFlags: []string{FlagExchangeOutOfRange},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFlags(t, ValidateExchangeHours(tt.hours), tt.wantFlags)
		})
	}
}

func TestValidateReservePlan(t *testing.T) {
	plan := func(slots ...models.ReserveSlot) *models.ReservePlan {
		return &models.ReservePlan{PlanDate: testDate, Slots: slots}
	}

	tests := []struct {
		name      string
		plan      *models.ReservePlan
		wantFlags []string
	}{
		{
			name:      "typical plan - no flags",
			plan:      plan(models.ReserveSlot{Slot: 0, AvailableMW: 2800, RequiredMW: 1100}),
			wantFlags: nil,
		},
		{
			name:      "negative available",
			plan:      plan(models.ReserveSlot{Slot: 0, AvailableMW: -5, RequiredMW: 1100}),
			wantFlags: []string{FlagReserveInvalid},
		},
		{
			name:      "negative required",
			plan:      plan(models.ReserveSlot{Slot: 0, AvailableMW: 2800, RequiredMW: -1}),
			wantFlags: []string{FlagReserveInvalid},
		},
		{
			name:      "empty plan - no flags",
			plan:      plan(),
			wantFlags: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFlags(t, ValidateReservePlan(tt.plan), tt.wantFlags)
		})
	}
}

func assertFlags(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	want = append([]string(nil), want...)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Errorf("flags = %v, want %v", got, want)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("flags = %v, want %v", got, want)
			return
		}
	}
}

func TestQualityFlagsToJSON(t *testing.T) {
	tests := []struct {
		name      string
		flags     []string
		wantEmpty bool
		wantFlags []string
	}{
		{
			name:      "empty flags",
			flags:     []string{},
			wantEmpty: true,
		},
		{
			name:      "nil flags",
			flags:     nil,
			wantEmpty: true,
		},
		{
			name:      "single flag",
			flags:     []string{FlagLoadOutOfRange},
			wantFlags: []string{FlagLoadOutOfRange},
		},
		{
			name:      "multiple flags",
			flags:     []string{FlagLoadOutOfRange, FlagReserveInvalid},
			wantFlags: []string{FlagLoadOutOfRange, FlagReserveInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QualityFlagsToJSON(tt.flags)
			if tt.wantEmpty {
				if got != "" {
					t.Errorf("QualityFlagsToJSON() = %q, want empty", got)
				}
				return
			}
			var parsed []string
			if err := json.Unmarshal([]byte(got), &parsed); err != nil {
				t.Fatalf("failed to unmarshal result: %v", err)
			}
			assertFlags(t, parsed, tt.wantFlags)
		})
	}
}
