package ingest

import (
	"math"
	"math/rand"
	"time"

	"github.com/mpawlak/ksewatch/internal/models"
)

const (
	// Share of system load the coordination plan publishes as available
	// reserve on an ordinary day.
	availableReserveRatio = 0.18

	mockRequiredReserveMW = 1200.0
	mockOtherGenMW        = 2600.0
	mockPlanDays          = 5
)

// MockSource synthesizes plausible KSE feeds so the dashboard runs without
// network access. Output is deterministic per business date: about a third
// of days get an evening stress pattern (renewable collapse, import swing,
// thin reserve) so the heatmap has something to show.
type MockSource struct{}

func NewMockSource() *MockSource {
	return &MockSource{}
}

type mockDay struct {
	load     [24]float64
	pv       [24]float64
	wind     [24]float64
	exchange [24]float64
	baseload [96]float64
	stressed bool
}

func bump(h, center, width, amp float64) float64 {
	d := h - center
	return amp * math.Exp(-d*d/width)
}

// day generates every feed for one date from a single seeded stream, so
// series stay mutually consistent across separate Fetch calls.
func (m *MockSource) day(date time.Time) *mockDay {
	r := rand.New(rand.NewSource(date.Unix()))
	d := &mockDay{stressed: r.Float64() < 0.35}

	weekend := date.Weekday() == time.Saturday || date.Weekday() == time.Sunday
	base := 18500.0
	if weekend {
		base *= 0.87
	}

	cloud := 0.3 + r.Float64()*0.7
	windLevel := 600 + r.Float64()*4800
	exchangeBias := (r.Float64() - 0.5) * 1600

	for h := 0; h < 24; h++ {
		fh := float64(h)

		d.load[h] = base +
			bump(fh, 8.5, 18, 3000) +
			bump(fh, 18.5, 10, 4200) -
			bump(fh, 3.5, 14, 2200) +
			r.Float64()*300

		if h >= 6 && h <= 19 {
			d.pv[h] = bump(fh, 12.2, 7, 5200*cloud) + r.Float64()*40
		}

		if d.stressed && h >= 15 {
			windLevel *= 0.88
		}
		windLevel += (r.Float64() - 0.5) * 500
		d.wind[h] = math.Max(50, math.Min(7000, windLevel))

		d.exchange[h] = exchangeBias + (r.Float64()-0.5)*600
		if d.stressed && h >= 17 && h <= 21 {
			d.exchange[h] -= 700
		}
	}

	// Balancing-market units cover whatever the rest leaves open, which
	// is exactly why stressed evenings show up as a baseload surge.
	for q := 0; q < 96; q++ {
		h := q / 4
		resid := d.load[h] - d.pv[h] - d.wind[h] - mockOtherGenMW + d.exchange[h]
		d.baseload[q] = math.Max(7500, resid) + (r.Float64()-0.5)*300
	}

	return d
}

func (m *MockSource) FetchLoad(date time.Time) ([]models.LoadHour, error) {
	d := m.day(date)
	results := make([]models.LoadHour, 0, 24)
	for h := 0; h < 24; h++ {
		results = append(results, models.LoadHour{BusinessDate: date, Hour: h, LoadMW: d.load[h]})
	}
	return results, nil
}

func (m *MockSource) FetchRenewables(date time.Time) ([]models.RenewableHour, error) {
	d := m.day(date)
	results := make([]models.RenewableHour, 0, 24)
	for h := 0; h < 24; h++ {
		results = append(results, models.RenewableHour{BusinessDate: date, Hour: h, PVMW: d.pv[h], WindMW: d.wind[h]})
	}
	return results, nil
}

func (m *MockSource) FetchBaseload(date time.Time) ([]models.BaseloadQuarter, error) {
	d := m.day(date)
	results := make([]models.BaseloadQuarter, 0, 96)
	for q := 0; q < 96; q++ {
		results = append(results, models.BaseloadQuarter{BusinessDate: date, Quarter: q, GenMW: d.baseload[q]})
	}
	return results, nil
}

func (m *MockSource) FetchExchange(date time.Time) ([]models.ExchangeHour, error) {
	d := m.day(date)
	results := make([]models.ExchangeHour, 0, 24)
	for h := 0; h < 24; h++ {
		results = append(results, models.ExchangeHour{BusinessDate: date, Hour: h, ExchangeMW: d.exchange[h]})
	}
	return results, nil
}

func (m *MockSource) FetchReservePlan(from time.Time) (*models.ReservePlan, error) {
	plan := &models.ReservePlan{PlanDate: from, FetchedAt: time.Now().UTC()}
	for dayOffset := 0; dayOffset < mockPlanDays; dayOffset++ {
		d := m.day(from.AddDate(0, 0, dayOffset))
		for h := 0; h < 24; h++ {
			avail := d.load[h] * availableReserveRatio
			if d.stressed && h >= 17 && h <= 20 {
				avail *= 0.2
			}
			plan.Slots = append(plan.Slots, models.ReserveSlot{
				Slot:        dayOffset*24 + h,
				AvailableMW: avail,
				RequiredMW:  mockRequiredReserveMW,
			})
		}
	}
	return plan, nil
}
