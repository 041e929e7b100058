package ingest

import (
	"fmt"
	"log"
	"time"

	"github.com/mpawlak/ksewatch/internal/metrics"
	"github.com/mpawlak/ksewatch/internal/models"
	"github.com/mpawlak/ksewatch/internal/risk"
	"github.com/mpawlak/ksewatch/internal/store"
)

// SnapshotFromStore assembles the scoring snapshot for the seven grid days
// starting at anchor. Feed rows that never arrived stay nil in the series;
// the builder and scorer treat gaps as degraded data, not errors.
func SnapshotFromStore(st *store.Store, anchor time.Time) (*risk.Snapshot, error) {
	var days [risk.GridDays]risk.DaySeries

	for d := 0; d < risk.GridDays; d++ {
		date := anchor.AddDate(0, 0, d)

		loads, err := st.GetLoadHours(date)
		if err != nil {
			return nil, fmt.Errorf("load hours for %s: %w", date.Format("2006-01-02"), err)
		}
		for _, row := range loads {
			if row.Hour >= 0 && row.Hour < risk.GridHours {
				v := row.LoadMW
				days[d].Load[row.Hour] = &v
			}
		}

		renewables, err := st.GetRenewableHours(date)
		if err != nil {
			return nil, fmt.Errorf("renewable hours for %s: %w", date.Format("2006-01-02"), err)
		}
		for _, row := range renewables {
			if row.Hour >= 0 && row.Hour < risk.GridHours {
				pv, wind := row.PVMW, row.WindMW
				days[d].PV[row.Hour] = &pv
				days[d].Wind[row.Hour] = &wind
			}
		}

		quarters, err := st.GetBaseloadQuarters(date)
		if err != nil {
			return nil, fmt.Errorf("baseload quarters for %s: %w", date.Format("2006-01-02"), err)
		}
		for _, row := range quarters {
			if row.Quarter >= 0 && row.Quarter < len(days[d].Baseload) {
				v := row.GenMW
				days[d].Baseload[row.Quarter] = &v
			}
		}

		exchanges, err := st.GetExchangeHours(date)
		if err != nil {
			return nil, fmt.Errorf("exchange hours for %s: %w", date.Format("2006-01-02"), err)
		}
		for _, row := range exchanges {
			if row.Hour >= 0 && row.Hour < risk.GridHours {
				v := row.ExchangeMW
				days[d].Exchange[row.Hour] = &v
			}
		}
	}

	plan, err := st.GetLatestReservePlan()
	if err != nil {
		return nil, fmt.Errorf("latest reserve plan: %w", err)
	}

	snap := risk.NewSnapshot(anchor, days, reserveSeriesFromPlan(plan))
	if snap.ReserveMisaligned {
		metrics.ReserveMisalignedTotal.Inc()
		log.Printf("snapshot: reserve plan starts %s, grid anchored %s; plan discarded",
			plan.PlanDate.Format("2006-01-02"), anchor.Format("2006-01-02"))
	}
	return snap, nil
}

// BuildHeatmap runs one full scoring pass against current store contents,
// anchored to today in the display location.
func BuildHeatmap(st *store.Store, grid *risk.Grid, loc *time.Location) (*risk.Heatmap, error) {
	now := time.Now().In(loc)
	anchor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	snap, err := SnapshotFromStore(st, anchor)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	hm, err := grid.Build(snap, now)
	if err != nil {
		return nil, err
	}
	metrics.ScoringPassesTotal.Inc()
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	return hm, nil
}

// reserveSeriesFromPlan flattens plan slots into the positional arrays the
// scorer indexes by dayOffset*24+hour. Slots the plan skipped stay nil.
func reserveSeriesFromPlan(plan *models.ReservePlan) *risk.ReserveSeries {
	if plan == nil {
		return nil
	}
	maxSlot := -1
	for _, s := range plan.Slots {
		if s.Slot > maxSlot {
			maxSlot = s.Slot
		}
	}
	if maxSlot < 0 {
		return nil
	}
	series := &risk.ReserveSeries{
		PlanStart: plan.PlanDate,
		Available: make([]*float64, maxSlot+1),
		Required:  make([]*float64, maxSlot+1),
	}
	for _, s := range plan.Slots {
		if s.Slot < 0 {
			continue
		}
		avail, req := s.AvailableMW, s.RequiredMW
		series.Available[s.Slot] = &avail
		series.Required[s.Slot] = &req
	}
	return series
}
