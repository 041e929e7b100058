package api

import (
	"encoding/csv"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/mpawlak/ksewatch/internal/imagegen"
	"github.com/mpawlak/ksewatch/internal/portfolio"
	"github.com/mpawlak/ksewatch/internal/risk"
)

func (s *Server) handleAPIHeatmap(w http.ResponseWriter, r *http.Request) {
	hm, err := s.buildHeatmap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hm)
}

func (s *Server) handleAPICell(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(r.URL.Query().Get("day"))
	if err != nil || day < 0 || day >= risk.GridDays {
		http.Error(w, "day must be an integer between 0 and 6", http.StatusBadRequest)
		return
	}
	hour, err := strconv.Atoi(r.URL.Query().Get("hour"))
	if err != nil || hour < 0 || hour >= risk.GridHours {
		http.Error(w, "hour must be an integer between 0 and 23", http.StatusBadRequest)
		return
	}

	hm, err := s.buildHeatmap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cell, ok := hm.CellAt(day, hour)
	if !ok {
		http.Error(w, "cell out of range", http.StatusBadRequest)
		return
	}

	settings, err := portfolio.Load(s.store)
	if err != nil {
		log.Printf("load portfolio settings: %v", err)
	}

	resp := CellResponse{
		DayLabel: hm.DayLabels[day],
		Date:     hm.Anchor.AddDate(0, 0, day).Format("2006-01-02"),
		Cell:     cell,
		Exposure: settings.ExposureFor(cell.Input, cell.Score),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleAPICurrent(w http.ResponseWriter, r *http.Request) {
	hm, err := s.buildHeatmap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	settings, err := portfolio.Load(s.store)
	if err != nil {
		log.Printf("load portfolio settings: %v", err)
	}

	resp := CurrentResponse{
		GeneratedAt:       hm.GeneratedAt,
		ReserveMisaligned: hm.ReserveMisaligned,
	}
	if cur := hm.CurrentCell(); cur != nil {
		resp.DayLabel = hm.DayLabels[cur.DayOffset]
		resp.Cell = cur
		resp.Exposure = settings.ExposureFor(cur.Input, cur.Score)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.store.GetIngestHealth()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := HealthStatus{
		Status: "ok",
		Feeds:  make([]FeedHealth, 0, len(feeds)),
	}

	if version, err := s.store.MigrationVersion(); err != nil {
		health.Errors = append(health.Errors, "schema: "+err.Error())
	} else {
		health.SchemaVersion = version
	}

	staleThreshold := 2 * time.Hour
	now := time.Now()

	for _, f := range feeds {
		fh := FeedHealth{
			Source:     f.Source,
			LastRunAt:  f.LastRunAt,
			LastStatus: f.LastStatus,
			LastError:  f.LastError.String,
			AgeMinutes: int(now.Sub(f.LastRunAt).Minutes()),
			Stale:      now.Sub(f.LastRunAt) > staleThreshold,
		}
		if fh.Stale || f.LastStatus != "ok" {
			health.Status = "degraded"
		}
		fh.RowCount = f.RowCount
		health.Feeds = append(health.Feeds, fh)
	}

	today := time.Now().In(s.loc)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)
	if cov, err := s.store.CountsForDay(today); err != nil {
		health.Errors = append(health.Errors, "coverage: "+err.Error())
	} else {
		health.Coverage = &TodayCoverage{
			Date:             today.Format("2006-01-02"),
			LoadHours:        cov.LoadHours,
			RenewableHours:   cov.RenewableHours,
			BaseloadQuarters: cov.BaseloadQuarters,
			ExchangeHours:    cov.ExchangeHours,
		}
	}

	if len(health.Errors) > 0 {
		health.Status = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("health: write response: %v", err)
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	hm, err := s.buildHeatmap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="heatmap.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"date", "day_offset", "hour", "total_score", "risk_level",
		"reserve_margin", "renewable_drop_rate", "baseload_surge",
		"demand_spike", "critical_hours", "system_imbalance",
		"data_quality", "degraded",
	})

	for d := 0; d < len(hm.Cells); d++ {
		date := hm.Anchor.AddDate(0, 0, d).Format("2006-01-02")
		for h := 0; h < len(hm.Cells[d]); h++ {
			cell := hm.Cells[d][h]
			sc := cell.Score
			cw.Write([]string{
				date,
				strconv.Itoa(d),
				strconv.Itoa(h),
				strconv.Itoa(sc.TotalScore),
				string(sc.RiskLevel),
				factorColumn(sc.Components.ReserveMargin),
				factorColumn(sc.Components.RenewableDropRate),
				factorColumn(sc.Components.BaseloadSurge),
				factorColumn(sc.Components.DemandSpike),
				factorColumn(sc.Components.CriticalHours),
				factorColumn(sc.Components.SystemImbalance),
				string(sc.DataQuality),
				strconv.FormatBool(cell.Degraded),
			})
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("csv export: %v", err)
	}
}

func (s *Server) handleHeatmapPNG(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.imageCache.Get(); ok {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
		return
	}

	hm, err := s.buildHeatmap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := imagegen.RenderHeatmap(hm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.imageCache.Set(data)

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func factorColumn(f risk.FactorScore) string {
	if !f.Valid {
		return ""
	}
	return strconv.Itoa(f.Score)
}
