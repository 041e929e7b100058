package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/mpawlak/ksewatch/internal/portfolio"
	"github.com/mpawlak/ksewatch/internal/risk"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	hm, err := s.buildHeatmap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	settings, err := portfolio.Load(s.store)
	if err != nil {
		log.Printf("load portfolio settings: %v", err)
	}

	cur := hm.CurrentCell()
	data := IndexData{
		Heatmap:  hm,
		Current:  cur,
		Settings: settings,
		MaxCell:  hm.MaxCell(),
	}
	if cur != nil {
		data.Exposure = settings.ExposureFor(cur.Input, cur.Score)
	}
	if data.MaxCell != nil {
		data.MaxDayLabel = hm.DayLabels[data.MaxCell.DayOffset]
	}

	if brief, err := s.store.GetLatestBrief(); err != nil {
		log.Printf("get latest brief: %v", err)
	} else {
		data.Brief = brief
	}

	s.tmpl.ExecuteTemplate(w, "index.html", data)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	hm, err := s.buildHeatmap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := GridData{Heatmap: hm}
	for d := 0; d < len(hm.Cells); d++ {
		counts := hm.LevelCounts(d)
		data.Days = append(data.Days, GridDayRow{
			Offset:        d,
			Label:         hm.DayLabels[d],
			Cells:         hm.Cells[d],
			HighCount:     counts[risk.LevelHigh],
			CriticalCount: counts[risk.LevelCritical],
		})
	}

	s.tmpl.ExecuteTemplate(w, "grid.html", data)
}

func (s *Server) handleCurrentPartial(w http.ResponseWriter, r *http.Request) {
	hm, err := s.buildHeatmap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	settings, err := portfolio.Load(s.store)
	if err != nil {
		log.Printf("load portfolio settings: %v", err)
	}

	cur := hm.CurrentCell()
	data := IndexData{
		Heatmap:  hm,
		Current:  cur,
		Settings: settings,
	}
	if cur != nil {
		data.Exposure = settings.ExposureFor(cur.Input, cur.Score)
	}

	if err := s.tmpl.ExecuteTemplate(w, "current.html", data); err != nil {
		log.Printf("template error: %v", err)
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleSettingsSave(w, r)
		return
	}

	settings, err := portfolio.Load(s.store)
	if err != nil {
		log.Printf("load portfolio settings: %v", err)
	}

	data := SettingsData{
		Settings: settings,
		Saved:    r.URL.Query().Get("saved") == "1",
	}
	s.tmpl.ExecuteTemplate(w, "settings.html", data)
}

func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	settings, parseErr := settingsFromForm(r)
	if parseErr == "" {
		if err := portfolio.Save(s.store, settings); err != nil {
			parseErr = err.Error()
		}
	}

	if parseErr != "" {
		data := SettingsData{Settings: settings, Error: parseErr}
		s.tmpl.ExecuteTemplate(w, "settings.html", data)
		return
	}

	http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
}

func settingsFromForm(r *http.Request) (portfolio.Settings, string) {
	var s portfolio.Settings

	pv, err := strconv.ParseFloat(r.FormValue("pv_capacity_mw"), 64)
	if err != nil {
		return s, "Moc PV musi być liczbą"
	}
	wind, err := strconv.ParseFloat(r.FormValue("wind_capacity_mw"), 64)
	if err != nil {
		return s, "Moc wiatrowa musi być liczbą"
	}

	s.PVCapacityMW = pv
	s.WindCapacityMW = wind
	return s, ""
}
