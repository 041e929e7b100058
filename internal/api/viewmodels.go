package api

import (
	"time"

	"github.com/mpawlak/ksewatch/internal/models"
	"github.com/mpawlak/ksewatch/internal/portfolio"
	"github.com/mpawlak/ksewatch/internal/risk"
)

// IndexData contains all the data needed to render the dashboard view.
type IndexData struct {
	Heatmap     *risk.Heatmap
	Current     *risk.Cell
	Exposure    portfolio.Exposure
	Settings    portfolio.Settings
	MaxCell     *risk.Cell
	MaxDayLabel string
	Brief       *models.Brief
}

// GridData contains the full weekly grid for the heatmap page.
type GridData struct {
	Heatmap *risk.Heatmap
	Days    []GridDayRow
}

// GridDayRow pairs one grid row with its per-day level tallies.
type GridDayRow struct {
	Offset        int
	Label         string
	Cells         [risk.GridHours]risk.Cell
	HighCount     int
	CriticalCount int
}

// SettingsData renders the portfolio capacity form.
type SettingsData struct {
	Settings portfolio.Settings
	Saved    bool
	Error    string
}

// CurrentResponse is the JSON payload for the current-hour endpoint.
type CurrentResponse struct {
	GeneratedAt       time.Time          `json:"generatedAt"`
	DayLabel          string             `json:"dayLabel"`
	Cell              *risk.Cell         `json:"cell"`
	Exposure          portfolio.Exposure `json:"exposure"`
	ReserveMisaligned bool               `json:"reserveMisaligned"`
}

// CellResponse is the JSON payload for a single grid cell lookup.
type CellResponse struct {
	DayLabel string             `json:"dayLabel"`
	Date     string             `json:"date"`
	Cell     *risk.Cell         `json:"cell"`
	Exposure portfolio.Exposure `json:"exposure"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status        string         `json:"status"`
	SchemaVersion int            `json:"schema_version"`
	Feeds         []FeedHealth   `json:"feeds"`
	Coverage      *TodayCoverage `json:"coverage,omitempty"`
	Errors        []string       `json:"errors,omitempty"`
}

// FeedHealth represents the ingest health of a single upstream feed.
type FeedHealth struct {
	Source     string    `json:"source"`
	LastRunAt  time.Time `json:"last_run_at"`
	LastStatus string    `json:"last_status"`
	LastError  string    `json:"last_error,omitempty"`
	AgeMinutes int       `json:"age_minutes"`
	Stale      bool      `json:"stale"`
	RowCount   int       `json:"row_count"`
}

// TodayCoverage reports how much of today's data is present.
type TodayCoverage struct {
	Date             string `json:"date"`
	LoadHours        int    `json:"load_hours"`
	RenewableHours   int    `json:"renewable_hours"`
	BaseloadQuarters int    `json:"baseload_quarters"`
	ExchangeHours    int    `json:"exchange_hours"`
}
