package risk

import (
	"fmt"
	"time"
)

// Cell opacity mapping: even a zero-score cell stays faintly visible so the
// grid reads as populated rather than missing.
const (
	cellOpacityFloor = 0.3
	cellOpacityRange = 0.7
)

var polishWeekdays = [7]string{"ndz", "pon", "wt", "śr", "czw", "pt", "sob"}

// Cell is one scored grid cell plus its rendering hints. Degraded cells
// are rendered with a marker, never skipped.
type Cell struct {
	DayOffset int        `json:"dayOffset"`
	Hour      int        `json:"hour"`
	Score     *RiskScore `json:"score"`
	Input     *RiskInput `json:"input"`
	Opacity   float64    `json:"opacity"`
	Current   bool       `json:"current"`
	Degraded  bool       `json:"degraded"`
}

// Heatmap is the fully scored 7x24 grid. Build completes every cell before
// returning, so consumers never observe a partially populated grid.
type Heatmap struct {
	GeneratedAt       time.Time                 `json:"generatedAt"`
	Anchor            time.Time                 `json:"anchor"`
	DayLabels         [GridDays]string          `json:"dayLabels"`
	Cells             [GridDays][GridHours]Cell `json:"cells"`
	CurrentDay        int                       `json:"currentDay"`
	CurrentHour       int                       `json:"currentHour"`
	ReserveMisaligned bool                      `json:"reserveMisaligned"`
}

// Grid scores whole snapshots. Builder and scorer are injected once at
// construction.
type Grid struct {
	builder *Builder
	scorer  *Scorer
}

// NewGrid wires a builder and scorer into a grid aggregator.
func NewGrid(builder *Builder, scorer *Scorer) *Grid {
	return &Grid{builder: builder, scorer: scorer}
}

// Build scores every cell of the snapshot and marks the cell matching the
// current wall-clock hour.
func (g *Grid) Build(snap *Snapshot, now time.Time) (*Heatmap, error) {
	local := now.In(g.builder.loc)
	hm := &Heatmap{
		GeneratedAt:       local,
		Anchor:            snap.Anchor,
		CurrentDay:        0,
		CurrentHour:       local.Hour(),
		ReserveMisaligned: snap.ReserveMisaligned,
	}

	for d := 0; d < GridDays; d++ {
		day := snap.Anchor.AddDate(0, 0, d)
		hm.DayLabels[d] = fmt.Sprintf("%s %02d.%02d", polishWeekdays[day.Weekday()], day.Day(), int(day.Month()))
	}

	for d := 0; d < GridDays; d++ {
		for h := 0; h < GridHours; h++ {
			in := g.builder.BuildInput(snap, d, h)
			score, err := g.scorer.Score(in)
			if err != nil {
				return nil, fmt.Errorf("score cell day %d hour %d: %w", d, h, err)
			}
			hm.Cells[d][h] = Cell{
				DayOffset: d,
				Hour:      h,
				Score:     score,
				Input:     in,
				Opacity:   cellOpacityFloor + float64(score.TotalScore)/100*cellOpacityRange,
				Current:   d == 0 && h == hm.CurrentHour,
				Degraded:  !score.HasReserveData,
			}
		}
	}
	return hm, nil
}

// CellAt returns the detail payload for one cell. Selection is a pure
// lookup with no side effects; the caller owns any highlight state.
func (h *Heatmap) CellAt(dayOffset, hour int) (*Cell, bool) {
	if dayOffset < 0 || dayOffset >= GridDays || hour < 0 || hour >= GridHours {
		return nil, false
	}
	return &h.Cells[dayOffset][hour], true
}

// MaxCell returns the highest-scoring cell, preferring the earliest on
// ties. Used by the dashboard summary and the daily brief.
func (h *Heatmap) MaxCell() *Cell {
	max := &h.Cells[0][0]
	for d := 0; d < GridDays; d++ {
		for hr := 0; hr < GridHours; hr++ {
			if h.Cells[d][hr].Score.TotalScore > max.Score.TotalScore {
				max = &h.Cells[d][hr]
			}
		}
	}
	return max
}

// CurrentCell returns the cell for the current real-world hour.
func (h *Heatmap) CurrentCell() *Cell {
	return &h.Cells[h.CurrentDay][h.CurrentHour]
}

// LevelCounts tallies cells per risk level for one grid day.
func (h *Heatmap) LevelCounts(dayOffset int) map[Level]int {
	counts := make(map[Level]int, 4)
	if dayOffset < 0 || dayOffset >= GridDays {
		return counts
	}
	for hr := 0; hr < GridHours; hr++ {
		counts[h.Cells[dayOffset][hr].Score.RiskLevel]++
	}
	return counts
}
