package risk

import (
	"math"
	"time"
)

// Grid dimensions: day-offset 0 (today) through 6, hours 0-23.
const (
	GridDays        = 7
	GridHours       = 24
	quartersPerHour = 4
)

// Confidence-decay constants for future-day cells. Deliberate heuristics
// inherited from operational tuning, not statistical forecasts; do not
// retune without evidence they are wrong.
const (
	renewableDecayRate   = 0.1   // PV/wind scaled by exp(-dayOffset*rate)
	loadGrowthRate       = 0.005 // load scaled by 1+dayOffset*rate
	deltaUncertaintyRate = 0.2   // deltas and gradients scaled by 1+dayOffset*rate
)

// DaySeries holds one day's feed values at the feed's native resolution.
// A nil entry means the feed had no value for that slot.
type DaySeries struct {
	Load     [GridHours]*float64
	PV       [GridHours]*float64
	Wind     [GridHours]*float64
	Exchange [GridHours]*float64
	Baseload [GridHours * quartersPerHour]*float64 // 15-minute slots, index hour*4+quarter
}

// ReserveSeries is the coordination-plan feed: flat parallel arrays aligned
// to PlanStart at hour 0 and indexed dayOffset*24+hour. The arrays may
// cover fewer slots than the grid and individual entries may be nil.
type ReserveSeries struct {
	PlanStart time.Time
	Available []*float64
	Required  []*float64
}

func (r *ReserveSeries) at(idx int) (avail, req *float64) {
	if idx < 0 || idx >= len(r.Available) || idx >= len(r.Required) {
		return nil, nil
	}
	return r.Available[idx], r.Required[idx]
}

// Snapshot is an immutable bundle of feed data for one grid pass. Build it
// once per refresh and score against it atomically; a newer refresh
// replaces the whole value rather than mutating it.
type Snapshot struct {
	Anchor  time.Time // today at hour 0, the grid origin
	Days    [GridDays]DaySeries
	Reserve *ReserveSeries

	// ReserveMisaligned is set when a reserve series was supplied whose
	// PlanStart is not the anchor day. Positional indexing would silently
	// shift every slot, so the series is discarded instead.
	ReserveMisaligned bool
}

// NewSnapshot validates reserve-plan alignment against the anchor day and
// returns the assembled snapshot.
func NewSnapshot(anchor time.Time, days [GridDays]DaySeries, reserve *ReserveSeries) *Snapshot {
	s := &Snapshot{Anchor: anchor, Days: days, Reserve: reserve}
	if reserve != nil && !sameDate(reserve.PlanStart, anchor) {
		s.Reserve = nil
		s.ReserveMisaligned = true
	}
	return s
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Builder assembles one RiskInput per grid cell from a Snapshot.
type Builder struct {
	loc *time.Location
}

// NewBuilder returns a builder anchored to the given location's clock.
func NewBuilder(loc *time.Location) *Builder {
	return &Builder{loc: loc}
}

// Location returns the builder's display location.
func (b *Builder) Location() *time.Location {
	return b.loc
}

// daySlices is the per-feed resolved view of one grid day. Future days
// without their own feed rows fall back to today's profile per feed, which
// the decay model then discounts.
type daySlices struct {
	load     []*float64
	pv       []*float64
	wind     []*float64
	exchange []*float64
	baseload []*float64
}

func (b *Builder) seriesFor(snap *Snapshot, dayOffset int) daySlices {
	own := &snap.Days[dayOffset]
	base := &snap.Days[0]
	pick := func(ownArr, baseArr []*float64) []*float64 {
		if dayOffset == 0 || anyValue(ownArr) {
			return ownArr
		}
		return baseArr
	}
	return daySlices{
		load:     pick(own.Load[:], base.Load[:]),
		pv:       pick(own.PV[:], base.PV[:]),
		wind:     pick(own.Wind[:], base.Wind[:]),
		exchange: pick(own.Exchange[:], base.Exchange[:]),
		baseload: pick(own.Baseload[:], base.Baseload[:]),
	}
}

func anyValue(vals []*float64) bool {
	for _, v := range vals {
		if v != nil {
			return true
		}
	}
	return false
}

// val reads a slot, treating a missing value as zero (an unpopulated feed
// is a degraded state the scorer handles, not an error).
func val(arr []*float64, i int) float64 {
	if i >= 0 && i < len(arr) && arr[i] != nil {
		return *arr[i]
	}
	return 0
}

// prevVal reads a preceding slot for delta computation. A missing
// preceding value falls back to the current one so the delta reads zero
// instead of registering a spurious full-magnitude drop.
func prevVal(arr []*float64, i int, current float64) float64 {
	if i >= 0 && i < len(arr) && arr[i] != nil {
		return *arr[i]
	}
	return current
}

// BuildInput assembles the RiskInput for the cell at (dayOffset, hour).
// Deltas and gradients come from same-day preceding hours only; hour 0 of
// every day starts with zero deltas.
func (b *Builder) BuildInput(snap *Snapshot, dayOffset, hour int) *RiskInput {
	day := b.seriesFor(snap, dayOffset)

	load := val(day.load, hour)
	pv := val(day.pv, hour)
	wind := val(day.wind, hour)
	exchange := val(day.exchange, hour)
	baseload := val(day.baseload, hour*quartersPerHour)

	in := &RiskInput{
		Hour:      hour,
		DayOffset: dayOffset,
		DayOfWeek: int(snap.Anchor.AddDate(0, 0, dayOffset).Weekday()),
	}

	if hour > 0 {
		pvPrev := prevVal(day.pv, hour-1, pv)
		windPrev := prevVal(day.wind, hour-1, wind)
		basePrev := prevVal(day.baseload, (hour-1)*quartersPerHour, baseload)
		loadPrev := prevVal(day.load, hour-1, load)

		in.PVDelta = pv - pvPrev
		in.WindDelta = wind - windPrev
		in.BaseloadDelta = baseload - basePrev
		in.DemandDelta = load - loadPrev

		if hour > 1 {
			pvPrev2 := prevVal(day.pv, hour-2, pvPrev)
			windPrev2 := prevVal(day.wind, hour-2, windPrev)
			in.PVGradient = pv - 2*pvPrev + pvPrev2
			in.WindGradient = wind - 2*windPrev + windPrev2
		}
	}

	if dayOffset > 0 {
		decay := math.Exp(-float64(dayOffset) * renewableDecayRate)
		growth := 1 + float64(dayOffset)*loadGrowthRate
		uncertainty := 1 + float64(dayOffset)*deltaUncertaintyRate

		pv *= decay
		wind *= decay
		load *= growth
		in.PVDelta *= uncertainty
		in.WindDelta *= uncertainty
		in.BaseloadDelta *= uncertainty
		in.DemandDelta *= uncertainty
		in.PVGradient *= uncertainty
		in.WindGradient *= uncertainty
	}

	in.SystemLoad = load
	in.PVGeneration = pv
	in.WindGeneration = wind
	in.BaseloadGeneration = baseload
	in.PowerExchange = exchange

	if snap.Reserve != nil {
		if avail, req := snap.Reserve.at(dayOffset*GridHours + hour); avail != nil && req != nil {
			in.AvailableReserve = *avail
			in.RequiredReserve = *req
			in.HasReserveData = true
		}
	}

	return in
}
