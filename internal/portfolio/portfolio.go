package portfolio

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mpawlak/ksewatch/internal/risk"
	"github.com/mpawlak/ksewatch/internal/store"
)

// Settings store keys.
const (
	keyPVCapacity   = "pv_capacity_mw"
	keyWindCapacity = "wind_capacity_mw"
)

// Default portfolio of a mid-size producer, overridden via the settings form.
const (
	DefaultPVCapacityMW   = 150.0
	DefaultWindCapacityMW = 100.0
)

// Installed KSE capacity used to estimate the portfolio's share of
// system-wide generation. Round figures, revised rarely.
const (
	kseInstalledPVMW   = 20000.0
	kseInstalledWindMW = 9500.0
)

// Settings is the operator's installed capacity per technology.
type Settings struct {
	PVCapacityMW   float64
	WindCapacityMW float64
}

// Load reads portfolio settings, falling back to defaults where unset.
func Load(st *store.Store) (Settings, error) {
	s := Settings{PVCapacityMW: DefaultPVCapacityMW, WindCapacityMW: DefaultWindCapacityMW}

	if v, ok, err := loadMW(st, keyPVCapacity); err != nil {
		return s, err
	} else if ok {
		s.PVCapacityMW = v
	}
	if v, ok, err := loadMW(st, keyWindCapacity); err != nil {
		return s, err
	} else if ok {
		s.WindCapacityMW = v
	}
	return s, nil
}

func loadMW(st *store.Store, key string) (float64, bool, error) {
	raw, err := st.GetSetting(key)
	if err != nil {
		return 0, false, err
	}
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("setting %s: %w", key, err)
	}
	return v, true, nil
}

// Save validates and persists portfolio settings.
func Save(st *store.Store, s Settings) error {
	if s.PVCapacityMW < 0 || s.WindCapacityMW < 0 {
		return errors.New("capacity must not be negative")
	}
	if err := st.SetSetting(keyPVCapacity, formatMW(s.PVCapacityMW)); err != nil {
		return err
	}
	return st.SetSetting(keyWindCapacity, formatMW(s.WindCapacityMW))
}

func formatMW(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Exposure translates one cell's score into the portfolio's own megawatts.
type Exposure struct {
	OwnPVMW    float64 `json:"ownPvMw"`
	OwnWindMW  float64 `json:"ownWindMw"`
	OwnTotalMW float64 `json:"ownTotalMw"`
	AtRiskMW   float64 `json:"atRiskMw"`
}

// ExposureFor estimates the portfolio's generation during a cell and how
// much of it the score puts at redispatch risk. Own generation is the
// capacity share of system-wide PV and wind at that hour.
func (s Settings) ExposureFor(in *risk.RiskInput, score *risk.RiskScore) Exposure {
	e := Exposure{
		OwnPVMW:   in.PVGeneration * s.PVCapacityMW / kseInstalledPVMW,
		OwnWindMW: in.WindGeneration * s.WindCapacityMW / kseInstalledWindMW,
	}
	e.OwnTotalMW = e.OwnPVMW + e.OwnWindMW
	e.AtRiskMW = e.OwnTotalMW * float64(score.TotalScore) / 100
	return e
}
