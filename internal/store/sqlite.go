package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mpawlak/ksewatch/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

// dateStr normalizes a business date to the stored key format. All feed
// tables key on the local calendar date, not a timestamp.
func dateStr(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return t, nil
}

func (s *Store) UpsertLoadHour(h models.LoadHour) error {
	_, err := s.db.Exec(`
		INSERT INTO load_hours (business_date, hour, load_mw, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(business_date, hour) DO UPDATE SET
			load_mw = excluded.load_mw,
			fetched_at = excluded.fetched_at
	`, dateStr(h.BusinessDate), h.Hour, h.LoadMW, time.Now().UTC())
	return err
}

func (s *Store) GetLoadHours(date time.Time) ([]models.LoadHour, error) {
	rows, err := s.db.Query(`
		SELECT business_date, hour, load_mw
		FROM load_hours
		WHERE business_date = ?
		ORDER BY hour ASC
	`, dateStr(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []models.LoadHour
	for rows.Next() {
		var h models.LoadHour
		var ds string
		if err := rows.Scan(&ds, &h.Hour, &h.LoadMW); err != nil {
			return nil, err
		}
		if h.BusinessDate, err = parseDate(ds); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

func (s *Store) UpsertRenewableHour(h models.RenewableHour) error {
	_, err := s.db.Exec(`
		INSERT INTO renewable_hours (business_date, hour, pv_mw, wind_mw, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(business_date, hour) DO UPDATE SET
			pv_mw = excluded.pv_mw,
			wind_mw = excluded.wind_mw,
			fetched_at = excluded.fetched_at
	`, dateStr(h.BusinessDate), h.Hour, h.PVMW, h.WindMW, time.Now().UTC())
	return err
}

func (s *Store) GetRenewableHours(date time.Time) ([]models.RenewableHour, error) {
	rows, err := s.db.Query(`
		SELECT business_date, hour, pv_mw, wind_mw
		FROM renewable_hours
		WHERE business_date = ?
		ORDER BY hour ASC
	`, dateStr(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []models.RenewableHour
	for rows.Next() {
		var h models.RenewableHour
		var ds string
		if err := rows.Scan(&ds, &h.Hour, &h.PVMW, &h.WindMW); err != nil {
			return nil, err
		}
		if h.BusinessDate, err = parseDate(ds); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

func (s *Store) UpsertBaseloadQuarter(q models.BaseloadQuarter) error {
	_, err := s.db.Exec(`
		INSERT INTO baseload_quarters (business_date, quarter, gen_mw, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(business_date, quarter) DO UPDATE SET
			gen_mw = excluded.gen_mw,
			fetched_at = excluded.fetched_at
	`, dateStr(q.BusinessDate), q.Quarter, q.GenMW, time.Now().UTC())
	return err
}

func (s *Store) GetBaseloadQuarters(date time.Time) ([]models.BaseloadQuarter, error) {
	rows, err := s.db.Query(`
		SELECT business_date, quarter, gen_mw
		FROM baseload_quarters
		WHERE business_date = ?
		ORDER BY quarter ASC
	`, dateStr(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quarters []models.BaseloadQuarter
	for rows.Next() {
		var q models.BaseloadQuarter
		var ds string
		if err := rows.Scan(&ds, &q.Quarter, &q.GenMW); err != nil {
			return nil, err
		}
		if q.BusinessDate, err = parseDate(ds); err != nil {
			return nil, err
		}
		quarters = append(quarters, q)
	}
	return quarters, rows.Err()
}

func (s *Store) UpsertExchangeHour(h models.ExchangeHour) error {
	_, err := s.db.Exec(`
		INSERT INTO exchange_hours (business_date, hour, exchange_mw, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(business_date, hour) DO UPDATE SET
			exchange_mw = excluded.exchange_mw,
			fetched_at = excluded.fetched_at
	`, dateStr(h.BusinessDate), h.Hour, h.ExchangeMW, time.Now().UTC())
	return err
}

func (s *Store) GetExchangeHours(date time.Time) ([]models.ExchangeHour, error) {
	rows, err := s.db.Query(`
		SELECT business_date, hour, exchange_mw
		FROM exchange_hours
		WHERE business_date = ?
		ORDER BY hour ASC
	`, dateStr(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []models.ExchangeHour
	for rows.Next() {
		var h models.ExchangeHour
		var ds string
		if err := rows.Scan(&ds, &h.Hour, &h.ExchangeMW); err != nil {
			return nil, err
		}
		if h.BusinessDate, err = parseDate(ds); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// ReplaceReservePlan stores a coordination plan atomically: slots for the
// plan date are wiped and re-inserted so stale hours never survive a
// shorter re-publication.
func (s *Store) ReplaceReservePlan(p models.ReservePlan) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx for reserve plan: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO reserve_plans (plan_date, fetched_at)
		VALUES (?, ?)
		ON CONFLICT(plan_date) DO UPDATE SET fetched_at = excluded.fetched_at
	`, dateStr(p.PlanDate), p.FetchedAt); err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert reserve plan: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM reserve_slots WHERE plan_date = ?`, dateStr(p.PlanDate)); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear reserve slots: %w", err)
	}

	for _, slot := range p.Slots {
		if _, err := tx.Exec(`
			INSERT INTO reserve_slots (plan_date, slot, available_mw, required_mw)
			VALUES (?, ?, ?, ?)
		`, dateStr(p.PlanDate), slot.Slot, slot.AvailableMW, slot.RequiredMW); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert reserve slot %d: %w", slot.Slot, err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetLatestReservePlan() (*models.ReservePlan, error) {
	row := s.db.QueryRow(`
		SELECT plan_date, fetched_at
		FROM reserve_plans
		ORDER BY plan_date DESC
		LIMIT 1
	`)

	var p models.ReservePlan
	var ds string
	err := row.Scan(&ds, &p.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.PlanDate, err = parseDate(ds); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT slot, available_mw, required_mw
		FROM reserve_slots
		WHERE plan_date = ?
		ORDER BY slot ASC
	`, ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var slot models.ReserveSlot
		if err := rows.Scan(&slot.Slot, &slot.AvailableMW, &slot.RequiredMW); err != nil {
			return nil, err
		}
		p.Slots = append(p.Slots, slot)
	}
	return &p, rows.Err()
}

func (s *Store) StartIngestRun(source string) (*models.IngestRun, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO ingest_runs (source, started_at, finished_at, status)
		VALUES (?, ?, ?, 'running')
	`, source, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.IngestRun{ID: id, Source: source, StartedAt: now, Status: "running"}, nil
}

func (s *Store) CompleteIngestRun(run *models.IngestRun) error {
	run.FinishedAt = time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE ingest_runs
		SET finished_at = ?, status = ?, error = ?, row_count = ?, quality_flags = ?
		WHERE id = ?
	`, run.FinishedAt, run.Status, run.Error, run.RowCount, run.QualityFlags, run.ID)
	return err
}

func (s *Store) GetIngestHealth() ([]models.IngestHealth, error) {
	rows, err := s.db.Query(`
		WITH ranked AS (
			SELECT source, started_at, status, error, row_count,
			       ROW_NUMBER() OVER (PARTITION BY source ORDER BY started_at DESC) as rn
			FROM ingest_runs
		)
		SELECT source, started_at, status, error, row_count
		FROM ranked
		WHERE rn = 1
		ORDER BY source
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var health []models.IngestHealth
	for rows.Next() {
		var h models.IngestHealth
		if err := rows.Scan(&h.Source, &h.LastRunAt, &h.LastStatus, &h.LastError, &h.RowCount); err != nil {
			return nil, err
		}
		health = append(health, h)
	}
	return health, rows.Err()
}

func (s *Store) GetRecentIngestErrors(limit int) ([]models.IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, source, started_at, finished_at, status, error, row_count, quality_flags
		FROM ingest_runs
		WHERE status = 'error'
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		var r models.IngestRun
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Error, &r.RowCount, &r.QualityFlags); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	return err
}

func (s *Store) UpsertBrief(b models.Brief) error {
	_, err := s.db.Exec(`
		INSERT INTO briefs (brief_date, content, model, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(brief_date) DO UPDATE SET
			content = excluded.content,
			model = excluded.model,
			created_at = excluded.created_at
	`, dateStr(b.BriefDate), b.Content, b.Model, time.Now().UTC())
	return err
}

func (s *Store) GetBrief(date time.Time) (*models.Brief, error) {
	row := s.db.QueryRow(`
		SELECT brief_date, content, model, created_at
		FROM briefs
		WHERE brief_date = ?
	`, dateStr(date))

	var b models.Brief
	var ds string
	err := row.Scan(&ds, &b.Content, &b.Model, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if b.BriefDate, err = parseDate(ds); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetLatestBrief() (*models.Brief, error) {
	row := s.db.QueryRow(`
		SELECT brief_date, content, model, created_at
		FROM briefs
		ORDER BY brief_date DESC
		LIMIT 1
	`)

	var b models.Brief
	var ds string
	err := row.Scan(&ds, &b.Content, &b.Model, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if b.BriefDate, err = parseDate(ds); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) CountsForDay(date time.Time) (models.DayCoverage, error) {
	var c models.DayCoverage
	ds := dateStr(date)
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM load_hours WHERE business_date = ?),
			(SELECT COUNT(*) FROM renewable_hours WHERE business_date = ?),
			(SELECT COUNT(*) FROM baseload_quarters WHERE business_date = ?),
			(SELECT COUNT(*) FROM exchange_hours WHERE business_date = ?)
	`, ds, ds, ds, ds).Scan(&c.LoadHours, &c.RenewableHours, &c.BaseloadQuarters, &c.ExchangeHours)
	return c, err
}

// PruneOldRows drops cached feed rows older than keepDays. The store is a
// rolling cache, not an archive; ISO date strings compare lexicographically
// so plain < works on the keys.
func (s *Store) PruneOldRows(keepDays int) error {
	cutoff := time.Now().In(s.loc).AddDate(0, 0, -keepDays).Format("2006-01-02")
	for _, q := range []string{
		`DELETE FROM load_hours WHERE business_date < ?`,
		`DELETE FROM renewable_hours WHERE business_date < ?`,
		`DELETE FROM baseload_quarters WHERE business_date < ?`,
		`DELETE FROM exchange_hours WHERE business_date < ?`,
		`DELETE FROM reserve_slots WHERE plan_date < ?`,
		`DELETE FROM reserve_plans WHERE plan_date < ?`,
		`DELETE FROM briefs WHERE brief_date < ?`,
	} {
		if _, err := s.db.Exec(q, cutoff); err != nil {
			return fmt.Errorf("prune: %w", err)
		}
	}
	_, err := s.db.Exec(`DELETE FROM ingest_runs WHERE started_at < ?`, time.Now().UTC().AddDate(0, 0, -keepDays))
	return err
}
