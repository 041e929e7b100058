package ingest

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/mpawlak/ksewatch/internal/brief"
	"github.com/mpawlak/ksewatch/internal/metrics"
	"github.com/mpawlak/ksewatch/internal/models"
	"github.com/mpawlak/ksewatch/internal/risk"
	"github.com/mpawlak/ksewatch/internal/store"
)

// Source is the feed client the scheduler ingests from. PSEClient talks to
// the live reporting API; MockSource synthesizes plausible days offline.
type Source interface {
	FetchLoad(date time.Time) ([]models.LoadHour, error)
	FetchRenewables(date time.Time) ([]models.RenewableHour, error)
	FetchBaseload(date time.Time) ([]models.BaseloadQuarter, error)
	FetchExchange(date time.Time) ([]models.ExchangeHour, error)
	FetchReservePlan(from time.Time) (*models.ReservePlan, error)
}

type Scheduler struct {
	store        *store.Store
	source       Source
	grid         *risk.Grid
	loc          *time.Location
	dayInterval  time.Duration
	weekInterval time.Duration
	briefHour    int
	keepDays     int
	briefGen     *brief.Generator
}

func NewScheduler(st *store.Store, source Source, loc *time.Location, briefHour int) *Scheduler {
	return &Scheduler{
		store:        st,
		source:       source,
		grid:         risk.NewGrid(risk.NewBuilder(loc), risk.NewScorer()),
		loc:          loc,
		dayInterval:  15 * time.Minute,
		weekInterval: 1 * time.Hour,
		briefHour:    briefHour,
		keepDays:     90,
		briefGen:     nil, // Set via SetBriefGenerator
	}
}

// SetBriefGenerator configures the scheduler to write a morning brief once a day.
func (s *Scheduler) SetBriefGenerator(gen *brief.Generator) {
	s.briefGen = gen
}

func (s *Scheduler) Run(ctx context.Context) {
	s.refreshWeek()
	s.runDailyJobsIfNeeded()

	dayTicker := time.NewTicker(s.dayInterval)
	weekTicker := time.NewTicker(s.weekInterval)
	dailyTicker := time.NewTicker(1 * time.Hour)
	defer dayTicker.Stop()
	defer weekTicker.Stop()
	defer dailyTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-dayTicker.C:
			s.refreshDay(s.today())
		case <-weekTicker.C:
			s.refreshWeek()
		case <-dailyTicker.C:
			s.runDailyJobsIfNeeded()
		}
	}
}

// IngestOnce runs a single full refresh pass and returns.
func (s *Scheduler) IngestOnce() error {
	s.refreshWeek()
	return nil
}

// Backfill ingests the n days before today, oldest first, so deltas and
// day-over-day comparisons have history to work with on a fresh database.
func (s *Scheduler) Backfill(n int) error {
	log.Printf("scheduler: backfilling %d days", n)
	today := s.today()
	for d := n; d >= 1; d-- {
		s.refreshDay(today.AddDate(0, 0, -d))
	}
	return nil
}

// today returns midnight of the current day in the display location.
func (s *Scheduler) today() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// refreshWeek pulls every grid day plus the coordination plan. Future days
// the API has no rows for yet simply stay empty.
func (s *Scheduler) refreshWeek() {
	log.Println("scheduler: refreshing feed data")
	today := s.today()
	for d := 0; d < risk.GridDays; d++ {
		s.refreshDay(today.AddDate(0, 0, d))
	}
	s.refreshPlan()
}

func (s *Scheduler) refreshDay(date time.Time) {
	loads := s.ingestLoad(date)
	ren := s.ingestRenewables(date)
	base := s.ingestBaseload(date)
	exch := s.ingestExchange(date)
	if loads+ren+base+exch > 0 {
		log.Printf("scheduler: %s: %d load, %d renewable, %d baseload, %d exchange rows",
			date.Format("2006-01-02"), loads, ren, base, exch)
	}
}

func (s *Scheduler) ingestLoad(date time.Time) int {
	run, _ := s.store.StartIngestRun(EntityLoad)
	rows, err := s.source.FetchLoad(date)
	if err != nil {
		log.Printf("scheduler: fetch load %s: %v", date.Format("2006-01-02"), err)
		s.completeRun(run, 0, nil, err)
		return 0
	}

	flags := ValidateLoadHours(rows)
	stored := 0
	for _, row := range rows {
		if err := s.store.UpsertLoadHour(row); err != nil {
			log.Printf("scheduler: upsert load %s h%02d: %v", date.Format("2006-01-02"), row.Hour, err)
			continue
		}
		stored++
	}
	metrics.RowsIngested.WithLabelValues(EntityLoad).Add(float64(stored))
	s.completeRun(run, stored, flags, nil)
	return stored
}

func (s *Scheduler) ingestRenewables(date time.Time) int {
	run, _ := s.store.StartIngestRun(EntityRenewables)
	rows, err := s.source.FetchRenewables(date)
	if err != nil {
		log.Printf("scheduler: fetch renewables %s: %v", date.Format("2006-01-02"), err)
		s.completeRun(run, 0, nil, err)
		return 0
	}

	flags := ValidateRenewableHours(rows)
	stored := 0
	for _, row := range rows {
		if err := s.store.UpsertRenewableHour(row); err != nil {
			log.Printf("scheduler: upsert renewables %s h%02d: %v", date.Format("2006-01-02"), row.Hour, err)
			continue
		}
		stored++
	}
	metrics.RowsIngested.WithLabelValues(EntityRenewables).Add(float64(stored))
	s.completeRun(run, stored, flags, nil)
	return stored
}

func (s *Scheduler) ingestBaseload(date time.Time) int {
	run, _ := s.store.StartIngestRun(EntityBaseload)
	rows, err := s.source.FetchBaseload(date)
	if err != nil {
		log.Printf("scheduler: fetch baseload %s: %v", date.Format("2006-01-02"), err)
		s.completeRun(run, 0, nil, err)
		return 0
	}

	flags := ValidateBaseloadQuarters(rows)
	stored := 0
	for _, row := range rows {
		if err := s.store.UpsertBaseloadQuarter(row); err != nil {
			log.Printf("scheduler: upsert baseload %s q%02d: %v", date.Format("2006-01-02"), row.Quarter, err)
			continue
		}
		stored++
	}
	metrics.RowsIngested.WithLabelValues(EntityBaseload).Add(float64(stored))
	s.completeRun(run, stored, flags, nil)
	return stored
}

func (s *Scheduler) ingestExchange(date time.Time) int {
	run, _ := s.store.StartIngestRun(EntityExchange)
	rows, err := s.source.FetchExchange(date)
	if err != nil {
		log.Printf("scheduler: fetch exchange %s: %v", date.Format("2006-01-02"), err)
		s.completeRun(run, 0, nil, err)
		return 0
	}

	flags := ValidateExchangeHours(rows)
	stored := 0
	for _, row := range rows {
		if err := s.store.UpsertExchangeHour(row); err != nil {
			log.Printf("scheduler: upsert exchange %s h%02d: %v", date.Format("2006-01-02"), row.Hour, err)
			continue
		}
		stored++
	}
	metrics.RowsIngested.WithLabelValues(EntityExchange).Add(float64(stored))
	s.completeRun(run, stored, flags, nil)
	return stored
}

func (s *Scheduler) refreshPlan() {
	run, _ := s.store.StartIngestRun(EntityReserve)
	plan, err := s.source.FetchReservePlan(s.today())
	if err != nil {
		log.Printf("scheduler: fetch reserve plan: %v", err)
		s.completeRun(run, 0, nil, err)
		return
	}

	flags := ValidateReservePlan(plan)
	if err := s.store.ReplaceReservePlan(*plan); err != nil {
		log.Printf("scheduler: store reserve plan: %v", err)
		s.completeRun(run, 0, flags, err)
		return
	}
	metrics.RowsIngested.WithLabelValues(EntityReserve).Add(float64(len(plan.Slots)))
	s.completeRun(run, len(plan.Slots), flags, nil)
}

// completeRun finalizes an ingest run record. A nil run means StartIngestRun
// itself failed; the ingest still happened, only the bookkeeping is lost.
func (s *Scheduler) completeRun(run *models.IngestRun, rows int, flags []string, err error) {
	if run == nil {
		return
	}
	run.RowCount = rows
	if err != nil {
		run.Status = "error"
		run.Error = sql.NullString{String: err.Error(), Valid: true}
	} else {
		run.Status = "ok"
	}
	if js := QualityFlagsToJSON(flags); js != "" {
		run.QualityFlags = sql.NullString{String: js, Valid: true}
		log.Printf("scheduler: %s quality flags: %s", run.Source, js)
	}
	if err := s.store.CompleteIngestRun(run); err != nil {
		log.Printf("scheduler: complete ingest run %s: %v", run.Source, err)
	}
}

func (s *Scheduler) runDailyJobsIfNeeded() {
	now := time.Now()
	localNow := now.In(s.loc)

	if localNow.Hour() != s.briefHour {
		return
	}
	s.generateBrief()
	s.pruneOldRows()
}

// generateBrief runs one scoring pass and asks the language model to write
// the morning summary. Skipped when today's brief already exists, so a
// restart inside the brief hour does not burn a second API call.
func (s *Scheduler) generateBrief() {
	if s.briefGen == nil {
		return
	}
	today := s.today()

	existing, err := s.store.GetBrief(today)
	if err != nil {
		log.Printf("scheduler: check existing brief: %v", err)
		return
	}
	if existing != nil {
		return
	}

	hm, err := BuildHeatmap(s.store, s.grid, s.loc)
	if err != nil {
		log.Printf("scheduler: build heatmap for brief: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Println("scheduler: generating morning brief")
	content, err := s.briefGen.Generate(ctx, hm)
	if err != nil {
		metrics.BriefGenerationsTotal.WithLabelValues("error").Inc()
		log.Printf("scheduler: generate brief: %v", err)
		return
	}
	metrics.BriefGenerationsTotal.WithLabelValues("ok").Inc()

	b := models.Brief{
		BriefDate: today,
		Content:   content,
		Model:     s.briefGen.Model(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertBrief(b); err != nil {
		log.Printf("scheduler: store brief: %v", err)
		return
	}
	log.Printf("scheduler: stored brief for %s", today.Format("2006-01-02"))
}

func (s *Scheduler) pruneOldRows() {
	if err := s.store.PruneOldRows(s.keepDays); err != nil {
		log.Printf("scheduler: prune old rows: %v", err)
	}
}
