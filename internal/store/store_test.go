package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mpawlak/ksewatch/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	store := New(db, loc)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

var testDate = time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)

func TestUpsertAndGetLoadHours(t *testing.T) {
	store := setupTestStore(t)

	for h := 0; h < 3; h++ {
		row := models.LoadHour{BusinessDate: testDate, Hour: h, LoadMW: 20000 + float64(h)*100}
		if err := store.UpsertLoadHour(row); err != nil {
			t.Fatalf("UpsertLoadHour: %v", err)
		}
	}

	hours, err := store.GetLoadHours(testDate)
	if err != nil {
		t.Fatalf("GetLoadHours: %v", err)
	}
	if len(hours) != 3 {
		t.Fatalf("len(hours) = %d, want 3", len(hours))
	}
	if hours[1].Hour != 1 {
		t.Errorf("hours[1].Hour = %d, want 1 (ordered)", hours[1].Hour)
	}
	if hours[2].LoadMW != 20200 {
		t.Errorf("hours[2].LoadMW = %v, want 20200", hours[2].LoadMW)
	}
	if got := hours[0].BusinessDate.Format("2006-01-02"); got != "2025-11-19" {
		t.Errorf("BusinessDate = %q, want 2025-11-19", got)
	}
}

func TestUpsertLoadHour_Update(t *testing.T) {
	store := setupTestStore(t)

	row := models.LoadHour{BusinessDate: testDate, Hour: 12, LoadMW: 21000}
	if err := store.UpsertLoadHour(row); err != nil {
		t.Fatalf("UpsertLoadHour: %v", err)
	}

	row.LoadMW = 21500
	if err := store.UpsertLoadHour(row); err != nil {
		t.Fatalf("UpsertLoadHour update: %v", err)
	}

	hours, err := store.GetLoadHours(testDate)
	if err != nil {
		t.Fatalf("GetLoadHours: %v", err)
	}
	if len(hours) != 1 {
		t.Fatalf("len(hours) = %d, want 1", len(hours))
	}
	if hours[0].LoadMW != 21500 {
		t.Errorf("LoadMW = %v, want 21500 (last upsert wins)", hours[0].LoadMW)
	}
}

func TestGetLoadHours_EmptyDay(t *testing.T) {
	store := setupTestStore(t)

	hours, err := store.GetLoadHours(testDate)
	if err != nil {
		t.Fatalf("GetLoadHours: %v", err)
	}
	if len(hours) != 0 {
		t.Errorf("len(hours) = %d, want 0", len(hours))
	}
}

func TestUpsertAndGetRenewableHours(t *testing.T) {
	store := setupTestStore(t)

	row := models.RenewableHour{BusinessDate: testDate, Hour: 12, PVMW: 4500, WindMW: 2200}
	if err := store.UpsertRenewableHour(row); err != nil {
		t.Fatalf("UpsertRenewableHour: %v", err)
	}

	hours, err := store.GetRenewableHours(testDate)
	if err != nil {
		t.Fatalf("GetRenewableHours: %v", err)
	}
	if len(hours) != 1 {
		t.Fatalf("len(hours) = %d, want 1", len(hours))
	}
	if hours[0].PVMW != 4500 {
		t.Errorf("PVMW = %v, want 4500", hours[0].PVMW)
	}
	if hours[0].WindMW != 2200 {
		t.Errorf("WindMW = %v, want 2200", hours[0].WindMW)
	}
}

func TestBaseloadQuarters_Ordering(t *testing.T) {
	store := setupTestStore(t)

	for _, q := range []int{72, 0, 40} {
		row := models.BaseloadQuarter{BusinessDate: testDate, Quarter: q, GenMW: float64(12000 + q)}
		if err := store.UpsertBaseloadQuarter(row); err != nil {
			t.Fatalf("UpsertBaseloadQuarter: %v", err)
		}
	}

	quarters, err := store.GetBaseloadQuarters(testDate)
	if err != nil {
		t.Fatalf("GetBaseloadQuarters: %v", err)
	}
	if len(quarters) != 3 {
		t.Fatalf("len(quarters) = %d, want 3", len(quarters))
	}
	if quarters[0].Quarter != 0 || quarters[2].Quarter != 72 {
		t.Errorf("quarters not ordered: got %d, %d, %d", quarters[0].Quarter, quarters[1].Quarter, quarters[2].Quarter)
	}
}

func TestUpsertAndGetExchangeHours(t *testing.T) {
	store := setupTestStore(t)

	row := models.ExchangeHour{BusinessDate: testDate, Hour: 18, ExchangeMW: -1500}
	if err := store.UpsertExchangeHour(row); err != nil {
		t.Fatalf("UpsertExchangeHour: %v", err)
	}

	hours, err := store.GetExchangeHours(testDate)
	if err != nil {
		t.Fatalf("GetExchangeHours: %v", err)
	}
	if len(hours) != 1 {
		t.Fatalf("len(hours) = %d, want 1", len(hours))
	}
	if hours[0].ExchangeMW != -1500 {
		t.Errorf("ExchangeMW = %v, want -1500 (import preserved as negative)", hours[0].ExchangeMW)
	}
}

func TestReplaceReservePlan(t *testing.T) {
	store := setupTestStore(t)

	plan := models.ReservePlan{
		PlanDate:  testDate,
		FetchedAt: time.Now().UTC().Truncate(time.Second),
		Slots: []models.ReserveSlot{
			{Slot: 0, AvailableMW: 3600, RequiredMW: 1200},
			{Slot: 1, AvailableMW: 3500, RequiredMW: 1200},
			{Slot: 2, AvailableMW: 3400, RequiredMW: 1200},
		},
	}
	if err := store.ReplaceReservePlan(plan); err != nil {
		t.Fatalf("ReplaceReservePlan: %v", err)
	}

	plan.Slots = plan.Slots[:2]
	plan.Slots[0].AvailableMW = 2000
	if err := store.ReplaceReservePlan(plan); err != nil {
		t.Fatalf("ReplaceReservePlan second: %v", err)
	}

	got, err := store.GetLatestReservePlan()
	if err != nil {
		t.Fatalf("GetLatestReservePlan: %v", err)
	}
	if got == nil {
		t.Fatal("GetLatestReservePlan returned nil")
	}
	if len(got.Slots) != 2 {
		t.Fatalf("len(Slots) = %d, want 2 (stale slots replaced)", len(got.Slots))
	}
	if got.Slots[0].AvailableMW != 2000 {
		t.Errorf("Slots[0].AvailableMW = %v, want 2000", got.Slots[0].AvailableMW)
	}
	if got.PlanDate.Format("2006-01-02") != "2025-11-19" {
		t.Errorf("PlanDate = %v, want 2025-11-19", got.PlanDate)
	}
}

func TestGetLatestReservePlan_PicksNewest(t *testing.T) {
	store := setupTestStore(t)

	older := models.ReservePlan{
		PlanDate:  testDate.AddDate(0, 0, -1),
		FetchedAt: time.Now().UTC(),
		Slots:     []models.ReserveSlot{{Slot: 0, AvailableMW: 1000, RequiredMW: 900}},
	}
	newer := models.ReservePlan{
		PlanDate:  testDate,
		FetchedAt: time.Now().UTC(),
		Slots:     []models.ReserveSlot{{Slot: 0, AvailableMW: 2000, RequiredMW: 900}},
	}
	if err := store.ReplaceReservePlan(older); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceReservePlan(newer); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetLatestReservePlan()
	if err != nil {
		t.Fatalf("GetLatestReservePlan: %v", err)
	}
	if got.Slots[0].AvailableMW != 2000 {
		t.Errorf("AvailableMW = %v, want 2000 (newest plan)", got.Slots[0].AvailableMW)
	}
}

func TestGetLatestReservePlan_NoData(t *testing.T) {
	store := setupTestStore(t)

	plan, err := store.GetLatestReservePlan()
	if err != nil {
		t.Fatalf("GetLatestReservePlan: %v", err)
	}
	if plan != nil {
		t.Error("Expected nil when no plan is stored")
	}
}

func TestIngestRun_StartAndComplete(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.StartIngestRun("kse-load")
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}
	if run.ID == 0 {
		t.Error("run.ID should be set")
	}
	if run.Source != "kse-load" {
		t.Errorf("run.Source = %q, want 'kse-load'", run.Source)
	}

	run.Status = "ok"
	run.RowCount = 24
	if err := store.CompleteIngestRun(run); err != nil {
		t.Fatalf("CompleteIngestRun: %v", err)
	}

	health, err := store.GetIngestHealth()
	if err != nil {
		t.Fatalf("GetIngestHealth: %v", err)
	}
	if len(health) != 1 {
		t.Fatalf("len(health) = %d, want 1", len(health))
	}
	if health[0].LastStatus != "ok" {
		t.Errorf("LastStatus = %q, want 'ok'", health[0].LastStatus)
	}
	if health[0].RowCount != 24 {
		t.Errorf("RowCount = %d, want 24", health[0].RowCount)
	}
}

func TestIngestRun_GetRecentErrors(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.StartIngestRun("pk5l-wtz")
	if err != nil {
		t.Fatal(err)
	}
	run.Status = "error"
	run.Error = sql.NullString{String: "status 500", Valid: true}
	run.QualityFlags = sql.NullString{String: `["empty_response"]`, Valid: true}
	if err := store.CompleteIngestRun(run); err != nil {
		t.Fatal(err)
	}

	ok, err := store.StartIngestRun("kse-load")
	if err != nil {
		t.Fatal(err)
	}
	ok.Status = "ok"
	if err := store.CompleteIngestRun(ok); err != nil {
		t.Fatal(err)
	}

	errors, err := store.GetRecentIngestErrors(10)
	if err != nil {
		t.Fatalf("GetRecentIngestErrors: %v", err)
	}
	if len(errors) != 1 {
		t.Fatalf("len(errors) = %d, want 1", len(errors))
	}
	if errors[0].Error.String != "status 500" {
		t.Errorf("Error = %q, want 'status 500'", errors[0].Error.String)
	}
	if errors[0].QualityFlags.String != `["empty_response"]` {
		t.Errorf("QualityFlags = %q, want flags preserved", errors[0].QualityFlags.String)
	}
}

func TestIngestHealth_LatestRunWins(t *testing.T) {
	store := setupTestStore(t)

	first, err := store.StartIngestRun("kse-wym")
	if err != nil {
		t.Fatal(err)
	}
	first.Status = "error"
	first.Error = sql.NullString{String: "timeout", Valid: true}
	if err := store.CompleteIngestRun(first); err != nil {
		t.Fatal(err)
	}

	// started_at keys the ranking, so push the second run forward
	second, err := store.StartIngestRun("kse-wym")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec(`UPDATE ingest_runs SET started_at = ? WHERE id = ?`,
		time.Now().UTC().Add(time.Minute), second.ID); err != nil {
		t.Fatal(err)
	}
	second.Status = "ok"
	second.RowCount = 24
	if err := store.CompleteIngestRun(second); err != nil {
		t.Fatal(err)
	}

	health, err := store.GetIngestHealth()
	if err != nil {
		t.Fatalf("GetIngestHealth: %v", err)
	}
	if len(health) != 1 {
		t.Fatalf("len(health) = %d, want 1", len(health))
	}
	if health[0].LastStatus != "ok" {
		t.Errorf("LastStatus = %q, want 'ok' (latest run)", health[0].LastStatus)
	}
}

func TestSettings(t *testing.T) {
	store := setupTestStore(t)

	value, err := store.GetSetting("pv_capacity_mw")
	if err != nil {
		t.Fatalf("GetSetting missing: %v", err)
	}
	if value != "" {
		t.Errorf("GetSetting missing = %q, want empty", value)
	}

	if err := store.SetSetting("pv_capacity_mw", "120"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := store.SetSetting("pv_capacity_mw", "150"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}

	value, err = store.GetSetting("pv_capacity_mw")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if value != "150" {
		t.Errorf("GetSetting = %q, want '150'", value)
	}
}

func TestBriefs(t *testing.T) {
	store := setupTestStore(t)

	yesterday := models.Brief{BriefDate: testDate.AddDate(0, 0, -1), Content: "spokojny dzień", Model: "gpt-4o-mini"}
	today := models.Brief{BriefDate: testDate, Content: "wieczorne ryzyko", Model: "gpt-4o-mini"}

	if err := store.UpsertBrief(yesterday); err != nil {
		t.Fatalf("UpsertBrief: %v", err)
	}
	if err := store.UpsertBrief(today); err != nil {
		t.Fatalf("UpsertBrief: %v", err)
	}

	got, err := store.GetBrief(testDate)
	if err != nil {
		t.Fatalf("GetBrief: %v", err)
	}
	if got == nil {
		t.Fatal("GetBrief returned nil")
	}
	if got.Content != "wieczorne ryzyko" {
		t.Errorf("Content = %q, want 'wieczorne ryzyko'", got.Content)
	}

	latest, err := store.GetLatestBrief()
	if err != nil {
		t.Fatalf("GetLatestBrief: %v", err)
	}
	if latest == nil {
		t.Fatal("GetLatestBrief returned nil")
	}
	if latest.BriefDate.Format("2006-01-02") != "2025-11-19" {
		t.Errorf("latest BriefDate = %v, want 2025-11-19", latest.BriefDate)
	}

	missing, err := store.GetBrief(testDate.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("GetBrief future: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for date without a brief")
	}
}

func TestBriefs_UpsertReplaces(t *testing.T) {
	store := setupTestStore(t)

	brief := models.Brief{BriefDate: testDate, Content: "pierwsza wersja", Model: "gpt-4o-mini"}
	if err := store.UpsertBrief(brief); err != nil {
		t.Fatal(err)
	}
	brief.Content = "druga wersja"
	if err := store.UpsertBrief(brief); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetBrief(testDate)
	if err != nil {
		t.Fatalf("GetBrief: %v", err)
	}
	if got.Content != "druga wersja" {
		t.Errorf("Content = %q, want 'druga wersja'", got.Content)
	}
}

func TestCountsForDay(t *testing.T) {
	store := setupTestStore(t)

	for h := 0; h < 24; h++ {
		if err := store.UpsertLoadHour(models.LoadHour{BusinessDate: testDate, Hour: h, LoadMW: 20000}); err != nil {
			t.Fatal(err)
		}
	}
	for h := 0; h < 12; h++ {
		if err := store.UpsertRenewableHour(models.RenewableHour{BusinessDate: testDate, Hour: h, PVMW: 100, WindMW: 200}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.UpsertBaseloadQuarter(models.BaseloadQuarter{BusinessDate: testDate, Quarter: 0, GenMW: 12000}); err != nil {
		t.Fatal(err)
	}

	c, err := store.CountsForDay(testDate)
	if err != nil {
		t.Fatalf("CountsForDay: %v", err)
	}
	if c.LoadHours != 24 {
		t.Errorf("LoadHours = %d, want 24", c.LoadHours)
	}
	if c.RenewableHours != 12 {
		t.Errorf("RenewableHours = %d, want 12", c.RenewableHours)
	}
	if c.BaseloadQuarters != 1 {
		t.Errorf("BaseloadQuarters = %d, want 1", c.BaseloadQuarters)
	}
	if c.ExchangeHours != 0 {
		t.Errorf("ExchangeHours = %d, want 0", c.ExchangeHours)
	}
}

func TestPruneOldRows(t *testing.T) {
	store := setupTestStore(t)

	old := time.Now().AddDate(0, 0, -30)
	recent := time.Now()

	if err := store.UpsertLoadHour(models.LoadHour{BusinessDate: old, Hour: 0, LoadMW: 18000}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertLoadHour(models.LoadHour{BusinessDate: recent, Hour: 0, LoadMW: 19000}); err != nil {
		t.Fatal(err)
	}

	if err := store.PruneOldRows(14); err != nil {
		t.Fatalf("PruneOldRows: %v", err)
	}

	oldRows, err := store.GetLoadHours(old)
	if err != nil {
		t.Fatal(err)
	}
	if len(oldRows) != 0 {
		t.Errorf("len(oldRows) = %d, want 0 (pruned)", len(oldRows))
	}

	recentRows, err := store.GetLoadHours(recent)
	if err != nil {
		t.Fatal(err)
	}
	if len(recentRows) != 1 {
		t.Errorf("len(recentRows) = %d, want 1 (kept)", len(recentRows))
	}
}

func TestMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version < 4 {
		t.Errorf("MigrationVersion = %d, want >= 4", version)
	}
}
