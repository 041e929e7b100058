package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/mpawlak/ksewatch/internal/api"
	"github.com/mpawlak/ksewatch/internal/brief"
	"github.com/mpawlak/ksewatch/internal/ingest"
	"github.com/mpawlak/ksewatch/internal/store"
)

var cli struct {
	DB        string `help:"Path to the SQLite database." default:"data/ksewatch.db" env:"KSEWATCH_DB"`
	Port      string `help:"HTTP server port." default:"8080" env:"KSEWATCH_PORT"`
	Location  string `help:"IANA timezone the grid is anchored in." default:"Europe/Warsaw" env:"KSEWATCH_LOCATION"`
	BriefHour int    `help:"Local hour at which the morning brief is generated." default:"6" env:"KSEWATCH_BRIEF_HOUR"`
	Mock      bool   `help:"Serve deterministic synthetic feed data instead of calling the PSE API."`
	Once      bool   `help:"Ingest once and exit (for testing)."`
	Backfill  int    `help:"Backfill N extra days of feed history before starting." default:"0"`
	NoPoll    bool   `help:"Disable the ingest scheduler (server only, for local dev)."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("ksewatch"),
		kong.Description("Redispatch risk dashboard for a PV and wind portfolio in the Polish power system."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	// Load timezone once at startup
	loc, err := time.LoadLocation(cli.Location)
	if err != nil {
		log.Printf("Warning: could not load %s timezone, using UTC: %v", cli.Location, err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	var source ingest.Source
	if cli.Mock {
		log.Println("using mock feed source")
		source = ingest.NewMockSource()
	} else {
		source = ingest.NewPSEClient(ingest.DefaultBaseURL)
	}

	scheduler := ingest.NewScheduler(st, source, loc, cli.BriefHour)
	server := api.NewServer(st, cli.Port, loc)

	if gen, err := brief.NewGenerator(); err != nil {
		log.Printf("brief generation disabled: %v", err)
	} else {
		scheduler.SetBriefGenerator(gen)
	}

	if cli.Backfill > 0 {
		log.Printf("backfilling %d days of feed history", cli.Backfill)
		if err := scheduler.Backfill(cli.Backfill); err != nil {
			log.Fatalf("backfill: %v", err)
		}
	}

	if cli.Once {
		log.Println("running single ingestion")
		if err := scheduler.IngestOnce(); err != nil {
			log.Fatalf("ingest: %v", err)
		}
		log.Println("done")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cli.NoPoll {
		go scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
