package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpawlak/ksewatch/internal/imagegen"
	"github.com/mpawlak/ksewatch/internal/ingest"
	"github.com/mpawlak/ksewatch/internal/risk"
	"github.com/mpawlak/ksewatch/internal/store"
)

type Server struct {
	store      *store.Store
	port       string
	loc        *time.Location
	tmpl       *template.Template
	grid       *risk.Grid
	imageCache *imagegen.Cache
}

func NewServer(store *store.Store, port string, loc *time.Location) *Server {
	return &Server{
		store:      store,
		port:       port,
		loc:        loc,
		tmpl:       newTemplates(),
		grid:       risk.NewGrid(risk.NewBuilder(loc), risk.NewScorer()),
		imageCache: imagegen.NewCache(5 * time.Minute),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/grid", s.handleGrid)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/partials/current", s.handleCurrentPartial)
	mux.HandleFunc("/api/heatmap", s.handleAPIHeatmap)
	mux.HandleFunc("/api/cell", s.handleAPICell)
	mux.HandleFunc("/api/current", s.handleAPICurrent)
	mux.HandleFunc("/api/health", s.handleAPIHealth)
	mux.HandleFunc("/export/heatmap.csv", s.handleExportCSV)
	mux.HandleFunc("/heatmap.png", s.handleHeatmapPNG)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// buildHeatmap runs a fresh scoring pass for the current request. 168 cells
// score in well under a millisecond, so requests always see live data.
func (s *Server) buildHeatmap() (*risk.Heatmap, error) {
	return ingest.BuildHeatmap(s.store, s.grid, s.loc)
}
