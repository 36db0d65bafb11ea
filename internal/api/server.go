// Package api exposes the HTTP surface: notice listing, search, manual
// pipeline triggers, and health.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"housing-radar/internal/common/logger"
	"housing-radar/internal/common/metrics"
	"housing-radar/internal/models"
	"housing-radar/internal/search"
)

type NoticeLister interface {
	ListNotices(ctx context.Context, region string, skip, limit int) ([]models.HousingNotice, error)
}

type Searcher interface {
	Query(ctx context.Context, query string, limit int) ([]search.Hit, error)
}

// PipelineTrigger starts one collection cycle; the API fires it in the
// background.
type PipelineTrigger interface {
	RunCycle(ctx context.Context)
}

// HealthCheck is one named dependency probe.
type HealthCheck func(ctx context.Context) error

// Server is the HTTP handler set.
type Server struct {
	store    NoticeLister
	searcher Searcher
	trigger  PipelineTrigger
	checks   map[string]HealthCheck
	logger   logger.Logger
	appName  string
}

func NewServer(store NoticeLister, searcher Searcher, trigger PipelineTrigger, checks map[string]HealthCheck, appName string, log logger.Logger) *Server {
	return &Server{
		store:    store,
		searcher: searcher,
		trigger:  trigger,
		checks:   checks,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
		appName:  appName,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.instrument("/", s.handleRoot))
	mux.HandleFunc("/notices", s.instrument("/notices", s.handleListNotices))
	mux.HandleFunc("/notices/search", s.instrument("/notices/search", s.handleSearch))
	mux.HandleFunc("/force-scrape", s.instrument("/force-scrape", s.handleForceScrape))
	mux.HandleFunc("/healthz", s.instrument("/healthz", s.handleHealth))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.HTTPRequests.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": s.appName,
		"status":  "running",
	})
}

func (s *Server) handleListNotices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	region := r.URL.Query().Get("region")
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	notices, err := s.store.ListNotices(r.Context(), region, skip, limit)
	if err != nil {
		s.logger.WithError(err).Error("listing notices failed", nil)
		writeError(w, http.StatusInternalServerError, "failed to list notices")
		return
	}
	if notices == nil {
		notices = []models.HousingNotice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	hits, err := s.searcher.Query(r.Context(), query, queryInt(r, "limit", 20))
	if err != nil {
		s.logger.WithError(err).Error("search failed", map[string]interface{}{"query": query})
		writeError(w, http.StatusBadGateway, "search backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// handleForceScrape kicks off a pipeline cycle and returns immediately. The
// scheduler coalesces concurrent cycles, so hammering this endpoint is
// harmless.
func (s *Server) handleForceScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.trigger.RunCycle(ctx)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scrape started"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			results[name] = "ok"
		}
	}
	writeJSON(w, status, results)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
