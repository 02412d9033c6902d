package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/defectscope/defectscope/engine/analyze"
	"github.com/defectscope/defectscope/engine/cache"
	"github.com/defectscope/defectscope/engine/domain"
	"github.com/defectscope/defectscope/engine/nhtsa"
	"github.com/defectscope/defectscope/pkg/metrics"
)

type server struct {
	analyzer *analyze.Analyzer
	client   *nhtsa.Client
	store    *cache.Disk
	app      *metrics.App
	logger   *slog.Logger
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyze.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	report, err := s.analyzer.AnalyzeVehicle(r.Context(), req)
	s.app.AnalysisDuration.Since(start)
	if err != nil {
		s.app.AnalysisErrors.Inc()
		status, msg := statusFor(err)
		s.logger.Error("analyze failed", "err", err, "status", status)
		writeError(w, status, msg)
		return
	}
	s.app.AnalysisRuns.Inc()
	writeJSON(w, http.StatusOK, report)
}

// SearchRequest is the JSON body for POST /api/search. The search runs
// against a fresh analysis of the named vehicle.
type SearchRequest struct {
	analyze.Request
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
}

// SearchResponse is the JSON response for POST /api/search.
type SearchResponse struct {
	RunID   string              `json:"runId"`
	Vehicle string              `json:"vehicle"`
	Hits    []analyze.SearchHit `json:"hits"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	report, err := s.analyzer.AnalyzeVehicle(r.Context(), req.Request)
	if err != nil {
		status, msg := statusFor(err)
		s.logger.Error("search analyze failed", "err", err, "status", status)
		writeError(w, status, msg)
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 20
	}
	s.app.SearchQueries.Inc()
	writeJSON(w, http.StatusOK, SearchResponse{
		RunID:   report.RunID,
		Vehicle: report.Vehicle.String(),
		Hits:    analyze.SearchComplaints(report.Complaints, req.Query, topK),
	})
}

func (s *server) handleMakes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"makes": s.client.Makes(r.Context())})
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	mk := r.URL.Query().Get("make")
	if mk == "" {
		writeError(w, http.StatusBadRequest, "make is required")
		return
	}
	var models []string
	if y := r.URL.Query().Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		models = s.client.ModelsForMakeYear(r.Context(), mk, year)
	} else {
		models = s.client.ModelsForMake(r.Context(), mk)
	}
	writeJSON(w, http.StatusOK, map[string]any{"make": mk, "models": models})
}

func (s *server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	removed := s.store.Clear()
	s.app.CacheClears.Inc()
	s.logger.Info("cache cleared", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// statusFor maps pipeline errors onto HTTP statuses: caller mistakes are
// 400s, upstream NHTSA failures are 502s.
func statusFor(err error) (int, string) {
	switch {
	case domain.IsInput(err):
		return http.StatusBadRequest, err.Error()
	case domain.IsRemote(err):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
