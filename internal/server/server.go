// Package server exposes the analysis engine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/analysis"
	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/internal/store"
)

// Server routes HTTP requests onto the analysis engine.
type Server struct {
	engine *analysis.Engine
	router chi.Router
}

// New builds the router with CORS and panic recovery.
func New(engine *analysis.Engine) *Server {
	s := &Server{engine: engine}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/v1/analyses", s.handleAnalyze)
	r.Post("/v1/qualifications", s.handleQualify)
	r.Post("/v1/snapshots/{key}/override", s.handleOverride)
	r.Get("/v1/snapshots/{key}/audit", s.handleAudit)
	r.Get("/v1/companies/{identity}/history", s.handleHistory)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type analyzeRequest struct {
	Identity   string `json:"identity"`
	WebsiteURL string `json:"website_url"`
	NetworkURL string `json:"network_url"`
	Options    struct {
		ForceRefresh   bool `json:"force_refresh"`
		SkipFiltering  bool `json:"skip_filtering"`
		ManualOverride bool `json:"manual_override"`
		StrategicFit   bool `json:"strategic_fit"`
	} `json:"options"`
}

func (r analyzeRequest) toRequest() analysis.Request {
	return analysis.Request{
		Identity:   r.Identity,
		WebsiteURL: r.WebsiteURL,
		NetworkURL: r.NetworkURL,
		Options: analysis.Options{
			ForceRefresh:   r.Options.ForceRefresh,
			SkipFiltering:  r.Options.SkipFiltering,
			ManualOverride: r.Options.ManualOverride,
			StrategicFit:   r.Options.StrategicFit,
		},
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.engine.GetOrCompute(r.Context(), req.toRequest())
	if err != nil && !errors.Is(err, analysis.ErrPersistExhausted) {
		writeEngineError(w, err)
		return
	}

	resp := struct {
		*model.AnalysisSnapshot
		Persisted    bool   `json:"persisted"`
		PersistError string `json:"persist_error,omitempty"`
	}{AnalysisSnapshot: snap, Persisted: snap.Persisted}
	if err != nil {
		resp.PersistError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQualify(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.engine.ComputeQualification(r.Context(), req.toRequest())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier   string `json:"tier"`
		Reason string `json:"reason"`
		Actor  string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target := model.Tier(req.Tier)
	if !model.ValidTier(target) {
		writeError(w, http.StatusBadRequest, "unknown tier")
		return
	}

	entry, err := s.engine.OverrideTier(r.Context(), chi.URLParam(r, "key"),
		target, req.Reason, req.Actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	trail, err := s.engine.AuditTrail(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{Limit: parseIntDefault(q.Get("limit"), 20)}
	var err error
	if filter.From, err = parseDateParam(q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	if filter.To, err = parseDateParam(q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}

	summaries, err := s.engine.History(r.Context(), chi.URLParam(r, "identity"),
		q.Get("website"), q.Get("network"), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if summaries == nil {
		summaries = []model.SnapshotSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var vErr *analysis.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "snapshot not found")
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
