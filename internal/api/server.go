// Package api provides a read-only HTTP view of a running simulation.
// It only reads published snapshots; it never drives or mutates the run.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/luck-talent/internal/engine"
	"github.com/talgya/luck-talent/internal/metrics"
	"github.com/talgya/luck-talent/internal/persistence"
)

const (
	defaultBins = 100
	maxBins     = 1000
)

// Server serves the latest snapshot over HTTP.
type Server struct {
	Eng   *engine.Engine
	DB    *persistence.DB // Optional; enables /api/v1/history
	RunID string
	Port  int
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/persons", s.handlePersons)
	mux.HandleFunc("/api/v1/histogram", s.handleHistogram)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "history", s.DB != nil)

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Eng.Latest()
	sim := s.Eng.Sim

	status := map[string]any{
		"run_id":          s.RunID,
		"seed":            sim.Seed,
		"tick":            snap.Tick,
		"years":           snap.Years,
		"sim_time":        engine.SimTime(snap.Years),
		"finished":        snap.Years >= sim.Config.LifespanYears,
		"persons":         len(snap.Persons),
		"positive_events": sim.Config.PositiveEvents(),
		"negative_events": sim.Config.NegativeEvents(),
		"gini":            snap.Model.Gini,
		"min_max":         [2]float64{snap.Model.Min, snap.Model.Max},
	}
	if snap.MetricErr != nil {
		status["metric_error"] = snap.MetricErr.Error()
	}
	writeJSON(w, status)
}

func (s *Server) handlePersons(w http.ResponseWriter, r *http.Request) {
	snap := s.Eng.Latest()
	writeJSON(w, map[string]any{
		"tick":    snap.Tick,
		"persons": snap.Persons,
	})
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	bins := defaultBins
	if b := r.URL.Query().Get("bins"); b != "" {
		v, err := strconv.Atoi(b)
		if err != nil || v <= 0 || v > maxBins {
			http.Error(w, fmt.Sprintf("bins must be in 1..%d", maxBins), http.StatusBadRequest)
			return
		}
		bins = v
	}

	snap := s.Eng.Latest()
	hist, err := metrics.Histogram(snap.Capitals(), bins)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]any{
		"tick": snap.Tick,
		"bins": hist,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil || s.RunID == "" {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	series, err := s.DB.LoadModelSeries(s.RunID)
	if err != nil {
		slog.Error("load history failed", "run_id", s.RunID, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"run_id": s.RunID,
		"series": series,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
