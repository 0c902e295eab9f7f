// Package api exposes the monitoring pipeline over HTTP: status, sensitivity
// selection, calibration, recorded samples and an HTML score report.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/posture-data/postureguard/internal/calibration"
	"github.com/posture-data/postureguard/internal/db"
	"github.com/posture-data/postureguard/internal/monitoring"
	"github.com/posture-data/postureguard/internal/posture"
	"github.com/posture-data/postureguard/internal/session"
)

// ANSI escape codes for request logging.
const (
	colorReset     = "\033[0m"
	colorCyan      = "\033[36m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server serves the monitoring API for one Monitor and its session store.
type Server struct {
	monitor *session.Monitor
	store   *db.Store
}

// NewServer creates a Server. store may be nil; sample and report endpoints
// then return 404.
func NewServer(m *session.Monitor, store *db.Store) *Server {
	return &Server{monitor: m, store: store}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sensitivity", s.handleSensitivity)
	mux.HandleFunc("/api/calibrate", s.handleCalibrate)
	mux.HandleFunc("/api/monitor/start", s.handleStart)
	mux.HandleFunc("/api/monitor/stop", s.handleStop)
	mux.HandleFunc("/api/samples", s.handleSamples)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/report/scores", s.handleScoreReport)
	return logRequests(mux)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("%s%s%s %s %s %s",
			colorCyan, r.Method, colorReset, r.URL.Path,
			statusCodeColor(lrw.statusCode), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{
			"sensitivity": string(s.monitor.Sensitivity()),
		})
	case http.MethodPost:
		var body struct {
			Sensitivity string `json:"sensitivity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sens, err := posture.ParseSensitivity(body.Sensitivity)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.monitor.SetSensitivity(sens)
		writeJSON(w, http.StatusOK, map[string]string{"sensitivity": string(sens)})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	err := s.monitor.Calibrate(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "calibrated"})
	case errors.Is(err, session.ErrCalibrating):
		writeError(w, http.StatusConflict, "calibration already in progress")
	case errors.Is(err, calibration.ErrInsufficientSamples):
		writeError(w, http.StatusUnprocessableEntity,
			"could not capture enough usable frames; make sure your face and shoulders are visible")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	err := s.monitor.Start()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "monitoring"})
	case errors.Is(err, session.ErrNotCalibrated):
		writeError(w, http.StatusConflict, "not calibrated; sit up straight and POST /api/calibrate first")
	case errors.Is(err, session.ErrCalibrating):
		writeError(w, http.StatusConflict, "calibration in progress")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.monitor.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "no session store configured")
		return
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 || v > 10000 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer up to 10000")
			return
		}
		limit = v
	}
	samples, err := s.store.ListSamples(r.URL.Query().Get("session_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if samples == nil {
		samples = []db.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "no session store configured")
		return
	}
	stats, err := s.store.SessionStats(r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
