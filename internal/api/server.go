package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/caption.review/internal/db"
	"github.com/banshee-data/caption.review/internal/layout/monitor"
	"github.com/banshee-data/caption.review/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db      *db.DB
	updater *db.LayoutUpdater
	resets  *db.ResetRunner
	charts  *monitor.ChartServer
}

// NewServer wires the HTTP surface. charts may be nil, in which case the
// diagnostic chart routes are not registered.
func NewServer(database *db.DB, updater *db.LayoutUpdater, resets *db.ResetRunner, charts *monitor.ChartServer) *Server {
	return &Server{
		db:      database,
		updater: updater,
		resets:  resets,
		charts:  charts,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/layout", s.handleLayout)
	mux.HandleFunc("/api/layout/update", s.updateLayout)
	mux.HandleFunc("/api/layout/reset", s.resetLayout)
	mux.HandleFunc("/api/layout/approve", s.approveLayout)
	mux.HandleFunc("/api/layout/boxes", s.listBoxes)
	mux.HandleFunc("/api/layout/visualization", s.showVisualization)
	mux.HandleFunc("/api/boxes/ingest", s.ingestBoxes)
	mux.HandleFunc("/api/boxes/label", s.labelBox)
	mux.HandleFunc("/api/frames/cache", s.handleFrameCache)
	mux.HandleFunc("/healthz", s.healthz)
	mux.Handle("/metrics", promhttp.Handler())
	if s.charts != nil {
		s.charts.AttachChartRoutes(mux)
	}
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	health := map[string]interface{}{
		"status":  "ok",
		"version": version.String(),
	}

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write health status")
		return
	}
}
