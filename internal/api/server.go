// Package api exposes the vehicle records, statistics, ROI control and
// live stream over HTTP.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/httputil"
	"github.com/gatevision/platewatch/internal/store"
	"github.com/gatevision/platewatch/internal/vision"
	"github.com/gatevision/platewatch/internal/ws"
)

const (
	colorReset     = "\033[0m"
	colorCyan      = "\033[36m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

type Server struct {
	store     *store.Store
	roi       *anpr.ROIGate
	registry  *anpr.Registry
	hub       *ws.Hub
	publisher *vision.Publisher
	images    *vision.ImageStore
}

func NewServer(st *store.Store, roi *anpr.ROIGate, registry *anpr.Registry,
	hub *ws.Hub, publisher *vision.Publisher, images *vision.ImageStore) *Server {
	return &Server{
		store:     st,
		roi:       roi,
		registry:  registry,
		hub:       hub,
		publisher: publisher,
		images:    images,
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
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
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
	mux.HandleFunc("/api/vehicles/recent", s.listRecentVehicles)
	mux.HandleFunc("/api/vehicles/search/", s.searchVehicles)
	mux.HandleFunc("/api/statistics", s.showStatistics)
	mux.HandleFunc("/api/tracks", s.listTracks)
	mux.HandleFunc("/api/roi", s.handleROI)
	mux.HandleFunc("/api/images/", s.handleImage)
	mux.HandleFunc("/api/stream", s.streamMJPEG)
	mux.HandleFunc("/healthz", s.healthz)
	mux.Handle("/metrics", promhttp.Handler())
	if s.hub != nil {
		mux.Handle("/ws", s.hub)
	}
	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

// listTracks returns the live track registry state for the dashboard.
func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.registry == nil {
		httputil.WriteJSONOK(w, []anpr.TrackSnapshot{})
		return
	}
	httputil.WriteJSONOK(w, s.registry.Snapshots())
}
