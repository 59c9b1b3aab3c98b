package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/httputil"
)

const defaultRecentWindow = 60 * time.Minute

func (s *Server) listRecentVehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	window := defaultRecentWindow
	if m := r.URL.Query().Get("minutes"); m != "" {
		minutes, err := strconv.Atoi(m)
		if err != nil || minutes < 1 {
			httputil.BadRequest(w, "invalid 'minutes' parameter")
			return
		}
		window = time.Duration(minutes) * time.Minute
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	vehicles, err := s.store.RecentVehicles(r.Context(), window, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve vehicles: %v", err))
		return
	}
	if vehicles == nil {
		vehicles = []anpr.VehicleRecord{}
	}
	httputil.WriteJSONOK(w, vehicles)
}

func (s *Server) searchVehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	plate := strings.TrimPrefix(r.URL.Path, "/api/vehicles/search/")
	if plate == "" {
		httputil.BadRequest(w, "missing plate")
		return
	}

	vehicles, err := s.store.SearchPlate(r.Context(), plate, 100)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to search vehicles: %v", err))
		return
	}
	httputil.WriteJSONOK(w, vehicles)
}

func (s *Server) showStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	stats, err := s.store.GetStatistics(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to compute statistics: %v", err))
		return
	}
	httputil.WriteJSONOK(w, stats)
}
