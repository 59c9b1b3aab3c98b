package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gatevision/platewatch/internal/geometry"
	"github.com/gatevision/platewatch/internal/httputil"
)

type roiPayload struct {
	ROI [4]int `json:"roi"`
}

// handleROI reads or replaces the scanning zone. A replacement takes
// effect on the next processed frame without a pipeline restart.
func (s *Server) handleROI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		box, ok := s.roi.Get()
		if !ok {
			httputil.WriteJSONOK(w, map[string]any{"roi": nil})
			return
		}
		httputil.WriteJSONOK(w, roiPayload{ROI: [4]int{box.X1, box.Y1, box.X2, box.Y2}})

	case http.MethodPost:
		var payload roiPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid ROI payload: %v", err))
			return
		}
		box := geometry.NewBox(payload.ROI[0], payload.ROI[1], payload.ROI[2], payload.ROI[3])
		if err := s.roi.Set(box); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid ROI: %v", err))
			return
		}
		httputil.WriteJSONOK(w, payload)

	case http.MethodDelete:
		if err := s.roi.Clear(); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to clear ROI: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]any{"roi": nil})

	default:
		httputil.MethodNotAllowed(w)
	}
}
