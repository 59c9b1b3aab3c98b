package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gatevision/platewatch/internal/httputil"
)

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		httputil.NotFound(w, "image store not configured")
		return
	}

	ref := strings.TrimPrefix(r.URL.Path, "/api/images/")
	if ref == "" {
		httputil.BadRequest(w, "missing image ref")
		return
	}

	switch r.Method {
	case http.MethodGet:
		path, err := s.images.Path(ref)
		if err != nil {
			httputil.NotFound(w, fmt.Sprintf("image not found: %v", err))
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, path)

	case http.MethodDelete:
		if err := s.images.Delete(ref); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("failed to delete image: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"deleted": ref})

	default:
		httputil.MethodNotAllowed(w)
	}
}
