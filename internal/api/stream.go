package api

import (
	"fmt"
	"net/http"

	"github.com/gatevision/platewatch/internal/httputil"
)

const streamBoundary = "platewatchframe"

// streamMJPEG serves the annotated live view as multipart JPEG parts.
// Each connected viewer gets its own subscription; a viewer that
// cannot keep up skips frames instead of backpressuring the pipeline.
func (s *Server) streamMJPEG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.publisher == nil {
		httputil.NotFound(w, "stream not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	frames, cancel := s.publisher.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.WriteHeader(http.StatusOK)

	// Send the last known frame immediately so the view is not blank
	// until the next publish.
	if latest := s.publisher.Latest(); latest != nil {
		if err := writeFramePart(w, latest); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writeFramePart(w, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeFramePart(w http.ResponseWriter, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
		streamBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
