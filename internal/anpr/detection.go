// Package anpr implements the track fusion and decision engine: it
// associates per-frame plate detections into persistent vehicle tracks,
// gates expensive recognition calls, fuses dual recognition results,
// estimates axle counts from wheel detections, and commits one record
// per vehicle.
package anpr

import (
	"context"
	"time"

	"github.com/gatevision/platewatch/internal/geometry"
)

// Class identifies the kind of object a detection describes.
type Class string

const (
	ClassPlate Class = "plate"
	ClassWheel Class = "wheel"
)

// Detection is a single detector finding for one frame. Detections are
// ephemeral and never persisted.
type Detection struct {
	Box   geometry.Box
	Class Class
	// Confidence is the detector score on the 0-1 scale.
	Confidence float64
}

// Candidate is one recognition reading. Confidence is on the 0-100
// scale, distinct from detector confidence. An empty Text with zero
// Confidence means "no reading".
type Candidate struct {
	Text       string
	Confidence float64
}

// Frame is one captured video frame. Crops returned by Crop own their
// pixels and outlive the source frame; both must be closed by the
// caller.
type Frame interface {
	Width() int
	Height() int
	// Crop copies the given region out of the frame.
	Crop(b geometry.Box) (Frame, error)
	Close() error
}

// Detector produces object detections for a frame. It returns an empty
// slice, not an error, when nothing is found.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}

// Recognizer reads plate text from a cropped plate image. A failed or
// empty read is reported as a zero-confidence Candidate, not an error
// the pipeline must stop for.
type Recognizer interface {
	Recognize(ctx context.Context, plate Frame) (Candidate, error)
}

// VehicleRecord is the per-vehicle result committed to storage and
// broadcast to subscribers.
type VehicleRecord struct {
	EventID    string    `json:"event_id"`
	TrackID    int64     `json:"track_id"`
	Plate      string    `json:"license_plate"`
	Confidence float64   `json:"confidence"`
	AxleCount  int       `json:"axle_count"`
	ImageRef   string    `json:"image_ref,omitempty"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// Committer persists vehicle records. Upsert is idempotent per track
// id and must only overwrite a stored record when the new confidence
// is higher.
type Committer interface {
	Upsert(ctx context.Context, rec VehicleRecord) error
}

// Broadcaster delivers fire-and-forget commit events. Implementations
// must never block the pipeline on slow subscribers.
type Broadcaster interface {
	VehicleCommitted(rec VehicleRecord)
}

// ImageSaver stores a plate crop and returns a stable reference to it.
type ImageSaver interface {
	Save(plate string, trackID int64, crop Frame) (string, error)
}

// FrameSource produces frames in capture order. Next blocks until a
// frame is available, the source ends (io.EOF), or ctx is cancelled.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// FrameSink receives every frame leaving the pipeline, processed or
// passed through, together with the current track state for overlay
// rendering. The sink must not retain the frame after returning.
type FrameSink interface {
	Publish(frame Frame, tracks []TrackSnapshot)
}
