package anpr

import (
	"time"

	"github.com/gatevision/platewatch/internal/geometry"
)

// TrackState is the lifecycle state of a vehicle track.
type TrackState string

const (
	// StateTracking is the initial state: the vehicle is being followed
	// and recognition may still be attempted.
	StateTracking TrackState = "TRACKING"
	// StateLocked is terminal: the best result is final and no further
	// recognition is attempted.
	StateLocked TrackState = "LOCKED"
)

// LockReason records why a track transitioned to StateLocked.
type LockReason string

const (
	LockNone         LockReason = ""
	LockByConfidence LockReason = "confidence"
	LockByExhaustion LockReason = "exhaustion"
)

// track is the registry's belief about one physical vehicle. All field
// access is serialized by the owning Registry; raw tracks never escape
// the registry.
type track struct {
	id    int64
	state TrackState

	firstBox geometry.Box
	lastBox  geometry.Box

	// Best recognition seen so far. Confidence is on the 0-100 scale.
	bestText       string
	bestConfidence float64
	bestImageRef   string

	attempts    int
	maxAttempts int

	// Running maxima across frames. Detector confidence is 0-1; the
	// axle count is kept as a maximum because per-frame counting
	// undercounts under occlusion.
	maxDetectionConfidence float64
	maxAxleCount           int

	firstSeen time.Time
	lastSeen  time.Time

	lockReason LockReason

	// pendingRecognition marks a dispatched recognition whose result
	// has not been applied yet, so the same track is not dispatched
	// twice.
	pendingRecognition bool

	// committed records that this track has produced a persisted
	// vehicle record.
	committed bool
}

func newTrack(id int64, maxAttempts int, now time.Time) *track {
	return &track{
		id:           id,
		state:        StateTracking,
		maxAttempts:  maxAttempts,
		maxAxleCount: MinAxleCount,
		firstSeen:    now,
		lastSeen:     now,
	}
}

func (t *track) locked() bool { return t.state == StateLocked }

// updatePosition records a fresh detection for this track. Only
// lastSeen may move on a locked track.
func (t *track) updatePosition(box geometry.Box, detConfidence float64, axleCount int, now time.Time) {
	t.lastSeen = now
	if t.locked() {
		return
	}
	if t.firstBox.Empty() {
		t.firstBox = box
	}
	t.lastBox = box
	if detConfidence > t.maxDetectionConfidence {
		t.maxDetectionConfidence = detConfidence
	}
	if axleCount > t.maxAxleCount {
		t.maxAxleCount = axleCount
	}
}

// shouldAttemptRecognition reports whether an expensive recognition
// call is worth spending on this track right now.
func (t *track) shouldAttemptRecognition(inROI bool, minTrackConfidence float64) bool {
	if t.locked() || t.pendingRecognition {
		return false
	}
	if t.attempts >= t.maxAttempts {
		return false
	}
	return inROI && t.maxDetectionConfidence > minTrackConfidence
}

// updatePlate applies one fused recognition result. It returns the lock
// reason if this call transitioned the track to StateLocked, and
// whether the candidate improved the track's best.
func (t *track) updatePlate(cand Candidate, imageRef string, lockThreshold float64) (reason LockReason, improved bool) {
	if t.locked() {
		assertUnlocked(t.id)
		return LockNone, false
	}

	t.attempts++

	if cand.Confidence > t.bestConfidence {
		t.bestText = cand.Text
		t.bestConfidence = cand.Confidence
		if imageRef != "" {
			t.bestImageRef = imageRef
		}
		improved = true
	}

	switch {
	case t.bestConfidence > lockThreshold:
		t.lock(LockByConfidence)
		reason = LockByConfidence
	case t.attempts >= t.maxAttempts:
		// Budget exhausted: keep the best-effort result even below
		// the confidence threshold.
		t.lock(LockByExhaustion)
		reason = LockByExhaustion
	}

	return reason, improved
}

func (t *track) lock(reason LockReason) {
	t.state = StateLocked
	t.lockReason = reason
}

// TrackSnapshot is a read-only copy of a track's externally visible
// state. Snapshots are what the registry hands out; callers never see
// live tracks.
type TrackSnapshot struct {
	ID         int64
	State      TrackState
	LockReason LockReason

	FirstBox geometry.Box
	LastBox  geometry.Box

	Plate      string
	Confidence float64
	ImageRef   string

	Attempts    int
	MaxAttempts int

	DetectionConfidence float64
	AxleCount           int

	FirstSeen time.Time
	LastSeen  time.Time
}

func (t *track) snapshot() TrackSnapshot {
	return TrackSnapshot{
		ID:                  t.id,
		State:               t.state,
		LockReason:          t.lockReason,
		FirstBox:            t.firstBox,
		LastBox:             t.lastBox,
		Plate:               t.bestText,
		Confidence:          t.bestConfidence,
		ImageRef:            t.bestImageRef,
		Attempts:            t.attempts,
		MaxAttempts:         t.maxAttempts,
		DetectionConfidence: t.maxDetectionConfidence,
		AxleCount:           t.maxAxleCount,
		FirstSeen:           t.firstSeen,
		LastSeen:            t.lastSeen,
	}
}

// record builds the vehicle record a commit persists and broadcasts.
func (t *track) record() VehicleRecord {
	return VehicleRecord{
		TrackID:    t.id,
		Plate:      t.bestText,
		Confidence: t.bestConfidence,
		AxleCount:  t.maxAxleCount,
		ImageRef:   t.bestImageRef,
		FirstSeen:  t.firstSeen,
		LastSeen:   t.lastSeen,
	}
}
