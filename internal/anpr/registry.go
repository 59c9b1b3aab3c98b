package anpr

import (
	"sync"
	"time"

	"github.com/gatevision/platewatch/internal/geometry"
	"github.com/gatevision/platewatch/internal/timeutil"
)

// RegistryConfig holds tuning parameters for the track registry.
type RegistryConfig struct {
	// PositionThreshold is the maximum center distance in pixels for a
	// detection to be associated with an existing track.
	PositionThreshold float64
	// MaxAttempts is the per-track recognition retry budget.
	MaxAttempts int
	// LockThreshold locks a track once its best recognition confidence
	// exceeds it (0-100 scale).
	LockThreshold float64
	// SaveThreshold commits a track once its best confidence reaches
	// it. Locking and committing are independent decisions.
	SaveThreshold float64
	// MinTrackConfidence is the detector confidence a track must reach
	// before recognition is attempted (0-1 scale).
	MinTrackConfidence float64
	// MaxTrackAge evicts tracks not seen for this long.
	MaxTrackAge time.Duration
	// LockedGrace evicts locked tracks this long after their last
	// update, bounding memory spent on finished work.
	LockedGrace time.Duration
}

// DefaultRegistryConfig returns the default registry configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		PositionThreshold:  100,
		MaxAttempts:        2,
		LockThreshold:      40,
		SaveThreshold:      75,
		MinTrackConfidence: 0.5,
		MaxTrackAge:        2 * time.Second,
		LockedGrace:        time.Second,
	}
}

// Registry owns the arena of vehicle tracks. All access goes through
// registry methods under a single mutex; raw tracks never escape, so
// per-track serialization is guaranteed and eviction can never race
// with matching.
type Registry struct {
	mu     sync.Mutex
	config RegistryConfig
	clock  timeutil.Clock

	tracks map[int64]*track
	// order preserves creation order so greedy association is
	// deterministic: ties go to the first (oldest) match.
	order  []int64
	nextID int64
}

// NewRegistry creates an empty registry. A nil clock defaults to the
// real clock.
func NewRegistry(config RegistryConfig, clock timeutil.Clock) *Registry {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Registry{
		config: config,
		clock:  clock,
		tracks: make(map[int64]*track),
		nextID: 1,
	}
}

// Match associates a plate detection with an existing track or creates
// a new one. It returns a snapshot of the matched track and whether a
// new track was created.
//
// Association is deliberately greedy: the first track in creation order
// whose last box center is within PositionThreshold of the detection's
// center wins. This keeps per-frame cost at O(tracks x detections)
// with no assignment solver.
func (r *Registry) Match(box geometry.Box, detConfidence float64, axleCount int) (TrackSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	for _, id := range r.order {
		t := r.tracks[id]
		if t.lastBox.Empty() {
			continue
		}
		if geometry.CenterDistance(box, t.lastBox) < r.config.PositionThreshold {
			t.updatePosition(box, detConfidence, axleCount, now)
			return t.snapshot(), false
		}
	}

	t := newTrack(r.nextID, r.config.MaxAttempts, now)
	t.updatePosition(box, detConfidence, axleCount, now)
	r.tracks[t.id] = t
	r.order = append(r.order, t.id)
	r.nextID++
	return t.snapshot(), true
}

// BeginRecognition reports whether a recognition call should be spent
// on the track and, if so, marks it pending so concurrent frames do not
// dispatch it twice. Callers must follow up with ApplyRecognition or
// CancelRecognition.
func (r *Registry) BeginRecognition(id int64, inROI bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracks[id]
	if !ok {
		return false
	}
	if !t.shouldAttemptRecognition(inROI, r.config.MinTrackConfidence) {
		return false
	}
	t.pendingRecognition = true
	return true
}

// CancelRecognition releases a pending recognition without consuming
// an attempt, e.g. when the crop failed or no reading was produced.
func (r *Registry) CancelRecognition(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tracks[id]; ok {
		t.pendingRecognition = false
	}
}

// RecognitionResult describes the effect of applying one fused
// recognition candidate to a track.
type RecognitionResult struct {
	Snapshot TrackSnapshot
	// LockReason is non-empty if this update transitioned the track to
	// StateLocked.
	LockReason LockReason
	// Improved reports whether the candidate replaced the track's best.
	Improved bool
	// ShouldCommit reports that the best confidence crossed the save
	// threshold and the record should be persisted and broadcast.
	ShouldCommit bool
	// Record is the vehicle record to commit; valid when ShouldCommit.
	Record VehicleRecord
}

// ApplyRecognition applies a fused recognition candidate to a track.
// The second return is false when the result was discarded because the
// track was evicted or locked while recognition was in flight; a
// discarded result leaves no partial state behind.
func (r *Registry) ApplyRecognition(id int64, cand Candidate, imageRef string) (RecognitionResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracks[id]
	if !ok {
		return RecognitionResult{}, false
	}
	t.pendingRecognition = false
	if t.locked() {
		return RecognitionResult{}, false
	}

	reason, improved := t.updatePlate(cand, imageRef, r.config.LockThreshold)

	res := RecognitionResult{
		Snapshot:   t.snapshot(),
		LockReason: reason,
		Improved:   improved,
	}
	if improved && t.bestConfidence >= r.config.SaveThreshold {
		res.ShouldCommit = true
		res.Record = t.record()
		t.committed = true
	}
	return res, true
}

// EvictStale removes tracks not seen within MaxTrackAge, plus locked
// tracks whose grace period after their last update has expired.
// Returns the number of tracks removed. Eviction shares the registry
// mutex with matching, so a track can never be removed mid-match.
func (r *Registry) EvictStale() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	kept := r.order[:0]
	removed := 0

	for _, id := range r.order {
		t := r.tracks[id]
		age := now.Sub(t.lastSeen)
		if age > r.config.MaxTrackAge || (t.locked() && age > r.config.LockedGrace) {
			delete(r.tracks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

// Get returns a snapshot of the track with the given id.
func (r *Registry) Get(id int64) (TrackSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracks[id]
	if !ok {
		return TrackSnapshot{}, false
	}
	return t.snapshot(), true
}

// Snapshots returns read-only copies of all tracks in creation order.
func (r *Registry) Snapshots() []TrackSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TrackSnapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tracks[id].snapshot())
	}
	return out
}

// Counts returns the number of tracks by state.
func (r *Registry) Counts() (total, tracking, locked int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tracks {
		total++
		if t.locked() {
			locked++
		} else {
			tracking++
		}
	}
	return
}
