package anpr

import (
	"testing"
	"time"

	"github.com/gatevision/platewatch/internal/geometry"
)

func TestTrackLockByConfidence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := newTrack(1, 2, now)
	tr.updatePosition(geometry.NewBox(0, 0, 100, 50), 0.8, 2, now)

	reason, improved := tr.updatePlate(Candidate{Text: "ABCI23", Confidence: 85}, "img.jpg", 80)
	if !improved {
		t.Fatal("high confidence candidate should improve the track")
	}
	if reason != LockByConfidence {
		t.Fatalf("lock reason = %q, want %q", reason, LockByConfidence)
	}
	if !tr.locked() {
		t.Fatal("track should lock on first result above the threshold")
	}
	if tr.attempts != 1 {
		t.Errorf("attempts = %d, want 1: locking must not wait for budget exhaustion", tr.attempts)
	}
	if tr.bestText != "ABCI23" || tr.bestConfidence != 85 {
		t.Errorf("best = %q/%v, want ABCI23/85", tr.bestText, tr.bestConfidence)
	}
}

func TestTrackLockByExhaustion(t *testing.T) {
	now := time.Now()
	tr := newTrack(1, 2, now)
	tr.updatePosition(geometry.NewBox(0, 0, 100, 50), 0.8, 2, now)

	reason, improved := tr.updatePlate(Candidate{Text: "WEAKII", Confidence: 20}, "", 80)
	if reason != LockNone || !improved {
		t.Fatalf("first low result: reason=%q improved=%v, want none/true", reason, improved)
	}
	if tr.locked() {
		t.Fatal("track must keep tracking while budget remains")
	}

	reason, improved = tr.updatePlate(Candidate{Text: "WEAKER", Confidence: 10}, "", 80)
	if reason != LockByExhaustion {
		t.Fatalf("lock reason = %q, want %q", reason, LockByExhaustion)
	}
	if improved {
		t.Error("a lower confidence candidate must not replace the best")
	}
	if tr.bestText != "WEAKII" || tr.bestConfidence != 20 {
		t.Errorf("best = %q/%v, want the earlier WEAKII/20 kept", tr.bestText, tr.bestConfidence)
	}
}

func TestLockedTrackOnlyMovesLastSeen(t *testing.T) {
	now := time.Now()
	tr := newTrack(1, 2, now)
	firstBox := geometry.NewBox(0, 0, 100, 50)
	tr.updatePosition(firstBox, 0.8, 2, now)
	tr.updatePlate(Candidate{Text: "ABCI23", Confidence: 90}, "a.jpg", 40)

	later := now.Add(500 * time.Millisecond)
	tr.updatePosition(geometry.NewBox(300, 300, 400, 350), 0.99, 8, later)

	if tr.lastBox != firstBox {
		t.Errorf("lastBox moved on a locked track: %+v", tr.lastBox)
	}
	if tr.maxDetectionConfidence != 0.8 || tr.maxAxleCount != 2 {
		t.Errorf("running maxima moved on a locked track: conf=%v axles=%d",
			tr.maxDetectionConfidence, tr.maxAxleCount)
	}
	if !tr.lastSeen.Equal(later) {
		t.Errorf("lastSeen = %v, want %v", tr.lastSeen, later)
	}

	if reason, improved := tr.updatePlate(Candidate{Text: "XYZ999", Confidence: 99}, "", 40); reason != LockNone || improved {
		t.Error("updatePlate on a locked track must be a no-op")
	}
	if tr.bestText != "ABCI23" {
		t.Errorf("best text changed on a locked track: %q", tr.bestText)
	}
	if tr.attempts != 1 {
		t.Errorf("attempts = %d, want 1 after a rejected update", tr.attempts)
	}
}

func TestTrackRunningMaxima(t *testing.T) {
	now := time.Now()
	tr := newTrack(1, 2, now)

	tr.updatePosition(geometry.NewBox(0, 0, 100, 50), 0.6, 2, now)
	tr.updatePosition(geometry.NewBox(10, 0, 110, 50), 0.9, 3, now)
	tr.updatePosition(geometry.NewBox(20, 0, 120, 50), 0.7, 2, now)

	if tr.maxDetectionConfidence != 0.9 {
		t.Errorf("maxDetectionConfidence = %v, want 0.9", tr.maxDetectionConfidence)
	}
	if tr.maxAxleCount != 3 {
		t.Errorf("maxAxleCount = %d, want 3: axle count never decreases", tr.maxAxleCount)
	}
	if tr.firstBox != geometry.NewBox(0, 0, 100, 50) {
		t.Errorf("firstBox = %+v, want the initial detection", tr.firstBox)
	}
	if tr.lastBox != geometry.NewBox(20, 0, 120, 50) {
		t.Errorf("lastBox = %+v, want the latest detection", tr.lastBox)
	}
}

func TestShouldAttemptRecognition(t *testing.T) {
	now := time.Now()

	fresh := func() *track {
		tr := newTrack(1, 2, now)
		tr.updatePosition(geometry.NewBox(0, 0, 100, 50), 0.8, 2, now)
		return tr
	}

	if tr := fresh(); !tr.shouldAttemptRecognition(true, 0.5) {
		t.Error("eligible track inside ROI should attempt")
	}
	if tr := fresh(); tr.shouldAttemptRecognition(false, 0.5) {
		t.Error("track outside ROI must not attempt")
	}
	if tr := fresh(); tr.shouldAttemptRecognition(true, 0.8) {
		t.Error("detector confidence must strictly exceed the minimum")
	}
	if tr := fresh(); func() bool { tr.pendingRecognition = true; return tr.shouldAttemptRecognition(true, 0.5) }() {
		t.Error("pending track must not be dispatched twice")
	}
	if tr := fresh(); func() bool { tr.attempts = 2; return tr.shouldAttemptRecognition(true, 0.5) }() {
		t.Error("exhausted budget must stop attempts")
	}
	if tr := fresh(); func() bool {
		tr.updatePlate(Candidate{Text: "ABCI23", Confidence: 90}, "", 40)
		return tr.shouldAttemptRecognition(true, 0.5)
	}() {
		t.Error("locked track must not attempt")
	}
}

func TestKeepsImageRefWhenLaterResultHasNone(t *testing.T) {
	now := time.Now()
	tr := newTrack(1, 3, now)
	tr.updatePosition(geometry.NewBox(0, 0, 100, 50), 0.8, 2, now)

	tr.updatePlate(Candidate{Text: "FIRSTI", Confidence: 30}, "first.jpg", 90)
	tr.updatePlate(Candidate{Text: "SECOND", Confidence: 50}, "", 90)

	if tr.bestText != "SECOND" || tr.bestConfidence != 50 {
		t.Fatalf("best = %q/%v, want SECOND/50", tr.bestText, tr.bestConfidence)
	}
	if tr.bestImageRef != "first.jpg" {
		t.Errorf("bestImageRef = %q, want the earlier image kept", tr.bestImageRef)
	}
}
