package anpr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_frames_processed_total",
		Help: "Frames run through the full detection pipeline",
	})
	framesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_frames_skipped_total",
		Help: "Frames passed through on the frame-skip cadence",
	})
	detectionsSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platewatch_detections_total",
		Help: "Raw detections by class",
	}, []string{"class"})
	detectionsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_detections_suppressed_total",
		Help: "Overlapping plate detections removed by suppression",
	})
	detectionFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_detection_faults_total",
		Help: "Transient per-frame detection or crop failures skipped",
	})
	tracksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_tracks_created_total",
		Help: "New vehicle tracks created",
	})
	tracksLocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platewatch_tracks_locked_total",
		Help: "Tracks locked by reason",
	}, []string{"reason"})
	tracksEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_tracks_evicted_total",
		Help: "Tracks removed by age-based eviction",
	})
	recognitionsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_recognitions_dispatched_total",
		Help: "Recognition calls spent",
	})
	recognitionsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_recognitions_discarded_total",
		Help: "Recognition results discarded (track evicted or locked in flight)",
	})
	recognitionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "platewatch_recognition_latency_seconds",
		Help:    "Wall time of one dual-engine recognition and fusion",
		Buckets: prometheus.DefBuckets,
	})
	commits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_commits_total",
		Help: "Vehicle records committed to storage",
	})
	commitErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "platewatch_commit_errors_total",
		Help: "Failed vehicle record commits",
	})
)
