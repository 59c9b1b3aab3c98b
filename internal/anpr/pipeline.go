package anpr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gatevision/platewatch/internal/monitoring"
	"github.com/gatevision/platewatch/internal/timeutil"
)

// PipelineConfig holds per-frame control flow tuning.
type PipelineConfig struct {
	// FrameSkip processes every Nth frame fully; others pass through
	// to the sink unmodified to bound CPU cost under load.
	FrameSkip int
	// DetectionConfidence drops detector findings below it (0-1).
	DetectionConfidence float64
	// NMSThreshold is the IoU above which overlapping plate detections
	// are reduced to the highest-confidence one.
	NMSThreshold float64
	// CropPadding is the pixel padding around a plate crop, clamped to
	// frame bounds.
	CropPadding int
	// RecognitionWorkers bounds concurrent recognition calls; it is
	// the per-frame token budget, so a slow recognition never stalls
	// frame acquisition.
	RecognitionWorkers int
	// MinPlateLength and MaxPlateLength bound accepted fused readings;
	// anything outside is treated as no reading.
	MinPlateLength int
	MaxPlateLength int
	// EvictionInterval is the registry housekeeping period.
	EvictionInterval time.Duration
}

// DefaultPipelineConfig returns the default orchestrator configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		FrameSkip:           2,
		DetectionConfidence: 0.4,
		NMSThreshold:        0.3,
		CropPadding:         5,
		RecognitionWorkers:  2,
		MinPlateLength:      3,
		MaxPlateLength:      10,
		EvictionInterval:    500 * time.Millisecond,
	}
}

// PipelineOptions carries the optional collaborators of a pipeline.
// Nil fields disable the corresponding side effect.
type PipelineOptions struct {
	Committer   Committer
	Broadcaster Broadcaster
	Images      ImageSaver
	Sink        FrameSink
	Clock       timeutil.Clock
}

// Pipeline is the per-frame orchestrator: it splits detections by
// class, deduplicates plates, estimates axles, matches tracks, gates
// recognition through the ROI, and drives the track state machine to a
// committed record.
type Pipeline struct {
	config   PipelineConfig
	registry *Registry
	roi      *ROIGate
	detector Detector

	recognizerA Recognizer
	recognizerB Recognizer

	committer   Committer
	broadcaster Broadcaster
	images      ImageSaver
	sink        FrameSink
	clock       timeutil.Clock

	// frameCount is only touched by the single pipeline goroutine.
	frameCount uint64

	// sem holds the recognition tokens; wg tracks in-flight
	// recognitions so Run can drain them on shutdown.
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPipeline assembles a frame pipeline. registry, roi, detector and
// both recognizers are required.
func NewPipeline(config PipelineConfig, registry *Registry, roi *ROIGate,
	detector Detector, recognizerA, recognizerB Recognizer, opts PipelineOptions) *Pipeline {

	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	workers := config.RecognitionWorkers
	if workers < 1 {
		workers = 1
	}

	return &Pipeline{
		config:      config,
		registry:    registry,
		roi:         roi,
		detector:    detector,
		recognizerA: recognizerA,
		recognizerB: recognizerB,
		committer:   opts.Committer,
		broadcaster: opts.Broadcaster,
		images:      opts.Images,
		sink:        opts.Sink,
		clock:       clock,
		sem:         make(chan struct{}, workers),
	}
}

// Run consumes frames from source in capture order until the source
// ends or ctx is cancelled, then drains in-flight recognitions.
// A frame acquisition failure is fatal and returned to the caller.
func (p *Pipeline) Run(ctx context.Context, source FrameSource) error {
	ticker := p.clock.NewTicker(p.config.EvictionInterval)
	defer ticker.Stop()
	defer p.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if n := p.registry.EvictStale(); n > 0 {
				tracksEvicted.Add(float64(n))
			}
		default:
		}

		frame, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("frame acquisition failed: %w", err)
		}

		p.ProcessFrame(ctx, frame)
		if err := frame.Close(); err != nil {
			monitoring.Logf("anpr: failed to close frame: %v", err)
		}
	}
}

// Wait blocks until all in-flight recognitions have been applied or
// discarded.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// ProcessFrame runs one frame through the pipeline and reports whether
// the frame was fully processed or passed through on the skip cadence.
// The frame remains owned by the caller; any pixels needed beyond this
// call are copied out.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame Frame) bool {
	p.frameCount++
	if p.config.FrameSkip > 1 && p.frameCount%uint64(p.config.FrameSkip) != 0 {
		framesSkipped.Inc()
		p.publish(frame)
		return false
	}

	detections, err := p.detector.Detect(ctx, frame)
	if err != nil {
		// Transient per-frame fault: count it, skip the frame, keep
		// the pipeline running.
		detectionFaults.Inc()
		monitoring.Logf("anpr: detection failed: %v", err)
		p.publish(frame)
		return false
	}

	var plates, wheels []Detection
	for _, det := range detections {
		if det.Confidence < p.config.DetectionConfidence {
			continue
		}
		detectionsSeen.WithLabelValues(string(det.Class)).Inc()
		switch det.Class {
		case ClassPlate:
			plates = append(plates, det)
		case ClassWheel:
			wheels = append(wheels, det)
		}
	}

	before := len(plates)
	plates = SuppressOverlaps(plates, p.config.NMSThreshold)
	if dropped := before - len(plates); dropped > 0 {
		detectionsSuppressed.Add(float64(dropped))
	}

	for _, plate := range plates {
		p.processPlate(ctx, frame, plate, wheels)
	}

	framesProcessed.Inc()
	p.publish(frame)
	return true
}

// processPlate handles one deduplicated plate detection: axle estimate,
// track match, ROI gate, and conditional recognition dispatch.
func (p *Pipeline) processPlate(ctx context.Context, frame Frame, plate Detection, wheels []Detection) {
	axles := EstimateAxles(plate.Box, wheels)

	snap, created := p.registry.Match(plate.Box, plate.Confidence, axles)
	if created {
		tracksCreated.Inc()
	}

	if !p.registry.BeginRecognition(snap.ID, p.roi.Allows(plate.Box)) {
		return
	}

	cropBox := plate.Box.Pad(p.config.CropPadding, frame.Width(), frame.Height())
	crop, err := frame.Crop(cropBox)
	if err != nil {
		detectionFaults.Inc()
		monitoring.Logf("anpr: plate crop failed for track %d: %v", snap.ID, err)
		p.registry.CancelRecognition(snap.ID)
		return
	}

	// Recognition runs off the frame loop under a token budget; with
	// no token free the attempt is abandoned rather than stalling
	// acquisition.
	select {
	case p.sem <- struct{}{}:
	default:
		if err := crop.Close(); err != nil {
			monitoring.Logf("anpr: failed to close crop: %v", err)
		}
		p.registry.CancelRecognition(snap.ID)
		return
	}

	recognitionsDispatched.Inc()
	p.wg.Add(1)
	go p.recognize(ctx, snap.ID, crop)
}

// recognize runs both engines on the crop, fuses the candidates, and
// applies the result to the track under the registry lock. Results for
// tracks that were evicted or locked in flight are discarded whole.
func (p *Pipeline) recognize(ctx context.Context, trackID int64, crop Frame) {
	defer p.wg.Done()
	defer func() { <-p.sem }()
	defer func() {
		if err := crop.Close(); err != nil {
			monitoring.Logf("anpr: failed to close crop: %v", err)
		}
	}()

	start := p.clock.Now()
	fused := Fuse(p.read(ctx, p.recognizerA, crop), p.read(ctx, p.recognizerB, crop))
	recognitionLatency.Observe(p.clock.Since(start).Seconds())

	if !p.validReading(fused) {
		// No reading does not consume the retry budget.
		p.registry.CancelRecognition(trackID)
		return
	}

	var imageRef string
	if p.images != nil {
		ref, err := p.images.Save(fused.Text, trackID, crop)
		if err != nil {
			monitoring.Logf("anpr: failed to save plate image for track %d: %v", trackID, err)
		} else {
			imageRef = ref
		}
	}

	res, ok := p.registry.ApplyRecognition(trackID, fused, imageRef)
	if !ok {
		recognitionsDiscarded.Inc()
		return
	}
	if res.LockReason != LockNone {
		tracksLocked.WithLabelValues(string(res.LockReason)).Inc()
	}
	if res.ShouldCommit {
		p.commit(ctx, res.Record)
	}
}

// read degrades a recognizer failure to a zero-confidence candidate,
// never a pipeline fault.
func (p *Pipeline) read(ctx context.Context, r Recognizer, crop Frame) Candidate {
	cand, err := r.Recognize(ctx, crop)
	if err != nil {
		monitoring.Logf("anpr: recognizer failed: %v", err)
		return Candidate{}
	}
	return cand
}

func (p *Pipeline) validReading(cand Candidate) bool {
	if cand.Text == "" || cand.Confidence <= 0 {
		return false
	}
	n := len(cand.Text)
	return n >= p.config.MinPlateLength && n <= p.config.MaxPlateLength
}

// commit persists a vehicle record and broadcasts it. Broadcast only
// follows a successful upsert.
func (p *Pipeline) commit(ctx context.Context, rec VehicleRecord) {
	rec.EventID = uuid.NewString()

	if p.committer != nil {
		if err := p.committer.Upsert(ctx, rec); err != nil {
			commitErrors.Inc()
			monitoring.Logf("anpr: failed to commit track %d: %v", rec.TrackID, err)
			return
		}
	}
	commits.Inc()

	if p.broadcaster != nil {
		p.broadcaster.VehicleCommitted(rec)
	}
}

func (p *Pipeline) publish(frame Frame) {
	if p.sink != nil {
		p.sink.Publish(frame, p.registry.Snapshots())
	}
}

// EvictStale runs one registry housekeeping pass. Run does this on a
// timer; it is exported for callers driving ProcessFrame directly.
func (p *Pipeline) EvictStale() int {
	n := p.registry.EvictStale()
	if n > 0 {
		tracksEvicted.Add(float64(n))
	}
	return n
}
