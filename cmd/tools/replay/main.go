// Command replay runs a JSONL detection recording through the core
// pipeline without a camera or NPU models, printing committed vehicle
// records as JSON lines. Useful for tuning thresholds offline.
//
// Usage:
//
//	go run ./cmd/tools/replay -file recording.jsonl [flags]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/config"
	"github.com/gatevision/platewatch/internal/replay"
)

type stdoutCommitter struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   int
}

func (c *stdoutCommitter) Upsert(ctx context.Context, rec anpr.VehicleRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.enc.Encode(rec)
}

func main() {
	file := flag.String("file", "", "JSONL recording file (required)")
	configPath := flag.String("config", "", "Optional config file for thresholds")
	roiPath := flag.String("roi", "", "Optional ROI JSON file")
	flag.Parse()

	if *file == "" {
		log.Fatal("Error: -file flag is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	rec, err := replay.Load(*file)
	if err != nil {
		log.Fatalf("Failed to load recording: %v", err)
	}
	log.Printf("Loaded recording: %d frames", rec.FrameCount())

	roi, err := anpr.NewROIGate(cfg.ROI.IntersectionThreshold, *roiPath)
	if err != nil {
		log.Fatalf("Failed to load ROI: %v", err)
	}

	registry := anpr.NewRegistry(anpr.RegistryConfig{
		PositionThreshold:  cfg.Tracking.PositionThreshold,
		MaxAttempts:        cfg.Recognition.MaxAttempts,
		LockThreshold:      cfg.Recognition.LockThreshold,
		SaveThreshold:      cfg.Recognition.SaveThreshold,
		MinTrackConfidence: cfg.Tracking.MinTrackConfidence,
		MaxTrackAge:        cfg.Tracking.MaxTrackAge(),
		LockedGrace:        cfg.Tracking.LockedGrace(),
	}, nil)

	committer := &stdoutCommitter{enc: json.NewEncoder(os.Stdout)}

	pipeline := anpr.NewPipeline(anpr.PipelineConfig{
		FrameSkip:           cfg.Video.FrameSkip,
		DetectionConfidence: cfg.Detection.ConfidenceThreshold,
		NMSThreshold:        cfg.Detection.NMSThreshold,
		CropPadding:         cfg.Recognition.CropPadding,
		RecognitionWorkers:  cfg.Recognition.Workers,
		MinPlateLength:      cfg.Recognition.MinPlateLength,
		MaxPlateLength:      cfg.Recognition.MaxPlateLength,
		EvictionInterval:    cfg.Tracking.EvictionInterval(),
	}, registry, roi, rec.Detector(), rec.EngineA(), rec.EngineB(), anpr.PipelineOptions{
		Committer: committer,
	})

	if err := pipeline.Run(context.Background(), rec); err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	total, tracking, locked := registry.Counts()
	fmt.Fprintf(os.Stderr, "replay done: %d commits, %d tracks live (%d tracking, %d locked)\n",
		committer.n, total, tracking, locked)
}
