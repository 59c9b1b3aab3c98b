package replay

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/geometry"
)

const sampleRecording = `{"width":1280,"height":720,"detections":[{"box":[100,80,200,130],"class":"plate","confidence":0.9},{"box":[110,190,130,210],"class":"wheel","confidence":0.8}],"engine_a":{"text":"ABC123","confidence":90},"engine_b":{"text":"ABC128","confidence":70}}

{"detections":[]}
`

func TestParseAndPlayback(t *testing.T) {
	rec, err := Parse(strings.NewReader(sampleRecording))
	if err != nil {
		t.Fatal(err)
	}
	if rec.FrameCount() != 2 {
		t.Fatalf("FrameCount = %d, want 2 (blank lines skipped)", rec.FrameCount())
	}

	ctx := context.Background()

	frame, err := rec.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width() != 1280 || frame.Height() != 720 {
		t.Errorf("frame dims = %dx%d", frame.Width(), frame.Height())
	}

	dets, err := rec.Detector().Detect(ctx, frame)
	if err != nil {
		t.Fatal(err)
	}
	want := []anpr.Detection{
		{Box: geometry.NewBox(100, 80, 200, 130), Class: anpr.ClassPlate, Confidence: 0.9},
		{Box: geometry.NewBox(110, 190, 130, 210), Class: anpr.ClassWheel, Confidence: 0.8},
	}
	if diff := cmp.Diff(want, dets); diff != "" {
		t.Errorf("detections mismatch (-want +got):\n%s", diff)
	}

	crop, err := frame.Crop(geometry.NewBox(100, 80, 200, 130))
	if err != nil {
		t.Fatal(err)
	}
	if crop.Width() != 100 || crop.Height() != 50 {
		t.Errorf("crop dims = %dx%d", crop.Width(), crop.Height())
	}

	a, err := rec.EngineA().Recognize(ctx, crop)
	if err != nil {
		t.Fatal(err)
	}
	if a.Text != "ABC123" || a.Confidence != 90 {
		t.Errorf("engine A candidate = %+v", a)
	}
	b, err := rec.EngineB().Recognize(ctx, crop)
	if err != nil {
		t.Fatal(err)
	}
	if b.Text != "ABC128" || b.Confidence != 70 {
		t.Errorf("engine B candidate = %+v", b)
	}

	// Second frame defaults its dimensions.
	frame2, err := rec.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if frame2.Width() != defaultWidth || frame2.Height() != defaultHeight {
		t.Errorf("default dims = %dx%d", frame2.Width(), frame2.Height())
	}

	if _, err := rec.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("Next past end = %v, want io.EOF", err)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	if _, err := Parse(strings.NewReader("{not json}\n")); err == nil {
		t.Error("malformed JSON should fail")
	}

	bad := `{"detections":[{"box":[0,0,1,1],"class":"bicycle","confidence":0.5}]}`
	rec, err := Parse(strings.NewReader(bad))
	if err != nil {
		t.Fatal(err)
	}
	frame, err := rec.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Detector().Detect(context.Background(), frame); err == nil {
		t.Error("unknown detection class should fail")
	}
}

func TestRecordingDrivesPipeline(t *testing.T) {
	rec, err := Parse(strings.NewReader(sampleRecording))
	if err != nil {
		t.Fatal(err)
	}

	registry := anpr.NewRegistry(anpr.DefaultRegistryConfig(), nil)
	roi, err := anpr.NewROIGate(0.2, "")
	if err != nil {
		t.Fatal(err)
	}

	config := anpr.DefaultPipelineConfig()
	config.FrameSkip = 1

	pipeline := anpr.NewPipeline(config, registry, roi,
		rec.Detector(), rec.EngineA(), rec.EngineB(), anpr.PipelineOptions{})

	if err := pipeline.Run(context.Background(), rec); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snaps := registry.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("got %d tracks, want 1", len(snaps))
	}
	if snaps[0].Plate != "ABCI23" {
		t.Errorf("plate = %q, want ABCI23", snaps[0].Plate)
	}
	if snaps[0].State != anpr.StateLocked {
		t.Errorf("state = %q, want locked", snaps[0].State)
	}
}
