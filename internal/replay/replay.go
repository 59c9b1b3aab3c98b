// Package replay feeds a JSONL recording of per-frame detections and
// recognition readings through the pipeline, so thresholds and fusion
// behaviour can be tuned offline without a camera or NPU models.
//
// Each line of a recording is one frame:
//
//	{"width":1920,"height":1080,
//	 "detections":[{"box":[100,80,200,130],"class":"plate","confidence":0.9}],
//	 "engine_a":{"text":"ABC123","confidence":90},
//	 "engine_b":{"text":"ABC128","confidence":70}}
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/geometry"
)

const (
	defaultWidth  = 1920
	defaultHeight = 1080
)

// Reading is one recorded recognition engine result.
type Reading struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type recordedDetection struct {
	Box        [4]int  `json:"box"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type recordedFrame struct {
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Detections []recordedDetection `json:"detections"`
	EngineA    Reading             `json:"engine_a"`
	EngineB    Reading             `json:"engine_b"`
}

// Recording is a loaded JSONL recording. It acts as the pipeline's
// frame source; Detector, EngineA and EngineB provide the matching
// detection and recognition stand-ins.
type Recording struct {
	frames []recordedFrame
	pos    int
}

// Load parses a JSONL recording file.
func Load(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	rec, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// Parse reads a JSONL recording from r.
func Parse(r io.Reader) (*Recording, error) {
	var frames []recordedFrame

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var frame recordedFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if frame.Width <= 0 {
			frame.Width = defaultWidth
		}
		if frame.Height <= 0 {
			frame.Height = defaultHeight
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return &Recording{frames: frames}, nil
}

// FrameCount returns the number of recorded frames.
func (r *Recording) FrameCount() int { return len(r.frames) }

// Next implements anpr.FrameSource.
func (r *Recording) Next(ctx context.Context) (anpr.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.frames) {
		return nil, io.EOF
	}
	frame := &Frame{rec: r.frames[r.pos]}
	r.pos++
	return frame, nil
}

// Frame is a pixel-less stand-in frame backed by a recording entry.
type Frame struct {
	rec    recordedFrame
	width  int
	height int
}

func (f *Frame) Width() int {
	if f.width > 0 {
		return f.width
	}
	return f.rec.Width
}

func (f *Frame) Height() int {
	if f.height > 0 {
		return f.height
	}
	return f.rec.Height
}

// Crop returns a frame that still carries the recording entry, so the
// recognition stand-ins can resolve their readings from the crop.
func (f *Frame) Crop(box geometry.Box) (anpr.Frame, error) {
	if box.Empty() {
		return nil, fmt.Errorf("crop region %+v is empty", box)
	}
	return &Frame{rec: f.rec, width: box.Width(), height: box.Height()}, nil
}

func (f *Frame) Close() error { return nil }

// Detector returns the recorded detections for each frame.
func (r *Recording) Detector() anpr.Detector { return detector{} }

type detector struct{}

func (detector) Detect(ctx context.Context, frame anpr.Frame) ([]anpr.Detection, error) {
	rf, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("frame is not a replay frame")
	}

	dets := make([]anpr.Detection, 0, len(rf.rec.Detections))
	for _, d := range rf.rec.Detections {
		var class anpr.Class
		switch d.Class {
		case "plate":
			class = anpr.ClassPlate
		case "wheel":
			class = anpr.ClassWheel
		default:
			return nil, fmt.Errorf("unknown detection class %q", d.Class)
		}
		dets = append(dets, anpr.Detection{
			Box:        geometry.NewBox(d.Box[0], d.Box[1], d.Box[2], d.Box[3]),
			Class:      class,
			Confidence: d.Confidence,
		})
	}
	return dets, nil
}

// EngineA returns a recognizer playing back the first engine's
// readings.
func (r *Recording) EngineA() anpr.Recognizer {
	return engine{pick: func(f *Frame) Reading { return f.rec.EngineA }}
}

// EngineB returns a recognizer playing back the second engine's
// readings.
func (r *Recording) EngineB() anpr.Recognizer {
	return engine{pick: func(f *Frame) Reading { return f.rec.EngineB }}
}

type engine struct {
	pick func(*Frame) Reading
}

func (e engine) Recognize(ctx context.Context, crop anpr.Frame) (anpr.Candidate, error) {
	rf, ok := crop.(*Frame)
	if !ok {
		return anpr.Candidate{}, fmt.Errorf("crop is not a replay frame")
	}
	reading := e.pick(rf)
	return anpr.Candidate{Text: reading.Text, Confidence: reading.Confidence}, nil
}
