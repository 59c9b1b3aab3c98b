// Package vision binds the pipeline's frame contracts to OpenCV via
// gocv: video capture, Mat-backed frames, plate image storage and the
// annotated output stream.
package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/geometry"
)

// MatFrame adapts a gocv.Mat to the pipeline's Frame contract. The
// frame owns its Mat; Close releases the native memory.
type MatFrame struct {
	mat gocv.Mat
}

// NewMatFrame wraps an existing Mat. Ownership transfers to the frame.
func NewMatFrame(mat gocv.Mat) *MatFrame {
	return &MatFrame{mat: mat}
}

func (f *MatFrame) Width() int  { return f.mat.Cols() }
func (f *MatFrame) Height() int { return f.mat.Rows() }

// Mat exposes the underlying matrix for drawing and encoding. Callers
// must not close it; the frame owns it.
func (f *MatFrame) Mat() gocv.Mat { return f.mat }

// Crop copies the region into a new independent frame. The copy
// matters: recognition outlives the source frame, which is closed as
// soon as the pipeline moves to the next capture.
func (f *MatFrame) Crop(box geometry.Box) (anpr.Frame, error) {
	clamped := box.Clamp(f.Width(), f.Height())
	if clamped.Empty() {
		return nil, fmt.Errorf("crop region %+v is outside the frame", box)
	}

	region := f.mat.Region(image.Rect(clamped.X1, clamped.Y1, clamped.X2, clamped.Y2))
	defer region.Close()

	return &MatFrame{mat: region.Clone()}, nil
}

func (f *MatFrame) Close() error {
	return f.mat.Close()
}

// EncodeJPEG serializes the frame for storage or streaming.
func (f *MatFrame) EncodeJPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
