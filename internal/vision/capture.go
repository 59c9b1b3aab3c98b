package vision

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/gatevision/platewatch/internal/anpr"
)

// Capture reads frames from a camera device or video file and hands
// them to the pipeline as Mat-backed frames.
type Capture struct {
	video  *gocv.VideoCapture
	source string
}

// OpenCapture opens a video source. A numeric source is treated as a
// camera device index, anything else as a file path or stream URL.
func OpenCapture(source string) (*Capture, error) {
	var (
		video *gocv.VideoCapture
		err   error
	)
	if idx, convErr := strconv.Atoi(source); convErr == nil {
		video, err = gocv.OpenVideoCapture(idx)
	} else {
		video, err = gocv.VideoCaptureFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %q: %w", source, err)
	}
	return &Capture{video: video, source: source}, nil
}

// Next reads one frame. It returns io.EOF when the source is exhausted,
// which a file source hits at its last frame and a camera never does.
func (c *Capture) Next(ctx context.Context) (anpr.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.NewMat()
	if ok := c.video.Read(&mat); !ok {
		mat.Close()
		return nil, io.EOF
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("video source %q produced an empty frame", c.source)
	}
	return NewMatFrame(mat), nil
}

// Close releases the underlying capture device.
func (c *Capture) Close() error {
	return c.video.Close()
}
