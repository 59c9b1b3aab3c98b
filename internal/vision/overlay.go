package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/geometry"
)

var (
	clrTracking = color.RGBA{R: 0, G: 200, B: 255, A: 0}
	clrLocked   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	clrROI      = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	clrText     = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Annotator draws track state onto outgoing frames for the live view.
type Annotator struct {
	roi *anpr.ROIGate
}

func NewAnnotator(roi *anpr.ROIGate) *Annotator {
	return &Annotator{roi: roi}
}

// Draw renders the scanning zone and every track's box and label
// directly onto the frame's Mat. The frame must be Mat-backed.
func (a *Annotator) Draw(frame *MatFrame, tracks []anpr.TrackSnapshot) {
	mat := frame.Mat()

	if a.roi != nil {
		if box, ok := a.roi.Get(); ok {
			gocv.Rectangle(&mat, rect(box), clrROI, 2)
			gocv.PutText(&mat, "scan zone", image.Pt(box.X1+4, box.Y1-6),
				gocv.FontHersheySimplex, 0.5, clrROI, 1)
		}
	}

	for _, t := range tracks {
		box := t.LastBox
		if box.Empty() {
			continue
		}

		clr := clrTracking
		if t.State == anpr.StateLocked {
			clr = clrLocked
		}
		gocv.Rectangle(&mat, rect(box), clr, 2)

		label := fmt.Sprintf("#%d", t.ID)
		if t.Plate != "" {
			label = fmt.Sprintf("#%d %s %.0f%% axles:%d", t.ID, t.Plate, t.Confidence, t.AxleCount)
		}
		origin := image.Pt(box.X1, box.Y1-8)
		if origin.Y < 12 {
			origin.Y = box.Y2 + 16
		}

		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.5, 1)
		bg := image.Rect(origin.X, origin.Y-size.Y-2, origin.X+size.X+4, origin.Y+4)
		gocv.Rectangle(&mat, bg, clr, -1)
		gocv.PutText(&mat, label, image.Pt(origin.X+2, origin.Y),
			gocv.FontHersheySimplex, 0.5, clrText, 1)
	}
}

func rect(b geometry.Box) image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}
