package vision

import (
	"context"
	"fmt"
	"image"

	"github.com/swdee/go-rknnlite"
	"github.com/swdee/go-rknnlite/postprocess"
	"gocv.io/x/gocv"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/geometry"
)

// Tensor input sizes for the compiled models.
const (
	yoloInputWidth  = 640
	yoloInputHeight = 640

	lprInputWidth  = 94
	lprInputHeight = 24

	ocrInputWidth  = 320
	ocrInputHeight = 48
)

// lprConfidence is the nominal confidence assigned to an LPRNet
// reading. The model emits no per-plate score, so a scored reading
// from the other engine wins fusion whenever it is stronger.
const lprConfidence = 70.0

// Detection model class indexes.
const (
	classIndexPlate = 0
	classIndexWheel = 1
)

// YOLODetector runs a compiled YOLOv8 model trained on plate and wheel
// classes on the NPU.
type YOLODetector struct {
	rt        *rknnlite.Runtime
	processor *postprocess.YOLOv8
}

func NewYOLODetector(modelPath string) (*YOLODetector, error) {
	rt, err := rknnlite.NewRuntime(modelPath, rknnlite.NPUCoreAuto)
	if err != nil {
		return nil, fmt.Errorf("failed to init detection runtime: %w", err)
	}
	rt.SetWantFloat(false)

	return &YOLODetector{
		rt: rt,
		processor: postprocess.NewYOLOv8(postprocess.YOLOv8Params{
			BoxThreshold:    0.25,
			NMSThreshold:    0.45,
			ObjectClassNum:  2,
			MaxObjectNumber: 64,
		}),
	}, nil
}

// Detect implements anpr.Detector for Mat-backed frames.
func (d *YOLODetector) Detect(ctx context.Context, frame anpr.Frame) ([]anpr.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mf, ok := frame.(*MatFrame)
	if !ok {
		return nil, fmt.Errorf("frame is not Mat-backed")
	}
	img := mf.Mat()
	if img.Empty() {
		return nil, fmt.Errorf("source frame is empty")
	}

	rgbImg := gocv.NewMat()
	gocv.CvtColor(img, &rgbImg, gocv.ColorBGRToRGB)
	defer rgbImg.Close()

	cropImg := gocv.NewMat()
	gocv.Resize(rgbImg, &cropImg, image.Pt(yoloInputWidth, yoloInputHeight), 0, 0, gocv.InterpolationArea)
	defer cropImg.Close()

	outputs, err := d.rt.Inference([]gocv.Mat{cropImg})
	if err != nil {
		return nil, fmt.Errorf("detection inference failed: %w", err)
	}
	defer outputs.Free()

	// Model space is 640x640; scale boxes back to the source frame.
	widthScale := float64(img.Cols()) / float64(yoloInputWidth)
	heightScale := float64(img.Rows()) / float64(yoloInputHeight)

	var dets []anpr.Detection
	for _, res := range d.processor.DetectObjects(outputs) {
		box := geometry.NewBox(
			int(float64(res.Box.Left)*widthScale),
			int(float64(res.Box.Top)*heightScale),
			int(float64(res.Box.Right)*widthScale),
			int(float64(res.Box.Bottom)*heightScale),
		)

		var class anpr.Class
		switch res.Class {
		case classIndexPlate:
			class = anpr.ClassPlate
		case classIndexWheel:
			class = anpr.ClassWheel
		default:
			continue
		}

		dets = append(dets, anpr.Detection{
			Box:        box,
			Class:      class,
			Confidence: float64(res.Probability),
		})
	}
	return dets, nil
}

func (d *YOLODetector) Close() error {
	if err := d.rt.Close(); err != nil {
		return fmt.Errorf("failed to close detection runtime: %w", err)
	}
	return nil
}

// lprChars is the character set the LPRNet model was trained with.
var lprChars = []string{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"A", "B", "C", "D", "E", "F", "G", "H", "J", "K",
	"L", "M", "N", "P", "Q", "R", "S", "T", "U", "V",
	"W", "X", "Y", "Z", "I", "O", "-",
}

// LPRNetRecognizer reads plate text with a compiled LPRNet model.
type LPRNetRecognizer struct {
	rt        *rknnlite.Runtime
	processor *postprocess.LPRNet
}

func NewLPRNetRecognizer(modelPath string) (*LPRNetRecognizer, error) {
	rt, err := rknnlite.NewRuntime(modelPath, rknnlite.NPUCoreAuto)
	if err != nil {
		return nil, fmt.Errorf("failed to init LPRNet runtime: %w", err)
	}

	return &LPRNetRecognizer{
		rt: rt,
		processor: postprocess.NewLPRNet(postprocess.LPRNetParams{
			PlatePositions: 18,
			PlateChars:     lprChars,
		}),
	}, nil
}

// Recognize implements anpr.Recognizer.
func (r *LPRNetRecognizer) Recognize(ctx context.Context, crop anpr.Frame) (anpr.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return anpr.Candidate{}, err
	}
	mf, ok := crop.(*MatFrame)
	if !ok {
		return anpr.Candidate{}, fmt.Errorf("crop is not Mat-backed")
	}

	resized := gocv.NewMat()
	gocv.Resize(mf.Mat(), &resized, image.Pt(lprInputWidth, lprInputHeight), 0, 0, gocv.InterpolationArea)
	defer resized.Close()

	outputs, err := r.rt.Inference([]gocv.Mat{resized})
	if err != nil {
		return anpr.Candidate{}, fmt.Errorf("LPRNet inference failed: %w", err)
	}
	defer outputs.Free()

	plates := r.processor.ReadPlates(outputs)
	if len(plates) != 1 || plates[0] == "" {
		return anpr.Candidate{}, nil
	}
	return anpr.Candidate{Text: plates[0], Confidence: lprConfidence}, nil
}

func (r *LPRNetRecognizer) Close() error {
	if err := r.rt.Close(); err != nil {
		return fmt.Errorf("failed to close LPRNet runtime: %w", err)
	}
	return nil
}

// PPOCRRecognizer reads plate text with a compiled PPOCRv4 recognition
// model. Unlike LPRNet it produces a per-reading confidence score.
type PPOCRRecognizer struct {
	rt        *rknnlite.Runtime
	processor *postprocess.PPOCRRecognise
}

func NewPPOCRRecognizer(modelPath, keysPath string) (*PPOCRRecognizer, error) {
	rt, err := rknnlite.NewRuntime(modelPath, rknnlite.NPUCoreAuto)
	if err != nil {
		return nil, fmt.Errorf("failed to init PPOCR runtime: %w", err)
	}
	rt.SetInputTypeFloat32(true)

	modelChars, err := rknnlite.LoadLabels(keysPath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to load OCR character keys: %w", err)
	}

	return &PPOCRRecognizer{
		rt: rt,
		processor: postprocess.NewPPOCRRecognise(postprocess.PPOCRRecogniseParams{
			ModelChars:   modelChars,
			OutputSeqLen: ocrInputWidth / 8,
		}),
	}, nil
}

// Recognize implements anpr.Recognizer.
func (r *PPOCRRecognizer) Recognize(ctx context.Context, crop anpr.Frame) (anpr.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return anpr.Candidate{}, err
	}
	mf, ok := crop.(*MatFrame)
	if !ok {
		return anpr.Candidate{}, fmt.Errorf("crop is not Mat-backed")
	}

	resized := gocv.NewMat()
	gocv.Resize(mf.Mat(), &resized, image.Pt(ocrInputWidth, ocrInputHeight), 0, 0, gocv.InterpolationArea)

	// Model expects float32 input normalized to [-1, 1].
	resized.ConvertTo(&resized, gocv.MatTypeCV32FC3)
	resized.AddFloat(-127.5)
	resized.DivideFloat(127.5)
	defer resized.Close()

	outputs, err := r.rt.Inference([]gocv.Mat{resized})
	if err != nil {
		return anpr.Candidate{}, fmt.Errorf("PPOCR inference failed: %w", err)
	}
	defer outputs.Free()

	results := r.processor.Recognise(outputs)
	if len(results) == 0 || results[0].Text == "" || results[0].Score <= 0 {
		return anpr.Candidate{}, nil
	}
	return anpr.Candidate{
		Text:       results[0].Text,
		Confidence: float64(results[0].Score) * 100,
	}, nil
}

func (r *PPOCRRecognizer) Close() error {
	if err := r.rt.Close(); err != nil {
		return fmt.Errorf("failed to close PPOCR runtime: %w", err)
	}
	return nil
}
