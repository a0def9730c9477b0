// Package detect provides object detector adapters for the scan engine:
// a local gocv/ONNX YOLO detector and an HTTP client for a remote
// inference service. Both satisfy scan.Detector.
package detect

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/framelab/go-reframe/pkg/geometry"
	"github.com/framelab/go-reframe/pkg/scan"
)

// YOLOConfig holds local detector configuration.
type YOLOConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
}

// DefaultYOLOConfig returns production defaults for YOLOv8n.
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.25,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// YOLO runs YOLOv8 object detection through OpenCV's DNN module.
// Boxes are returned in source-bitmap pixel space.
type YOLO struct {
	net       gocv.Net
	config    YOLOConfig
	inputSize image.Point

	mu     sync.Mutex // protects inference; the net is not reentrant
	warmed bool
}

// NewYOLO loads the ONNX model from disk.
func NewYOLO(cfg YOLOConfig) (*YOLO, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("detect: model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("detect: failed to load model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLO{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// WarmUp runs one forward pass on a blank input so the first scanned
// frame pays inference cost only. Subsequent calls are cheap no-ops.
func (d *YOLO) WarmUp(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.warmed {
		return nil
	}

	blank := gocv.NewMatWithSize(d.config.InputHeight, d.config.InputWidth, gocv.MatTypeCV8UC3)
	defer blank.Close()

	blob := gocv.BlobFromImage(blank, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	out.Close()

	d.warmed = true
	return nil
}

// Detect finds objects in the JPEG frame.
func (d *YOLO) Detect(ctx context.Context, frame []byte) ([]scan.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("detect: decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parseOutput(output, imgW, imgH), nil
}

// parseOutput decodes the YOLOv8 output tensor.
// Shape is [1, 84, 8400]: 4 box coordinates plus 80 class scores per
// candidate, transposed relative to detection order.
func (d *YOLO) parseOutput(output gocv.Mat, imgW, imgH float32) []scan.Detection {
	rows := output.Cols() // candidates
	cols := output.Rows() // 4 + classes

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil
	}

	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < cols; c++ {
			if score := data[c*rows+i]; score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}
		if maxScore < d.config.ConfidenceThresh {
			continue
		}

		// Center-form box in model input scale.
		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		x1 := int((cx - w/2) * imgW / float32(d.config.InputWidth))
		y1 := int((cy - h/2) * imgH / float32(d.config.InputHeight))
		x2 := int((cx + w/2) * imgW / float32(d.config.InputWidth))
		y2 := int((cy + h/2) * imgH / float32(d.config.InputHeight))

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)

	detections := make([]scan.Detection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx]
		detections = append(detections, scan.Detection{
			Class: COCOClasses[classIDs[idx]],
			Box: geometry.Box{
				X: float64(box.Min.X),
				Y: float64(box.Min.Y),
				W: float64(box.Dx()),
				H: float64(box.Dy()),
			},
			Score: float64(confidences[idx]),
		})
	}
	return detections
}

// Close releases the detector resources.
func (d *YOLO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// COCOClasses contains the 80 COCO class names in model output order.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// Verify interface at compile time.
var _ scan.Detector = (*YOLO)(nil)
