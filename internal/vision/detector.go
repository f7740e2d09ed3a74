package vision

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/wattanaa/ecopoint/internal/models"
)

// Detector wraps an SSD MobileNet v2 object-detection model through ONNX
// Runtime. It is loaded once per worker and shared across sessions; the
// session owns pre-allocated input/output tensors, so Detect must not be
// called concurrently.
type Detector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	boxesTensor  *ort.Tensor[float32]
	classTensor  *ort.Tensor[float32]
	scoreTensor  *ort.Tensor[float32]
	labels       []string
	inputW       int
	inputH       int
}

const (
	detectorInputW = 300
	detectorInputH = 300
	// maxDetections is the fixed candidate count the exported model emits.
	maxDetections = 100
	// scoreFloor drops obvious noise before NMS. The business confidence
	// threshold is applied later by the detection filter.
	scoreFloor float32 = 0.2
	nmsIoU     float32 = 0.45
)

// NewDetector loads the ONNX model and its label table.
// opts may be nil (ORT defaults) or a pre-configured *ort.SessionOptions.
func NewDetector(modelPath, labelsPath string, opts *ort.SessionOptions) (*Detector, error) {
	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	inputShape := ort.NewShape(1, 3, detectorInputH, detectorInputW)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// Output layout of the exported SSD head:
	//   boxes:   [1, 100, 4]  normalized ymin, xmin, ymax, xmax
	//   classes: [1, 100]     label index into the COCO table
	//   scores:  [1, 100]     confidence, descending
	boxesTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, maxDetections, 4))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create boxes tensor: %w", err)
	}
	classTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, maxDetections))
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		return nil, fmt.Errorf("create classes tensor: %w", err)
	}
	scoreTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, maxDetections))
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		classTensor.Destroy()
		return nil, fmt.Errorf("create scores tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"boxes", "classes", "scores"},
		[]ort.Value{inputTensor},
		[]ort.Value{boxesTensor, classTensor, scoreTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		classTensor.Destroy()
		scoreTensor.Destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:     session,
		inputTensor: inputTensor,
		boxesTensor: boxesTensor,
		classTensor: classTensor,
		scoreTensor: scoreTensor,
		labels:      labels,
		inputW:      detectorInputW,
		inputH:      detectorInputH,
	}, nil
}

// Detect runs inference on a preprocessed frame.
// imgData is CHW float32 [3, inputH, inputW], normalized to [-1, 1].
// origW/origH scale the normalized boxes back to frame pixel coordinates.
func (d *Detector) Detect(imgData []float32, origW, origH int) ([]models.Detection, error) {
	copy(d.inputTensor.GetData(), imgData)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	detections := d.parseDetections(origW, origH)
	detections = nms(detections, nmsIoU)

	return detections, nil
}

func (d *Detector) parseDetections(origW, origH int) []models.Detection {
	boxes := d.boxesTensor.GetData()
	classes := d.classTensor.GetData()
	scores := d.scoreTensor.GetData()

	var detections []models.Detection
	for i := 0; i < maxDetections; i++ {
		score := scores[i]
		if score < scoreFloor {
			continue
		}

		classIdx := int(classes[i])
		if classIdx < 0 || classIdx >= len(d.labels) {
			continue
		}

		x1 := clampF(boxes[i*4+1]*float32(origW), 0, float32(origW))
		y1 := clampF(boxes[i*4+0]*float32(origH), 0, float32(origH))
		x2 := clampF(boxes[i*4+3]*float32(origW), 0, float32(origW))
		y2 := clampF(boxes[i*4+2]*float32(origH), 0, float32(origH))

		detections = append(detections, models.Detection{
			BBox:       [4]float32{x1, y1, x2, y2},
			Label:      d.labels[classIdx],
			Confidence: score,
		})
	}
	return detections
}

// InputSize returns the model's expected input dimensions.
func (d *Detector) InputSize() (int, int) {
	return d.inputW, d.inputH
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.boxesTensor != nil {
		d.boxesTensor.Destroy()
	}
	if d.classTensor != nil {
		d.classTensor.Destroy()
	}
	if d.scoreTensor != nil {
		d.scoreTensor.Destroy()
	}
}

// loadLabels reads the class label table, one label per line.
func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s is empty", path)
	}
	return labels, nil
}

// nms performs Non-Maximum Suppression so one physical item yields one count.
func nms(detections []models.Detection, iouThreshold float32) []models.Detection {
	if len(detections) == 0 {
		return detections
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	keep := make([]bool, len(detections))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(detections); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(detections); j++ {
			if !keep[j] {
				continue
			}
			if iou(detections[i].BBox, detections[j].BBox) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var result []models.Detection
	for i, det := range detections {
		if keep[i] {
			result = append(result, det)
		}
	}
	return result
}

func iou(a, b [4]float32) float32 {
	x1 := float32(math.Max(float64(a[0]), float64(b[0])))
	y1 := float32(math.Max(float64(a[1]), float64(b[1])))
	x2 := float32(math.Min(float64(a[2]), float64(b[2])))
	y2 := float32(math.Min(float64(a[3]), float64(b[3])))

	intersection := float32(math.Max(0, float64(x2-x1))) * float32(math.Max(0, float64(y2-y1)))

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}
	return intersection / union
}

func clampF(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
