package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wattanaa/ecopoint/internal/config"
	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/observability"
	"github.com/wattanaa/ecopoint/internal/queue"
	"github.com/wattanaa/ecopoint/internal/storage"
)

// Pipeline turns one frame task into one scan update: it loads the frame,
// runs detection, filters to recyclable categories and pushes the counts
// through the session's smoothing window before publishing.
// A window lives only while its scan session is active and is dropped on
// EndSession.
type Pipeline struct {
	detector *Detector
	minio    *storage.MinIOStore
	producer *queue.Producer
	cfg      config.VisionConfig

	mu        sync.Mutex
	smoothers map[uuid.UUID]*Smoother

	// inference guards the detector's shared tensors; frame tasks from the
	// queue may be handled by multiple worker goroutines.
	inference sync.Mutex
}

// NewPipeline loads the ONNX model and returns a ready pipeline.
func NewPipeline(cfg config.VisionConfig, minio *storage.MinIOStore, producer *queue.Producer) (*Pipeline, error) {
	slog.Info("loading detection model", "path", cfg.ModelPath)
	det, err := NewDetector(cfg.ModelPath, cfg.LabelsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("detection pipeline ready",
		"threshold", cfg.ConfidenceThreshold,
		"window", cfg.SmoothingWindow,
	)

	return &Pipeline{
		detector:  det,
		minio:     minio,
		producer:  producer,
		cfg:       cfg,
		smoothers: make(map[uuid.UUID]*Smoother),
	}, nil
}

/// ProcessFrame handles one frame task end to end. Errors are per-frame: the
// caller logs them and moves on to the next frame, the session keeps running.
func (p *Pipeline) ProcessFrame(ctx context.Context, task models.FrameTask) error {
	frameData, err := p.minio.GetObject(ctx, task.FrameRef)
	if err != nil {
		return fmt.Errorf("load frame: %w", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(frameData))
	if err != nil {
		return fmt.Errorf("decode jpeg: %w", err)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start := time.Now()
	input := preprocessFrame(img, p.detector.inputW, p.detector.inputH)
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	p.inference.Lock()
	raw, err := p.detector.Detect(input, origW, origH)
	p.inference.Unlock()
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	observability.FramesProcessed.WithLabelValues(task.SessionID.String()).Inc()

	kept, frameCounts := FilterFrame(raw, float32(p.cfg.ConfidenceThreshold))

	observability.ItemsDetected.WithLabelValues("bottle").Add(float64(frameCounts.Bottles))
	observability.ItemsDetected.WithLabelValues("cup").Add(float64(frameCounts.Cups))
	observability.ItemsDetected.WithLabelValues("glass").Add(float64(frameCounts.Glass))

	smoothed := p.smoother(task.SessionID).Push(frameCounts)

	update := models.ScanUpdate{
		SessionID:  task.SessionID,
		Timestamp:  task.Timestamp,
		Detections: kept,
		Counts:     smoothed,
	}

	if err := p.producer.PublishScanUpdate(ctx, task.SessionID.String(), update); err != nil {
		return fmt.Errorf("publish scan update: %w", err)
	}

	return nil
}

// EndSession discards the session's smoothing window. Called when a scan is
// stopped or confirmed; partial windows are never persisted.
func (p *Pipeline) EndSession(sessionID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.smoothers, sessionID)
}

// SessionCount returns the number of sessions with live smoothing windows.
func (p *Pipeline) SessionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.smoothers)
}

func (p *Pipeline) smoother(sessionID uuid.UUID) *Smoother {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.smoothers[sessionID]; ok {
		return s
	}
	s := NewSmoother(p.cfg.SmoothingWindow)
	p.smoothers[sessionID] = s
	return s
}

// Close releases the ONNX session.
func (p *Pipeline) Close() {
	if p.detector != nil {
		p.detector.Close()
	}
}

// preprocessFrame resizes and normalizes a frame for the SSD input:
// CHW float32, pixel = (pixel - 127.5) / 127.5.
func preprocessFrame(img image.Image, targetW, targetH int) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			rf := float32(r >> 8)
			gf := float32(g >> 8)
			bf := float32(b >> 8)

			idx := y*w + x
			data[0*h*w+idx] = (rf - 127.5) / 127.5
			data[1*h*w+idx] = (gf - 127.5) / 127.5
			data[2*h*w+idx] = (bf - 127.5) / 127.5
		}
	}

	return data
}

// resizeImage performs nearest-neighbour resize (fast, good enough for ML input).
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	return dst
}
