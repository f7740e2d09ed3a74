package models

import (
	"time"

	"github.com/google/uuid"
)

// Detection is one raw model prediction for a single frame.
// Never persisted; it only travels from worker to the overlay feed.
type Detection struct {
	BBox       [4]float32 `json:"bbox"` // x1, y1, x2, y2 (pixel coordinates)
	Label      string     `json:"label"`
	Confidence float32    `json:"confidence"`
}

// CategoryCount is the number of recyclable items seen in one frame,
// or the smoothed aggregate for a scan session.
type CategoryCount struct {
	Bottles int `json:"bottles"`
	Cups    int `json:"cups"`
	Glass   int `json:"glass"`
}

// Add accumulates another count into c.
func (c *CategoryCount) Add(other CategoryCount) {
	c.Bottles += other.Bottles
	c.Cups += other.Cups
	c.Glass += other.Glass
}

// Total is the number of items across all categories.
func (c CategoryCount) Total() int {
	return c.Bottles + c.Cups + c.Glass
}

type SessionStatus string

const (
	SessionStatusStarting  SessionStatus = "starting"
	SessionStatusScanning  SessionStatus = "scanning"
	SessionStatusStopped   SessionStatus = "stopped"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusError     SessionStatus = "error"
)

type SourceType string

const (
	SourceTypeDevice SourceType = "device" // local camera, e.g. /dev/video0
	SourceTypeRTSP   SourceType = "rtsp"
	SourceTypeHTTP   SourceType = "http"
)

// ScanSession is one user's live scanning run: the camera is open, frames
// flow through the detector, and a smoothing window accumulates counts until
// the user confirms or walks away.
type ScanSession struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	UserID       uuid.UUID     `json:"user_id" db:"user_id"`
	SourceURL    string        `json:"source_url" db:"source_url"`
	SourceType   SourceType    `json:"source_type" db:"source_type"`
	FPS          int           `json:"fps" db:"fps"`
	Status       SessionStatus `json:"status" db:"status"`
	ErrorMessage string        `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// FrameTask is the message the ingestor publishes for each captured frame.
type FrameTask struct {
	SessionID uuid.UUID `json:"session_id"`
	FrameID   uuid.UUID `json:"frame_id"`
	Timestamp time.Time `json:"timestamp"`
	FrameRef  string    `json:"frame_ref"` // MinIO object key
}

// ScanUpdate is the per-frame output of the detection worker: the detections
// that survived filtering (for overlay drawing) plus the smoothed counts.
type ScanUpdate struct {
	SessionID  uuid.UUID     `json:"session_id"`
	Timestamp  time.Time     `json:"timestamp"`
	Detections []Detection   `json:"detections"`
	Counts     CategoryCount `json:"counts"`
}
