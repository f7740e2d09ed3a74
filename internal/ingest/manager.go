package ingest

import (
	"context"
	"encoding/json"
	"fmt"
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

const (
	CommandStart = "start"
	CommandStop  = "stop"
)

// ScanCommand is the control message the API publishes when a user starts or
// stops a scan session.
type ScanCommand struct {
	Action     string            `json:"action"`
	SessionID  uuid.UUID         `json:"session_id"`
	SourceURL  string            `json:"source_url,omitempty"`
	SourceType models.SourceType `json:"source_type,omitempty"`
	FPS        int               `json:"fps,omitempty"`
}

// ParseCommand decodes a control-subject payload.
func ParseCommand(data []byte) (ScanCommand, error) {
	var cmd ScanCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("unmarshal scan command: %w", err)
	}
	if cmd.Action != CommandStart && cmd.Action != CommandStop {
		return cmd, fmt.Errorf("unknown scan command action %q", cmd.Action)
	}
	if cmd.SessionID == uuid.Nil {
		return cmd, fmt.Errorf("scan command missing session id")
	}
	return cmd, nil
}

// SessionStore is the slice of the persistence layer the ingestor needs:
// it only reports capture status back, it never reads loyalty data.
type SessionStore interface {
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, errMsg string) error
}

type runningCapture struct {
	capture *FFmpegCapture
	cancel  context.CancelFunc
}

// Manager runs one FFmpeg capture per active scan session, uploads frames to
// object storage and publishes a task per frame for the detection workers.
type Manager struct {
	store    SessionStore
	frames   *storage.MinIOStore
	producer *queue.Producer
	cfg      config.VisionConfig

	mu       sync.Mutex
	captures map[uuid.UUID]*runningCapture
	wg       sync.WaitGroup
}

func NewManager(store SessionStore, frames *storage.MinIOStore, producer *queue.Producer, cfg config.VisionConfig) *Manager {
	return &Manager{
		store:    store,
		frames:   frames,
		producer: producer,
		cfg:      cfg,
		captures: make(map[uuid.UUID]*runningCapture),
	}
}

// Handle dispatches a parsed control command.
func (m *Manager) Handle(ctx context.Context, cmd ScanCommand) {
	switch cmd.Action {
	case CommandStart:
		m.StartSession(ctx, cmd)
	case CommandStop:
		m.StopSession(cmd.SessionID)
	}
}

// StartSession begins capturing for a session. Idempotent: a second start for
// an already-running session is ignored.
func (m *Manager) StartSession(ctx context.Context, cmd ScanCommand) {
	m.mu.Lock()
	if _, running := m.captures[cmd.SessionID]; running {
		m.mu.Unlock()
		slog.Warn("session already capturing", "session_id", cmd.SessionID)
		return
	}

	fps := cmd.FPS
	if fps <= 0 {
		fps = m.cfg.DefaultFPS
	}
	if fps > m.cfg.MaxFPS {
		fps = m.cfg.MaxFPS
	}

	sourceType := cmd.SourceType
	if sourceType == "" {
		sourceType = GuessSourceType(cmd.SourceURL)
	}

	capCtx, cancel := context.WithCancel(ctx)
	rc := &runningCapture{capture: &FFmpegCapture{}, cancel: cancel}
	m.captures[cmd.SessionID] = rc
	observability.ActiveSessions.Set(float64(len(m.captures)))
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.removeCapture(cmd.SessionID)
		m.runCapture(capCtx, rc.capture, cmd.SessionID, cmd.SourceURL, sourceType, fps)
	}()
}

// runCapture drives FFmpeg with retries. Transient source failures back off
// 2s, 4s, 8s; after three consecutive failures the session goes to error.
func (m *Manager) runCapture(ctx context.Context, capture *FFmpegCapture, sessionID uuid.UUID, sourceURL string, sourceType models.SourceType, fps int) {
	const maxRetries = 3

	m.updateStatus(ctx, sessionID, models.SessionStatusScanning, "")
	slog.Info("capture started",
		"session_id", sessionID,
		"source_type", sourceType,
		"fps", fps,
	)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			slog.Warn("capture retrying",
				"session_id", sessionID,
				"attempt", attempt+1,
				"backoff", backoff,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				m.updateStatus(context.Background(), sessionID, models.SessionStatusStopped, "")
				return
			case <-time.After(backoff):
			}
		}

		err := capture.Start(ctx, sourceURL, sourceType, fps, m.cfg.FrameWidth, m.frameCallback(ctx, sessionID))
		if err == nil || ctx.Err() != nil {
			m.updateStatus(context.Background(), sessionID, models.SessionStatusStopped, "")
			slog.Info("capture ended", "session_id", sessionID)
			return
		}
		lastErr = err
	}

	slog.Error("capture failed", "session_id", sessionID, "error", lastErr)
	m.updateStatus(context.Background(), sessionID, models.SessionStatusError, lastErr.Error())
}

// frameCallback uploads one frame and enqueues its detection task.
func (m *Manager) frameCallback(ctx context.Context, sessionID uuid.UUID) FrameCallback {
	return func(frameData []byte) error {
		frameID := uuid.New()
		key := fmt.Sprintf("frames/%s/%s.jpg", sessionID, frameID)

		if err := m.frames.PutObject(ctx, key, frameData, "image/jpeg"); err != nil {
			return fmt.Errorf("upload frame: %w", err)
		}

		// The worker re-derives the frame dimensions from the decoded
		// JPEG, so the task carries only the object reference.
		task := models.FrameTask{
			SessionID: sessionID,
			FrameID:   frameID,
			Timestamp: time.Now().UTC(),
			FrameRef:  key,
		}
		if err := m.producer.PublishFrame(ctx, sessionID.String(), task); err != nil {
			return fmt.Errorf("publish frame task: %w", err)
		}
		return nil
	}
}

// StopSession stops a running capture. Unknown session IDs are ignored so a
// stop command arriving after the capture died is harmless.
func (m *Manager) StopSession(sessionID uuid.UUID) {
	m.mu.Lock()
	rc, ok := m.captures[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}

	slog.Info("stopping capture", "session_id", sessionID)
	rc.cancel()
	rc.capture.Stop()
}

func (m *Manager) removeCapture(sessionID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.captures, sessionID)
	observability.ActiveSessions.Set(float64(len(m.captures)))
}

// ActiveCount returns the number of sessions currently capturing.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.captures)
}

// StopAll stops every capture and waits for their goroutines to finish.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.captures))
	for id := range m.captures {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.StopSession(id)
	}
	m.wg.Wait()
}

func (m *Manager) updateStatus(ctx context.Context, sessionID uuid.UUID, status models.SessionStatus, errMsg string) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.store.UpdateSessionStatus(opCtx, sessionID, status, errMsg); err != nil {
		slog.Error("update session status", "session_id", sessionID, "status", status, "error", err)
	}
}
