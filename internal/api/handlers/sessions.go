package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wattanaa/ecopoint/internal/config"
	"github.com/wattanaa/ecopoint/internal/ingest"
	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/queue"
	"github.com/wattanaa/ecopoint/internal/scan"
	"github.com/wattanaa/ecopoint/internal/storage"
	"github.com/wattanaa/ecopoint/pkg/dto"
)

type SessionHandler struct {
	db       *storage.PostgresStore
	producer *queue.Producer
	registry *scan.Registry
	ledger   *loyalty.Ledger
	cfg      config.VisionConfig
}

func NewSessionHandler(db *storage.PostgresStore, producer *queue.Producer, registry *scan.Registry, ledger *loyalty.Ledger, cfg config.VisionConfig) *SessionHandler {
	return &SessionHandler{db: db, producer: producer, registry: registry, ledger: ledger, cfg: cfg}
}

// Create opens a scan session and tells the ingestor to start capturing.
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	user, err := h.db.GetUser(ctx, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	fps := req.FPS
	if fps <= 0 {
		fps = h.cfg.DefaultFPS
	}
	if fps > h.cfg.MaxFPS {
		fps = h.cfg.MaxFPS
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = ingest.GuessSourceType(req.SourceURL)
	}

	// CreateSession assigns the id, the starting status and both timestamps.
	sess := &models.ScanSession{
		UserID:     req.UserID,
		SourceURL:  req.SourceURL,
		SourceType: sourceType,
		FPS:        fps,
	}
	if err := h.db.CreateSession(ctx, sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.publishCommand(ingest.ScanCommand{
		Action:     ingest.CommandStart,
		SessionID:  sess.ID,
		SourceURL:  sess.SourceURL,
		SourceType: sess.SourceType,
		FPS:        sess.FPS,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.SessionResponse{Session: sess})
}

// Get returns the session with its current smoothed counts.
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}

	counts := h.registry.Counts(sess.ID)
	c.JSON(http.StatusOK, dto.SessionResponse{Session: sess, Counts: &counts})
}

// Stop halts capture without awarding points. The cached counts survive so
// the user can still confirm afterwards.
func (h *SessionHandler) Stop(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}

	if err := h.publishCommand(ingest.ScanCommand{Action: ingest.CommandStop, SessionID: sess.ID}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if sess.Status == models.SessionStatusStarting || sess.Status == models.SessionStatusScanning {
		if err := h.db.UpdateSessionStatus(ctx, sess.ID, models.SessionStatusStopped, ""); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		sess.Status = models.SessionStatusStopped
	}

	counts := h.registry.Counts(sess.ID)
	c.JSON(http.StatusOK, dto.SessionResponse{Session: sess, Counts: &counts})
}

// Confirm turns the session's smoothed counts into points: base points from
// the configured rates, multiplied by the user's tier bonus at the moment of
// confirmation, rounded half-up once.
func (h *SessionHandler) Confirm(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	if sess.Status == models.SessionStatusConfirmed {
		c.JSON(http.StatusConflict, gin.H{"error": "session already confirmed"})
		return
	}

	ctx := c.Request.Context()

	result, err := h.ledger.ConfirmScan(ctx, sess.UserID, h.registry.Counts(sess.ID))
	if err != nil {
		switch {
		case errors.Is(err, loyalty.ErrConfigNotReady):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, loyalty.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, loyalty.ErrNothingDetected):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	// Best effort: the points are committed, so a failed stop command only
	// leaves the camera running until its own error handling kicks in.
	if err := h.publishCommand(ingest.ScanCommand{Action: ingest.CommandStop, SessionID: sess.ID}); err != nil {
		slog.Warn("publish stop command", "session_id", sess.ID, "error", err)
	}
	if err := h.db.UpdateSessionStatus(ctx, sess.ID, models.SessionStatusConfirmed, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.registry.Forget(sess.ID)

	c.JSON(http.StatusOK, dto.ConfirmResponse{
		User:         result.User,
		Counts:       result.Counts,
		EarnedPoints: result.EarnedPoints,
		FinalPoints:  result.FinalPoints,
		TierBonus:    result.TierBonus,
	})
}

func (h *SessionHandler) loadSession(c *gin.Context) (*models.ScanSession, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, false
	}

	sess, err := h.db.GetSession(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) publishCommand(cmd ingest.ScanCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return h.producer.PublishControl(data)
}
