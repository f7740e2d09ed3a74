// Package dto holds the request and response shapes of the HTTP and
// WebSocket API. Persistence models are kept separate so wire changes
// never force schema changes.
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/wattanaa/ecopoint/internal/models"
)

// LoginRequest signs a user in by phone number, creating the account on
// first login.
type LoginRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

type LoginResponse struct {
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
}

// UpdateUserRequest patches mutable user fields. Tier is admin-only and
// rejected on the self-service route.
type UpdateUserRequest struct {
	Name *string `json:"name,omitempty"`
	Tier *string `json:"tier,omitempty"`
}

type RedeemRequest struct {
	RewardID uuid.UUID `json:"reward_id" binding:"required"`
}

type RedeemResponse struct {
	User   *models.User   `json:"user"`
	Reward *models.Reward `json:"reward"`
}

// RewardRequest creates or replaces a reward catalog entry.
type RewardRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Cost        int    `json:"cost" binding:"required"`
	Icon        string `json:"icon" binding:"required"`
	Gradient    string `json:"gradient"`
	BorderColor string `json:"border_color"`
	IconBG      string `json:"icon_bg"`
}

// SettingsResponse reports the saved configuration plus how many users
// changed tier as a result of the save.
type SettingsResponse struct {
	Settings *models.AppSettings `json:"settings"`
	Retiered int                 `json:"retiered"`
}

// CreateSessionRequest opens a scan session for a user.
type CreateSessionRequest struct {
	UserID     uuid.UUID         `json:"user_id" binding:"required"`
	SourceURL  string            `json:"source_url" binding:"required"`
	SourceType models.SourceType `json:"source_type,omitempty"`
	FPS        int               `json:"fps,omitempty"`
}

type SessionResponse struct {
	Session *models.ScanSession   `json:"session"`
	Counts  *models.CategoryCount `json:"counts,omitempty"`
}

// ConfirmResponse is the outcome of turning a scan session into points.
type ConfirmResponse struct {
	User         *models.User         `json:"user"`
	Counts       models.CategoryCount `json:"counts"`
	EarnedPoints int                  `json:"earned_points"`
	FinalPoints  int                  `json:"final_points"`
	TierBonus    float64              `json:"tier_bonus"`
}

// WSMessage is the envelope pushed to WebSocket clients.
type WSMessage struct {
	Type      string             `json:"type"` // "scan_update"
	SessionID uuid.UUID          `json:"session_id"`
	Timestamp time.Time          `json:"timestamp"`
	Update    *models.ScanUpdate `json:"update,omitempty"`
}
