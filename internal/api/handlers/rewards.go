package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/pkg/dto"
)

// RewardStore is the slice of the persistence layer the catalog routes need.
type RewardStore interface {
	ListRewards(ctx context.Context) ([]models.Reward, error)
	GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	CreateReward(ctx context.Context, r *models.Reward) error
	UpdateReward(ctx context.Context, r *models.Reward) error
	DeleteReward(ctx context.Context, id uuid.UUID) error
}

type RewardHandler struct {
	db RewardStore
}

func NewRewardHandler(db RewardStore) *RewardHandler {
	return &RewardHandler{db: db}
}

// List returns the reward catalog, cheapest first.
func (h *RewardHandler) List(c *gin.Context) {
	rewards, err := h.db.ListRewards(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

func (h *RewardHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reward id"})
		return
	}

	reward, err := h.db.GetReward(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reward == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
		return
	}
	c.JSON(http.StatusOK, reward)
}

// Create adds a catalog entry. Admin only.
func (h *RewardHandler) Create(c *gin.Context) {
	reward, ok := h.bindReward(c)
	if !ok {
		return
	}

	if err := h.db.CreateReward(c.Request.Context(), reward); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, reward)
}

// Update replaces a catalog entry. Admin only.
func (h *RewardHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reward id"})
		return
	}

	reward, ok := h.bindReward(c)
	if !ok {
		return
	}
	reward.ID = id
	reward.UpdatedAt = time.Now().UTC()

	ctx := c.Request.Context()
	existing, err := h.db.GetReward(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
		return
	}
	reward.CreatedAt = existing.CreatedAt

	if err := h.db.UpdateReward(ctx, reward); err != nil {
		if errors.Is(err, loyalty.ErrRewardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reward)
}

// Delete removes a catalog entry. Admin only. Past redemptions keep their
// ledger descriptions, so nothing else needs cleanup.
func (h *RewardHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reward id"})
		return
	}

	if err := h.db.DeleteReward(c.Request.Context(), id); err != nil {
		if errors.Is(err, loyalty.ErrRewardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RewardHandler) bindReward(c *gin.Context) (*models.Reward, bool) {
	var req dto.RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if req.Cost <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cost must be positive"})
		return nil, false
	}
	icon, err := models.ParseRewardIcon(req.Icon)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	return &models.Reward{
		Name:        req.Name,
		Description: req.Description,
		Cost:        req.Cost,
		Icon:        icon,
		Gradient:    req.Gradient,
		BorderColor: req.BorderColor,
		IconBG:      req.IconBG,
	}, true
}
