package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/observability"
	"github.com/wattanaa/ecopoint/internal/storage"
	"github.com/wattanaa/ecopoint/pkg/dto"
)

type UserHandler struct {
	db     *storage.PostgresStore
	ledger *loyalty.Ledger
}

func NewUserHandler(db *storage.PostgresStore, ledger *loyalty.Ledger) *UserHandler {
	return &UserHandler{db: db, ledger: ledger}
}

// Login signs a user in by phone number. First login creates the account and
// credits the welcome bonus through the ledger, so it appears in the history.
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	user, err := h.db.GetUserByPhone(ctx, req.Phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user != nil {
		c.JSON(http.StatusOK, dto.LoginResponse{User: user})
		return
	}

	name := req.Name
	if name == "" {
		name = "EcoPoint Member"
	}

	user, err = h.db.CreateUser(ctx, req.Phone, name, models.TierBronze)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	user, _, err = h.ledger.AddActivity(ctx, user.ID, loyalty.ActivityInput{
		Description: "Welcome bonus",
		Points:      loyalty.WelcomeBonus,
		Kind:        models.ActivityEarn,
	}, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.LoginResponse{User: user, Created: true})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.db.GetUser(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Update patches the user's own profile. Tier is derived state and cannot be
// set here; admins use the admin route.
func (h *UserHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Tier != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "tier cannot be set directly"})
		return
	}
	if req.Name == nil || *req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	ctx := c.Request.Context()
	if err := h.db.UpdateUserName(ctx, id, *req.Name); err != nil {
		if errors.Is(err, loyalty.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	user, err := h.db.GetUser(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}

// History returns the user's activity ledger, newest first.
func (h *UserHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.db.GetUser(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	history := user.History
	if history == nil {
		history = []models.Activity{}
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Redeem spends points on a reward. Affordability is checked here, against
// the balance read inside the ledger's locked write, not by the ledger.
func (h *UserHandler) Redeem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	reward, err := h.db.GetReward(ctx, req.RewardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reward == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
		return
	}

	user, err := h.db.GetUser(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if user.Points < reward.Cost {
		c.JSON(http.StatusConflict, gin.H{"error": loyalty.ErrInsufficientPoints.Error()})
		return
	}

	user, _, err = h.ledger.AddActivity(ctx, id, loyalty.ActivityInput{
		Description: "Redeemed: " + reward.Name,
		Points:      -reward.Cost,
		Kind:        models.ActivityRedeem,
	}, nil)
	if err != nil {
		if errors.Is(err, loyalty.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	observability.PointsRedeemed.Add(float64(reward.Cost))

	c.JSON(http.StatusOK, dto.RedeemResponse{User: user, Reward: reward})
}

// Leaderboard returns the top users by point balance.
func (h *UserHandler) Leaderboard(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	users, err := h.db.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// List returns all users. Admin only.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.db.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// AdminUpdate lets an admin rename a user or pin their tier. Admin only.
func (h *UserHandler) AdminUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	if req.Name != nil && *req.Name != "" {
		if err := h.db.UpdateUserName(ctx, id, *req.Name); err != nil {
			if errors.Is(err, loyalty.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	if req.Tier != nil {
		tier := models.TierName(*req.Tier)
		if !tier.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tier name"})
			return
		}
		if err := h.db.UpdateUserTier(ctx, id, tier); err != nil {
			if errors.Is(err, loyalty.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	user, err := h.db.GetUser(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete removes a user and their history. Admin only.
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.db.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, loyalty.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
