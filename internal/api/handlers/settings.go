package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/storage"
	"github.com/wattanaa/ecopoint/pkg/dto"
)

type SettingsHandler struct {
	db     *storage.PostgresStore
	ledger *loyalty.Ledger
}

func NewSettingsHandler(db *storage.PostgresStore, ledger *loyalty.Ledger) *SettingsHandler {
	return &SettingsHandler{db: db, ledger: ledger}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.db.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings == nil {
		settings = models.DefaultSettings()
	}
	c.JSON(http.StatusOK, settings)
}

// Update saves new rates and tier boundaries, then synchronously re-tiers
// every user against the new table. The response reports how many users
// moved, so the admin UI can show the blast radius of the edit.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.AppSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Rates.Bottle <= 0 || req.Rates.Cup <= 0 || req.Rates.Glass <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "point rates must be positive"})
		return
	}

	// Mins are derived from the Maxes so an edited boundary pushes the next
	// tier along instead of opening a gap.
	req.Tiers = loyalty.NormalizeTiers(req.Tiers)
	if err := loyalty.ValidateTiers(req.Tiers); err != nil {
		if errors.Is(err, loyalty.ErrInvalidTierConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.db.SaveSettings(ctx, &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	retiered, err := h.ledger.RetierAll(ctx, req.Tiers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.SettingsResponse{Settings: &req, Retiered: retiered})
}
