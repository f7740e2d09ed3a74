package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RewardIcon is the closed set of icons the catalog can display.
// Keeping this an enum means an unmapped icon cannot appear at render time.
type RewardIcon string

const (
	IconShoppingBag RewardIcon = "ShoppingBag"
	IconCoffee      RewardIcon = "Coffee"
	IconBox         RewardIcon = "Box"
	IconShirt       RewardIcon = "Shirt"
	IconGift        RewardIcon = "Gift"
	IconSprout      RewardIcon = "Sprout"
)

func (i RewardIcon) Valid() bool {
	switch i {
	case IconShoppingBag, IconCoffee, IconBox, IconShirt, IconGift, IconSprout:
		return true
	}
	return false
}

// ParseRewardIcon validates an icon name coming in over the API.
func ParseRewardIcon(s string) (RewardIcon, error) {
	icon := RewardIcon(s)
	if !icon.Valid() {
		return "", fmt.Errorf("unknown reward icon %q", s)
	}
	return icon, nil
}

type Reward struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Cost        int        `json:"cost" db:"cost"`
	Icon        RewardIcon `json:"icon" db:"icon"`
	Gradient    string     `json:"gradient" db:"gradient"`
	BorderColor string     `json:"border_color" db:"border_color"`
	IconBG      string     `json:"icon_bg" db:"icon_bg"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
