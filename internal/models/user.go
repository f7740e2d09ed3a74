package models

import (
	"time"

	"github.com/google/uuid"
)

type TierName string

const (
	TierBronze   TierName = "Bronze"
	TierSilver   TierName = "Silver"
	TierGold     TierName = "Gold"
	TierPlatinum TierName = "Platinum"
	TierDiamond  TierName = "Diamond"
)

// Valid reports whether the tier name is one of the five known tiers.
func (t TierName) Valid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond:
		return true
	}
	return false
}

type ActivityKind string

const (
	ActivityEarn   ActivityKind = "earn"
	ActivityRedeem ActivityKind = "redeem"
)

// Activity is one immutable entry in a user's point ledger.
// Points is a signed delta: positive for earns, negative for redemptions.
type Activity struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	UserID      uuid.UUID    `json:"user_id" db:"user_id"`
	Description string       `json:"description" db:"description"`
	Points      int          `json:"points" db:"points"`
	Kind        ActivityKind `json:"kind" db:"kind"`
	Timestamp   time.Time    `json:"timestamp" db:"timestamp"`
}

// HistoryLimit caps how many activities are retained per user.
// Older entries are evicted when a new one is appended.
const HistoryLimit = 50

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Phone        string     `json:"phone" db:"phone"`
	Points       int        `json:"points" db:"points"`
	TotalBottles int        `json:"total_bottles" db:"total_bottles"`
	TotalCups    int        `json:"total_cups" db:"total_cups"`
	TotalGlass   int        `json:"total_glass" db:"total_glass"`
	Tier         TierName   `json:"tier" db:"tier"`
	History      []Activity `json:"history"` // newest first, at most HistoryLimit
	JoinDate     time.Time  `json:"join_date" db:"join_date"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
