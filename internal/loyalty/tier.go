package loyalty

import (
	"fmt"

	"github.com/wattanaa/ecopoint/internal/models"
)

// ResolveTier maps a point balance to a tier name. Tiers are scanned from the
// highest bracket down; the first whose Min does not exceed the balance wins.
// If nothing matches (negative balance, empty table) the lowest tier is the
// fallback, so resolution is total.
func ResolveTier(points int, tiers []models.Tier) models.TierName {
	for i := len(tiers) - 1; i >= 0; i-- {
		if points >= tiers[i].Min {
			return tiers[i].Name
		}
	}
	if len(tiers) == 0 {
		return models.TierBronze
	}
	return tiers[0].Name
}

// TierBonus returns the earning multiplier for the named tier.
// Unknown names earn the neutral multiplier.
func TierBonus(name models.TierName, tiers []models.Tier) float64 {
	for _, t := range tiers {
		if t.Name == name {
			return t.Bonus
		}
	}
	return 1.0
}

// ValidateTiers checks that the tier table partitions the non-negative
// integers with no gaps or overlaps: the lowest Min is 0, each following Min
// is the previous Max plus one, and only the topmost tier is unbounded.
func ValidateTiers(tiers []models.Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: empty tier table", ErrInvalidTierConfig)
	}
	if tiers[0].Min != 0 {
		return fmt.Errorf("%w: lowest tier must start at 0, got %d", ErrInvalidTierConfig, tiers[0].Min)
	}
	for i, t := range tiers {
		if !t.Name.Valid() {
			return fmt.Errorf("%w: unknown tier name %q", ErrInvalidTierConfig, t.Name)
		}
		if t.Bonus < 1.0 {
			return fmt.Errorf("%w: tier %s bonus %v below 1.0", ErrInvalidTierConfig, t.Name, t.Bonus)
		}
		last := i == len(tiers)-1
		if last {
			if !t.Unbounded() {
				return fmt.Errorf("%w: topmost tier %s must be unbounded", ErrInvalidTierConfig, t.Name)
			}
			continue
		}
		if t.Unbounded() {
			return fmt.Errorf("%w: tier %s is unbounded but not topmost", ErrInvalidTierConfig, t.Name)
		}
		if t.Max < t.Min {
			return fmt.Errorf("%w: tier %s has max %d below min %d", ErrInvalidTierConfig, t.Name, t.Max, t.Min)
		}
		if tiers[i+1].Min != t.Max+1 {
			return fmt.Errorf("%w: gap between %s (max %d) and %s (min %d)",
				ErrInvalidTierConfig, t.Name, t.Max, tiers[i+1].Name, tiers[i+1].Min)
		}
	}
	return nil
}

// NormalizeTiers re-derives every Min from the Max of the tier below, the way
// the admin edit flow keeps the table contiguous: raising tier k's max pushes
// tier k+1's min to max+1. The lowest Min is pinned to 0 and the topmost Max
// to unbounded. The input is not modified.
func NormalizeTiers(tiers []models.Tier) []models.Tier {
	out := make([]models.Tier, len(tiers))
	copy(out, tiers)
	for i := range out {
		if i == 0 {
			out[i].Min = 0
		} else {
			out[i].Min = out[i-1].Max + 1
		}
		if i == len(out)-1 {
			out[i].Max = models.UnboundedMax
		}
	}
	return out
}
