package loyalty

import (
	"fmt"
	"math"
	"strings"

	"github.com/wattanaa/ecopoint/internal/models"
)

// WelcomeBonus is credited through the ledger when an account is created,
// so it shows up in the history like any other earn.
const WelcomeBonus = 100

// EarnedPoints converts confirmed item counts into base points.
// Pure integer arithmetic; no rounding happens before the tier bonus.
func EarnedPoints(counts models.CategoryCount, rates models.PointRates) int {
	return counts.Bottles*rates.Bottle +
		counts.Cups*rates.Cup +
		counts.Glass*rates.Glass
}

// FinalPoints applies the tier bonus multiplier to base points.
// Round-half-up once, on the multiplied value only, so per-category
// rounding error cannot compound.
func FinalPoints(earned int, bonus float64) int {
	return int(math.Floor(float64(earned)*bonus + 0.5))
}

// DescribeScan builds the ledger description for a confirmed scan,
// listing only the non-zero categories.
func DescribeScan(counts models.CategoryCount) string {
	parts := make([]string, 0, 3)
	if counts.Bottles > 0 {
		parts = append(parts, fmt.Sprintf("%d bottles", counts.Bottles))
	}
	if counts.Cups > 0 {
		parts = append(parts, fmt.Sprintf("%d cups", counts.Cups))
	}
	if counts.Glass > 0 {
		parts = append(parts, fmt.Sprintf("%d glassware", counts.Glass))
	}
	return "Scanned: " + strings.Join(parts, ", ")
}
