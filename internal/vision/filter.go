package vision

import (
	"strings"

	"github.com/wattanaa/ecopoint/internal/models"
)

// Category is the closed set of recyclable item classes the pipeline counts.
// Everything else the model reports is dropped.
type Category int

const (
	CategoryNone Category = iota
	CategoryBottle
	CategoryCup
	CategoryGlass
)

// Classify maps a raw model label to an item category. Matching is
// case-insensitive: any label containing "bottle" is a bottle, exactly "cup"
// is a cup, any label containing "glass" is glassware. Cup requires an exact
// match so labels like "cupboard" do not count as cups.
func Classify(label string) Category {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "bottle"):
		return CategoryBottle
	case l == "cup":
		return CategoryCup
	case strings.Contains(l, "glass"):
		return CategoryGlass
	}
	return CategoryNone
}

// FilterFrame reduces one frame's raw detections to the relevant ones:
// a detection is kept iff its confidence strictly exceeds the threshold and
// its label classifies into a known category. Returns the kept detections
// (for overlay drawing) and the per-category counts for this frame.
func FilterFrame(detections []models.Detection, threshold float32) ([]models.Detection, models.CategoryCount) {
	var kept []models.Detection
	var counts models.CategoryCount

	for _, det := range detections {
		if det.Confidence <= threshold {
			continue
		}
		switch Classify(det.Label) {
		case CategoryBottle:
			counts.Bottles++
		case CategoryCup:
			counts.Cups++
		case CategoryGlass:
			counts.Glass++
		default:
			continue
		}
		kept = append(kept, det)
	}

	return kept, counts
}
