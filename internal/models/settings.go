package models

// UnboundedMax marks the top tier's open upper boundary.
const UnboundedMax = -1

// PointRates are the points awarded per confirmed item in each category.
type PointRates struct {
	Bottle int `json:"bottle" yaml:"bottle"`
	Cup    int `json:"cup" yaml:"cup"`
	Glass  int `json:"glass" yaml:"glass"`
}

// Tier is one named bracket of the point scale. Min and Max are inclusive;
// the topmost tier carries Max == UnboundedMax. Bonus multiplies earned points.
type Tier struct {
	Name  TierName `json:"name" yaml:"name"`
	Min   int      `json:"min" yaml:"min"`
	Max   int      `json:"max" yaml:"max"`
	Bonus float64  `json:"bonus" yaml:"bonus"`
}

// Unbounded reports whether the tier has no upper point boundary.
func (t Tier) Unbounded() bool {
	return t.Max == UnboundedMax
}

// AppSettings is the single process-wide configuration record: per-category
// point rates plus the ordered tier table (lowest tier first). It is seeded
// with defaults on first run and only ever replaced wholesale by an admin save.
type AppSettings struct {
	Rates PointRates `json:"rates"`
	Tiers []Tier     `json:"tiers"`
}

// DefaultSettings returns the configuration a fresh installation starts with.
func DefaultSettings() *AppSettings {
	return &AppSettings{
		Rates: PointRates{Bottle: 10, Cup: 12, Glass: 20},
		Tiers: []Tier{
			{Name: TierBronze, Min: 0, Max: 499, Bonus: 1.0},
			{Name: TierSilver, Min: 500, Max: 1999, Bonus: 1.1},
			{Name: TierGold, Min: 2000, Max: 4999, Bonus: 1.2},
			{Name: TierPlatinum, Min: 5000, Max: 9999, Bonus: 1.3},
			{Name: TierDiamond, Min: 10000, Max: UnboundedMax, Bonus: 1.5},
		},
	}
}
