package loyalty_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
)

func TestResolveTier(t *testing.T) {
	convey.Convey("Given the default tier table", t, func() {
		tiers := models.DefaultSettings().Tiers

		convey.Convey("Then balances resolve at their bracket boundaries", func() {
			convey.So(loyalty.ResolveTier(0, tiers), convey.ShouldEqual, models.TierBronze)
			convey.So(loyalty.ResolveTier(499, tiers), convey.ShouldEqual, models.TierBronze)
			convey.So(loyalty.ResolveTier(500, tiers), convey.ShouldEqual, models.TierSilver)
			convey.So(loyalty.ResolveTier(1999, tiers), convey.ShouldEqual, models.TierSilver)
			convey.So(loyalty.ResolveTier(2000, tiers), convey.ShouldEqual, models.TierGold)
			convey.So(loyalty.ResolveTier(5000, tiers), convey.ShouldEqual, models.TierPlatinum)
			convey.So(loyalty.ResolveTier(10000, tiers), convey.ShouldEqual, models.TierDiamond)
			convey.So(loyalty.ResolveTier(1_000_000, tiers), convey.ShouldEqual, models.TierDiamond)
		})

		convey.Convey("Then resolution is total even off the scale", func() {
			convey.So(loyalty.ResolveTier(-5, tiers), convey.ShouldEqual, models.TierBronze)
			convey.So(loyalty.ResolveTier(100, nil), convey.ShouldEqual, models.TierBronze)
		})
	})
}

func TestTierBonus(t *testing.T) {
	convey.Convey("Given the default tier table", t, func() {
		tiers := models.DefaultSettings().Tiers

		convey.So(loyalty.TierBonus(models.TierBronze, tiers), convey.ShouldEqual, 1.0)
		convey.So(loyalty.TierBonus(models.TierDiamond, tiers), convey.ShouldEqual, 1.5)

		convey.Convey("Then an unknown name earns the neutral multiplier", func() {
			convey.So(loyalty.TierBonus("Titanium", tiers), convey.ShouldEqual, 1.0)
		})
	})
}

func TestValidateTiers(t *testing.T) {
	convey.Convey("Given tier tables to validate", t, func() {
		convey.Convey("Then the default table is valid", func() {
			convey.So(loyalty.ValidateTiers(models.DefaultSettings().Tiers), convey.ShouldBeNil)
		})

		convey.Convey("Then an empty table is rejected", func() {
			err := loyalty.ValidateTiers(nil)
			convey.So(err, convey.ShouldWrap, loyalty.ErrInvalidTierConfig)
		})

		convey.Convey("Then a gap between brackets is rejected", func() {
			tiers := models.DefaultSettings().Tiers
			tiers[1].Min = 600 // leaves 500..599 unassigned
			err := loyalty.ValidateTiers(tiers)
			convey.So(err, convey.ShouldWrap, loyalty.ErrInvalidTierConfig)
		})

		convey.Convey("Then only the topmost tier may be unbounded", func() {
			tiers := models.DefaultSettings().Tiers
			tiers[2].Max = models.UnboundedMax
			err := loyalty.ValidateTiers(tiers)
			convey.So(err, convey.ShouldWrap, loyalty.ErrInvalidTierConfig)
		})

		convey.Convey("Then a bonus below 1.0 is rejected", func() {
			tiers := models.DefaultSettings().Tiers
			tiers[0].Bonus = 0.9
			err := loyalty.ValidateTiers(tiers)
			convey.So(err, convey.ShouldWrap, loyalty.ErrInvalidTierConfig)
		})

		convey.Convey("Then the lowest tier must start at zero", func() {
			tiers := models.DefaultSettings().Tiers
			tiers[0].Min = 1
			err := loyalty.ValidateTiers(tiers)
			convey.So(err, convey.ShouldWrap, loyalty.ErrInvalidTierConfig)
		})
	})
}

func TestNormalizeTiers(t *testing.T) {
	convey.Convey("Given an admin edit raising Silver's max to 2500", t, func() {
		tiers := models.DefaultSettings().Tiers
		tiers[1].Max = 2500

		out := loyalty.NormalizeTiers(tiers)

		convey.Convey("Then Gold's min follows to 2501", func() {
			convey.So(out[2].Min, convey.ShouldEqual, 2501)
		})

		convey.Convey("Then the boundaries stay pinned", func() {
			convey.So(out[0].Min, convey.ShouldEqual, 0)
			convey.So(out[len(out)-1].Max, convey.ShouldEqual, models.UnboundedMax)
		})

		convey.Convey("Then the normalized table validates", func() {
			convey.So(loyalty.ValidateTiers(out), convey.ShouldBeNil)
		})

		convey.Convey("Then the input is not mutated", func() {
			convey.So(tiers[2].Min, convey.ShouldEqual, 2000)
		})
	})
}
