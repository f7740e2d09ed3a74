package loyalty_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
)

func TestEarnedPoints(t *testing.T) {
	convey.Convey("Given the default point rates", t, func() {
		rates := models.DefaultSettings().Rates

		convey.Convey("Then counts convert linearly per category", func() {
			counts := models.CategoryCount{Bottles: 3, Cups: 2}
			convey.So(loyalty.EarnedPoints(counts, rates), convey.ShouldEqual, 54)
		})

		convey.Convey("Then glass pays the premium rate", func() {
			counts := models.CategoryCount{Glass: 2}
			convey.So(loyalty.EarnedPoints(counts, rates), convey.ShouldEqual, 40)
		})

		convey.Convey("Then zero counts earn nothing", func() {
			convey.So(loyalty.EarnedPoints(models.CategoryCount{}, rates), convey.ShouldEqual, 0)
		})
	})
}

func TestFinalPoints(t *testing.T) {
	convey.Convey("Given base points and a tier bonus", t, func() {
		convey.Convey("Then the neutral multiplier is an identity", func() {
			convey.So(loyalty.FinalPoints(54, 1.0), convey.ShouldEqual, 54)
		})

		convey.Convey("Then the product rounds half up", func() {
			convey.So(loyalty.FinalPoints(54, 1.2), convey.ShouldEqual, 65) // 64.8
			convey.So(loyalty.FinalPoints(54, 1.1), convey.ShouldEqual, 59) // 59.4
			convey.So(loyalty.FinalPoints(5, 1.1), convey.ShouldEqual, 6)   // 5.5 exactly
		})
	})
}

func TestDescribeScan(t *testing.T) {
	convey.Convey("Given confirmed counts", t, func() {
		convey.Convey("Then only non-zero categories are listed", func() {
			desc := loyalty.DescribeScan(models.CategoryCount{Bottles: 3, Cups: 2})
			convey.So(desc, convey.ShouldEqual, "Scanned: 3 bottles, 2 cups")
		})

		convey.Convey("Then glass reads as glassware", func() {
			desc := loyalty.DescribeScan(models.CategoryCount{Glass: 1})
			convey.So(desc, convey.ShouldEqual, "Scanned: 1 glassware")
		})
	})
}
