package vision_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/vision"
)

func TestClassify(t *testing.T) {
	convey.Convey("Given raw model labels", t, func() {
		convey.Convey("Then bottle matches anywhere in the label", func() {
			convey.So(vision.Classify("bottle"), convey.ShouldEqual, vision.CategoryBottle)
			convey.So(vision.Classify("Water Bottle"), convey.ShouldEqual, vision.CategoryBottle)
			convey.So(vision.Classify("PLASTIC BOTTLE"), convey.ShouldEqual, vision.CategoryBottle)
		})

		convey.Convey("Then cup matches only exactly", func() {
			convey.So(vision.Classify("cup"), convey.ShouldEqual, vision.CategoryCup)
			convey.So(vision.Classify("Cup"), convey.ShouldEqual, vision.CategoryCup)
			convey.So(vision.Classify("cupboard"), convey.ShouldEqual, vision.CategoryNone)
		})

		convey.Convey("Then glass matches anywhere in the label", func() {
			convey.So(vision.Classify("wine glass"), convey.ShouldEqual, vision.CategoryGlass)
			convey.So(vision.Classify("Glassware"), convey.ShouldEqual, vision.CategoryGlass)
		})

		convey.Convey("Then unrelated labels are dropped", func() {
			convey.So(vision.Classify("person"), convey.ShouldEqual, vision.CategoryNone)
			convey.So(vision.Classify(""), convey.ShouldEqual, vision.CategoryNone)
		})
	})
}

func TestFilterFrame(t *testing.T) {
	convey.Convey("Given one frame of raw detections", t, func() {
		detections := []models.Detection{
			{Label: "bottle", Confidence: 0.95},
			{Label: "bottle", Confidence: 0.71},
			{Label: "cup", Confidence: 0.85},
			{Label: "wine glass", Confidence: 0.9},
			{Label: "person", Confidence: 0.99},
		}

		convey.Convey("When filtering at threshold 0.7", func() {
			kept, counts := vision.FilterFrame(detections, 0.7)

			convey.Convey("Then only relevant confident detections survive", func() {
				convey.So(kept, convey.ShouldHaveLength, 4)
				convey.So(counts.Bottles, convey.ShouldEqual, 2)
				convey.So(counts.Cups, convey.ShouldEqual, 1)
				convey.So(counts.Glass, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a detection sits exactly at the threshold", func() {
			exact := []models.Detection{{Label: "bottle", Confidence: 0.7}}
			kept, counts := vision.FilterFrame(exact, 0.7)

			convey.Convey("Then it is excluded: the comparison is strict", func() {
				convey.So(kept, convey.ShouldBeEmpty)
				convey.So(counts.Total(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When no detections pass", func() {
			kept, counts := vision.FilterFrame(nil, 0.7)

			convey.Convey("Then both results are empty", func() {
				convey.So(kept, convey.ShouldBeEmpty)
				convey.So(counts, convey.ShouldResemble, models.CategoryCount{})
			})
		})
	})
}
