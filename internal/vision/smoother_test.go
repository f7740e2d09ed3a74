package vision_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/vision"
)

func TestSmoother(t *testing.T) {
	convey.Convey("Given a smoother with a window of 3", t, func() {
		s := vision.NewSmoother(3)

		convey.Convey("Then an empty window reads as zeros", func() {
			convey.So(s.Current(), convey.ShouldResemble, models.CategoryCount{})
			convey.So(s.Len(), convey.ShouldEqual, 0)
		})

		convey.Convey("When frames are pushed", func() {
			s.Push(models.CategoryCount{Bottles: 1})
			got := s.Push(models.CategoryCount{Bottles: 2})

			convey.Convey("Then the average rounds half up", func() {
				// (1+2)/2 = 1.5 -> 2
				convey.So(got.Bottles, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the window overflows", func() {
			s.Push(models.CategoryCount{Bottles: 9})
			s.Push(models.CategoryCount{Bottles: 3})
			s.Push(models.CategoryCount{Bottles: 3})
			got := s.Push(models.CategoryCount{Bottles: 3})

			convey.Convey("Then the oldest frame is evicted", func() {
				convey.So(s.Len(), convey.ShouldEqual, 3)
				convey.So(got.Bottles, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When categories are mixed", func() {
			s.Push(models.CategoryCount{Bottles: 2, Cups: 1})
			s.Push(models.CategoryCount{Bottles: 2, Glass: 1})
			got := s.Current()

			convey.Convey("Then each category is averaged independently", func() {
				convey.So(got.Bottles, convey.ShouldEqual, 2)
				convey.So(got.Cups, convey.ShouldEqual, 1)  // 0.5 rounds up
				convey.So(got.Glass, convey.ShouldEqual, 1) // 0.5 rounds up
			})
		})
	})

	convey.Convey("Given a degenerate window size", t, func() {
		s := vision.NewSmoother(0)

		convey.Convey("Then the smoother still holds at least one frame", func() {
			got := s.Push(models.CategoryCount{Cups: 4})
			convey.So(got.Cups, convey.ShouldEqual, 4)
			convey.So(s.Len(), convey.ShouldEqual, 1)
		})
	})
}
