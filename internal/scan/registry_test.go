package scan_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/scan"
)

func TestRegistry(t *testing.T) {
	convey.Convey("Given a session registry", t, func() {
		r := scan.NewRegistry()
		sessionID := uuid.New()

		convey.Convey("Then an unknown session reads as zero counts", func() {
			_, ok := r.Latest(sessionID)
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(r.Counts(sessionID), convey.ShouldResemble, models.CategoryCount{})
		})

		convey.Convey("When updates arrive for a session", func() {
			r.Record(models.ScanUpdate{
				SessionID: sessionID,
				Timestamp: time.Now(),
				Counts:    models.CategoryCount{Bottles: 1},
			})
			r.Record(models.ScanUpdate{
				SessionID: sessionID,
				Timestamp: time.Now(),
				Counts:    models.CategoryCount{Bottles: 3, Cups: 2},
			})

			convey.Convey("Then only the newest update is kept", func() {
				update, ok := r.Latest(sessionID)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(update.Counts.Bottles, convey.ShouldEqual, 3)
				convey.So(r.Counts(sessionID).Cups, convey.ShouldEqual, 2)
				convey.So(r.Len(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a session is forgotten", func() {
			r.Record(models.ScanUpdate{SessionID: sessionID, Counts: models.CategoryCount{Glass: 1}})
			r.Forget(sessionID)

			convey.Convey("Then its state is gone", func() {
				_, ok := r.Latest(sessionID)
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(r.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When stale entries are pruned", func() {
			other := uuid.New()
			r.Record(models.ScanUpdate{SessionID: sessionID, Counts: models.CategoryCount{Bottles: 1}})
			r.Record(models.ScanUpdate{SessionID: other, Counts: models.CategoryCount{Cups: 1}})

			convey.Convey("Then fresh entries survive a generous cutoff", func() {
				convey.So(r.PruneOlderThan(time.Hour), convey.ShouldEqual, 0)
				convey.So(r.Len(), convey.ShouldEqual, 2)
			})

			convey.Convey("Then a cutoff in the future sweeps everything", func() {
				convey.So(r.PruneOlderThan(-time.Second), convey.ShouldEqual, 2)
				convey.So(r.Len(), convey.ShouldEqual, 0)
				_, ok := r.Latest(sessionID)
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When multiple sessions are tracked", func() {
			other := uuid.New()
			r.Record(models.ScanUpdate{SessionID: sessionID, Counts: models.CategoryCount{Bottles: 1}})
			r.Record(models.ScanUpdate{SessionID: other, Counts: models.CategoryCount{Cups: 1}})

			convey.Convey("Then their states are independent", func() {
				convey.So(r.Len(), convey.ShouldEqual, 2)
				convey.So(r.Counts(sessionID).Bottles, convey.ShouldEqual, 1)
				convey.So(r.Counts(other).Cups, convey.ShouldEqual, 1)
			})
		})
	})
}
