package loyalty_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/storage"
)

func seedUser(store *storage.MemoryStore, points int, tier models.TierName) *models.User {
	u := &models.User{
		ID:     uuid.New(),
		Name:   "Mali",
		Phone:  "0812345678",
		Points: points,
		Tier:   tier,
	}
	store.PutUser(u)
	return u
}

func TestLedgerAddActivity(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a ledger over a seeded store", t, func() {
		store := storage.NewMemoryStore()
		store.PutSettings(models.DefaultSettings())
		ledger := loyalty.NewLedger(store)

		convey.Convey("When crediting a confirmed scan", func() {
			u := seedUser(store, 450, models.TierBronze)
			counts := models.CategoryCount{Bottles: 3, Cups: 2}

			updated, act, err := ledger.AddActivity(ctx, u.ID, loyalty.ActivityInput{
				Description: "Scanned: 3 bottles, 2 cups",
				Points:      54,
				Kind:        models.ActivityEarn,
			}, &counts)

			convey.Convey("Then balance, tier, totals and history update together", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updated.Points, convey.ShouldEqual, 504)
				convey.So(updated.Tier, convey.ShouldEqual, models.TierSilver)
				convey.So(updated.TotalBottles, convey.ShouldEqual, 3)
				convey.So(updated.TotalCups, convey.ShouldEqual, 2)
				convey.So(updated.History, convey.ShouldHaveLength, 1)
				convey.So(updated.History[0].ID, convey.ShouldResemble, act.ID)
				convey.So(act.Kind, convey.ShouldEqual, models.ActivityEarn)
			})
		})

		convey.Convey("When one point crosses a tier boundary", func() {
			u := seedUser(store, 499, models.TierBronze)

			updated, _, err := ledger.AddActivity(ctx, u.ID, loyalty.ActivityInput{
				Description: "Welcome back",
				Points:      1,
				Kind:        models.ActivityEarn,
			}, nil)

			convey.So(err, convey.ShouldBeNil)
			convey.So(updated.Points, convey.ShouldEqual, 500)
			convey.So(updated.Tier, convey.ShouldEqual, models.TierSilver)
		})

		convey.Convey("When redeeming drops the balance below a boundary", func() {
			u := seedUser(store, 520, models.TierSilver)

			updated, act, err := ledger.AddActivity(ctx, u.ID, loyalty.ActivityInput{
				Description: "Redeemed: Coffee Voucher",
				Points:      -100,
				Kind:        models.ActivityRedeem,
			}, nil)

			convey.Convey("Then the tier is demoted with the balance", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updated.Points, convey.ShouldEqual, 420)
				convey.So(updated.Tier, convey.ShouldEqual, models.TierBronze)
				convey.So(act.Points, convey.ShouldEqual, -100)
			})
		})

		convey.Convey("When the history outgrows its cap", func() {
			u := seedUser(store, 0, models.TierBronze)

			var updated *models.User
			var err error
			for i := 0; i < models.HistoryLimit+5; i++ {
				updated, _, err = ledger.AddActivity(ctx, u.ID, loyalty.ActivityInput{
					Description: fmt.Sprintf("earn %d", i),
					Points:      1,
					Kind:        models.ActivityEarn,
				}, nil)
				convey.So(err, convey.ShouldBeNil)
			}

			convey.Convey("Then only the newest entries survive, newest first", func() {
				convey.So(updated.History, convey.ShouldHaveLength, models.HistoryLimit)
				convey.So(updated.History[0].Description, convey.ShouldEqual, fmt.Sprintf("earn %d", models.HistoryLimit+4))
				convey.So(updated.Points, convey.ShouldEqual, models.HistoryLimit+5)
			})
		})

		convey.Convey("When the user does not exist", func() {
			_, _, err := ledger.AddActivity(ctx, uuid.New(), loyalty.ActivityInput{
				Description: "ghost",
				Points:      10,
				Kind:        models.ActivityEarn,
			}, nil)

			convey.So(err, convey.ShouldWrap, loyalty.ErrUserNotFound)
		})
	})

	convey.Convey("Given a ledger before settings are loaded", t, func() {
		store := storage.NewMemoryStore()
		ledger := loyalty.NewLedger(store)
		u := seedUser(store, 100, models.TierBronze)

		_, _, err := ledger.AddActivity(ctx, u.ID, loyalty.ActivityInput{
			Description: "too early",
			Points:      10,
			Kind:        models.ActivityEarn,
		}, nil)

		convey.Convey("Then the write is refused and nothing changes", func() {
			convey.So(err, convey.ShouldWrap, loyalty.ErrConfigNotReady)
			after, gerr := store.GetUser(ctx, u.ID)
			convey.So(gerr, convey.ShouldBeNil)
			convey.So(after.Points, convey.ShouldEqual, 100)
		})
	})
}

func TestLedgerConfirmScan(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a ledger over a seeded store", t, func() {
		store := storage.NewMemoryStore()
		store.PutSettings(models.DefaultSettings())
		ledger := loyalty.NewLedger(store)

		convey.Convey("When a Gold user confirms 3 bottles and 2 cups", func() {
			u := seedUser(store, 2500, models.TierGold)

			result, err := ledger.ConfirmScan(ctx, u.ID, models.CategoryCount{Bottles: 3, Cups: 2})

			convey.Convey("Then the award is the base points times the pre-award bonus, rounded half-up once", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.EarnedPoints, convey.ShouldEqual, 54)
				convey.So(result.TierBonus, convey.ShouldEqual, 1.2)
				convey.So(result.FinalPoints, convey.ShouldEqual, 65)
				convey.So(result.User.Points, convey.ShouldEqual, 2565)
				convey.So(result.User.TotalBottles, convey.ShouldEqual, 3)
				convey.So(result.User.History, convey.ShouldHaveLength, 1)
				convey.So(result.User.History[0].Description, convey.ShouldEqual, "Scanned: 3 bottles, 2 cups")
			})
		})

		convey.Convey("When the smoothed counts are all zero", func() {
			u := seedUser(store, 450, models.TierBronze)

			result, err := ledger.ConfirmScan(ctx, u.ID, models.CategoryCount{})

			convey.Convey("Then the confirmation is rejected and the ledger is untouched", func() {
				convey.So(err, convey.ShouldWrap, loyalty.ErrNothingDetected)
				convey.So(result, convey.ShouldBeNil)

				after, gerr := store.GetUser(ctx, u.ID)
				convey.So(gerr, convey.ShouldBeNil)
				convey.So(after.Points, convey.ShouldEqual, 450)
				convey.So(after.TotalBottles, convey.ShouldEqual, 0)
				convey.So(after.History, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the user does not exist", func() {
			_, err := ledger.ConfirmScan(ctx, uuid.New(), models.CategoryCount{Bottles: 1})

			convey.So(err, convey.ShouldWrap, loyalty.ErrUserNotFound)
		})
	})

	convey.Convey("Given a ledger before settings are loaded", t, func() {
		store := storage.NewMemoryStore()
		ledger := loyalty.NewLedger(store)
		u := seedUser(store, 100, models.TierBronze)

		_, err := ledger.ConfirmScan(ctx, u.ID, models.CategoryCount{Bottles: 1})

		convey.So(err, convey.ShouldWrap, loyalty.ErrConfigNotReady)
	})
}

func TestLedgerRetierAll(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given users spread across the default brackets", t, func() {
		store := storage.NewMemoryStore()
		store.PutSettings(models.DefaultSettings())
		ledger := loyalty.NewLedger(store)

		low := seedUser(store, 300, models.TierBronze)
		mid := seedUser(store, 600, models.TierSilver)

		convey.Convey("When the Silver boundary moves above the mid user", func() {
			tiers := models.DefaultSettings().Tiers
			tiers[0].Max = 999
			tiers = loyalty.NormalizeTiers(tiers)
			convey.So(loyalty.ValidateTiers(tiers), convey.ShouldBeNil)

			changed, err := ledger.RetierAll(ctx, tiers)

			convey.Convey("Then exactly the affected user is re-tiered", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(changed, convey.ShouldEqual, 1)

				gotMid, _ := store.GetUser(ctx, mid.ID)
				convey.So(gotMid.Tier, convey.ShouldEqual, models.TierBronze)

				gotLow, _ := store.GetUser(ctx, low.ID)
				convey.So(gotLow.Tier, convey.ShouldEqual, models.TierBronze)
			})
		})

		convey.Convey("When Silver's max is raised to 2500", func() {
			gold := seedUser(store, 2200, models.TierGold)

			tiers := models.DefaultSettings().Tiers
			tiers[1].Max = 2500
			tiers = loyalty.NormalizeTiers(tiers)
			convey.So(loyalty.ValidateTiers(tiers), convey.ShouldBeNil)

			changed, err := ledger.RetierAll(ctx, tiers)

			convey.Convey("Then users inside the widened bracket move down to Silver", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(changed, convey.ShouldEqual, 1)

				got, _ := store.GetUser(ctx, gold.ID)
				convey.So(got.Tier, convey.ShouldEqual, models.TierSilver)
			})
		})

		convey.Convey("When the table is unchanged", func() {
			changed, err := ledger.RetierAll(ctx, models.DefaultSettings().Tiers)

			convey.So(err, convey.ShouldBeNil)
			convey.So(changed, convey.ShouldEqual, 0)
		})
	})
}
