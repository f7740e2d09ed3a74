package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/observability"
)

// Store is the persistence surface the ledger needs. ApplyActivity must run
// the mutation under per-user mutual exclusion and persist the updated user
// together with the new activity as a single atomic write: callers may observe
// the pre-update user or the fully updated one, never anything in between.
type Store interface {
	GetSettings(ctx context.Context) (*models.AppSettings, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ApplyActivity(ctx context.Context, userID uuid.UUID, apply func(u *models.User) (*models.Activity, error)) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserTier(ctx context.Context, userID uuid.UUID, tier models.TierName) error
}

// ActivityInput describes one ledger entry to append. Points is signed:
// negative for redemptions.
type ActivityInput struct {
	Description string
	Points      int
	Kind        models.ActivityKind
}

// Ledger appends activities to user histories and keeps the derived state
// (point balance, lifetime totals, tier) consistent with every write.
//
// The ledger is a mechanical recorder: it does not judge whether a redemption
// is affordable. That check belongs to the caller holding the reward.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// AddActivity appends one activity to the user's ledger: computes the new
// balance, re-derives the tier from the current tier table, prepends the
// entry to the history (capped at models.HistoryLimit), folds any category
// delta into the lifetime totals, and persists it all as one write.
//
// Fails with ErrConfigNotReady before settings are loaded and ErrUserNotFound
// for a missing user; in both cases no state changes.
func (l *Ledger) AddActivity(ctx context.Context, userID uuid.UUID, input ActivityInput, delta *models.CategoryCount) (*models.User, *models.Activity, error) {
	settings, err := l.store.GetSettings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	if settings == nil {
		return nil, nil, ErrConfigNotReady
	}

	var appended *models.Activity
	user, err := l.store.ApplyActivity(ctx, userID, func(u *models.User) (*models.Activity, error) {
		newPoints := u.Points + input.Points
		newTier := ResolveTier(newPoints, settings.Tiers)

		act := &models.Activity{
			ID:          uuid.New(),
			UserID:      u.ID,
			Description: input.Description,
			Points:      input.Points,
			Kind:        input.Kind,
			Timestamp:   l.now().UTC(),
		}

		if newTier != u.Tier {
			observability.TierChanges.Inc()
		}

		u.Points = newPoints
		u.Tier = newTier
		if delta != nil {
			u.TotalBottles += delta.Bottles
			u.TotalCups += delta.Cups
			u.TotalGlass += delta.Glass
		}
		u.History = append([]models.Activity{*act}, u.History...)
		if len(u.History) > models.HistoryLimit {
			u.History = u.History[:models.HistoryLimit]
		}

		appended = act
		return act, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return user, appended, nil
}

// ScanResult is the outcome of a confirmed scan: what was counted, the base
// points, and the final award after the tier bonus.
type ScanResult struct {
	User         *models.User
	Counts       models.CategoryCount
	EarnedPoints int
	FinalPoints  int
	TierBonus    float64
}

// ConfirmScan converts smoothed detection counts into an earn activity. The
// bonus multiplier comes from the user's tier before the award, so the award
// itself may promote them. Rounding happens once, on the final product.
//
// Counts that earn zero base points fail with ErrNothingDetected before any
// state is written.
func (l *Ledger) ConfirmScan(ctx context.Context, userID uuid.UUID, counts models.CategoryCount) (*ScanResult, error) {
	settings, err := l.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings == nil {
		return nil, ErrConfigNotReady
	}

	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	earned := EarnedPoints(counts, settings.Rates)
	if earned == 0 {
		return nil, ErrNothingDetected
	}

	bonus := TierBonus(user.Tier, settings.Tiers)
	final := FinalPoints(earned, bonus)

	user, _, err = l.AddActivity(ctx, userID, ActivityInput{
		Description: DescribeScan(counts),
		Points:      final,
		Kind:        models.ActivityEarn,
	}, &counts)
	if err != nil {
		return nil, err
	}

	observability.ScansConfirmed.Inc()
	observability.PointsAwarded.Add(float64(final))

	return &ScanResult{
		User:         user,
		Counts:       counts,
		EarnedPoints: earned,
		FinalPoints:  final,
		TierBonus:    bonus,
	}, nil
}

// RetierAll re-derives every user's tier against the given tier table and
// persists each user whose resolved tier changed. It runs synchronously:
// the admin save that triggered it is not complete until every user is
// consistent with the new table. Returns the number of users re-tiered.
func (l *Ledger) RetierAll(ctx context.Context, tiers []models.Tier) (int, error) {
	users, err := l.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	changed := 0
	for i := range users {
		newTier := ResolveTier(users[i].Points, tiers)
		if newTier == users[i].Tier {
			continue
		}
		if err := l.store.UpdateUserTier(ctx, users[i].ID, newTier); err != nil {
			return changed, fmt.Errorf("retier user %s: %w", users[i].ID, err)
		}
		observability.TierChanges.Inc()
		changed++
	}
	return changed, nil
}
