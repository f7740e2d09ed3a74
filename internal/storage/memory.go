package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
)

// MemoryStore is an in-memory implementation of the ledger's Store contract
// and the reward catalog, used by tests. The single mutex gives the same
// per-user write serialization the Postgres store gets from row locks.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	rewards  map[uuid.UUID]*models.Reward
	settings *models.AppSettings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[uuid.UUID]*models.User),
		rewards: make(map[uuid.UUID]*models.Reward),
	}
}

// PutUser inserts or replaces a user record.
func (s *MemoryStore) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneUser(u)
	s.users[u.ID] = cp
}

// PutSettings installs the settings singleton; nil simulates the
// not-yet-loaded state.
func (s *MemoryStore) PutSettings(settings *models.AppSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *MemoryStore) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) ApplyActivity(ctx context.Context, userID uuid.UUID, apply func(u *models.User) (*models.Activity, error)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, loyalty.ErrUserNotFound
	}

	// Mutate a copy so a failed apply leaves the stored user untouched.
	next := cloneUser(u)
	if _, err := apply(next); err != nil {
		return nil, err
	}

	s.users[userID] = next
	return cloneUser(next), nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *cloneUser(u))
	}
	return users, nil
}

func (s *MemoryStore) UpdateUserTier(ctx context.Context, id uuid.UUID, tier models.TierName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return loyalty.ErrUserNotFound
	}
	u.Tier = tier
	return nil
}

func (s *MemoryStore) ListRewards(ctx context.Context) ([]models.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rewards := make([]models.Reward, 0, len(s.rewards))
	for _, r := range s.rewards {
		rewards = append(rewards, *r)
	}
	sort.Slice(rewards, func(i, j int) bool { return rewards[i].Cost < rewards[j].Cost })
	return rewards, nil
}

func (s *MemoryStore) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) CreateReward(ctx context.Context, r *models.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	s.rewards[r.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateReward(ctx context.Context, r *models.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rewards[r.ID]; !ok {
		return loyalty.ErrRewardNotFound
	}
	cp := *r
	s.rewards[r.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteReward(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rewards[id]; !ok {
		return loyalty.ErrRewardNotFound
	}
	delete(s.rewards, id)
	return nil
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.History = append([]models.Activity(nil), u.History...)
	return &cp
}
