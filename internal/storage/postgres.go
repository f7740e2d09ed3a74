package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wattanaa/ecopoint/internal/config"
	"github.com/wattanaa/ecopoint/internal/loyalty"
	"github.com/wattanaa/ecopoint/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InitSchema creates the tables if they do not exist. Idempotent; the API
// binary runs it on startup.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY,
			name          TEXT NOT NULL,
			phone         TEXT NOT NULL UNIQUE,
			points        INTEGER NOT NULL DEFAULT 0,
			total_bottles INTEGER NOT NULL DEFAULT 0,
			total_cups    INTEGER NOT NULL DEFAULT 0,
			total_glass   INTEGER NOT NULL DEFAULT 0,
			tier          TEXT NOT NULL,
			join_date     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id          UUID PRIMARY KEY,
			user_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			description TEXT NOT NULL,
			points      INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS activities_user_ts ON activities (user_id, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS rewards (
			id           UUID PRIMARY KEY,
			name         TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			cost         INTEGER NOT NULL,
			icon         TEXT NOT NULL,
			gradient     TEXT NOT NULL DEFAULT '',
			border_color TEXT NOT NULL DEFAULT '',
			icon_bg      TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			id         INTEGER PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS scan_sessions (
			id            UUID PRIMARY KEY,
			user_id       UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			source_url    TEXT NOT NULL,
			source_type   TEXT NOT NULL,
			fps           INTEGER NOT NULL,
			status        TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// --- Users ---

const userColumns = `id, name, phone, points, total_bottles, total_cups, total_glass, tier, join_date, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.Points,
		&u.TotalBottles, &u.TotalCups, &u.TotalGlass, &u.Tier,
		&u.JoinDate, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a fresh member with a zero balance in the lowest tier.
// The welcome bonus is credited afterwards through the ledger so it shows up
// in the activity history like any other earn.
func (s *PostgresStore) CreateUser(ctx context.Context, phone, name string, tier models.TierName) (*models.User, error) {
	u := &models.User{
		ID:    uuid.New(),
		Name:  name,
		Phone: phone,
		Tier:  tier,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, phone, points, total_bottles, total_cups, total_glass, tier)
		 VALUES ($1, $2, $3, 0, 0, 0, 0, $4) RETURNING join_date, updated_at`,
		u.ID, u.Name, u.Phone, u.Tier,
	).Scan(&u.JoinDate, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser returns the user with their recent history, or nil if absent.
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	history, err := s.listActivities(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	u.History = history
	return u, nil
}

// GetUserByPhone looks a user up by their login key, or nil if absent.
func (s *PostgresStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by phone: %w", err)
	}

	history, err := s.listActivities(ctx, s.pool, u.ID)
	if err != nil {
		return nil, err
	}
	u.History = history
	return u, nil
}

// ListUsers returns all users ordered by join date, without histories.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY join_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone, &u.Points,
			&u.TotalBottles, &u.TotalCups, &u.TotalGlass, &u.Tier,
			&u.JoinDate, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

// Leaderboard returns users ordered by point balance, highest first.
func (s *PostgresStore) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY points DESC, join_date ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone, &u.Points,
			&u.TotalBottles, &u.TotalCups, &u.TotalGlass, &u.Tier,
			&u.JoinDate, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

// UpdateUserName changes the display name only.
func (s *PostgresStore) UpdateUserName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $1, updated_at = now() WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return loyalty.ErrUserNotFound
	}
	return nil
}

// UpdateUserTier persists a re-derived tier (used by batch re-tiering).
func (s *PostgresStore) UpdateUserTier(ctx context.Context, id uuid.UUID, tier models.TierName) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET tier = $1, updated_at = now() WHERE id = $2`, tier, id)
	if err != nil {
		return fmt.Errorf("update user tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return loyalty.ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return loyalty.ErrUserNotFound
	}
	return nil
}

// ApplyActivity runs the ledger mutation under a row lock so concurrent
// writers on the same user serialize. The updated user row, the new
// activity, and the history trim commit together; a failure anywhere rolls
// the whole write back.
func (s *PostgresStore) ApplyActivity(ctx context.Context, userID uuid.UUID, apply func(u *models.User) (*models.Activity, error)) (*models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loyalty.ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}

	history, err := s.listActivities(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	u.History = history

	act, err := apply(u)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET points = $1, total_bottles = $2, total_cups = $3, total_glass = $4,
		        tier = $5, updated_at = now()
		 WHERE id = $6`,
		u.Points, u.TotalBottles, u.TotalCups, u.TotalGlass, u.Tier, u.ID)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO activities (id, user_id, description, points, kind, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		act.ID, act.UserID, act.Description, act.Points, act.Kind, act.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}

	// Evict everything older than the newest HistoryLimit entries.
	_, err = tx.Exec(ctx,
		`DELETE FROM activities
		 WHERE user_id = $1 AND id NOT IN (
		   SELECT id FROM activities WHERE user_id = $1
		   ORDER BY timestamp DESC, id DESC LIMIT $2
		 )`,
		userID, models.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit activity: %w", err)
	}

	var refreshed time.Time
	if err := s.pool.QueryRow(ctx,
		`SELECT updated_at FROM users WHERE id = $1`, u.ID).Scan(&refreshed); err == nil {
		u.UpdatedAt = refreshed
	}
	return u, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) listActivities(ctx context.Context, q queryer, userID uuid.UUID) ([]models.Activity, error) {
	rows, err := q.Query(ctx,
		`SELECT id, user_id, description, points, kind, timestamp
		 FROM activities WHERE user_id = $1
		 ORDER BY timestamp DESC, id DESC LIMIT $2`,
		userID, models.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var history []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Description, &a.Points, &a.Kind, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		history = append(history, a)
	}
	return history, nil
}

// --- Rewards ---

func (s *PostgresStore) CreateReward(ctx context.Context, r *models.Reward) error {
	r.ID = uuid.New()
	return s.pool.QueryRow(ctx,
		`INSERT INTO rewards (id, name, description, cost, icon, gradient, border_color, icon_bg)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`,
		r.ID, r.Name, r.Description, r.Cost, r.Icon, r.Gradient, r.BorderColor, r.IconBG,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (s *PostgresStore) UpdateReward(ctx context.Context, r *models.Reward) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE rewards SET name = $1, description = $2, cost = $3, icon = $4,
		        gradient = $5, border_color = $6, icon_bg = $7, updated_at = now()
		 WHERE id = $8`,
		r.Name, r.Description, r.Cost, r.Icon, r.Gradient, r.BorderColor, r.IconBG, r.ID)
	if err != nil {
		return fmt.Errorf("update reward: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return loyalty.ErrRewardNotFound
	}
	return nil
}

func (s *PostgresStore) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	r := &models.Reward{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, cost, icon, gradient, border_color, icon_bg, created_at, updated_at
		 FROM rewards WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.Description, &r.Cost, &r.Icon,
		&r.Gradient, &r.BorderColor, &r.IconBG, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRewards(ctx context.Context) ([]models.Reward, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, cost, icon, gradient, border_color, icon_bg, created_at, updated_at
		 FROM rewards ORDER BY cost ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var r models.Reward
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Cost, &r.Icon,
			&r.Gradient, &r.BorderColor, &r.IconBG, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, r)
	}
	return rewards, nil
}

func (s *PostgresStore) DeleteReward(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return loyalty.ErrRewardNotFound
	}
	return nil
}

// --- Settings ---

// GetSettings returns the singleton settings record, or nil before first seed.
func (s *PostgresStore) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM app_settings WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	settings := &models.AppSettings{}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// SaveSettings replaces the singleton wholesale.
func (s *PostgresStore) SaveSettings(ctx context.Context, settings *models.AppSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO app_settings (id, data) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		data)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// EnsureSettings seeds the default configuration on first run.
func (s *PostgresStore) EnsureSettings(ctx context.Context) error {
	existing, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.SaveSettings(ctx, models.DefaultSettings())
}

// --- Scan sessions ---

func (s *PostgresStore) CreateSession(ctx context.Context, sess *models.ScanSession) error {
	sess.ID = uuid.New()
	sess.Status = models.SessionStatusStarting
	return s.pool.QueryRow(ctx,
		`INSERT INTO scan_sessions (id, user_id, source_url, source_type, fps, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		sess.ID, sess.UserID, sess.SourceURL, sess.SourceType, sess.FPS, sess.Status,
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
}

func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*models.ScanSession, error) {
	sess := &models.ScanSession{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, source_url, source_type, fps, status, error_message, created_at, updated_at
		 FROM scan_sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.SourceURL, &sess.SourceType, &sess.FPS,
		&sess.Status, &sess.ErrorMessage, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE scan_sessions SET status = $1, error_message = $2, updated_at = now() WHERE id = $3`,
		status, errMsg, id)
	return err
}

// ListActiveSessions returns sessions still capturing frames.
func (s *PostgresStore) ListActiveSessions(ctx context.Context) ([]models.ScanSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, source_url, source_type, fps, status, error_message, created_at, updated_at
		 FROM scan_sessions WHERE status IN ($1, $2) ORDER BY created_at DESC`,
		models.SessionStatusStarting, models.SessionStatusScanning)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ScanSession
	for rows.Next() {
		var sess models.ScanSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.SourceURL, &sess.SourceType, &sess.FPS,
			&sess.Status, &sess.ErrorMessage, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
