package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
)

// Session is a persisted login session keyed by its access token.
type Session struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionRepository persists sessions in PostgreSQL and keeps the token
// blacklist and a session cache in Redis.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsByAccount(ctx context.Context, accountID string) error

	BlacklistToken(ctx context.Context, token string, expiry time.Duration) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)

	CacheSession(ctx context.Context, token, accountID string, expiry time.Duration) error
	CachedSession(ctx context.Context, token string) (string, error)
	InvalidateCachedSession(ctx context.Context, token string) error
}

type PostgresSessionRepository struct {
	db    *sql.DB
	redis *redis.Client
}

func NewPostgresSessionRepository(db *sql.DB, redisClient *redis.Client) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db, redis: redisClient}
}

func (r *PostgresSessionRepository) CreateSession(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.AccountID, s.Token, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("insert session: %w", err))
	}
	return nil
}

func (r *PostgresSessionRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("delete session: %w", err))
	}
	return nil
}

func (r *PostgresSessionRepository) DeleteSessionsByAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("delete sessions: %w", err))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Token blacklist (Redis)
// ---------------------------------------------------------------------------

const blacklistPrefix = "blacklist:"

func (r *PostgresSessionRepository) BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	return r.redis.Set(ctx, blacklistPrefix+token, "1", expiry).Err()
}

func (r *PostgresSessionRepository) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	val, err := r.redis.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return val > 0, nil
}

// ---------------------------------------------------------------------------
// Session cache (Redis)
// ---------------------------------------------------------------------------

const sessionCachePrefix = "session:"

func (r *PostgresSessionRepository) CacheSession(ctx context.Context, token, accountID string, expiry time.Duration) error {
	return r.redis.Set(ctx, sessionCachePrefix+token, accountID, expiry).Err()
}

// CachedSession returns the cached account ID, or "" on a cache miss.
func (r *PostgresSessionRepository) CachedSession(ctx context.Context, token string) (string, error) {
	accountID, err := r.redis.Get(ctx, sessionCachePrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}

func (r *PostgresSessionRepository) InvalidateCachedSession(ctx context.Context, token string) error {
	return r.redis.Del(ctx, sessionCachePrefix+token).Err()
}
