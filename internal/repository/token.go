package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/templui/discord-onboarding/internal/db"
	"github.com/templui/discord-onboarding/internal/model"
)

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenUsed      = errors.New("token has already been used")
	ErrDuplicateToken = errors.New("token value already exists")
)

// tokenBytes gives 384 bits of entropy, 64 URL-safe characters
const tokenBytes = 48

const maxValueAttempts = 3

type TokenRepository interface {
	Create(ctx context.Context, token *model.Token) error
	ByID(ctx context.Context, id string) (*model.Token, error)
	ByValue(ctx context.Context, value string) (*model.Token, error)
	LatestValid(ctx context.Context, discordID int64, now time.Time) (*model.Token, error)
	HasUsed(ctx context.Context, discordID int64) (bool, error)
	CountCreatedSince(ctx context.Context, discordID int64, source string, since time.Time) (int, error)
	Consume(ctx context.Context, id, userID string, now time.Time) (*model.Token, error)
	CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type tokenRepository struct {
	db  sqlx.ExtContext
	ttl time.Duration
}

func NewTokenRepository(db sqlx.ExtContext, ttl time.Duration) TokenRepository {
	return &tokenRepository{db: db, ttl: ttl}
}

// GenerateTokenValue returns a URL-safe random token value.
func GenerateTokenValue() (string, error) {
	b := make([]byte, tokenBytes)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate token value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create inserts the token, filling ID, Value, CreatedAt and ExpiresAt when
// they are empty. A generated value that collides is regenerated; an explicit
// value that collides fails with ErrDuplicateToken.
func (r *tokenRepository) Create(ctx context.Context, token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	token.CreatedAt = timestamp(token.CreatedAt)
	if token.ExpiresAt.IsZero() {
		token.ExpiresAt = token.CreatedAt.Add(r.ttl)
	}
	token.ExpiresAt = timestamp(token.ExpiresAt)
	if token.Source == "" {
		token.Source = model.TokenSourceJoin
	}

	generated := token.Value == ""
	for attempt := 1; ; attempt++ {
		if generated {
			value, err := GenerateTokenValue()
			if err != nil {
				return err
			}
			token.Value = value
		}

		err := r.insert(ctx, token)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateToken) || !generated || attempt >= maxValueAttempts {
			return err
		}
	}
}

func (r *tokenRepository) insert(ctx context.Context, token *model.Token) error {
	query := `
		INSERT INTO onboarding_tokens (id, value, discord_id, discord_username, source, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.Value,
		token.DiscordID,
		token.DiscordUsername,
		token.Source,
		token.CreatedAt,
		token.ExpiresAt,
		false,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateToken
	}
	return err
}

func (r *tokenRepository) ByID(ctx context.Context, id string) (*model.Token, error) {
	return r.get(ctx, `SELECT * FROM onboarding_tokens WHERE id = $1`, id)
}

func (r *tokenRepository) ByValue(ctx context.Context, value string) (*model.Token, error) {
	return r.get(ctx, `SELECT * FROM onboarding_tokens WHERE value = $1`, value)
}

// LatestValid returns the newest unused, unexpired token of the account.
func (r *tokenRepository) LatestValid(ctx context.Context, discordID int64, now time.Time) (*model.Token, error) {
	query := `
		SELECT * FROM onboarding_tokens
		WHERE discord_id = $1 AND used = $2 AND expires_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.get(ctx, query, discordID, false, timestamp(now))
}

func (r *tokenRepository) get(ctx context.Context, query string, args ...any) (*model.Token, error) {
	token := &model.Token{}
	err := sqlx.GetContext(ctx, r.db, token, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// HasUsed reports whether any token of the account completed a flow.
func (r *tokenRepository) HasUsed(ctx context.Context, discordID int64) (bool, error) {
	var n int
	query := `SELECT COUNT(*) FROM onboarding_tokens WHERE discord_id = $1 AND used = $2`
	err := sqlx.GetContext(ctx, r.db, &n, query, discordID, true)
	return n > 0, err
}

func (r *tokenRepository) CountCreatedSince(ctx context.Context, discordID int64, source string, since time.Time) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM onboarding_tokens WHERE discord_id = $1 AND source = $2 AND created_at >= $3`
	err := sqlx.GetContext(ctx, r.db, &n, query, discordID, source, timestamp(since))
	return n, err
}

// Consume atomically marks the token used and links it to userID.
// Only one caller can succeed; the others get ErrTokenUsed or ErrTokenExpired.
func (r *tokenRepository) Consume(ctx context.Context, id, userID string, now time.Time) (*model.Token, error) {
	now = timestamp(now)
	query := `
		UPDATE onboarding_tokens
		SET used = $1, user_id = $2, used_at = $3
		WHERE id = $4
		AND used = $5
		AND expires_at >= $3
	`
	result, err := r.db.ExecContext(ctx, query, true, userID, now, id, false)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	token, err := r.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if token.Used {
			return nil, ErrTokenUsed
		}
		return nil, ErrTokenExpired
	}
	return token, nil
}

func (r *tokenRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM onboarding_tokens WHERE created_at < $1`
	err := sqlx.GetContext(ctx, r.db, &n, query, timestamp(cutoff))
	return n, err
}

// DeleteOlderThan removes tokens created before cutoff regardless of state.
func (r *tokenRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM onboarding_tokens WHERE created_at < $1`
	result, err := r.db.ExecContext(ctx, query, timestamp(cutoff))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
