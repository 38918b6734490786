package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/templui/discord-onboarding/internal/model"
)

var ErrLinkNotFound = errors.New("discord link not found")

type LinkRepository interface {
	ByDiscordID(ctx context.Context, discordID int64) (*model.DiscordLink, error)
	ByUserID(ctx context.Context, userID string) (*model.DiscordLink, error)
	Upsert(ctx context.Context, link *model.DiscordLink) (previousUserID string, err error)
	LinkedDiscordIDs(ctx context.Context) ([]int64, error)
}

type linkRepository struct {
	db sqlx.ExtContext
}

func NewLinkRepository(db sqlx.ExtContext) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) ByDiscordID(ctx context.Context, discordID int64) (*model.DiscordLink, error) {
	return r.get(ctx, `SELECT * FROM discord_links WHERE discord_id = $1`, discordID)
}

func (r *linkRepository) ByUserID(ctx context.Context, userID string) (*model.DiscordLink, error) {
	return r.get(ctx, `SELECT * FROM discord_links WHERE user_id = $1`, userID)
}

func (r *linkRepository) get(ctx context.Context, query string, args ...any) (*model.DiscordLink, error) {
	link := &model.DiscordLink{}
	err := sqlx.GetContext(ctx, r.db, link, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// Upsert links the Discord account to link.UserID, last write wins.
// A different account previously linked to the same user is unlinked.
// It returns the user the account was linked to before, if any.
func (r *linkRepository) Upsert(ctx context.Context, link *model.DiscordLink) (string, error) {
	now := time.Now()
	if !link.UpdatedAt.IsZero() {
		now = link.UpdatedAt
	}
	now = timestamp(now)
	link.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `DELETE FROM discord_links WHERE user_id = $1 AND discord_id <> $2`, link.UserID, link.DiscordID)
	if err != nil {
		return "", err
	}

	existing, err := r.ByDiscordID(ctx, link.DiscordID)
	if errors.Is(err, ErrLinkNotFound) {
		link.LinkedAt = now
		query := `
			INSERT INTO discord_links (discord_id, user_id, discord_username, linked_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		_, err = r.db.ExecContext(ctx, query, link.DiscordID, link.UserID, link.DiscordUsername, link.LinkedAt, link.UpdatedAt)
		return "", err
	}
	if err != nil {
		return "", err
	}

	link.LinkedAt = existing.LinkedAt
	if existing.UserID != link.UserID {
		link.LinkedAt = now
	}
	query := `UPDATE discord_links SET user_id = $1, discord_username = $2, linked_at = $3, updated_at = $4 WHERE discord_id = $5`
	_, err = r.db.ExecContext(ctx, query, link.UserID, link.DiscordUsername, link.LinkedAt, link.UpdatedAt, link.DiscordID)
	if err != nil {
		return "", err
	}
	return existing.UserID, nil
}

func (r *linkRepository) LinkedDiscordIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := sqlx.SelectContext(ctx, r.db, &ids, `SELECT discord_id FROM discord_links`)
	return ids, err
}
