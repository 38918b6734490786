package model

import (
	"time"
)

// Token is a single-use onboarding link issued to a Discord account.
type Token struct {
	ID              string     `db:"id"`
	Value           string     `db:"value"`
	DiscordID       int64      `db:"discord_id"`
	DiscordUsername string     `db:"discord_username"`
	Source          string     `db:"source"` // "join", "request", "reminder" or "admin"
	CreatedAt       time.Time  `db:"created_at"`
	ExpiresAt       time.Time  `db:"expires_at"`
	Used            bool       `db:"used"`
	UserID          *string    `db:"user_id"` // Set together with Used
	UsedAt          *time.Time `db:"used_at"`
}

const (
	TokenSourceJoin     = "join"
	TokenSourceRequest  = "request"
	TokenSourceReminder = "reminder"
	TokenSourceAdmin    = "admin"
)
