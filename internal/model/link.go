package model

import "time"

// DiscordLink maps a Discord account to a local user. One link per account
// and one per user; relinking overwrites.
type DiscordLink struct {
	DiscordID       int64     `db:"discord_id"`
	UserID          string    `db:"user_id"`
	DiscordUsername string    `db:"discord_username"`
	LinkedAt        time.Time `db:"linked_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}
