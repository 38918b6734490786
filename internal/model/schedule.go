package model

import (
	"errors"
	"time"
)

var ErrJoinedAtRequired = errors.New("joined_at is required")

// KickSchedule tracks a member who has not yet linked their account.
// Once Active is false the record is terminal and only kept for audit.
type KickSchedule struct {
	ID                 string     `db:"id" json:"id"`
	DiscordID          int64      `db:"discord_id" json:"discord_id,string"`
	DiscordUsername    string     `db:"discord_username" json:"discord_username"`
	GuildID            int64      `db:"guild_id" json:"guild_id,string"`
	JoinedAt           time.Time  `db:"joined_at" json:"joined_at"`
	KickAt             time.Time  `db:"kick_at" json:"kick_at"`
	LastReminderAt     *time.Time `db:"last_reminder_at" json:"last_reminder_at,omitempty"`
	ReminderCount      int        `db:"reminder_count" json:"reminder_count"`
	Active             bool       `db:"active" json:"active"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	DeactivatedAt      *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
	DeactivationReason string     `db:"deactivation_reason" json:"deactivation_reason,omitempty"`
}

const (
	DeactivatedAuthenticated = "authenticated"
	DeactivatedKicked        = "kicked"
	DeactivatedAdmin         = "admin"
)

// NewKickSchedule builds an active schedule with KickAt derived from timeout.
func NewKickSchedule(discordID int64, username string, guildID int64, joinedAt time.Time, timeout time.Duration) (*KickSchedule, error) {
	if joinedAt.IsZero() {
		return nil, ErrJoinedAtRequired
	}
	return &KickSchedule{
		DiscordID:       discordID,
		DiscordUsername: username,
		GuildID:         guildID,
		JoinedAt:        joinedAt,
		KickAt:          joinedAt.Add(timeout),
		Active:          true,
	}, nil
}
