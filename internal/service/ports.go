package service

import (
	"context"
	"time"

	"github.com/templui/discord-onboarding/internal/model"
)

// Message is a rich direct or channel message.
type Message struct {
	Content     string
	Title       string
	Description string
	URL         string
	Color       int
	Fields      []MessageField
	Footer      string
}

type MessageField struct {
	Name   string
	Value  string
	Inline bool
}

type Messenger interface {
	SendDirect(ctx context.Context, discordID int64, msg Message) error
	SendChannel(ctx context.Context, channelID int64, msg Message) error
}

type MemberRemover interface {
	RemoveMember(ctx context.Context, guildID, discordID int64, reason string) error
}

type MemberLister interface {
	ListMembers(ctx context.Context, guildID int64) ([]model.Member, error)
}

// LinkingCompleted is emitted once per successful onboarding.
type LinkingCompleted struct {
	UserID          string
	DiscordID       int64
	DiscordUsername string
	CharacterID     int64
	CharacterName   string
}

// CompletionNotifier receives linking events. Implementations must not block.
type CompletionNotifier interface {
	LinkingCompleted(ctx context.Context, evt LinkingCompleted)
}

// KickEvent describes one removal for the kick log.
type KickEvent struct {
	DiscordID     int64
	Username      string
	GuildID       int64
	JoinedAt      time.Time
	KickedAt      time.Time
	ReminderCount int
	RemovalErr    error
}

type KickLogger interface {
	LogKick(ctx context.Context, evt KickEvent) error
}

// Archiver stores an exported blob under key.
type Archiver interface {
	Archive(ctx context.Context, key string, body []byte) error
}
