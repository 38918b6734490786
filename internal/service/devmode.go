package service

import (
	"context"
	"log/slog"

	"github.com/templui/discord-onboarding/internal/model"
)

// LogMessenger stands in for Discord when no bot token is configured.
// It logs every action and succeeds.
type LogMessenger struct{}

func (LogMessenger) SendDirect(ctx context.Context, discordID int64, msg Message) error {
	slog.Info("direct message (dev mode)", "discord_id", discordID, "title", msg.Title, "url", msg.URL, "content", msg.Content)
	return nil
}

func (LogMessenger) SendChannel(ctx context.Context, channelID int64, msg Message) error {
	slog.Info("channel message (dev mode)", "channel_id", channelID, "title", msg.Title)
	return nil
}

func (LogMessenger) RemoveMember(ctx context.Context, guildID, discordID int64, reason string) error {
	slog.Info("member removal (dev mode)", "guild_id", guildID, "discord_id", discordID, "reason", reason)
	return nil
}

func (LogMessenger) ListMembers(ctx context.Context, guildID int64) ([]model.Member, error) {
	return nil, nil
}

func (LogMessenger) SyncMember(ctx context.Context, guildID, discordID int64, nickname string, roleIDs []int64) error {
	slog.Info("member sync (dev mode)", "guild_id", guildID, "discord_id", discordID, "nickname", nickname, "roles", roleIDs)
	return nil
}
