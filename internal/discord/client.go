package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/service"
)

// guildMembersPageSize is the maximum page size of the list guild members endpoint.
const guildMembersPageSize = 1000

// Client performs the outbound Discord REST calls the onboarding services
// need: direct and channel messages, removals, member listing and sync.
type Client struct {
	session *discordgo.Session
}

func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

func (c *Client) SendDirect(ctx context.Context, discordID int64, msg service.Message) error {
	channel, err := c.session.UserChannelCreate(formatID(discordID), discordgo.WithContext(ctx))
	if err != nil {
		return dispatchError("open direct channel", err)
	}

	_, err = c.session.ChannelMessageSendComplex(channel.ID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return dispatchError("send direct message", err)
	}
	return nil
}

func (c *Client) SendChannel(ctx context.Context, channelID int64, msg service.Message) error {
	_, err := c.session.ChannelMessageSendComplex(formatID(channelID), toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return dispatchError("send channel message", err)
	}
	return nil
}

// RemoveMember kicks the member. Permission, ownership and role hierarchy
// checks are left to Discord and come back as dispatch errors.
func (c *Client) RemoveMember(ctx context.Context, guildID, discordID int64, reason string) error {
	err := c.session.GuildMemberDeleteWithReason(formatID(guildID), formatID(discordID), reason, discordgo.WithContext(ctx))
	if err != nil {
		slog.Debug("guild member delete failed", "status", statusOf(err), "discord_id", discordID)
		return dispatchError("remove member", err)
	}
	return nil
}

func (c *Client) ListMembers(ctx context.Context, guildID int64) ([]model.Member, error) {
	var members []model.Member
	after := ""

	for {
		page, err := c.session.GuildMembers(formatID(guildID), after, guildMembersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, dispatchError("list guild members", err)
		}
		for _, m := range page {
			members = append(members, toMember(m))
		}
		if len(page) < guildMembersPageSize {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// SyncMember sets the nickname and adds the roles. Every step is attempted;
// failures are joined.
func (c *Client) SyncMember(ctx context.Context, guildID, discordID int64, characterName string, roleIDs []int64) error {
	guild := formatID(guildID)
	user := formatID(discordID)
	var errs []error

	if characterName != "" {
		err := c.session.GuildMemberNickname(guild, user, nickname(characterName), discordgo.WithContext(ctx))
		if err != nil {
			errs = append(errs, dispatchError("set nickname", err))
		}
	}

	for _, roleID := range roleIDs {
		err := c.session.GuildMemberRoleAdd(guild, user, formatID(roleID), discordgo.WithContext(ctx))
		if err != nil {
			errs = append(errs, dispatchError(fmt.Sprintf("add role %d", roleID), err))
		}
	}

	if len(errs) == 0 {
		slog.Info("member synced", "discord_id", discordID, "roles", len(roleIDs))
	}
	return errors.Join(errs...)
}
