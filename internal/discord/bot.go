// Package discord connects the onboarding services to a Discord guild.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/templui/discord-onboarding/internal/service"
)

const eventTimeout = 30 * time.Second

// NewSession creates a bot session subscribed to guild and member events.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return session, nil
}

type Bot struct {
	session  *discordgo.Session
	guildID  int64
	members  *service.MemberService
	commands *commandHandler
	handlers []func()
}

func NewBot(session *discordgo.Session, guildID int64, members *service.MemberService, tokens *service.TokenService) *Bot {
	return &Bot{
		session:  session,
		guildID:  guildID,
		members:  members,
		commands: &commandHandler{tokens: tokens},
	}
}

// Open connects to the gateway and registers the slash commands in the guild.
func (b *Bot) Open() error {
	b.handlers = append(b.handlers,
		b.session.AddHandler(b.onMemberAdd),
		b.session.AddHandler(b.onInteraction),
	)

	err := b.session.Open()
	if err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}

	appID := b.session.State.User.ID
	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(appID, formatID(b.guildID), cmd)
		if err != nil {
			return fmt.Errorf("failed to register /%s: %w", cmd.Name, err)
		}
	}

	slog.Info("discord bot connected", "user", b.session.State.User.Username, "guild_id", b.guildID)
	return nil
}

func (b *Bot) Close() error {
	for _, remove := range b.handlers {
		remove()
	}
	b.handlers = nil
	return b.session.Close()
}

func (b *Bot) onMemberAdd(s *discordgo.Session, evt *discordgo.GuildMemberAdd) {
	if evt.Member == nil || parseID(evt.GuildID) != b.guildID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	member := toMember(evt.Member)
	err := b.members.Joined(ctx, member)
	if err != nil {
		slog.Error("member join handling failed", "error", err, "discord_id", member.ID)
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, evt *discordgo.InteractionCreate) {
	if evt.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if evt.Member == nil {
		b.respond(evt.Interaction, "This command can only be used in the server.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	data := evt.ApplicationCommandData()
	switch data.Name {
	case commandBind:
		b.respond(evt.Interaction, b.commands.bind(ctx, toMember(evt.Member)))
	case commandAuthUser:
		target, ok := targetMember(data)
		if !ok {
			b.respond(evt.Interaction, "Please choose a member.")
			return
		}
		b.respond(evt.Interaction, b.commands.authUser(ctx, toActor(evt.Member), target))
	}
}

func (b *Bot) respond(interaction *discordgo.Interaction, content string) {
	err := b.session.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("interaction response failed", "error", err)
	}
}
