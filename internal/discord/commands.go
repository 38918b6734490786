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

const (
	commandBind     = "bind"
	commandAuthUser = "auth-user"
)

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        commandBind,
		Description: "Get a link to authenticate your Discord account",
	},
	{
		Name:        commandAuthUser,
		Description: "Send an authentication link to a member (admin only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "Member to authenticate",
				Required:    true,
			},
		},
	},
}

// commandHandler turns slash commands into ephemeral replies.
type commandHandler struct {
	tokens *service.TokenService
}

func (h *commandHandler) bind(ctx context.Context, member model.Member) string {
	token, reused, err := h.tokens.Request(ctx, member.ID, member.Username)

	var limitErr *service.RateLimitError
	switch {
	case errors.As(err, &limitErr):
		return fmt.Sprintf("You have requested too many links today. Try again <t:%d:R>.", limitErr.RetryAt.Unix())
	case err != nil:
		slog.Error("bind failed", "error", err, "discord_id", member.ID)
		return "Something went wrong while creating your link. Please try again later."
	}

	expires := fmt.Sprintf("<t:%d:R>", token.ExpiresAt.Unix())
	if reused {
		return fmt.Sprintf("Your authentication link is still valid: %s\nIt expires %s.", h.tokens.Link(token), expires)
	}
	return fmt.Sprintf("Here is your authentication link: %s\nIt expires %s and can only be used once.", h.tokens.Link(token), expires)
}

func (h *commandHandler) authUser(ctx context.Context, actor model.Actor, target model.Member) string {
	token, err := h.tokens.IssueForMember(ctx, actor, target)

	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return "You do not have permission to use this command."
	case errors.Is(err, service.ErrBotAccount):
		return "Bots cannot be authenticated."
	case errors.Is(err, service.ErrExternalDispatch) && token != nil:
		return fmt.Sprintf("<@%d> does not accept direct messages. Share this link with them instead: %s", target.ID, h.tokens.Link(token))
	case err != nil:
		slog.Error("auth-user failed", "error", err, "target_id", target.ID)
		return "Something went wrong while creating the link. Please try again later."
	}
	return fmt.Sprintf("Sent an authentication link to <@%d>.", target.ID)
}

// targetMember resolves the user option of /auth-user from the interaction
// payload.
func targetMember(data discordgo.ApplicationCommandInteractionData) (model.Member, bool) {
	if len(data.Options) == 0 || data.Options[0].Type != discordgo.ApplicationCommandOptionUser {
		return model.Member{}, false
	}
	userID, ok := data.Options[0].Value.(string)
	if !ok || userID == "" {
		return model.Member{}, false
	}

	target := model.Member{ID: parseID(userID)}
	if data.Resolved == nil {
		return target, true
	}
	if user, ok := data.Resolved.Users[userID]; ok {
		target.Username = user.Username
		target.Bot = user.Bot
	}
	if member, ok := data.Resolved.Members[userID]; ok {
		target.Nick = member.Nick
		target.RoleIDs = parseIDs(member.Roles)
	}
	return target, true
}
