package discord

import (
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/service"
)

// maxNicknameLength is the Discord limit for guild nicknames, in characters.
const maxNicknameLength = 32

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseIDs(ss []string) []int64 {
	ids := make([]int64, 0, len(ss))
	for _, s := range ss {
		if id := parseID(s); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func toMember(m *discordgo.Member) model.Member {
	member := model.Member{
		Nick:     m.Nick,
		RoleIDs:  parseIDs(m.Roles),
		JoinedAt: m.JoinedAt,
	}
	if m.User != nil {
		member.ID = parseID(m.User.ID)
		member.Username = m.User.Username
		member.Bot = m.User.Bot
	}
	return member
}

// toActor reads the invoking member of an interaction. Interaction members
// carry their computed channel permissions.
func toActor(m *discordgo.Member) model.Actor {
	actor := model.Actor{
		RoleIDs:       parseIDs(m.Roles),
		Administrator: m.Permissions&discordgo.PermissionAdministrator != 0,
		ManageGuild:   m.Permissions&discordgo.PermissionManageServer != 0,
	}
	if m.User != nil {
		actor.ID = parseID(m.User.ID)
	}
	return actor
}

func toMessageSend(msg service.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: msg.Content}
	if msg.Title == "" && msg.Description == "" && len(msg.Fields) == 0 {
		return send
	}

	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		URL:         msg.URL,
		Color:       msg.Color,
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if msg.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: msg.Footer}
	}
	send.Embeds = []*discordgo.MessageEmbed{embed}
	return send
}

// nickname turns a character name into a guild nickname: title case, capped
// at the Discord length limit.
func nickname(characterName string) string {
	name := cases.Title(language.English, cases.NoLower).String(characterName)
	if utf8.RuneCountInString(name) <= maxNicknameLength {
		return name
	}
	runes := []rune(name)
	return string(runes[:maxNicknameLength])
}

// statusOf returns the HTTP status of a Discord REST error, or 0.
func statusOf(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

// dispatchError classifies a failed Discord call. Missing permissions and
// unknown members or channels are reported with a readable cause.
func dispatchError(action string, err error) error {
	switch statusOf(err) {
	case http.StatusForbidden:
		return service.DispatchError(action, errors.New("missing permissions or direct messages disabled"))
	case http.StatusNotFound:
		return service.DispatchError(action, errors.New("unknown member or channel"))
	default:
		return service.DispatchError(action, err)
	}
}
