package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/discord-onboarding/internal/service"
)

func TestToMember(t *testing.T) {
	joined := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := toMember(&discordgo.Member{
		User:     &discordgo.User{ID: "123456789012345678", Username: "newbie", Bot: false},
		Nick:     "Newbie",
		Roles:    []string{"1", "not-a-snowflake", "2"},
		JoinedAt: joined,
	})

	assert.Equal(t, int64(123456789012345678), m.ID)
	assert.Equal(t, "newbie", m.Username)
	assert.Equal(t, "Newbie", m.DisplayName())
	assert.Equal(t, []int64{1, 2}, m.RoleIDs)
	assert.True(t, m.JoinedAt.Equal(joined))
}

func TestToActor(t *testing.T) {
	tests := []struct {
		name        string
		permissions int64
		admin       bool
		manage      bool
	}{
		{"none", 0, false, false},
		{"administrator", discordgo.PermissionAdministrator, true, false},
		{"manage server", discordgo.PermissionManageServer, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := toActor(&discordgo.Member{User: &discordgo.User{ID: "5"}, Permissions: tt.permissions, Roles: []string{"9"}})
			assert.Equal(t, int64(5), a.ID)
			assert.Equal(t, tt.admin, a.Administrator)
			assert.Equal(t, tt.manage, a.ManageGuild)
			assert.Equal(t, []int64{9}, a.RoleIDs)
		})
	}
}

func TestToMessageSend(t *testing.T) {
	plain := toMessageSend(service.Message{Content: "bye"})
	assert.Equal(t, "bye", plain.Content)
	assert.Empty(t, plain.Embeds)

	rich := toMessageSend(service.Message{
		Title:  "Welcome",
		URL:    "https://auth.example.com/onboarding/start/abc",
		Color:  0x5865F2,
		Fields: []service.MessageField{{Name: "Link expires in", Value: "1h", Inline: true}},
		Footer: "once",
	})
	require.Len(t, rich.Embeds, 1)
	embed := rich.Embeds[0]
	assert.Equal(t, "Welcome", embed.Title)
	assert.Equal(t, 0x5865F2, embed.Color)
	require.Len(t, embed.Fields, 1)
	assert.True(t, embed.Fields[0].Inline)
	assert.Equal(t, "once", embed.Footer.Text)
}

func TestNickname(t *testing.T) {
	assert.Equal(t, "Pilot One", nickname("pilot one"))
	assert.Equal(t, "McPilot", nickname("McPilot"))

	long := nickname("an extremely long character name that does not fit")
	assert.Equal(t, maxNicknameLength, len([]rune(long)))
}

func TestDispatchError(t *testing.T) {
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	err := dispatchError("remove member", forbidden)
	assert.ErrorIs(t, err, service.ErrExternalDispatch)
	assert.Contains(t, err.Error(), "missing permissions")

	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	assert.Contains(t, dispatchError("remove member", notFound).Error(), "unknown member")

	other := errors.New("connection reset")
	err = dispatchError("send direct message", other)
	assert.ErrorIs(t, err, service.ErrExternalDispatch)
	assert.ErrorIs(t, err, other)
	assert.Zero(t, statusOf(other))
}
