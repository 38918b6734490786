package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/templui/discord-onboarding/internal/model"
)

// MemberService reacts to guild membership events.
type MemberService struct {
	tokenService    *TokenService
	scheduleService *ScheduleService
	messenger       Messenger
	appName         string
	autoKick        bool
	now             func() time.Time
}

func NewMemberService(tokenService *TokenService, scheduleService *ScheduleService, messenger Messenger, appName string, autoKick bool) *MemberService {
	return &MemberService{
		tokenService:    tokenService,
		scheduleService: scheduleService,
		messenger:       messenger,
		appName:         appName,
		autoKick:        autoKick,
		now:             time.Now,
	}
}

// Joined issues a link for a new member, starts the kick clock when auto-kick
// is on and sends the welcome message. A refused direct message is logged
// and does not fail the join.
func (s *MemberService) Joined(ctx context.Context, member model.Member) error {
	if member.Bot {
		return nil
	}

	token, err := s.tokenService.Issue(ctx, member.ID, member.Username, model.TokenSourceJoin)
	if err != nil {
		return err
	}

	if s.autoKick {
		joinedAt := member.JoinedAt
		if joinedAt.IsZero() {
			joinedAt = s.now()
		}
		_, err = s.scheduleService.Track(ctx, member, joinedAt)
		if errors.Is(err, ErrDuplicateSchedule) {
			slog.Debug("member already tracked", "discord_id", member.ID)
		} else if err != nil {
			slog.Error("failed to create kick schedule", "error", err, "discord_id", member.ID)
		}
	}

	msg := welcomeMessage(s.appName, s.tokenService.Link(token), s.tokenService.TTL())
	err = s.messenger.SendDirect(ctx, member.ID, msg)
	if err != nil {
		slog.Warn("welcome dm failed", "error", err, "discord_id", member.ID)
		return nil
	}

	slog.Info("welcome sent", "discord_id", member.ID, "username", member.Username)
	return nil
}
