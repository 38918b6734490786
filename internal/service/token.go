package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/templui/discord-onboarding/internal/lifecycle"
	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/repository"
)

// requestWindow is the period the per-account request cap applies to.
const requestWindow = 24 * time.Hour

type TokenService struct {
	tokenRepository repository.TokenRepository
	userRepository  repository.UserRepository
	messenger       Messenger
	appName         string
	appURL          string
	ttl             time.Duration
	maxPerDay       int
	adminRoleIDs    []int64
	now             func() time.Time
}

func NewTokenService(
	tokenRepository repository.TokenRepository,
	userRepository repository.UserRepository,
	messenger Messenger,
	appName string,
	appURL string,
	ttl time.Duration,
	maxPerDay int,
	adminRoleIDs []int64,
) *TokenService {
	return &TokenService{
		tokenRepository: tokenRepository,
		userRepository:  userRepository,
		messenger:       messenger,
		appName:         appName,
		appURL:          appURL,
		ttl:             ttl,
		maxPerDay:       maxPerDay,
		adminRoleIDs:    adminRoleIDs,
		now:             time.Now,
	}
}

// Link returns the public onboarding URL for the token.
func (s *TokenService) Link(token *model.Token) string {
	return fmt.Sprintf("%s/onboarding/start/%s", s.appURL, token.Value)
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a fresh token for the account.
func (s *TokenService) Issue(ctx context.Context, discordID int64, username, source string) (*model.Token, error) {
	token := &model.Token{
		DiscordID:       discordID,
		DiscordUsername: username,
		Source:          source,
		CreatedAt:       s.now(),
	}
	err := s.tokenRepository.Create(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	slog.Debug("token issued", "discord_id", discordID, "source", source, "token_id", token.ID)
	return token, nil
}

// Request returns the newest still-valid token of the account, or issues a
// new one when the daily cap allows it. The bool reports reuse.
func (s *TokenService) Request(ctx context.Context, discordID int64, username string) (*model.Token, bool, error) {
	now := s.now()

	existing, err := s.tokenRepository.LatestValid(ctx, discordID, now)
	if err == nil && lifecycle.IsTokenValid(existing, now) {
		return existing, true, nil
	}
	if err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		return nil, false, fmt.Errorf("failed to lookup token: %w", err)
	}

	if s.maxPerDay > 0 {
		count, err := s.tokenRepository.CountCreatedSince(ctx, discordID, model.TokenSourceRequest, now.Add(-requestWindow))
		if err != nil {
			return nil, false, fmt.Errorf("failed to count requests: %w", err)
		}
		if count >= s.maxPerDay {
			slog.Warn("token request rate limited", "discord_id", discordID, "count", count, "limit", s.maxPerDay)
			return nil, false, &RateLimitError{Limit: s.maxPerDay, RetryAt: now.Add(requestWindow)}
		}
	}

	token, err := s.Issue(ctx, discordID, username, model.TokenSourceRequest)
	if err != nil {
		return nil, false, err
	}
	return token, false, nil
}

// IsAdmin reports whether the actor may run privileged commands.
func (s *TokenService) IsAdmin(actor model.Actor) bool {
	if actor.Administrator || actor.ManageGuild {
		return true
	}
	for _, roleID := range actor.RoleIDs {
		if slices.Contains(s.adminRoleIDs, roleID) {
			return true
		}
	}
	return false
}

// IssueForMember lets an admin send a fresh link to another member. The
// token is returned even when the direct message fails, so the admin can
// hand the link over another way.
func (s *TokenService) IssueForMember(ctx context.Context, actor model.Actor, target model.Member) (*model.Token, error) {
	if !s.IsAdmin(actor) {
		slog.Warn("auth-user denied", "actor_id", actor.ID, "target_id", target.ID)
		return nil, ErrPermissionDenied
	}
	if target.Bot {
		return nil, ErrBotAccount
	}

	token, err := s.Issue(ctx, target.ID, target.Username, model.TokenSourceAdmin)
	if err != nil {
		return nil, err
	}

	err = s.messenger.SendDirect(ctx, target.ID, adminIssuedMessage(s.appName, s.Link(token), s.ttl))
	if err != nil {
		slog.Warn("auth-user dm failed", "error", err, "target_id", target.ID)
		return token, err
	}

	slog.Info("auth link sent by admin", "actor_id", actor.ID, "target_id", target.ID)
	return token, nil
}

type TokenStatus struct {
	Completed     bool      `json:"completed"`
	Expired       bool      `json:"expired"`
	Valid         bool      `json:"valid"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	CharacterName string    `json:"character_name,omitempty"`
}

func (s *TokenService) Status(ctx context.Context, value string) (*TokenStatus, error) {
	token, err := s.tokenRepository.ByValue(ctx, value)
	if err != nil {
		return nil, mapTokenError(err)
	}

	now := s.now()
	status := &TokenStatus{
		Completed: token.Used,
		Expired:   lifecycle.IsTokenExpired(token, now),
		Valid:     lifecycle.IsTokenValid(token, now),
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
	}

	if token.UserID != nil {
		user, err := s.userRepository.ByID(ctx, *token.UserID)
		if err == nil {
			status.CharacterName = user.CharacterName
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to lookup user: %w", err)
		}
	}

	return status, nil
}

// Purge deletes tokens created more than olderThan ago regardless of state.
// With dryRun it only counts them.
func (s *TokenService) Purge(ctx context.Context, olderThan time.Duration, dryRun bool) (int64, error) {
	cutoff := s.now().Add(-olderThan)

	if dryRun {
		n, err := s.tokenRepository.CountOlderThan(ctx, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to count tokens: %w", err)
		}
		slog.Info("token purge dry run", "count", n, "cutoff", cutoff)
		return n, nil
	}

	n, err := s.tokenRepository.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tokens: %w", err)
	}
	slog.Info("tokens purged", "count", n, "cutoff", cutoff)
	return n, nil
}
