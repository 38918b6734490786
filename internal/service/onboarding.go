package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/templui/discord-onboarding/internal/db"
	"github.com/templui/discord-onboarding/internal/lifecycle"
	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/repository"
)

// OnboardingService drives a token from the start link to a completed link:
// started, redirected to SSO, callback received, then linked or failed.
type OnboardingService struct {
	db       *sqlx.DB
	tokenTTL time.Duration
	notifier CompletionNotifier
	now      func() time.Time
}

func NewOnboardingService(database *sqlx.DB, tokenTTL time.Duration, notifier CompletionNotifier) *OnboardingService {
	return &OnboardingService{
		db:       database,
		tokenTTL: tokenTTL,
		notifier: notifier,
		now:      time.Now,
	}
}

// Start validates the token behind a start link. The caller keeps the token
// ID for the SSO round-trip.
func (s *OnboardingService) Start(ctx context.Context, value string) (*model.Token, error) {
	tokens := repository.NewTokenRepository(s.db, s.tokenTTL)

	token, err := tokens.ByValue(ctx, value)
	if err != nil {
		return nil, mapTokenError(err)
	}

	err = checkToken(token, s.now())
	if err != nil {
		slog.Info("onboarding start rejected", "error", err, "token_id", token.ID, "discord_id", token.DiscordID)
		return nil, err
	}

	slog.Info("onboarding started", "token_id", token.ID, "discord_id", token.DiscordID)
	return token, nil
}

type Completion struct {
	Token               *model.Token
	User                *model.User
	PreviousUserID      string
	ScheduleDeactivated bool
}

// Complete links the token owner to the SSO identity. Consuming the token,
// upserting the user and link, and deactivating the kick schedule happen in
// one transaction. The notifier runs after commit. A token can complete only
// once; a second call fails with ErrUsed.
func (s *OnboardingService) Complete(ctx context.Context, tokenID string, identity model.Identity, bypass bool) (*Completion, error) {
	if identity.CharacterID == 0 {
		return nil, ErrNoIdentity
	}

	now := s.now()
	result := &Completion{}

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repos := repository.New(tx, s.tokenTTL)

		token, err := repos.Tokens.ByID(ctx, tokenID)
		if err != nil {
			return mapTokenError(err)
		}
		err = checkToken(token, now)
		if err != nil {
			return err
		}

		user, err := upsertUser(ctx, repos.Users, identity, bypass, now)
		if err != nil {
			return err
		}

		token, err = repos.Tokens.Consume(ctx, token.ID, user.ID, now)
		if err != nil {
			return mapTokenError(err)
		}

		previous, err := repos.Links.Upsert(ctx, &model.DiscordLink{
			DiscordID:       token.DiscordID,
			UserID:          user.ID,
			DiscordUsername: token.DiscordUsername,
			UpdatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("failed to link account: %w", err)
		}

		deactivated, err := repos.Schedules.DeactivateByDiscordID(ctx, token.DiscordID, now, model.DeactivatedAuthenticated)
		if err != nil {
			return fmt.Errorf("failed to deactivate schedule: %w", err)
		}

		result.Token = token
		result.User = user
		result.ScheduleDeactivated = deactivated
		if previous != user.ID {
			result.PreviousUserID = previous
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.PreviousUserID != "" {
		slog.Warn("discord account relinked to a different user",
			"discord_id", result.Token.DiscordID,
			"previous_user_id", result.PreviousUserID,
			"user_id", result.User.ID,
		)
	}
	slog.Info("onboarding completed",
		"discord_id", result.Token.DiscordID,
		"user_id", result.User.ID,
		"character_id", identity.CharacterID,
		"schedule_deactivated", result.ScheduleDeactivated,
	)

	if s.notifier != nil {
		s.notifier.LinkingCompleted(ctx, LinkingCompleted{
			UserID:          result.User.ID,
			DiscordID:       result.Token.DiscordID,
			DiscordUsername: result.Token.DiscordUsername,
			CharacterID:     result.User.CharacterID,
			CharacterName:   result.User.CharacterName,
		})
	}

	return result, nil
}

func checkToken(token *model.Token, now time.Time) error {
	switch lifecycle.StateOf(token, now) {
	case lifecycle.TokenUsed:
		return ErrUsed
	case lifecycle.TokenExpired:
		return ErrExpired
	default:
		return nil
	}
}

// upsertUser finds or creates the local account of the character. The
// bypass decision made at the start of the flow activates the account.
func upsertUser(ctx context.Context, users repository.UserRepository, identity model.Identity, bypass bool, now time.Time) (*model.User, error) {
	user, err := users.ByCharacterID(ctx, identity.CharacterID)
	if errors.Is(err, repository.ErrUserNotFound) {
		user = &model.User{
			CharacterID:   identity.CharacterID,
			CharacterName: identity.CharacterName,
			OwnerHash:     identity.OwnerHash,
			Active:        bypass,
			CreatedAt:     now,
		}
		err = users.Create(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("user created", "user_id", user.ID, "character_id", identity.CharacterID, "active", user.Active)
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}

	if user.OwnerHash != "" && identity.OwnerHash != "" && user.OwnerHash != identity.OwnerHash {
		slog.Warn("character owner changed", "user_id", user.ID, "character_id", identity.CharacterID)
	}
	user.CharacterName = identity.CharacterName
	if identity.OwnerHash != "" {
		user.OwnerHash = identity.OwnerHash
	}
	if bypass {
		user.Active = true
	}
	user.UpdatedAt = now
	err = users.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}
