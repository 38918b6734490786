package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// EmailService sends kick log copies by email. It implements KickLogger.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	toEmail   string
	isDev     bool
	appName   string
}

func NewEmailService(apiKey, fromEmail, toEmail, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		toEmail:   toEmail,
		isDev:     isDev,
		appName:   appName,
	}
}

func (s *EmailService) LogKick(ctx context.Context, evt KickEvent) error {
	subject, body := kickLogEmailTemplate(evt, s.appName)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "kick_log", "to", s.toEmail, "subject", subject, "discord_id", evt.DiscordID)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{s.toEmail},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return DispatchError("kick log email", err)
	}
	slog.Info("email sent", "type", "kick_log", "to", s.toEmail, "discord_id", evt.DiscordID)
	return nil
}
