package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/templui/discord-onboarding/internal/app"
	"github.com/templui/discord-onboarding/internal/config"
	"github.com/templui/discord-onboarding/internal/logger"
)

// withApp builds the services without starting the gateway or the cron jobs
// and runs fn with them.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	flush := logger.Init(cfg.IsDevelopment(), cfg.SentryDSN, cfg.AppEnv)
	defer flush()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		closeErr := a.Close(closeCtx)
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	return fn(ctx, a)
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
