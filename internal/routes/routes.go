package routes

import (
	"context"
	"net/http"

	"github.com/templui/discord-onboarding/internal/app"
	"github.com/templui/discord-onboarding/internal/handler"
	"github.com/templui/discord-onboarding/internal/middleware"
)

// SetupRoutes builds the HTTP handler. Background cleanup of the rate limiter
// stops when ctx is done.
func SetupRoutes(ctx context.Context, app *app.App) http.Handler {
	// Handlers
	var identity handler.IdentityProvider
	if app.SSO != nil {
		identity = app.SSO
	}
	onboarding := handler.NewOnboardingHandler(
		app.OnboardingService,
		app.TokenService,
		app.Sessions,
		identity,
		app.Cfg.BypassEmailVerification,
	)
	admin := handler.NewAdminHandler(app.ScheduleService, app.TokenService, app.Sweeper)
	health := handler.NewHealthHandler(app.DB)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Health)

	// Onboarding (rate limited per client IP)
	limiter := middleware.NewRateLimiter(app.Cfg.RateLimitPerMin, app.Cfg.RateLimitBurst)
	limiter.StartCleanup(ctx.Done())
	limited := limiter.Limit(handler.RateLimited)

	mux.Handle("GET /onboarding/start/{token}", limited(http.HandlerFunc(onboarding.Start)))
	mux.Handle("GET /onboarding/callback", limited(http.HandlerFunc(onboarding.Callback)))
	mux.Handle("GET /onboarding/status/{token}", limited(http.HandlerFunc(onboarding.Status)))

	// ============================================================================
	// ADMIN API (bearer key)
	// ============================================================================

	requireAdmin := middleware.RequireAdmin(app.Cfg.AdminAPIKeyHash)

	mux.Handle("GET /admin/schedules", requireAdmin(http.HandlerFunc(admin.ListSchedules)))
	mux.Handle("DELETE /admin/schedules/{discordID}", requireAdmin(http.HandlerFunc(admin.DeactivateSchedule)))
	mux.Handle("POST /admin/schedules/purge", requireAdmin(http.HandlerFunc(admin.PurgeSchedules)))
	mux.Handle("POST /admin/schedules/orphans", requireAdmin(http.HandlerFunc(admin.AddOrphans)))
	mux.Handle("POST /admin/tokens/purge", requireAdmin(http.HandlerFunc(admin.PurgeTokens)))
	mux.Handle("POST /admin/sweep", requireAdmin(http.HandlerFunc(admin.Sweep)))

	return middleware.Chain(mux,
		middleware.RequestLogging,
		middleware.SecurityHeaders,
		middleware.Config(app.Cfg),
	)
}
