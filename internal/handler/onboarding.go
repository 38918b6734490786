package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/service"
	"github.com/templui/discord-onboarding/internal/session"
	"github.com/templui/discord-onboarding/internal/sso"
	"github.com/templui/discord-onboarding/internal/ui"
	"github.com/templui/discord-onboarding/internal/ui/pages"
)

// IdentityProvider is the SSO side of the flow.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (model.Identity, error)
}

type OnboardingHandler struct {
	onboardingService *service.OnboardingService
	tokenService      *service.TokenService
	sessions          *session.Manager
	identity          IdentityProvider // nil when SSO is not configured
	bypass            bool
}

func NewOnboardingHandler(
	onboardingService *service.OnboardingService,
	tokenService *service.TokenService,
	sessions *session.Manager,
	identity IdentityProvider,
	bypass bool,
) *OnboardingHandler {
	return &OnboardingHandler{
		onboardingService: onboardingService,
		tokenService:      tokenService,
		sessions:          sessions,
		identity:          identity,
		bypass:            bypass,
	}
}

// Start validates the link and redirects to the SSO consent page. The token
// ID, OAuth state and bypass decision travel in the signed session cookie.
func (h *OnboardingHandler) Start(w http.ResponseWriter, r *http.Request) {
	token, err := h.onboardingService.Start(r.Context(), r.PathValue("token"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	if h.identity == nil {
		slog.Error("onboarding started without sso configured", "token_id", token.ID)
		ui.RenderStatus(w, r, http.StatusServiceUnavailable, pages.NoticePage(pages.Unavailable.Page()))
		return
	}

	state := generateOAuthState()
	err = h.sessions.Set(w, token.ID, state, h.bypass)
	if err != nil {
		slog.Error("failed to set onboarding session", "error", err, "token_id", token.ID)
		ui.RenderStatus(w, r, http.StatusInternalServerError, pages.NoticePage(pages.InternalError.Page()))
		return
	}

	http.Redirect(w, r, h.identity.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the SSO round-trip and completes the link.
func (h *OnboardingHandler) Callback(w http.ResponseWriter, r *http.Request) {
	claims, err := h.sessions.Get(r)
	if err != nil {
		slog.Warn("onboarding callback without valid session", "error", err)
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.NoticePage(pages.SessionInvalid.Page()))
		return
	}
	h.sessions.Clear(w)

	query := r.URL.Query()
	state := query.Get("state")
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(claims.State)) != 1 {
		slog.Warn("onboarding oauth state validation failed", "token_id", claims.TokenID)
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.NoticePage(pages.LoginFailed.Page()))
		return
	}

	if oauthErr := query.Get("error"); oauthErr != "" {
		slog.Info("sso login declined", "error", oauthErr, "token_id", claims.TokenID)
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.NoticePage(pages.LoginFailed.Page()))
		return
	}

	code := query.Get("code")
	if code == "" || h.identity == nil {
		slog.Warn("onboarding callback missing code", "token_id", claims.TokenID)
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.NoticePage(pages.LoginFailed.Page()))
		return
	}

	identity, err := h.identity.Identify(r.Context(), code)
	if errors.Is(err, sso.ErrNoCharacter) {
		renderError(w, r, service.ErrNoIdentity)
		return
	}
	if err != nil {
		slog.Error("sso identify failed", "error", err, "token_id", claims.TokenID)
		ui.RenderStatus(w, r, http.StatusBadGateway, pages.NoticePage(pages.LoginFailed.Page()))
		return
	}

	result, err := h.onboardingService.Complete(r.Context(), claims.TokenID, identity, claims.Bypass)
	if err != nil {
		renderError(w, r, err)
		return
	}

	ui.Render(w, r, pages.NoticePage(pages.Linked(result.User.CharacterName)))
}

// Status reports the token state as JSON for polling clients.
func (h *OnboardingHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.tokenService.Status(r.Context(), r.PathValue("token"))
	if errors.Is(err, service.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "token not found")
		return
	}
	if err != nil {
		slog.Error("token status failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// RateLimited renders the page shown to clients over the request limit.
func RateLimited(w http.ResponseWriter, r *http.Request) {
	ui.RenderStatus(w, r, http.StatusTooManyRequests, pages.NoticePage(pages.RateLimited.Page()))
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		ui.RenderStatus(w, r, http.StatusNotFound, pages.NoticePage(pages.TokenNotFound.Page()))
	case errors.Is(err, service.ErrExpired):
		ui.RenderStatus(w, r, http.StatusGone, pages.NoticePage(pages.TokenExpired.Page()))
	case errors.Is(err, service.ErrUsed):
		ui.RenderStatus(w, r, http.StatusConflict, pages.NoticePage(pages.TokenUsed.Page()))
	case errors.Is(err, service.ErrNoIdentity):
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.NoticePage(pages.NoIdentity.Page()))
	default:
		slog.Error("onboarding failed", "error", err)
		ui.RenderStatus(w, r, http.StatusInternalServerError, pages.NoticePage(pages.InternalError.Page()))
	}
}

func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
