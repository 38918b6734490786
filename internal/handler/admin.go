package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/templui/discord-onboarding/internal/model"
	"github.com/templui/discord-onboarding/internal/service"
)

const (
	defaultSchedulePurgeDays = 30
	defaultTokenPurgeDays    = 1
)

// AdminHandler serves the bearer-key protected JSON API.
type AdminHandler struct {
	scheduleService *service.ScheduleService
	tokenService    *service.TokenService
	sweeper         *service.Sweeper
}

func NewAdminHandler(scheduleService *service.ScheduleService, tokenService *service.TokenService, sweeper *service.Sweeper) *AdminHandler {
	return &AdminHandler{
		scheduleService: scheduleService,
		tokenService:    tokenService,
		sweeper:         sweeper,
	}
}

func (h *AdminHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	schedules, err := h.scheduleService.List(r.Context(), all)
	if err != nil {
		slog.Error("failed to list schedules", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if schedules == nil {
		schedules = []model.KickSchedule{}
	}

	writeJSON(w, http.StatusOK, schedules)
}

func (h *AdminHandler) DeactivateSchedule(w http.ResponseWriter, r *http.Request) {
	discordID, err := strconv.ParseInt(r.PathValue("discordID"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid discord id")
		return
	}

	err = h.scheduleService.Deactivate(r.Context(), discordID, model.DeactivatedAdmin)
	if errors.Is(err, service.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "no active schedule")
		return
	}
	if err != nil {
		slog.Error("failed to deactivate schedule", "error", err, "discord_id", discordID)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) PurgeSchedules(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, defaultSchedulePurgeDays)
	if !ok {
		return
	}

	deleted, err := h.scheduleService.Purge(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		slog.Error("failed to purge schedules", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *AdminHandler) AddOrphans(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduleService.AddOrphaned(r.Context())
	if err != nil {
		slog.Error("failed to add orphaned members", "error", err)
		writeJSONError(w, http.StatusBadGateway, "failed to list guild members")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) PurgeTokens(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, defaultTokenPurgeDays)
	if !ok {
		return
	}
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	n, err := h.tokenService.Purge(r.Context(), time.Duration(days)*24*time.Hour, dryRun)
	if err != nil {
		slog.Error("failed to purge tokens", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": n, "dry_run": dryRun})
}

func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Run(r.Context())
	if err != nil {
		slog.Error("manual sweep failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func daysParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return def, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		writeJSONError(w, http.StatusBadRequest, "days must be a non-negative integer")
		return 0, false
	}
	return days, true
}
