package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dhruvsoni1802/dailydm/internal/bot"
	"github.com/dhruvsoni1802/dailydm/internal/jobs"
)

const pingTimeout = 2 * time.Second

// Handlers contains HTTP handlers for the API
type Handlers struct {
	deps Deps
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps) *Handlers {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handlers{deps: deps}
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok"}

	if latest, ok := h.deps.Coordinator.Latest(); ok {
		response.Running = latest.Status == jobs.StatusRunning
	}
	// Only a Redis cookie store answers pings
	if h.deps.CookieStore != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		response.CookieStore = "ok"
		if err := h.deps.CookieStore.Ping(ctx); err != nil {
			response.Status = "degraded"
			response.CookieStore = "unreachable"
		}
	}
	if h.deps.NextRun != nil {
		if next := h.deps.NextRun(); !next.IsZero() {
			response.NextRun = &next
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// TodaysMessage handles GET /messages/today
func (h *Handlers) TodaysMessage(w http.ResponseWriter, r *http.Request) {
	table, err := bot.LoadMessages(h.deps.MessagesFile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeMessagesUnreadable, err.Error())
		return
	}

	sel := bot.SelectMessage(table, h.deps.Now(), nil)
	writeJSON(w, http.StatusOK, TodaysMessageResponse{
		Day:     sel.Weekday,
		Key:     sel.Key,
		Message: sel.Message,
	})
}

// StartRun handles POST /runs?force=true|false
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "force must be true or false")
			return
		}
		force = parsed
	}

	run, err := h.deps.Coordinator.Start(jobs.TriggerAPI, force)
	switch {
	case errors.Is(err, jobs.ErrRunInProgress):
		writeError(w, http.StatusConflict, ErrCodeRunInProgress, err.Error())
		return
	case errors.Is(err, jobs.ErrAlreadySentToday):
		writeError(w, http.StatusConflict, ErrCodeAlreadySentToday, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Return 202 Accepted, the run continues in the background
	writeJSON(w, http.StatusAccepted, RunResponse{Run: run})
}

// LatestRun handles GET /runs/latest
func (h *Handlers) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.deps.Coordinator.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeRunNotFound, "no run has been triggered yet")
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Run: run})
}
