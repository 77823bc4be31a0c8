package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/festcal/festcal/internal/export"
	"github.com/festcal/festcal/internal/models"
)

// EventStore is the read surface the API serves from.
type EventStore interface {
	Query(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Cities(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (models.StoreStats, error)
}

type Handler struct {
	store     EventStore
	calendar  *export.Generator
	logger    *slog.Logger
	startTime time.Time
}

func NewHandler(store EventStore, calendar *export.Generator, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		calendar:  calendar,
		logger:    logger,
		startTime: time.Now(),
	}
}

// EventsResponse wraps the event list payload.
type EventsResponse struct {
	Events []models.Event     `json:"events"`
	Count  int                `json:"count"`
	Filter models.EventFilter `json:"filter"`
}

// GetEventsHandler handles GET /api/events and GET /api/events/{id}.
func (h *Handler) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if id := strings.TrimPrefix(r.URL.Path, "/api/events/"); id != r.URL.Path && id != "" {
		h.getEventByID(w, r, id)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query events", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	h.writeJSON(w, http.StatusOK, EventsResponse{
		Events: events,
		Count:  len(events),
		Filter: filter,
	})
}

func (h *Handler) getEventByID(w http.ResponseWriter, r *http.Request, id string) {
	event, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get event", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if event == nil {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, event)
}

// GetCitiesHandler handles GET /api/cities.
func (h *Handler) GetCitiesHandler(w http.ResponseWriter, r *http.Request) {
	h.listValues(w, r, "cities", h.store.Cities)
}

// GetCategoriesHandler handles GET /api/categories.
func (h *Handler) GetCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	h.listValues(w, r, "categories", h.store.Categories)
}

func (h *Handler) listValues(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) ([]string, error)) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	values, err := load(r.Context())
	if err != nil {
		h.logger.Error("failed to list "+key, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if values == nil {
		values = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string][]string{key: values})
}

// GetStatsHandler handles GET /api/stats.
func (h *Handler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// GetCalendarHandler handles GET /calendar.ics.
func (h *Handler) GetCalendarHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, count, err := h.calendar.Bytes(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to build calendar", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("serving calendar feed", "events", count)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write calendar response", "error", err)
	}
}

// HealthHandler handles GET /health.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func parseFilter(r *http.Request) (models.EventFilter, error) {
	q := r.URL.Query()
	filter := models.EventFilter{
		City:     q.Get("city"),
		Category: q.Get("category"),
	}

	if raw := q.Get("from"); raw != "" {
		from, err := parseTimeParam(raw)
		if err != nil {
			return models.EventFilter{}, err
		}
		filter.From = &from
	}

	if raw := q.Get("to"); raw != "" {
		to, err := parseTimeParam(raw)
		if err != nil {
			return models.EventFilter{}, err
		}
		filter.To = &to
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return models.EventFilter{}, &paramError{param: "limit", reason: "must be an integer"}
		}
		filter.Limit = limit
	}

	if err := filter.Validate(); err != nil {
		return models.EventFilter{}, err
	}
	return filter, nil
}

// parseTimeParam accepts RFC 3339 timestamps and bare dates.
func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, &paramError{param: "from/to", reason: "must be RFC 3339 or YYYY-MM-DD"}
}

type paramError struct {
	param  string
	reason string
}

func (e *paramError) Error() string {
	return "invalid query parameter " + e.param + ": " + e.reason
}
