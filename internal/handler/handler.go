// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/service"
)

// Client-facing messages.
const (
	msgEventNotFound    = "Event not found."
	msgInternal         = "internal server error"
	msgInvalidBody      = "invalid request body"
	msgInvalidPageQuery = "pageNumber and pageSize must be positive integers"
	msgUnauthorized     = "unauthorized"
	msgForbidden        = "forbidden"
	msgTooManyRequests  = "Too many requests. Please try again later."
	msgValidationFailed = "validation failed"
)

// EventService is the event CRUD the handlers depend on.
// *service.EventService satisfies it.
type EventService interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context, q model.PageQuery) ([]model.Event, error)
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	UpdateEvent(ctx context.Context, id int64, req model.UpdateEventRequest) (*model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// EventHandler holds the HTTP handlers for event CRUD.
type EventHandler struct {
	svc    EventService
	logger *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.MessageResponse{Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeValidation reports field errors; it returns false when err is not a
// validation error.
func writeValidation(w http.ResponseWriter, err error) bool {
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
		Error:  msgValidationFailed,
		Fields: verr.FieldMap(),
	})
	return true
}

// writeInternal logs the cause and hides it from the client.
func writeInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	logger.ErrorContext(r.Context(), op+" failed", "error", err, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// idParam parses a positive integer route parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pageQuery(r *http.Request) (model.PageQuery, error) {
	var q model.PageQuery
	for name, dst := range map[string]*int{"pageNumber": &q.PageNumber, "pageSize": &q.PageSize} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid %s %q", name, raw)
		}
		*dst = n
	}
	return q.Normalize(), nil
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListEvents handles GET /api/events/all?pageNumber=&pageSize=
// Returns one page of events ordered by start time.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q, err := pageQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidPageQuery)
		return
	}

	events, err := h.svc.ListEvents(r.Context(), q)
	if err != nil {
		writeInternal(w, r, h.logger, "list events", err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgEventNotFound)
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, msgEventNotFound)
			return
		}
		writeInternal(w, r, h.logger, "get event", err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// CreateEvent handles POST /api/events/createEvent (moderator)
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		writeInternal(w, r, h.logger, "create event", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/events/%d", event.ID))
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /api/events/{id} (moderator)
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgEventNotFound)
		return
	}

	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), id, req)
	if err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, service.ErrEventNotFound):
			writeError(w, http.StatusNotFound, msgEventNotFound)
		default:
			writeInternal(w, r, h.logger, "update event", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{id} (moderator)
// The roster of the event is removed with it.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgEventNotFound)
		return
	}

	if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, msgEventNotFound)
			return
		}
		writeInternal(w, r, h.logger, "delete event", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
