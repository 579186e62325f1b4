package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/service"
)

const (
	msgApplied               = "Successfully applied for the event."
	msgAlreadySubscribed     = "User is already subscribed to this event."
	msgRegistrationIsClosed  = "Registration for this event is closed."
	msgRegistrationClosed    = "Registration closed."
	msgRegistrationOpened    = "Registration opened."
	msgCustomerDeleted       = "Customer is deleted from the event"
	msgEventCustomerNotFound = "Could not find this event with this customer"
)

// SubscriptionService is the subscription engine the handlers depend on.
// *service.SubscriptionService satisfies it.
type SubscriptionService interface {
	GetEvent(ctx context.Context, eventID int64) (*model.Event, error)
	Subscribe(ctx context.Context, eventID int64, customerID string) (*model.Event, error)
	CloseRegistration(ctx context.Context, eventID int64) (*model.Event, error)
	OpenRegistration(ctx context.Context, eventID int64) (*model.Event, error)
	RemoveCustomer(ctx context.Context, eventID int64, customerID string) error
	ListAppliedCustomers(ctx context.Context, eventID int64) ([]model.CustomerSummary, error)
}

// CustomerResolver maps the authenticated principal to a customer id.
type CustomerResolver interface {
	ResolveCustomer(ctx context.Context, p *auth.Principal) (string, error)
}

// SubscriptionHandler holds the HTTP handlers under /api/eventSubscription.
type SubscriptionHandler struct {
	svc      SubscriptionService
	resolver CustomerResolver
	logger   *slog.Logger
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(svc SubscriptionService, resolver CustomerResolver, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, resolver: resolver, logger: logger}
}

// Apply handles POST /api/eventSubscription/apply/{eventId} (customer)
// Subscribes the calling customer to the event.
func (h *SubscriptionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	customerID, err := h.resolver.ResolveCustomer(r.Context(), p)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, msgUserNotFound)
			return
		}
		writeInternal(w, r, h.logger, "resolve customer", err)
		return
	}

	eventID, ok := idParam(r, "eventId")
	if !ok {
		writeError(w, http.StatusNotFound, msgEventNotFound)
		return
	}

	if _, err := h.svc.Subscribe(r.Context(), eventID, customerID); err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			writeError(w, http.StatusNotFound, msgEventNotFound)
		case errors.Is(err, service.ErrAlreadySubscribed):
			writeError(w, http.StatusBadRequest, msgAlreadySubscribed)
		case errors.Is(err, service.ErrRegistrationClosed):
			writeError(w, http.StatusBadRequest, msgRegistrationIsClosed)
		default:
			writeInternal(w, r, h.logger, "subscribe", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgApplied)
}

// CloseRegistration handles POST /api/eventSubscription/closeRegistration/{eventId} (moderator)
func (h *SubscriptionHandler) CloseRegistration(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.CloseRegistration, msgRegistrationClosed)
}

// OpenRegistration handles POST /api/eventSubscription/openRegistration/{eventId} (moderator)
func (h *SubscriptionHandler) OpenRegistration(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.OpenRegistration, msgRegistrationOpened)
}

func (h *SubscriptionHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	apply func(context.Context, int64) (*model.Event, error),
	okMsg string,
) {
	eventID, ok := idParam(r, "eventId")
	if !ok {
		writeError(w, http.StatusNotFound, msgEventNotFound)
		return
	}

	if _, err := apply(r.Context(), eventID); err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, msgEventNotFound)
			return
		}
		writeInternal(w, r, h.logger, "set registration", err)
		return
	}

	writeMessage(w, http.StatusOK, okMsg)
}

// DeleteCustomerFromEvent handles
// POST /api/eventSubscription/deleteCustomerFromEvent/{eventId}?customerId= (moderator)
func (h *SubscriptionHandler) DeleteCustomerFromEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(r, "eventId")
	customerID := r.URL.Query().Get("customerId")
	if !ok || customerID == "" {
		writeError(w, http.StatusNotFound, msgEventCustomerNotFound)
		return
	}

	if err := h.svc.RemoveCustomer(r.Context(), eventID, customerID); err != nil {
		if errors.Is(err, service.ErrNotOnRoster) || errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, msgEventCustomerNotFound)
			return
		}
		writeInternal(w, r, h.logger, "remove customer", err)
		return
	}

	writeMessage(w, http.StatusOK, msgCustomerDeleted)
}

// GetAllAppliedCustomers handles GET|POST /api/eventSubscription/getAllAppliedCustomers/{eventId} (moderator)
// Returns the subscribed customers, an empty array when there are none.
func (h *SubscriptionHandler) GetAllAppliedCustomers(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(r, "eventId")
	if !ok {
		writeError(w, http.StatusNotFound, msgEventNotFound)
		return
	}

	customers, err := h.svc.ListAppliedCustomers(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, msgEventNotFound)
			return
		}
		writeInternal(w, r, h.logger, "list applied customers", err)
		return
	}

	if customers == nil {
		customers = []model.CustomerSummary{}
	}
	writeJSON(w, http.StatusOK, customers)
}

// GetEvent handles GET /api/eventSubscription/event/{eventId} (moderator)
// Returns the event with its roster and remaining seats.
func (h *SubscriptionHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := idParam(r, "eventId")
	if !ok {
		writeError(w, http.StatusNotFound, msgEventNotFound)
		return
	}

	event, err := h.svc.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, msgEventNotFound)
			return
		}
		writeInternal(w, r, h.logger, "get event", err)
		return
	}

	writeJSON(w, http.StatusOK, rosterView{
		Event:     event,
		State:     event.State(),
		Capacity:  model.EventCapacity,
		Remaining: event.Remaining(),
	})
}

type rosterView struct {
	*model.Event
	State     model.RegistrationState `json:"registrationState"`
	Capacity  int                     `json:"capacity"`
	Remaining int                     `json:"remaining"`
}
