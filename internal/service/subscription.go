package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/events"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/repository"
)

// RosterStore is the persistence the subscription engine needs.
// *repository.RosterRepository satisfies it.
type RosterStore interface {
	InTx(ctx context.Context, fn func(tx repository.RosterTx) error) error
	EventWithRoster(ctx context.Context, eventID int64) (*model.Event, error)
	AppliedCustomers(ctx context.Context, eventID int64) ([]model.CustomerSummary, error)
}

// SubscriptionService owns the registration state machine of an event and
// the roster of customers subscribed to it.
//
// Every mutation runs in one transaction that starts by locking the event
// row, so concurrent subscribers to the same event are applied one at a time
// and the roster never exceeds model.EventCapacity.
type SubscriptionService struct {
	roster    RosterStore
	cache     EventCache
	publisher events.Publisher
	logger    *slog.Logger
}

// NewSubscriptionService constructs a SubscriptionService with its dependencies.
func NewSubscriptionService(
	roster RosterStore,
	cache EventCache,
	publisher events.Publisher,
	logger *slog.Logger,
) *SubscriptionService {
	return &SubscriptionService{roster: roster, cache: cache, publisher: publisher, logger: logger}
}

// GetEvent returns the event together with its roster.
func (s *SubscriptionService) GetEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	e, err := s.roster.EventWithRoster(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Subscribe adds customerID to the event's roster.
//
// Preconditions are checked in order: the event exists, registration is
// open with fewer than EventCapacity customers, and the customer is not
// already subscribed. The subscription that fills the last seat closes
// registration in the same transaction.
func (s *SubscriptionService) Subscribe(ctx context.Context, eventID int64, customerID string) (*model.Event, error) {
	var (
		result         *model.Event
		closedByFilled bool
	)
	err := s.roster.InTx(ctx, func(tx repository.RosterTx) error {
		e, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e.Roster, err = tx.Customers(ctx, eventID); err != nil {
			return err
		}

		if !e.RegistrationOpen || e.IsFull() {
			return ErrRegistrationClosed
		}
		if e.HasCustomer(customerID) {
			return ErrAlreadySubscribed
		}

		if err := tx.Insert(ctx, eventID, customerID); err != nil {
			if errors.Is(err, repository.ErrAlreadySubscribed) {
				return ErrAlreadySubscribed
			}
			return err
		}
		e.Roster = append(e.Roster, customerID)

		if e.IsFull() {
			if err := tx.SetRegistrationOpen(ctx, eventID, false); err != nil {
				return err
			}
			e.RegistrationOpen = false
			closedByFilled = true
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, wrapEngineErr("subscribe", err)
	}

	s.logger.InfoContext(ctx, "customer subscribed",
		"event_id", eventID, "customer_id", customerID, "subscribed", len(result.Roster))
	s.afterCommit(ctx, eventID,
		published{events.TopicSubscriptionApplied, events.SubscriptionApplied{
			EventID: eventID, CustomerID: customerID, Subscribed: len(result.Roster),
		}},
	)
	if closedByFilled {
		s.logger.InfoContext(ctx, "registration closed at capacity", "event_id", eventID)
		s.publish(ctx, events.TopicRegistrationClosed,
			events.RegistrationClosed{EventID: eventID, Reason: events.ReasonCapacity})
	}
	return result, nil
}

// CloseRegistration closes registration. Closing an already closed event
// succeeds and leaves it closed.
func (s *SubscriptionService) CloseRegistration(ctx context.Context, eventID int64) (*model.Event, error) {
	e, err := s.setRegistration(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration closed", "event_id", eventID)
	s.afterCommit(ctx, eventID,
		published{events.TopicRegistrationClosed, events.RegistrationClosed{
			EventID: eventID, Reason: events.ReasonModerator,
		}},
	)
	return e, nil
}

// OpenRegistration opens registration regardless of roster size. A full
// event that is reopened still rejects subscribers until a seat frees up.
func (s *SubscriptionService) OpenRegistration(ctx context.Context, eventID int64) (*model.Event, error) {
	e, err := s.setRegistration(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration opened", "event_id", eventID, "subscribed", len(e.Roster))
	s.afterCommit(ctx, eventID,
		published{events.TopicRegistrationOpened, events.RegistrationOpened{EventID: eventID}},
	)
	return e, nil
}

func (s *SubscriptionService) setRegistration(ctx context.Context, eventID int64, open bool) (*model.Event, error) {
	var result *model.Event
	err := s.roster.InTx(ctx, func(tx repository.RosterTx) error {
		e, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e.RegistrationOpen != open {
			if err := tx.SetRegistrationOpen(ctx, eventID, open); err != nil {
				return err
			}
			e.RegistrationOpen = open
		}
		if e.Roster, err = tx.Customers(ctx, eventID); err != nil {
			return err
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, wrapEngineErr("set registration", err)
	}
	return result, nil
}

// RemoveCustomer deletes the (event, customer) roster entry. Registration
// state is left as it is.
func (s *SubscriptionService) RemoveCustomer(ctx context.Context, eventID int64, customerID string) error {
	err := s.roster.InTx(ctx, func(tx repository.RosterTx) error {
		if _, err := lockEvent(ctx, tx, eventID); err != nil {
			if errors.Is(err, ErrEventNotFound) {
				return ErrNotOnRoster
			}
			return err
		}
		if err := tx.Delete(ctx, eventID, customerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotOnRoster
			}
			return err
		}
		return nil
	})
	if err != nil {
		return wrapEngineErr("remove customer", err)
	}

	s.logger.InfoContext(ctx, "customer removed from event", "event_id", eventID, "customer_id", customerID)
	s.afterCommit(ctx, eventID,
		published{events.TopicSubscriptionRemoved, events.SubscriptionRemoved{
			EventID: eventID, CustomerID: customerID,
		}},
	)
	return nil
}

// ListAppliedCustomers returns the customers subscribed to the event, or
// ErrEventNotFound when the event does not exist. An event with nobody
// subscribed yields an empty slice.
func (s *SubscriptionService) ListAppliedCustomers(ctx context.Context, eventID int64) ([]model.CustomerSummary, error) {
	customers, err := s.roster.AppliedCustomers(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("list applied customers: %w", err)
	}
	if customers == nil {
		customers = []model.CustomerSummary{}
	}
	return customers, nil
}

func lockEvent(ctx context.Context, tx repository.RosterTx, eventID int64) (*model.Event, error) {
	e, err := tx.LockEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// wrapEngineErr passes domain errors through untouched and wraps storage failures.
func wrapEngineErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrNotOnRoster),
		errors.Is(err, ErrRegistrationClosed),
		errors.Is(err, ErrAlreadySubscribed):
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

type published struct {
	topic string
	event any
}

// afterCommit runs the best-effort side effects of a committed change:
// the cached copy of the event is dropped and domain events are published.
// Failures are logged and never reach the caller.
func (s *SubscriptionService) afterCommit(ctx context.Context, eventID int64, msgs ...published) {
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "event_id", eventID, "error", err)
	}
	for _, m := range msgs {
		s.publish(ctx, m.topic, m.event)
	}
}

func (s *SubscriptionService) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.WarnContext(ctx, "publish event failed", "topic", topic, "error", err)
	}
}
