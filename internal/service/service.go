// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/cache"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/events"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/repository"
)

// EventStore is the event persistence used by EventService.
// *repository.EventRepository satisfies it.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context, q model.PageQuery) ([]model.Event, error)
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	Update(ctx context.Context, id int64, req model.UpdateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id int64) error
}

// EventCache is a read-through cache of events and list pages.
// Lookups return cache.ErrMiss when nothing is stored. SetEvent and SetPage
// are no-ops when Invalidate ran after gen was read from Generation.
type EventCache interface {
	Event(ctx context.Context, id int64) (*model.Event, error)
	Page(ctx context.Context, q model.PageQuery) ([]model.Event, error)
	Generation(ctx context.Context) (int64, error)
	SetEvent(ctx context.Context, gen int64, e *model.Event) error
	SetPage(ctx context.Context, gen int64, q model.PageQuery, events []model.Event) error
	Invalidate(ctx context.Context, id int64) error
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events    EventStore
	cache     EventCache
	publisher events.Publisher
	logger    *slog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	store EventStore,
	cache EventCache,
	publisher events.Publisher,
	logger *slog.Logger,
) *EventService {
	return &EventService{events: store, cache: cache, publisher: publisher, logger: logger}
}

// CreateEvent validates the request and delegates to the repository.
// New events start with registration open and an empty roster.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	event, err := s.events.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.InfoContext(ctx, "event created", "event_id", event.ID, "name", event.Name)
	s.changed(ctx, event.ID, events.TopicEventCreated, events.EventCreated{Event: event})
	return event, nil
}

// ListEvents returns one page of events ordered by start time.
func (s *EventService) ListEvents(ctx context.Context, q model.PageQuery) ([]model.Event, error) {
	q = q.Normalize()
	if cached, err := s.cache.Page(ctx, q); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "cache read failed", "page", q.PageNumber, "error", err)
	}
	gen, genErr := s.cache.Generation(ctx)

	list, err := s.events.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if list == nil {
		list = []model.Event{}
	}
	if genErr != nil {
		s.logger.WarnContext(ctx, "cache generation read failed", "error", genErr)
	} else if err := s.cache.SetPage(ctx, gen, q, list); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "page", q.PageNumber, "error", err)
	}
	return list, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	if cached, err := s.cache.Event(ctx, id); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "cache read failed", "event_id", id, "error", err)
	}
	gen, genErr := s.cache.Generation(ctx)

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if genErr != nil {
		s.logger.WarnContext(ctx, "cache generation read failed", "error", genErr)
	} else if err := s.cache.SetEvent(ctx, gen, event); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "event_id", id, "error", err)
	}
	return event, nil
}

// UpdateEvent overwrites name, description, price and dates. Registration
// state and roster are not touched.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, req model.UpdateEventRequest) (*model.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	event, err := s.events.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.logger.InfoContext(ctx, "event updated", "event_id", id)
	s.changed(ctx, id, events.TopicEventUpdated, events.EventUpdated{Event: event})
	return event, nil
}

// DeleteEvent removes the event and, through the cascade, its roster.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}

	s.logger.InfoContext(ctx, "event deleted", "event_id", id)
	s.changed(ctx, id, events.TopicEventDeleted, events.EventDeleted{EventID: id})
	return nil
}

func (s *EventService) changed(ctx context.Context, id int64, topic string, event any) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "event_id", id, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.WarnContext(ctx, "publish event failed", "topic", topic, "error", err)
	}
}
