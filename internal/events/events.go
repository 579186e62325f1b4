// Package events defines the domain events emitted by the booking system
// and the publishers that deliver them.
package events

import (
	"context"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
)

// Event topic constants
const (
	TopicEventCreated = "kayak.event.created"
	TopicEventUpdated = "kayak.event.updated"
	TopicEventDeleted = "kayak.event.deleted"

	TopicSubscriptionApplied = "kayak.subscription.applied"
	TopicSubscriptionRemoved = "kayak.subscription.removed"

	TopicRegistrationOpened = "kayak.registration.opened"
	TopicRegistrationClosed = "kayak.registration.closed"
)

// Reasons carried by RegistrationClosed.
const (
	ReasonCapacity  = "capacity"
	ReasonModerator = "moderator"
)

type EventCreated struct {
	Event *model.Event `json:"event"`
}

type EventUpdated struct {
	Event *model.Event `json:"event"`
}

type EventDeleted struct {
	EventID int64 `json:"event_id"`
}

type SubscriptionApplied struct {
	EventID    int64  `json:"event_id"`
	CustomerID string `json:"customer_id"`
	Subscribed int    `json:"subscribed"`
}

type SubscriptionRemoved struct {
	EventID    int64  `json:"event_id"`
	CustomerID string `json:"customer_id"`
}

type RegistrationOpened struct {
	EventID int64 `json:"event_id"`
}

type RegistrationClosed struct {
	EventID int64  `json:"event_id"`
	Reason  string `json:"reason"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
