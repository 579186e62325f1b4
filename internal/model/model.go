// Package model defines the core domain types for the kayak tour booking system.
package model

import "time"

// EventCapacity is the hard seat limit for every event.
const EventCapacity = 8

// RegistrationState is the OPEN/CLOSED flag gating new subscriptions.
type RegistrationState string

const (
	RegistrationOpen   RegistrationState = "OPEN"
	RegistrationClosed RegistrationState = "CLOSED"
)

// Event represents a bookable kayak tour created by a moderator.
type Event struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Price            float64   `json:"price"`
	EventStarts      time.Time `json:"eventStarts"`
	EventEnds        time.Time `json:"eventEnds"`
	RegistrationOpen bool      `json:"isRegistrationOpened"`
	CreatedAt        time.Time `json:"createdAt"`

	// Roster holds the subscribed customer ids. It is only populated by
	// the subscription engine.
	Roster []string `json:"customerIds,omitempty"`
}

// State reports the registration state of the event.
func (e *Event) State() RegistrationState {
	if e.RegistrationOpen {
		return RegistrationOpen
	}
	return RegistrationClosed
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	if n := EventCapacity - len(e.Roster); n > 0 {
		return n
	}
	return 0
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return len(e.Roster) >= EventCapacity
}

// HasCustomer reports whether customerID is on the roster.
func (e *Event) HasCustomer(customerID string) bool {
	for _, id := range e.Roster {
		if id == customerID {
			return true
		}
	}
	return false
}

// Customer is an account held by the identity provider.
type Customer struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	UserName         string    `json:"userName"`
	PhoneNumber      string    `json:"phoneNumber,omitempty"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	EmailConfirmed   bool      `json:"emailConfirmed"`
	ConfirmationCode string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CustomerSummary is the public view of a subscribed customer.
type CustomerSummary struct {
	ID          string `json:"id"`
	UserName    string `json:"userName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	EventStarts time.Time `json:"eventStarts"`
	EventEnds   time.Time `json:"eventEnds"`
}

// UpdateEventRequest overwrites the editable fields of an event. It never
// touches registration state or the roster.
type UpdateEventRequest CreateEventRequest

// RegisterRequest is the payload for creating a customer account.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	UserName    string `json:"userName"`
	PhoneNumber string `json:"phoneNumber"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	UserName    string    `json:"userName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ForgotPasswordRequest asks for a password reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest sets a new password using the emailed reset token.
type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPasswordLink echoes the query of an emailed reset link so a client
// can prefill its reset form.
type ResetPasswordLink struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// ChangePasswordRequest replaces the password of the signed-in account.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangeEmailRequest starts moving the signed-in account to a new address.
type ChangeEmailRequest struct {
	Email string `json:"email"`
}

// MessageResponse is the envelope for plain success messages.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}
