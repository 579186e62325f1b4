package service

import "errors"

// Errors returned by the services. Handlers match them with errors.Is and
// map each to a fixed client message; anything else is an internal error.
var (
	// Lookups that found nothing.
	ErrEventNotFound = errors.New("event not found")
	ErrNotOnRoster   = errors.New("customer is not subscribed to this event")

	// The token is valid but its account is gone.
	ErrUnauthorized = errors.New("caller could not be resolved to a customer")

	// The event is not accepting subscribers.
	ErrRegistrationClosed = errors.New("registration for this event is closed")

	// The change would duplicate existing state.
	ErrAlreadySubscribed = errors.New("customer is already subscribed to this event")
	ErrEmailTaken        = errors.New("email is already registered")

	// Account flows.
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotConfirmed   = errors.New("email address is not confirmed")
	ErrInvalidConfirmation = errors.New("invalid confirmation link")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInvalidResetToken   = errors.New("invalid or expired password reset token")
	ErrWrongPassword       = errors.New("current password does not match")
)
