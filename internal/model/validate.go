package model

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation constraints for events and accounts.
const (
	MinEventNameLen        = 4
	MaxEventNameLen        = 42
	MinEventDescriptionLen = 4
	MaxEventDescriptionLen = 333
	MinEventPrice          = 0.1
	MaxEventPrice          = 1000
	MinPasswordLen         = 6

	DefaultPageNumber = 1
	DefaultPageSize   = 20
	MaxPageSize       = 100

	// MaxPageNumber keeps Offset within int for every page size.
	MaxPageNumber = math.MaxInt/MaxPageSize + 1
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldMap groups messages by field name for the JSON error envelope.
func (e *ValidationError) FieldMap() map[string][]string {
	m := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = append(m[f.Field], f.Msg)
	}
	return m
}

// asError returns nil for an empty list so callers can return it directly.
func asError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

// Validate checks the event payload. Names and descriptions are trimmed in place.
func (r *CreateEventRequest) Validate() error {
	var errs []FieldError

	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)

	if n := utf8.RuneCountInString(r.Name); n < MinEventNameLen || n > MaxEventNameLen {
		errs = append(errs, FieldError{"name", fmt.Sprintf("must be between %d and %d characters", MinEventNameLen, MaxEventNameLen)})
	}
	if n := utf8.RuneCountInString(r.Description); n < MinEventDescriptionLen || n > MaxEventDescriptionLen {
		errs = append(errs, FieldError{"description", fmt.Sprintf("must be between %d and %d characters", MinEventDescriptionLen, MaxEventDescriptionLen)})
	}
	if r.Price < MinEventPrice || r.Price > MaxEventPrice {
		errs = append(errs, FieldError{"price", fmt.Sprintf("must be between %g and %g", MinEventPrice, float64(MaxEventPrice))})
	}
	if r.EventStarts.IsZero() {
		errs = append(errs, FieldError{"eventStarts", "required"})
	}
	if r.EventEnds.IsZero() {
		errs = append(errs, FieldError{"eventEnds", "required"})
	}
	if !r.EventStarts.IsZero() && !r.EventEnds.IsZero() && r.EventEnds.Before(r.EventStarts) {
		errs = append(errs, FieldError{"eventEnds", "must not be before eventStarts"})
	}

	return asError(errs)
}

// Validate checks the update payload with the same rules as creation.
func (r *UpdateEventRequest) Validate() error {
	return (*CreateEventRequest)(r).Validate()
}

// Validate checks the account registration payload.
func (r *RegisterRequest) Validate() error {
	var errs []FieldError

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.UserName = strings.TrimSpace(r.UserName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)

	errs = append(errs, emailProblems("email", r.Email)...)
	for _, msg := range passwordProblems(r.Password) {
		errs = append(errs, FieldError{"password", msg})
	}

	return asError(errs)
}

func emailProblems(field, email string) []FieldError {
	if email == "" {
		return []FieldError{{field, "required"}}
	}
	if !IsValidEmail(email) {
		return []FieldError{{field, "not a valid email address"}}
	}
	return nil
}

// Validate normalises the email and checks it.
func (r *ForgotPasswordRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return asError(emailProblems("email", r.Email))
}

// Validate checks the reset payload. The new password follows the
// registration policy.
func (r *ResetPasswordRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Token = strings.TrimSpace(r.Token)

	errs := emailProblems("email", r.Email)
	if r.Token == "" {
		errs = append(errs, FieldError{"token", "required"})
	}
	for _, msg := range passwordProblems(r.Password) {
		errs = append(errs, FieldError{"password", msg})
	}
	return asError(errs)
}

func (r *ChangePasswordRequest) Validate() error {
	var errs []FieldError
	if r.OldPassword == "" {
		errs = append(errs, FieldError{"oldPassword", "required"})
	}
	for _, msg := range passwordProblems(r.NewPassword) {
		errs = append(errs, FieldError{"newPassword", msg})
	}
	return asError(errs)
}

func (r *ChangeEmailRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return asError(emailProblems("email", r.Email))
}

// IsValidEmail does a basic structural check.
func IsValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

func passwordProblems(pw string) []string {
	var out []string
	if utf8.RuneCountInString(pw) < MinPasswordLen {
		out = append(out, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	var upper, lower, digit, symbol bool
	for _, c := range pw {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		default:
			symbol = true
		}
	}
	if !upper {
		out = append(out, "must contain an uppercase letter")
	}
	if !lower {
		out = append(out, "must contain a lowercase letter")
	}
	if !digit {
		out = append(out, "must contain a digit")
	}
	if !symbol {
		out = append(out, "must contain a non-alphanumeric character")
	}
	return out
}

// PageQuery selects one page of the event listing.
type PageQuery struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// Normalize fills defaults and clamps the page number and size.
func (q PageQuery) Normalize() PageQuery {
	if q.PageNumber < 1 {
		q.PageNumber = DefaultPageNumber
	}
	if q.PageNumber > MaxPageNumber {
		q.PageNumber = MaxPageNumber
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// Offset is the number of rows to skip for this page.
func (q PageQuery) Offset() int {
	return (q.PageNumber - 1) * q.PageSize
}
