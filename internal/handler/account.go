package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/service"
)

const (
	msgCheckEmail            = "Please, check your email to finish account creating"
	msgEmailTaken            = "Email is already registered."
	msgInvalidCredentials    = "Invalid email or password"
	msgEmailNotConfirmed     = "Email is not confirmed."
	msgEmailConfirmed        = "Email is confirmed."
	msgEmailConfirmationFail = "Email confirmation error."

	msgNoSuchEmail       = "User with this email doesn't exist."
	msgResetLinkSent     = "the password reset confirmation link is sent to email"
	msgUserNotFound      = "User not found."
	msgInvalidResetToken = "Invalid token."
	msgPasswordReset     = "Password has been changed"
	msgLogInFirst        = "First, log in to your account"
	msgWrongPassword     = "Current password is not correct."
	msgPasswordChanged   = "Password changed successfully."
	msgCheckNewEmail     = "Please, check your email to confirm new email."
	msgNewEmailSet       = "New email has set."
)

// AccountService is the identity provider the handlers depend on.
// *service.AccountService satisfies it.
type AccountService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.Customer, error)
	ConfirmEmail(ctx context.Context, customerID, code string) error
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
	ResolveCustomer(ctx context.Context, p *auth.Principal) (string, error)
	ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, p *auth.Principal, req model.ChangePasswordRequest) error
	ChangeEmail(ctx context.Context, p *auth.Principal, req model.ChangeEmailRequest) error
	ConfirmNewEmail(ctx context.Context, customerID, token, newEmail string) error
}

// AccountHandler holds the HTTP handlers under /api/account and
// /api/manageAccount.
type AccountHandler struct {
	svc    AccountService
	logger *slog.Logger
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(svc AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// Register handles POST /api/account/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if _, err := h.svc.Register(r.Context(), req); err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, service.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, msgEmailTaken)
		default:
			writeInternal(w, r, h.logger, "register", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgCheckEmail)
}

// Login handles POST /api/account/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		case errors.Is(err, service.ErrEmailNotConfirmed):
			writeError(w, http.StatusUnauthorized, msgEmailNotConfirmed)
		default:
			writeInternal(w, r, h.logger, "login", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ConfirmEmail handles GET /api/account/confirmEmail?userId=&code=
// This is the link sent by email after registration.
func (h *AccountHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.svc.ConfirmEmail(r.Context(), q.Get("userId"), q.Get("code")); err != nil {
		if errors.Is(err, service.ErrInvalidConfirmation) {
			writeError(w, http.StatusBadRequest, msgEmailConfirmationFail)
			return
		}
		writeInternal(w, r, h.logger, "confirm email", err)
		return
	}

	writeMessage(w, http.StatusOK, msgEmailConfirmed)
}

// ForgotPassword handles POST /api/account/forgotPassword
func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, service.ErrCustomerNotFound):
			writeError(w, http.StatusNotFound, msgNoSuchEmail)
		default:
			writeInternal(w, r, h.logger, "forgot password", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgResetLinkSent)
}

// ResetPasswordLink handles GET /api/account/resetPassword?token=&email=
// This is the link sent by ForgotPassword; it echoes the query for the
// client's reset form.
func (h *AccountHandler) ResetPasswordLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, model.ResetPasswordLink{Email: q.Get("email"), Token: q.Get("token")})
}

// ResetPassword handles POST /api/account/resetPassword
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, service.ErrCustomerNotFound):
			writeError(w, http.StatusNotFound, msgUserNotFound)
		case errors.Is(err, service.ErrInvalidResetToken):
			writeError(w, http.StatusBadRequest, msgInvalidResetToken)
		default:
			writeInternal(w, r, h.logger, "reset password", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgPasswordReset)
}

// ChangePassword handles POST /api/manageAccount/changePassword
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req model.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	p, _ := auth.PrincipalFrom(r.Context())
	if err := h.svc.ChangePassword(r.Context(), p, req); err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, service.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, msgLogInFirst)
		case errors.Is(err, service.ErrWrongPassword):
			writeError(w, http.StatusBadRequest, msgWrongPassword)
		default:
			writeInternal(w, r, h.logger, "change password", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgPasswordChanged)
}

// ChangeEmail handles POST /api/manageAccount/changeEmail
func (h *AccountHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	var req model.ChangeEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	p, _ := auth.PrincipalFrom(r.Context())
	if err := h.svc.ChangeEmail(r.Context(), p, req); err != nil {
		switch {
		case writeValidation(w, err):
		case errors.Is(err, service.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, msgLogInFirst)
		case errors.Is(err, service.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, msgEmailTaken)
		default:
			writeInternal(w, r, h.logger, "change email", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgCheckNewEmail)
}

// ConfirmNewEmail handles GET /api/manageAccount/confirmNewEmail?customerId=&token=&newEmail=
func (h *AccountHandler) ConfirmNewEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID := q.Get("customerId")
	if err := h.svc.ConfirmNewEmail(r.Context(), customerID, q.Get("token"), q.Get("newEmail")); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidConfirmation):
			writeError(w, http.StatusBadRequest, msgEmailConfirmationFail)
		case errors.Is(err, service.ErrCustomerNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("Can not find a customer with ID '%s'.", customerID))
		case errors.Is(err, service.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, msgEmailTaken)
		default:
			writeInternal(w, r, h.logger, "confirm new email", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, msgNewEmailSet)
}
