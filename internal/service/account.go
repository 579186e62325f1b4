package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/idgen"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/notify"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/repository"
)

// CustomerStore is the account persistence used by AccountService.
// *repository.CustomerRepository satisfies it.
type CustomerStore interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	GetByEmail(ctx context.Context, email string) (*model.Customer, error)
	ConfirmEmail(ctx context.Context, id, code string) error
	SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, email, code, hash string, now time.Time) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetPendingEmail(ctx context.Context, id, email, code string) error
	ConfirmNewEmail(ctx context.Context, id, email, code string) error
}

// ResetCodeTTL is how long an emailed password reset link stays valid.
const ResetCodeTTL = time.Hour

// TokenSigner issues bearer tokens. *auth.TokenIssuer satisfies it.
type TokenSigner interface {
	Issue(subject, email string, role auth.Role) (string, time.Time, error)
}

// AccountService is the identity provider: account registration, email
// confirmation, login, password and email management, and resolving a
// token back to a customer.
type AccountService struct {
	customers  CustomerStore
	tokens     TokenSigner
	notifier   notify.Notifier
	bcryptCost int
	publicURL  string
	logger     *slog.Logger
	now        func() time.Time
}

// NewAccountService constructs an AccountService. publicURL is the base of
// the confirmation links sent by email.
func NewAccountService(
	customers CustomerStore,
	tokens TokenSigner,
	notifier notify.Notifier,
	bcryptCost int,
	publicURL string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		customers:  customers,
		tokens:     tokens,
		notifier:   notifier,
		bcryptCost: bcryptCost,
		publicURL:  strings.TrimRight(publicURL, "/"),
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates an unconfirmed Customer account and emails a
// confirmation link to it.
func (s *AccountService) Register(ctx context.Context, req model.RegisterRequest) (*model.Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	code, err := idgen.ConfirmationCode()
	if err != nil {
		return nil, err
	}
	c, err := s.newCustomer(req, auth.RoleCustomer)
	if err != nil {
		return nil, err
	}
	c.ConfirmationCode = code

	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	s.logger.InfoContext(ctx, "customer registered", "customer_id", c.ID)

	body := "Please, confirm your email by clicking this link: \n" + s.confirmationLink(c.ID, code)
	if err := s.notifier.SendEmail(ctx, c.Email, "Confirm your email", body); err != nil {
		s.logger.WarnContext(ctx, "confirmation email failed", "customer_id", c.ID, "error", err)
	}
	return c, nil
}

func (s *AccountService) newCustomer(req model.RegisterRequest, role auth.Role) (*model.Customer, error) {
	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	userName := req.UserName
	if userName == "" {
		userName = req.Email
	}
	return &model.Customer{
		ID:           uuid.NewString(),
		Email:        req.Email,
		UserName:     userName,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hash,
		Role:         role.String(),
	}, nil
}

func (s *AccountService) confirmationLink(customerID, code string) string {
	q := url.Values{}
	q.Set("userId", customerID)
	q.Set("code", code)
	return s.link("/api/account/confirmEmail", q)
}

func (s *AccountService) link(path string, q url.Values) string {
	return s.publicURL + path + "?" + q.Encode()
}

// ConfirmEmail marks the account confirmed if code is the one that was sent.
func (s *AccountService) ConfirmEmail(ctx context.Context, customerID, code string) error {
	if customerID == "" || code == "" {
		return ErrInvalidConfirmation
	}
	if err := s.customers.ConfirmEmail(ctx, customerID, code); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidConfirmation
		}
		return fmt.Errorf("confirm email: %w", err)
	}
	s.logger.InfoContext(ctx, "email confirmed", "customer_id", customerID)
	return nil
}

// Login checks the credentials of a confirmed account and issues a token.
func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	c, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !auth.CheckPassword(c.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !c.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	role, err := auth.ParseRole(c.Role)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	token, expiresAt, err := s.tokens.Issue(c.ID, c.Email, role)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{
		UserName:    c.UserName,
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
		Token:       token,
		ExpiresAt:   expiresAt,
	}, nil
}

// ResolveCustomer maps an authenticated principal to the id of an account
// that still exists. ErrUnauthorized is returned otherwise.
func (s *AccountService) ResolveCustomer(ctx context.Context, p *auth.Principal) (string, error) {
	c, err := s.principalCustomer(ctx, p)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// EnsureModerator creates a confirmed Moderator account unless one with
// this email already exists. It reports whether an account was created.
func (s *AccountService) EnsureModerator(ctx context.Context, email, password string) (*model.Customer, bool, error) {
	req := model.RegisterRequest{Email: email, Password: password}
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.customers.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if existing.Role != auth.RoleModerator.String() {
			return nil, false, fmt.Errorf("account %s exists with role %s", req.Email, existing.Role)
		}
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("ensure moderator: %w", err)
	}

	c, err := s.newCustomer(req, auth.RoleModerator)
	if err != nil {
		return nil, false, err
	}
	c.EmailConfirmed = true
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, ErrEmailTaken
		}
		return nil, false, fmt.Errorf("ensure moderator: %w", err)
	}
	s.logger.InfoContext(ctx, "moderator created", "customer_id", c.ID)
	return c, true, nil
}

// ForgotPassword emails a single-use reset link to a confirmed account.
// Unknown and unconfirmed addresses get ErrCustomerNotFound.
func (s *AccountService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	c, err := s.customers.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("forgot password: %w", err)
	}
	if !c.EmailConfirmed {
		return ErrCustomerNotFound
	}

	code, err := idgen.ConfirmationCode()
	if err != nil {
		return err
	}
	if err := s.customers.SetResetCode(ctx, c.ID, code, s.now().Add(ResetCodeTTL)); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	q := url.Values{}
	q.Set("token", code)
	q.Set("email", c.Email)
	body := "Please reset your password by clicking here: " + s.link("/api/account/resetPassword", q)
	if err := s.notifier.SendEmail(ctx, c.Email, "Reset Password", body); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset requested", "customer_id", c.ID)
	return nil
}

// ResetPassword sets a new password if req.Token is the account's unexpired
// reset code.
func (s *AccountService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	c, err := s.customers.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("reset password: %w", err)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.customers.ResetPassword(ctx, req.Email, req.Token, hash, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("reset password: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset", "customer_id", c.ID)
	return nil
}

// ChangePassword replaces the signed-in account's password after checking
// the current one.
func (s *AccountService) ChangePassword(ctx context.Context, p *auth.Principal, req model.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	c, err := s.principalCustomer(ctx, p)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(c.PasswordHash, req.OldPassword) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.customers.UpdatePassword(ctx, c.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("change password: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", "customer_id", c.ID)
	return nil
}

// ChangeEmail emails a confirmation link to the new address. The account
// keeps its current email until ConfirmNewEmail succeeds.
func (s *AccountService) ChangeEmail(ctx context.Context, p *auth.Principal, req model.ChangeEmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	c, err := s.principalCustomer(ctx, p)
	if err != nil {
		return err
	}
	switch _, err := s.customers.GetByEmail(ctx, req.Email); {
	case err == nil:
		return ErrEmailTaken
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("change email: %w", err)
	}

	code, err := idgen.ConfirmationCode()
	if err != nil {
		return err
	}
	if err := s.customers.SetPendingEmail(ctx, c.ID, req.Email, code); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("change email: %w", err)
	}

	q := url.Values{}
	q.Set("customerId", c.ID)
	q.Set("token", code)
	q.Set("newEmail", req.Email)
	body := "Please, confirm your new email by clicking this link: \n" + s.link("/api/manageAccount/confirmNewEmail", q)
	if err := s.notifier.SendEmail(ctx, req.Email, "Confirm your new email", body); err != nil {
		return fmt.Errorf("send email change link: %w", err)
	}
	s.logger.InfoContext(ctx, "email change requested", "customer_id", c.ID)
	return nil
}

// ConfirmNewEmail completes ChangeEmail. The user name follows the new
// address.
func (s *AccountService) ConfirmNewEmail(ctx context.Context, customerID, token, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if customerID == "" || token == "" || newEmail == "" {
		return ErrInvalidConfirmation
	}
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("confirm new email: %w", err)
	}

	if err := s.customers.ConfirmNewEmail(ctx, customerID, newEmail, token); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrInvalidConfirmation
		case errors.Is(err, repository.ErrDuplicate):
			return ErrEmailTaken
		}
		return fmt.Errorf("confirm new email: %w", err)
	}
	s.logger.InfoContext(ctx, "email changed", "customer_id", customerID)
	return nil
}

func (s *AccountService) principalCustomer(ctx context.Context, p *auth.Principal) (*model.Customer, error) {
	if p == nil || p.Subject == "" {
		return nil, ErrUnauthorized
	}
	c, err := s.customers.GetByID(ctx, p.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return c, nil
}
