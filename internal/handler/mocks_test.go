package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
)

type mockEventService struct{ mock.Mock }

func (m *mockEventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	args := m.Called(ctx, req)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockEventService) ListEvents(ctx context.Context, q model.PageQuery) ([]model.Event, error) {
	args := m.Called(ctx, q)
	list, _ := args.Get(0).([]model.Event)
	return list, args.Error(1)
}

func (m *mockEventService) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockEventService) UpdateEvent(ctx context.Context, id int64, req model.UpdateEventRequest) (*model.Event, error) {
	args := m.Called(ctx, id, req)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockEventService) DeleteEvent(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockSubscriptionService struct{ mock.Mock }

func (m *mockSubscriptionService) GetEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockSubscriptionService) Subscribe(ctx context.Context, eventID int64, customerID string) (*model.Event, error) {
	args := m.Called(ctx, eventID, customerID)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockSubscriptionService) CloseRegistration(ctx context.Context, eventID int64) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockSubscriptionService) OpenRegistration(ctx context.Context, eventID int64) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockSubscriptionService) RemoveCustomer(ctx context.Context, eventID int64, customerID string) error {
	return m.Called(ctx, eventID, customerID).Error(0)
}

func (m *mockSubscriptionService) ListAppliedCustomers(ctx context.Context, eventID int64) ([]model.CustomerSummary, error) {
	args := m.Called(ctx, eventID)
	list, _ := args.Get(0).([]model.CustomerSummary)
	return list, args.Error(1)
}

type mockAccountService struct{ mock.Mock }

func (m *mockAccountService) Register(ctx context.Context, req model.RegisterRequest) (*model.Customer, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*model.Customer)
	return c, args.Error(1)
}

func (m *mockAccountService) ConfirmEmail(ctx context.Context, customerID, code string) error {
	return m.Called(ctx, customerID, code).Error(0)
}

func (m *mockAccountService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*model.LoginResponse)
	return resp, args.Error(1)
}

func (m *mockAccountService) ResolveCustomer(ctx context.Context, p *auth.Principal) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockAccountService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAccountService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAccountService) ChangePassword(ctx context.Context, p *auth.Principal, req model.ChangePasswordRequest) error {
	return m.Called(ctx, p, req).Error(0)
}

func (m *mockAccountService) ChangeEmail(ctx context.Context, p *auth.Principal, req model.ChangeEmailRequest) error {
	return m.Called(ctx, p, req).Error(0)
}

func (m *mockAccountService) ConfirmNewEmail(ctx context.Context, customerID, token, newEmail string) error {
	return m.Called(ctx, customerID, token, newEmail).Error(0)
}

// testAPI wires the real router to mocked services.
type testAPI struct {
	events   *mockEventService
	subs     *mockSubscriptionService
	accounts *mockAccountService
	tokens   *auth.TokenIssuer
	router   http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{
		events:   &mockEventService{},
		subs:     &mockSubscriptionService{},
		accounts: &mockAccountService{},
		tokens:   auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "kayak-tours", time.Hour),
	}
	api.router = NewRouter(RouterDeps{
		Events:        api.events,
		Subscriptions: api.subs,
		Accounts:      api.accounts,
		Tokens:        api.tokens,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return api
}

func (api *testAPI) token(t *testing.T, subject string, role auth.Role) string {
	t.Helper()
	tok, _, err := api.tokens.Issue(subject, subject+"@example.com", role)
	require.NoError(t, err)
	return tok
}

func (api *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}
