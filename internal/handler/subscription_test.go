package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/service"
)

func decodeMessage(t *testing.T, body []byte) string {
	t.Helper()
	var m model.MessageResponse
	require.NoError(t, json.Unmarshal(body, &m))
	return m.Message
}

func decodeError(t *testing.T, body []byte) string {
	t.Helper()
	var e model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Error
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		resolveErr error
		subErr     error
		wantStatus int
		wantMsg    string
	}{
		{"success", nil, nil, http.StatusOK, "Successfully applied for the event."},
		{"unknown user", service.ErrUnauthorized, nil, http.StatusUnauthorized, "User not found."},
		{"missing event", nil, service.ErrEventNotFound, http.StatusNotFound, "Event not found."},
		{"duplicate", nil, service.ErrAlreadySubscribed, http.StatusBadRequest, "User is already subscribed to this event."},
		{"closed", nil, service.ErrRegistrationClosed, http.StatusBadRequest, "Registration for this event is closed."},
		{"storage", nil, errors.New("db down"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.accounts.On("ResolveCustomer", mock.Anything, mock.MatchedBy(func(p *auth.Principal) bool {
				return p.Subject == "C1"
			})).Return("C1", tc.resolveErr)
			if tc.resolveErr == nil {
				api.subs.On("Subscribe", mock.Anything, int64(5), "C1").Return(&model.Event{ID: 5}, tc.subErr)
			}

			rec := api.do(http.MethodPost, "/api/eventSubscription/apply/5", api.token(t, "C1", auth.RoleCustomer), "")

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, tc.wantMsg, decodeMessage(t, rec.Body.Bytes()))
			} else {
				assert.Equal(t, tc.wantMsg, decodeError(t, rec.Body.Bytes()))
			}
			api.subs.AssertExpectations(t)
		})
	}
}

func TestApply_RequiresCustomerRole(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/eventSubscription/apply/5", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec.Body.Bytes()))

	rec = api.do(http.MethodPost, "/api/eventSubscription/apply/5", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/eventSubscription/apply/5", api.token(t, "M1", auth.RoleModerator), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec.Body.Bytes()))

	api.subs.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything)
}

func TestCloseAndOpenRegistration(t *testing.T) {
	api := newTestAPI(t)
	mod := api.token(t, "M1", auth.RoleModerator)
	api.subs.On("CloseRegistration", mock.Anything, int64(1)).Return(&model.Event{ID: 1}, nil)
	api.subs.On("OpenRegistration", mock.Anything, int64(1)).Return(&model.Event{ID: 1, RegistrationOpen: true}, nil)
	api.subs.On("CloseRegistration", mock.Anything, int64(99)).Return(nil, service.ErrEventNotFound)
	api.subs.On("OpenRegistration", mock.Anything, int64(99)).Return(nil, service.ErrEventNotFound)

	rec := api.do(http.MethodPost, "/api/eventSubscription/closeRegistration/1", mod, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Registration closed.", decodeMessage(t, rec.Body.Bytes()))

	rec = api.do(http.MethodPost, "/api/eventSubscription/openRegistration/1", mod, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Registration opened.", decodeMessage(t, rec.Body.Bytes()))

	for _, path := range []string{
		"/api/eventSubscription/closeRegistration/99",
		"/api/eventSubscription/openRegistration/99",
		"/api/eventSubscription/openRegistration/abc",
	} {
		rec = api.do(http.MethodPost, path, mod, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Event not found.", decodeError(t, rec.Body.Bytes()), path)
	}

	rec = api.do(http.MethodPost, "/api/eventSubscription/closeRegistration/1", api.token(t, "C1", auth.RoleCustomer), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteCustomerFromEvent(t *testing.T) {
	api := newTestAPI(t)
	mod := api.token(t, "M1", auth.RoleModerator)
	api.subs.On("RemoveCustomer", mock.Anything, int64(1), "C1").Return(nil)
	api.subs.On("RemoveCustomer", mock.Anything, int64(1), "C2").Return(service.ErrNotOnRoster)

	rec := api.do(http.MethodPost, "/api/eventSubscription/deleteCustomerFromEvent/1?customerId=C1", mod, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Customer is deleted from the event", decodeMessage(t, rec.Body.Bytes()))

	rec = api.do(http.MethodPost, "/api/eventSubscription/deleteCustomerFromEvent/1?customerId=C2", mod, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not find this event with this customer", decodeError(t, rec.Body.Bytes()))

	rec = api.do(http.MethodPost, "/api/eventSubscription/deleteCustomerFromEvent/1", mod, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not find this event with this customer", decodeError(t, rec.Body.Bytes()))
	api.subs.AssertNumberOfCalls(t, "RemoveCustomer", 2)
}

func TestGetAllAppliedCustomers(t *testing.T) {
	api := newTestAPI(t)
	mod := api.token(t, "M1", auth.RoleModerator)
	api.subs.On("ListAppliedCustomers", mock.Anything, int64(1)).
		Return([]model.CustomerSummary{{ID: "C1", Email: "c1@example.com"}}, nil)
	api.subs.On("ListAppliedCustomers", mock.Anything, int64(2)).Return([]model.CustomerSummary{}, nil)
	api.subs.On("ListAppliedCustomers", mock.Anything, int64(99)).Return(nil, service.ErrEventNotFound)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := api.do(method, "/api/eventSubscription/getAllAppliedCustomers/1", mod, "")
		require.Equal(t, http.StatusOK, rec.Code, method)
		var got []model.CustomerSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "c1@example.com", got[0].Email)
	}

	rec := api.do(http.MethodGet, "/api/eventSubscription/getAllAppliedCustomers/2", mod, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/eventSubscription/getAllAppliedCustomers/99", mod, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found.", decodeError(t, rec.Body.Bytes()))
}

func TestSubscriptionGetEvent(t *testing.T) {
	api := newTestAPI(t)
	mod := api.token(t, "M1", auth.RoleModerator)
	api.subs.On("GetEvent", mock.Anything, int64(1)).
		Return(&model.Event{ID: 1, Name: "Dawn", Roster: []string{"C1", "C2"}}, nil)

	rec := api.do(http.MethodGet, "/api/eventSubscription/event/1", mod, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		ID          int64    `json:"id"`
		CustomerIDs []string `json:"customerIds"`
		State       string   `json:"registrationState"`
		Capacity    int      `json:"capacity"`
		Remaining   int      `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, []string{"C1", "C2"}, got.CustomerIDs)
	assert.Equal(t, "CLOSED", got.State)
	assert.Equal(t, 8, got.Capacity)
	assert.Equal(t, 6, got.Remaining)
}
