package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/service"
)

const createBody = `{
	"name": "Dawn Tour",
	"description": "Paddle at sunrise",
	"price": 45,
	"eventStarts": "2026-07-01T09:00:00Z",
	"eventEnds": "2026-07-01T12:00:00Z"
}`

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListEvents(t *testing.T) {
	api := newTestAPI(t)
	api.events.On("ListEvents", mock.Anything, model.PageQuery{PageNumber: 2, PageSize: 5}).
		Return([]model.Event{{ID: 6}, {ID: 7}}, nil)
	api.events.On("ListEvents", mock.Anything, model.PageQuery{PageNumber: 1, PageSize: model.DefaultPageSize}).
		Return(nil, nil)
	api.events.On("ListEvents", mock.Anything, model.PageQuery{PageNumber: model.MaxPageNumber, PageSize: model.DefaultPageSize}).
		Return(nil, nil)

	rec := api.do(http.MethodGet, "/api/events/all?pageNumber=2&pageSize=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rec = api.do(http.MethodGet, "/api/events/all", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/events/all?pageNumber=9223372036854775807", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	api.events.AssertCalled(t, "ListEvents", mock.Anything,
		model.PageQuery{PageNumber: model.MaxPageNumber, PageSize: model.DefaultPageSize})

	rec = api.do(http.MethodGet, "/api/events/all?pageNumber=99999999999999999999", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/events/all?pageSize=zero", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodGet, "/api/events/all?pageNumber=0", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEvent(t *testing.T) {
	api := newTestAPI(t)
	api.events.On("GetEvent", mock.Anything, int64(1)).Return(&model.Event{ID: 1, Name: "Dawn"}, nil)
	api.events.On("GetEvent", mock.Anything, int64(2)).Return(nil, service.ErrEventNotFound)
	api.events.On("GetEvent", mock.Anything, int64(3)).Return(nil, errors.New("db down"))

	rec := api.do(http.MethodGet, "/api/events/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Dawn", got.Name)

	rec = api.do(http.MethodGet, "/api/events/2", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found.", decodeError(t, rec.Body.Bytes()))

	rec = api.do(http.MethodGet, "/api/events/3", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestCreateEvent(t *testing.T) {
	api := newTestAPI(t)
	mod := api.token(t, "M1", auth.RoleModerator)
	api.events.On("CreateEvent", mock.Anything, mock.MatchedBy(func(req model.CreateEventRequest) bool {
		return req.Name == "Dawn Tour" && req.EventEnds.Sub(req.EventStarts) == 3*time.Hour
	})).Return(&model.Event{ID: 9, Name: "Dawn Tour", RegistrationOpen: true}, nil).Once()

	rec := api.do(http.MethodPost, "/api/events/createEvent", mod, createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/events/9", rec.Header().Get("Location"))
	var got model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.RegistrationOpen)

	api.events.AssertExpectations(t)
}

func TestCreateEvent_Errors(t *testing.T) {
	api := newTestAPI(t)
	mod := api.token(t, "M1", auth.RoleModerator)

	rec := api.do(http.MethodPost, "/api/events/createEvent", "", createBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/events/createEvent", api.token(t, "C1", auth.RoleCustomer), createBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/events/createEvent", mod, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/events/createEvent", mod, `{"capacity": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	verr := &model.ValidationError{Fields: []model.FieldError{{Field: "name", Msg: "too short"}}}
	api.events.On("CreateEvent", mock.Anything, mock.Anything).Return(nil, verr).Once()
	rec = api.do(http.MethodPost, "/api/events/createEvent", mod, createBody)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, []string{"too short"}, body.Fields["name"])
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	api := newTestAPI(t)
	mod := api.token(t, "M1", auth.RoleModerator)
	api.events.On("UpdateEvent", mock.Anything, int64(1), mock.Anything).Return(&model.Event{ID: 1, Name: "Dawn Tour"}, nil)
	api.events.On("UpdateEvent", mock.Anything, int64(2), mock.Anything).Return(nil, service.ErrEventNotFound)
	api.events.On("DeleteEvent", mock.Anything, int64(1)).Return(nil)
	api.events.On("DeleteEvent", mock.Anything, int64(2)).Return(service.ErrEventNotFound)

	rec := api.do(http.MethodPut, "/api/events/1", mod, createBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPut, "/api/events/2", mod, createBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/api/events/1", mod, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	rec = api.do(http.MethodDelete, "/api/events/2", mod, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/api/events/1", api.token(t, "C1", auth.RoleCustomer), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodOptions, "/api/events/all", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, LimiterConfig{RPS: 0.001, Burst: 2, IdleTTL: time.Minute})
	h := rl.Middleware(ClientIP)(http.HandlerFunc(HealthCheck))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:2222").Code)
	rec := call("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1111").Code, "other clients have their own bucket")
}

func TestRateLimiter_SweepDropsIdleBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, LimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})

	rl.getLimiter("a")
	rl.sweep(time.Now().Add(30 * time.Second))
	assert.Len(t, rl.buckets, 1)
	rl.sweep(time.Now().Add(2 * time.Minute))
	assert.Empty(t, rl.buckets)
}
