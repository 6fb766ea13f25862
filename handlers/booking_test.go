package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"servly/models"
	"servly/services/booking"
	"servly/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.Logger = zap.NewNop()
}

// stubEngine returns canned results so the handler's HTTP mapping can
// be exercised without a store.
type stubEngine struct {
	booking.BookingEngine

	booking    *models.Booking
	err        error
	pool       []models.Booking
	gotVersion int64
}

func (s *stubEngine) CreateBooking(context.Context, booking.CreateBookingRequest, models.Actor) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubEngine) ClaimBooking(context.Context, string, models.Actor, int64) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubEngine) StartService(_ context.Context, _ string, _ models.Actor, expectedVersion int64) (*models.Booking, error) {
	s.gotVersion = expectedVersion
	return s.booking, s.err
}

func (s *stubEngine) CancelBooking(context.Context, string, models.Actor, string, int64) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubEngine) ListPoolable(string) ([]models.Booking, error) {
	return s.pool, nil
}

func perform(h gin.HandlerFunc, actor *models.Actor, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookings/bk-1/start", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "bk-1"}}
	if actor != nil {
		c.Set("actor", *actor)
	}
	h(c)
	return w
}

func TestRunTransitionStatusMapping(t *testing.T) {
	provider := models.Actor{ID: "prov-a", Role: models.RoleProvider}

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid transition", booking.InvalidTransitionError{From: booking.StatusCompleted, To: booking.StatusCancelled}, http.StatusConflict},
		{"unauthorized", booking.UnauthorizedError{Reason: "not yours"}, http.StatusForbidden},
		{"version conflict", booking.ErrVersionConflict, http.StatusConflict},
		{"settlement applied", booking.ErrSettlementAlreadyApplied, http.StatusConflict},
		{"not eligible", booking.ErrProviderNotEligible, http.StatusForbidden},
		{"not found", booking.ErrBookingNotFound, http.StatusNotFound},
		{"unknown", assertableErr("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewBookingHandler(&stubEngine{err: tc.err}, zap.NewNop())
			w := perform(h.StartService, &provider, "")
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }

func TestTransitionWithoutActorIsUnauthorized(t *testing.T) {
	h := NewBookingHandler(&stubEngine{}, zap.NewNop())
	w := perform(h.StartService, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTransitionRejectsMalformedBody(t *testing.T) {
	provider := models.Actor{ID: "prov-a", Role: models.RoleProvider}
	h := NewBookingHandler(&stubEngine{}, zap.NewNop())
	w := perform(h.StartService, &provider, `{"expectedVersion": "not-a-number"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransitionSuccess(t *testing.T) {
	provider := models.Actor{ID: "prov-a", Role: models.RoleProvider}
	h := NewBookingHandler(&stubEngine{
		booking: &models.Booking{ID: "bk-1", Status: "in_progress"},
	}, zap.NewNop())

	w := perform(h.StartService, &provider, `{"expectedVersion": 2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Booking models.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "in_progress", resp.Booking.Status)
}

func TestTransitionBindsChunkedBody(t *testing.T) {
	provider := models.Actor{ID: "prov-a", Role: models.RoleProvider}
	eng := &stubEngine{booking: &models.Booking{ID: "bk-1", Status: "in_progress"}}
	h := NewBookingHandler(eng, zap.NewNop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookings/bk-1/start", strings.NewReader(`{"expectedVersion": 7}`))
	c.Request.Header.Set("Content-Type", "application/json")
	// Chunked transfer: no declared length, body still present.
	c.Request.ContentLength = -1
	c.Params = gin.Params{{Key: "id", Value: "bk-1"}}
	c.Set("actor", provider)

	h.StartService(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), eng.gotVersion)
}

func TestTransitionEmptyBodyMeansCurrentVersion(t *testing.T) {
	provider := models.Actor{ID: "prov-a", Role: models.RoleProvider}
	eng := &stubEngine{booking: &models.Booking{ID: "bk-1", Status: "in_progress"}}
	h := NewBookingHandler(eng, zap.NewNop())

	w := perform(h.StartService, &provider, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(-1), eng.gotVersion)
}

func TestLostClaimReturnsRefreshedPool(t *testing.T) {
	provider := models.Actor{ID: "prov-a", Role: models.RoleProvider}
	h := NewBookingHandler(&stubEngine{
		err:  booking.ErrAlreadyClaimed,
		pool: []models.Booking{{ID: "bk-2", Status: "pending"}},
	}, zap.NewNop())

	w := perform(h.ClaimBooking, &provider, "")
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Message string           `json:"message"`
		Pool    []models.Booking `json:"pool"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Pool, 1)
	assert.Equal(t, "bk-2", resp.Pool[0].ID)
}

func TestCreateBookingValidatesInput(t *testing.T) {
	cust := models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	h := NewBookingHandler(&stubEngine{}, zap.NewNop())

	// Missing required fields are rejected before the engine runs.
	w := perform(h.CreateBooking, &cust, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
