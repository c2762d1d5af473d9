package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking/internal/config"
	"github.com/iliyamo/seat-booking/internal/handler"
	"github.com/iliyamo/seat-booking/internal/middleware"
	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/repository"
	"github.com/iliyamo/seat-booking/internal/service"
)

const date = "2025-03-10"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	cfg := config.Config{JWTSecret: "router-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	store := repository.NewMemoryStore()
	logger := log.New("test")
	logger.SetOutput(io.Discard)
	svc := service.NewBookingService(store, store, nil, logger)

	e := echo.New()
	e.Logger = logger
	passThrough := middleware.RateLimit(config.RateLimitConfig{}, nil)
	RegisterRoutes(e, &handler.ReadyHandler{})
	RegisterAuth(e, handler.NewAuthHandler(cfg, store, store), passThrough)
	RegisterBooking(e, handler.NewBookingHandler(svc), cfg.JWTSecret, passThrough)
	return &api{t: t, e: e}
}

func (a *api) do(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type session struct {
	id     string
	access string
	cookie *http.Cookie
}

func (a *api) register(name, email, role string) session {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "",
		`{"name":"`+name+`","email":"`+email+`","password":"secret123","role":"`+role+`"}`)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		User   struct{ ID string } `json:"user"`
		Access struct{ Token string } `json:"access"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	s := session{id: out.User.ID, access: out.Access.Token}
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.AuthCookie {
			s.cookie = ck
		}
	}
	return s
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	admin := a.register("Ada", "ada@example.com", "admin")
	alice := a.register("Alice", "alice@example.com", "")
	bob := a.register("Bob", "bob@example.com", "user")

	rec := a.do(http.MethodPost, "/api/booking/seats", admin.access, `{"seatNumber":"A1","date":"`+date+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	seat := decode[model.Seat](t, rec)

	rec = a.do(http.MethodPost, "/api/booking/seats", alice.access, `{"seatNumber":"A2","date":"`+date+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/booking/seats", admin.access, `{"seatNumber":"A1","date":"`+date+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"conflict"`)

	rec = a.do(http.MethodGet, "/api/booking/seats?date="+date, bob.access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Seat](t, rec), 1)

	rec = a.do(http.MethodPatch, "/api/booking/seats/book/"+seat.ID, alice.access, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[model.Seat](t, rec).IsAvailable)

	rec = a.do(http.MethodPatch, "/api/booking/seats/book/"+seat.ID, bob.access, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "seat already booked")

	rec = a.do(http.MethodPatch, "/api/booking/seats/book/"+seat.ID, admin.access, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPatch, "/api/booking/seats/unbook/"+seat.ID, bob.access, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPatch, "/api/booking/mark-attendance/"+seat.ID, admin.access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.Seat](t, rec).AttendanceMarked)

	rec = a.do(http.MethodGet, "/api/booking/attendance?date="+date, admin.access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]model.Booking](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "alice@example.com", records[0].User.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.do(http.MethodGet, "/api/booking/my-bookings?date="+date, alice.access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Seat](t, rec), 1)

	rec = a.do(http.MethodGet, "/api/booking/users-with-bookings?date="+date, admin.access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.UserBookings](t, rec), 3)

	rec = a.do(http.MethodPatch, "/api/booking/seats/unbook/"+seat.ID, admin.access, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPatch, "/api/booking/seats/unbook/"+seat.ID, admin.access, `{"userId":"`+alice.id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "seat unbooked successfully")

	rec = a.do(http.MethodGet, "/api/booking/history?date="+date, admin.access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Booking](t, rec))

	rec = a.do(http.MethodDelete, "/api/booking/seats/"+seat.ID, admin.access, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodDelete, "/api/booking/seats/"+seat.ID, admin.access, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuotaOverHTTP(t *testing.T) {
	a := newAPI(t)
	admin := a.register("Ada", "ada@example.com", "admin")
	alice := a.register("Alice", "alice@example.com", "user")

	rec := a.do(http.MethodPost, "/api/booking/seats/bulk", admin.access,
		`{"seatNumbers":["a1","a2","a3","a4","a5","a6","a7"],"date":"`+date+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Seats []model.Seat `json:"seats"`
	}](t, rec)
	require.Len(t, created.Seats, 7)

	for _, s := range created.Seats[:service.DailySeatLimit] {
		rec = a.do(http.MethodPatch, "/api/booking/seats/book/"+s.ID, alice.access, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec = a.do(http.MethodPatch, "/api/booking/seats/book/"+created.Seats[6].ID, alice.access, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"quota_exceeded"`)
}

func TestAccessGate(t *testing.T) {
	a := newAPI(t)
	alice := a.register("Alice", "alice@example.com", "user")

	rec := a.do(http.MethodGet, "/api/booking/seats?date="+date, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/api/booking/seats?date="+date, "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/api/booking/history?date="+date, alice.access, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/api/booking/seats", alice.access, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"validation"`)

	// browser clients authenticate with the login cookie
	require.NotNil(t, alice.cookie)
	assert.True(t, alice.cookie.HttpOnly)
	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.AddCookie(alice.cookie)
	rr := httptest.NewRecorder()
	a.e.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice@example.com")
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestAuthEndpoints(t *testing.T) {
	a := newAPI(t)
	a.register("Alice", "alice@example.com", "user")

	rec := a.do(http.MethodPost, "/api/auth/register", "", `{"name":"Alice","email":"ALICE@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/register", "", `{"name":"Eve","email":"eve@example.com","password":"123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/register", "", `{"name":"Eve","email":"eve@example.com","password":"secret123","role":"root"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[struct {
		Refresh struct{ Token string } `json:"refresh"`
	}](t, rec)

	rec = a.do(http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// the presented token was rotated out
	rec = a.do(http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/logout", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.AuthCookie && ck.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestOperationalEndpoints(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/readyz", "", "").Code)

	rec := a.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
