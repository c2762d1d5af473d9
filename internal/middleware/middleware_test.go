package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking/internal/config"
	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/utils"
)

const secret = "mw-secret"

func okHandler(c echo.Context) error {
	p := Principal(c)
	return c.JSON(http.StatusOK, echo.Map{"user": p.UserID, "role": p.Role})
}

func serve(t *testing.T, h echo.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestJWTAuth(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, "u1", model.RoleUser, "u1@example.com", 5)
	require.NoError(t, err)
	h := JWTAuth(secret)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := serve(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"u1","role":"user"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: tok.Token})
	assert.Equal(t, http.StatusOK, serve(t, h, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(t, h, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, serve(t, h, req).Code)

	other, err := utils.NewAccessToken("another-secret", "u1", model.RoleUser, "", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(t, h, req).Code)
}

func TestRequireRole(t *testing.T) {
	adminTok, err := utils.NewAccessToken(secret, "a1", model.RoleAdmin, "", 5)
	require.NoError(t, err)
	userTok, err := utils.NewAccessToken(secret, "u1", model.RoleUser, "", 5)
	require.NoError(t, err)
	h := JWTAuth(secret)(RequireRole(model.RoleAdmin)(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminTok.Token)
	assert.Equal(t, http.StatusOK, serve(t, h, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+userTok.Token)
	assert.Equal(t, http.StatusForbidden, serve(t, h, req).Code)

	// without JWTAuth there is no role at all
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusForbidden, serve(t, RequireRole(model.RoleUser)(okHandler), req).Code)
}

func limitCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       3,
		RefillTokens:   1,
		RefillInterval: 2 * time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl:test",
	}
}

func fixClock(t *testing.T) time.Time {
	t.Helper()
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })
	return fixed
}

func scriptArgs(cfg config.RateLimitConfig, at time.Time) []interface{} {
	return []interface{}{at.UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), int64(cfg.TTL / time.Second)}
}

func TestRateLimitAllows(t *testing.T) {
	at := fixClock(t)
	cfg := limitCfg()
	rdb, mock := redismock.NewClientMock()
	mock.ExpectEvalSha(tokenBucket.Hash(), []string{"rl:test:ip:192.0.2.1"}, scriptArgs(cfg, at)...).
		SetVal([]interface{}{int64(1), int64(2), int64(0)})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	rec := serve(t, RateLimit(cfg, rdb)(okHandler), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitBlocks(t *testing.T) {
	at := fixClock(t)
	cfg := limitCfg()
	rdb, mock := redismock.NewClientMock()
	mock.ExpectEvalSha(tokenBucket.Hash(), []string{"rl:test:ip:192.0.2.1"}, scriptArgs(cfg, at)...).
		SetVal([]interface{}{int64(0), int64(0), int64(1500)})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	rec := serve(t, RateLimit(cfg, rdb)(okHandler), req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitFailsOpenWhenRedisErrors(t *testing.T) {
	fixClock(t)
	rdb, _ := redismock.NewClientMock()
	// no expectations: every command fails

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := serve(t, RateLimit(limitCfg(), rdb)(okHandler), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := limitCfg()
	cfg.Enabled = false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, serve(t, RateLimit(cfg, nil)(okHandler), req).Code)
}
