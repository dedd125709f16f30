package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func serve(t *testing.T, e *echo.Echo, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func echoAccount(c echo.Context) error {
	return c.String(http.StatusOK, Account(c))
}

func TestJWT(t *testing.T) {
	e := echo.New()
	e.GET("/x", echoAccount, JWT(secret))

	tok, err := IssueToken(secret, "SP2ALICE", "client", time.Hour)
	require.NoError(t, err)

	rec := serve(t, e, tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SP2ALICE", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(t, e, "").Code)

	forged, err := IssueToken([]byte("other"), "SP2ALICE", "client", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(t, e, forged).Code)

	expired, err := IssueToken(secret, "SP2ALICE", "client", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(t, e, expired).Code)
}

func TestAdminGuard(t *testing.T) {
	admins := map[string]bool{"SP2ADMIN": true}
	e := echo.New()
	e.GET("/x", echoAccount, JWT(secret), AdminGuard(func(a string) bool { return admins[a] }))

	ok, _ := IssueToken(secret, "SP2ADMIN", "admin", time.Hour)
	assert.Equal(t, http.StatusOK, serve(t, e, ok).Code)

	notListed, _ := IssueToken(secret, "SP2MALLORY", "admin", time.Hour)
	assert.Equal(t, http.StatusForbidden, serve(t, e, notListed).Code)

	wrongRole, _ := IssueToken(secret, "SP2ADMIN", "client", time.Hour)
	assert.Equal(t, http.StatusForbidden, serve(t, e, wrongRole).Code)
}

func TestRequireRoles(t *testing.T) {
	e := echo.New()
	e.GET("/x", echoAccount, JWT(secret), RequireRoles("operator", "admin"))

	op, _ := IssueToken(secret, "SP2OP", "operator", time.Hour)
	assert.Equal(t, http.StatusOK, serve(t, e, op).Code)

	none, _ := IssueToken(secret, "SP2OP", "", time.Hour)
	assert.Equal(t, http.StatusForbidden, serve(t, e, none).Code)

	client, _ := IssueToken(secret, "SP2OP", "client", time.Hour)
	assert.Equal(t, http.StatusForbidden, serve(t, e, client).Code)
}

func TestRateLimiter(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 1, nil))
	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("k", time.Now()))

	l := NewRateLimiter(1, 2, nil)
	now := time.Now()
	assert.True(t, l.Allow("a", now))
	assert.True(t, l.Allow("a", now))
	assert.False(t, l.Allow("a", now))
	assert.True(t, l.Allow("b", now))
	assert.True(t, l.Allow("a", now.Add(time.Second)))

	e := echo.New()
	e.GET("/x", echoAccount, NewRateLimiter(1, 1, nil).Middleware())
	assert.Equal(t, http.StatusOK, serve(t, e, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(t, e, "").Code)
}
