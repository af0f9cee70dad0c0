package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restopos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// ── StatusFor ────────────────────────────────────────────────────────────────

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apierror.NotFound("x"), http.StatusNotFound},
		{apierror.Conflict("x"), http.StatusConflict},
		{apierror.Precondition("x"), http.StatusPreconditionFailed},
		{apierror.Transient("x", errors.New("timeout")), http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", apierror.Conflict("x")), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestErrorHandler_HidesInternalDetail(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) { _ = c.Error(errors.New("pq: password authentication failed")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

// ── RateLimiter ──────────────────────────────────────────────────────────────

func TestRateLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	ok, _ := l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, end := l.allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, now.Add(time.Minute), end)

	ok, _ = l.allow("10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok, "a new window resets the count")
	assert.Equal(t, 1, l.Purge(), "only the idle key has expired")
}

func TestRateLimiter_Handler429(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)
	r := gin.New()
	r.Use(l.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

// ── RequestID ────────────────────────────────────────────────────────────────

func TestRequestID_GeneratedWhenMissing(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { seen = c.GetString(RequestIDKey) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

// ── Auth ─────────────────────────────────────────────────────────────────────

func TestJWTAuth(t *testing.T) {
	const secret = "s3cret"
	r := gin.New()
	r.GET("/x", JWTAuth(secret), RequireRole(RoleManager), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Operator())
	})

	sign := func(key, role string, exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
			UserID: "u-1", Username: "meera", Role: role,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		}).SignedString([]byte(key))
		require.NoError(t, err)
		return tok
	}
	call := func(tok string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := call(sign(secret, RoleManager, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "meera", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(sign("other", RoleManager, time.Now().Add(time.Hour))).Code)
	assert.Equal(t, http.StatusUnauthorized, call(sign(secret, RoleManager, time.Now().Add(-time.Minute))).Code)
	assert.Equal(t, http.StatusForbidden, call(sign(secret, RoleCashier, time.Now().Add(time.Hour))).Code)
}

func TestJWTClaims_CanAccessOutlet(t *testing.T) {
	unscoped := &JWTClaims{}
	assert.True(t, unscoped.CanAccessOutlet("o-1"))

	scoped := &JWTClaims{OutletIDs: []string{"o-1"}}
	assert.True(t, scoped.CanAccessOutlet("o-1"))
	assert.False(t, scoped.CanAccessOutlet("o-2"))

	var none *JWTClaims
	assert.False(t, none.CanAccessOutlet("o-1"))
}

// ── CORS ─────────────────────────────────────────────────────────────────────

func TestCORS_AllowList(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://pos.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://pos.example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://pos.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
