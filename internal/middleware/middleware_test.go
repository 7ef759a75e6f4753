package middleware_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/personal-context-builder/internal/middleware"
)

const secret = "test-secret"

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		subject, _ := c.Get(middleware.SubjectKey)
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newEngine(middleware.Auth(secret))

	token, err := middleware.IssueToken(secret, "builder", time.Hour)
	require.NoError(t, err)
	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "builder")

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, token).Code)

	wrong, err := middleware.IssueToken("other-secret", "builder", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+wrong).Code)

	expired, err := middleware.IssueToken(secret, "builder", -time.Minute)
	require.NoError(t, err)
	w = get(r, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")
}

func TestAuthRejectsOtherAlgorithms(t *testing.T) {
	r := newEngine(middleware.Auth(secret))

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+signed).Code)

	// tokens without expiry are refused
	token = jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"})
	signed, err = token.SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+signed).Code)
}

func TestRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(t.Context(), 2, time.Minute)
	r := newEngine(middleware.RateLimit(limiter, middleware.ByClientIP))

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	w := get(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 60, retry, 1)
}

func TestRateLimitBySubject(t *testing.T) {
	limiter := middleware.NewRateLimiter(t.Context(), 1, time.Minute)
	r := newEngine(middleware.Auth(secret), middleware.RateLimit(limiter, middleware.BySubject))

	alice, err := middleware.IssueToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	bob, err := middleware.IssueToken(secret, "bob", time.Hour)
	require.NoError(t, err)

	// same client address, separate budgets per subject
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "Bearer "+alice).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+bob).Code)
	assert.Equal(t, 2, limiter.Len())
}

func TestRateLimiterWindow(t *testing.T) {
	rl := middleware.NewRateLimiter(t.Context(), 1, 50*time.Millisecond)
	ok, _ := rl.Allow("1.2.3.4")
	assert.True(t, ok)
	ok, retry := rl.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, 50*time.Millisecond)
	ok, _ = rl.Allow("5.6.7.8")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	ok, _ = rl.Allow("1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimiterSweepsAndStops(t *testing.T) {
	rl := middleware.NewRateLimiter(context.Background(), 5, 20*time.Millisecond)
	rl.Allow("a")
	rl.Allow("b")
	assert.Eventually(t, func() bool { return rl.Len() == 0 }, time.Second, 10*time.Millisecond)

	rl.Stop()
	select {
	case <-rl.Done():
	default:
		t.Fatal("sweeper still running after Stop")
	}
}

func TestRateLimiterStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rl := middleware.NewRateLimiter(ctx, 5, time.Hour)
	cancel()

	select {
	case <-rl.Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper did not exit when its context was cancelled")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	r := newEngine(middleware.Logger())
	req := httptest.NewRequest(http.MethodGet, "/ping?x=1", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"path":"/ping?x=1"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"level":"info"`)
}
