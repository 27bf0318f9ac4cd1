package interceptors

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
)

var secret = []byte("test-secret")

func sign(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(sub string) Claims {
	return Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
}

func TestParseUserID(t *testing.T) {
	userID := uuid.New()

	got, err := ParseUserID("Bearer "+sign(t, validClaims(userID.String()), secret), secret)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	uidClaims := validClaims("")
	uidClaims.UserID = userID.String()
	got, err = ParseUserID("Bearer "+sign(t, uidClaims, secret), secret)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	expired := validClaims(userID.String())
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	bad := []string{
		"",
		"Basic abc",
		"Bearer ",
		"Bearer " + sign(t, validClaims(userID.String()), []byte("other")),
		"Bearer " + sign(t, expired, secret),
		"Bearer " + sign(t, validClaims("not-a-uuid"), secret),
	}
	for _, header := range bad {
		_, err := ParseUserID(header, secret)
		assert.Error(t, err, header)
	}
}

func TestAuth(t *testing.T) {
	userID := uuid.New()
	var seen uuid.UUID
	h := NewAuth(secret, "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/imports/task/analyze", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, validClaims(userID.String()), secret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, seen)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/imports/task/analyze", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := NewRequestID("X-Request-ID")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = common.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestRecoveryAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), NewLogging(logger), NewRecovery(logger))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), `"status":500`)
}

func TestRateLimit(t *testing.T) {
	assert.Nil(t, NewRateLimit(nil))

	h := NewRateLimit(rate.NewLimiter(rate.Limit(0.001), 1))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestTracing_PassesThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.PathValue("id"))
	})

	rec := httptest.NewRecorder()
	Chain(mux, NewTracing(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/7", nil))
	assert.Equal(t, "7", rec.Body.String())
}
