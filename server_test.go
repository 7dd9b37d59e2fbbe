package usersvc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimiolaniyan/usersvc/schema"
)

func newTestRouter(t *testing.T, ready ReadinessCheck) http.Handler {
	v, err := schema.New()
	require.NoError(t, err)
	return NewRouter(newTestService(nil), v, newTestTokens(), ready)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_ReadinessFailure(t *testing.T) {
	router := newTestRouter(t, func(context.Context) error { return errors.New("no primary") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, w.Body.String())
}

func TestRouter_ResponseHeaders(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(HeaderRequestID, "req-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestRouter_BodyLimit(t *testing.T) {
	router := newTestRouter(t, nil)
	body := `{"username":"` + strings.Repeat("a", MaxBodyBytes) + `@b.com","password":"x"}`

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/users/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
