package usersvc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jimiolaniyan/usersvc/logger"
	"github.com/jimiolaniyan/usersvc/metrics"
	"github.com/jimiolaniyan/usersvc/schema"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

const HeaderRequestID = "X-Request-ID"

// ReadinessCheck reports whether a backing store can serve requests.
type ReadinessCheck func(ctx context.Context) error

// NewRouter mounts the account routes under /users next to the
// operational endpoints. A nil ready check always reports ready.
func NewRouter(svc Service, v ShapeValidator, tokens TokenVerifier, ready ReadinessCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(LimitBody(MaxBodyBytes))
	r.Use(metrics.Middleware)
	r.Use(AccessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		encodeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users", func(r chi.Router) {
		r.Method(http.MethodPost, "/register", Chain(RegisterHandler(svc), ValidateShape(v, schema.RegisterRequest)))
		r.Method(http.MethodPost, "/login", Chain(LoginHandler(svc), ValidateShape(v, schema.LoginRequest)))
		r.Method(http.MethodPatch, "/changePassword", Chain(ChangePasswordHandler(svc),
			ValidateShape(v, schema.ChangePasswordRequest), Authenticate(tokens)))
		r.Method(http.MethodGet, "/{id}", Chain(GetAccountHandler(svc)))
		r.Method(http.MethodPost, "/{id}/subscribe", Chain(SubscribeHandler(svc), Authenticate(tokens)))
		r.Method(http.MethodDelete, "/{id}/unsubscribe", Chain(UnsubscribeHandler(svc), Authenticate(tokens)))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		encodeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		encodeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func readyHandler(ready ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				logger.FromContext(r.Context()).Warn("readiness check failed", "error", err)
				encodeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		encodeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// RequestID tags the request context with the caller's X-Request-ID or a
// fresh one, and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = logger.GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLog logs one line per request. Operational endpoints are skipped.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/healthz") ||
			strings.HasPrefix(r.URL.Path, "/readyz") ||
			strings.HasPrefix(r.URL.Path, "/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.FromContext(r.Context()).Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr)
	})
}
