package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/loyalty"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/utilities"
)

const requestIDHeader = "X-Request-ID"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware tags every request with an id, reusing one supplied by
// an upstream proxy.
func RequestIDMiddleware(ids *utilities.RequestIDs) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = ids.Next()
				r.Header.Set(requestIDHeader, id)
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			// ensure status is set
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", r.Header.Get(requestIDHeader),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none';")
			}

			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the long-lived collaborators the routes are built from.
type Deps struct {
	Logger     *zap.SugaredLogger
	Sessions   *session.Service
	Users      *user.UserService
	Loyalty    *loyalty.Service
	Primary    user.Acquirer
	Replica    user.Acquirer
	RequestIDs *utilities.RequestIDs
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	logger := d.Logger

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	userHandler := user.NewHandler(d.Users, d.Primary, d.Replica, d.Sessions, logger)
	sessionHandler := session.NewHandler(d.Sessions, logger)
	loyaltyHandler := loyalty.NewHandler(d.Loyalty, d.Primary, logger)
	auth := session.RequireAuth(d.Sessions, logger)

	// auth routes
	mux.HandleFunc("POST /api/auth/signup", userHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", userHandler.Login)
	mux.Handle("DELETE /api/auth/logout", auth(http.HandlerFunc(sessionHandler.Logout)))

	mux.Handle("GET /protected", auth(http.HandlerFunc(sessionHandler.Protected)))

	// user routes
	mux.Handle("POST /api/user/loyalty", auth(http.HandlerFunc(loyaltyHandler.Add)))
	mux.Handle("GET /api/user/profile", auth(http.HandlerFunc(userHandler.Profile)))

	// request id outermost so the logging middleware can see it
	handler := RequestIDMiddleware(d.RequestIDs)(LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux)))
	return handler
}
