package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"unlock-relay/internal/logging"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	role       string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// SetRole lets inner handlers report the role they authenticated, since
// the request seen by this middleware never carries their context values.
func SetRole(w http.ResponseWriter, role string) {
	if rw, ok := w.(*responseWriter); ok {
		rw.role = role
	}
}

func LoggerMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	httpLogger := logger.With("component", "http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				role:           "anonymous",
			}

			next.ServeHTTP(rw, r)

			httpLogger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", rw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"role", rw.role,
			)
		})
	}
}
