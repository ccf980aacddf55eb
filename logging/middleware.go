package logging

import (
	"log/slog"
	"net/http"
	"time"
)

// CorrelationHeader carries the request id in both directions.
const CorrelationHeader = "X-Correlation-Id"

// HTTPMiddleware assigns every request a correlation id, echoes it in the
// response, attaches a contextual logger and logs the outcome.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqID := r.Header.Get(CorrelationHeader)
			if reqID == "" || len(reqID) > 64 {
				reqID = NewRequestID()
			}
			w.Header().Set(CorrelationHeader, reqID)

			logger := base.With(
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx := WithContext(r.Context(), logger)
			ctx = WithCorrelationID(ctx, reqID)
			r = r.WithContext(ctx)

			next.ServeHTTP(rw, r)

			FromContext(ctx).Info("http_request",
				"status", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter

	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
