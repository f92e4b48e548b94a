package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware attaches a request-scoped logger (carrying the chi request ID)
// to the request context and logs one line per completed request.
// It must run after middleware.RequestID.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With(FieldRequestID, middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(IntoContext(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			args := []any{
				FieldMethod, r.Method,
				FieldPath, r.URL.Path,
				FieldStatus, status,
				FieldDuration, time.Since(start),
			}
			switch {
			case status >= 500:
				reqLogger.ErrorContext(r.Context(), "request failed", args...)
			case status >= 400:
				reqLogger.WarnContext(r.Context(), "request rejected", args...)
			default:
				reqLogger.InfoContext(r.Context(), "request served", args...)
			}
		})
	}
}
