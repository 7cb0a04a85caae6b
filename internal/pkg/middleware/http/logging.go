package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/fleetlink/pkg/log"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging writes one debug line per request, or a warning for 5xx answers.
func Logging(logger log.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"latency", time.Since(start),
			}
			if rec.status >= http.StatusInternalServerError {
				logger.Warn("Request failed", kv...)
				return
			}
			logger.Debug("Request served", kv...)
		})
	}
}
