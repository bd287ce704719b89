package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/pkg/metrics"
)

// MetricsMiddleware records request count, latency and, for 4xx/5xx answers, an error
// kind matching the error codes this API returns.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	component := "http_" + endpoint
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))
		if kind := errorKind(sw.status); kind != "" {
			metrics.RecordErrorByComponent(component, kind)
		}
	}
}

// errorKind is empty for successful statuses.
func errorKind(status int) string {
	switch {
	case status < http.StatusBadRequest:
		return ""
	case status == http.StatusTooManyRequests:
		return "backpressure"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= http.StatusInternalServerError:
		return "internal"
	default:
		return "bad_request"
	}
}

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status, w.wroteHeader = code, true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
