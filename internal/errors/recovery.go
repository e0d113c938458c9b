package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/copyleftdev/evolver/internal/logging"
	"github.com/copyleftdev/evolver/internal/optimization"
)

// Response is the JSON body written for a failed request.
type Response struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WriteJSON writes err as a Response with StatusCode(err).
func WriteJSON(w http.ResponseWriter, err error) {
	resp := Response{Error: err.Error()}
	if kind := optimization.KindOf(err); kind != optimization.KindUnknown {
		resp.Kind = kind.String()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(resp)
}

// RecoveryMiddleware returns a middleware that recovers from panics.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					logger.Error("Recovered from panic", map[string]interface{}{
						"error":      fmt.Sprint(rec),
						"stack":      string(debug.Stack()),
						"method":     r.Method,
						"path":       r.URL.Path,
						"query":      r.URL.RawQuery,
						"request_id": middleware.GetReqID(r.Context()),
					})

					WriteJSON(w, New(http.StatusText(http.StatusInternalServerError)).
						WithStatus(http.StatusInternalServerError))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerFunc is an HTTP handler that reports failure by returning an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ErrorHandler adapts h to http.HandlerFunc. A returned error is written
// with WriteJSON; server-side failures are logged with their stack.
func ErrorHandler(logger *logging.Logger, h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		status := StatusCode(err)
		if status >= http.StatusInternalServerError {
			fields := map[string]interface{}{
				"status":     status,
				"method":     r.Method,
				"path":       r.URL.Path,
				"request_id": middleware.GetReqID(r.Context()),
			}
			var e *Error
			if As(err, &e) {
				fields["stack"] = e.StackTrace()
			}
			logger.WithError(err).Error("Request error", fields)
		}
		WriteJSON(w, err)
	}
}
