package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/2beens/progression/internal/telemetry/metrics"
	"github.com/2beens/progression/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// PanicRecovery turns a handler panic into a 500. http.ErrAbortHandler is
// passed on, net/http uses it to abort a response silently.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				route := "unknown"
				if current := mux.CurrentRoute(req); current != nil && current.GetName() != "" {
					route = current.GetName()
				}
				// the request id is set on the response by LogRequest further in
				log.WithFields(log.Fields{
					"request_id": w.Header().Get(requestIDHeader),
					"method":     req.Method,
					"route":      route,
				}).Errorf("panic serving %s: %v\n%s", req.URL.Path, rec, debug.Stack())

				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				pkg.WriteJSONError(w, "internal error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, req)
		})
	}
}
