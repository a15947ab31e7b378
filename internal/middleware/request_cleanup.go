package middleware

import (
	"io"
	"net/http"
)

// LimitAndDrainBody caps request bodies at maxBytes, reads beyond it fail
// with *http.MaxBytesError. After the handler it drains what is left unread
// and closes the body so the connection can be reused. maxBytes <= 0 only
// drains.
func LimitAndDrainBody(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)

			if r.Body != nil {
				_, _ = io.Copy(io.Discard, r.Body)
				_ = r.Body.Close()
			}
		})
	}
}
