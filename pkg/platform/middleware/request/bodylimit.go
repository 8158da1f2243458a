package request

import (
	"net/http"
)

// DefaultBodyLimit caps JSON payloads; user and event bodies are a few hundred bytes.
const DefaultBodyLimit int64 = 64 << 10

// BodyLimit wraps the request body in http.MaxBytesReader. Oversized bodies
// fail to decode and are reported as 400 by the handlers.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
