// Package requesttime pins one "now" per HTTP request, so the event timestamp
// and the user's lastModifiedAt written by the same request agree.
package requesttime

import (
	"net/http"
	"time"

	"consents/pkg/requestcontext"
)

// Middleware captures the time at the start of the request and stores it on
// the context for requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
