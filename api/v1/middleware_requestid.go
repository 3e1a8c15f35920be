package v1

import (
	"net/http"

	"github.com/lionzhd/lionz/internal/reqid"
)

// RequestID ensures every request has a correlation ID in context and headers.
// - Honors incoming X-Request-ID if present, otherwise generates a UUIDv4.
// - Stores the value in request context via reqid.With.
// - Echoes the value in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(reqid.Header)
		if id == "" {
			id = reqid.New()
		}
		ctx := reqid.With(r.Context(), id)
		w.Header().Set(reqid.Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
