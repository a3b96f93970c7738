package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"docscan/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns every request a request ID (honoring an inbound header)
// and stamps the request time so downstream code shares one clock reading.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
