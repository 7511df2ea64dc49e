package middleware

import (
	"log/slog"
	"net/http"

	"github.com/avelora/storefront/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, owner_id, trace_id and span_id. Handlers retrieve it with
// logger.FromContext.
//
// Mount after RequestLogging (correlation ID) and Tracing (span context).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// The owner identity comes in as a header from the edge; there is
			// no auth middleware in front of this service.
			owner := r.Header.Get("X-User-ID")
			if owner == "" {
				owner = r.Header.Get("X-Session-Token")
			}
			if owner != "" {
				ctx = logger.WithOwnerID(ctx, owner)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
