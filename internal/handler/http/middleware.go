package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/avelora/storefront/pkg/httputil"
	"github.com/avelora/storefront/pkg/logger"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// ownerKeyKey is the context key for the cart/order owner identity.
const ownerKeyKey contextKey = "owner_key"

// OwnerFromHeaders resolves the request's owner identity: the authenticated
// user ID from X-User-ID (injected by the gateway) or, failing that, the
// anonymous session token from X-Session-Token. Both are opaque; requests
// without either are rejected with 401.
func OwnerFromHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get("X-User-ID")
		if owner == "" {
			owner = r.Header.Get("X-Session-Token")
		}
		if owner == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "X-User-ID or X-Session-Token header is required"},
			})
			return
		}

		ctx := context.WithValue(r.Context(), ownerKeyKey, owner)
		ctx = logger.WithOwnerID(ctx, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerFromContext extracts the owner key set by OwnerFromHeaders.
func ownerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKeyKey).(string)
	return owner, ok && owner != ""
}

// requireOwner writes a 401 when no owner identity is mounted on the context.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return "", false
	}
	return owner, true
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
