package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the id of the authenticated caller, set by the gateway in front of this service.
const UserIDHeader = "X-User-ID"

type callerKey struct{}

func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if id != "" {
			r = r.WithContext(WithCallerID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func WithCallerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// CallerID returns "" when the request carried no identity.
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(callerKey{}).(string)
	return id
}
