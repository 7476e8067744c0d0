package chihttp

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// SessionHeader carries the session identifier on every API request.
const SessionHeader = "X-Session-ID"

// validSessionID restricts session ids to characters that are inert in
// Redis key patterns. Anything else (glob metacharacters, separators)
// would let a crafted header reach other sessions' keys.
var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type sessionKey struct{}

// SessionMiddleware resolves the session id from the request header. A
// request without one, or with one that fails validation, gets a fresh
// UUID, echoed back in the response so the client can reuse it.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if !validSessionID.MatchString(sessionID) {
			sessionID = uuid.NewString()
		}
		w.Header().Set(SessionHeader, sessionID)
		ctx := context.WithValue(r.Context(), sessionKey{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionIDFromContext returns the session id placed by SessionMiddleware.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey{}).(string); ok {
		return id
	}
	return ""
}
