package auth

import "context"

type contextKey string

const sessionContextKey contextKey = "fitlog-session"

// ContextWithSession attaches the authenticated session to the request context.
func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the session set by the auth middleware,
// or nil for unauthenticated requests.
func SessionFromContext(ctx context.Context) *Session {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return session
}
