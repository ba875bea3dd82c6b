package auth

import "context"

type (
	key byte
)

var (
	sessionKey = key(1)
)

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session attached by the authorization
// gate, ok is false for requests that did not go through it.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
