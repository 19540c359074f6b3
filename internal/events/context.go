package events

import "context"

type sessionIDKey struct{}

// ContextWithSessionID tags ctx with the chat session whose events it
// produces. Model callbacks read it to route their events.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session of ctx, or "" outside a session.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}
