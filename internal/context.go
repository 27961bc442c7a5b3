package internal

import "context"

type ctxKey string

// ContextUserKey carries the authenticated user's id, set by the auth
// middleware after token verification.
const ContextUserKey ctxKey = "userID"

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserKey, userID)
}

// UserIDFromContext returns the authenticated user id, or "" when the
// request never passed the auth middleware.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextUserKey).(string); ok {
		return userID
	}
	return ""
}
