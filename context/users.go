package context

import (
	"context"

	"github.com/rahul4469/qrguard/internal/models"
)

type contextkey string

const (
	userKey  contextkey = "user"
	guestKey contextkey = "guest_id"
)

// ContextSetUser binds the authenticated user to ctx.
func ContextSetUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// ContextGetUser retrieves the authenticated user from request context.
// Returns nil if no user is set (unauthenticated request).
func ContextGetUser(ctx context.Context) *models.User {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// ContextSetGuestID binds the anonymous visitor id to ctx.
func ContextSetGuestID(ctx context.Context, guestID string) context.Context {
	return context.WithValue(ctx, guestKey, guestID)
}

// ContextGetGuestID returns the anonymous visitor id, or "" if none.
func ContextGetGuestID(ctx context.Context) string {
	id, _ := ctx.Value(guestKey).(string)
	return id
}
