package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// ActorName returns the display name of the acting user, or "system" when
// the request carried no identity. Stage history and import audit rows use
// this so they always have an actor.
func ActorName(ctx context.Context) string {
	if user, ok := FromContext(ctx); ok && user.DisplayName != "" {
		return user.DisplayName
	}
	return "system"
}
