// Package appctx provides request-scoped values extraction.
package appctx

import (
	"context"
)

// UserContext identifies the staff member performing a request.
// Authentication itself is handled by an external gateway; only the
// propagated identity is carried here for audit and logging.
type UserContext struct {
	UserID string
	Name   string
	Role   string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}
