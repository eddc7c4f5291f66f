// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains authenticated user information.
// ClinicID identifies the practice (tenant) every row is scoped to.
type UserContext struct {
	UserID   string
	ClinicID string
	Email    string
	Roles    []string
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

// GetClinicID returns the authenticated clinic (tenant) ID or empty string.
func GetClinicID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.ClinicID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
