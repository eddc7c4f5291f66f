package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
)

// JWTValidator interface for token validation.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware validates JWT tokens and populates user context.
// The clinic scope for every downstream query comes from the token.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		user, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}
		if user.ClinicID == "" {
			_ = c.Error(apperror.NewUnauthorized("token carries no clinic"))
			c.Abort()
			return
		}

		ctx := appctx.WithUser(c.Request.Context(), user)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", user.UserID)
		c.Set("clinic_id", user.ClinicID)

		c.Next()
	}
}

// RequireRole middleware checks if user has one of the required roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		for _, required := range roles {
			for _, userRole := range user.Roles {
				if userRole == required {
					c.Next()
					return
				}
			}
		}
		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
