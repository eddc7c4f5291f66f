package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/pkg/logger"
)

// Service provides login and user management.
type Service struct {
	users Repository
	jwt   *JWTService
}

// NewService creates a new auth service.
func NewService(users Repository, jwtService *JWTService) *Service {
	return &Service{users: users, jwt: jwtService}
}

// LoginResult is the successful login response.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// Login verifies credentials and issues an access token.
// Failures are indistinguishable to the caller: no account enumeration.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !u.Active {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(u)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		// Login still succeeds; the timestamp is informational.
		logger.Warn(ctx, "update last login failed", "user_id", u.ID, "error", err)
	}
	u.LastLoginAt = &now

	logger.Info(ctx, "user logged in", "user_id", u.ID, "clinic_id", u.ClinicID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Register creates a new staff user with a hashed password.
func (s *Service) Register(ctx context.Context, u *User, password string) error {
	if len(password) < 8 {
		return apperror.NewValidation("password must be at least 8 characters").
			WithDetail("field", "password")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return apperror.NewInternal(err)
	}
	u.PasswordHash = hash

	if err := u.Validate(ctx); err != nil {
		return err
	}
	if existing, err := s.users.GetByEmail(ctx, u.Email); err == nil && existing != nil {
		return apperror.NewDuplicate("user", "email", u.Email)
	}

	return s.users.Create(ctx, u)
}

// Me returns the authenticated user's record.
func (s *Service) Me(ctx context.Context) (*User, error) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	uid, err := id.Parse(userID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid token subject")
	}
	return s.users.GetByID(ctx, uid)
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
