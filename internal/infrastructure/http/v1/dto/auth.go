package dto

import (
	"time"

	"vetpos/internal/domain/auth"
)

// LoginRequest for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of a staff user.
type UserResponse struct {
	ID       string   `json:"id"`
	ClinicID string   `json:"clinicId"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
}

// FromUser creates UserResponse from auth.User.
func FromUser(u *auth.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		ClinicID: u.ClinicID,
		Email:    u.Email,
		Name:     u.Name,
		Roles:    u.Roles,
	}
}

// RegisterUserRequest for POST /auth/users.
type RegisterUserRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Name     string   `json:"name" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Roles    []string `json:"roles" binding:"required,min=1"`
}
