// Package auth provides staff authentication for the practice.
package auth

import (
	"context"
	"strings"
	"time"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
)

// Staff roles.
const (
	RoleAdmin     = "admin"
	RoleVet       = "vet"
	RoleAssistant = "assistant"
)

// User is a staff member of one clinic.
type User struct {
	ID       id.ID  `db:"id" json:"id"`
	ClinicID string `db:"clinic_id" json:"clinicId"`

	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`

	// PasswordHash is a bcrypt hash, never exposed.
	PasswordHash string `db:"password_hash" json:"-"`

	Roles  []string `db:"roles" json:"roles"`
	Active bool     `db:"active" json:"active"`

	LastLoginAt *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewUser creates an active user. The caller sets the password hash.
func NewUser(clinicID, email, name string, roles []string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        id.New(),
		ClinicID:  clinicID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      name,
		Roles:     roles,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks entity invariants.
func (u *User) Validate(ctx context.Context) error {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return apperror.NewValidation("valid email is required").
			WithDetail("field", "email")
	}
	if u.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if u.PasswordHash == "" {
		return apperror.NewValidation("password is required").
			WithDetail("field", "password")
	}
	return nil
}

// HasRole checks role membership.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
