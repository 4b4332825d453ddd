package model

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates account roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Profile represents a registered user account.
type Profile struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	PasswordHash      string    `json:"-"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	Role              Role      `json:"role"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// UpdateProfileRequest is the payload for editing one's own profile.
// Email and ID are immutable from this surface.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
}

// UpdatePasswordRequest is the payload for changing one's own password.
// The current password must be re-proven even with a valid session.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=128"`
}
