package model

import (
	"encoding/json"
	"time"
)

// Role distinguishes ordinary learners from administrators.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User represents a platform account. ProgressTree carries the serialized
// paper→topic→item snapshot and is only touched through PracticeService.
type User struct {
	ID            int             `json:"id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	PasswordHash  string          `json:"-"`
	Role          Role            `json:"role"`
	EmailVerified bool            `json:"email_verified"`
	ProgressTree  json.RawMessage `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// VerifyEmailRequest confirms an account with an emailed code.
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// RequestCodeRequest asks for a fresh verification code.
type RequestCodeRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required,oneof=email_verification password_reset"`
}

// ResetPasswordRequest sets a new password, gated by a verification code.
type ResetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}
