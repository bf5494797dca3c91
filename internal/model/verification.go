package model

import "time"

// Verification code purposes.
const (
	PurposeEmailVerification = "email_verification"
	PurposePasswordReset     = "password_reset"
)

// VerificationCode is the stored state for one (email, purpose) pair. Only
// the keyed hash of the code is persisted; the raw code lives briefly in
// the Redis cooldown cache so rapid reissues resend the same code.
//
// Used doubles as the terminal marker for both the consumed and the
// locked state: once set, the entry can never verify again.
type VerificationCode struct {
	Email       string    `json:"email"`
	Purpose     string    `json:"purpose"`
	CodeHash    string    `json:"code_hash"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Used        bool      `json:"used"`
}
