package accounts

import (
	"fmt"
	"time"

	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Status represents the lifecycle state of an account
type Status string

const (
	StatusActive  Status = "active"  // Account can log in
	StatusBlocked Status = "blocked" // Account blocked from logging in
)

// Account is the durable identity record behind a principal. Password-backed
// accounts are created through registration; SSO-backed accounts are
// synthesized by the identity reconstructor on first login.
type Account struct {
	ID            string    `json:"id,omitempty"`             // Unique identifier for the account
	ClientID      string    `json:"client_id,omitempty"`      // Registered client the account belongs to
	LoginID       string    `json:"login_id,omitempty"`       // Email, or synthetic login for SSO accounts
	Email         string    `json:"email,omitempty"`          // Account's email address, if known
	DisplayName   string    `json:"display_name,omitempty"`   // Human-readable name
	PasswordHash  string    `json:"-"`                        // Hashed password - never serialize
	Status        Status    `json:"status,omitempty"`         // active or blocked
	EmailVerified bool      `json:"email_verified,omitempty"` // Whether the email has been verified
	CreatedAt     time.Time `json:"created_at,omitempty"`     // When the account was created
	LastLoginAt   time.Time `json:"last_login_at,omitempty"`  // Last successful login
}

// IsActive returns true if the account can log in
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// SetPassword validates password strength and stores a bcrypt hash
func (a *Account) SetPassword(password string) error {
	if err := ValidatePasswordStrength(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares a candidate password against the stored hash
func (a *Account) CheckPassword(password string) error {
	if a.PasswordHash == "" {
		return ErrPasswordNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		}
		if unicode.IsLower(char) {
			hasLower = true
		}
		if unicode.IsNumber(char) {
			hasNumber = true
		}
	}

	if !hasUpper || !hasLower {
		return fmt.Errorf("password must contain both uppercase and lowercase letters")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}
