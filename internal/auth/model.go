// Package auth owns the credential lifecycle for QuoteHub: registration,
// email verification, login, refresh-token rotation, password reset, and the
// background sweep of stale unverified accounts. Handlers are thin; all
// lifecycle rules live in the service, and every check-and-clear on token
// state is a single conditional update in the repository.
package auth

import (
	"regexp"
	"strings"
	"time"
)

// Username policy: 3-20 characters, letters, digits, and underscore only.
// Stored lowercase so uniqueness is case-insensitive.
const (
	usernameMinLen = 3
	usernameMaxLen = 20

	passwordMinLen = 6
	passwordMaxLen = 50
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// weakPasswords is a denylist of passwords too common to accept on reset.
var weakPasswords = map[string]bool{
	"123456":    true,
	"password":  true,
	"qwerty":    true,
	"parol":     true,
	"123456789": true,
	"111111":    true,
}

// User is one identity record. The password hash, token digests, and the
// stored refresh token never leave the server; JSON marshaling hides them.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Avatar       string `json:"avatar"`
	Bio          string `json:"bio"`
	IsVerified   bool   `json:"is_verified"`

	// Verification and reset state: digest + absolute expiry pairs, present
	// only while a token is outstanding, always cleared together.
	VerificationDigest *string    `json:"-"`
	VerificationExpiry *time.Time `json:"-"`
	ResetDigest        *string    `json:"-"`
	ResetExpiry        *time.Time `json:"-"`

	// RefreshToken is the single currently-valid refresh token. Nil means
	// no active session.
	RefreshToken *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the client-safe projection of a User returned by login,
// verification, and profile endpoints.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Avatar     string `json:"avatar"`
	Bio        string `json:"bio"`
	IsVerified bool   `json:"is_verified"`
}

// Profile returns the client-safe projection of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		Avatar:     u.Avatar,
		Bio:        u.Bio,
		IsVerified: u.IsVerified,
	}
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted to POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest holds the data submitted to POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailRequest holds a bare email, used by resend-verification and
// forgot-password.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest holds the new password for POST /auth/reset-password.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// --- Service input/output ---

// RegisterInput is the validated input for creating a new account.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// TokenPair is a freshly minted access+refresh pair plus the user it
// belongs to. Returned by login, email verification, and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// --- Policy validators ---

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername trims and lowercases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername checks the username policy. Returns an error message
// suitable for the client, or empty string if valid. Exported because the
// profile-update endpoint enforces the same policy.
func ValidateUsername(username string) string {
	if len(username) < usernameMinLen {
		return "Username must be at least 3 characters long."
	}
	if len(username) > usernameMaxLen {
		return "Username must be at most 20 characters long."
	}
	if !usernamePattern.MatchString(username) {
		return "Username can only contain letters, numbers, and underscores."
	}
	return ""
}

// validatePassword checks length bounds and the weak-password denylist.
// Returns an error message or empty string.
func validatePassword(password string) string {
	if len(password) < passwordMinLen {
		return "Password must be at least 6 characters long."
	}
	if len(password) > passwordMaxLen {
		return "Password is too long (maximum 50 characters)."
	}
	if weakPasswords[strings.ToLower(password)] {
		return "This password is too common. Please choose a stronger one."
	}
	return ""
}
