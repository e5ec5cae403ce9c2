package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dostonbek1/quotehub/internal/apperror"
	"github.com/dostonbek1/quotehub/internal/config"
	"github.com/dostonbek1/quotehub/internal/mailer"
)

// errTypeUnverified marks the one 401 that the handler decorates with an
// is_verified:false flag so the client can offer a resend-verification flow.
const errTypeUnverified = "email_unverified"

// AuthService defines the credential lifecycle contract. Handlers call these
// methods -- they never touch the repository directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (*TokenPair, error)
	VerifyEmail(ctx context.Context, token string) (*TokenPair, error)
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// authService implements AuthService. All verification/reset transitions go
// through the repository's conditional updates; this layer owns validation,
// token minting, and mail dispatch.
type authService struct {
	repo   UserRepository
	hasher *Hasher
	tokens *TokenIssuer
	mail   mailer.Mailer

	baseURL         string
	verificationTTL time.Duration
	resetTTL        time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewAuthService creates the auth service with the given dependencies.
func NewAuthService(repo UserRepository, hasher *Hasher, tokens *TokenIssuer, mail mailer.Mailer, cfg *config.Config) AuthService {
	return &authService{
		repo:            repo,
		hasher:          hasher,
		tokens:          tokens,
		mail:            mail,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		verificationTTL: cfg.Auth.VerificationTTL,
		resetTTL:        cfg.Auth.ResetTTL,
		now:             time.Now,
	}
}

// Register creates a new unverified account and dispatches the verification
// email. Registration is all-or-nothing: if the mail cannot be sent, the
// record is deleted again so no unreachable account is left behind.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := NormalizeEmail(input.Email)
	username := NormalizeUsername(input.Username)

	if msg := validateRegisterInput(email, username, input.Password); msg != "" {
		return nil, apperror.NewBadRequest(msg)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	plaintext, err := GenerateToken()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("generating verification token: %w", err))
	}
	digest := DigestToken(plaintext)
	now := s.now().UTC()
	expiry := now.Add(s.verificationTTL)
	user := &User{
		ID:                 uuid.NewString(),
		Email:              email,
		Username:           username,
		PasswordHash:       hash,
		IsVerified:         false,
		VerificationDigest: &digest,
		VerificationExpiry: &expiry,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if appErr, ok := err.(*apperror.AppError); ok {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	subject, body := mailer.VerificationEmail(user.Username, s.verificationURL(plaintext))
	if err := s.mail.Send(ctx, user.Email, subject, body); err != nil {
		// Roll back: an account that can never receive its verification
		// link must not exist.
		if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
			slog.Error("rollback of unverifiable registration failed",
				slog.String("user_id", user.ID),
				slog.Any("error", delErr),
			)
		}
		return nil, apperror.NewInternal(fmt.Errorf("sending verification email: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login authenticates by email and password. A missing account and a wrong
// password produce the same generic rejection; the unverified flag is only
// revealed once the password has checked out.
func (s *authService) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	if input.Email == "" || input.Password == "" {
		return nil, apperror.NewBadRequest(missingFields(input.Email == "", input.Password == ""))
	}

	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewUnauthorized("Incorrect email or password.")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("verifying password: %w", err))
	}
	if !ok {
		return nil, apperror.NewUnauthorized("Incorrect email or password.")
	}

	if !user.IsVerified {
		return nil, &apperror.AppError{
			Code:    401,
			Type:    errTypeUnverified,
			Message: "Please verify your email first. Check your inbox.",
		}
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return pair, nil
}

// VerifyEmail consumes a verification token and performs an implicit login:
// the caller leaves with a fresh access+refresh pair. A second presentation
// of the same token fails because its digest no longer exists.
func (s *authService) VerifyEmail(ctx context.Context, token string) (*TokenPair, error) {
	if token == "" {
		return nil, apperror.NewBadRequest("Verification token is required.")
	}

	user, err := s.repo.ConsumeVerificationToken(ctx, DigestToken(token), s.now())
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewBadRequest("Invalid or expired verification link.")
		}
		return nil, apperror.NewInternal(fmt.Errorf("consuming verification token: %w", err))
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("email verified",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return pair, nil
}

// ResendVerification mints a fresh verification token, superseding the old
// one, and emails the new link. A delivery failure here is surfaced as-is:
// the prior state is intact, there is nothing to roll back.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return apperror.NewBadRequest("Email is required.")
	}

	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return apperror.NewNotFound("User not found.")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if user.IsVerified {
		return apperror.NewBadRequest("Email is already verified.")
	}

	plaintext, err := GenerateToken()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("generating verification token: %w", err))
	}
	if err := s.repo.SetVerificationToken(ctx, user.ID, DigestToken(plaintext), s.now().UTC().Add(s.verificationTTL)); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing verification token: %w", err))
	}

	subject, body := mailer.VerificationEmail(user.Username, s.verificationURL(plaintext))
	if err := s.mail.Send(ctx, user.Email, subject, body); err != nil {
		return apperror.NewInternal(fmt.Errorf("resending verification email: %w", err))
	}

	return nil
}

// ForgotPassword dispatches a reset link if the email belongs to an account.
// It never reports whether it did: the caller always sees the same generic
// success, so the endpoint cannot be used to enumerate accounts. Failures
// are logged server-side only.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperror.SafeCode(err) != 404 {
			slog.Error("forgot-password lookup failed", slog.Any("error", err))
		}
		return nil
	}

	plaintext, err := GenerateToken()
	if err != nil {
		slog.Error("forgot-password token mint failed", slog.Any("error", err))
		return nil
	}
	if err := s.repo.SetResetToken(ctx, user.ID, DigestToken(plaintext), s.now().UTC().Add(s.resetTTL)); err != nil {
		slog.Error("forgot-password token store failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return nil
	}

	subject, body := mailer.PasswordResetEmail(user.Username, s.resetURL(plaintext))
	if err := s.mail.Send(ctx, user.Email, subject, body); err != nil {
		slog.Error("forgot-password mail dispatch failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return nil
}

// ResetPassword validates the new password against policy, then consumes the
// reset token and replaces the password hash in one conditional update.
// Nothing mutates when validation or the token check fails.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperror.NewBadRequest("Reset token is required.")
	}
	newPassword = strings.TrimSpace(newPassword)
	if msg := validatePassword(newPassword); msg != "" {
		return apperror.NewBadRequest(msg)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.ConsumeResetToken(ctx, DigestToken(token), hash, s.now()); err != nil {
		if apperror.SafeCode(err) == 404 {
			return apperror.NewBadRequest("Invalid or expired token.")
		}
		return apperror.NewInternal(fmt.Errorf("consuming reset token: %w", err))
	}

	return nil
}

// Refresh rotates the refresh token: the presented token is single-use and
// is atomically replaced by a new one. A mismatch against the stored value
// is treated as a possible replay -- the stored token is cleared, forcing a
// fresh login on every device.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperror.NewUnauthorized("Session expired. Please log in again.")
	}

	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperror.NewForbidden("Invalid refresh token.")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, apperror.NewNotFound("User not found.")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		s.revokeSession(ctx, user.ID, "refresh token mismatch")
		return nil, apperror.NewForbidden("Refresh token does not match user.")
	}

	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	nextRefresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	rotated, err := s.repo.RotateRefreshToken(ctx, user.ID, refreshToken, nextRefresh)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("rotating refresh token: %w", err))
	}
	if !rotated {
		// A concurrent refresh won the swap between our read and the
		// compare-and-swap. Same treatment as a replay.
		s.revokeSession(ctx, user.ID, "lost refresh rotation race")
		return nil, apperror.NewForbidden("Refresh token does not match user.")
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: nextRefresh, User: user}, nil
}

// Logout ends the session identified by the refresh token. Best-effort: an
// invalid, expired, or absent token still results in a successful logout,
// since the caller clears its cookies either way.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.repo.ClearRefreshToken(ctx, userID); err != nil {
		slog.Warn("logout failed to clear refresh token",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
	return nil
}

// --- Helpers ---

// startSession mints an access+refresh pair and stores the refresh token on
// the record, replacing whatever session existed before.
func (s *authService) startSession(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	refreshToken, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if err := s.repo.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("storing refresh token: %w", err))
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

// revokeSession clears the stored refresh token, logging the trigger.
func (s *authService) revokeSession(ctx context.Context, userID, reason string) {
	if err := s.repo.ClearRefreshToken(ctx, userID); err != nil {
		slog.Error("failed to revoke session",
			slog.String("user_id", userID),
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		return
	}
	slog.Warn("session revoked",
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)
}

func (s *authService) verificationURL(token string) string {
	return fmt.Sprintf("%s/api/v1/auth/verify-email/%s", s.baseURL, token)
}

func (s *authService) resetURL(token string) string {
	return fmt.Sprintf("%s/api/v1/auth/reset-password/%s", s.baseURL, token)
}

// validateRegisterInput checks presence and policy for the registration
// fields. Returns a client-safe message or empty string.
func validateRegisterInput(email, username, password string) string {
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if username == "" {
		missing = append(missing, "username")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Sprintf("The following field(s) are required: %s", strings.Join(missing, ", "))
	}
	if msg := ValidateUsername(username); msg != "" {
		return msg
	}
	return validatePassword(password)
}

// missingFields builds the login missing-field message.
func missingFields(emailMissing, passwordMissing bool) string {
	var missing []string
	if emailMissing {
		missing = append(missing, "email")
	}
	if passwordMissing {
		missing = append(missing, "password")
	}
	return fmt.Sprintf("The following field(s) are required: %s", strings.Join(missing, ", "))
}
