package auth

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dostonbek1/quotehub/internal/apperror"
	"github.com/dostonbek1/quotehub/internal/config"
)

// --- Test doubles ---

// mockUserRepo implements UserRepository with overridable function fields.
// Unset finders report NotFound; unset mutations succeed.
type mockUserRepo struct {
	createFn                   func(ctx context.Context, user *User) error
	deleteFn                   func(ctx context.Context, id string) error
	findByIDFn                 func(ctx context.Context, id string) (*User, error)
	findByEmailFn              func(ctx context.Context, email string) (*User, error)
	findByUsernameFn           func(ctx context.Context, username string) (*User, error)
	setVerificationTokenFn     func(ctx context.Context, id, digest string, expiry time.Time) error
	consumeVerificationTokenFn func(ctx context.Context, digest string, now time.Time) (*User, error)
	setResetTokenFn            func(ctx context.Context, id, digest string, expiry time.Time) error
	consumeResetTokenFn        func(ctx context.Context, digest, newPasswordHash string, now time.Time) error
	setRefreshTokenFn          func(ctx context.Context, id, token string) error
	rotateRefreshTokenFn       func(ctx context.Context, id, current, next string) (bool, error)
	clearRefreshTokenFn        func(ctx context.Context, id string) error
	updateProfileFn            func(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	deleteUnverifiedBeforeFn   func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) SetVerificationToken(ctx context.Context, id, digest string, expiry time.Time) error {
	if m.setVerificationTokenFn != nil {
		return m.setVerificationTokenFn(ctx, id, digest, expiry)
	}
	return nil
}

func (m *mockUserRepo) ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*User, error) {
	if m.consumeVerificationTokenFn != nil {
		return m.consumeVerificationTokenFn(ctx, digest, now)
	}
	return nil, apperror.NewNotFound("verification token not found")
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error {
	if m.setResetTokenFn != nil {
		return m.setResetTokenFn(ctx, id, digest, expiry)
	}
	return nil
}

func (m *mockUserRepo) ConsumeResetToken(ctx context.Context, digest, newPasswordHash string, now time.Time) error {
	if m.consumeResetTokenFn != nil {
		return m.consumeResetTokenFn(ctx, digest, newPasswordHash, now)
	}
	return apperror.NewNotFound("reset token not found")
}

func (m *mockUserRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	if m.setRefreshTokenFn != nil {
		return m.setRefreshTokenFn(ctx, id, token)
	}
	return nil
}

func (m *mockUserRepo) RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	if m.rotateRefreshTokenFn != nil {
		return m.rotateRefreshTokenFn(ctx, id, current, next)
	}
	return true, nil
}

func (m *mockUserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	if m.clearRefreshTokenFn != nil {
		return m.clearRefreshTokenFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, update)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteUnverifiedBeforeFn != nil {
		return m.deleteUnverifiedBeforeFn(ctx, cutoff)
	}
	return 0, nil
}

// sentMail records one dispatched email.
type sentMail struct {
	to      string
	subject string
	body    string
}

// mockMailer captures outbound mail. Set sendErr to simulate a dispatch
// failure.
type mockMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	sendErr error
}

func (m *mockMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *mockMailer) lastSent(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fastHasherParams keeps argon2 cheap in tests.
func fastHasherParams() HasherParams {
	return HasherParams{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8}
}

func newTestService(repo UserRepository, mail *mockMailer) *authService {
	cfg := &config.Config{
		BaseURL: "http://localhost:8080",
		Auth: config.AuthConfig{
			AccessSecret:    "test-access-secret-test-access-secret",
			RefreshSecret:   "test-refresh-secret-test-refresh-secret",
			AccessTTL:       15 * time.Minute,
			RefreshTTL:      7 * 24 * time.Hour,
			VerificationTTL: 30 * time.Minute,
			ResetTTL:        15 * time.Minute,
		},
	}
	return NewAuthService(repo, NewHasher(fastHasherParams()), NewTokenIssuer(cfg.Auth), mail, cfg).(*authService)
}

func assertAppError(t *testing.T, err error, code int) *apperror.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error with code %d, got nil", code)
	}
	appErr, ok := err.(*apperror.AppError)
	if !ok {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("error code = %d, want %d (message: %q)", appErr.Code, code, appErr.Message)
	}
	return appErr
}

var (
	verifyLinkPattern = regexp.MustCompile(`verify-email/([0-9a-f]{64})`)
	resetLinkPattern  = regexp.MustCompile(`reset-password/([0-9a-f]{64})`)
)

func extractToken(t *testing.T, body string, pattern *regexp.Regexp) string {
	t.Helper()
	m := pattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("mail body contains no token link matching %v", pattern)
	}
	return m[1]
}

// --- Register ---

func TestRegisterSuccess(t *testing.T) {
	var created *User
	repo := &mockUserRepo{
		createFn: func(_ context.Context, user *User) error {
			created = user
			return nil
		},
	}
	mail := &mockMailer{}
	svc := newTestService(repo, mail)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Ada@Example.com",
		Username: "Ada_Lovelace",
		Password: "enchantress",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if created == nil {
		t.Fatal("repository Create was never called")
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email = %q, want normalized %q", user.Email, "ada@example.com")
	}
	if user.Username != "ada_lovelace" {
		t.Errorf("username = %q, want normalized %q", user.Username, "ada_lovelace")
	}
	if user.IsVerified {
		t.Error("new account is verified before the link was used")
	}
	if user.PasswordHash == "enchantress" {
		t.Error("password stored in plaintext")
	}
	if user.VerificationDigest == nil || user.VerificationExpiry == nil {
		t.Fatal("new account has no outstanding verification token")
	}

	msg := mail.lastSent(t)
	if msg.to != "ada@example.com" {
		t.Errorf("mail sent to %q, want %q", msg.to, "ada@example.com")
	}
	plaintext := extractToken(t, msg.body, verifyLinkPattern)
	if DigestToken(plaintext) != *user.VerificationDigest {
		t.Error("mailed token does not digest to the stored digest")
	}
	if strings.Contains(msg.body, *user.VerificationDigest) {
		t.Error("mail body leaks the stored digest")
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing email", RegisterInput{Username: "ada", Password: "enchantress"}},
		{"missing username", RegisterInput{Email: "ada@example.com", Password: "enchantress"}},
		{"missing password", RegisterInput{Email: "ada@example.com", Username: "ada"}},
		{"username too short", RegisterInput{Email: "ada@example.com", Username: "ab", Password: "enchantress"}},
		{"username too long", RegisterInput{Email: "ada@example.com", Username: strings.Repeat("a", 21), Password: "enchantress"}},
		{"username bad chars", RegisterInput{Email: "ada@example.com", Username: "ada!lovelace", Password: "enchantress"}},
		{"password too short", RegisterInput{Email: "ada@example.com", Username: "ada", Password: "abc12"}},
		{"password too long", RegisterInput{Email: "ada@example.com", Username: "ada", Password: strings.Repeat("x", 51)}},
		{"password denylisted", RegisterInput{Email: "ada@example.com", Username: "ada", Password: "qwerty"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			createCalled := false
			repo := &mockUserRepo{
				createFn: func(context.Context, *User) error {
					createCalled = true
					return nil
				},
			}
			mail := &mockMailer{}
			svc := newTestService(repo, mail)

			_, err := svc.Register(context.Background(), tc.input)
			assertAppError(t, err, 400)
			if createCalled {
				t.Error("invalid input still reached the repository")
			}
			if mail.count() != 0 {
				t.Error("invalid input still produced mail")
			}
		})
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(context.Context, *User) error {
			return apperror.NewConflict("An account with this email already exists.")
		},
	}
	mail := &mockMailer{}
	svc := newTestService(repo, mail)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "enchantress",
	})
	appErr := assertAppError(t, err, 409)
	if !strings.Contains(appErr.Message, "email") {
		t.Errorf("conflict message %q does not name the email field", appErr.Message)
	}
	if mail.count() != 0 {
		t.Error("conflicting registration still produced mail")
	}
}

func TestRegisterRollsBackOnMailFailure(t *testing.T) {
	var deletedID string
	var createdID string
	repo := &mockUserRepo{
		createFn: func(_ context.Context, user *User) error {
			createdID = user.ID
			return nil
		},
		deleteFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	mail := &mockMailer{sendErr: context.DeadlineExceeded}
	svc := newTestService(repo, mail)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "enchantress",
	})
	assertAppError(t, err, 500)
	if deletedID == "" {
		t.Fatal("failed mail dispatch did not roll back the created account")
	}
	if deletedID != createdID {
		t.Errorf("rolled back id %q, want the created id %q", deletedID, createdID)
	}
}

// --- Login ---

func verifiedUser(t *testing.T, svc *authService, password string) *User {
	t.Helper()
	hash, err := svc.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	return &User{
		ID:           "user-1",
		Email:        "ada@example.com",
		Username:     "ada",
		PasswordHash: hash,
		IsVerified:   true,
	}
}

func TestLoginSuccess(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	var storedRefresh string
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*User, error) {
			if email != "ada@example.com" {
				return nil, apperror.NewNotFound("user not found")
			}
			return user, nil
		},
		setRefreshTokenFn: func(_ context.Context, id, token string) error {
			storedRefresh = token
			return nil
		},
	}
	svc.repo = repo

	pair, err := svc.Login(context.Background(), LoginInput{Email: "Ada@Example.com", Password: "enchantress"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("login returned an incomplete token pair")
	}
	if storedRefresh != pair.RefreshToken {
		t.Error("stored refresh token differs from the returned one")
	}
	claims, err := svc.tokens.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("minted access token does not verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("access token subject = %q, want %q", claims.Subject, "user-1")
	}
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	svc.repo = &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*User, error) {
			if email == "ada@example.com" {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}

	_, errUnknown := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "enchantress"})
	unknownErr := assertAppError(t, errUnknown, 401)

	_, errWrongPass := svc.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "wrong-password"})
	wrongPassErr := assertAppError(t, errWrongPass, 401)

	if unknownErr.Message != wrongPassErr.Message {
		t.Errorf("unknown-email and wrong-password messages differ: %q vs %q",
			unknownErr.Message, wrongPassErr.Message)
	}
}

func TestLoginMissingFields(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockMailer{})

	_, err := svc.Login(context.Background(), LoginInput{})
	assertAppError(t, err, 400)
}

func TestLoginUnverifiedAccount(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")
	user.IsVerified = false

	refreshStored := false
	svc.repo = &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*User, error) { return user, nil },
		setRefreshTokenFn: func(context.Context, string, string) error {
			refreshStored = true
			return nil
		},
	}

	_, err := svc.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "enchantress"})
	appErr := assertAppError(t, err, 401)
	if appErr.Type != errTypeUnverified {
		t.Errorf("error type = %q, want %q", appErr.Type, errTypeUnverified)
	}
	if refreshStored {
		t.Error("unverified login still started a session")
	}
}

func TestLoginUnverifiedNotRevealedOnWrongPassword(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")
	user.IsVerified = false

	svc.repo = &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*User, error) { return user, nil },
	}

	_, err := svc.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "wrong-password"})
	appErr := assertAppError(t, err, 401)
	if appErr.Type == errTypeUnverified {
		t.Error("wrong password revealed the account's verification state")
	}
}

// --- VerifyEmail ---

func TestVerifyEmailSuccess(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	plaintext, err := GenerateToken()
	if err != nil {
		t.Fatal(err)
	}

	var consumedDigest string
	svc.repo = &mockUserRepo{
		consumeVerificationTokenFn: func(_ context.Context, digest string, _ time.Time) (*User, error) {
			consumedDigest = digest
			return user, nil
		},
	}

	pair, err := svc.VerifyEmail(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}

	if consumedDigest != DigestToken(plaintext) {
		t.Error("service did not digest the presented token before lookup")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("verification did not perform the implicit login")
	}
}

func TestVerifyEmailInvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockMailer{})

	_, err := svc.VerifyEmail(context.Background(), "")
	assertAppError(t, err, 400)

	_, err = svc.VerifyEmail(context.Background(), "deadbeef")
	appErr := assertAppError(t, err, 400)
	if !strings.Contains(appErr.Message, "Invalid or expired") {
		t.Errorf("message = %q, want an invalid-or-expired message", appErr.Message)
	}
}

// --- ResendVerification ---

func TestResendVerificationSupersedes(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")
	user.IsVerified = false

	var storedDigest string
	svc.repo = &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*User, error) { return user, nil },
		setVerificationTokenFn: func(_ context.Context, id, digest string, _ time.Time) error {
			storedDigest = digest
			return nil
		},
	}

	if err := svc.ResendVerification(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}

	msg := mail.lastSent(t)
	plaintext := extractToken(t, msg.body, verifyLinkPattern)
	if DigestToken(plaintext) != storedDigest {
		t.Error("mailed token does not digest to the newly stored digest")
	}
}

func TestResendVerificationUnknownEmail(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockMailer{})

	err := svc.ResendVerification(context.Background(), "nobody@example.com")
	assertAppError(t, err, 404)
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	svc.repo = &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*User, error) { return user, nil },
	}

	err := svc.ResendVerification(context.Background(), "ada@example.com")
	assertAppError(t, err, 400)
	if mail.count() != 0 {
		t.Error("already-verified account still got a verification mail")
	}
}

// --- ForgotPassword / ResetPassword ---

func TestForgotPasswordSendsResetLink(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	var storedDigest string
	svc.repo = &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*User, error) { return user, nil },
		setResetTokenFn: func(_ context.Context, id, digest string, _ time.Time) error {
			storedDigest = digest
			return nil
		},
	}

	if err := svc.ForgotPassword(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}

	msg := mail.lastSent(t)
	plaintext := extractToken(t, msg.body, resetLinkPattern)
	if DigestToken(plaintext) != storedDigest {
		t.Error("mailed reset token does not digest to the stored digest")
	}
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)

	if err := svc.ForgotPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("ForgotPassword() for an unknown email returned %v, want nil", err)
	}
	if mail.count() != 0 {
		t.Error("unknown email still produced mail")
	}
}

func TestForgotPasswordMailFailureIsSilent(t *testing.T) {
	mail := &mockMailer{sendErr: context.DeadlineExceeded}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	svc.repo = &mockUserRepo{
		findByEmailFn: func(context.Context, string) (*User, error) { return user, nil },
	}

	if err := svc.ForgotPassword(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword() with failing mail returned %v, want nil", err)
	}
}

func TestResetPasswordSuccess(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockMailer{})

	plaintext, err := GenerateToken()
	if err != nil {
		t.Fatal(err)
	}

	var gotDigest, gotHash string
	svc.repo = &mockUserRepo{
		consumeResetTokenFn: func(_ context.Context, digest, newHash string, _ time.Time) error {
			gotDigest = digest
			gotHash = newHash
			return nil
		},
	}

	if err := svc.ResetPassword(context.Background(), plaintext, "new-secret-password"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	if gotDigest != DigestToken(plaintext) {
		t.Error("service did not digest the presented token before lookup")
	}
	ok, err := svc.hasher.Verify("new-secret-password", gotHash)
	if err != nil || !ok {
		t.Errorf("stored hash does not verify against the new password (ok=%v err=%v)", ok, err)
	}
}

func TestResetPasswordWeakPasswordNoMutation(t *testing.T) {
	consumed := false
	repo := &mockUserRepo{
		consumeResetTokenFn: func(context.Context, string, string, time.Time) error {
			consumed = true
			return nil
		},
	}
	svc := newTestService(repo, &mockMailer{})

	for _, weak := range []string{"123456", "short", "password"} {
		err := svc.ResetPassword(context.Background(), "deadbeef", weak)
		assertAppError(t, err, 400)
	}
	if consumed {
		t.Error("a rejected password still consumed the reset token")
	}
}

func TestResetPasswordInvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockMailer{})

	err := svc.ResetPassword(context.Background(), "deadbeef", "new-secret-password")
	appErr := assertAppError(t, err, 400)
	if !strings.Contains(appErr.Message, "Invalid or expired") {
		t.Errorf("message = %q, want an invalid-or-expired message", appErr.Message)
	}
}

// --- Refresh / Logout ---

func TestRefreshRotates(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	current, err := svc.tokens.IssueRefresh(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	user.RefreshToken = &current

	var rotatedTo string
	svc.repo = &mockUserRepo{
		findByIDFn: func(context.Context, string) (*User, error) { return user, nil },
		rotateRefreshTokenFn: func(_ context.Context, id, got, next string) (bool, error) {
			if got != current {
				t.Errorf("rotation compared against %q, want the presented token", got)
			}
			rotatedTo = next
			return true, nil
		},
	}

	pair, err := svc.Refresh(context.Background(), current)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if pair.RefreshToken == current {
		t.Error("refresh did not rotate the token")
	}
	if pair.RefreshToken != rotatedTo {
		t.Error("returned refresh token differs from the one stored")
	}
	if _, err := svc.tokens.VerifyAccess(pair.AccessToken); err != nil {
		t.Errorf("minted access token does not verify: %v", err)
	}
}

func TestRefreshInvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockMailer{})

	_, err := svc.Refresh(context.Background(), "")
	assertAppError(t, err, 401)

	_, err = svc.Refresh(context.Background(), "not-a-jwt")
	assertAppError(t, err, 403)
}

func TestRefreshUnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockMailer{})

	token, err := svc.tokens.IssueRefresh("ghost")
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Refresh(context.Background(), token)
	assertAppError(t, err, 404)
}

func TestRefreshMismatchRevokesSession(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	stored, err := svc.tokens.IssueRefresh(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	user.RefreshToken = &stored

	// A structurally valid token for the same user that is not the stored one.
	stale, err := svc.tokens.IssueRefresh(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stale == stored {
		t.Fatal("two minted refresh tokens are identical")
	}

	cleared := false
	svc.repo = &mockUserRepo{
		findByIDFn: func(context.Context, string) (*User, error) { return user, nil },
		clearRefreshTokenFn: func(context.Context, string) error {
			cleared = true
			return nil
		},
	}

	_, err = svc.Refresh(context.Background(), stale)
	assertAppError(t, err, 403)
	if !cleared {
		t.Error("mismatched refresh token did not revoke the stored session")
	}
}

func TestRefreshLostRaceRevokesSession(t *testing.T) {
	mail := &mockMailer{}
	svc := newTestService(&mockUserRepo{}, mail)
	user := verifiedUser(t, svc, "enchantress")

	current, err := svc.tokens.IssueRefresh(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	user.RefreshToken = &current

	cleared := false
	svc.repo = &mockUserRepo{
		findByIDFn: func(context.Context, string) (*User, error) { return user, nil },
		rotateRefreshTokenFn: func(context.Context, string, string, string) (bool, error) {
			return false, nil
		},
		clearRefreshTokenFn: func(context.Context, string) error {
			cleared = true
			return nil
		},
	}

	_, err = svc.Refresh(context.Background(), current)
	assertAppError(t, err, 403)
	if !cleared {
		t.Error("a lost rotation race did not revoke the stored session")
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockMailer{})

	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Errorf("Logout() with no token = %v, want nil", err)
	}
	if err := svc.Logout(context.Background(), "not-a-jwt"); err != nil {
		t.Errorf("Logout() with a garbage token = %v, want nil", err)
	}

	cleared := false
	svc.repo = &mockUserRepo{
		clearRefreshTokenFn: func(_ context.Context, id string) error {
			cleared = true
			return nil
		},
	}
	token, err := svc.tokens.IssueRefresh("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(context.Background(), token); err != nil {
		t.Errorf("Logout() with a valid token = %v, want nil", err)
	}
	if !cleared {
		t.Error("logout with a valid token did not clear the stored session")
	}
}
