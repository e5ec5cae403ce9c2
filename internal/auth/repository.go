package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dostonbek1/quotehub/internal/apperror"
)

// userColumns is the scan list shared by every single-row lookup.
const userColumns = `id, email, username, password_hash, avatar, bio, is_verified,
	       verification_digest, verification_expiry, reset_digest, reset_expiry,
	       refresh_token, created_at, updated_at`

// ProfileUpdate carries the whitelisted mutable profile fields. Nil means
// "leave unchanged".
type ProfileUpdate struct {
	Username *string
	Avatar   *string
	Bio      *string
}

// UserRepository is the data access contract for identity records. All SQL
// lives in the concrete implementation -- no SQL leaks out. Every
// token-consuming method is a single conditional update so that two
// concurrent presentations of the same token cannot both succeed.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Verification lifecycle. SetVerificationToken overwrites any
	// outstanding digest, permanently invalidating the prior plaintext.
	SetVerificationToken(ctx context.Context, id, digest string, expiry time.Time) error
	ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*User, error)

	// Reset lifecycle, independent of verification.
	SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error
	ConsumeResetToken(ctx context.Context, digest, newPasswordHash string, now time.Time) error

	// Session state: at most one refresh token per user.
	SetRefreshToken(ctx context.Context, id, token string) error
	RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error

	// Profile glue.
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)

	// Background sweep.
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// userRepository implements UserRepository with hand-written MySQL queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new identity record, including any initial verification
// digest, in one statement. Duplicate email or username surfaces as a
// Conflict, never as an overwrite.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, email, username, password_hash, avatar, bio, is_verified,
	                             verification_digest, verification_expiry, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Avatar,
		user.Bio,
		user.IsVerified,
		user.VerificationDigest,
		user.VerificationExpiry,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if conflict := translateDuplicate(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// Delete removes an identity record. Used to roll back a registration whose
// verification mail could not be dispatched.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by their UUID.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// FindByEmail retrieves a user by their (normalized) email address.
// Returns apperror.NotFound if no user exists with this email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// FindByUsername retrieves a user by their username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// findOne runs a single-row user query and scans the result.
func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Avatar,
		&user.Bio,
		&user.IsVerified,
		&user.VerificationDigest,
		&user.VerificationExpiry,
		&user.ResetDigest,
		&user.ResetExpiry,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// SetVerificationToken stores a new verification digest and expiry,
// overwriting any outstanding pair.
func (r *userRepository) SetVerificationToken(ctx context.Context, id, digest string, expiry time.Time) error {
	query := `UPDATE users SET verification_digest = ?, verification_expiry = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, digest, expiry, id)
	if err != nil {
		return fmt.Errorf("setting verification token: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// ConsumeVerificationToken atomically flips is_verified and clears the
// digest+expiry pair for the record whose unexpired digest matches. The row
// is locked for the duration so a concurrent presentation of the same token
// observes the cleared digest and fails. Returns the verified user, or
// apperror.NotFound when the digest is absent or expired -- the two cases
// are deliberately indistinguishable.
func (r *userRepository) ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting verification tx: %w", err)
	}
	defer tx.Rollback()

	user := &User{}
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE verification_digest = ? AND verification_expiry > ?
	          FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, digest, now).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Avatar,
		&user.Bio,
		&user.IsVerified,
		&user.VerificationDigest,
		&user.VerificationExpiry,
		&user.ResetDigest,
		&user.ResetExpiry,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("verification token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying verification token: %w", err)
	}

	update := `UPDATE users SET is_verified = TRUE,
	                            verification_digest = NULL,
	                            verification_expiry = NULL
	           WHERE id = ?`
	if _, err := tx.ExecContext(ctx, update, user.ID); err != nil {
		return nil, fmt.Errorf("consuming verification token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing verification: %w", err)
	}

	user.IsVerified = true
	user.VerificationDigest = nil
	user.VerificationExpiry = nil
	return user, nil
}

// SetResetToken stores a new reset digest and expiry, overwriting any
// outstanding pair.
func (r *userRepository) SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error {
	query := `UPDATE users SET reset_digest = ?, reset_expiry = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, digest, expiry, id)
	if err != nil {
		return fmt.Errorf("setting reset token: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// ConsumeResetToken replaces the password hash and clears the reset pair in
// one conditional update. Zero rows affected means the digest is absent,
// already consumed, or expired; all three report as NotFound.
func (r *userRepository) ConsumeResetToken(ctx context.Context, digest, newPasswordHash string, now time.Time) error {
	query := `UPDATE users SET password_hash = ?, reset_digest = NULL, reset_expiry = NULL
	          WHERE reset_digest = ? AND reset_expiry > ?`
	result, err := r.db.ExecContext(ctx, query, newPasswordHash, digest, now)
	if err != nil {
		return fmt.Errorf("consuming reset token: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("reset token not found")
	}
	return nil
}

// SetRefreshToken stores a refresh token, replacing any prior value. This
// is what makes a new login silently terminate an older session.
func (r *userRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_token = ? WHERE id = ?`, token, id)
	if err != nil {
		return fmt.Errorf("setting refresh token: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// RotateRefreshToken swaps the stored refresh token for a new one only if
// the stored value still equals current. Returns false when the compare
// failed -- the token was already rotated, cleared, or never stored --
// without touching the row. The compare-and-swap is what keeps two
// concurrent refresh calls from both succeeding with the same stale token.
func (r *userRepository) RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	query := `UPDATE users SET refresh_token = ? WHERE id = ? AND refresh_token = ?`
	result, err := r.db.ExecContext(ctx, query, next, id, current)
	if err != nil {
		return false, fmt.Errorf("rotating refresh token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotating refresh token: %w", err)
	}
	return n == 1, nil
}

// ClearRefreshToken drops the stored refresh token, ending the session.
func (r *userRepository) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_token = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clearing refresh token: %w", err)
	}
	return nil
}

// UpdateProfile applies the whitelisted profile fields that are set and
// returns the updated record. A username collision surfaces as Conflict.
func (r *userRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if update.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *update.Username)
	}
	if update.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *update.Avatar)
	}
	if update.Bio != nil {
		sets = append(sets, "bio = ?")
		args = append(args, *update.Bio)
	}

	if len(sets) > 0 {
		query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		args = append(args, id)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			if conflict := translateDuplicate(err); conflict != nil {
				return nil, conflict
			}
			return nil, fmt.Errorf("updating profile: %w", err)
		}
	}

	return r.FindByID(ctx, id)
}

// DeleteUnverifiedBefore removes unverified accounts created before the
// cutoff. The created_at bound keeps in-flight registrations out of reach.
func (r *userRepository) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM users WHERE is_verified = FALSE AND created_at < ?`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting unverified users: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting unverified users: %w", err)
	}
	return n, nil
}

// translateDuplicate maps a MySQL duplicate-key error (1062) to a Conflict
// naming the offending field, or returns nil for any other error.
func translateDuplicate(err error) *apperror.AppError {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) || mysqlErr.Number != 1062 {
		return nil
	}
	switch {
	case strings.Contains(mysqlErr.Message, "uq_users_email"):
		return apperror.NewConflict("An account with this email already exists.")
	case strings.Contains(mysqlErr.Message, "uq_users_username"):
		return apperror.NewConflict("Username is already taken.")
	default:
		return apperror.NewConflict("This value is already taken.")
	}
}
