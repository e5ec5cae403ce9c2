package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dostonbek1/quotehub/internal/config"
)

// tokenIssuerName is the iss claim on every token we mint.
const tokenIssuerName = "quotehub"

// ErrInvalidToken is returned by VerifyAccess/VerifyRefresh for any token
// that fails validation: bad signature, wrong key class, expired, or
// malformed. Callers must not distinguish between those cases in responses.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims carried by an access token. Email and username
// ride along so request handling doesn't need a user lookup. Subject holds
// the user ID.
type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// refreshClaims are the claims carried by a refresh token: identity plus a
// unique token ID, so every mint produces a distinct signed string and
// rotation always swaps in a genuinely new token.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the signed, time-bound access and refresh
// tokens. Access and refresh tokens are signed with distinct secrets, so a
// token of one class can never verify as the other. Validation is stateless;
// the refresh token's stateful single-use check happens in the service.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewTokenIssuer creates a TokenIssuer from the auth config.
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// IssueAccess mints a signed access token for the given identity.
func (t *TokenIssuer) IssueAccess(userID, email, username string) (string, error) {
	now := t.now()
	claims := AccessClaims{
		Email:    email,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    tokenIssuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh mints a signed refresh token for the given user.
func (t *TokenIssuer) IssueRefresh(userID string) (string, error) {
	now := t.now()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    tokenIssuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccess validates an access token's signature and expiry and returns
// its claims. Any failure maps to ErrInvalidToken.
func (t *TokenIssuer) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(tok *jwt.Token) (any, error) { return t.accessSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns the user ID it was
// minted for. Any failure maps to ErrInvalidToken.
func (t *TokenIssuer) VerifyRefresh(token string) (string, error) {
	claims := &refreshClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(tok *jwt.Token) (any, error) { return t.refreshSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
