package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/dostonbek1/quotehub/internal/apperror"
)

// Context keys set by RequireAuth.
const (
	ctxKeyUserID = "auth.user_id"
	ctxKeyClaims = "auth.claims"
)

// RequireAuth gates a route behind a valid access token. The token is read
// from the access cookie, falling back to an Authorization bearer header for
// non-browser clients. Absence is a 401; a present-but-invalid token is a
// 403, telling the client its session is stale rather than missing.
func RequireAuth(tokens *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := readCookie(c, accessCookieName)
			if token == "" {
				token = bearerToken(c)
			}
			if token == "" {
				return apperror.NewUnauthorized("Authentication required.")
			}

			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				return apperror.NewForbidden("Session expired. Please log in again.")
			}

			c.Set(ctxKeyUserID, claims.Subject)
			c.Set(ctxKeyClaims, claims)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(c echo.Context) string {
	const prefix = "Bearer "
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// UserID returns the authenticated user's ID from the request context.
// Empty string if the route did not pass through RequireAuth.
func UserID(c echo.Context) string {
	id, _ := c.Get(ctxKeyUserID).(string)
	return id
}

// Claims returns the authenticated user's access claims, or nil.
func Claims(c echo.Context) *AccessClaims {
	claims, _ := c.Get(ctxKeyClaims).(*AccessClaims)
	return claims
}
