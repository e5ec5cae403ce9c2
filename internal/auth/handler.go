package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dostonbek1/quotehub/internal/apperror"
	"github.com/dostonbek1/quotehub/internal/config"
)

// Cookie names for the token pair. Both are HttpOnly; scripts never see them.
const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// Handler exposes the auth endpoints. It binds requests, delegates to the
// service, and manages the token cookies. No lifecycle rules live here.
type Handler struct {
	service AuthService

	accessTTL    time.Duration
	refreshTTL   time.Duration
	cookieSecure bool
}

// NewHandler creates the auth HTTP handler.
func NewHandler(service AuthService, cfg config.AuthConfig) *Handler {
	return &Handler{
		service:      service,
		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
		cookieSecure: cfg.CookieSecure,
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Registration successful. Please check your email to verify your account.",
		"user_id": user.ID,
	})
}

// Login handles POST /auth/login. An unverified account gets a 401 with an
// explicit is_verified flag so the client can offer to resend the link.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	pair, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if appErr, ok := err.(*apperror.AppError); ok && appErr.Type == errTypeUnverified {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success":     false,
				"is_verified": false,
				"message":     appErr.Message,
			})
		}
		return err
	}

	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Login successful.",
		"token":   pair.AccessToken,
		"user":    pair.User.Profile(),
	})
}

// VerifyEmail handles GET /auth/verify-email/:token. Consuming the token
// logs the user in: the response carries a fresh pair, same as login.
func (h *Handler) VerifyEmail(c echo.Context) error {
	pair, err := h.service.VerifyEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}

	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Email verified successfully.",
		"token":   pair.AccessToken,
		"user":    pair.User.Profile(),
	})
}

// ResendVerification handles POST /auth/resend-verification.
func (h *Handler) ResendVerification(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	if err := h.service.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Verification email sent. Please check your inbox.",
	})
}

// ForgotPassword handles POST /auth/forgot-password. The response is the
// same whether or not the email belongs to an account.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}
	if req.Email == "" {
		return apperror.NewBadRequest("Email is required.")
	}

	// Deliberately ignore the outcome; the service logs failures itself.
	_ = h.service.ForgotPassword(c.Request().Context(), req.Email)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "If that email is registered, a password reset link has been sent.",
	})
}

// ResetPassword handles POST /auth/reset-password/:token.
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	if err := h.service.ResetPassword(c.Request().Context(), c.Param("token"), req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Password has been reset. You can now log in with your new password.",
	})
}

// Refresh handles POST /auth/refresh. The refresh token comes from its
// cookie; a successful rotation replaces both cookies.
func (h *Handler) Refresh(c echo.Context) error {
	token := readCookie(c, refreshCookieName)
	if token == "" {
		return apperror.NewUnauthorized("Session expired. Please log in again.")
	}

	pair, err := h.service.Refresh(c.Request().Context(), token)
	if err != nil {
		return err
	}

	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Logout handles POST /auth/logout. Always succeeds: the cookies are cleared
// regardless of what the server-side revocation managed to do.
func (h *Handler) Logout(c echo.Context) error {
	_ = h.service.Logout(c.Request().Context(), readCookie(c, refreshCookieName))

	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Logged out successfully.",
	})
}

// setAuthCookies writes both token cookies with lifetimes matching the
// tokens themselves.
func (h *Handler) setAuthCookies(c echo.Context, pair *TokenPair) {
	c.SetCookie(h.tokenCookie(accessCookieName, pair.AccessToken, h.accessTTL))
	c.SetCookie(h.tokenCookie(refreshCookieName, pair.RefreshToken, h.refreshTTL))
}

// clearAuthCookies expires both token cookies.
func (h *Handler) clearAuthCookies(c echo.Context) {
	c.SetCookie(h.tokenCookie(accessCookieName, "", -time.Hour))
	c.SetCookie(h.tokenCookie(refreshCookieName, "", -time.Hour))
}

func (h *Handler) tokenCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func readCookie(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
