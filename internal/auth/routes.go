package auth

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dostonbek1/quotehub/internal/middleware"
)

// RegisterRoutes mounts the auth endpoints on the given group. Credential
// endpoints sit behind per-IP rate limits; mail-sending endpoints get the
// tightest budgets since each request costs an outbound email.
func RegisterRoutes(g *echo.Group, h *Handler, rdb *redis.Client) {
	g.POST("/register", h.Register, middleware.RateLimit(rdb, "register", 5, time.Minute))
	g.POST("/login", h.Login, middleware.RateLimit(rdb, "login", 10, time.Minute))
	g.GET("/verify-email/:token", h.VerifyEmail)
	g.POST("/resend-verification", h.ResendVerification, middleware.RateLimit(rdb, "resend", 3, time.Minute))
	g.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(rdb, "forgot", 3, time.Minute))
	g.POST("/reset-password/:token", h.ResetPassword, middleware.RateLimit(rdb, "reset", 5, time.Minute))
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
}
