package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dostonbek1/quotehub/internal/auth"
	"github.com/dostonbek1/quotehub/internal/mailer"
	"github.com/dostonbek1/quotehub/internal/quote"
	"github.com/dostonbek1/quotehub/internal/user"
)

// RegisterRoutes constructs every repository/service/handler chain and
// mounts all routes under /api/v1. This is the single place where feature
// packages get wired together.
//
// It returns the auth cleaner so main can run the background sweep with its
// own lifecycle.
func (a *App) RegisterRoutes() *auth.Cleaner {
	e := a.Echo

	// Health check endpoint for container orchestration.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	api := e.Group("/api/v1")

	// Shared auth building blocks.
	tokens := auth.NewTokenIssuer(a.Config.Auth)
	hasher := auth.NewHasher(auth.DefaultHasherParams())
	mail := mailer.NewSMTPMailer(a.Config.SMTP)

	// Auth.
	userRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(userRepo, hasher, tokens, mail, a.Config)
	authHandler := auth.NewHandler(authService, a.Config.Auth)
	auth.RegisterRoutes(api.Group("/auth"), authHandler, a.Redis)

	// Quotes and comments.
	quoteRepo := quote.NewRepository(a.DB)
	quoteService := quote.NewService(quoteRepo)
	quoteHandler := quote.NewHandler(quoteService)
	quote.RegisterRoutes(api, quoteHandler, tokens)

	// Profiles.
	userService := user.NewService(userRepo, quoteService)
	userHandler := user.NewHandler(userService)
	user.RegisterRoutes(api, userHandler, tokens)

	return auth.NewCleaner(userRepo, a.Config.Auth.CleanupInterval, a.Config.Auth.UnverifiedGrace)
}
