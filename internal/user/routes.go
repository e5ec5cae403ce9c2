package user

import (
	"github.com/labstack/echo/v4"

	"github.com/dostonbek1/quotehub/internal/auth"
)

// RegisterRoutes mounts the profile endpoints. The /me routes require a
// session; profiles by username are public.
func RegisterRoutes(api *echo.Group, h *Handler, tokens *auth.TokenIssuer) {
	requireAuth := auth.RequireAuth(tokens)

	users := api.Group("/users")
	users.GET("/me", h.Me, requireAuth)
	users.PUT("/me", h.UpdateMe, requireAuth)
	users.GET("/:username", h.ByUsername)
}
