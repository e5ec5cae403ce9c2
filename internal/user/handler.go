package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dostonbek1/quotehub/internal/apperror"
	"github.com/dostonbek1/quotehub/internal/auth"
)

// Handler exposes the profile endpoints.
type Handler struct {
	service Service
}

// NewHandler creates the user HTTP handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Me handles GET /users/me.
func (h *Handler) Me(c echo.Context) error {
	profile, quotes, err := h.service.Me(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    profile,
		"quotes":  quotes,
	})
}

// ByUsername handles GET /users/:username.
func (h *Handler) ByUsername(c echo.Context) error {
	profile, quotes, err := h.service.ByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    profile,
		"quotes":  quotes,
	})
}

// UpdateMe handles PUT /users/me.
func (h *Handler) UpdateMe(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	profile, err := h.service.UpdateMe(c.Request().Context(), auth.UserID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    profile,
	})
}
