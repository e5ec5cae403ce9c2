package quote

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dostonbek1/quotehub/internal/apperror"
	"github.com/dostonbek1/quotehub/internal/auth"
)

// Handler exposes the quote and comment endpoints.
type Handler struct {
	service Service
}

// NewHandler creates the quote HTTP handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /quotes.
func (h *Handler) Create(c echo.Context) error {
	var req ContentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	q, err := h.service.Create(c.Request().Context(), auth.UserID(c), req.Content)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "quote": q})
}

// List handles GET /quotes with optional page/page_size query params.
func (h *Handler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	quotes, err := h.service.List(c.Request().Context(), page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "quotes": quotes})
}

// ListMine handles GET /quotes/mine.
func (h *Handler) ListMine(c echo.Context) error {
	quotes, err := h.service.ListByAuthor(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "quotes": quotes})
}

// Get handles GET /quotes/:id, returning the quote with its comments.
func (h *Handler) Get(c echo.Context) error {
	detail, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "quote": detail})
}

// Update handles PUT /quotes/:id.
func (h *Handler) Update(c echo.Context) error {
	var req ContentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	q, err := h.service.Update(c.Request().Context(), c.Param("id"), auth.UserID(c), req.Content)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "quote": q})
}

// Delete handles DELETE /quotes/:id.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), auth.UserID(c)); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Quote deleted."})
}

// AddComment handles POST /quotes/:id/comments.
func (h *Handler) AddComment(c echo.Context) error {
	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	claims := auth.Claims(c)
	if claims == nil {
		return apperror.NewUnauthorized("Authentication required.")
	}

	comment, err := h.service.AddComment(c.Request().Context(), c.Param("id"), claims.Subject, claims.Username, req.Text)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "comment": comment})
}

// UpdateComment handles PUT /comments/:id.
func (h *Handler) UpdateComment(c echo.Context) error {
	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body.")
	}

	comment, err := h.service.UpdateComment(c.Request().Context(), c.Param("id"), auth.UserID(c), req.Text)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "comment": comment})
}

// DeleteComment handles DELETE /quotes/:id/comments/:commentID.
func (h *Handler) DeleteComment(c echo.Context) error {
	err := h.service.DeleteComment(c.Request().Context(), c.Param("id"), c.Param("commentID"), auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Comment deleted."})
}
