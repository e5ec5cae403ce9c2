package quote

import (
	"github.com/labstack/echo/v4"

	"github.com/dostonbek1/quotehub/internal/auth"
)

// RegisterRoutes mounts the quote and comment endpoints. Reads are public;
// every write requires a valid access token.
func RegisterRoutes(api *echo.Group, h *Handler, tokens *auth.TokenIssuer) {
	requireAuth := auth.RequireAuth(tokens)

	quotes := api.Group("/quotes")
	quotes.GET("", h.List)
	quotes.POST("", h.Create, requireAuth)
	quotes.GET("/mine", h.ListMine, requireAuth)
	quotes.GET("/:id", h.Get)
	quotes.PUT("/:id", h.Update, requireAuth)
	quotes.DELETE("/:id", h.Delete, requireAuth)
	quotes.POST("/:id/comments", h.AddComment, requireAuth)
	quotes.DELETE("/:id/comments/:commentID", h.DeleteComment, requireAuth)

	api.PUT("/comments/:id", h.UpdateComment, requireAuth)
}
